package lifecycle

import (
	"testing"
	"time"

	"birthday-mate-backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func utc(y int, m time.Month, d, h, min, s int) time.Time {
	return time.Date(y, m, d, h, min, s, 0, time.UTC)
}

func TestNextBirthday(t *testing.T) {
	now := utc(2025, time.June, 9, 10, 0, 0)

	assert.Equal(t, utc(2025, time.June, 10, 0, 0, 0), NextBirthday(6, 10, now))
	assert.Equal(t, utc(2025, time.June, 9, 0, 0, 0), NextBirthday(6, 9, now), "today counts as upcoming")
	assert.Equal(t, utc(2026, time.June, 8, 0, 0, 0), NextBirthday(6, 8, now))
}

func TestNextBirthdayLeapDay(t *testing.T) {
	assert.Equal(t, utc(2025, time.February, 28, 0, 0, 0), NextBirthday(2, 29, utc(2025, time.January, 1, 0, 0, 0)))
	assert.Equal(t, utc(2028, time.February, 29, 0, 0, 0), NextBirthday(2, 29, utc(2028, time.January, 1, 0, 0, 0)))
}

func TestWallWindowJuneExample(t *testing.T) {
	created := utc(2025, time.June, 9, 10, 0, 0)
	opens, closes := WallWindow(NextBirthday(6, 10, created))

	assert.Equal(t, utc(2025, time.June, 9, 0, 0, 0), opens)
	assert.Equal(t, utc(2025, time.June, 12, 23, 59, 59), closes)

	assert.Equal(t, Open, StateAt(opens, closes, created))
	assert.Equal(t, Open, StateAt(opens, closes, closes))
	assert.Equal(t, Archived, StateAt(opens, closes, utc(2025, time.June, 13, 0, 0, 1)))
	assert.Equal(t, Pending, StateAt(opens, closes, utc(2025, time.June, 8, 23, 59, 59)))
}

func TestCreationAllowed(t *testing.T) {
	opens := utc(2025, time.June, 9, 0, 0, 0)

	assert.True(t, CreationAllowed(opens, utc(2025, time.June, 8, 0, 0, 0)))
	assert.True(t, CreationAllowed(opens, utc(2025, time.June, 10, 0, 0, 0)))
	assert.False(t, CreationAllowed(opens, utc(2025, time.June, 7, 23, 0, 0)))
	assert.Equal(t, 25, HoursUntil(opens, utc(2025, time.June, 7, 23, 0, 0)))
	assert.Equal(t, 24, HoursUntil(opens, utc(2025, time.June, 7, 23, 30, 0)))
	assert.Equal(t, 47, HoursUntil(opens, utc(2025, time.June, 7, 0, 0, 1)))
	assert.Equal(t, 0, HoursUntil(opens, utc(2025, time.June, 10, 0, 0, 0)))
}

func TestIsBirthday(t *testing.T) {
	assert.True(t, IsBirthday(3, 4, utc(2025, time.March, 4, 23, 59, 0)))
	assert.False(t, IsBirthday(3, 4, utc(2025, time.March, 5, 0, 0, 0)))
}

func TestRoomWritable(t *testing.T) {
	opens, closes := DayWindow(utc(2025, time.March, 4, 0, 0, 0))
	room := &models.Room{OpensAt: opens, ClosesAt: closes, IsActive: true}
	noon := utc(2025, time.March, 4, 12, 0, 0)

	assert.True(t, RoomWritable(room, noon))
	assert.False(t, RoomWritable(room, utc(2025, time.March, 5, 0, 0, 0)))

	room.IsReadOnly = true
	assert.True(t, RoomOpen(room, noon))
	assert.False(t, RoomWritable(room, noon))

	room.IsReadOnly = false
	room.IsActive = false
	assert.False(t, RoomOpen(room, noon))
}

func TestGiftActive(t *testing.T) {
	delivered := utc(2025, time.June, 10, 8, 0, 0)

	assert.True(t, GiftActive(models.GiftConfettiEffect, delivered, delivered.Add(23*time.Hour)))
	assert.False(t, GiftActive(models.GiftConfettiEffect, delivered, delivered.Add(25*time.Hour)))
	assert.True(t, GiftActive(models.GiftWallHighlight, delivered, delivered.Add(47*time.Hour)))
	assert.False(t, GiftActive(models.GiftWallHighlight, delivered, delivered.Add(48*time.Hour)))
	assert.True(t, GiftActive(models.GiftDigitalCard, delivered, delivered.AddDate(1, 0, 0)))
	assert.False(t, GiftActive(models.GiftCard, delivered, delivered))

	assert.Nil(t, GiftExpiry(models.GiftDigitalCard, delivered))
	exp := GiftExpiry(models.GiftCelebrantBadge, delivered)
	if assert.NotNil(t, exp) {
		assert.Equal(t, delivered.Add(24*time.Hour), *exp)
	}
}
