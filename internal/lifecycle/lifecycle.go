// Package lifecycle derives the state of walls, rooms, buddy pairings and gift
// effects from their stored timestamps. Nothing here touches storage; every
// caller passes the current time explicitly.
package lifecycle

import (
	"time"

	"birthday-mate-backend/internal/models"
)

// State is the derived lifecycle state of a time-boxed entity
type State string

const (
	Pending  State = "pending"
	Open     State = "open"
	Archived State = "archived"
)

const (
	// CreationLead is how long before a wall opens its owner may create it
	CreationLead = 24 * time.Hour
	// BuddyPairingTTL bounds a buddy pairing and its chat room
	BuddyPairingTTL = 7 * 24 * time.Hour
)

var giftWindows = map[string]time.Duration{
	models.GiftConfettiEffect:  24 * time.Hour,
	models.GiftCelebrantBadge:  24 * time.Hour,
	models.GiftWallHighlight:   48 * time.Hour,
	models.GiftFeaturedMessage: 24 * time.Hour,
}

// Day truncates t to midnight UTC
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// BirthdayIn returns the birthday date in the given year.
// Feb 29 birthdays fall on Feb 28 in non-leap years.
func BirthdayIn(year, month, day int) time.Time {
	if month == 2 && day == 29 && !isLeap(year) {
		day = 28
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// NextBirthday returns the soonest occurrence of (month, day) on or after today
func NextBirthday(month, day int, now time.Time) time.Time {
	today := Day(now)
	b := BirthdayIn(today.Year(), month, day)
	if b.Before(today) {
		b = BirthdayIn(today.Year()+1, month, day)
	}
	return b
}

// IsBirthday reports whether now falls on the (month, day) birthday
func IsBirthday(month, day int, now time.Time) bool {
	return NextBirthday(month, day, now).Equal(Day(now))
}

// WallWindow returns the open and close instants for a wall celebrating birthday.
// The wall opens at the start of the day before and closes at the last second
// of the second day after.
func WallWindow(birthday time.Time) (opens, closes time.Time) {
	b := Day(birthday)
	opens = b.AddDate(0, 0, -1)
	closes = b.AddDate(0, 0, 3).Add(-time.Second)
	return opens, closes
}

// DayWindow spans a single calendar day
func DayWindow(day time.Time) (opens, closes time.Time) {
	opens = Day(day)
	closes = opens.AddDate(0, 0, 1).Add(-time.Second)
	return opens, closes
}

// StateAt classifies now against [opens, closes]
func StateAt(opens, closes, now time.Time) State {
	switch {
	case now.Before(opens):
		return Pending
	case now.After(closes):
		return Archived
	default:
		return Open
	}
}

// WallState returns the derived state of a wall
func WallState(w *models.BirthdayWall, now time.Time) State {
	return StateAt(w.OpensAt, w.ClosesAt, now)
}

// CreationAllowed reports whether a wall opening at opens may be created at now
func CreationAllowed(opens, now time.Time) bool {
	return !now.Before(opens.Add(-CreationLead))
}

// HoursUntil returns the whole hours until t, truncated
func HoursUntil(t, now time.Time) int {
	if !now.Before(t) {
		return 0
	}
	return int(t.Sub(now) / time.Hour)
}

// RoomOpen reports whether a room accepts activity at now
func RoomOpen(r *models.Room, now time.Time) bool {
	return r.IsActive && StateAt(r.OpensAt, r.ClosesAt, now) == Open
}

// RoomWritable reports whether messages may be sent, edited or deleted in r at now
func RoomWritable(r *models.Room, now time.Time) bool {
	return RoomOpen(r, now) && !r.IsReadOnly
}

// GiftWindow returns how long a delivered gift effect stays active.
// The second result is false for gift types whose effect never expires.
func GiftWindow(giftType string) (time.Duration, bool) {
	d, ok := giftWindows[giftType]
	return d, ok
}

// GiftActive reports whether a gift effect delivered at deliveredAt is still showing at now
func GiftActive(giftType string, deliveredAt, now time.Time) bool {
	switch giftType {
	case models.GiftDigitalCard:
		return true
	case models.GiftCard:
		return false
	}
	d, ok := giftWindows[giftType]
	if !ok {
		return false
	}
	return now.Before(deliveredAt.Add(d))
}

// GiftExpiry returns when a delivered gift stops showing, or nil if it never does
func GiftExpiry(giftType string, deliveredAt time.Time) *time.Time {
	d, ok := giftWindows[giftType]
	if !ok {
		return nil
	}
	t := deliveredAt.Add(d)
	return &t
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
