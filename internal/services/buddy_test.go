package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"birthday-mate-backend/internal/memstore"
	"birthday-mate-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type buddyFixture struct {
	db    *memstore.DB
	svc   *BuddyService
	clock time.Time
	ada   *models.User
	bola  *models.User
	chidi *models.User
	dayo  *models.User
}

// Ada, Bola and Chidi share 05-05 and registered in that order.
func newBuddyFixture(t *testing.T) *buddyFixture {
	t.Helper()
	db := memstore.New()
	f := &buddyFixture{
		db:    db,
		clock: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
		ada:   db.AddUser("Ada", 5, 5, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
		bola:  db.AddUser("Bola", 5, 5, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)),
		chidi: db.AddUser("Chidi", 5, 5, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)),
		dayo:  db.AddUser("Dayo", 8, 8, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
	}
	f.svc = NewBuddyService(memstore.BuddyStore{DB: db}, memstore.RoomStore{DB: db}, memstore.UserStore{DB: db})
	f.svc.now = func() time.Time { return f.clock }
	return f
}

func TestBuddyMatchPicksEarliestRegistered(t *testing.T) {
	f := newBuddyFixture(t)
	ctx := context.Background()

	st, err := f.svc.Match(ctx, f.ada)
	require.NoError(t, err)
	require.True(t, st.Matched)
	assert.Nil(t, st.Buddy, "buddy stays anonymous until both accept")
	assert.Equal(t, time.Date(2026, 5, 5, 0, 0, 0, 0, time.UTC), *st.BirthdayDate)
	assert.Equal(t, f.bola.ID, f.db.Buddies[st.BuddyID].User2ID)

	again, err := f.svc.Match(ctx, f.ada)
	require.NoError(t, err)
	assert.Equal(t, st.BuddyID, again.BuddyID)

	fromBola, err := f.svc.Status(ctx, f.bola)
	require.NoError(t, err)
	assert.Equal(t, st.BuddyID, fromBola.BuddyID)

	// everyone else on 05-05 is already paired
	st, err = f.svc.Match(ctx, f.chidi)
	require.NoError(t, err)
	assert.False(t, st.Matched)
	assert.NotEmpty(t, st.Message)

	st, err = f.svc.Match(ctx, f.dayo)
	require.NoError(t, err)
	assert.False(t, st.Matched)
}

func TestBuddyMutualAcceptReveals(t *testing.T) {
	f := newBuddyFixture(t)
	ctx := context.Background()

	st, err := f.svc.Match(ctx, f.ada)
	require.NoError(t, err)

	_, err = f.svc.Respond(ctx, f.chidi, st.BuddyID, true)
	require.ErrorIs(t, err, ErrBuddyNotFound)
	_, err = f.svc.Respond(ctx, f.ada, "missing", true)
	require.ErrorIs(t, err, ErrBuddyNotFound)

	st, err = f.svc.Respond(ctx, f.ada, st.BuddyID, true)
	require.NoError(t, err)
	assert.True(t, st.YouAccepted)
	assert.False(t, st.BuddyAccepted)
	assert.False(t, st.IsRevealed)
	assert.Nil(t, st.RoomID)

	st, err = f.svc.Respond(ctx, f.bola, st.BuddyID, true)
	require.NoError(t, err)
	assert.True(t, st.IsRevealed)
	require.NotNil(t, st.Buddy)
	assert.Equal(t, "Ada", st.Buddy.FirstName)
	require.NotNil(t, st.RoomID)

	room := f.db.Rooms[*st.RoomID]
	require.NotNil(t, room)
	assert.Equal(t, models.RoomTypeBuddy, room.RoomType)
	assert.Equal(t, 2, room.MaxGuests)
	assert.Len(t, f.db.Members[room.ID], 2)

	fromAda, err := f.svc.Status(ctx, f.ada)
	require.NoError(t, err)
	require.NotNil(t, fromAda.Buddy)
	assert.Equal(t, "Bola", fromAda.Buddy.FirstName)
	assert.True(t, fromAda.YouAccepted)
	assert.True(t, fromAda.BuddyAccepted)
}

func TestBuddyAcceptCurrentPairing(t *testing.T) {
	f := newBuddyFixture(t)
	ctx := context.Background()

	_, err := f.svc.AcceptCurrent(ctx, f.ada)
	require.ErrorIs(t, err, ErrBuddyNotFound)

	st, err := f.svc.Match(ctx, f.ada)
	require.NoError(t, err)

	st, err = f.svc.AcceptCurrent(ctx, f.bola)
	require.NoError(t, err)
	assert.True(t, st.YouAccepted)
	assert.False(t, st.IsRevealed)

	st, err = f.svc.AcceptCurrent(ctx, f.ada)
	require.NoError(t, err)
	assert.True(t, st.IsRevealed)
	require.NotNil(t, st.Buddy)
	assert.Equal(t, "Bola", st.Buddy.FirstName)
}

func TestBuddySimultaneousAcceptsBothStick(t *testing.T) {
	f := newBuddyFixture(t)
	ctx := context.Background()

	st, err := f.svc.Match(ctx, f.ada)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, u := range []*models.User{f.ada, f.bola} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.svc.Respond(ctx, u, st.BuddyID, true)
		}()
	}
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	stored := f.db.Buddies[st.BuddyID]
	assert.True(t, stored.User1Accepted)
	assert.True(t, stored.User2Accepted)
	assert.True(t, stored.IsRevealed)
	require.NotNil(t, stored.RoomID)

	var buddyRooms int
	for _, r := range f.db.Rooms {
		if r.RoomType == models.RoomTypeBuddy {
			buddyRooms++
		}
	}
	assert.Equal(t, 1, buddyRooms)
	assert.Len(t, f.db.Members[*stored.RoomID], 2)
}

func TestBuddyAcceptFromStaleRead(t *testing.T) {
	f := newBuddyFixture(t)
	ctx := context.Background()
	store := memstore.BuddyStore{DB: f.db}

	st, err := f.svc.Match(ctx, f.ada)
	require.NoError(t, err)

	// both members read the pairing before either writes
	_, err = store.GetByID(ctx, st.BuddyID)
	require.NoError(t, err)

	first, err := store.Accept(ctx, st.BuddyID, f.ada.ID)
	require.NoError(t, err)
	assert.False(t, first.User2Accepted)

	second, err := store.Accept(ctx, st.BuddyID, f.bola.ID)
	require.NoError(t, err)
	assert.True(t, second.User1Accepted)
	assert.True(t, second.User2Accepted)

	won, err := store.Reveal(ctx, st.BuddyID, "room-a")
	require.NoError(t, err)
	assert.True(t, won)
	won, err = store.Reveal(ctx, st.BuddyID, "room-b")
	require.NoError(t, err)
	assert.False(t, won, "only one caller claims the reveal")
	assert.Equal(t, "room-a", *f.db.Buddies[st.BuddyID].RoomID)
}

func TestBuddyDeclineEndsPairing(t *testing.T) {
	f := newBuddyFixture(t)
	ctx := context.Background()

	st, err := f.svc.Match(ctx, f.ada)
	require.NoError(t, err)

	st, err = f.svc.Respond(ctx, f.bola, st.BuddyID, false)
	require.NoError(t, err)
	assert.False(t, st.IsActive)

	_, err = f.svc.Respond(ctx, f.ada, st.BuddyID, true)
	require.ErrorIs(t, err, ErrBuddyInactive)

	status, err := f.svc.Status(ctx, f.ada)
	require.NoError(t, err)
	assert.False(t, status.Matched)
}

func TestBuddyPairingExpires(t *testing.T) {
	f := newBuddyFixture(t)
	ctx := context.Background()

	st, err := f.svc.Match(ctx, f.ada)
	require.NoError(t, err)

	f.clock = f.clock.Add(8 * 24 * time.Hour)
	_, err = f.svc.Respond(ctx, f.ada, st.BuddyID, true)
	assert.ErrorIs(t, err, ErrBuddyInactive)
}
