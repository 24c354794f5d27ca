package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"birthday-mate-backend/internal/memstore"
	"birthday-mate-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []WSMessage
}

func (n *recordingNotifier) BroadcastRoom(roomID string, msg WSMessage) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, msg)
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.Type)
	}
	return out
}

type roomFixture struct {
	db       *memstore.DB
	svc      *RoomService
	notifier *recordingNotifier
	clock    time.Time
	ada      *models.User
	bola     *models.User
	chidi    *models.User
}

// Ada and Bola share the 09-21 tribe; Chidi is in 01-05.
func newRoomFixture(t *testing.T) *roomFixture {
	t.Helper()
	db := memstore.New()
	registered := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	f := &roomFixture{
		db:       db,
		notifier: &recordingNotifier{},
		clock:    time.Date(2026, 9, 21, 15, 0, 0, 0, time.UTC),
		ada:      db.AddUser("Ada", 9, 21, registered),
		bola:     db.AddUser("Bola", 9, 21, registered),
		chidi:    db.AddUser("Chidi", 1, 5, registered),
	}
	f.svc = NewRoomService(memstore.RoomStore{DB: db}, memstore.MessageStore{DB: db}, memstore.UserStore{DB: db}, f.notifier)
	f.svc.now = func() time.Time { return f.clock }
	return f
}

func TestParseTribeID(t *testing.T) {
	month, day, err := ParseTribeID("02-29")
	require.NoError(t, err)
	assert.Equal(t, 2, month)
	assert.Equal(t, 29, day)

	for _, bad := range []string{"2-9", "13-01", "02-30", "abcde", ""} {
		_, _, err := ParseTribeID(bad)
		assert.ErrorIs(t, err, ErrInvalidInput, bad)
	}
}

func TestGetTribeInfo(t *testing.T) {
	f := newRoomFixture(t)

	info, err := f.svc.GetTribeInfo(context.Background(), "09-21")
	require.NoError(t, err)
	assert.Equal(t, 2, info.MemberCount)
	assert.True(t, info.IsActive)
	assert.Equal(t, time.Date(2026, 9, 21, 0, 0, 0, 0, time.UTC), info.OpensAt)

	info, err = f.svc.GetTribeInfo(context.Background(), "01-05")
	require.NoError(t, err)
	assert.False(t, info.IsActive)
	assert.Equal(t, time.Date(2027, 1, 5, 0, 0, 0, 0, time.UTC), info.OpensAt)
}

func TestTribeRoomSharedPerDay(t *testing.T) {
	f := newRoomFixture(t)
	ctx := context.Background()

	first, err := f.svc.TribeRoom(ctx, f.ada, "09-21")
	require.NoError(t, err)
	second, err := f.svc.TribeRoom(ctx, f.bola, "09-21")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, models.RoomTypeTribe, first.RoomType)

	participants, err := f.svc.Participants(ctx, f.ada, first.ID)
	require.NoError(t, err)
	assert.Len(t, participants, 2)

	_, err = f.svc.TribeRoom(ctx, f.chidi, "09-21")
	assert.ErrorIs(t, err, ErrNotTribeMember)

	f.clock = time.Date(2026, 9, 22, 0, 0, 1, 0, time.UTC)
	_, err = f.svc.TribeRoom(ctx, f.ada, "09-21")
	assert.ErrorIs(t, err, ErrNotBirthday)
}

func TestPersonalRoomJoin(t *testing.T) {
	f := newRoomFixture(t)
	ctx := context.Background()

	room, created, err := f.svc.CreatePersonalRoom(ctx, f.ada, "")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "Ada's Birthday Celebration", room.Name)
	require.NotNil(t, room.InviteCode)
	assert.Len(t, *room.InviteCode, 10)

	again, created, err := f.svc.CreatePersonalRoom(ctx, f.ada, "Another")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, room.ID, again.ID)

	_, _, err = f.svc.CreatePersonalRoom(ctx, f.chidi, "")
	assert.ErrorIs(t, err, ErrNotBirthday)

	res, err := f.svc.JoinPersonalRoom(ctx, f.chidi, room.ID, *room.InviteCode)
	require.NoError(t, err)
	assert.False(t, res.IsBirthdayMate)

	res, err = f.svc.JoinPersonalRoom(ctx, f.bola, room.ID, *room.InviteCode)
	require.NoError(t, err)
	assert.True(t, res.IsBirthdayMate)

	_, err = f.svc.JoinPersonalRoom(ctx, f.bola, room.ID, "NOPE")
	assert.ErrorIs(t, err, ErrRoomNotFound)

	_, err = f.svc.JoinPersonalRoom(ctx, f.bola, "other-room", *room.InviteCode)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestPersonalRoomFull(t *testing.T) {
	f := newRoomFixture(t)
	ctx := context.Background()

	room, _, err := f.svc.CreatePersonalRoom(ctx, f.ada, "Small party")
	require.NoError(t, err)
	f.db.Rooms[room.ID].MaxGuests = 2

	_, err = f.svc.JoinPersonalRoom(ctx, f.bola, room.ID, *room.InviteCode)
	require.NoError(t, err)
	_, err = f.svc.JoinPersonalRoom(ctx, f.chidi, room.ID, *room.InviteCode)
	require.ErrorIs(t, err, ErrRoomFull)

	// members may rejoin a full room
	_, err = f.svc.JoinPersonalRoom(ctx, f.bola, room.ID, *room.InviteCode)
	assert.NoError(t, err)
}

func TestMessageLifecycle(t *testing.T) {
	f := newRoomFixture(t)
	ctx := context.Background()

	room, err := f.svc.TribeRoom(ctx, f.ada, "09-21")
	require.NoError(t, err)

	_, err = f.svc.SendMessage(ctx, f.bola, room.ID, "hi")
	require.ErrorIs(t, err, ErrNotParticipant)

	msg, err := f.svc.SendMessage(ctx, f.ada, room.ID, "Happy birthday <script>alert(1)</script>tribe!")
	require.NoError(t, err)
	assert.Equal(t, "Happy birthday tribe!", msg.Content)
	assert.Equal(t, "Ada", msg.SenderName)
	assert.False(t, msg.IsEdited)

	_, err = f.svc.SendMessage(ctx, f.ada, room.ID, "   ")
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.SendMessage(ctx, f.ada, room.ID, strings.Repeat("a", 1001))
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.TribeRoom(ctx, f.bola, "09-21")
	require.NoError(t, err)
	_, err = f.svc.EditMessage(ctx, f.bola, room.ID, msg.ID, "mine now")
	require.ErrorIs(t, err, ErrNotSender)

	f.clock = f.clock.Add(time.Minute)
	edited, err := f.svc.EditMessage(ctx, f.ada, room.ID, msg.ID, "Happy birthday everyone!")
	require.NoError(t, err)
	assert.True(t, edited.IsEdited)

	msgs, err := f.svc.ListMessages(ctx, f.bola, room.ID, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Happy birthday everyone!", msgs[0].Content)

	require.NoError(t, f.svc.DeleteMessage(ctx, f.ada, room.ID, msg.ID))
	err = f.svc.DeleteMessage(ctx, f.ada, room.ID, msg.ID)
	require.ErrorIs(t, err, ErrMessageDeleted)

	msgs, err = f.svc.ListMessages(ctx, f.bola, room.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	assert.Equal(t, []string{EventMessageCreated, EventMessageUpdated, EventMessageDeleted}, f.notifier.types())
}

func TestRoomClosedAfterDay(t *testing.T) {
	f := newRoomFixture(t)
	ctx := context.Background()

	room, err := f.svc.TribeRoom(ctx, f.ada, "09-21")
	require.NoError(t, err)
	msg, err := f.svc.SendMessage(ctx, f.ada, room.ID, "still here")
	require.NoError(t, err)

	f.clock = time.Date(2026, 9, 22, 0, 0, 0, 0, time.UTC)
	_, err = f.svc.SendMessage(ctx, f.ada, room.ID, "too late")
	require.ErrorIs(t, err, ErrRoomClosed)
	_, err = f.svc.EditMessage(ctx, f.ada, room.ID, msg.ID, "edit")
	require.ErrorIs(t, err, ErrRoomClosed)

	// history stays readable to participants
	msgs, err := f.svc.ListMessages(ctx, f.ada, room.ID, 10)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestReadOnlyRoom(t *testing.T) {
	f := newRoomFixture(t)
	ctx := context.Background()

	room, err := f.svc.TribeRoom(ctx, f.ada, "09-21")
	require.NoError(t, err)
	f.db.Rooms[room.ID].IsReadOnly = true

	_, err = f.svc.SendMessage(ctx, f.ada, room.ID, "hello")
	assert.ErrorIs(t, err, ErrRoomReadOnly)
}

func TestRemoveMessageByModerator(t *testing.T) {
	f := newRoomFixture(t)
	ctx := context.Background()

	room, err := f.svc.TribeRoom(ctx, f.ada, "09-21")
	require.NoError(t, err)
	msg, err := f.svc.SendMessage(ctx, f.ada, room.ID, "something rude")
	require.NoError(t, err)

	require.NoError(t, f.svc.RemoveMessage(ctx, msg.ID))
	require.NoError(t, f.svc.RemoveMessage(ctx, msg.ID))
	assert.ErrorIs(t, f.svc.RemoveMessage(ctx, "missing"), ErrMessageNotFound)
	assert.True(t, f.db.Messages[msg.ID].IsDeleted)
}
