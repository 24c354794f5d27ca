package services

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"birthday-mate-backend/internal/lifecycle"
	"birthday-mate-backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	defaultMessageLimit = 100
	maxMessageLimit     = 500
	maxMessageLength    = 1000
	personalCodeLength  = 10
)

// RoomNotifier pushes room events to connected clients
type RoomNotifier interface {
	BroadcastRoom(roomID string, message WSMessage)
}

// RoomService implements tribe and personal rooms and their messages
type RoomService struct {
	rooms    RoomStore
	messages MessageStore
	users    UserStore
	notifier RoomNotifier
	now      func() time.Time
}

// NewRoomService creates a new room service. notifier may be nil.
func NewRoomService(rooms RoomStore, messages MessageStore, users UserStore, notifier RoomNotifier) *RoomService {
	return &RoomService{
		rooms:    rooms,
		messages: messages,
		users:    users,
		notifier: notifier,
		now:      time.Now,
	}
}

// ParseTribeID splits a "MM-DD" tribe id into month and day
func ParseTribeID(tribeID string) (month, day int, err error) {
	// 2000 is a leap year, so 02-29 is accepted
	t, err := time.Parse("2006-01-02", "2000-"+tribeID)
	if err != nil || len(tribeID) != 5 {
		return 0, 0, fmt.Errorf("%w: tribe id must be MM-DD", ErrInvalidInput)
	}
	return int(t.Month()), t.Day(), nil
}

// TribeInfo describes a tribe and its current or next room window
type TribeInfo struct {
	TribeID     string    `json:"tribe_id"`
	MemberCount int       `json:"member_count"`
	IsActive    bool      `json:"is_active"`
	OpensAt     time.Time `json:"opens_at"`
	ClosesAt    time.Time `json:"closes_at"`
}

// GetTribeInfo returns member count and the tribe's birthday window
func (s *RoomService) GetTribeInfo(ctx context.Context, tribeID string) (*TribeInfo, error) {
	month, day, err := ParseTribeID(tribeID)
	if err != nil {
		return nil, err
	}

	count, err := s.users.CountByTribe(ctx, tribeID)
	if err != nil {
		return nil, fmt.Errorf("failed to count tribe members: %w", err)
	}

	now := s.now()
	opens, closes := lifecycle.DayWindow(lifecycle.NextBirthday(month, day, now))
	return &TribeInfo{
		TribeID:     tribeID,
		MemberCount: count,
		IsActive:    lifecycle.IsBirthday(month, day, now),
		OpensAt:     opens,
		ClosesAt:    closes,
	}, nil
}

// TribeRoom returns today's room for the tribe, creating it on first access,
// and makes the caller a participant. Only members may enter, and only on
// the tribe's birthday.
func (s *RoomService) TribeRoom(ctx context.Context, user *models.User, tribeID string) (*models.Room, error) {
	month, day, err := ParseTribeID(tribeID)
	if err != nil {
		return nil, err
	}
	if user.TribeID != tribeID {
		return nil, ErrNotTribeMember
	}

	now := s.now()
	if !lifecycle.IsBirthday(month, day, now) {
		return nil, fmt.Errorf("%w: tribe room only opens on your birthday", ErrNotBirthday)
	}

	opens, closes := lifecycle.DayWindow(now)
	room, err := s.rooms.GetOrCreate(ctx, &models.Room{
		ID:             uuid.New().String(),
		RoomType:       models.RoomTypeTribe,
		RoomIdentifier: tribeID,
		Name:           "Birthday Tribe " + tribeID,
		OpensAt:        opens,
		ClosesAt:       closes,
		IsActive:       true,
		MaxGuests:      models.DefaultMaxGuests,
		CreatedAt:      now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get tribe room: %w", err)
	}

	if err := s.addParticipant(ctx, room.ID, user.ID, true, now); err != nil {
		return nil, err
	}
	return room, nil
}

// CreatePersonalRoom opens the user's invite-only room for today. It returns
// the existing room and false when one was already created.
func (s *RoomService) CreatePersonalRoom(ctx context.Context, user *models.User, name string) (*models.Room, bool, error) {
	now := s.now()
	if !lifecycle.IsBirthday(user.BirthMonth, user.BirthDay, now) {
		return nil, false, fmt.Errorf("%w: personal room only available on your birthday", ErrNotBirthday)
	}

	opens, closes := lifecycle.DayWindow(now)
	identifier := fmt.Sprintf("personal_%s_%s", user.ID, opens.Format("2006-01-02"))

	existing, err := s.rooms.GetByIdentifier(ctx, identifier, opens)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, false, fmt.Errorf("failed to check personal room: %w", err)
	}

	name = Sanitize(name, 100)
	if name == "" {
		name = fmt.Sprintf("%s's Birthday Celebration", user.FirstName)
	}
	code := inviteCode(personalCodeLength)
	room := &models.Room{
		ID:             uuid.New().String(),
		RoomType:       models.RoomTypePersonal,
		RoomIdentifier: identifier,
		Name:           name,
		OpensAt:        opens,
		ClosesAt:       closes,
		IsActive:       true,
		OwnerID:        &user.ID,
		InviteCode:     &code,
		MaxGuests:      models.DefaultMaxGuests,
		CreatedAt:      now,
	}
	if err := s.rooms.Create(ctx, room); err != nil {
		if errors.Is(err, models.ErrConflict) {
			existing, err := s.rooms.GetByIdentifier(ctx, identifier, opens)
			if err != nil {
				return nil, false, fmt.Errorf("failed to load personal room: %w", err)
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("failed to create personal room: %w", err)
	}

	if err := s.addParticipant(ctx, room.ID, user.ID, true, now); err != nil {
		return nil, false, err
	}

	log.Info().Str("room_id", room.ID).Str("owner_id", user.ID).Msg("Personal room created")
	return room, true, nil
}

// JoinResult reports the outcome of joining a personal room
type JoinResult struct {
	Room           *models.Room `json:"room"`
	IsBirthdayMate bool         `json:"is_birthday_mate"`
}

// JoinPersonalRoom adds user to roomID. The invite code must belong to that room.
func (s *RoomService) JoinPersonalRoom(ctx context.Context, user *models.User, roomID, code string) (*JoinResult, error) {
	room, err := s.rooms.GetByInviteCode(ctx, code)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to load room: %w", err)
	}
	if room.ID != roomID {
		return nil, ErrRoomNotFound
	}

	now := s.now()
	if !lifecycle.RoomOpen(room, now) {
		return nil, ErrRoomClosed
	}

	isMate := false
	if room.OwnerID != nil {
		owner, err := s.users.GetByID(ctx, *room.OwnerID)
		if err != nil {
			return nil, fmt.Errorf("failed to load room owner: %w", err)
		}
		isMate = owner.TribeID == user.TribeID
	}

	err = s.rooms.JoinWithLimit(ctx, &models.RoomParticipant{
		ID:             uuid.New().String(),
		RoomID:         room.ID,
		UserID:         user.ID,
		IsBirthdayMate: isMate,
		JoinedAt:       now,
		LastSeen:       now,
	}, room.MaxGuests)
	if err != nil {
		if errors.Is(err, models.ErrFull) {
			return nil, ErrRoomFull
		}
		return nil, fmt.Errorf("failed to join room: %w", err)
	}

	log.Info().Str("room_id", room.ID).Str("user_id", user.ID).Bool("is_birthday_mate", isMate).Msg("User joined personal room")
	return &JoinResult{Room: room, IsBirthdayMate: isMate}, nil
}

// GetRoom returns a room the user participates in
func (s *RoomService) GetRoom(ctx context.Context, userID, roomID string) (*models.Room, error) {
	room, err := s.getRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if err := s.requireParticipant(ctx, room.ID, userID); err != nil {
		return nil, err
	}
	return room, nil
}

// MessageView is a message with its sender's display data
type MessageView struct {
	ID         string    `json:"id"`
	RoomID     string    `json:"room_id"`
	UserID     string    `json:"user_id"`
	SenderName string    `json:"sender_name"`
	SenderPic  *string   `json:"sender_profile_picture_url,omitempty"`
	Content    string    `json:"content"`
	IsEdited   bool      `json:"is_edited"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ListMessages returns the latest visible messages of a room, oldest first
func (s *RoomService) ListMessages(ctx context.Context, user *models.User, roomID string, limit int) ([]*MessageView, error) {
	room, err := s.GetRoom(ctx, user.ID, roomID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultMessageLimit
	}
	if limit > maxMessageLimit {
		limit = maxMessageLimit
	}

	msgs, err := s.messages.ListByRoom(ctx, room.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	senders := make(map[string]*models.User)
	views := make([]*MessageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, s.messageView(ctx, m, senders))
	}
	return views, nil
}

// SendMessage posts a message to an open, writable room
func (s *RoomService) SendMessage(ctx context.Context, user *models.User, roomID, content string) (*MessageView, error) {
	room, err := s.getRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := checkWritable(room, now); err != nil {
		return nil, err
	}
	if err := s.requireParticipant(ctx, room.ID, user.ID); err != nil {
		return nil, err
	}
	content, err = cleanMessage(content)
	if err != nil {
		return nil, err
	}

	msg := &models.Message{
		ID:        uuid.New().String(),
		RoomID:    room.ID,
		UserID:    user.ID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}

	view := s.messageView(ctx, msg, map[string]*models.User{user.ID: user})
	s.notify(room.ID, WSMessage{Type: EventMessageCreated, RoomID: room.ID, UserID: user.ID, MessageID: msg.ID, Data: view})
	return view, nil
}

// EditMessage replaces the content of the sender's own message
func (s *RoomService) EditMessage(ctx context.Context, user *models.User, roomID, messageID, content string) (*MessageView, error) {
	room, msg, err := s.ownMessage(ctx, user, roomID, messageID)
	if err != nil {
		return nil, err
	}
	content, err = cleanMessage(content)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.messages.UpdateContent(ctx, msg.ID, content, now); err != nil {
		return nil, fmt.Errorf("failed to update message: %w", err)
	}
	msg.Content = content
	msg.UpdatedAt = now

	view := s.messageView(ctx, msg, map[string]*models.User{user.ID: user})
	s.notify(room.ID, WSMessage{Type: EventMessageUpdated, RoomID: room.ID, UserID: user.ID, MessageID: msg.ID, Data: view})
	return view, nil
}

// DeleteMessage soft-deletes the sender's own message
func (s *RoomService) DeleteMessage(ctx context.Context, user *models.User, roomID, messageID string) error {
	room, msg, err := s.ownMessage(ctx, user, roomID, messageID)
	if err != nil {
		return err
	}
	if err := s.messages.SoftDelete(ctx, msg.ID, s.now()); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	s.notify(room.ID, WSMessage{Type: EventMessageDeleted, RoomID: room.ID, UserID: user.ID, MessageID: msg.ID})
	return nil
}

// RemoveMessage soft-deletes any message on behalf of a moderator
func (s *RoomService) RemoveMessage(ctx context.Context, messageID string) error {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return ErrMessageNotFound
		}
		return fmt.Errorf("failed to load message: %w", err)
	}
	if msg.IsDeleted {
		return nil
	}
	if err := s.messages.SoftDelete(ctx, msg.ID, s.now()); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	s.notify(msg.RoomID, WSMessage{Type: EventMessageDeleted, RoomID: msg.RoomID, MessageID: msg.ID})
	return nil
}

// ParticipantView is a room member with display data
type ParticipantView struct {
	UserID            string    `json:"user_id"`
	FirstName         string    `json:"first_name"`
	ProfilePictureURL *string   `json:"profile_picture_url,omitempty"`
	IsBirthdayMate    bool      `json:"is_birthday_mate"`
	JoinedAt          time.Time `json:"joined_at"`
}

// Participants lists the members of a room the user participates in
func (s *RoomService) Participants(ctx context.Context, user *models.User, roomID string) ([]*ParticipantView, error) {
	room, err := s.GetRoom(ctx, user.ID, roomID)
	if err != nil {
		return nil, err
	}
	ps, err := s.rooms.ListParticipants(ctx, room.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}

	views := make([]*ParticipantView, 0, len(ps))
	for _, p := range ps {
		v := &ParticipantView{UserID: p.UserID, IsBirthdayMate: p.IsBirthdayMate, JoinedAt: p.JoinedAt}
		if u, err := s.users.GetByID(ctx, p.UserID); err == nil {
			v.FirstName = u.FirstName
			v.ProfilePictureURL = u.ProfilePictureURL
		}
		views = append(views, v)
	}
	return views, nil
}

func (s *RoomService) getRoom(ctx context.Context, id string) (*models.Room, error) {
	room, err := s.rooms.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to load room: %w", err)
	}
	return room, nil
}

func (s *RoomService) requireParticipant(ctx context.Context, roomID, userID string) error {
	ok, err := s.rooms.IsParticipant(ctx, roomID, userID)
	if err != nil {
		return fmt.Errorf("failed to check participant: %w", err)
	}
	if !ok {
		return ErrNotParticipant
	}
	return nil
}

func (s *RoomService) addParticipant(ctx context.Context, roomID, userID string, mate bool, now time.Time) error {
	err := s.rooms.AddParticipant(ctx, &models.RoomParticipant{
		ID:             uuid.New().String(),
		RoomID:         roomID,
		UserID:         userID,
		IsBirthdayMate: mate,
		JoinedAt:       now,
		LastSeen:       now,
	})
	if err != nil {
		return fmt.Errorf("failed to add participant: %w", err)
	}
	return nil
}

func (s *RoomService) ownMessage(ctx context.Context, user *models.User, roomID, messageID string) (*models.Room, *models.Message, error) {
	room, err := s.getRoom(ctx, roomID)
	if err != nil {
		return nil, nil, err
	}
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil, ErrMessageNotFound
		}
		return nil, nil, fmt.Errorf("failed to load message: %w", err)
	}
	if msg.RoomID != room.ID {
		return nil, nil, ErrMessageNotFound
	}
	if msg.UserID != user.ID {
		return nil, nil, ErrNotSender
	}
	if msg.IsDeleted {
		return nil, nil, ErrMessageDeleted
	}
	if err := checkWritable(room, s.now()); err != nil {
		return nil, nil, err
	}
	return room, msg, nil
}

func checkWritable(room *models.Room, now time.Time) error {
	if !lifecycle.RoomOpen(room, now) {
		return ErrRoomClosed
	}
	if room.IsReadOnly {
		return ErrRoomReadOnly
	}
	return nil
}

func cleanMessage(content string) (string, error) {
	if utf8.RuneCountInString(content) > maxMessageLength {
		return "", fmt.Errorf("%w: message must be at most %d characters", ErrInvalidInput, maxMessageLength)
	}
	content = Sanitize(content, maxMessageLength)
	if content == "" {
		return "", fmt.Errorf("%w: message cannot be empty", ErrInvalidInput)
	}
	return content, nil
}

func (s *RoomService) messageView(ctx context.Context, m *models.Message, senders map[string]*models.User) *MessageView {
	sender, ok := senders[m.UserID]
	if !ok {
		u, err := s.users.GetByID(ctx, m.UserID)
		if err != nil {
			log.Warn().Err(err).Str("user_id", m.UserID).Msg("Failed to load message sender")
		}
		sender = u
		senders[m.UserID] = u
	}

	v := &MessageView{
		ID:        m.ID,
		RoomID:    m.RoomID,
		UserID:    m.UserID,
		Content:   m.Content,
		IsEdited:  m.IsEdited(),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if sender != nil {
		v.SenderName = sender.FirstName
		v.SenderPic = sender.ProfilePictureURL
	}
	return v
}

func (s *RoomService) notify(roomID string, message WSMessage) {
	if s.notifier == nil {
		return
	}
	s.notifier.BroadcastRoom(roomID, message)
}
