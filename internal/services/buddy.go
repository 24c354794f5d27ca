package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"birthday-mate-backend/internal/lifecycle"
	"birthday-mate-backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// BuddyService pairs users who share a birthday
type BuddyService struct {
	buddies BuddyStore
	rooms   RoomStore
	users   UserStore
	now     func() time.Time
}

// NewBuddyService creates a new buddy service
func NewBuddyService(buddies BuddyStore, rooms RoomStore, users UserStore) *BuddyService {
	return &BuddyService{
		buddies: buddies,
		rooms:   rooms,
		users:   users,
		now:     time.Now,
	}
}

// BuddyStatus is a pairing as seen by one of its members. The buddy's
// identity is withheld until both members accept.
type BuddyStatus struct {
	Matched       bool               `json:"matched"`
	BuddyID       string             `json:"buddy_id,omitempty"`
	BirthdayDate  *time.Time         `json:"birthday_date,omitempty"`
	IsActive      bool               `json:"is_active"`
	IsRevealed    bool               `json:"is_revealed"`
	YouAccepted   bool               `json:"you_accepted"`
	BuddyAccepted bool               `json:"buddy_accepted"`
	RoomID        *string            `json:"room_id,omitempty"`
	ExpiresAt     *time.Time         `json:"expires_at,omitempty"`
	Buddy         *models.PublicUser `json:"buddy,omitempty"`
	Message       string             `json:"message,omitempty"`
}

// Match returns the user's pairing for their next birthday, creating one
// with the earliest registered unpaired user who shares it.
func (s *BuddyService) Match(ctx context.Context, user *models.User) (*BuddyStatus, error) {
	now := s.now()
	birthday := lifecycle.NextBirthday(user.BirthMonth, user.BirthDay, now)

	existing, err := s.buddies.GetActiveForUser(ctx, user.ID, birthday)
	if err == nil {
		return s.status(ctx, existing, user.ID)
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("failed to load buddy pairing: %w", err)
	}

	b := &models.BirthdayBuddy{
		ID:           uuid.New().String(),
		User1ID:      user.ID,
		BirthdayDate: birthday,
		IsActive:     true,
		CreatedAt:    now,
		ExpiresAt:    now.Add(lifecycle.BuddyPairingTTL),
	}
	err = s.buddies.CreatePairing(ctx, b, user.BirthMonth, user.BirthDay)
	switch {
	case errors.Is(err, models.ErrNotFound):
		return &BuddyStatus{Matched: false, Message: "No birthday buddy available yet. Try again later."}, nil
	case errors.Is(err, models.ErrConflict):
		existing, err := s.buddies.GetActiveForUser(ctx, user.ID, birthday)
		if err != nil {
			return nil, fmt.Errorf("failed to load buddy pairing: %w", err)
		}
		return s.status(ctx, existing, user.ID)
	case err != nil:
		return nil, fmt.Errorf("failed to create buddy pairing: %w", err)
	}

	log.Info().Str("buddy_id", b.ID).Str("user_1_id", b.User1ID).Str("user_2_id", b.User2ID).Msg("Birthday buddies matched")
	return s.status(ctx, b, user.ID)
}

// Respond records the user's answer. Once both accept, the pair is revealed
// and a private room is opened for them; a rejection ends the pairing. The
// reveal is claimed in storage so only one responder opens the room.
func (s *BuddyService) Respond(ctx context.Context, user *models.User, buddyID string, accept bool) (*BuddyStatus, error) {
	b, err := s.buddies.GetByID(ctx, buddyID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, ErrBuddyNotFound
		}
		return nil, fmt.Errorf("failed to load buddy pairing: %w", err)
	}
	if !b.Has(user.ID) {
		return nil, ErrBuddyNotFound
	}

	now := s.now()
	if !b.IsActive || now.After(b.ExpiresAt) {
		return nil, ErrBuddyInactive
	}

	if !accept {
		if err := s.buddies.Deactivate(ctx, b.ID); err != nil {
			return nil, fmt.Errorf("failed to update buddy pairing: %w", err)
		}
		b.IsActive = false
		log.Info().Str("buddy_id", b.ID).Str("user_id", user.ID).Msg("Birthday buddy pairing declined")
		return s.status(ctx, b, user.ID)
	}

	b, err = s.buddies.Accept(ctx, b.ID, user.ID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, ErrBuddyInactive
		}
		return nil, fmt.Errorf("failed to update buddy pairing: %w", err)
	}

	if b.User1Accepted && b.User2Accepted && !b.IsRevealed {
		roomID := uuid.New().String()
		revealed, err := s.buddies.Reveal(ctx, b.ID, roomID)
		if err != nil {
			return nil, fmt.Errorf("failed to reveal buddy pairing: %w", err)
		}
		if revealed {
			if err := s.openRoom(ctx, b, roomID, now); err != nil {
				log.Error().Err(err).Str("buddy_id", b.ID).Str("room_id", roomID).Msg("Buddy pairing revealed without a room")
				return nil, err
			}
			b.IsRevealed = true
			b.RoomID = &roomID
			log.Info().Str("buddy_id", b.ID).Str("room_id", roomID).Msg("Birthday buddies revealed")
		} else if b, err = s.buddies.GetByID(ctx, b.ID); err != nil {
			return nil, fmt.Errorf("failed to load buddy pairing: %w", err)
		}
	}
	return s.status(ctx, b, user.ID)
}

// AcceptCurrent accepts the user's active pairing for their next birthday
func (s *BuddyService) AcceptCurrent(ctx context.Context, user *models.User) (*BuddyStatus, error) {
	birthday := lifecycle.NextBirthday(user.BirthMonth, user.BirthDay, s.now())
	b, err := s.buddies.GetActiveForUser(ctx, user.ID, birthday)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, ErrBuddyNotFound
		}
		return nil, fmt.Errorf("failed to load buddy pairing: %w", err)
	}
	return s.Respond(ctx, user, b.ID, true)
}

// Status returns the user's active pairing for their next birthday
func (s *BuddyService) Status(ctx context.Context, user *models.User) (*BuddyStatus, error) {
	birthday := lifecycle.NextBirthday(user.BirthMonth, user.BirthDay, s.now())
	b, err := s.buddies.GetActiveForUser(ctx, user.ID, birthday)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return &BuddyStatus{Matched: false}, nil
		}
		return nil, fmt.Errorf("failed to load buddy pairing: %w", err)
	}
	return s.status(ctx, b, user.ID)
}

func (s *BuddyService) openRoom(ctx context.Context, b *models.BirthdayBuddy, roomID string, now time.Time) error {
	room := &models.Room{
		ID:             roomID,
		RoomType:       models.RoomTypeBuddy,
		RoomIdentifier: "buddy_" + b.ID,
		Name:           "Birthday Buddies",
		OpensAt:        now,
		ClosesAt:       now.Add(lifecycle.BuddyPairingTTL),
		IsActive:       true,
		MaxGuests:      2,
		CreatedAt:      now,
	}
	if err := s.rooms.Create(ctx, room); err != nil {
		return fmt.Errorf("failed to create buddy room: %w", err)
	}
	for _, id := range []string{b.User1ID, b.User2ID} {
		err := s.rooms.AddParticipant(ctx, &models.RoomParticipant{
			ID:             uuid.New().String(),
			RoomID:         room.ID,
			UserID:         id,
			IsBirthdayMate: true,
			JoinedAt:       now,
			LastSeen:       now,
		})
		if err != nil {
			return fmt.Errorf("failed to add buddy to room: %w", err)
		}
	}
	return nil
}

func (s *BuddyService) status(ctx context.Context, b *models.BirthdayBuddy, userID string) (*BuddyStatus, error) {
	st := &BuddyStatus{
		Matched:      true,
		BuddyID:      b.ID,
		BirthdayDate: &b.BirthdayDate,
		IsActive:     b.IsActive,
		IsRevealed:   b.IsRevealed,
		RoomID:       b.RoomID,
		ExpiresAt:    &b.ExpiresAt,
	}
	if b.User1ID == userID {
		st.YouAccepted, st.BuddyAccepted = b.User1Accepted, b.User2Accepted
	} else {
		st.YouAccepted, st.BuddyAccepted = b.User2Accepted, b.User1Accepted
	}

	if b.IsRevealed {
		buddy, err := s.users.GetByID(ctx, b.Other(userID))
		if err != nil {
			return nil, fmt.Errorf("failed to load buddy: %w", err)
		}
		st.Buddy = buddy.Public()
	}
	return st, nil
}
