package models

import "time"

// Room types
const (
	RoomTypeTribe    = "tribe"
	RoomTypePersonal = "personal"
	RoomTypeBuddy    = "buddy"
)

const DefaultMaxGuests = 50

// Room is a time-boxed chat space
type Room struct {
	ID             string    `json:"id"`
	RoomType       string    `json:"room_type"`
	RoomIdentifier string    `json:"room_identifier"`
	Name           string    `json:"name"`
	OpensAt        time.Time `json:"opens_at"`
	ClosesAt       time.Time `json:"closes_at"`
	IsActive       bool      `json:"is_active"`
	IsReadOnly     bool      `json:"is_read_only"`
	OwnerID        *string   `json:"owner_id,omitempty"`
	InviteCode     *string   `json:"invite_code,omitempty"`
	MaxGuests      int       `json:"max_guests"`
	CreatedAt      time.Time `json:"created_at"`
}

// RoomParticipant is a user's membership in a room
type RoomParticipant struct {
	ID             string    `json:"id"`
	RoomID         string    `json:"room_id"`
	UserID         string    `json:"user_id"`
	IsBirthdayMate bool      `json:"is_birthday_mate"`
	JoinedAt       time.Time `json:"joined_at"`
	LastSeen       time.Time `json:"last_seen"`
}

// Message is a chat message in a room
type Message struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	IsFlagged bool      `json:"is_flagged"`
	IsDeleted bool      `json:"is_deleted"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsEdited reports whether the message was changed after it was sent
func (m *Message) IsEdited() bool {
	return m.UpdatedAt.Sub(m.CreatedAt) > time.Second
}

// BirthdayBuddy pairs two users who share a birthday
type BirthdayBuddy struct {
	ID            string    `json:"id"`
	User1ID       string    `json:"user_1_id"`
	User2ID       string    `json:"user_2_id"`
	BirthdayDate  time.Time `json:"birthday_date"`
	RoomID        *string   `json:"room_id,omitempty"`
	IsActive      bool      `json:"is_active"`
	User1Accepted bool      `json:"user_1_accepted"`
	User2Accepted bool      `json:"user_2_accepted"`
	IsRevealed    bool      `json:"is_revealed"`
	CreatedAt     time.Time `json:"created_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// Other returns the id of the pairing member that is not userID
func (b *BirthdayBuddy) Other(userID string) string {
	if b.User1ID == userID {
		return b.User2ID
	}
	return b.User1ID
}

// Has reports whether userID is a member of the pairing
func (b *BirthdayBuddy) Has(userID string) bool {
	return b.User1ID == userID || b.User2ID == userID
}
