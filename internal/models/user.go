package models

import (
	"fmt"
	"time"
)

// Gender values accepted at signup
const (
	GenderMale           = "male"
	GenderFemale         = "female"
	GenderPreferNotToSay = "prefer_not_to_say"
)

// User represents a registered user
type User struct {
	ID                     string    `json:"id"`
	ExternalUID            string    `json:"-"`
	Email                  string    `json:"email"`
	FirstName              string    `json:"first_name"`
	DateOfBirth            time.Time `json:"date_of_birth"`
	Gender                 string    `json:"gender"`
	Country                string    `json:"country"`
	State                  string    `json:"state"`
	City                   *string   `json:"city,omitempty"`
	ProfilePictureURL      *string   `json:"profile_picture_url,omitempty"`
	BirthMonth             int       `json:"birth_month"`
	BirthDay               int       `json:"birth_day"`
	TribeID                string    `json:"tribe_id"`
	StateVisibilityEnabled bool      `json:"state_visibility_enabled"`
	IsAdmin                bool      `json:"is_admin"`
	IsActive               bool      `json:"is_active"`
	ConsentGiven           bool      `json:"consent_given"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// TribeKey formats a birth month and day as the MM-DD tribe identifier
func TribeKey(month, day int) string {
	return fmt.Sprintf("%02d-%02d", month, day)
}

// PublicUser is the view of a user shown to other users
type PublicUser struct {
	ID                string  `json:"id"`
	FirstName         string  `json:"first_name"`
	TribeID           string  `json:"tribe_id"`
	Country           string  `json:"country"`
	State             *string `json:"state,omitempty"`
	ProfilePictureURL *string `json:"profile_picture_url,omitempty"`
}

// Public returns the public view of the user, hiding the state unless the user opted in
func (u *User) Public() *PublicUser {
	p := &PublicUser{
		ID:                u.ID,
		FirstName:         u.FirstName,
		TribeID:           u.TribeID,
		Country:           u.Country,
		ProfilePictureURL: u.ProfilePictureURL,
	}
	if u.StateVisibilityEnabled {
		state := u.State
		p.State = &state
	}
	return p
}

// ContactSubmission represents a message sent through the contact form
type ContactSubmission struct {
	ID        string    `json:"id"`
	UserID    *string   `json:"user_id,omitempty"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
