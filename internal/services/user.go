package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"birthday-mate-backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const maxTribeMembers = 100

var genders = []string{models.GenderMale, models.GenderFemale, models.GenderPreferNotToSay}

// UserService handles identity resolution, onboarding and profiles
type UserService struct {
	users    UserStore
	verifier TokenVerifier
	now      func() time.Time
}

// NewUserService creates a new user service
func NewUserService(users UserStore, verifier TokenVerifier) *UserService {
	return &UserService{
		users:    users,
		verifier: verifier,
		now:      time.Now,
	}
}

// VerifyToken validates a bearer token without requiring a registered user
func (s *UserService) VerifyToken(ctx context.Context, token string) (*Identity, error) {
	ident, err := s.verifier.Verify(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return ident, nil
}

// Authenticate resolves a bearer token to an active registered user
func (s *UserService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	ident, err := s.VerifyToken(ctx, token)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByExternalUID(ctx, ident.UID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, ErrNotOnboarded
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	return user, nil
}

// GetByID retrieves a user
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

// SignupRequest is the onboarding form
type SignupRequest struct {
	Email             string  `json:"email"`
	FirstName         string  `json:"first_name"`
	DateOfBirth       string  `json:"date_of_birth"`
	Gender            string  `json:"gender"`
	Country           string  `json:"country"`
	State             string  `json:"state"`
	City              *string `json:"city"`
	ProfilePictureURL *string `json:"profile_picture_url"`
	ConsentGiven      bool    `json:"consent_given"`
}

// Signup registers the verified identity as a user
func (s *UserService) Signup(ctx context.Context, ident *Identity, req SignupRequest) (*models.User, error) {
	_, err := s.users.GetByExternalUID(ctx, ident.UID)
	switch {
	case err == nil:
		return nil, ErrUserExists
	case !errors.Is(err, models.ErrNotFound):
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	if !req.ConsentGiven {
		return nil, ErrConsentRequired
	}

	email := ident.Email
	if email == "" {
		email = strings.TrimSpace(req.Email)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: a valid email is required", ErrInvalidInput)
	}

	firstName := strings.TrimSpace(req.FirstName)
	if err := validateFirstName(firstName); err != nil {
		return nil, err
	}

	dob, err := time.Parse("2006-01-02", req.DateOfBirth)
	if err != nil {
		return nil, fmt.Errorf("%w: date_of_birth must be YYYY-MM-DD", ErrInvalidInput)
	}
	now := s.now()
	if dob.After(now) {
		return nil, fmt.Errorf("%w: date_of_birth cannot be in the future", ErrInvalidInput)
	}

	if !models.OneOf(req.Gender, genders) {
		return nil, fmt.Errorf("%w: gender must be one of %s", ErrInvalidInput, strings.Join(genders, ", "))
	}
	if strings.TrimSpace(req.Country) == "" || strings.TrimSpace(req.State) == "" {
		return nil, fmt.Errorf("%w: country and state are required", ErrInvalidInput)
	}
	if req.City != nil {
		if err := validateCity(*req.City); err != nil {
			return nil, err
		}
	}
	if req.ProfilePictureURL != nil {
		if err := validatePictureURL(*req.ProfilePictureURL); err != nil {
			return nil, err
		}
	}

	user := &models.User{
		ID:                     uuid.New().String(),
		ExternalUID:            ident.UID,
		Email:                  email,
		FirstName:              Sanitize(firstName, 100),
		DateOfBirth:            dob,
		Gender:                 req.Gender,
		Country:                strings.TrimSpace(req.Country),
		State:                  strings.TrimSpace(req.State),
		City:                   req.City,
		ProfilePictureURL:      req.ProfilePictureURL,
		BirthMonth:             int(dob.Month()),
		BirthDay:               dob.Day(),
		TribeID:                models.TribeKey(int(dob.Month()), dob.Day()),
		StateVisibilityEnabled: true,
		IsActive:               true,
		ConsentGiven:           true,
		CreatedAt:              now,
		UpdatedAt:              now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Info().Str("user_id", user.ID).Str("tribe_id", user.TribeID).Msg("User signed up")
	return user, nil
}

// Profile returns the full record to its owner or an admin and the public view to everyone else
func (s *UserService) Profile(ctx context.Context, viewer *models.User, id string) (any, error) {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if viewer != nil && (viewer.ID == user.ID || viewer.IsAdmin) {
		return user, nil
	}
	return user.Public(), nil
}

// UpdateProfileRequest holds the editable profile fields
type UpdateProfileRequest struct {
	FirstName              *string `json:"first_name"`
	City                   *string `json:"city"`
	StateVisibilityEnabled *bool   `json:"state_visibility_enabled"`
}

// UpdateProfile applies a partial profile update by the owner or an admin
func (s *UserService) UpdateProfile(ctx context.Context, actor *models.User, id string, req UpdateProfileRequest) (*models.User, error) {
	user, err := s.editable(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if req.FirstName != nil {
		name := strings.TrimSpace(*req.FirstName)
		if err := validateFirstName(name); err != nil {
			return nil, err
		}
		user.FirstName = Sanitize(name, 100)
	}
	if req.City != nil {
		if err := validateCity(*req.City); err != nil {
			return nil, err
		}
		city := Sanitize(*req.City, 100)
		user.City = &city
	}
	if req.StateVisibilityEnabled != nil {
		user.StateVisibilityEnabled = *req.StateVisibilityEnabled
	}

	user.UpdatedAt = s.now()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

// UpdateProfilePicture replaces the user's picture URL
func (s *UserService) UpdateProfilePicture(ctx context.Context, actor *models.User, id, url string) (*models.User, error) {
	if err := validatePictureURL(url); err != nil {
		return nil, err
	}
	user, err := s.editable(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	user.ProfilePictureURL = &url
	user.UpdatedAt = s.now()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update profile picture: %w", err)
	}
	return user, nil
}

func (s *UserService) editable(ctx context.Context, actor *models.User, id string) (*models.User, error) {
	if actor.ID != id && !actor.IsAdmin {
		return nil, fmt.Errorf("%w: you can only edit your own profile", ErrForbidden)
	}
	return s.GetByID(ctx, id)
}

// TribeMembers lists the public profiles of a tribe
func (s *UserService) TribeMembers(ctx context.Context, tribeID string, limit int, random bool) ([]*models.PublicUser, int, error) {
	if limit <= 0 || limit > maxTribeMembers {
		limit = maxTribeMembers
	}

	users, err := s.users.ListByTribe(ctx, tribeID, limit, random)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tribe members: %w", err)
	}
	total, err := s.users.CountByTribe(ctx, tribeID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count tribe members: %w", err)
	}

	members := make([]*models.PublicUser, 0, len(users))
	for _, u := range users {
		members = append(members, u.Public())
	}
	return members, total, nil
}

// ContactRequest is a contact form submission
type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// SubmitContact stores a contact form message. user may be nil.
func (s *UserService) SubmitContact(ctx context.Context, user *models.User, req ContactRequest) (*models.ContactSubmission, error) {
	if !models.OneOf(req.Subject, models.ContactSubjects) {
		return nil, fmt.Errorf("%w: subject must be one of %s", ErrInvalidInput, strings.Join(models.ContactSubjects, ", "))
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return nil, fmt.Errorf("%w: a valid email is required", ErrInvalidInput)
	}
	name := Sanitize(req.Name, 100)
	message := Sanitize(req.Message, 2000)
	if name == "" || message == "" {
		return nil, fmt.Errorf("%w: name and message are required", ErrInvalidInput)
	}

	c := &models.ContactSubmission{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     req.Email,
		Subject:   req.Subject,
		Message:   message,
		CreatedAt: s.now(),
	}
	if user != nil {
		c.UserID = &user.ID
	}

	if err := s.users.CreateContact(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to store contact submission: %w", err)
	}
	return c, nil
}

func validateFirstName(name string) error {
	if n := utf8.RuneCountInString(name); n < 1 || n > 100 {
		return fmt.Errorf("%w: first_name must be between 1 and 100 characters", ErrInvalidInput)
	}
	return nil
}

func validateCity(city string) error {
	if utf8.RuneCountInString(city) > 100 {
		return fmt.Errorf("%w: city must be at most 100 characters", ErrInvalidInput)
	}
	return nil
}

func validatePictureURL(url string) error {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") && !strings.HasPrefix(url, "/") {
		return fmt.Errorf("%w: profile picture must be an http(s) URL or an absolute path", ErrInvalidInput)
	}
	return nil
}
