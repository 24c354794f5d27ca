package handlers

import (
	"errors"
	"net/http"

	"birthday-mate-backend/internal/middleware"
	"birthday-mate-backend/internal/models"
	"birthday-mate-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const maxTribeMembers = 100

// UserHandler handles onboarding, profiles and the contact form
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// Signup handles POST /api/auth/signup
func (h *UserHandler) Signup(w http.ResponseWriter, r *http.Request) {
	ident := middleware.IdentityFromContext(r.Context())

	var req services.SignupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.userService.Signup(r.Context(), ident, req)
	if err != nil {
		respondServiceError(w, r, err, "Failed to create user")
		return
	}
	respondJSON(w, http.StatusCreated, user)
}

// Me handles GET /api/auth/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, currentUser(r))
}

// VerifyTokenResponse reports the state of a bearer token
type VerifyTokenResponse struct {
	Valid     bool         `json:"valid"`
	UID       string       `json:"uid,omitempty"`
	Email     string       `json:"email,omitempty"`
	Onboarded bool         `json:"onboarded"`
	User      *models.User `json:"user,omitempty"`
}

// VerifyToken handles GET and POST /api/auth/verify-token. The token comes
// from the token query parameter or the Authorization header.
func (h *UserHandler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		var msg string
		if token, msg = middleware.BearerToken(r); msg != "" {
			respondError(w, msg, http.StatusUnauthorized)
			return
		}
	}

	ident, err := h.userService.VerifyToken(r.Context(), token)
	if err != nil {
		respondJSON(w, http.StatusUnauthorized, VerifyTokenResponse{Valid: false})
		return
	}

	resp := VerifyTokenResponse{Valid: true, UID: ident.UID, Email: ident.Email}
	user, err := h.userService.Authenticate(r.Context(), token)
	switch {
	case err == nil:
		resp.Onboarded = true
		resp.User = user
	case errors.Is(err, services.ErrNotOnboarded):
	default:
		respondServiceError(w, r, err, "Failed to verify token")
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// GetUser handles GET /api/users/{id}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	profile, err := h.userService.Profile(r.Context(), currentUser(r), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err, "Failed to get user")
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

// UpdateUser handles PATCH /api/users/{id}
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req services.UpdateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), currentUser(r), chi.URLParam(r, "id"), req)
	if err != nil {
		respondServiceError(w, r, err, "Failed to update profile")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

type profilePictureRequest struct {
	ProfilePictureURL string `json:"profile_picture_url"`
}

// UpdateProfilePicture handles PUT /api/users/{id}/profile-picture
func (h *UserHandler) UpdateProfilePicture(w http.ResponseWriter, r *http.Request) {
	var req profilePictureRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.userService.UpdateProfilePicture(r.Context(), currentUser(r), chi.URLParam(r, "id"), req.ProfilePictureURL)
	if err != nil {
		respondServiceError(w, r, err, "Failed to update profile picture")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// TribeMembers handles GET /api/users/tribe/{tribe_id}/members
func (h *UserHandler) TribeMembers(w http.ResponseWriter, r *http.Request) {
	tribeID := chi.URLParam(r, "tribe_id")
	if _, _, err := services.ParseTribeID(tribeID); err != nil {
		respondServiceError(w, r, err, "Invalid tribe")
		return
	}

	limit := queryInt(r, "limit", 50)
	if limit <= 0 || limit > maxTribeMembers {
		limit = maxTribeMembers
	}
	random := r.URL.Query().Get("random_sample") == "true"

	members, total, err := h.userService.TribeMembers(r.Context(), tribeID, limit, random)
	if err != nil {
		respondServiceError(w, r, err, "Failed to get tribe members")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"tribe_id": tribeID,
		"members":  members,
		"total":    total,
	})
}

// SubmitContact handles POST /api/users/contact. Authentication is optional.
func (h *UserHandler) SubmitContact(w http.ResponseWriter, r *http.Request) {
	var req services.ContactRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	submission, err := h.userService.SubmitContact(r.Context(), currentUser(r), req)
	if err != nil {
		respondServiceError(w, r, err, "Failed to submit contact form")
		return
	}

	log.Info().
		Str("submission_id", submission.ID).
		Str("subject", submission.Subject).
		Msg("Contact form submitted")

	respondJSON(w, http.StatusCreated, MessageResponse{Message: "Thank you for reaching out. We'll get back to you soon."})
}
