package handlers

import (
	"net/http"

	"birthday-mate-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// BuddyHandler handles birthday buddy pairing
type BuddyHandler struct {
	buddyService *services.BuddyService
}

// NewBuddyHandler creates a new buddy handler
func NewBuddyHandler(buddyService *services.BuddyService) *BuddyHandler {
	return &BuddyHandler{
		buddyService: buddyService,
	}
}

// Match handles POST /api/buddy/match
func (h *BuddyHandler) Match(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	status, err := h.buddyService.Match(r.Context(), user)
	if err != nil {
		respondServiceError(w, r, err, "Failed to find a birthday buddy")
		return
	}

	log.Info().
		Str("user_id", user.ID).
		Bool("matched", status.Matched).
		Str("buddy_id", status.BuddyID).
		Msg("Buddy match requested")

	respondJSON(w, http.StatusOK, status)
}

type buddyResponseRequest struct {
	Accept *bool `json:"accept"`
}

// Respond handles POST /api/buddy/respond/{buddy_id}
func (h *BuddyHandler) Respond(w http.ResponseWriter, r *http.Request) {
	var req buddyResponseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Accept == nil {
		respondError(w, "accept is required", http.StatusBadRequest)
		return
	}

	status, err := h.buddyService.Respond(r.Context(), currentUser(r), chi.URLParam(r, "buddy_id"), *req.Accept)
	if err != nil {
		respondServiceError(w, r, err, "Failed to respond to buddy")
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// Accept handles POST /api/buddy/accept for the caller's active pairing
func (h *BuddyHandler) Accept(w http.ResponseWriter, r *http.Request) {
	status, err := h.buddyService.AcceptCurrent(r.Context(), currentUser(r))
	if err != nil {
		respondServiceError(w, r, err, "Failed to accept buddy")
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// ForSelf guards the /{user_id} forms of the buddy routes: the path must name
// the caller
func ForSelf(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "user_id") != currentUser(r).ID {
			respondError(w, "You can only manage your own birthday buddy", http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

// Status handles GET /api/buddy/status
func (h *BuddyHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.buddyService.Status(r.Context(), currentUser(r))
	if err != nil {
		respondServiceError(w, r, err, "Failed to get buddy status")
		return
	}
	respondJSON(w, http.StatusOK, status)
}
