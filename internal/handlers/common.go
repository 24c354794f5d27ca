package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"birthday-mate-backend/internal/middleware"
	"birthday-mate-backend/internal/models"
	"birthday-mate-backend/internal/services"

	"github.com/rs/zerolog/log"
)

const maxJSONBody = 1 << 20

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse is a plain acknowledgement
type MessageResponse struct {
	Message string `json:"message"`
}

// errorStatuses maps service sentinels to HTTP status codes. The first
// match wins.
var errorStatuses = []struct {
	err    error
	status int
}{
	// validation
	{services.ErrInvalidInput, http.StatusBadRequest},
	{services.ErrConsentRequired, http.StatusBadRequest},
	{services.ErrUnsupportedImage, http.StatusBadRequest},
	{services.ErrInvalidImage, http.StatusBadRequest},
	{services.ErrSelfGift, http.StatusBadRequest},
	{services.ErrGiftCardUnsupported, http.StatusBadRequest},
	{services.ErrNotBirthdayMate, http.StatusBadRequest},
	{services.ErrImageTooLarge, http.StatusRequestEntityTooLarge},

	// auth
	{services.ErrInvalidToken, http.StatusUnauthorized},
	{services.ErrInvalidSignature, http.StatusUnauthorized},
	{services.ErrUserInactive, http.StatusForbidden},
	{services.ErrAdminRequired, http.StatusForbidden},

	// ownership
	{services.ErrForbidden, http.StatusForbidden},
	{services.ErrNotParticipant, http.StatusForbidden},
	{services.ErrNotSender, http.StatusForbidden},
	{services.ErrNotTribeMember, http.StatusForbidden},
	{services.ErrUploadNotPermitted, http.StatusForbidden},

	// time window and wall state
	{services.ErrWallTooEarly, http.StatusForbidden},
	{services.ErrWallNotOpen, http.StatusForbidden},
	{services.ErrWallArchived, http.StatusForbidden},
	{services.ErrWallSealed, http.StatusForbidden},
	{services.ErrUploadsDisabled, http.StatusForbidden},
	{services.ErrUploadsPaused, http.StatusForbidden},
	{services.ErrReactionsDisabled, http.StatusForbidden},
	{services.ErrCannotUnseal, http.StatusForbidden},
	{services.ErrNotBirthday, http.StatusForbidden},
	{services.ErrRoomClosed, http.StatusForbidden},
	{services.ErrRoomReadOnly, http.StatusForbidden},
	{services.ErrBuddyInactive, http.StatusForbidden},
	{services.ErrPaymentIncomplete, http.StatusPaymentRequired},

	// not found
	{services.ErrNotOnboarded, http.StatusNotFound},
	{services.ErrUserNotFound, http.StatusNotFound},
	{services.ErrWallNotFound, http.StatusNotFound},
	{services.ErrPhotoNotFound, http.StatusNotFound},
	{services.ErrFileNotFound, http.StatusNotFound},
	{services.ErrInvitationNotFound, http.StatusNotFound},
	{services.ErrRoomNotFound, http.StatusNotFound},
	{services.ErrMessageNotFound, http.StatusNotFound},
	{services.ErrMessageDeleted, http.StatusNotFound},
	{services.ErrBuddyNotFound, http.StatusNotFound},
	{services.ErrCatalogItemNotFound, http.StatusNotFound},
	{services.ErrGiftNotFound, http.StatusNotFound},
	{services.ErrFlagNotFound, http.StatusNotFound},
	{services.ErrContentNotFound, http.StatusNotFound},
	{models.ErrNotFound, http.StatusNotFound},

	// conflict
	{services.ErrUserExists, http.StatusConflict},
	{services.ErrWallExists, http.StatusConflict},
	{services.ErrAlreadyUploaded, http.StatusConflict},
	{services.ErrPhotoLimit, http.StatusConflict},
	{services.ErrAlreadyInvited, http.StatusConflict},
	{services.ErrInvitationUsed, http.StatusConflict},
	{services.ErrRoomFull, http.StatusConflict},
	{models.ErrConflict, http.StatusConflict},
	{models.ErrFull, http.StatusConflict},

	// external
	{services.ErrPaymentsDisabled, http.StatusServiceUnavailable},
	{services.ErrPaymentProvider, http.StatusBadGateway},
}

// statusFor returns the HTTP status for err, or 500 when it is not a known
// rejection
func statusFor(err error) (int, bool) {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			return e.status, true
		}
	}
	return http.StatusInternalServerError, false
}

// respondServiceError maps a service error to its status code. Known
// rejections are returned with their message; anything else is logged and
// hidden behind fallback.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status, known := statusFor(err)
	if !known {
		log.Error().
			Err(err).
			Str("path", r.URL.Path).
			Str("user_id", middleware.GetUserID(r.Context())).
			Msg(fallback)
		respondError(w, fallback, status)
		return
	}

	log.Debug().
		Err(err).
		Str("path", r.URL.Path).
		Int("status", status).
		Msg("Request rejected")
	respondError(w, err.Error(), status)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// decodeJSON reads a JSON request body into dst, reporting a 400 on failure
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// decodeOptionalJSON is decodeJSON for endpoints whose body may be empty
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// queryInt parses an integer query parameter, falling back to def
func queryInt(r *http.Request, name string, def int) int {
	if raw := r.URL.Query().Get(name); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return def
}

// currentUser returns the authenticated user. Routes behind the auth
// middleware always have one.
func currentUser(r *http.Request) *models.User {
	return middleware.UserFromContext(r.Context())
}
