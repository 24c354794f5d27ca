package handlers

import (
	"net/http"

	"birthday-mate-backend/internal/metrics"
	"birthday-mate-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// WallHandler handles birthday wall HTTP requests
type WallHandler struct {
	wallService *services.WallService
}

// NewWallHandler creates a new wall handler
func NewWallHandler(wallService *services.WallService) *WallHandler {
	return &WallHandler{
		wallService: wallService,
	}
}

// CreateWall handles POST /api/rooms/birthday-wall
func (h *WallHandler) CreateWall(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	var req services.CreateWallRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}

	wall, err := h.wallService.CreateWall(r.Context(), user, req)
	if err != nil {
		respondServiceError(w, r, err, "Failed to create birthday wall")
		return
	}

	log.Info().
		Str("user_id", user.ID).
		Str("wall_id", wall.ID).
		Int("birthday_year", wall.BirthdayYear).
		Msg("Birthday wall created")

	respondJSON(w, http.StatusCreated, wall)
}

// GetWallByCode handles GET /api/rooms/birthday-wall/{code}
func (h *WallHandler) GetWallByCode(w http.ResponseWriter, r *http.Request) {
	view, err := h.wallService.GetWallByCode(r.Context(), chi.URLParam(r, "code"), currentUser(r))
	if err != nil {
		respondServiceError(w, r, err, "Failed to get birthday wall")
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// CurrentWall handles GET /api/rooms/birthday-wall/user/{user_id}
func (h *WallHandler) CurrentWall(w http.ResponseWriter, r *http.Request) {
	view, err := h.wallService.CurrentWall(r.Context(), chi.URLParam(r, "user_id"), currentUser(r))
	if err != nil {
		respondServiceError(w, r, err, "Failed to get birthday wall")
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// Archive handles GET /api/rooms/birthday-wall/user/{user_id}/archive
func (h *WallHandler) Archive(w http.ResponseWriter, r *http.Request) {
	years, err := h.wallService.Archive(r.Context(), currentUser(r), chi.URLParam(r, "user_id"))
	if err != nil {
		respondServiceError(w, r, err, "Failed to get wall archive")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"years": years})
}

// UploadPhoto handles POST /api/rooms/birthday-wall/{wall_id}/photos
func (h *WallHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	wallID := chi.URLParam(r, "wall_id")

	data, contentType, form, err := readImage(w, r, services.WallImage)
	if err != nil {
		respondServiceError(w, r, err, "Failed to read upload")
		return
	}

	in := services.UploadPhotoInput{
		Data:        data,
		ContentType: contentType,
		Caption:     formValue(form.Value, "caption"),
		FrameStyle:  formValue(form.Value, "frame_style"),
	}

	photo, err := h.wallService.UploadPhoto(r.Context(), user, wallID, in)
	if err != nil {
		respondServiceError(w, r, err, "Failed to upload photo")
		return
	}

	metrics.RecordWallUpload()
	log.Info().
		Str("user_id", user.ID).
		Str("wall_id", wallID).
		Str("photo_id", photo.ID).
		Msg("Wall photo uploaded")

	respondJSON(w, http.StatusCreated, photo)
}

// UpdatePhoto handles PATCH /api/rooms/birthday-wall/{wall_id}/photos/{photo_id}
func (h *WallHandler) UpdatePhoto(w http.ResponseWriter, r *http.Request) {
	var req services.UpdatePhotoRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	photo, err := h.wallService.UpdatePhoto(r.Context(), currentUser(r), chi.URLParam(r, "wall_id"), chi.URLParam(r, "photo_id"), req)
	if err != nil {
		respondServiceError(w, r, err, "Failed to update photo")
		return
	}
	respondJSON(w, http.StatusOK, photo)
}

// DeletePhoto handles DELETE /api/rooms/birthday-wall/{wall_id}/photos/{photo_id}
func (h *WallHandler) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	photoID := chi.URLParam(r, "photo_id")

	if err := h.wallService.DeletePhoto(r.Context(), user, chi.URLParam(r, "wall_id"), photoID); err != nil {
		respondServiceError(w, r, err, "Failed to delete photo")
		return
	}

	log.Info().Str("user_id", user.ID).Str("photo_id", photoID).Msg("Wall photo deleted")
	respondJSON(w, http.StatusOK, MessageResponse{Message: "Photo deleted"})
}

type reactRequest struct {
	Emoji string `json:"emoji"`
}

// React handles POST /api/rooms/birthday-wall/{wall_id}/photos/{photo_id}/reactions
func (h *WallHandler) React(w http.ResponseWriter, r *http.Request) {
	var req reactRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.wallService.React(r.Context(), currentUser(r), chi.URLParam(r, "wall_id"), chi.URLParam(r, "photo_id"), req.Emoji)
	if err != nil {
		respondServiceError(w, r, err, "Failed to react to photo")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// UpdateUploadControl handles PATCH /api/rooms/birthday-wall/{wall_id}/upload-control
func (h *WallHandler) UpdateUploadControl(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	var req services.UploadControlRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	wall, err := h.wallService.UpdateUploadControl(r.Context(), user, chi.URLParam(r, "wall_id"), req)
	if err != nil {
		respondServiceError(w, r, err, "Failed to update upload settings")
		return
	}

	log.Info().
		Str("user_id", user.ID).
		Str("wall_id", wall.ID).
		Bool("uploads_enabled", wall.UploadsEnabled).
		Bool("is_sealed", wall.IsSealed).
		Msg("Wall upload settings changed")

	respondJSON(w, http.StatusOK, wall)
}

// UploadStatus handles GET /api/rooms/birthday-wall/{wall_id}/upload-status
func (h *WallHandler) UploadStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.wallService.GetUploadStatus(r.Context(), currentUser(r), chi.URLParam(r, "wall_id"))
	if err != nil {
		respondServiceError(w, r, err, "Failed to get upload status")
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// Invite handles POST /api/rooms/birthday-wall/{wall_id}/invite
func (h *WallHandler) Invite(w http.ResponseWriter, r *http.Request) {
	var req services.InviteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	inv, err := h.wallService.Invite(r.Context(), currentUser(r), chi.URLParam(r, "wall_id"), req)
	if err != nil {
		respondServiceError(w, r, err, "Failed to create invitation")
		return
	}
	respondJSON(w, http.StatusCreated, inv)
}

// Invitations handles GET /api/rooms/birthday-wall/{wall_id}/invitations
func (h *WallHandler) Invitations(w http.ResponseWriter, r *http.Request) {
	invs, err := h.wallService.Invitations(r.Context(), currentUser(r), chi.URLParam(r, "wall_id"))
	if err != nil {
		respondServiceError(w, r, err, "Failed to list invitations")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"invitations": invs})
}

// AcceptInvitation handles POST /api/rooms/birthday-wall/invite/accept/{code}
func (h *WallHandler) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	inv, err := h.wallService.AcceptInvitation(r.Context(), currentUser(r), chi.URLParam(r, "code"))
	if err != nil {
		respondServiceError(w, r, err, "Failed to accept invitation")
		return
	}
	respondJSON(w, http.StatusOK, inv)
}

func formValue(values map[string][]string, key string) string {
	if v := values[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}
