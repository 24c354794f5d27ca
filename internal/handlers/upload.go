package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"birthday-mate-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// multipart overhead allowed on top of the image ceiling
const multipartSlack = 1 << 20

// UploadHandler handles standalone image uploads
type UploadHandler struct {
	userService  *services.UserService
	mediaService *services.MediaService
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(userService *services.UserService, mediaService *services.MediaService) *UploadHandler {
	return &UploadHandler{
		userService:  userService,
		mediaService: mediaService,
	}
}

// ProfilePicture handles POST /api/upload/profile-picture
func (h *UploadHandler) ProfilePicture(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := currentUser(r)

	data, contentType, _, err := readImage(w, r, services.ProfileImage)
	if err != nil {
		respondServiceError(w, r, err, "Failed to read upload")
		return
	}

	stored, err := h.mediaService.StoreProfilePicture(ctx, user.ID, data, contentType)
	if err != nil {
		respondServiceError(w, r, err, "Failed to store profile picture")
		return
	}

	updated, err := h.userService.UpdateProfilePicture(ctx, user, user.ID, stored.URL)
	if err != nil {
		h.mediaService.Discard(ctx, stored)
		respondServiceError(w, r, err, "Failed to update profile picture")
		return
	}

	log.Info().
		Str("user_id", user.ID).
		Str("url", stored.URL).
		Msg("Profile picture uploaded")

	respondJSON(w, http.StatusOK, map[string]any{
		"url":      stored.URL,
		"filename": stored.Filename,
		"size":     stored.Size,
		"user":     updated,
	})
}

// DeleteProfilePicture handles DELETE /api/upload/profile-picture/{filename}.
// Only files under the caller's own profile directory can be removed.
func (h *UploadHandler) DeleteProfilePicture(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	filename := chi.URLParam(r, "filename")

	if err := h.mediaService.DeleteProfilePicture(r.Context(), user.ID, filename); err != nil {
		respondServiceError(w, r, err, "Failed to delete file")
		return
	}

	log.Info().Str("user_id", user.ID).Str("filename", filename).Msg("Profile picture deleted")
	respondJSON(w, http.StatusOK, MessageResponse{Message: "File deleted successfully"})
}

// WallPhoto handles POST /api/upload/birthday-wall-photo. It only stores the image;
// attaching it to a wall goes through the wall upload endpoint.
func (h *UploadHandler) WallPhoto(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	data, contentType, _, err := readImage(w, r, services.WallImage)
	if err != nil {
		respondServiceError(w, r, err, "Failed to read upload")
		return
	}

	stored, err := h.mediaService.StoreWallPhoto(r.Context(), "unattached/"+user.ID, data, contentType)
	if err != nil {
		respondServiceError(w, r, err, "Failed to store photo")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"url":      stored.URL,
		"filename": stored.Filename,
		"size":     stored.Size,
	})
}

// readImage pulls the "file" part out of a multipart request, bounded by the
// image size ceiling, and returns the remaining form values
func readImage(w http.ResponseWriter, r *http.Request, spec services.ImageSpec) ([]byte, string, *multipart.Form, error) {
	r.Body = http.MaxBytesReader(w, r.Body, spec.MaxBytes+multipartSlack)
	if err := r.ParseMultipartForm(spec.MaxBytes + multipartSlack); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "", nil, fmt.Errorf("%w: maximum is %d MB", services.ErrImageTooLarge, spec.MaxBytes>>20)
		}
		return nil, "", nil, fmt.Errorf("%w: expected a multipart form with a file field", services.ErrInvalidInput)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", nil, fmt.Errorf("%w: file is required", services.ErrInvalidInput)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, spec.MaxBytes+1))
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to read upload: %w", err)
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}

	return data, contentType, r.MultipartForm, nil
}
