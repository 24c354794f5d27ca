package handlers

import (
	"net/http"

	"birthday-mate-backend/internal/metrics"
	"birthday-mate-backend/internal/models"
	"birthday-mate-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// RoomHandler handles tribe rooms, personal rooms and room messages
type RoomHandler struct {
	roomService *services.RoomService
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(roomService *services.RoomService) *RoomHandler {
	return &RoomHandler{
		roomService: roomService,
	}
}

// TribeInfo handles GET /api/tribes/{tribe_id}
func (h *RoomHandler) TribeInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.roomService.GetTribeInfo(r.Context(), chi.URLParam(r, "tribe_id"))
	if err != nil {
		respondServiceError(w, r, err, "Failed to get tribe info")
		return
	}
	respondJSON(w, http.StatusOK, info)
}

// TribeRoom handles GET /api/tribes/{tribe_id}/room
func (h *RoomHandler) TribeRoom(w http.ResponseWriter, r *http.Request) {
	room, ok := h.tribeRoom(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, room)
}

// TribeMessages handles GET /api/tribes/{tribe_id}/room/{room_id}/messages
func (h *RoomHandler) TribeMessages(w http.ResponseWriter, r *http.Request) {
	room, ok := h.tribeMessageRoom(w, r)
	if !ok {
		return
	}
	h.listMessages(w, r, room.ID)
}

// SendTribeMessage handles POST /api/tribes/{tribe_id}/room/{room_id}/messages
func (h *RoomHandler) SendTribeMessage(w http.ResponseWriter, r *http.Request) {
	room, ok := h.tribeMessageRoom(w, r)
	if !ok {
		return
	}
	h.sendMessage(w, r, room.ID, "tribe")
}

// EditTribeMessage handles PUT /api/tribes/{tribe_id}/room/{room_id}/messages/{message_id}
func (h *RoomHandler) EditTribeMessage(w http.ResponseWriter, r *http.Request) {
	room, ok := h.tribeMessageRoom(w, r)
	if !ok {
		return
	}
	h.editMessage(w, r, room.ID)
}

// DeleteTribeMessage handles DELETE /api/tribes/{tribe_id}/room/{room_id}/messages/{message_id}
func (h *RoomHandler) DeleteTribeMessage(w http.ResponseWriter, r *http.Request) {
	room, ok := h.tribeMessageRoom(w, r)
	if !ok {
		return
	}
	h.deleteMessage(w, r, room.ID)
}

type createRoomRequest struct {
	Name string `json:"name"`
}

// CreatePersonalRoom handles POST /api/rooms/personal. Today's room
// is returned with 200 when it already exists.
func (h *RoomHandler) CreatePersonalRoom(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	var req createRoomRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}

	room, created, err := h.roomService.CreatePersonalRoom(r.Context(), user, req.Name)
	if err != nil {
		respondServiceError(w, r, err, "Failed to create room")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		log.Info().
			Str("user_id", user.ID).
			Str("room_id", room.ID).
			Msg("Personal room created")
	}
	respondJSON(w, status, room)
}

// JoinPersonalRoom handles POST /api/rooms/{room_id}/join?invite_code=
func (h *RoomHandler) JoinPersonalRoom(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	result, err := h.roomService.JoinPersonalRoom(r.Context(), user, chi.URLParam(r, "room_id"), r.URL.Query().Get("invite_code"))
	if err != nil {
		respondServiceError(w, r, err, "Failed to join room")
		return
	}

	log.Info().
		Str("user_id", user.ID).
		Str("room_id", result.Room.ID).
		Bool("birthday_mate", result.IsBirthdayMate).
		Msg("Joined personal room")

	respondJSON(w, http.StatusOK, result)
}

// Messages handles GET /api/rooms/{room_id}/messages
func (h *RoomHandler) Messages(w http.ResponseWriter, r *http.Request) {
	h.listMessages(w, r, chi.URLParam(r, "room_id"))
}

// SendMessage handles POST /api/rooms/{room_id}/messages
func (h *RoomHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	h.sendMessage(w, r, chi.URLParam(r, "room_id"), "room")
}

// EditMessage handles PUT /api/rooms/{room_id}/messages/{message_id}
func (h *RoomHandler) EditMessage(w http.ResponseWriter, r *http.Request) {
	h.editMessage(w, r, chi.URLParam(r, "room_id"))
}

// DeleteMessage handles DELETE /api/rooms/{room_id}/messages/{message_id}
func (h *RoomHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	h.deleteMessage(w, r, chi.URLParam(r, "room_id"))
}

// Participants handles GET /api/rooms/{room_id}/participants
func (h *RoomHandler) Participants(w http.ResponseWriter, r *http.Request) {
	participants, err := h.roomService.Participants(r.Context(), currentUser(r), chi.URLParam(r, "room_id"))
	if err != nil {
		respondServiceError(w, r, err, "Failed to list participants")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"participants": participants,
		"count":        len(participants),
	})
}

func (h *RoomHandler) tribeRoom(w http.ResponseWriter, r *http.Request) (*models.Room, bool) {
	room, err := h.roomService.TribeRoom(r.Context(), currentUser(r), chi.URLParam(r, "tribe_id"))
	if err != nil {
		respondServiceError(w, r, err, "Failed to get tribe room")
		return nil, false
	}
	return room, true
}

// tribeMessageRoom resolves the tribe room and checks it is the room named in the path
func (h *RoomHandler) tribeMessageRoom(w http.ResponseWriter, r *http.Request) (*models.Room, bool) {
	room, ok := h.tribeRoom(w, r)
	if !ok {
		return nil, false
	}
	if room.ID != chi.URLParam(r, "room_id") {
		respondServiceError(w, r, services.ErrRoomNotFound, "Failed to get tribe room")
		return nil, false
	}
	return room, true
}

type messageRequest struct {
	Content string `json:"content"`
}

func (h *RoomHandler) listMessages(w http.ResponseWriter, r *http.Request, roomID string) {
	msgs, err := h.roomService.ListMessages(r.Context(), currentUser(r), roomID, queryInt(r, "limit", 0))
	if err != nil {
		respondServiceError(w, r, err, "Failed to list messages")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"room_id":  roomID,
		"messages": msgs,
	})
}

func (h *RoomHandler) sendMessage(w http.ResponseWriter, r *http.Request, roomID, route string) {
	var req messageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	msg, err := h.roomService.SendMessage(r.Context(), currentUser(r), roomID, req.Content)
	if err != nil {
		respondServiceError(w, r, err, "Failed to send message")
		return
	}

	metrics.RecordRoomMessage(route)
	respondJSON(w, http.StatusCreated, msg)
}

func (h *RoomHandler) editMessage(w http.ResponseWriter, r *http.Request, roomID string) {
	var req messageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	msg, err := h.roomService.EditMessage(r.Context(), currentUser(r), roomID, chi.URLParam(r, "message_id"), req.Content)
	if err != nil {
		respondServiceError(w, r, err, "Failed to edit message")
		return
	}
	respondJSON(w, http.StatusOK, msg)
}

func (h *RoomHandler) deleteMessage(w http.ResponseWriter, r *http.Request, roomID string) {
	if err := h.roomService.DeleteMessage(r.Context(), currentUser(r), roomID, chi.URLParam(r, "message_id")); err != nil {
		respondServiceError(w, r, err, "Failed to delete message")
		return
	}
	respondJSON(w, http.StatusOK, MessageResponse{Message: "Message deleted"})
}
