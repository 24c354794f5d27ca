package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"birthday-mate-backend/internal/metrics"
	"birthday-mate-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	wsMaxMessageSize = 4 << 10
	wsIdleTimeout    = 90 * time.Second
)

// WebSocketHandler handles room WebSocket connections
type WebSocketHandler struct {
	hub         *services.WSHub
	userService *services.UserService
	roomService *services.RoomService
	upgrader    websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocket handler. Browser connections
// are accepted from allowedOrigins only; "*" allows any origin.
func NewWebSocketHandler(
	hub *services.WSHub,
	userService *services.UserService,
	roomService *services.RoomService,
	allowedOrigins []string,
) *WebSocketHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[strings.TrimRight(o, "/")] = true
	}

	return &WebSocketHandler{
		hub:         hub,
		userService: userService,
		roomService: roomService,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
	}
}

// HandleWebSocket handles GET /ws/rooms/{room_id}?token=
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	roomID := chi.URLParam(r, "room_id")

	token := r.URL.Query().Get("token")
	if token == "" {
		respondError(w, "token required", http.StatusUnauthorized)
		return
	}

	user, err := h.userService.Authenticate(ctx, token)
	if err != nil {
		respondServiceError(w, r, err, "Failed to authenticate")
		return
	}

	if _, err := h.roomService.GetRoom(ctx, user.ID, roomID); err != nil {
		respondServiceError(w, r, err, "Failed to open room")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Str("room_id", roomID).Msg("Failed to upgrade WebSocket connection")
		return
	}

	client := h.hub.Register(roomID, user.ID, conn)
	defer h.hub.Unregister(client)
	defer metrics.WSConnected()()

	if err := client.Send(services.WSMessage{
		Type:   "connected",
		RoomID: roomID,
		UserID: user.ID,
		Data:   map[string]any{"online_users": h.hub.OnlineUsers(roomID)},
	}); err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to send connected message")
		return
	}

	conn.SetReadLimit(wsMaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error().Err(err).Str("user_id", user.ID).Str("room_id", roomID).Msg("WebSocket error")
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))

		var msg services.WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.sendError(client, "Invalid message format")
			continue
		}
		h.handleMessage(client, msg)
	}
}

// handleMessage processes client events. Chat messages are posted over
// HTTP; the socket only carries presence signals.
func (h *WebSocketHandler) handleMessage(client *services.WSClient, msg services.WSMessage) {
	switch msg.Type {
	case "ping":
		if err := client.Send(services.WSMessage{Type: services.EventPong, RoomID: client.RoomID}); err != nil {
			log.Debug().Err(err).Str("user_id", client.UserID).Msg("Failed to send pong")
		}
	case services.EventTyping:
		h.hub.BroadcastOthers(client, services.WSMessage{
			Type:   services.EventTyping,
			RoomID: client.RoomID,
			UserID: client.UserID,
		})
	default:
		h.sendError(client, "Unknown message type")
	}
}

// sendError sends an error event to a single client
func (h *WebSocketHandler) sendError(client *services.WSClient, message string) {
	if err := client.Send(services.WSMessage{Type: services.EventError, Message: message}); err != nil {
		log.Debug().Err(err).Str("user_id", client.UserID).Msg("Failed to send error message")
	}
}
