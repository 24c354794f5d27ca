package services

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Room event types pushed to WebSocket clients
const (
	EventMessageCreated = "message_created"
	EventMessageUpdated = "message_updated"
	EventMessageDeleted = "message_deleted"
	EventPresence       = "presence"
	EventTyping         = "typing"
	EventPong           = "pong"
	EventError          = "error"
)

const wsWriteTimeout = 10 * time.Second

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type      string `json:"type"`
	RoomID    string `json:"room_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	Content   string `json:"content,omitempty"`
	Online    *bool  `json:"online,omitempty"`
	Message   string `json:"message,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// WSClient is one connection subscribed to a room
type WSClient struct {
	RoomID string
	UserID string

	conn    *websocket.Conn
	writeMu sync.Mutex
}

// Send writes a message to this client only
func (c *WSClient) Send(message WSMessage) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// WSHub fans room events out to the WebSocket clients subscribed to each room
type WSHub struct {
	mu    sync.RWMutex
	rooms map[string]map[*WSClient]struct{}
}

// NewWSHub creates a new WebSocket hub
func NewWSHub() *WSHub {
	return &WSHub{
		rooms: make(map[string]map[*WSClient]struct{}),
	}
}

// Register subscribes a connection to a room and announces the user as online
func (h *WSHub) Register(roomID, userID string, conn *websocket.Conn) *WSClient {
	client := &WSClient{RoomID: roomID, UserID: userID, conn: conn}

	h.mu.Lock()
	clients, ok := h.rooms[roomID]
	if !ok {
		clients = make(map[*WSClient]struct{})
		h.rooms[roomID] = clients
	}
	clients[client] = struct{}{}
	h.mu.Unlock()

	log.Info().Str("room_id", roomID).Str("user_id", userID).Msg("WebSocket connection registered")

	online := true
	h.BroadcastRoom(roomID, WSMessage{Type: EventPresence, RoomID: roomID, UserID: userID, Online: &online})
	return client
}

// Unregister removes a client, closes its connection and announces the user as offline
func (h *WSHub) Unregister(client *WSClient) {
	h.mu.Lock()
	clients, ok := h.rooms[client.RoomID]
	if ok {
		if _, exists := clients[client]; !exists {
			ok = false
		}
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.rooms, client.RoomID)
		}
	}
	h.mu.Unlock()

	if !ok {
		return
	}
	client.conn.Close()
	log.Info().Str("room_id", client.RoomID).Str("user_id", client.UserID).Msg("WebSocket connection unregistered")

	if !h.IsOnline(client.RoomID, client.UserID) {
		online := false
		h.BroadcastRoom(client.RoomID, WSMessage{Type: EventPresence, RoomID: client.RoomID, UserID: client.UserID, Online: &online})
	}
}

// BroadcastRoom sends a message to every client in a room. Clients whose
// connection fails are dropped.
func (h *WSHub) BroadcastRoom(roomID string, message WSMessage) {
	h.broadcast(roomID, message, nil)
}

// BroadcastOthers sends a message to every client in the room except from
func (h *WSHub) BroadcastOthers(from *WSClient, message WSMessage) {
	h.broadcast(from.RoomID, message, from)
}

func (h *WSHub) broadcast(roomID string, message WSMessage, skip *WSClient) {
	if message.Timestamp == 0 {
		message.Timestamp = time.Now().UnixMilli()
	}

	h.mu.RLock()
	targets := make([]*WSClient, 0, len(h.rooms[roomID]))
	for c := range h.rooms[roomID] {
		if c != skip {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.Send(message); err != nil {
			log.Error().Err(err).Str("room_id", roomID).Str("user_id", c.UserID).Msg("Failed to deliver room event")
			go h.Unregister(c)
		}
	}
}

// IsOnline checks if a user has at least one connection to a room
func (h *WSHub) IsOnline(roomID, userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[roomID] {
		if c.UserID == userID {
			return true
		}
	}
	return false
}

// OnlineUsers returns the distinct users connected to a room
func (h *WSHub) OnlineUsers(roomID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[string]bool)
	users := make([]string, 0, len(h.rooms[roomID]))
	for c := range h.rooms[roomID] {
		if !seen[c.UserID] {
			seen[c.UserID] = true
			users = append(users, c.UserID)
		}
	}
	return users
}
