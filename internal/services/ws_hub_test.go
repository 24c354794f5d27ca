package services

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHubServer(t *testing.T, hub *WSHub) (string, <-chan *WSClient) {
	t.Helper()

	registered := make(chan *WSClient, 4)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		registered <- hub.Register("room-1", r.URL.Query().Get("user"), conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http"), registered
}

func dialHub(t *testing.T, url, user string, registered <-chan *WSClient) (*websocket.Conn, *WSClient) {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(url+"?user="+user, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	select {
	case client := <-registered:
		return conn, client
	case <-time.After(2 * time.Second):
		t.Fatal("client was not registered")
		return nil, nil
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestWSHubPresenceAndBroadcast(t *testing.T) {
	hub := NewWSHub()
	url, registered := newHubServer(t, hub)

	connA, _ := dialHub(t, url, "u1", registered)
	self := readEvent(t, connA)
	assert.Equal(t, EventPresence, self.Type)
	assert.Equal(t, "u1", self.UserID)
	require.NotNil(t, self.Online)
	assert.True(t, *self.Online)

	connB, clientB := dialHub(t, url, "u2", registered)
	joined := readEvent(t, connA)
	assert.Equal(t, EventPresence, joined.Type)
	assert.Equal(t, "u2", joined.UserID)
	assert.Equal(t, "u2", readEvent(t, connB).UserID)

	assert.ElementsMatch(t, []string{"u1", "u2"}, hub.OnlineUsers("room-1"))
	assert.True(t, hub.IsOnline("room-1", "u2"))
	assert.Empty(t, hub.OnlineUsers("room-2"))

	hub.BroadcastOthers(clientB, WSMessage{Type: EventTyping, RoomID: "room-1", UserID: "u2"})
	typing := readEvent(t, connA)
	assert.Equal(t, EventTyping, typing.Type)
	assert.NotZero(t, typing.Timestamp)

	hub.BroadcastRoom("room-1", WSMessage{Type: EventMessageCreated, RoomID: "room-1", Content: "hi"})
	assert.Equal(t, EventMessageCreated, readEvent(t, connA).Type)
	// the sender never saw its own typing event
	created := readEvent(t, connB)
	assert.Equal(t, EventMessageCreated, created.Type)
	assert.Equal(t, "hi", created.Content)

	hub.Unregister(clientB)
	left := readEvent(t, connA)
	assert.Equal(t, EventPresence, left.Type)
	assert.Equal(t, "u2", left.UserID)
	require.NotNil(t, left.Online)
	assert.False(t, *left.Online)
	assert.False(t, hub.IsOnline("room-1", "u2"))

	// a second unregister is a no-op
	hub.Unregister(clientB)
	assert.Equal(t, []string{"u1"}, hub.OnlineUsers("room-1"))
}
