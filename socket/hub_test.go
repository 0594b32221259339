package socket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper function to read messages from a WebSocket connection with a timeout.
func readMessage(t *testing.T, conn *websocket.Conn) WSMessage {
	var msg WSMessage
	conn.SetReadDeadline(time.Now().Add(1 * time.Second))
	_, p, err := conn.ReadMessage()
	require.NoError(t, err, "Failed to read message from WebSocket")
	require.NoError(t, json.Unmarshal(p, &msg), "Failed to unmarshal WSMessage JSON")
	return msg
}

func startHub(t *testing.T) (*Hub, string, context.CancelFunc) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, w, r, r.URL.Query().Get("user_id"))
	}))
	t.Cleanup(server.Close)
	t.Cleanup(cancel)
	return hub, "ws" + strings.TrimPrefix(server.URL, "http"), cancel
}

func TestHubBroadcastsDocumentUpdates(t *testing.T) {
	hub, wsURL, _ := startHub(t)

	conn1, _, err := websocket.DefaultDialer.Dial(wsURL+"/ws?user_id=admin1", nil)
	require.NoError(t, err, "Client 1 failed to connect")
	defer conn1.Close()

	presence := readMessage(t, conn1)
	assert.Equal(t, PresenceUpdateType, presence.Type)

	conn2, _, err := websocket.DefaultDialer.Dial(wsURL+"/ws?user_id=admin2", nil)
	require.NoError(t, err, "Client 2 failed to connect")
	defer conn2.Close()

	_ = readMessage(t, conn2)
	presence = readMessage(t, conn1)
	assert.Equal(t, PresenceUpdateType, presence.Type)
	var statuses []UserStatus
	require.NoError(t, json.Unmarshal(presence.Payload, &statuses))
	require.Len(t, statuses, 2, "Should be two admins connected")
	assert.Equal(t, "admin1", statuses[0].UserID)
	assert.Equal(t, "admin2", statuses[1].UserID)
	assert.Equal(t, 2, hub.ClientCount())

	hub.DocumentUpdated("events")

	for _, conn := range []*websocket.Conn{conn1, conn2} {
		msg := readMessage(t, conn)
		assert.Equal(t, DocumentUpdatedType, msg.Type)
		assert.Equal(t, "events", msg.Resource)
	}
}

func TestHubPresenceOnLeave(t *testing.T) {
	_, wsURL, _ := startHub(t)

	conn1, _, err := websocket.DefaultDialer.Dial(wsURL+"/ws?user_id=admin1", nil)
	require.NoError(t, err)
	defer conn1.Close()
	_ = readMessage(t, conn1)

	conn2, _, err := websocket.DefaultDialer.Dial(wsURL+"/ws?user_id=admin2", nil)
	require.NoError(t, err)
	_ = readMessage(t, conn1)
	conn2.Close()

	presence := readMessage(t, conn1)
	assert.Equal(t, PresenceUpdateType, presence.Type)
	var statuses []UserStatus
	require.NoError(t, json.Unmarshal(presence.Payload, &statuses))
	require.Len(t, statuses, 1)
	assert.Equal(t, "admin1", statuses[0].UserID)
}

func TestHubShutdownClosesClients(t *testing.T) {
	hub, wsURL, cancel := startHub(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"/ws?user_id=admin1", nil)
	require.NoError(t, err)
	defer conn.Close()
	_ = readMessage(t, conn)

	cancel()
	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)

	// Notices after shutdown are dropped rather than blocking the writer.
	hub.DocumentUpdated("news")
}

func TestDocumentUpdatedWithoutRunningHub(t *testing.T) {
	hub := NewHub()
	for i := 0; i < 100; i++ {
		hub.DocumentUpdated("content")
	}
	assert.Len(t, hub.Broadcast, cap(hub.Broadcast))
}
