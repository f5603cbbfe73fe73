package notifications

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(hub *Hub, userID int) *Client {
	return &Client{
		Hub:    hub,
		Send:   make(chan []byte, 8),
		UserID: userID,
	}
}

func registerAndWait(t *testing.T, hub *Hub, client *Client) {
	t.Helper()
	hub.Register <- client
	// Register обрабатывается горутиной Run, даём ей отработать.
	require.Eventually(t, func() bool {
		return hub.ConnectedUsers() > 0
	}, time.Second, 5*time.Millisecond)
}

func TestPushToUserDeliversToAllConnections(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	first := newTestClient(hub, 42)
	second := newTestClient(hub, 42)
	hub.Register <- first
	hub.Register <- second
	require.Eventually(t, func() bool {
		return hub.ConnectedUsers() == 1
	}, time.Second, 5*time.Millisecond)

	hub.PushToUser(42, Message{Type: "NOTIFICATION_CREATED", Payload: map[string]int{"id": 7}})

	for _, client := range []*Client{first, second} {
		select {
		case raw := <-client.Send:
			var msg Message
			require.NoError(t, json.Unmarshal(raw, &msg))
			assert.Equal(t, "NOTIFICATION_CREATED", msg.Type)
		case <-time.After(time.Second):
			t.Fatal("client did not receive the message")
		}
	}
}

func TestPushToUserIgnoresUnknownUser(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := newTestClient(hub, 1)
	registerAndWait(t, hub, client)

	// Отправка пользователю без подключений не должна ни паниковать,
	// ни доставлять сообщение чужому клиенту.
	hub.PushToUser(999, Message{Type: "NOTIFICATION_CREATED"})

	select {
	case <-client.Send:
		t.Fatal("message delivered to the wrong user")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnregisterRemovesUser(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := newTestClient(hub, 1)
	registerAndWait(t, hub, client)

	hub.Unregister <- client
	require.Eventually(t, func() bool {
		return hub.ConnectedUsers() == 0
	}, time.Second, 5*time.Millisecond)

	client.Mu.Lock()
	closed := client.IsClosed
	client.Mu.Unlock()
	assert.True(t, closed)
}

func TestPushSkipsClientWithFullBuffer(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := &Client{
		Hub:    hub,
		Send:   make(chan []byte, 1),
		UserID: 3,
	}
	registerAndWait(t, hub, client)

	hub.PushToUser(3, Message{Type: "NOTIFICATION_CREATED"})
	hub.PushToUser(3, Message{Type: "NOTIFICATION_CREATED"})

	// Второе сообщение отброшено, клиент догонит его по REST.
	assert.Len(t, client.Send, 1)
}
