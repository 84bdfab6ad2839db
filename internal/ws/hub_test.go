package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"calm_games/internal/domain"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHubServer(t *testing.T, hub *Hub, userID int64) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		NewClient(userID, conn, hub).Run()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"ready"}`, string(msg))
	return conn
}

func TestHubDeliversToEveryConnectionOfUser(t *testing.T) {
	hub := NewHub()
	srv := startHubServer(t, hub, 7)

	a := dial(t, srv)
	b := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Connections(7) == 2 }, time.Second, time.Millisecond)

	hub.Publish(domain.WalletEvent{Type: domain.WalletEventChanged, UserID: 7, Delta: 5, Reason: domain.WalletReasonGameReward})

	for _, conn := range []*websocket.Conn{a, b} {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)

		var ev domain.WalletEvent
		require.NoError(t, json.Unmarshal(msg, &ev))
		assert.Equal(t, int64(5), ev.Delta)
		assert.Equal(t, int64(7), ev.UserID)
	}
}

func TestHubIgnoresOtherUsers(t *testing.T) {
	hub := NewHub()
	srv := startHubServer(t, hub, 7)
	dial(t, srv)
	require.Eventually(t, func() bool { return hub.Connections(7) == 1 }, time.Second, time.Millisecond)

	assert.Zero(t, hub.SendToUser(8, []byte(`{}`)))
	assert.Equal(t, 1, hub.SendToUser(7, []byte(`{}`)))
}

func TestHubUnregistersOnDisconnect(t *testing.T) {
	hub := NewHub()
	srv := startHubServer(t, hub, 7)
	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Connections(7) == 1 }, time.Second, time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Connections(7) == 0 }, 2*time.Second, 5*time.Millisecond)
	assert.Zero(t, hub.SendToUser(7, []byte(`{}`)))
}
