package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhub/task-tracker/internal/core/domain"
)

func newStreamServer(t *testing.T, hub *Hub, origins ...string) *httptest.Server {
	t.Helper()
	ep := NewEndpoint(hub, origins, zerolog.Nop())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = ep.Serve(w, r, "u1")
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func waitForSubscribers(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.Len() == n }, time.Second, 5*time.Millisecond)
}

func TestEndpoint_StreamsEventsAsJSON(t *testing.T) {
	hub := NewHub(8, zerolog.Nop())
	srv := newStreamServer(t, hub)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.NoError(t, err)
	defer conn.Close()
	waitForSubscribers(t, hub, 1)

	ev, err := domain.NewChangeEvent(domain.EventUserDeleted, domain.DeletedRef{ID: "u9"})
	require.NoError(t, err)
	hub.Publish(context.Background(), ev)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got domain.ChangeEvent
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, domain.EventUserDeleted, got.Type)
	assert.Equal(t, ev.ID, got.ID)
	assert.JSONEq(t, `{"_id":"u9"}`, string(got.Data))
}

func TestEndpoint_ClientDisconnectUnsubscribes(t *testing.T) {
	hub := NewHub(8, zerolog.Nop())
	srv := newStreamServer(t, hub)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.NoError(t, err)
	waitForSubscribers(t, hub, 1)

	require.NoError(t, conn.Close())
	waitForSubscribers(t, hub, 0)
}

func TestEndpoint_HubCloseEndsStream(t *testing.T) {
	hub := NewHub(8, zerolog.Nop())
	srv := newStreamServer(t, hub)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.NoError(t, err)
	defer conn.Close()
	waitForSubscribers(t, hub, 1)

	hub.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "expected going-away close, got %v", err)
}

func TestEndpoint_RejectsForeignOrigin(t *testing.T) {
	hub := NewHub(8, zerolog.Nop())
	srv := newStreamServer(t, hub, "https://app.example.com")

	header := http.Header{"Origin": []string{"https://evil.example.com"}}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header.Set("Origin", "https://app.example.com")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), header)
	require.NoError(t, err)
	_ = conn.Close()
}
