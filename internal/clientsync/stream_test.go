package clientsync

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhub/task-tracker/internal/core/domain"
)

type stateLog struct {
	mu     sync.Mutex
	states []State
}

func (l *stateLog) record(s State) {
	l.mu.Lock()
	l.states = append(l.states, s)
	l.mu.Unlock()
}

func (l *stateLog) snapshot() []State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]State(nil), l.states...)
}

func TestStreamURL(t *testing.T) {
	got, err := streamURL("http://localhost:8080/")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8080/ws", got)

	got, err = streamURL("https://api.example.com/v1")
	require.NoError(t, err)
	assert.Equal(t, "wss://api.example.com/v1/ws", got)

	_, err = streamURL("ftp://example.com")
	assert.Error(t, err)
}

func TestStream_AppliesEvents(t *testing.T) {
	var gotAuth string
	var authMu sync.Mutex
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authMu.Lock()
		gotAuth = r.Header.Get("Authorization")
		authMu.Unlock()
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		ev, _ := domain.NewChangeEvent(domain.EventTaskCreated, task("t1", "u1", domain.StatusPending))
		_ = conn.WriteJSON(ev)
		// Hold the connection open until the client leaves.
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	router := NewRouter()
	view := NewListView(TaskID, nil)
	router.AttachTasks(view)

	states := &stateLog{}
	s, err := NewStream(srv.URL, "tok", router, zerolog.Nop(), WithStateHook(states.record))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return view.Len() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, StateConnected, s.State())
	authMu.Lock()
	assert.Equal(t, "Bearer tok", gotAuth)
	authMu.Unlock()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, StateDisconnected, s.State())
	assert.Equal(t, []State{StateConnecting, StateConnected, StateDisconnected}, states.snapshot())
}

func TestStream_GivesUpAfterBoundedAttempts(t *testing.T) {
	var mu sync.Mutex
	dials := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		dials++
		mu.Unlock()
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s, err := NewStream(srv.URL, "", NewRouter(), zerolog.Nop(), WithRetry(3, 5*time.Millisecond))
	require.NoError(t, err)

	err = s.Run(context.Background())
	assert.True(t, errors.Is(err, ErrRetriesExhausted), "got %v", err)
	assert.Equal(t, StateDisconnected, s.State())

	mu.Lock()
	assert.Equal(t, 3, dials)
	mu.Unlock()
}

func TestStream_RejectedTokenIsNotRetried(t *testing.T) {
	var mu sync.Mutex
	dials := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		dials++
		mu.Unlock()
		http.Error(w, `{"error":"invalid or expired token"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	s, err := NewStream(srv.URL, "stale", NewRouter(), zerolog.Nop(), WithRetry(5, 5*time.Millisecond))
	require.NoError(t, err)

	err = s.Run(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.False(t, errors.Is(err, ErrRetriesExhausted), "got %v", err)
	assert.Equal(t, StateDisconnected, s.State())

	mu.Lock()
	assert.Equal(t, 1, dials)
	mu.Unlock()
}

func TestStream_ReconnectsAfterDrop(t *testing.T) {
	var mu sync.Mutex
	conns := 0
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		mu.Lock()
		conns++
		n := conns
		mu.Unlock()
		ev, _ := domain.NewChangeEvent(domain.EventTaskCreated, task("t"+string(rune('0'+n)), "u1", domain.StatusPending))
		_ = conn.WriteJSON(ev)
		if n == 1 {
			_ = conn.Close()
			return
		}
		defer conn.Close()
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	router := NewRouter()
	view := NewListView(TaskID, nil)
	router.AttachTasks(view)
	s, err := NewStream(srv.URL, "", router, zerolog.Nop(), WithRetry(5, 10*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	require.Eventually(t, func() bool { return view.Len() == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.ElementsMatch(t, []string{"t1", "t2"}, ids(view.Items()))
}
