package realtime

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/taskhub/task-tracker/internal/api/metrics"
	"github.com/taskhub/task-tracker/internal/core/domain"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxReadMsg = 512
)

// Endpoint upgrades HTTP requests to WebSocket event streams backed by a Hub.
type Endpoint struct {
	hub      *Hub
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// NewEndpoint builds an Endpoint. allowedOrigins lists the browser origins
// accepted besides same-host; "*" accepts any origin. Requests without an
// Origin header (non-browser clients) are always accepted.
func NewEndpoint(hub *Hub, allowedOrigins []string, log zerolog.Logger) *Endpoint {
	allowAll := false
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			allowAll = true
		}
		if o != "" {
			allowed[o] = struct{}{}
		}
	}

	return &Endpoint{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4 * 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" || allowAll {
					return true
				}
				if _, ok := allowed[strings.TrimRight(origin, "/")]; ok {
					return true
				}
				u, err := url.Parse(origin)
				return err == nil && u.Host == r.Host
			},
		},
		log: log.With().Str("component", "ws").Logger(),
	}
}

// Serve upgrades the request and streams events until the client goes away
// or the hub closes. It blocks for the lifetime of the connection. On upgrade
// failure the upgrader has already replied with an HTTP error.
func (e *Endpoint) Serve(w http.ResponseWriter, r *http.Request, userID string) error {
	conn, err := e.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	connID := uuid.NewString()
	events, cancel := e.hub.Subscribe(connID)
	log := e.log.With().Str("conn_id", connID).Str("user_id", userID).Logger()
	log.Info().Msg("stream connected")

	done := make(chan struct{})
	go func() {
		defer close(done)
		writePump(conn, events, log)
	}()

	readPump(conn)

	// Unsubscribing closes the events channel, which stops the writer.
	cancel()
	<-done
	_ = conn.Close()
	log.Info().Msg("stream disconnected")
	return nil
}

// writePump is the only goroutine writing to conn.
func writePump(conn *websocket.Conn, events <-chan domain.ChangeEvent, log zerolog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				metrics.BroadcastErrorsTotal.WithLabelValues("ws_write").Inc()
				log.Debug().Err(err).Msg("write failed")
				// Unblock the reader so Serve can return.
				_ = conn.Close()
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = conn.Close()
				return
			}
		}
	}
}

// readPump discards inbound frames; it exists to process control frames and
// notice when the peer disconnects.
func readPump(conn *websocket.Conn) {
	conn.SetReadLimit(maxReadMsg)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}
