package clientsync

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
)

// State is the connection state of a Stream.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
)

const (
	defaultAttempts = 5
	defaultBackoff  = time.Second
	handshakeWait   = 10 * time.Second
)

// ErrRetriesExhausted is returned by Run when every reconnection attempt
// failed. The stream stays disconnected; callers decide whether to start over.
var ErrRetriesExhausted = errors.New("stream: reconnection attempts exhausted")

// ErrUnauthorized is returned by Run when the server rejects the token during
// the handshake. It is never retried.
var ErrUnauthorized = errors.New("stream: token rejected by server")

// Stream keeps a WebSocket subscription to the server's change events and
// feeds every frame into a Router. Events missed while disconnected are not
// replayed.
type Stream struct {
	url      string
	token    string
	router   *Router
	log      zerolog.Logger
	dialer   *websocket.Dialer
	attempts uint64
	backoff  time.Duration

	mu      sync.RWMutex
	state   State
	onState func(State)
}

type StreamOption func(*Stream)

// WithRetry overrides the attempt count and the fixed delay between attempts.
func WithRetry(attempts uint64, backoff time.Duration) StreamOption {
	return func(s *Stream) {
		if attempts > 0 {
			s.attempts = attempts
		}
		if backoff > 0 {
			s.backoff = backoff
		}
	}
}

// WithStateHook registers fn to observe every state transition.
func WithStateHook(fn func(State)) StreamOption {
	return func(s *Stream) { s.onState = fn }
}

// NewStream targets the /ws endpoint of the API at baseURL
// (http or https scheme).
func NewStream(baseURL, token string, router *Router, log zerolog.Logger, opts ...StreamOption) (*Stream, error) {
	wsURL, err := streamURL(baseURL)
	if err != nil {
		return nil, err
	}
	s := &Stream{
		url:      wsURL,
		token:    token,
		router:   router,
		log:      log.With().Str("component", "stream").Logger(),
		dialer:   &websocket.Dialer{HandshakeTimeout: handshakeWait, Proxy: http.ProxyFromEnvironment},
		attempts: defaultAttempts,
		backoff:  defaultBackoff,
		state:    StateDisconnected,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func streamURL(base string) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}
	u.Path += "/ws"
	return u.String(), nil
}

func (s *Stream) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Stream) setState(st State) {
	s.mu.Lock()
	if s.state == st {
		s.mu.Unlock()
		return
	}
	s.state = st
	fn := s.onState
	s.mu.Unlock()
	s.log.Debug().Str("state", string(st)).Msg("stream state")
	if fn != nil {
		fn(st)
	}
}

// Run connects and applies events until ctx is cancelled (returns nil), the
// token is rejected (returns ErrUnauthorized) or reconnection gives up
// (returns ErrRetriesExhausted).
func (s *Stream) Run(ctx context.Context) error {
	defer s.setState(StateDisconnected)
	for {
		conn, err := s.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, ErrUnauthorized) {
				s.log.Warn().Err(err).Msg("event stream refused the token")
				return err
			}
			s.log.Warn().Err(err).Uint64("attempts", s.attempts).Msg("giving up on event stream")
			return fmt.Errorf("%w: %v", ErrRetriesExhausted, err)
		}

		err = s.consume(ctx, conn)
		if ctx.Err() != nil {
			return nil
		}
		s.log.Warn().Err(err).Msg("event stream dropped, reconnecting")
	}
}

func (s *Stream) connect(ctx context.Context) (*websocket.Conn, error) {
	s.setState(StateConnecting)

	header := http.Header{}
	if s.token != "" {
		header.Set("Authorization", "Bearer "+s.token)
	}

	var conn *websocket.Conn
	backoff := retry.WithMaxRetries(s.attempts-1, retry.NewConstant(s.backoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		c, resp, err := s.dialer.DialContext(ctx, s.url, header)
		if err != nil {
			if resp != nil && resp.StatusCode == http.StatusUnauthorized {
				return fmt.Errorf("dial %s: %w", s.url, ErrUnauthorized)
			}
			s.log.Debug().Err(err).Msg("dial failed")
			return retry.RetryableError(err)
		}
		conn = c
		return nil
	})
	if err != nil {
		s.setState(StateDisconnected)
		return nil, err
	}
	s.setState(StateConnected)
	return conn, nil
}

// consume reads frames until the connection fails or ctx ends.
func (s *Stream) consume(ctx context.Context, conn *websocket.Conn) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()
	defer conn.Close()

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if err := s.router.ApplyRaw(frame); err != nil {
			s.log.Warn().Err(err).Msg("skipping malformed event")
		}
	}
}
