// Package realtime is the process-wide broadcast channel: an in-memory
// subscriber hub, an optional Redis relay for multi-instance fan-out, and the
// WebSocket endpoint clients subscribe through.
package realtime

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/taskhub/task-tracker/internal/api/metrics"
	"github.com/taskhub/task-tracker/internal/core/domain"
)

const defaultSendBuffer = 64

// Hub fans change events out to every subscribed connection. Delivery is
// best-effort: a subscriber whose buffer is full misses the event.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]chan domain.ChangeEvent
	buffer int
	closed bool
	log    zerolog.Logger
}

// NewHub creates a Hub whose subscribers each get a buffer of sendBuffer
// events.
func NewHub(sendBuffer int, log zerolog.Logger) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = defaultSendBuffer
	}
	return &Hub{
		subs:   make(map[string]chan domain.ChangeEvent),
		buffer: sendBuffer,
		log:    log.With().Str("component", "hub").Logger(),
	}
}

// Subscribe registers connection id and returns its event channel plus a
// cancel func equivalent to Unsubscribe(id). Only events published after
// Subscribe returns are delivered. Re-subscribing an id replaces (and closes)
// the previous channel. On a closed hub the returned channel is already
// closed.
func (h *Hub) Subscribe(id string) (<-chan domain.ChangeEvent, func()) {
	ch := make(chan domain.ChangeEvent, h.buffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	if prev, ok := h.subs[id]; ok {
		close(prev)
	} else {
		metrics.ConnectedClients.Inc()
	}
	h.subs[id] = ch
	h.mu.Unlock()

	h.log.Debug().Str("conn_id", id).Msg("subscribed")

	var once sync.Once
	return ch, func() {
		once.Do(func() { h.unsubscribe(id, ch) })
	}
}

// Unsubscribe removes connection id and closes its channel. Unknown ids are
// ignored.
func (h *Hub) Unsubscribe(id string) {
	h.unsubscribe(id, nil)
}

// unsubscribe removes id; when ch is non-nil it only removes that exact
// registration, so a stale cancel cannot drop a newer subscription.
func (h *Hub) unsubscribe(id string, ch chan domain.ChangeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	cur, ok := h.subs[id]
	if !ok || (ch != nil && cur != ch) {
		return
	}
	delete(h.subs, id)
	close(cur)
	metrics.ConnectedClients.Dec()
	h.log.Debug().Str("conn_id", id).Msg("unsubscribed")
}

// Publish implements ports.Publisher for a single-instance deployment.
func (h *Hub) Publish(_ context.Context, ev domain.ChangeEvent) {
	metrics.EventsPublishedTotal.WithLabelValues(string(ev.Type)).Inc()
	h.Broadcast(ev)
}

// Broadcast delivers ev to every current subscriber without blocking. It is a
// no-op once the hub is closed.
func (h *Hub) Broadcast(ev domain.ChangeEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return
	}
	for id, ch := range h.subs {
		select {
		case ch <- ev:
			metrics.DeliveriesTotal.WithLabelValues("delivered").Inc()
		default:
			metrics.DeliveriesTotal.WithLabelValues("dropped").Inc()
			h.log.Debug().Str("conn_id", id).Str("event", string(ev.Type)).Msg("subscriber buffer full, event dropped")
		}
	}
}

// Len returns the number of live subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close disconnects every subscriber. Later publishes are no-ops.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		close(ch)
		delete(h.subs, id)
		metrics.ConnectedClients.Dec()
	}
}
