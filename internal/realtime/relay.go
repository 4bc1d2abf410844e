package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/taskhub/task-tracker/internal/api/metrics"
	"github.com/taskhub/task-tracker/internal/core/domain"
)

const (
	DefaultChannel = "tasktracker:events"
	publishTimeout = 2 * time.Second
	// fallbackTTL bounds how long an event delivered locally after a failed
	// publish is remembered, in case Redis delivers it after all.
	fallbackTTL = time.Minute
)

// Relay fans events out across server instances through a Redis pub/sub
// channel. Every instance runs Relay.Run, which feeds received events into its
// local Hub, so a publish reaches clients connected to any instance.
type Relay struct {
	client  *redis.Client
	channel string
	hub     *Hub
	log     zerolog.Logger

	mu       sync.Mutex
	fallback map[string]time.Time
}

func NewRelay(client *redis.Client, channel string, hub *Hub, log zerolog.Logger) *Relay {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Relay{
		client:  client,
		channel: channel,
		hub:      hub,
		log:      log.With().Str("component", "relay").Logger(),
		fallback: make(map[string]time.Time),
	}
}

// Publish implements ports.Publisher. It is detached from the request
// context so a client hanging up after the write still gets the event out.
// When the publish fails the event is delivered to local subscribers only.
// A failed publish may still have reached Redis (a timeout after the write),
// so the event id is remembered and Run drops the late copy instead of
// delivering it twice.
func (r *Relay) Publish(ctx context.Context, ev domain.ChangeEvent) {
	metrics.EventsPublishedTotal.WithLabelValues(string(ev.Type)).Inc()

	payload, err := json.Marshal(ev)
	if err != nil {
		metrics.BroadcastErrorsTotal.WithLabelValues("relay_encode").Inc()
		r.log.Error().Err(err).Str("event", string(ev.Type)).Msg("failed to encode event")
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := r.client.Publish(pubCtx, r.channel, payload).Err(); err != nil {
		metrics.BroadcastErrorsTotal.WithLabelValues("relay_publish").Inc()
		r.log.Warn().Err(err).Str("event", string(ev.Type)).Msg("relay publish failed, delivering locally")
		r.rememberFallback(ev.ID)
		r.hub.Broadcast(ev)
	}
}

// Run subscribes to the relay channel and forwards every event to the local
// hub until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("relay subscribe: %w", err)
	}
	r.log.Info().Str("channel", r.channel).Msg("relay subscribed")

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			r.deliver(msg.Payload)
		}
	}
}

// deliver hands one relayed message to the local hub unless it was already
// delivered locally by a failed Publish.
func (r *Relay) deliver(payload string) {
	var ev domain.ChangeEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil || !ev.Type.Known() {
		metrics.BroadcastErrorsTotal.WithLabelValues("relay_decode").Inc()
		r.log.Warn().Err(err).Str("payload", payload).Msg("dropping malformed relay message")
		return
	}
	if r.takeFallback(ev.ID) {
		r.log.Debug().Str("event_id", ev.ID).Msg("already delivered locally, skipping relayed copy")
		return
	}
	r.hub.Broadcast(ev)
}

func (r *Relay) rememberFallback(id string) {
	now := time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, at := range r.fallback {
		if now.Sub(at) > fallbackTTL {
			delete(r.fallback, k)
		}
	}
	r.fallback[id] = now
}

func (r *Relay) takeFallback(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	at, ok := r.fallback[id]
	if !ok {
		return false
	}
	delete(r.fallback, id)
	return time.Since(at) <= fallbackTTL
}
