package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/taskhub/task-tracker/internal/core/domain"
	"github.com/taskhub/task-tracker/internal/core/ports"
)

// emit builds and publishes one change event. It runs only after the store
// write committed; encoding failures are logged and swallowed so the request
// still succeeds.
func emit(ctx context.Context, pub ports.Publisher, log zerolog.Logger, t domain.EventType, payload any) {
	ev, err := domain.NewChangeEvent(t, payload)
	if err != nil {
		log.Error().Err(err).Str("event", string(t)).Msg("failed to build change event")
		return
	}
	pub.Publish(ctx, ev)
}
