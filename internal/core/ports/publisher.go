package ports

import (
	"context"

	"github.com/taskhub/task-tracker/internal/core/domain"
)

// Publisher delivers change events to every connected client. Delivery is
// best-effort and at-most-once: Publish never blocks on a slow receiver and
// has no way to report failure to the caller.
type Publisher interface {
	Publish(ctx context.Context, event domain.ChangeEvent)
}

// IdempotencyStore remembers which task a client-supplied Idempotency-Key
// produced.
type IdempotencyStore interface {
	// Lookup returns the task id bound to key, or "" if the key is unseen.
	Lookup(ctx context.Context, key string) (string, error)
	// Bind records taskID under key unless the key is already bound.
	Bind(ctx context.Context, key, taskID string) error
}
