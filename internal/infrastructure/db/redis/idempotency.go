package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const idempotencyTTL = 24 * time.Hour

// IdempotencyStore binds client-supplied Idempotency-Keys to the task they
// created. Key format: idem:task:<scoped key>
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIdempotencyStore creates an IdempotencyStore wrapping the given Redis
// client. Bindings expire after 24 hours.
func NewIdempotencyStore(client *redis.Client) *IdempotencyStore {
	return &IdempotencyStore{client: client, ttl: idempotencyTTL}
}

// Lookup returns the task id bound to key, or "" when the key is unseen or
// expired.
func (s *IdempotencyStore) Lookup(ctx context.Context, key string) (string, error) {
	id, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("idempotency lookup: %w", err)
	}
	return id, nil
}

// Bind records taskID under key. The first binding wins; a concurrent second
// create with the same key keeps the earlier task id.
func (s *IdempotencyStore) Bind(ctx context.Context, key, taskID string) error {
	if err := s.client.SetNX(ctx, s.key(key), taskID, s.ttl).Err(); err != nil {
		return fmt.Errorf("idempotency bind: %w", err)
	}
	return nil
}

func (s *IdempotencyStore) key(key string) string {
	return "idem:task:" + key
}
