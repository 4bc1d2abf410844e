package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/taskhub/task-tracker/internal/core/domain"
	"github.com/taskhub/task-tracker/internal/core/ports"
	"github.com/taskhub/task-tracker/internal/infrastructure/db/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.ChangeEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev domain.ChangeEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) types() []domain.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.EventType, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

func (p *recordingPublisher) last(t *testing.T) domain.ChangeEvent {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		t.Fatalf("expected at least one published event")
	}
	return p.events[len(p.events)-1]
}

type stubIdempotency struct {
	keys map[string]string
}

func newStubIdempotency() *stubIdempotency {
	return &stubIdempotency{keys: make(map[string]string)}
}

func (s *stubIdempotency) Lookup(_ context.Context, key string) (string, error) {
	return s.keys[key], nil
}

func (s *stubIdempotency) Bind(_ context.Context, key, taskID string) error {
	if _, ok := s.keys[key]; !ok {
		s.keys[key] = taskID
	}
	return nil
}

// seedUser inserts a user directly into the store, bypassing events.
func seedUser(t *testing.T, store *memory.Store, name, email, role string) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u, err := store.Users.Create(context.Background(), &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func actorOf(u *domain.User) ports.Actor {
	return ports.Actor{ID: u.ID, Role: u.Role}
}

func dueTomorrow() time.Time {
	return time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)
}
