package ports

import (
	"context"

	"github.com/taskhub/task-tracker/internal/core/domain"
)

// CreateUserInput carries the data for an admin-created account.
type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	Role     string // empty = user
}

// UpdateProfileInput carries a user's edits to their own account. An empty
// Password keeps the current one.
type UpdateProfileInput struct {
	Name     string
	Email    string
	Password string
}

// UserService defines use-case operations for users.
type UserService interface {
	ListUsers(ctx context.Context, page, limit int) (*Page[domain.User], error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
	CreateUser(ctx context.Context, input CreateUserInput) (*domain.User, error)
	UpdateProfile(ctx context.Context, actor Actor, input UpdateProfileInput) (*domain.User, error)
	// DeleteUser rejects deleting the caller's own account, the last admin,
	// and users still referenced by tasks.
	DeleteUser(ctx context.Context, actor Actor, id string) error
}
