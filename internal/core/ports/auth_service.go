package ports

import (
	"context"

	"github.com/taskhub/task-tracker/internal/core/domain"
)

type AuthService interface {
	// Register creates a regular (non-admin) account.
	Register(ctx context.Context, name, email, password string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
}
