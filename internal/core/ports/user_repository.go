package ports

import (
	"context"

	"github.com/taskhub/task-tracker/internal/core/domain"
)

// ProfileUpdate carries the fields a user may change on their own account.
// A nil PasswordHash keeps the current password.
type ProfileUpdate struct {
	Name         string
	Email        string
	PasswordHash *string
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	// Create inserts a user; a duplicate email yields domain.ErrEmailExists.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// FindByIDs returns the users that exist among ids, in no particular order.
	FindByIDs(ctx context.Context, ids []string) ([]*domain.User, error)
	List(ctx context.Context, page, limit int) ([]*domain.User, int64, error)
	UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) (*domain.User, error)
	Delete(ctx context.Context, id string) error
	// DeleteAdmin removes an admin account unless no other admin would be
	// left, in which case it yields domain.ErrLastAdmin and nothing changes.
	DeleteAdmin(ctx context.Context, id string) error
	CountByRole(ctx context.Context, role string) (int64, error)
}
