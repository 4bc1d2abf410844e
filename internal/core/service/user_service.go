package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskhub/task-tracker/internal/core/domain"
	"github.com/taskhub/task-tracker/internal/core/ports"
)

const minPasswordLen = 6

type UserService struct {
	users  ports.UserRepository
	tasks  ports.TaskRepository
	pub    ports.Publisher
	logger zerolog.Logger
}

func NewUserService(users ports.UserRepository, tasks ports.TaskRepository, pub ports.Publisher, logger zerolog.Logger) *UserService {
	return &UserService{users: users, tasks: tasks, pub: pub, logger: logger}
}

func (s *UserService) ListUsers(ctx context.Context, page, limit int) (*ports.Page[domain.User], error) {
	page, limit = normalizePage(page, limit, defaultUserLimit)

	users, total, err := s.users.List(ctx, page, limit)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	items := make([]domain.User, 0, len(users))
	for _, u := range users {
		items = append(items, *u)
	}
	return &ports.Page[domain.User]{
		Items:       items,
		CurrentPage: page,
		TotalPages:  totalPages(total, limit),
		TotalItems:  total,
	}, nil
}

func (s *UserService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.users.FindByID(ctx, id)
}

// CreateUser creates an account with the requested role and publishes
// userCreated.
func (s *UserService) CreateUser(ctx context.Context, input ports.CreateUserInput) (*domain.User, error) {
	role := input.Role
	if role == "" {
		role = domain.RoleUser
	}
	if !domain.ValidRole(role) {
		return nil, fmt.Errorf("%w: role must be one of user, admin", domain.ErrValidation)
	}

	name, email, err := validateIdentity(input.Name, input.Email)
	if err != nil {
		return nil, err
	}
	if len(input.Password) < minPasswordLen {
		return nil, fmt.Errorf("%w: password must be at least %d characters", domain.ErrValidation, minPasswordLen)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	created, err := s.users.Create(ctx, &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", created.ID).Str("role", created.Role).Msg("user created")
	emit(ctx, s.pub, s.logger, domain.EventUserCreated, created)
	return created, nil
}

// UpdateProfile edits the actor's own name, email and optionally password.
func (s *UserService) UpdateProfile(ctx context.Context, actor ports.Actor, input ports.UpdateProfileInput) (*domain.User, error) {
	name, email, err := validateIdentity(input.Name, input.Email)
	if err != nil {
		return nil, err
	}

	upd := ports.ProfileUpdate{Name: name, Email: email}
	if input.Password != "" {
		if len(input.Password) < minPasswordLen {
			return nil, fmt.Errorf("%w: password must be at least %d characters", domain.ErrValidation, minPasswordLen)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		h := string(hash)
		upd.PasswordHash = &h
	}

	updated, err := s.users.UpdateProfile(ctx, actor.ID, upd)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", updated.ID).Msg("profile updated")
	emit(ctx, s.pub, s.logger, domain.EventUserUpdated, updated)
	return updated, nil
}

// DeleteUser removes a user account. The checks run in order: existence,
// self-deletion, last remaining admin, tasks still referencing the user. The
// last-admin rule is enforced again by the store when the admin is removed,
// so concurrent deletes cannot leave the system without one.
func (s *UserService) DeleteUser(ctx context.Context, actor ports.Actor, id string) error {
	target, err := s.users.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if target.ID == actor.ID {
		return domain.ErrSelfDelete
	}
	if target.IsAdmin() {
		admins, err := s.users.CountByRole(ctx, domain.RoleAdmin)
		if err != nil {
			return fmt.Errorf("count admins: %w", err)
		}
		if admins <= 1 {
			return domain.ErrLastAdmin
		}
	}
	refs, err := s.tasks.CountReferencing(ctx, id)
	if err != nil {
		return fmt.Errorf("count task references: %w", err)
	}
	if refs > 0 {
		return fmt.Errorf("%w (%d tasks)", domain.ErrUserInUse, refs)
	}

	remove := s.users.Delete
	if target.IsAdmin() {
		remove = s.users.DeleteAdmin
	}
	if err := remove(ctx, id); err != nil {
		return err
	}

	s.logger.Info().Str("user_id", id).Msg("user deleted")
	emit(ctx, s.pub, s.logger, domain.EventUserDeleted, domain.DeletedRef{ID: id})
	return nil
}

// EnsureAdmin creates an admin account when none exists. It reports whether
// an account was created. No event is published: it runs before any client
// can connect.
func (s *UserService) EnsureAdmin(ctx context.Context, name, email, password string) (bool, error) {
	admins, err := s.users.CountByRole(ctx, domain.RoleAdmin)
	if err != nil {
		return false, fmt.Errorf("count admins: %w", err)
	}
	if admins > 0 {
		return false, nil
	}
	if name == "" {
		name = "Admin"
	}
	name, email, err = validateIdentity(name, email)
	if err != nil {
		return false, err
	}
	if len(password) < minPasswordLen {
		return false, fmt.Errorf("%w: password must be at least %d characters", domain.ErrValidation, minPasswordLen)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}
	now := time.Now().UTC()
	_, err = s.users.Create(ctx, &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return false, fmt.Errorf("seed admin: %w", err)
	}
	s.logger.Info().Str("email", email).Msg("seeded admin account")
	return true, nil
}

func validateIdentity(name, email string) (string, string, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" {
		return "", "", fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	if email == "" {
		return "", "", fmt.Errorf("%w: email is required", domain.ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", "", fmt.Errorf("%w: email must be a valid email", domain.ErrValidation)
	}
	return name, email, nil
}
