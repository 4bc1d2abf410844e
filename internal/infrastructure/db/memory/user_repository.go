package memory

import (
	"context"
	"time"

	"github.com/taskhub/task-tracker/internal/core/domain"
	"github.com/taskhub/task-tracker/internal/core/ports"
)

type userRecord struct {
	user domain.User
	seq  int64
}

func (r *userRecord) created() time.Time { return r.user.CreatedAt }
func (r *userRecord) order() int64       { return r.seq }

type UserRepository struct {
	s *Store
}

// emailTaken reports whether another user already owns email. Callers hold
// the store lock.
func (r *UserRepository) emailTaken(email, exceptID string) bool {
	for id, rec := range r.s.users {
		if id != exceptID && rec.user.Email == email {
			return true
		}
	}
	return false
}

func (r *UserRepository) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.emailTaken(user.Email, "") {
		return nil, domain.ErrEmailExists
	}
	rec := &userRecord{user: *user, seq: r.s.next()}
	rec.user.ID = newID()
	r.s.users[rec.user.ID] = rec
	out := rec.user
	return &out, nil
}

func (r *UserRepository) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rec, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	out := rec.user
	return &out, nil
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, rec := range r.s.users {
		if rec.user.Email == email {
			out := rec.user
			return &out, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *UserRepository) FindByIDs(_ context.Context, ids []string) ([]*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*domain.User, 0, len(ids))
	for _, id := range ids {
		if rec, ok := r.s.users[id]; ok {
			u := rec.user
			out = append(out, &u)
		}
	}
	return out, nil
}

func (r *UserRepository) List(_ context.Context, page, limit int) ([]*domain.User, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	all := make([]*userRecord, 0, len(r.s.users))
	for _, rec := range r.s.users {
		all = append(all, rec)
	}
	newestFirst(all)

	slice := paginate(all, page, limit)
	out := make([]*domain.User, 0, len(slice))
	for _, rec := range slice {
		u := rec.user
		out = append(out, &u)
	}
	return out, int64(len(all)), nil
}

func (r *UserRepository) UpdateProfile(_ context.Context, id string, upd ports.ProfileUpdate) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if r.emailTaken(upd.Email, id) {
		return nil, domain.ErrEmailExists
	}
	rec.user.Name = upd.Name
	rec.user.Email = upd.Email
	if upd.PasswordHash != nil {
		rec.user.PasswordHash = *upd.PasswordHash
	}
	rec.user.UpdatedAt = time.Now().UTC()
	out := rec.user
	return &out, nil
}

func (r *UserRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.s.users, id)
	return nil
}

func (r *UserRepository) DeleteAdmin(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, ok := r.s.users[id]
	if !ok || rec.user.Role != domain.RoleAdmin {
		return domain.ErrUserNotFound
	}
	admins := 0
	for _, other := range r.s.users {
		if other.user.Role == domain.RoleAdmin {
			admins++
		}
	}
	if admins <= 1 {
		return domain.ErrLastAdmin
	}
	delete(r.s.users, id)
	return nil
}

func (r *UserRepository) CountByRole(_ context.Context, role string) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var n int64
	for _, rec := range r.s.users {
		if rec.user.Role == role {
			n++
		}
	}
	return n, nil
}
