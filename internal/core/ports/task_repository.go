package ports

import (
	"context"
	"time"

	"github.com/taskhub/task-tracker/internal/core/domain"
)

// ListTasksFilter carries all query parameters for listing tasks.
// AssigneeID is always enforced by the service layer for personal views.
type ListTasksFilter struct {
	AssigneeID string // empty = all tasks (admin)
	Priority   string // optional
	Status     string // optional
	Page       int    // 1-based
	Limit      int
}

// TaskUpdate is a partial update; nil fields are left untouched.
type TaskUpdate struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	Priority    *domain.Priority
	AssigneeID  *string
}

// Empty reports whether the update would change nothing.
func (u TaskUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.DueDate == nil && u.Priority == nil && u.AssigneeID == nil
}

// TaskRepository defines persistence operations for tasks. Every mutating
// method is a single-document atomic operation and returns the stored state
// after the write.
type TaskRepository interface {
	Create(ctx context.Context, t *domain.Task) (*domain.Task, error)
	FindByID(ctx context.Context, id string) (*domain.Task, error)
	// List returns a page of tasks, newest first, and the total count.
	List(ctx context.Context, filter ListTasksFilter) ([]*domain.Task, int64, error)
	Update(ctx context.Context, id string, upd TaskUpdate) (*domain.Task, error)
	// UpdateStatus sets the status of task id. When assigneeID is non-empty the
	// write only matches if the task is assigned to that user.
	UpdateStatus(ctx context.Context, id, assigneeID string, status domain.TaskStatus) (*domain.Task, error)
	Delete(ctx context.Context, id string) error
	// CountReferencing counts tasks that name userID as assignee or creator.
	CountReferencing(ctx context.Context, userID string) (int64, error)
}
