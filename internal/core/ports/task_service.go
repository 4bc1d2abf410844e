package ports

import (
	"context"
	"time"

	"github.com/taskhub/task-tracker/internal/core/domain"
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	ID   string
	Role string
}

func (a Actor) IsAdmin() bool {
	return a.Role == domain.RoleAdmin
}

// Page is one page of a listing.
type Page[T any] struct {
	Items       []T
	CurrentPage int
	TotalPages  int
	TotalItems  int64
}

// CreateTaskInput carries all data needed to create a new task.
type CreateTaskInput struct {
	Title          string
	Description    string
	DueDate        time.Time
	Priority       string // empty = medium
	AssigneeID     string
	IdempotencyKey string
}

// UpdateTaskInput is a partial update; nil fields are left untouched.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	Priority    *string
	AssigneeID  *string
}

// ListTasksInput carries the parameters of the admin-wide listing.
type ListTasksInput struct {
	Priority string
	Status   string
	Page     int
	Limit    int
}

// CreateTaskResult is returned by CreateTask.
type CreateTaskResult struct {
	Task domain.TaskView
	// AlreadyExisted is true when the Idempotency-Key matched an earlier task;
	// no event is published in that case.
	AlreadyExisted bool
}

// TaskService defines use-case operations for tasks. Every successful
// mutation publishes exactly one change event after the store write.
type TaskService interface {
	CreateTask(ctx context.Context, actor Actor, input CreateTaskInput) (*CreateTaskResult, error)
	ListTasks(ctx context.Context, input ListTasksInput) (*Page[domain.TaskView], error)
	ListMyTasks(ctx context.Context, actor Actor, page, limit int) (*Page[domain.TaskView], error)
	GetTask(ctx context.Context, actor Actor, id string) (*domain.TaskView, error)
	UpdateTask(ctx context.Context, id string, input UpdateTaskInput) (*domain.TaskView, error)
	UpdateStatus(ctx context.Context, actor Actor, id, status string) (*domain.TaskView, error)
	DeleteTask(ctx context.Context, id string) error
}
