package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/taskhub/task-tracker/internal/core/domain"
	"github.com/taskhub/task-tracker/internal/core/ports"
)

type TaskService struct {
	tasks  ports.TaskRepository
	users  ports.UserRepository
	idem   ports.IdempotencyStore
	pub    ports.Publisher
	logger zerolog.Logger
}

// NewTaskService wires a TaskService. idem may be nil, in which case the
// Idempotency-Key of CreateTask is ignored.
func NewTaskService(
	tasks ports.TaskRepository,
	users ports.UserRepository,
	idem ports.IdempotencyStore,
	pub ports.Publisher,
	logger zerolog.Logger,
) *TaskService {
	return &TaskService{tasks: tasks, users: users, idem: idem, pub: pub, logger: logger}
}

// CreateTask creates a new task assigned to input.AssigneeID. If an idempotency
// key is provided and already bound, the previously created task is returned
// without side effects.
func (s *TaskService) CreateTask(ctx context.Context, actor ports.Actor, input ports.CreateTaskInput) (*ports.CreateTaskResult, error) {
	if replay := s.replay(ctx, actor, input.IdempotencyKey); replay != nil {
		return replay, nil
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	if input.DueDate.IsZero() {
		return nil, fmt.Errorf("%w: dueDate is required", domain.ErrValidation)
	}
	if input.AssigneeID == "" {
		return nil, fmt.Errorf("%w: assignedTo is required", domain.ErrValidation)
	}
	priority := domain.PriorityMedium
	if input.Priority != "" {
		priority = domain.Priority(input.Priority)
		if !priority.Valid() {
			return nil, fmt.Errorf("%w: priority must be one of low, medium, high", domain.ErrValidation)
		}
	}
	if err := s.requireUser(ctx, input.AssigneeID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	created, err := s.tasks.Create(ctx, &domain.Task{
		Title:       title,
		Description: input.Description,
		DueDate:     input.DueDate,
		Priority:    priority,
		Status:      domain.StatusPending,
		AssigneeID:  input.AssigneeID,
		CreatorID:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to create task")
		return nil, fmt.Errorf("create task: %w", err)
	}

	if s.idem != nil && input.IdempotencyKey != "" {
		if err := s.idem.Bind(ctx, scopedKey(actor, input.IdempotencyKey), created.ID); err != nil {
			s.logger.Warn().Err(err).Str("idempotency_key", input.IdempotencyKey).Msg("failed to bind idempotency key")
		}
	}

	view := committedView(ctx, s.users, s.logger, created)

	s.logger.Info().Str("task_id", created.ID).Str("assignee_id", created.AssigneeID).Msg("task created")
	emit(ctx, s.pub, s.logger, domain.EventTaskCreated, view)

	return &ports.CreateTaskResult{Task: *view}, nil
}

// replay returns the earlier result for an already-bound idempotency key, or
// nil when the request must be processed. Store failures degrade to
// processing the request.
func (s *TaskService) replay(ctx context.Context, actor ports.Actor, key string) *ports.CreateTaskResult {
	if s.idem == nil || key == "" {
		return nil
	}
	taskID, err := s.idem.Lookup(ctx, scopedKey(actor, key))
	if err != nil {
		s.logger.Warn().Err(err).Str("idempotency_key", key).Msg("idempotency lookup failed, processing anyway")
		return nil
	}
	if taskID == "" {
		return nil
	}
	existing, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		// The task was deleted since; treat the key as fresh.
		return nil
	}
	view, err := expandTask(ctx, s.users, existing)
	if err != nil {
		return nil
	}
	s.logger.Info().Str("idempotency_key", key).Str("task_id", taskID).Msg("idempotent replay")
	return &ports.CreateTaskResult{Task: *view, AlreadyExisted: true}
}

func scopedKey(actor ports.Actor, key string) string {
	return actor.ID + ":" + key
}

// ListTasks returns every task, filtered by priority and status.
func (s *TaskService) ListTasks(ctx context.Context, input ports.ListTasksInput) (*ports.Page[domain.TaskView], error) {
	if input.Priority != "" && !domain.Priority(input.Priority).Valid() {
		return nil, fmt.Errorf("%w: priority must be one of low, medium, high", domain.ErrValidation)
	}
	if input.Status != "" && !domain.TaskStatus(input.Status).Valid() {
		return nil, fmt.Errorf("%w: status must be one of pending, completed", domain.ErrValidation)
	}
	return s.list(ctx, ports.ListTasksFilter{
		Priority: input.Priority,
		Status:   input.Status,
		Page:     input.Page,
		Limit:    input.Limit,
	})
}

// ListMyTasks returns the tasks assigned to the actor.
func (s *TaskService) ListMyTasks(ctx context.Context, actor ports.Actor, page, limit int) (*ports.Page[domain.TaskView], error) {
	return s.list(ctx, ports.ListTasksFilter{AssigneeID: actor.ID, Page: page, Limit: limit})
}

func (s *TaskService) list(ctx context.Context, filter ports.ListTasksFilter) (*ports.Page[domain.TaskView], error) {
	filter.Page, filter.Limit = normalizePage(filter.Page, filter.Limit, defaultTaskLimit)

	tasks, total, err := s.tasks.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	views, err := expandTasks(ctx, s.users, tasks)
	if err != nil {
		return nil, err
	}
	return &ports.Page[domain.TaskView]{
		Items:       views,
		CurrentPage: filter.Page,
		TotalPages:  totalPages(total, filter.Limit),
		TotalItems:  total,
	}, nil
}

// GetTask returns one task. Non-admins only see tasks assigned to them; any
// other task is reported as not found.
func (s *TaskService) GetTask(ctx context.Context, actor ports.Actor, id string) (*domain.TaskView, error) {
	task, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && task.AssigneeID != actor.ID {
		return nil, domain.ErrTaskNotFound
	}
	return expandTask(ctx, s.users, task)
}

// UpdateTask applies a partial update to a task's editable fields.
func (s *TaskService) UpdateTask(ctx context.Context, id string, input ports.UpdateTaskInput) (*domain.TaskView, error) {
	upd := ports.TaskUpdate{
		Description: input.Description,
		DueDate:     input.DueDate,
		AssigneeID:  input.AssigneeID,
	}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title must not be empty", domain.ErrValidation)
		}
		upd.Title = &title
	}
	if input.DueDate != nil && input.DueDate.IsZero() {
		return nil, fmt.Errorf("%w: dueDate must not be empty", domain.ErrValidation)
	}
	if input.Priority != nil {
		p := domain.Priority(*input.Priority)
		if !p.Valid() {
			return nil, fmt.Errorf("%w: priority must be one of low, medium, high", domain.ErrValidation)
		}
		upd.Priority = &p
	}
	if upd.Empty() {
		return nil, fmt.Errorf("%w: no fields to update", domain.ErrValidation)
	}
	if input.AssigneeID != nil {
		if err := s.requireUser(ctx, *input.AssigneeID); err != nil {
			return nil, err
		}
	}

	updated, err := s.tasks.Update(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	view := committedView(ctx, s.users, s.logger, updated)

	s.logger.Info().Str("task_id", id).Msg("task updated")
	emit(ctx, s.pub, s.logger, domain.EventTaskUpdated, view)
	return view, nil
}

// UpdateStatus sets a task's completion state. Admins may update any task;
// users only the tasks assigned to them, anything else is not found.
func (s *TaskService) UpdateStatus(ctx context.Context, actor ports.Actor, id, status string) (*domain.TaskView, error) {
	st := domain.TaskStatus(status)
	if !st.Valid() {
		return nil, fmt.Errorf("%w: status must be one of pending, completed", domain.ErrValidation)
	}

	owner := actor.ID
	if actor.IsAdmin() {
		owner = ""
	}
	updated, err := s.tasks.UpdateStatus(ctx, id, owner, st)
	if err != nil {
		return nil, err
	}
	view := committedView(ctx, s.users, s.logger, updated)

	s.logger.Info().Str("task_id", id).Str("status", status).Msg("task status updated")
	emit(ctx, s.pub, s.logger, domain.EventTaskUpdated, view)
	return view, nil
}

func (s *TaskService) DeleteTask(ctx context.Context, id string) error {
	if err := s.tasks.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("task_id", id).Msg("task deleted")
	emit(ctx, s.pub, s.logger, domain.EventTaskDeleted, domain.DeletedRef{ID: id})
	return nil
}

func (s *TaskService) requireUser(ctx context.Context, id string) error {
	if _, err := s.users.FindByID(ctx, id); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return fmt.Errorf("%w: assigned user does not exist", domain.ErrValidation)
		}
		return fmt.Errorf("lookup assignee: %w", err)
	}
	return nil
}
