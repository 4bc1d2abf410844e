package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/taskhub/task-tracker/internal/core/domain"
	"github.com/taskhub/task-tracker/internal/core/ports"
)

// expandTasks resolves assignee and creator references with one batched user
// lookup. A reference to a user that no longer exists is left nil.
func expandTasks(ctx context.Context, users ports.UserRepository, tasks []*domain.Task) ([]domain.TaskView, error) {
	if len(tasks) == 0 {
		return []domain.TaskView{}, nil
	}

	seen := make(map[string]struct{}, len(tasks)*2)
	ids := make([]string, 0, len(tasks)*2)
	for _, t := range tasks {
		for _, id := range []string{t.AssigneeID, t.CreatorID} {
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}

	found, err := users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("expand task users: %w", err)
	}
	byID := make(map[string]*domain.User, len(found))
	for _, u := range found {
		byID[u.ID] = u
	}

	views := make([]domain.TaskView, 0, len(tasks))
	for _, t := range tasks {
		views = append(views, toView(t, byID))
	}
	return views, nil
}

func expandTask(ctx context.Context, users ports.UserRepository, task *domain.Task) (*domain.TaskView, error) {
	views, err := expandTasks(ctx, users, []*domain.Task{task})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// committedView expands a task whose store write already succeeded. When the
// user lookup fails the references carry only the ids, so the caller can
// still answer and broadcast the change.
func committedView(ctx context.Context, users ports.UserRepository, log zerolog.Logger, task *domain.Task) *domain.TaskView {
	view, err := expandTask(ctx, users, task)
	if err == nil {
		return view
	}
	log.Warn().Err(err).Str("task_id", task.ID).Msg("could not expand task users, sending bare references")
	v := toView(task, nil)
	if task.AssigneeID != "" {
		v.AssignedTo = &domain.UserRef{ID: task.AssigneeID}
	}
	if task.CreatorID != "" {
		v.CreatedBy = &domain.UserRef{ID: task.CreatorID}
	}
	return &v
}

func toView(t *domain.Task, users map[string]*domain.User) domain.TaskView {
	v := domain.TaskView{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		DueDate:     t.DueDate,
		Priority:    t.Priority,
		Status:      t.Status,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if u, ok := users[t.AssigneeID]; ok {
		v.AssignedTo = u.Ref()
	}
	if u, ok := users[t.CreatorID]; ok {
		v.CreatedBy = u.Ref()
	}
	return v
}
