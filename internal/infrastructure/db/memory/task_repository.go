package memory

import (
	"context"
	"time"

	"github.com/taskhub/task-tracker/internal/core/domain"
	"github.com/taskhub/task-tracker/internal/core/ports"
)

type taskRecord struct {
	task domain.Task
	seq  int64
}

func (r *taskRecord) created() time.Time { return r.task.CreatedAt }
func (r *taskRecord) order() int64       { return r.seq }

type TaskRepository struct {
	s *Store
}

func (r *TaskRepository) Create(_ context.Context, t *domain.Task) (*domain.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec := &taskRecord{task: *t, seq: r.s.next()}
	rec.task.ID = newID()
	r.s.tasks[rec.task.ID] = rec
	out := rec.task
	return &out, nil
}

func (r *TaskRepository) FindByID(_ context.Context, id string) (*domain.Task, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rec, ok := r.s.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	out := rec.task
	return &out, nil
}

func (r *TaskRepository) List(_ context.Context, filter ports.ListTasksFilter) ([]*domain.Task, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	matched := make([]*taskRecord, 0, len(r.s.tasks))
	for _, rec := range r.s.tasks {
		t := rec.task
		if filter.AssigneeID != "" && t.AssigneeID != filter.AssigneeID {
			continue
		}
		if filter.Priority != "" && string(t.Priority) != filter.Priority {
			continue
		}
		if filter.Status != "" && string(t.Status) != filter.Status {
			continue
		}
		matched = append(matched, rec)
	}
	newestFirst(matched)

	page := paginate(matched, filter.Page, filter.Limit)
	out := make([]*domain.Task, 0, len(page))
	for _, rec := range page {
		t := rec.task
		out = append(out, &t)
	}
	return out, int64(len(matched)), nil
}

func (r *TaskRepository) Update(_ context.Context, id string, upd ports.TaskUpdate) (*domain.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, ok := r.s.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	t := &rec.task
	if upd.Title != nil {
		t.Title = *upd.Title
	}
	if upd.Description != nil {
		t.Description = *upd.Description
	}
	if upd.DueDate != nil {
		t.DueDate = *upd.DueDate
	}
	if upd.Priority != nil {
		t.Priority = *upd.Priority
	}
	if upd.AssigneeID != nil {
		t.AssigneeID = *upd.AssigneeID
	}
	t.UpdatedAt = time.Now().UTC()
	out := *t
	return &out, nil
}

func (r *TaskRepository) UpdateStatus(_ context.Context, id, assigneeID string, status domain.TaskStatus) (*domain.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, ok := r.s.tasks[id]
	if !ok || (assigneeID != "" && rec.task.AssigneeID != assigneeID) {
		return nil, domain.ErrTaskNotFound
	}
	rec.task.Status = status
	rec.task.UpdatedAt = time.Now().UTC()
	out := rec.task
	return &out, nil
}

func (r *TaskRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tasks[id]; !ok {
		return domain.ErrTaskNotFound
	}
	delete(r.s.tasks, id)
	return nil
}

func (r *TaskRepository) CountReferencing(_ context.Context, userID string) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var n int64
	for _, rec := range r.s.tasks {
		if rec.task.AssigneeID == userID || rec.task.CreatorID == userID {
			n++
		}
	}
	return n, nil
}
