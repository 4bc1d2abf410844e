package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/taskhub/task-tracker/internal/core/domain"
	"github.com/taskhub/task-tracker/internal/core/ports"
	"github.com/taskhub/task-tracker/internal/infrastructure/db/memory"
)

type taskFixture struct {
	store *memory.Store
	pub   *recordingPublisher
	idem  *stubIdempotency
	svc   *TaskService
	admin *domain.User
	alice *domain.User
	bob   *domain.User
}

func newTaskFixture(t *testing.T) *taskFixture {
	t.Helper()
	store := memory.NewStore()
	pub := &recordingPublisher{}
	idem := newStubIdempotency()
	return &taskFixture{
		store: store,
		pub:   pub,
		idem:  idem,
		svc:   NewTaskService(store.Tasks, store.Users, idem, pub, zerolog.Nop()),
		admin: seedUser(t, store, "Admin", "admin@example.com", domain.RoleAdmin),
		alice: seedUser(t, store, "Alice", "alice@example.com", domain.RoleUser),
		bob:   seedUser(t, store, "Bob", "bob@example.com", domain.RoleUser),
	}
}

func (f *taskFixture) create(t *testing.T, assignee *domain.User) domain.TaskView {
	t.Helper()
	res, err := f.svc.CreateTask(context.Background(), actorOf(f.admin), ports.CreateTaskInput{
		Title:      "Write report",
		DueDate:    dueTomorrow(),
		AssigneeID: assignee.ID,
	})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	return res.Task
}

func TestTaskService_Create_ExpandsAndPublishesOnce(t *testing.T) {
	f := newTaskFixture(t)

	task := f.create(t, f.alice)

	if task.Priority != domain.PriorityMedium || task.Status != domain.StatusPending {
		t.Fatalf("expected defaults medium/pending, got %s/%s", task.Priority, task.Status)
	}
	if task.AssignedTo == nil || task.AssignedTo.Email != "alice@example.com" {
		t.Fatalf("expected expanded assignee, got %+v", task.AssignedTo)
	}
	if task.CreatedBy == nil || task.CreatedBy.ID != f.admin.ID {
		t.Fatalf("expected creator to be the admin, got %+v", task.CreatedBy)
	}

	types := f.pub.types()
	if len(types) != 1 || types[0] != domain.EventTaskCreated {
		t.Fatalf("expected exactly one taskCreated, got %v", types)
	}
	var payload domain.TaskView
	if err := f.pub.last(t).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.ID != task.ID || payload.AssignedTo == nil {
		t.Fatalf("event payload does not match response: %+v", payload)
	}
}

// brokenLookups fails every batched user lookup; single lookups still work.
type brokenLookups struct {
	ports.UserRepository
}

func (brokenLookups) FindByIDs(context.Context, []string) ([]*domain.User, error) {
	return nil, errors.New("users collection unavailable")
}

func TestTaskService_CommittedWritesPublishWhenExpansionFails(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	svc := NewTaskService(f.store.Tasks, brokenLookups{f.store.Users}, nil, f.pub, zerolog.Nop())

	res, err := svc.CreateTask(ctx, actorOf(f.admin), ports.CreateTaskInput{
		Title:      "Write report",
		DueDate:    dueTomorrow(),
		AssigneeID: f.alice.ID,
	})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if res.Task.AssignedTo == nil || res.Task.AssignedTo.ID != f.alice.ID {
		t.Fatalf("expected assignee id to survive, got %+v", res.Task.AssignedTo)
	}

	if _, err := svc.UpdateStatus(ctx, actorOf(f.alice), res.Task.ID, "completed"); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	high := "high"
	if _, err := svc.UpdateTask(ctx, res.Task.ID, ports.UpdateTaskInput{Priority: &high}); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}

	want := []domain.EventType{domain.EventTaskCreated, domain.EventTaskUpdated, domain.EventTaskUpdated}
	got := f.pub.types()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	var payload domain.TaskView
	if err := f.pub.last(t).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.AssigneeID() != f.alice.ID || payload.Priority != domain.PriorityHigh {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestTaskService_Create_Validation(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	cases := map[string]ports.CreateTaskInput{
		"missing title":    {DueDate: dueTomorrow(), AssigneeID: f.alice.ID},
		"missing due date": {Title: "x", AssigneeID: f.alice.ID},
		"missing assignee": {Title: "x", DueDate: dueTomorrow()},
		"bad priority":     {Title: "x", DueDate: dueTomorrow(), AssigneeID: f.alice.ID, Priority: "urgent"},
		"unknown assignee": {Title: "x", DueDate: dueTomorrow(), AssigneeID: "000000000000000000000000"},
	}
	for name, input := range cases {
		_, err := f.svc.CreateTask(ctx, actorOf(f.admin), input)
		if !errors.Is(err, domain.ErrValidation) {
			t.Errorf("%s: expected ErrValidation, got %v", name, err)
		}
	}
	if n := len(f.pub.types()); n != 0 {
		t.Fatalf("expected no events on failed creates, got %d", n)
	}
}

func TestTaskService_Create_IdempotencyReplay(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	input := ports.CreateTaskInput{
		Title:          "Once",
		DueDate:        dueTomorrow(),
		AssigneeID:     f.alice.ID,
		IdempotencyKey: "key-1",
	}

	first, err := f.svc.CreateTask(ctx, actorOf(f.admin), input)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	second, err := f.svc.CreateTask(ctx, actorOf(f.admin), input)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}

	if !second.AlreadyExisted || second.Task.ID != first.Task.ID {
		t.Fatalf("expected replay of %s, got %+v", first.Task.ID, second)
	}
	if n := len(f.pub.types()); n != 1 {
		t.Fatalf("replay must not publish, got %d events", n)
	}

	// Keys are scoped per actor.
	other := seedUser(t, f.store, "Other Admin", "other@example.com", domain.RoleAdmin)
	third, err := f.svc.CreateTask(ctx, actorOf(other), input)
	if err != nil {
		t.Fatalf("create by other admin: %v", err)
	}
	if third.AlreadyExisted {
		t.Fatalf("idempotency keys must not leak across actors")
	}
}

func TestTaskService_GetTask_HidesOthersTasks(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	task := f.create(t, f.alice)

	if _, err := f.svc.GetTask(ctx, actorOf(f.alice), task.ID); err != nil {
		t.Fatalf("assignee must see task: %v", err)
	}
	if _, err := f.svc.GetTask(ctx, actorOf(f.admin), task.ID); err != nil {
		t.Fatalf("admin must see task: %v", err)
	}
	if _, err := f.svc.GetTask(ctx, actorOf(f.bob), task.ID); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound for other user, got %v", err)
	}
}

func TestTaskService_UpdateStatus_Ownership(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	task := f.create(t, f.alice)
	before := len(f.pub.types())

	if _, err := f.svc.UpdateStatus(ctx, actorOf(f.bob), task.ID, "completed"); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound for non-owner, got %v", err)
	}
	if len(f.pub.types()) != before {
		t.Fatalf("failed update must not publish")
	}

	view, err := f.svc.UpdateStatus(ctx, actorOf(f.alice), task.ID, "completed")
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if view.Status != domain.StatusCompleted {
		t.Fatalf("expected completed, got %s", view.Status)
	}
	if got := f.pub.last(t).Type; got != domain.EventTaskUpdated {
		t.Fatalf("expected taskUpdated, got %s", got)
	}

	if _, err := f.svc.UpdateStatus(ctx, actorOf(f.admin), task.ID, "pending"); err != nil {
		t.Fatalf("admin may update any task: %v", err)
	}
	if _, err := f.svc.UpdateStatus(ctx, actorOf(f.admin), task.ID, "in_progress"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown status, got %v", err)
	}
}

func TestTaskService_UpdateTask_Partial(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	task := f.create(t, f.alice)

	high := "high"
	view, err := f.svc.UpdateTask(ctx, task.ID, ports.UpdateTaskInput{Priority: &high, AssigneeID: &f.bob.ID})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if view.Priority != domain.PriorityHigh || view.Title != task.Title {
		t.Fatalf("unexpected update result: %+v", view)
	}
	if view.AssigneeID() != f.bob.ID {
		t.Fatalf("expected reassignment to bob, got %q", view.AssigneeID())
	}

	if _, err := f.svc.UpdateTask(ctx, task.ID, ports.UpdateTaskInput{}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for empty update, got %v", err)
	}
	if _, err := f.svc.UpdateTask(ctx, "000000000000000000000000", ports.UpdateTaskInput{Priority: &high}); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestTaskService_Delete_PublishesRef(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	task := f.create(t, f.alice)

	if err := f.svc.DeleteTask(ctx, task.ID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	ev := f.pub.last(t)
	if ev.Type != domain.EventTaskDeleted || string(ev.Data) != `{"_id":"`+task.ID+`"}` {
		t.Fatalf("unexpected delete event: %s %s", ev.Type, ev.Data)
	}

	n := len(f.pub.types())
	if err := f.svc.DeleteTask(ctx, task.ID); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
	if len(f.pub.types()) != n {
		t.Fatalf("failed delete must not publish")
	}
}

func TestTaskService_ListMyTasks_ScopedAndPaged(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		f.create(t, f.alice)
	}
	f.create(t, f.bob)

	page, err := f.svc.ListMyTasks(ctx, actorOf(f.alice), 1, 2)
	if err != nil {
		t.Fatalf("ListMyTasks: %v", err)
	}
	if page.TotalItems != 3 || page.TotalPages != 2 || len(page.Items) != 2 {
		t.Fatalf("unexpected page: items=%d total=%d pages=%d", len(page.Items), page.TotalItems, page.TotalPages)
	}
	for _, v := range page.Items {
		if v.AssigneeID() != f.alice.ID {
			t.Fatalf("foreign task in personal list: %+v", v)
		}
	}

	all, err := f.svc.ListTasks(ctx, ports.ListTasksInput{Limit: 500})
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if all.TotalItems != 4 || len(all.Items) != 4 {
		t.Fatalf("expected 4 tasks, got %d", all.TotalItems)
	}
	if _, err := f.svc.ListTasks(ctx, ports.ListTasksInput{Status: "done"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown status filter, got %v", err)
	}
}

func TestNormalizePage(t *testing.T) {
	cases := []struct {
		page, limit, def int
		wantPage         int
		wantLimit        int
	}{
		{0, 0, 10, 1, 10},
		{3, 20, 10, 3, 20},
		{1, 1000, 10, 1, maxLimit},
		{-4, -1, 50, 1, 50},
	}
	for _, tc := range cases {
		p, l := normalizePage(tc.page, tc.limit, tc.def)
		if p != tc.wantPage || l != tc.wantLimit {
			t.Errorf("normalizePage(%d,%d,%d) = %d,%d; want %d,%d", tc.page, tc.limit, tc.def, p, l, tc.wantPage, tc.wantLimit)
		}
	}
	if totalPages(0, 10) != 0 || totalPages(11, 10) != 2 || totalPages(10, 10) != 1 {
		t.Errorf("unexpected totalPages results")
	}
}
