package domain

import (
	"testing"
)

func TestEventType_Shape(t *testing.T) {
	cases := []struct {
		typ    EventType
		entity string
		kind   ChangeKind
	}{
		{EventTaskCreated, EntityTask, KindCreated},
		{EventTaskUpdated, EntityTask, KindUpdated},
		{EventTaskDeleted, EntityTask, KindDeleted},
		{EventUserCreated, EntityUser, KindCreated},
		{EventUserUpdated, EntityUser, KindUpdated},
		{EventUserDeleted, EntityUser, KindDeleted},
	}
	for _, tc := range cases {
		if got := tc.typ.Entity(); got != tc.entity {
			t.Errorf("%s: expected entity %q, got %q", tc.typ, tc.entity, got)
		}
		if got := tc.typ.Kind(); got != tc.kind {
			t.Errorf("%s: expected kind %q, got %q", tc.typ, tc.kind, got)
		}
	}

	if EventType("taskArchived").Known() {
		t.Fatalf("unexpected known event type")
	}
}

func TestNewChangeEvent_RoundTripsPayload(t *testing.T) {
	ev, err := NewChangeEvent(EventTaskDeleted, DeletedRef{ID: "abc"})
	if err != nil {
		t.Fatalf("NewChangeEvent: %v", err)
	}
	if ev.ID == "" || ev.At.IsZero() {
		t.Fatalf("expected id and timestamp, got %+v", ev)
	}
	if string(ev.Data) != `{"_id":"abc"}` {
		t.Fatalf("unexpected payload: %s", ev.Data)
	}

	var ref DeletedRef
	if err := ev.Decode(&ref); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if ref.ID != "abc" {
		t.Fatalf("expected abc, got %q", ref.ID)
	}
}

func TestNewChangeEvent_RejectsUnknownType(t *testing.T) {
	if _, err := NewChangeEvent("taskArchived", nil); err == nil {
		t.Fatalf("expected error for unknown type")
	}
}

func TestPriorityAndStatusValidation(t *testing.T) {
	for _, p := range []Priority{PriorityLow, PriorityMedium, PriorityHigh} {
		if !p.Valid() {
			t.Errorf("expected %q to be valid", p)
		}
	}
	if Priority("urgent").Valid() || Priority("").Valid() {
		t.Errorf("expected unknown priorities to be invalid")
	}
	if !StatusPending.Valid() || !StatusCompleted.Valid() {
		t.Errorf("expected known statuses to be valid")
	}
	if TaskStatus("in_progress").Valid() {
		t.Errorf("expected in_progress to be invalid")
	}
}

func TestTaskView_AssigneeID(t *testing.T) {
	if (TaskView{}).AssigneeID() != "" {
		t.Fatalf("expected empty assignee for unexpanded view")
	}
	v := TaskView{AssignedTo: &UserRef{ID: "u1"}}
	if v.AssigneeID() != "u1" {
		t.Fatalf("expected u1, got %q", v.AssigneeID())
	}
}
