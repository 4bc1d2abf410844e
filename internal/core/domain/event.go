package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType is the wire name of a change notification.
type EventType string

const (
	EventTaskCreated EventType = "taskCreated"
	EventTaskUpdated EventType = "taskUpdated"
	EventTaskDeleted EventType = "taskDeleted"
	EventUserCreated EventType = "userCreated"
	EventUserUpdated EventType = "userUpdated"
	EventUserDeleted EventType = "userDeleted"
)

// ChangeKind is the mutation an event describes, independent of the entity.
type ChangeKind string

const (
	KindCreated ChangeKind = "created"
	KindUpdated ChangeKind = "updated"
	KindDeleted ChangeKind = "deleted"
)

const (
	EntityTask = "task"
	EntityUser = "user"
)

var eventShapes = map[EventType]struct {
	entity string
	kind   ChangeKind
}{
	EventTaskCreated: {EntityTask, KindCreated},
	EventTaskUpdated: {EntityTask, KindUpdated},
	EventTaskDeleted: {EntityTask, KindDeleted},
	EventUserCreated: {EntityUser, KindCreated},
	EventUserUpdated: {EntityUser, KindUpdated},
	EventUserDeleted: {EntityUser, KindDeleted},
}

// Entity returns "task" or "user", or "" for an unknown event type.
func (t EventType) Entity() string {
	return eventShapes[t].entity
}

// Kind returns the mutation kind, or "" for an unknown event type.
func (t EventType) Kind() ChangeKind {
	return eventShapes[t].kind
}

// Known reports whether t is one of the published event types.
func (t EventType) Known() bool {
	_, ok := eventShapes[t]
	return ok
}

// DeletedRef is the payload of taskDeleted and userDeleted.
type DeletedRef struct {
	ID string `json:"_id"`
}

// ChangeEvent is a notification describing one committed mutation. ID and At
// are for tracing; receivers must not rely on them for ordering or dedup.
type ChangeEvent struct {
	ID   string          `json:"id"`
	Type EventType       `json:"event"`
	Data json.RawMessage `json:"data"`
	At   time.Time       `json:"at"`
}

// NewChangeEvent serialises payload and stamps the event with a fresh id.
func NewChangeEvent(t EventType, payload any) (ChangeEvent, error) {
	if !t.Known() {
		return ChangeEvent{}, fmt.Errorf("unknown event type %q", t)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return ChangeEvent{}, fmt.Errorf("encode %s payload: %w", t, err)
	}
	return ChangeEvent{
		ID:   uuid.NewString(),
		Type: t,
		Data: data,
		At:   time.Now().UTC(),
	}, nil
}

// Decode unmarshals the event payload into v.
func (e ChangeEvent) Decode(v any) error {
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}
