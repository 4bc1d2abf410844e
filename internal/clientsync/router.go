package clientsync

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/taskhub/task-tracker/internal/core/domain"
)

// Router decodes each change event once and hands it to every attached
// sink of the matching entity kind. Sinks attached later only see later
// events; a detached sink sees nothing further.
type Router struct {
	mu     sync.RWMutex
	nextID int
	tasks  map[int]Sink[domain.TaskView]
	users  map[int]Sink[domain.User]
}

func NewRouter() *Router {
	return &Router{
		tasks: make(map[int]Sink[domain.TaskView]),
		users: make(map[int]Sink[domain.User]),
	}
}

// AttachTasks registers s for task events and returns its detach func.
func (r *Router) AttachTasks(s Sink[domain.TaskView]) (detach func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	r.tasks[id] = s
	return func() {
		r.mu.Lock()
		delete(r.tasks, id)
		r.mu.Unlock()
	}
}

// AttachUsers registers s for user events and returns its detach func.
func (r *Router) AttachUsers(s Sink[domain.User]) (detach func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	r.users[id] = s
	return func() {
		r.mu.Lock()
		delete(r.users, id)
		r.mu.Unlock()
	}
}

// ApplyRaw decodes a frame off the wire and applies it.
func (r *Router) ApplyRaw(frame []byte) error {
	var ev domain.ChangeEvent
	if err := json.Unmarshal(frame, &ev); err != nil {
		return fmt.Errorf("decode change event: %w", err)
	}
	return r.Apply(ev)
}

// Apply routes ev to the attached sinks. Unknown event types are ignored.
func (r *Router) Apply(ev domain.ChangeEvent) error {
	switch ev.Type.Entity() {
	case domain.EntityTask:
		r.mu.RLock()
		sinks := collect(r.tasks)
		r.mu.RUnlock()
		return dispatch(ev, sinks)
	case domain.EntityUser:
		r.mu.RLock()
		sinks := collect(r.users)
		r.mu.RUnlock()
		return dispatch(ev, sinks)
	}
	return nil
}

func collect[T any](m map[int]Sink[T]) []Sink[T] {
	out := make([]Sink[T], 0, len(m))
	for _, s := range m {
		out = append(out, s)
	}
	return out
}

func dispatch[T any](ev domain.ChangeEvent, sinks []Sink[T]) error {
	if len(sinks) == 0 {
		return nil
	}
	if ev.Type.Kind() == domain.KindDeleted {
		var ref domain.DeletedRef
		if err := ev.Decode(&ref); err != nil {
			return err
		}
		for _, s := range sinks {
			s.Deleted(ref.ID)
		}
		return nil
	}

	var item T
	if err := ev.Decode(&item); err != nil {
		return err
	}
	for _, s := range sinks {
		if ev.Type.Kind() == domain.KindCreated {
			s.Created(item)
		} else {
			s.Updated(item)
		}
	}
	return nil
}
