// Package clientsync keeps client-side views of tasks and users consistent
// with the server by applying the change events received over the stream.
package clientsync

import (
	"sync"

	"github.com/taskhub/task-tracker/internal/core/domain"
)

// Sink receives decoded changes for one entity kind.
type Sink[T any] interface {
	Created(item T) bool
	Updated(item T) bool
	Deleted(id string) bool
}

// ListView is one fetched page of entities plus the server-side total.
//
// A created item is prepended without trimming, so the page can exceed its
// requested size until the next Reset.
type ListView[T any] struct {
	mu       sync.RWMutex
	items    []T
	total    int64
	id       func(T) string
	relevant func(T) bool
	onChange func()
}

// NewListView builds an empty view. A nil relevant func accepts every item.
func NewListView[T any](id func(T) string, relevant func(T) bool) *ListView[T] {
	if relevant == nil {
		relevant = func(T) bool { return true }
	}
	return &ListView[T]{id: id, relevant: relevant}
}

// OnChange registers fn to run after every mutation that changed the view.
func (v *ListView[T]) OnChange(fn func()) {
	v.mu.Lock()
	v.onChange = fn
	v.mu.Unlock()
}

// Reset replaces the contents with the result of a direct fetch.
func (v *ListView[T]) Reset(items []T, total int64) {
	v.mu.Lock()
	v.items = append([]T(nil), items...)
	v.total = total
	v.mu.Unlock()
	v.changed()
}

// Created prepends a relevant item and grows the total by one. An item whose
// id is already on the page, such as the stream echo of a create this client
// merged through Upsert, replaces the held copy and leaves the total alone.
func (v *ListView[T]) Created(item T) bool {
	if !v.relevant(item) {
		return false
	}
	v.mu.Lock()
	if i := v.indexLocked(v.id(item)); i >= 0 {
		v.items[i] = item
	} else {
		v.items = append([]T{item}, v.items...)
		v.total++
	}
	v.mu.Unlock()
	v.changed()
	return true
}

// Updated replaces the item with the same id. Items not on the page are
// ignored.
func (v *ListView[T]) Updated(item T) bool {
	v.mu.Lock()
	i := v.indexLocked(v.id(item))
	if i >= 0 {
		v.items[i] = item
	}
	v.mu.Unlock()
	if i < 0 {
		return false
	}
	v.changed()
	return true
}

func (v *ListView[T]) Deleted(id string) bool {
	v.mu.Lock()
	i := v.indexLocked(id)
	if i >= 0 {
		v.items = append(v.items[:i], v.items[i+1:]...)
		if v.total > 0 {
			v.total--
		}
	}
	v.mu.Unlock()
	if i < 0 {
		return false
	}
	v.changed()
	return true
}

// Upsert merges the response to the client's own request. It behaves like
// Updated when the item is already present and like Created otherwise. The
// echo of the same change arriving later over the stream then replaces the
// item instead of adding it again.
func (v *ListView[T]) Upsert(item T) {
	if !v.Updated(item) {
		v.Created(item)
	}
}

// Items returns a copy of the current page.
func (v *ListView[T]) Items() []T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]T(nil), v.items...)
}

func (v *ListView[T]) Total() int64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.total
}

func (v *ListView[T]) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.items)
}

func (v *ListView[T]) indexLocked(id string) int {
	for i, it := range v.items {
		if v.id(it) == id {
			return i
		}
	}
	return -1
}

func (v *ListView[T]) changed() {
	v.mu.RLock()
	fn := v.onChange
	v.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// DetailView follows a single entity. Once a matching delete arrives the
// view is gone and ignores everything after it.
type DetailView[T any] struct {
	mu       sync.RWMutex
	item     T
	id       func(T) string
	gone     bool
	onGone   func()
	onChange func()
}

func NewDetailView[T any](item T, id func(T) string) *DetailView[T] {
	return &DetailView[T]{item: item, id: id}
}

// OnGone registers fn to run once when the entity is deleted.
func (d *DetailView[T]) OnGone(fn func()) {
	d.mu.Lock()
	d.onGone = fn
	d.mu.Unlock()
}

// OnChange registers fn to run after every update applied to the entity.
func (d *DetailView[T]) OnChange(fn func()) {
	d.mu.Lock()
	d.onChange = fn
	d.mu.Unlock()
}

// Created never affects a detail view.
func (d *DetailView[T]) Created(T) bool { return false }

func (d *DetailView[T]) Updated(item T) bool {
	d.mu.Lock()
	if d.gone || d.id(item) != d.id(d.item) {
		d.mu.Unlock()
		return false
	}
	d.item = item
	fn := d.onChange
	d.mu.Unlock()
	if fn != nil {
		fn()
	}
	return true
}

func (d *DetailView[T]) Deleted(id string) bool {
	d.mu.Lock()
	if d.gone || id != d.id(d.item) {
		d.mu.Unlock()
		return false
	}
	d.gone = true
	fn := d.onGone
	d.mu.Unlock()
	if fn != nil {
		fn()
	}
	return true
}

// Item returns the latest known state and whether the entity still exists.
func (d *DetailView[T]) Item() (T, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.item, !d.gone
}

// TaskID and UserID are the id funcs for the two entity kinds.
func TaskID(t domain.TaskView) string { return t.ID }
func UserID(u domain.User) string     { return u.ID }

// AssignedTo matches tasks assigned to userID, as on a "my tasks" page.
func AssignedTo(userID string) func(domain.TaskView) bool {
	return func(t domain.TaskView) bool {
		return t.AssigneeID() == userID
	}
}

// TaskStats summarises a task list for the home view.
type TaskStats struct {
	Total     int64
	Pending   int
	Completed int
}

// StatsOf counts statuses over the tasks currently held by v. Total is the
// server-side total, so it may exceed Pending+Completed when v is one page
// of a larger set.
func StatsOf(v *ListView[domain.TaskView]) TaskStats {
	s := TaskStats{Total: v.Total()}
	for _, t := range v.Items() {
		switch t.Status {
		case domain.StatusCompleted:
			s.Completed++
		default:
			s.Pending++
		}
	}
	return s
}
