// Package memory is a process-local entity store with the same semantics as
// the MongoDB store. It backs STORE_DRIVER=memory and the service tests.
package memory

import (
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store holds tasks and users under one lock so cross-collection reads (e.g.
// counting task references before a user delete) see a consistent snapshot.
type Store struct {
	mu    sync.RWMutex
	tasks map[string]*taskRecord
	users map[string]*userRecord
	seq   int64

	Tasks *TaskRepository
	Users *UserRepository
}

func NewStore() *Store {
	s := &Store{
		tasks: make(map[string]*taskRecord),
		users: make(map[string]*userRecord),
	}
	s.Tasks = &TaskRepository{s: s}
	s.Users = &UserRepository{s: s}
	return s
}

func newID() string {
	return primitive.NewObjectID().Hex()
}

// next returns a strictly increasing insertion number used as the sort
// tiebreaker when creation timestamps collide.
func (s *Store) next() int64 {
	s.seq++
	return s.seq
}

type ordered interface {
	created() time.Time
	order() int64
}

// newestFirst sorts by creation time descending, then insertion order.
func newestFirst[T ordered](items []T) {
	sort.Slice(items, func(i, j int) bool {
		ci, cj := items[i].created(), items[j].created()
		if !ci.Equal(cj) {
			return ci.After(cj)
		}
		return items[i].order() > items[j].order()
	})
}

func paginate[T any](items []T, page, limit int) []T {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		return items
	}
	start := (page - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
