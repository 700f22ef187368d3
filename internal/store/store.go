package store

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/idilsaglam/todo-copilot/internal/events"
	"github.com/idilsaglam/todo-copilot/internal/model"
)

// In-memory todo list. Insertion order is display order.
// Every mutation goes through one mutex, so callers never observe a
// half-applied change; last write wins.

// Op names the mutation that produced a Change.
type Op string

const (
	OpAdd        Op = "add"
	OpToggle     Op = "toggle"
	OpDelete     Op = "delete"
	OpAssign     Op = "assign"
	OpSetText    Op = "set_text"
	OpBulkUpsert Op = "bulk_upsert"
	OpReplace    Op = "replace"
)

// Change is published after every mutation that altered the list.
type Change struct {
	Op      Op
	Version uint64
	Items   []model.Todo
}

// Store owns the canonical todo list.
type Store struct {
	mu      sync.Mutex
	items   []model.Todo
	version uint64

	listeners []func(Change)
	bus       *events.Bus[Change]

	// NewID mints ids for manual adds and for upserts without an id.
	NewID func() string
}

// New creates an empty store.
func New() *Store {
	return &Store{
		items: []model.Todo{},
		bus:   events.NewBus[Change](16),
		NewID: func() string { return uuid.NewString() },
	}
}

// Add appends a new open, unassigned todo. Blank text is ignored.
func (s *Store) Add(text string) (model.Todo, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Todo{}, false
	}

	s.mu.Lock()
	t := model.Todo{ID: s.NewID(), Text: text}
	s.items = append(s.items, t)
	c := s.commitLocked(OpAdd)
	s.mu.Unlock()

	s.notify(c)
	return t, true
}

// Toggle flips the completion flag of the todo with the given id.
func (s *Store) Toggle(id string) bool {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	s.items[i].IsCompleted = !s.items[i].IsCompleted
	c := s.commitLocked(OpToggle)
	s.mu.Unlock()

	s.notify(c)
	return true
}

// Delete removes the todo with the given id, keeping the order of the rest.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	out := s.items[:0:0]
	for _, t := range s.items {
		if t.ID != id {
			out = append(out, t)
		}
	}
	if len(out) == len(s.items) {
		s.mu.Unlock()
		return false
	}
	s.items = out
	c := s.commitLocked(OpDelete)
	s.mu.Unlock()

	s.notify(c)
	return true
}

// Assign sets the assignee of a todo. An empty person clears it.
func (s *Store) Assign(id, person string) bool {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	s.items[i].AssignedTo = person
	c := s.commitLocked(OpAssign)
	s.mu.Unlock()

	s.notify(c)
	return true
}

// BulkUpsert replaces existing todos by id (whole record, no field merge)
// and appends unknown ones, in input order. Items without an id get a
// fresh one.
func (s *Store) BulkUpsert(items []model.Todo) {
	if len(items) == 0 {
		return
	}

	s.mu.Lock()
	s.upsertLocked(items)
	c := s.commitLocked(OpBulkUpsert)
	s.mu.Unlock()

	s.notify(c)
}

// SetText rewrites the text of a todo, keeping its other fields. Blank
// text is ignored.
func (s *Store) SetText(id, text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	s.items[i].Text = text
	c := s.commitLocked(OpSetText)
	s.mu.Unlock()

	s.notify(c)
	return true
}

// Replace swaps the whole list, e.g. when loading a seed file. Duplicate
// ids collapse the way BulkUpsert does: first position, last record.
func (s *Store) Replace(items []model.Todo) {
	s.mu.Lock()
	s.items = []model.Todo{}
	s.upsertLocked(items)
	c := s.commitLocked(OpReplace)
	s.mu.Unlock()

	s.notify(c)
}

// Items returns a copy of the list. Never nil.
func (s *Store) Items() []model.Todo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Snapshot returns a copy of the list together with its version.
func (s *Store) Snapshot() ([]model.Todo, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(), s.version
}

// Get returns the todo with the given id.
func (s *Store) Get(id string) (model.Todo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.items[i], true
	}
	return model.Todo{}, false
}

// Len returns the number of todos.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Version increases by one with every applied mutation.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// OnChange registers a listener that runs synchronously after each
// mutation, outside the store lock.
func (s *Store) OnChange(fn func(Change)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Subscribe returns a channel of changes for asynchronous consumers.
// Slow subscribers may miss changes; each Change carries a full snapshot.
func (s *Store) Subscribe() (<-chan Change, func()) {
	return s.bus.Subscribe()
}

func (s *Store) upsertLocked(items []model.Todo) {
	for _, it := range items {
		if it.ID == "" {
			it.ID = s.NewID()
		}
		if i := s.indexLocked(it.ID); i >= 0 {
			s.items[i] = it
		} else {
			s.items = append(s.items, it)
		}
	}
}

func (s *Store) indexLocked(id string) int {
	for i, t := range s.items {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) snapshotLocked() []model.Todo {
	out := make([]model.Todo, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) commitLocked(op Op) Change {
	s.version++
	return Change{Op: op, Version: s.version, Items: s.snapshotLocked()}
}

func (s *Store) notify(c Change) {
	s.mu.Lock()
	ls := append([]func(Change){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range ls {
		fn(c)
	}
	s.bus.Publish(c)
}
