package copilot

import (
	"sort"
	"strings"
	"sync"
)

// Readable is a piece of application state the assistant may read.
type Readable struct {
	Name        string
	Description string
	Value       func() string
}

// Readables is the set of readable sources handed to the assistant.
type Readables struct {
	mu    sync.RWMutex
	items map[string]Readable
}

// NewReadables creates an empty set.
func NewReadables() *Readables {
	return &Readables{items: make(map[string]Readable)}
}

// Register adds or replaces a readable.
func (r *Readables) Register(rd Readable) {
	r.mu.Lock()
	r.items[rd.Name] = rd
	r.mu.Unlock()
}

// Get returns the readable with the given name.
func (r *Readables) Get(name string) (Readable, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rd, ok := r.items[name]
	return rd, ok
}

// List returns readables sorted by name.
func (r *Readables) List() []Readable {
	r.mu.RLock()
	out := make([]Readable, 0, len(r.items))
	for _, rd := range r.items {
		out = append(out, rd)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Context joins every readable value, one block per readable.
func (r *Readables) Context() string {
	var parts []string
	for _, rd := range r.List() {
		if v := rd.Value(); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, "\n\n")
}
