package agent

import (
	"bytes"
	"encoding/json"
	"sync"

	"github.com/idilsaglam/todo-copilot/internal/model"
	"github.com/idilsaglam/todo-copilot/internal/store"
)

// ContextPrefix introduces the serialized list in the assistant context.
const ContextPrefix = "This is the user's todo list: "

// Projection is the readable view of the store handed to the assistant.
// It is rebuilt on every store change and cached between changes.
type Projection struct {
	mu      sync.RWMutex
	version uint64
	text    string
}

// NewProjection creates a projection that follows st.
func NewProjection(st *store.Store) *Projection {
	p := &Projection{}
	st.OnChange(func(c store.Change) { p.update(c.Version, c.Items) })
	items, v := st.Snapshot()
	p.update(v, items)
	return p
}

// String returns the current context text.
func (p *Projection) String() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.text
}

// Version is the store version the text was built from.
func (p *Projection) Version() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.version
}

func (p *Projection) update(version uint64, items []model.Todo) {
	text := ContextPrefix + MarshalItems(items)

	p.mu.Lock()
	defer p.mu.Unlock()
	// Listeners of concurrent mutations may arrive out of order.
	if version < p.version {
		return
	}
	p.version = version
	p.text = text
}

// MarshalItems renders items as a compact JSON array without HTML
// escaping. An empty list is "[]".
func MarshalItems(items []model.Todo) string {
	if items == nil {
		items = []model.Todo{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(items); err != nil {
		return "[]"
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}
