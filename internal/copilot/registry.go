package copilot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/idilsaglam/todo-copilot/internal/events"
)

// ErrUnknownAction is returned by Dispatch for names nobody registered.
var ErrUnknownAction = errors.New("unknown action")

// Invocation is published after every dispatched action.
type Invocation struct {
	Action string
	Render string
	At     time.Time
}

// Registry holds the actions exposed to the assistant.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]*Action
	bus     *events.Bus[Invocation]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		actions: make(map[string]*Action),
		bus:     events.NewBus[Invocation](8),
	}
}

// Register adds an action, replacing any action with the same name.
func (r *Registry) Register(a *Action) error {
	if err := a.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	r.actions[a.Name] = a
	r.mu.Unlock()
	return nil
}

// MustRegister is Register for static declarations.
func (r *Registry) MustRegister(a *Action) {
	if err := r.Register(a); err != nil {
		panic(err)
	}
}

// Get returns an action by name or nil.
func (r *Registry) Get(name string) *Action {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.actions[name]
}

// List returns all actions sorted by name.
func (r *Registry) List() []*Action {
	r.mu.RLock()
	out := make([]*Action, 0, len(r.actions))
	for _, a := range r.actions {
		out = append(out, a)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Dispatch runs the named action. Only an unknown name is reported;
// a failing handler is logged and treated as a no-op, so callers never
// see action-level errors.
func (r *Registry) Dispatch(ctx context.Context, name string, args map[string]any) error {
	a := r.Get(name)
	if a == nil {
		return fmt.Errorf("%w: %s", ErrUnknownAction, name)
	}
	if args == nil {
		args = map[string]any{}
	}

	if err := runHandler(ctx, a, args); err != nil {
		log.Printf("copilot: action %q failed (ignored): %v", name, err)
	}

	r.bus.Publish(Invocation{Action: a.Name, Render: a.Render, At: time.Now()})
	return nil
}

// Subscribe returns a channel of invocations, e.g. for status lines.
func (r *Registry) Subscribe() (<-chan Invocation, func()) {
	return r.bus.Subscribe()
}

func runHandler(ctx context.Context, a *Action, args map[string]any) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return a.Handler(ctx, args)
}
