package web

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/idilsaglam/todo-copilot/internal/copilot"
	"github.com/idilsaglam/todo-copilot/internal/model"
	"github.com/idilsaglam/todo-copilot/internal/store"
)

//go:embed templates/*.html
var assetsFS embed.FS

// Options configures the browser UI.
type Options struct {
	Store    *store.Store
	Registry *copilot.Registry // optional; drives the assistant status line
	Popup    copilot.Popup
	AgentURL string // shown on the page so users can point their assistant at it
}

// Server renders the todo list as HTML and applies form posts to the store.
type Server struct {
	opts Options
	tmpl *template.Template
}

type listVM struct {
	Items   []model.Todo
	Done    int
	Pending int
}

type pageVM struct {
	Popup    copilot.Popup
	AgentURL string
	List     listVM
	Status   string
}

// NewServer parses the embedded templates.
func NewServer(opts Options) (*Server, error) {
	if opts.Store == nil {
		return nil, errors.New("web: store is nil")
	}
	tmpl, err := template.New("base").
		Funcs(template.FuncMap{"pathEscape": url.PathEscape}).
		ParseFS(assetsFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("web: parse templates: %w", err)
	}
	return &Server{opts: opts, tmpl: tmpl}, nil
}

// Register sets up the UI routes on router. Item ids are opaque and may
// contain '/', so router is switched to matching on the encoded path.
func (s *Server) Register(router *mux.Router) {
	router.UseEncodedPath()
	router.HandleFunc("/", s.handleHome).Methods(http.MethodGet)
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)
	router.HandleFunc("/todos.json", s.handleItemsJSON).Methods(http.MethodGet)
	router.HandleFunc("/todos", s.handleAdd).Methods(http.MethodPost)
	router.HandleFunc("/todos/{id}/toggle", s.handleToggle).Methods(http.MethodPost)
	router.HandleFunc("/todos/{id}/delete", s.handleDelete).Methods(http.MethodPost)
	router.HandleFunc("/todos/{id}/assign", s.handleAssign).Methods(http.MethodPost)
}

// OwnsPath reports whether a request for path, with any method, would be
// routed to the UI.
func OwnsPath(path string) bool {
	r := mux.NewRouter()
	(&Server{}).Register(r)
	var m mux.RouteMatch
	req := &http.Request{Method: http.MethodGet, URL: &url.URL{Path: path}}
	return r.Match(req, &m) || errors.Is(m.MatchErr, mux.ErrMethodMismatch)
}

// Handler returns a standalone router serving only the UI.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	s.Register(r)
	return r
}

// itemID returns the decoded {id} route variable.
func itemID(r *http.Request) (string, bool) {
	id, err := url.PathUnescape(mux.Vars(r)["id"])
	return id, err == nil
}

func (s *Server) listVM() listVM {
	return listFromItems(s.opts.Store.Items())
}

func (s *Server) render(name string, data any) (string, error) {
	var b strings.Builder
	if err := s.tmpl.ExecuteTemplate(&b, name, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	html, err := s.render("index.html", pageVM{
		Popup:    s.opts.Popup,
		AgentURL: s.opts.AgentURL,
		List:     s.listVM(),
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, html)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status": "ok",
		"todos":  s.opts.Store.Len(),
	})
}

// handleItemsJSON handles GET /todos.json.
func (s *Server) handleItemsJSON(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.opts.Store.Items())
}

// handleAdd handles POST /todos. Blank text is ignored.
func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	s.opts.Store.Add(r.Form.Get("text"))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleToggle handles POST /todos/{id}/toggle.
func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	if id, ok := itemID(r); ok {
		s.opts.Store.Toggle(id)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleDelete handles POST /todos/{id}/delete.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if id, ok := itemID(r); ok {
		s.opts.Store.Delete(id)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleAssign handles POST /todos/{id}/assign. An empty person clears
// the assignee.
func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	if id, ok := itemID(r); ok {
		s.opts.Store.Assign(id, strings.TrimSpace(r.Form.Get("person")))
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleEvents streams list and assistant status patches to the page.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	changes, cancelChanges := s.opts.Store.Subscribe()
	defer cancelChanges()

	var invocations <-chan copilot.Invocation
	if s.opts.Registry != nil {
		ch, cancel := s.opts.Registry.Subscribe()
		defer cancel()
		invocations = ch
	}

	sse := datastar.NewSSE(w, r)

	// Initial state snapshot.
	if html, err := s.render("list", s.listVM()); err == nil {
		_ = sse.PatchElements(html, datastar.WithSelector("#todo-list"), datastar.WithMode(datastar.ElementPatchModeOuter))
	}

	keepAlive := time.NewTicker(25 * time.Second)
	defer keepAlive.Stop()

	for {
		select {
		case <-sse.Context().Done():
			return
		case <-keepAlive.C:
			_ = sse.PatchSignals([]byte(`{}`))
		case c, ok := <-changes:
			if !ok {
				return
			}
			html, err := s.render("list", listFromItems(c.Items))
			if err != nil {
				log.Printf("web: render list: %v", err)
				_ = sse.ExecuteScript(fmt.Sprintf(`console.error(%q)`, err.Error()))
				continue
			}
			_ = sse.PatchElements(html, datastar.WithSelector("#todo-list"), datastar.WithMode(datastar.ElementPatchModeOuter))
		case inv, ok := <-invocations:
			if !ok {
				invocations = nil
				continue
			}
			html, err := s.render("status", inv.Render)
			if err != nil {
				continue
			}
			_ = sse.PatchElements(html, datastar.WithSelector("#assistant-status"), datastar.WithMode(datastar.ElementPatchModeOuter))
		}
	}
}

func listFromItems(items []model.Todo) listVM {
	vm := listVM{Items: items}
	for _, it := range items {
		if it.IsCompleted {
			vm.Done++
		} else {
			vm.Pending++
		}
	}
	return vm
}
