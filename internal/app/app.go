package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/idilsaglam/todo-copilot/internal/agent"
	"github.com/idilsaglam/todo-copilot/internal/auth"
	"github.com/idilsaglam/todo-copilot/internal/config"
	"github.com/idilsaglam/todo-copilot/internal/copilot"
	"github.com/idilsaglam/todo-copilot/internal/mcp"
	"github.com/idilsaglam/todo-copilot/internal/store"
	"github.com/idilsaglam/todo-copilot/internal/store/jsonstore"
	"github.com/idilsaglam/todo-copilot/internal/tui"
	"github.com/idilsaglam/todo-copilot/internal/web"
)

// Version is reported to MCP clients.
var Version = "dev"

const shutdownTimeout = 10 * time.Second

// App holds one todo list and everything that reads or edits it.
type App struct {
	Config     *config.Config
	Store      *store.Store
	Registry   *copilot.Registry
	Readables  *copilot.Readables
	Projection *agent.Projection
	Signer     *auth.Signer

	handler http.Handler
}

// New builds the app from cfg. A missing seed file yields an empty list.
func New(cfg *config.Config) (*App, error) {
	st := store.New()
	if cfg.Seed != "" {
		items, err := jsonstore.Load(cfg.Seed)
		if err != nil {
			return nil, fmt.Errorf("load seed: %w", err)
		}
		st.Replace(items)
		log.Printf("loaded %d todos from %s", len(items), cfg.Seed)
	}

	reg := copilot.NewRegistry()
	rds := copilot.NewReadables()
	proj, err := agent.Register(reg, rds, st)
	if err != nil {
		return nil, fmt.Errorf("register agent actions: %w", err)
	}

	a := &App{
		Config:     cfg,
		Store:      st,
		Registry:   reg,
		Readables:  rds,
		Projection: proj,
		Signer:     auth.NewSigner(cfg.Agent.Secret),
	}

	ui, err := web.NewServer(web.Options{
		Store:    st,
		Registry: reg,
		Popup:    cfg.Copilot,
		AgentURL: a.AgentURL(),
	})
	if err != nil {
		return nil, err
	}

	mcpHandler := mcp.NewHandler(mcp.Options{
		Version:   Version,
		Registry:  reg,
		Readables: rds,
		Popup:     cfg.Copilot,
		ItemsJSON: func() string { return agent.MarshalItems(st.Items()) },
	})

	r := mux.NewRouter()
	r.Handle(cfg.Agent.Path, auth.Middleware(a.Signer, mcpHandler))
	ui.Register(r)
	a.handler = corsMiddleware(r)
	return a, nil
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler { return a.handler }

// AgentURL is the MCP endpoint as seen from this host.
func (a *App) AgentURL() string { return a.Config.AgentURL() }

// TUIOptions returns options for the terminal UI bound to this app.
func (a *App) TUIOptions() tui.Options {
	return tui.Options{
		Store:     a.Store,
		Registry:  a.Registry,
		Readables: a.Readables,
		Popup:     a.Config.Copilot,
		AgentURL:  a.AgentURL(),
	}
}

// Serve serves HTTP on ln until ctx is done, then shuts down gracefully
// and writes the snapshot file if one is configured.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	// Request contexts end when shutdown starts so event streams close.
	baseCtx, stopStreams := context.WithCancel(context.Background())
	defer stopStreams()
	srv := &http.Server{
		Handler:     a.handler,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
		BaseContext: func(net.Listener) context.Context { return baseCtx },
	}
	srv.RegisterOnShutdown(stopStreams)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("todo-copilot listening on %s (agent=%s, auth=%v)", ln.Addr(), a.Config.Agent.Path, a.Signer != nil)
		errCh <- srv.Serve(ln)
	}()

	var serveErr error
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	case <-ctx.Done():
		log.Println("shutting down...")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			log.Printf("shutdown: %v; closing remaining connections", err)
			serveErr = srv.Close()
		}
	}

	if err := a.SaveSnapshot(); err != nil {
		return errors.Join(serveErr, err)
	}
	return serveErr
}

// Run listens on the configured address and serves until ctx is done.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.Config.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.Config.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// SaveSnapshot writes the list to the snapshot file. No-op when unset.
func (a *App) SaveSnapshot() error {
	if a.Config.Snapshot == "" {
		return nil
	}
	items := a.Store.Items()
	if err := jsonstore.Save(a.Config.Snapshot, items); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	log.Printf("saved %d todos to %s", len(items), a.Config.Snapshot)
	return nil
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Mcp-Session-Id")
		w.Header().Set("Access-Control-Expose-Headers", "Mcp-Session-Id")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
