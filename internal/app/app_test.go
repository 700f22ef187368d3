package app

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idilsaglam/todo-copilot/internal/agent"
	"github.com/idilsaglam/todo-copilot/internal/config"
	"github.com/idilsaglam/todo-copilot/internal/mcp"
	"github.com/idilsaglam/todo-copilot/internal/model"
	"github.com/idilsaglam/todo-copilot/internal/store/jsonstore"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestWebAndAgentShareOneList(t *testing.T) {
	a, err := New(testConfig(t))
	require.NoError(t, err)
	ts := httptest.NewServer(a.Handler())
	defer ts.Close()

	// The user adds an item in the browser.
	noRedirect := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
	resp, err := noRedirect.PostForm(ts.URL+"/todos", url.Values{"text": {"Buy milk"}})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	items := a.Store.Items()
	require.Len(t, items, 1)
	milk := items[0]

	// The assistant sees it and edits the list.
	ctx := context.Background()
	c := mcp.NewClient(ts.URL+a.Config.Agent.Path, "")
	_, err = c.Connect(ctx)
	require.NoError(t, err)

	text, err := c.ReadResource(ctx, mcp.URIContext)
	require.NoError(t, err)
	assert.Equal(t, agent.ContextPrefix+`[{"id":"`+milk.ID+`","text":"Buy milk","isCompleted":false}]`, text)

	_, err = c.CallTool(ctx, agent.ActionUpdateTodoList, map[string]any{
		"items": []map[string]any{
			{"id": milk.ID, "text": "Buy milk", "isCompleted": true, "assignedTo": "Bob"},
			{"id": "new-1", "text": "Walk dog", "isCompleted": false, "assignedTo": ""},
		},
	})
	require.NoError(t, err)
	_, err = c.CallTool(ctx, agent.ActionDeleteTodo, map[string]any{"id": "new-1"})
	require.NoError(t, err)

	assert.Equal(t, []model.Todo{{ID: milk.ID, Text: "Buy milk", IsCompleted: true, AssignedTo: "Bob"}}, a.Store.Items())
	assert.Equal(t, agent.ContextPrefix+agent.MarshalItems(a.Store.Items()), a.Projection.String())
}

func TestAgentEndpointRequiresToken(t *testing.T) {
	cfg := testConfig(t)
	cfg.Agent.Secret = "s3cret"
	a, err := New(cfg)
	require.NoError(t, err)
	ts := httptest.NewServer(a.Handler())
	defer ts.Close()

	ctx := context.Background()
	_, err = mcp.NewClient(ts.URL+cfg.Agent.Path, "").Connect(ctx)
	require.Error(t, err)

	token, _, err := a.Signer.Issue("tester", time.Hour)
	require.NoError(t, err)
	_, err = mcp.NewClient(ts.URL+cfg.Agent.Path, token).Connect(ctx)
	require.NoError(t, err)

	// The browser UI stays open.
	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCORSPreflight(t *testing.T) {
	a, err := New(testConfig(t))
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	a.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodOptions, a.Config.Agent.Path, nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Access-Control-Allow-Headers"), "Mcp-Session-Id")
}

func TestSeedAndSnapshot(t *testing.T) {
	dir := t.TempDir()
	seed := filepath.Join(dir, "seed.json")
	snap := filepath.Join(dir, "out", "snapshot.json")
	require.NoError(t, jsonstore.Save(seed, []model.Todo{{ID: "a", Text: "seeded"}}))

	cfg := testConfig(t)
	cfg.Seed = seed
	cfg.Snapshot = snap
	a, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, []model.Todo{{ID: "a", Text: "seeded"}}, a.Store.Items())

	a.Store.Toggle("a")

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("server did not shut down")
	}

	saved, err := jsonstore.Load(snap)
	require.NoError(t, err)
	assert.Equal(t, []model.Todo{{ID: "a", Text: "seeded", IsCompleted: true}}, saved)
}

func TestShutdownClosesEventStreams(t *testing.T) {
	a, err := New(testConfig(t))
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() && !strings.Contains(sc.Text(), "#todo-list") {
	}

	start := time.Now()
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
		assert.Less(t, time.Since(start), shutdownTimeout/2)
	case <-time.After(shutdownTimeout):
		t.Fatal("shutdown waited for the event stream")
	}
}

func TestMissingSeedStartsEmpty(t *testing.T) {
	cfg := testConfig(t)
	cfg.Seed = filepath.Join(t.TempDir(), "nope.json")
	_, err := os.Stat(cfg.Seed)
	require.True(t, os.IsNotExist(err))

	// jsonstore treats a missing file as an empty list.
	a, err := New(cfg)
	require.NoError(t, err)
	assert.Zero(t, a.Store.Len())
}

func TestAgentURL(t *testing.T) {
	cfg := testConfig(t)
	cfg.Addr = ":9000"
	a, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9000/api/copilotkit", a.AgentURL())
	assert.True(t, strings.HasSuffix(a.TUIOptions().AgentURL, "/api/copilotkit"))
}
