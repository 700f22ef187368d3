package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idilsaglam/todo-copilot/internal/copilot"
	"github.com/idilsaglam/todo-copilot/internal/model"
	"github.com/idilsaglam/todo-copilot/internal/store"
)

func newModel(t *testing.T, items ...model.Todo) (*store.Store, *copilot.Registry, *Model) {
	t.Helper()
	st := store.New()
	if len(items) > 0 {
		st.BulkUpsert(items)
	}
	reg := copilot.NewRegistry()
	m := New(Options{Store: st, Registry: reg, Popup: copilot.DefaultPopup()})
	t.Cleanup(m.Close)
	return st, reg, m
}

func press(m *Model, keys ...string) {
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case " ":
			msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		m.Update(msg)
	}
}

func TestAddThroughPrompt(t *testing.T) {
	st, _, m := newModel(t)

	press(m, "a", "Buy milk", "enter")
	require.Equal(t, 1, st.Len())
	assert.Equal(t, "Buy milk", st.Items()[0].Text)
	assert.Equal(t, st.Items(), m.Items())
	assert.Equal(t, modeList, m.mode)
}

func TestAddRejectsBlankText(t *testing.T) {
	st, _, m := newModel(t)

	press(m, "a", "   ", "enter")
	assert.Zero(t, st.Len())
	assert.Equal(t, modeAdd, m.mode)
	assert.NotEmpty(t, m.inputErr)

	press(m, "esc")
	assert.Equal(t, modeList, m.mode)
	assert.Zero(t, st.Len())
}

func TestToggleDeleteSelected(t *testing.T) {
	st, _, m := newModel(t,
		model.Todo{ID: "a", Text: "one"},
		model.Todo{ID: "b", Text: "two"},
	)

	press(m, " ")
	got, _ := st.Get("a")
	assert.True(t, got.IsCompleted)

	press(m, "d")
	assert.Equal(t, []model.Todo{{ID: "b", Text: "two"}}, st.Items())
	assert.Equal(t, st.Items(), m.Items())
}

func TestAssignAndClear(t *testing.T) {
	st, _, m := newModel(t, model.Todo{ID: "a", Text: "one"})

	press(m, "p", "Alice", "enter")
	got, _ := st.Get("a")
	assert.Equal(t, "Alice", got.AssignedTo)

	// The prompt opens prefilled; clearing it removes the assignee.
	press(m, "p")
	m.ti.SetValue("")
	press(m, "enter")
	got, _ = st.Get("a")
	assert.Empty(t, got.AssignedTo)
}

func TestEditKeepsIDAndState(t *testing.T) {
	st, _, m := newModel(t, model.Todo{ID: "a", Text: "one", IsCompleted: true, AssignedTo: "Bob"})

	press(m, "e")
	m.ti.SetValue("uno")
	press(m, "enter")

	assert.Equal(t, []model.Todo{{ID: "a", Text: "uno", IsCompleted: true, AssignedTo: "Bob"}}, st.Items())
}

func TestEditKeepsConcurrentAgentChanges(t *testing.T) {
	st, _, m := newModel(t,
		model.Todo{ID: "a", Text: "one"},
		model.Todo{ID: "b", Text: "two"},
	)

	press(m, "e")
	st.Toggle("a")
	m.ti.SetValue("uno")
	press(m, "enter")
	assert.Equal(t, model.Todo{ID: "a", Text: "uno", IsCompleted: true}, st.Items()[0])

	press(m, "e")
	st.Delete("a")
	m.ti.SetValue("resurrected")
	press(m, "enter")
	assert.Equal(t, []model.Todo{{ID: "b", Text: "two"}}, st.Items())
}

func TestKeysOnEmptyListAreNoOps(t *testing.T) {
	st, _, m := newModel(t)
	press(m, " ", "d", "e", "p")
	assert.Zero(t, st.Version())
	assert.Equal(t, modeList, m.mode)
}

func TestExternalChangesRefreshList(t *testing.T) {
	st, _, m := newModel(t)

	st.Add("from agent")
	msg := waitForChange(m.changes)()
	m.Update(msg)

	require.Len(t, m.Items(), 1)
	assert.Equal(t, "from agent", m.Items()[0].Text)
}

func TestInvocationSetsStatus(t *testing.T) {
	_, reg, m := newModel(t)
	reg.MustRegister(&copilot.Action{
		Name:    "noop",
		Handler: func(context.Context, map[string]any) error { return nil },
		Render:  "Updating the todo list...",
	})

	require.NoError(t, reg.Dispatch(context.Background(), "noop", nil))
	m.Update(waitForInvocation(m.invocations)())
	assert.Equal(t, "Updating the todo list...", m.Status())
	assert.Contains(t, m.View(), "Updating the todo list...")

	m.Update(clearStatusMsg{seq: m.statusSeq - 1})
	assert.NotEmpty(t, m.Status())
	m.Update(clearStatusMsg{seq: m.statusSeq})
	assert.Empty(t, m.Status())
}

func TestQuitAndAssistantToggle(t *testing.T) {
	_, _, m := newModel(t)
	open := m.showAssistant

	press(m, "?")
	assert.Equal(t, !open, m.showAssistant)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestAssistantMarkdownListsActions(t *testing.T) {
	_, reg, m := newModel(t)
	reg.MustRegister(&copilot.Action{
		Name:        "deleteTodo",
		Description: "Delete a todo item",
		Handler:     func(context.Context, map[string]any) error { return nil },
	})
	m.opts.AgentURL = "http://127.0.0.1:8000/api/copilotkit"

	md := m.assistantMarkdown()
	assert.Contains(t, md, "Todo List Copilot")
	assert.Contains(t, md, "`deleteTodo`: Delete a todo item")
	assert.Contains(t, md, "1 tool")
	assert.Contains(t, md, "/api/copilotkit")
}
