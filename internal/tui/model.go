package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/idilsaglam/todo-copilot/internal/copilot"
	"github.com/idilsaglam/todo-copilot/internal/model"
	"github.com/idilsaglam/todo-copilot/internal/store"
	"github.com/idilsaglam/todo-copilot/internal/ui"
)

// AssignPrompt is shown when assigning a person to the selected item.
const AssignPrompt = "Assign person to this task:"

const statusTTL = 3 * time.Second

// Options wires the terminal UI to the running app.
type Options struct {
	Store     *store.Store
	Registry  *copilot.Registry  // optional
	Readables *copilot.Readables // optional; shown in the assistant panel
	Popup     copilot.Popup
	AgentURL  string
}

type mode int

const (
	modeList mode = iota
	modeAdd
	modeEdit
	modeAssign
)

type (
	changeMsg      store.Change
	invocationMsg  copilot.Invocation
	clearStatusMsg struct{ seq int }
)

// listItem adapts model.Todo to bubbles/list.Item.
type listItem struct{ todo model.Todo }

func (i listItem) Title() string       { return i.todo.Text }
func (i listItem) Description() string { return "" }
func (i listItem) FilterValue() string { return i.todo.Text + " " + i.todo.AssignedTo }

type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, _ := item.(listItem)
	th := ui.Current()

	box := mutedStyle.Render(th.BoxUnchecked)
	text := it.todo.Text
	if it.todo.IsCompleted {
		box = successStyle.Render(th.BoxChecked)
		text = doneStyle.Render(text)
	}
	if it.todo.Assigned() {
		text = assigneeStyle.Render(strings.ToUpper(it.todo.AssignedTo)) + " " + text
	}

	prefix := "  "
	if index == m.Index() {
		prefix = selectedStyle.Render("> ")
	}
	fmt.Fprintln(w, prefix+box+" "+text)
}

// Model is the Bubble Tea model of the todo list. Every edit goes through
// the store; the list is rebuilt from store snapshots.
type Model struct {
	opts Options
	list list.Model
	ti   textinput.Model
	mode mode

	targetID string // item being edited or assigned
	inputErr string

	showAssistant bool
	status        string
	statusSeq     int

	width, height int

	changes     <-chan store.Change
	invocations <-chan copilot.Invocation
	cancel      []func()
}

var (
	addBind       = key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add"))
	toggleBind    = key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle"))
	deleteBind    = key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete"))
	assignBind    = key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "assign"))
	editBind      = key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit"))
	assistantBind = key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "assistant"))
)

// New builds the model and subscribes to store and assistant events.
// Call Close when done.
func New(opts Options) *Model {
	l := list.New(nil, itemDelegate{}, 0, 0)
	l.SetShowHelp(true)
	l.SetShowPagination(true)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle
	l.Styles.HelpStyle = helpStyle
	l.Styles.PaginationStyle = helpStyle
	l.FilterInput.Prompt = "/ "
	l.SetStatusBarItemName("todo", "todos")
	l.KeyMap.ShowFullHelp.SetEnabled(false)
	l.KeyMap.CloseFullHelp.SetEnabled(false)
	extra := func() []key.Binding {
		return []key.Binding{addBind, toggleBind, deleteBind, assignBind, editBind, assistantBind}
	}
	l.AdditionalShortHelpKeys = extra
	l.AdditionalFullHelpKeys = extra

	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 200

	m := &Model{
		opts:          opts,
		list:          l,
		ti:            ti,
		showAssistant: opts.Popup.DefaultOpen,
		width:         80,
		height:        24,
	}

	ch, cancel := opts.Store.Subscribe()
	m.changes = ch
	m.cancel = append(m.cancel, cancel)
	if opts.Registry != nil {
		ich, icancel := opts.Registry.Subscribe()
		m.invocations = ich
		m.cancel = append(m.cancel, icancel)
	}

	m.setItems(opts.Store.Items())
	return m
}

// Close releases the event subscriptions.
func (m *Model) Close() {
	for _, c := range m.cancel {
		c()
	}
	m.cancel = nil
}

// Items returns the todos currently shown.
func (m *Model) Items() []model.Todo {
	out := make([]model.Todo, 0, len(m.list.Items()))
	for _, it := range m.list.Items() {
		if li, ok := it.(listItem); ok {
			out = append(out, li.todo)
		}
	}
	return out
}

// Status returns the last assistant status line.
func (m *Model) Status() string { return m.status }

func (m *Model) setItems(items []model.Todo) {
	idx := m.list.Index()
	li := make([]list.Item, 0, len(items))
	done := 0
	for _, it := range items {
		li = append(li, listItem{todo: it})
		if it.IsCompleted {
			done++
		}
	}
	m.list.SetItems(li)
	if idx >= len(li) {
		idx = len(li) - 1
	}
	if idx >= 0 {
		m.list.Select(idx)
	}

	m.list.Title = fmt.Sprintf("%s   %s %d  %s %d  %s %d",
		titleStyle.Render(m.opts.Popup.Title),
		successStyle.Render("✔"), done,
		pendingStyle.Render("•"), len(items)-done,
		accentStyle.Render("Total"), len(items),
	)
}

func (m *Model) refresh() { m.setItems(m.opts.Store.Items()) }

func (m *Model) selected() (model.Todo, bool) {
	li, ok := m.list.SelectedItem().(listItem)
	if !ok {
		return model.Todo{}, false
	}
	return li.todo, true
}

func waitForChange(ch <-chan store.Change) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		c, ok := <-ch
		if !ok {
			return nil
		}
		return changeMsg(c)
	}
}

func waitForInvocation(ch <-chan copilot.Invocation) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		inv, ok := <-ch
		if !ok {
			return nil
		}
		return invocationMsg(inv)
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(waitForChange(m.changes), waitForInvocation(m.invocations))
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil
	case changeMsg:
		m.setItems(msg.Items)
		return m, waitForChange(m.changes)
	case invocationMsg:
		m.statusSeq++
		m.status = msg.Render
		seq := m.statusSeq
		return m, tea.Batch(
			waitForInvocation(m.invocations),
			tea.Tick(statusTTL, func(time.Time) tea.Msg { return clearStatusMsg{seq: seq} }),
		)
	case clearStatusMsg:
		if msg.seq == m.statusSeq {
			m.status = ""
		}
		return m, nil
	}

	if m.mode != modeList {
		return m.updateInput(msg)
	}

	if km, ok := msg.(tea.KeyMsg); ok && m.list.FilterState() != list.Filtering {
		switch km.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			if t, ok := m.selected(); ok {
				m.opts.Store.Toggle(t.ID)
				m.refresh()
			}
			return m, nil
		case "d":
			if t, ok := m.selected(); ok {
				m.opts.Store.Delete(t.ID)
				m.refresh()
			}
			return m, nil
		case "a":
			return m, m.startInput(modeAdd, "", "", "New todo...")
		case "e":
			if t, ok := m.selected(); ok {
				return m, m.startInput(modeEdit, t.ID, t.Text, "Edit todo...")
			}
			return m, nil
		case "p":
			if t, ok := m.selected(); ok {
				return m, m.startInput(modeAssign, t.ID, t.AssignedTo, "Person...")
			}
			return m, nil
		case "?":
			m.showAssistant = !m.showAssistant
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) startInput(md mode, id, value, placeholder string) tea.Cmd {
	m.mode = md
	m.targetID = id
	m.inputErr = ""
	m.ti.Placeholder = placeholder
	m.ti.SetValue(value)
	m.ti.CursorEnd()
	return m.ti.Focus()
}

func (m *Model) stopInput() {
	m.mode = modeList
	m.targetID = ""
	m.inputErr = ""
	m.ti.SetValue("")
	m.ti.Blur()
}

func (m *Model) updateInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch km.String() {
		case "esc":
			m.stopInput()
			return m, nil
		case "enter":
			if m.submitInput() {
				m.stopInput()
				m.refresh()
			}
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.ti, cmd = m.ti.Update(msg)
	return m, cmd
}

// submitInput applies the pending input. It reports false when the input
// is rejected and the prompt should stay open.
func (m *Model) submitInput() bool {
	value := strings.TrimSpace(m.ti.Value())
	switch m.mode {
	case modeAdd:
		if value == "" {
			m.inputErr = "Text cannot be empty"
			return false
		}
		m.opts.Store.Add(value)
	case modeEdit:
		if value == "" {
			m.inputErr = "Text cannot be empty"
			return false
		}
		m.opts.Store.SetText(m.targetID, value)
	case modeAssign:
		m.opts.Store.Assign(m.targetID, value)
	}
	return true
}

func (m *Model) assistantMarkdown() string {
	var b strings.Builder
	p := m.opts.Popup
	fmt.Fprintf(&b, "## %s\n\n%s\n\n", p.Title, p.Initial)
	if m.status != "" {
		fmt.Fprintf(&b, "_%s_\n\n", m.status)
	}
	if m.opts.Registry != nil {
		actions := m.opts.Registry.List()
		fmt.Fprintf(&b, "**Actions** (%s)\n\n", fmtCount(len(actions), "tool", "tools"))
		for _, a := range actions {
			fmt.Fprintf(&b, "- `%s`: %s\n", a.Name, a.Description)
		}
		b.WriteString("\n")
	}
	if m.opts.Readables != nil {
		if ctx := m.opts.Readables.Context(); ctx != "" {
			fmt.Fprintf(&b, "**Context**\n\n```\n%s\n```\n\n", ctx)
		}
	}
	if m.opts.AgentURL != "" {
		fmt.Fprintf(&b, "Endpoint: `%s`\n", m.opts.AgentURL)
	}
	return b.String()
}

func (m *Model) View() string {
	w, h := m.width, m.height
	listHeight := h - 4
	if m.mode != modeList {
		listHeight -= 3
	}
	if m.status != "" {
		listHeight--
	}

	listWidth := w - 4
	var side string
	if m.showAssistant && w >= 60 {
		listWidth = w/2 - 4
		side = panelStyle.Width(w - listWidth - 8).Render(renderMarkdown(m.assistantMarkdown(), w-listWidth-10))
	}
	m.list.SetSize(listWidth, listHeight)

	content := m.list.View()
	if m.status != "" {
		content += "\n" + accentStyle.Render(m.status)
	}
	if m.mode != modeList {
		title := map[mode]string{modeAdd: "Add todo", modeEdit: "Edit todo", modeAssign: AssignPrompt}[m.mode]
		if m.inputErr != "" {
			title += "  " + errorStyle.Render(m.inputErr)
		}
		content += "\n" + panelStyle.Render(title+"\n"+m.ti.View())
	}

	main := panelStyle.Render(content)
	if side == "" {
		return main
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, main, side)
}

// Run starts the terminal UI and blocks until the user quits or ctx ends.
func Run(ctx context.Context, opts Options) error {
	m := New(opts)
	defer m.Close()
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
