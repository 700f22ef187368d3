package store

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idilsaglam/todo-copilot/internal/model"
)

func newTestStore() *Store {
	s := New()
	n := 0
	s.NewID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return s
}

func TestAddAppendsOpenTodo(t *testing.T) {
	s := newTestStore()
	s.Add("first")

	got, ok := s.Add("  Buy milk  ")
	require.True(t, ok)
	assert.Equal(t, model.Todo{ID: "id-2", Text: "Buy milk"}, got)

	items := s.Items()
	require.Len(t, items, 2)
	assert.Equal(t, got, items[1])
	assert.False(t, items[1].IsCompleted)
	assert.False(t, items[1].Assigned())
}

func TestAddIgnoresBlankText(t *testing.T) {
	s := newTestStore()
	for _, in := range []string{"", "   ", "\t\n"} {
		_, ok := s.Add(in)
		assert.False(t, ok, "input %q", in)
	}
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, uint64(0), s.Version())
}

func TestAddMintsUniqueIDs(t *testing.T) {
	s := New()
	a, _ := s.Add("a")
	b, _ := s.Add("b")
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestToggleFlipsOnlyTarget(t *testing.T) {
	s := newTestStore()
	a, _ := s.Add("a")
	b, _ := s.Add("b")

	require.True(t, s.Toggle(a.ID))
	got, _ := s.Get(a.ID)
	assert.True(t, got.IsCompleted)
	other, _ := s.Get(b.ID)
	assert.Equal(t, b, other)

	require.True(t, s.Toggle(a.ID))
	got, _ = s.Get(a.ID)
	assert.Equal(t, a, got)
}

func TestToggleMissingIsNoop(t *testing.T) {
	s := newTestStore()
	s.Add("a")
	before := s.Items()

	assert.False(t, s.Toggle("nope"))
	assert.Equal(t, before, s.Items())
	assert.Equal(t, uint64(1), s.Version())
}

func TestDeleteKeepsOrder(t *testing.T) {
	s := newTestStore()
	a, _ := s.Add("a")
	b, _ := s.Add("b")
	c, _ := s.Add("c")

	require.True(t, s.Delete(b.ID))
	assert.Equal(t, []model.Todo{a, c}, s.Items())

	assert.False(t, s.Delete(b.ID))
	assert.Equal(t, []model.Todo{a, c}, s.Items())
}

func TestAssignSetsAndClears(t *testing.T) {
	s := newTestStore()
	a, _ := s.Add("a")

	require.True(t, s.Assign(a.ID, "Ada"))
	got, _ := s.Get(a.ID)
	assert.Equal(t, "Ada", got.AssignedTo)

	require.True(t, s.Assign(a.ID, ""))
	got, _ = s.Get(a.ID)
	assert.False(t, got.Assigned())

	assert.False(t, s.Assign("missing", "Ada"))
}

func TestBulkUpsertOnEmptyList(t *testing.T) {
	s := newTestStore()
	in := model.Todo{ID: "x", Text: "A", AssignedTo: "YOU"}

	s.BulkUpsert([]model.Todo{in})
	assert.Equal(t, []model.Todo{in}, s.Items())
}

func TestBulkUpsertReplacesWholeRecord(t *testing.T) {
	s := newTestStore()
	s.BulkUpsert([]model.Todo{{ID: "x", Text: "A", IsCompleted: true, AssignedTo: "YOU"}})

	s.BulkUpsert([]model.Todo{{ID: "x", Text: "B"}})

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, model.Todo{ID: "x", Text: "B"}, items[0])
}

func TestBulkUpsertAppendsNewIDs(t *testing.T) {
	s := newTestStore()
	a, _ := s.Add("a")

	s.BulkUpsert([]model.Todo{{ID: "new", Text: "n", AssignedTo: "YOU"}})

	items := s.Items()
	require.Len(t, items, 2)
	assert.Equal(t, a, items[0])
	assert.Equal(t, "new", items[1].ID)
}

func TestBulkUpsertLaterDuplicateWins(t *testing.T) {
	s := newTestStore()
	s.BulkUpsert([]model.Todo{
		{ID: "x", Text: "first"},
		{ID: "y", Text: "other"},
		{ID: "x", Text: "second", IsCompleted: true},
	})

	assert.Equal(t, []model.Todo{
		{ID: "x", Text: "second", IsCompleted: true},
		{ID: "y", Text: "other"},
	}, s.Items())
}

func TestBulkUpsertMintsMissingID(t *testing.T) {
	s := newTestStore()
	s.BulkUpsert([]model.Todo{{Text: "no id"}})

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "id-1", items[0].ID)
}

func TestReplaceCollapsesDuplicateIDs(t *testing.T) {
	s := newTestStore()
	s.Add("dropped")
	s.Replace([]model.Todo{
		{ID: "x", Text: "first"},
		{ID: "y", Text: "other"},
		{ID: "x", Text: "second", IsCompleted: true},
		{Text: "no id"},
	})

	assert.Equal(t, []model.Todo{
		{ID: "x", Text: "second", IsCompleted: true},
		{ID: "y", Text: "other"},
		{ID: "id-2", Text: "no id"},
	}, s.Items())

	require.True(t, s.Delete("x"))
	assert.Equal(t, 2, s.Len())
}

func TestSetTextKeepsOtherFields(t *testing.T) {
	s := newTestStore()
	s.BulkUpsert([]model.Todo{{ID: "a", Text: "old", IsCompleted: true, AssignedTo: "Bob"}})
	v := s.Version()

	assert.False(t, s.SetText("a", "   "))
	assert.False(t, s.SetText("missing", "new"))
	assert.Equal(t, v, s.Version())

	require.True(t, s.SetText("a", " new "))
	assert.Equal(t, []model.Todo{{ID: "a", Text: "new", IsCompleted: true, AssignedTo: "Bob"}}, s.Items())
}

func TestSetTextAfterDeleteDoesNotResurrect(t *testing.T) {
	s := newTestStore()
	s.BulkUpsert([]model.Todo{{ID: "a", Text: "old"}})
	s.Delete("a")

	assert.False(t, s.SetText("a", "edited"))
	assert.Zero(t, s.Len())
}

func TestItemsIsACopy(t *testing.T) {
	s := newTestStore()
	s.Add("a")

	items := s.Items()
	items[0].Text = "mutated"

	got := s.Items()
	assert.Equal(t, "a", got[0].Text)
	assert.NotNil(t, New().Items())
}

func TestChangeNotifications(t *testing.T) {
	s := newTestStore()
	var seen []Op
	s.OnChange(func(c Change) { seen = append(seen, c.Op) })
	ch, cancel := s.Subscribe()
	defer cancel()

	a, _ := s.Add("a")
	s.Toggle(a.ID)
	s.Toggle("missing")
	s.Assign(a.ID, "Ada")
	s.BulkUpsert(nil)
	s.Delete(a.ID)

	assert.Equal(t, []Op{OpAdd, OpToggle, OpAssign, OpDelete}, seen)

	first := <-ch
	assert.Equal(t, OpAdd, first.Op)
	assert.Equal(t, uint64(1), first.Version)
	require.Len(t, first.Items, 1)
}

func TestConcurrentMutations(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Add(fmt.Sprintf("todo %d", i))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, s.Len())
	assert.Equal(t, uint64(50), s.Version())
}

func TestScenarioAddUpsertDelete(t *testing.T) {
	s := newTestStore()
	milk, ok := s.Add("Buy milk")
	require.True(t, ok)

	s.BulkUpsert([]model.Todo{{ID: milk.ID, Text: "Buy milk", IsCompleted: true, AssignedTo: "YOU"}})
	items := s.Items()
	require.Len(t, items, 1)
	assert.True(t, items[0].IsCompleted)
	assert.Equal(t, "YOU", items[0].AssignedTo)

	s.Delete(milk.ID)
	assert.Empty(t, s.Items())
}
