package jsonstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idilsaglam/todo-copilot/internal/model"
)

func TestLoadMissingFileIsEmpty(t *testing.T) {
	items, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestSaveThenLoad(t *testing.T) {
	p := filepath.Join(t.TempDir(), "nested", "todos.json")
	want := []model.Todo{
		{ID: "a", Text: "Buy milk", IsCompleted: true, AssignedTo: "YOU"},
		{ID: "b", Text: "Walk dog"},
	}

	require.NoError(t, Save(p, want))
	got, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	raw, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"assignedTo": ""`)
}

func TestLoadRejectsGarbage(t *testing.T) {
	p := filepath.Join(t.TempDir(), "todos.json")
	require.NoError(t, os.WriteFile(p, []byte("{not json"), 0o644))

	_, err := Load(p)
	assert.ErrorContains(t, err, "json unmarshal")
}

func TestLoadNullIsEmpty(t *testing.T) {
	p := filepath.Join(t.TempDir(), "todos.json")
	require.NoError(t, os.WriteFile(p, []byte("null"), 0o644))

	items, err := Load(p)
	require.NoError(t, err)
	assert.NotNil(t, items)
}
