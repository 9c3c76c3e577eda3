package checkpoint

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	store := NewStore(Config{Dir: t.TempDir(), Enabled: true})

	state := State{
		WorkflowID:     "wf-1",
		WorkflowName:   "deploy",
		CompletedSteps: []string{"step-a"},
		Steps: []StepState{
			{ID: "step-a", Name: "build", Status: StepCompleted},
			{ID: "step-b", Name: "deploy", Status: StepPending},
		},
	}
	require.NoError(t, store.Save(state))

	loaded, ok, err := store.Load("wf-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "deploy", loaded.WorkflowName)
	assert.Equal(t, []string{"step-a"}, loaded.CompletedSteps)
	assert.Len(t, loaded.Steps, 2)
}

func TestStore_LoadMissingReturnsFalseNotError(t *testing.T) {
	store := NewStore(Config{Dir: t.TempDir(), Enabled: true})
	_, ok, err := store.Load("does-not-exist")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_DisabledSaveIsNoOp(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(Config{Dir: dir, Enabled: false})
	require.NoError(t, store.Save(State{WorkflowID: "wf-2"}))

	matches, err := filepathGlob(dir)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func filepathGlob(dir string) ([]string, error) {
	return filepath.Glob(filepath.Join(dir, "*.json"))
}

func TestStore_DeleteRemovesFile(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(Config{Dir: dir, Enabled: true})
	require.NoError(t, store.Save(State{WorkflowID: "wf-3"}))

	matches, _ := filepathGlob(dir)
	require.Len(t, matches, 1)

	require.NoError(t, store.Delete("wf-3"))
	matches, _ = filepathGlob(dir)
	assert.Empty(t, matches)
}

func TestStore_DeleteMissingIsNoOp(t *testing.T) {
	store := NewStore(Config{Dir: t.TempDir(), Enabled: true})
	assert.NoError(t, store.Delete("never-existed"))
}
