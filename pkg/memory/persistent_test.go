package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *PersistentStore {
	t.Helper()
	store, err := Open(DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPersistentStore_InsertIsIdempotent(t *testing.T) {
	store := openTestStore(t)
	msg := Message{Role: RoleUser, Content: "hello", Timestamp: time.Now(), TaskID: "task-1"}

	require.NoError(t, store.Insert(msg))
	require.NoError(t, store.Insert(msg)) // duplicate hash, must not error

	got, err := store.ByTaskID("task-1")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestPersistentStore_ByAgentIDAndRecent(t *testing.T) {
	store := openTestStore(t)
	now := time.Now()

	require.NoError(t, store.Insert(Message{Role: RoleAssistant, Content: "first", Timestamp: now, AgentID: "agent-a"}))
	require.NoError(t, store.Insert(Message{Role: RoleAssistant, Content: "second", Timestamp: now.Add(time.Minute), AgentID: "agent-a"}))
	require.NoError(t, store.Insert(Message{Role: RoleAssistant, Content: "third", Timestamp: now.Add(2 * time.Minute), AgentID: "agent-b"}))

	byAgent, err := store.ByAgentID("agent-a")
	require.NoError(t, err)
	assert.Len(t, byAgent, 2)

	recent, err := store.Recent(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "third", recent[0].Content)
}
