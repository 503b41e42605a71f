package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivay00001/RemotePilot/pkg/logger"
	"github.com/Shivay00001/RemotePilot/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "history.db"), logger.CreateTestLogger())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleEntry(id string, finished time.Time) Entry {
	return Entry{
		ID:     id,
		Goal:   "open the settings page",
		Status: string(types.StatusDone),
		Plan: types.Plan{
			types.CommandStep{Value: "ls -la"},
			types.ClickStep{X: 120, Y: 48},
		},
		CreatedAt:  finished.Add(-time.Minute),
		FinishedAt: finished,
	}
}

func TestStore_SaveAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	saved := sampleEntry("task-1", time.Now())
	require.NoError(t, store.Save(ctx, saved))

	got, err := store.Get(ctx, "task-1")
	require.NoError(t, err)

	assert.Equal(t, saved.ID, got.ID)
	assert.Equal(t, saved.Goal, got.Goal)
	assert.Equal(t, saved.Status, got.Status)
	assert.Empty(t, got.Error)
	assert.WithinDuration(t, saved.CreatedAt, got.CreatedAt, time.Second)
	assert.WithinDuration(t, saved.FinishedAt, got.FinishedAt, time.Second)

	// The plan survives as typed steps, not raw JSON.
	require.Len(t, got.Plan, 2)
	assert.Equal(t, types.CommandStep{Value: "ls -la"}, got.Plan[0])
	assert.Equal(t, types.ClickStep{X: 120, Y: 48}, got.Plan[1])
}

func TestStore_Get_Unknown(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "no-such-task")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found in history")
}

func TestStore_Save_KeepsFailureReason(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entry := sampleEntry("task-failed", time.Now())
	entry.Status = string(types.StatusFailed)
	entry.Error = "max re-plans exceeded"
	require.NoError(t, store.Save(ctx, entry))

	got, err := store.Get(ctx, "task-failed")
	require.NoError(t, err)
	assert.Equal(t, string(types.StatusFailed), got.Status)
	assert.Equal(t, "max re-plans exceeded", got.Error)
}

func TestStore_Save_ReplacesExistingRow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entry := sampleEntry("task-1", time.Now())
	require.NoError(t, store.Save(ctx, entry))

	entry.Status = string(types.StatusFailed)
	entry.Error = "CANCELLED"
	require.NoError(t, store.Save(ctx, entry))

	entries, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1, "saving the same id twice keeps one row")
	assert.Equal(t, string(types.StatusFailed), entries[0].Status)
	assert.Equal(t, "CANCELLED", entries[0].Error)
}

func TestStore_Recent_NewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	require.NoError(t, store.Save(ctx, sampleEntry("oldest", base)))
	require.NoError(t, store.Save(ctx, sampleEntry("middle", base.Add(10*time.Minute))))
	require.NoError(t, store.Save(ctx, sampleEntry("newest", base.Add(20*time.Minute))))

	entries, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "newest", entries[0].ID)
	assert.Equal(t, "middle", entries[1].ID)
	assert.Equal(t, "oldest", entries[2].ID)
}

func TestStore_Recent_HonorsLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Save(ctx, sampleEntry(id, base.Add(time.Duration(i)*time.Minute))))
	}

	entries, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "c", entries[0].ID)
	assert.Equal(t, "b", entries[1].ID)

	// A non-positive limit falls back to the default window.
	all, err := store.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestStore_Recent_EmptyDatabase(t *testing.T) {
	store := newTestStore(t)

	entries, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStore_ReopenSeesSavedRows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.db")
	ctx := context.Background()

	store, err := NewStore(path, logger.CreateTestLogger())
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, sampleEntry("task-1", time.Now())))
	require.NoError(t, store.Close())

	reopened, err := NewStore(path, logger.CreateTestLogger())
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, "task-1")
	require.NoError(t, err)
	assert.Equal(t, "open the settings page", got.Goal)
}
