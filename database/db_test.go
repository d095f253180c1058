package database

import (
	"context"
	"testing"

	"jdnotes/config"
	apperrors "jdnotes/errors"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:", config.AISettings{
		BaseURL: "https://default.example/v1",
		Model:   "default-model",
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.EnsureSchema(context.Background()))
	return store
}

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.EnsureSchema(context.Background()))
}

// Driver failures are tagged so callers can categorize them without
// knowing the driver's error types.
func TestDriverFailuresTaggedAsDatabaseOperation(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Close())

	_, err := store.CreateNote(context.Background(), "title", "content", nil)
	require.True(t, apperrors.IsDatabaseOperation(err), "create note after close: %v", err)

	err = store.ClearMessages(context.Background(), "note-1")
	require.True(t, apperrors.IsDatabaseOperation(err), "clear messages after close: %v", err)

	_, err = store.AISettings(context.Background())
	require.True(t, apperrors.IsDatabaseOperation(err), "read settings after close: %v", err)
}
