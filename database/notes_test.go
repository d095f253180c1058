package database

import (
	"context"
	"testing"
	"time"

	apperrors "jdnotes/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndGetNote(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.CreateNote(ctx, "Groceries", "- milk\n- eggs", []string{"shopping"})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	got, err := store.GetNote(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Groceries", got.Title)
	assert.Equal(t, "- milk\n- eggs", got.Content)
	assert.Equal(t, []string{"shopping"}, got.Tags)
	assert.False(t, got.IsFavorite)
	assert.False(t, got.IsDeleted)
	assert.WithinDuration(t, created.CreatedAt, got.CreatedAt, time.Millisecond)
}

func TestGetNoteNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetNote(context.Background(), "nope")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestListNotesFavoritesFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	plain, err := store.CreateNote(ctx, "plain", "", nil)
	require.NoError(t, err)
	starred, err := store.CreateNote(ctx, "starred", "", nil)
	require.NoError(t, err)
	require.NoError(t, store.SetFavorite(ctx, starred.ID, true))

	notes, err := store.ListNotes(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, starred.ID, notes[0].ID)
	assert.Equal(t, plain.ID, notes[1].ID)
}

func TestSearchNotes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	match, err := store.CreateNote(ctx, "Trip planning", "flights to Lisbon", nil)
	require.NoError(t, err)
	_, err = store.CreateNote(ctx, "Recipes", "pasta carbonara", nil)
	require.NoError(t, err)

	byTitle, err := store.SearchNotes(ctx, "Trip")
	require.NoError(t, err)
	require.Len(t, byTitle, 1)
	assert.Equal(t, match.ID, byTitle[0].ID)

	byContent, err := store.SearchNotes(ctx, "Lisbon")
	require.NoError(t, err)
	require.Len(t, byContent, 1)
	assert.Equal(t, match.ID, byContent[0].ID)

	none, err := store.SearchNotes(ctx, "zebra")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestUpdateNote(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	note, err := store.CreateNote(ctx, "old", "old body", nil)
	require.NoError(t, err)

	require.NoError(t, store.UpdateNote(ctx, note.ID, "new", "new body", []string{"a", "b"}))

	got, err := store.GetNote(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", got.Title)
	assert.Equal(t, "new body", got.Content)
	assert.Equal(t, []string{"a", "b"}, got.Tags)

	assert.ErrorIs(t, store.UpdateNote(ctx, "missing", "t", "c", nil), apperrors.ErrNotFound)
}

func TestUpdateNoteContentOnly(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	note, err := store.CreateNote(ctx, "title stays", "before", []string{"keep"})
	require.NoError(t, err)

	require.NoError(t, store.UpdateNoteContent(ctx, note.ID, "after"))

	got, err := store.GetNote(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, "after", got.Content)
	assert.Equal(t, "title stays", got.Title)
	assert.Equal(t, []string{"keep"}, got.Tags)
}

func TestSetReminder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	note, err := store.CreateNote(ctx, "call dentist", "", nil)
	require.NoError(t, err)

	when := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
	require.NoError(t, store.SetReminder(ctx, note.ID, &when, true))

	got, err := store.GetNote(ctx, note.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ReminderDate)
	assert.True(t, got.ReminderEnabled)
	assert.True(t, when.Equal(*got.ReminderDate))

	require.NoError(t, store.SetReminder(ctx, note.ID, nil, false))
	got, err = store.GetNote(ctx, note.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ReminderDate)
	assert.False(t, got.ReminderEnabled)
}

func TestDeleteNoteIsSoft(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	note, err := store.CreateNote(ctx, "gone soon", "", nil)
	require.NoError(t, err)
	require.NoError(t, store.DeleteNote(ctx, note.ID))

	notes, err := store.ListNotes(ctx)
	require.NoError(t, err)
	assert.Empty(t, notes)

	// The row survives and is still readable directly.
	got, err := store.GetNote(ctx, note.ID)
	require.NoError(t, err)
	assert.True(t, got.IsDeleted)
}

func TestPurgeNoteRemovesChatHistory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	note, err := store.CreateNote(ctx, "purge me", "", nil)
	require.NoError(t, err)
	_, err = store.CreateMessage(ctx, note.ID, RoleUser, "hello")
	require.NoError(t, err)

	require.NoError(t, store.PurgeNote(ctx, note.ID))

	_, err = store.GetNote(ctx, note.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	messages, err := store.ListMessages(ctx, note.ID)
	require.NoError(t, err)
	assert.Empty(t, messages)
}
