package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	apperrors "jdnotes/errors"

	"github.com/google/uuid"
)

// Note timestamps are stored as RFC3339 UTC text so lexicographic
// ordering in SQL matches chronological ordering.
const noteTimeLayout = time.RFC3339Nano

func (s *Store) CreateNote(ctx context.Context, title, content string, tags []string) (Note, error) {
	if tags == nil {
		tags = []string{}
	}
	note := Note{
		ID:        uuid.New().String(),
		Title:     title,
		Content:   content,
		Tags:      tags,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	tagsJSON, err := json.Marshal(note.Tags)
	if err != nil {
		return Note{}, fmt.Errorf("marshal tags: %w", err)
	}

	query := `
		INSERT INTO notes (id, title, content, tags, is_favorite, is_deleted, created_at, updated_at, reminder_enabled)
		VALUES (?, ?, ?, ?, 0, 0, ?, ?, 0)
	`
	_, err = s.DB.ExecContext(ctx, query,
		note.ID, note.Title, note.Content, string(tagsJSON),
		note.CreatedAt.Format(noteTimeLayout), note.UpdatedAt.Format(noteTimeLayout))
	if err != nil {
		return Note{}, dbErr("create note", err)
	}
	return note, nil
}

func (s *Store) GetNote(ctx context.Context, id string) (Note, error) {
	query := `
		SELECT id, title, content, tags, is_favorite, is_deleted, created_at, updated_at, reminder_date, reminder_enabled
		FROM notes WHERE id = ?
	`
	return s.scanNote(s.DB.QueryRowContext(ctx, query, id))
}

// ListNotes returns all notes that are not soft-deleted, favorites first,
// most recently updated first within each group.
func (s *Store) ListNotes(ctx context.Context) ([]Note, error) {
	query := `
		SELECT id, title, content, tags, is_favorite, is_deleted, created_at, updated_at, reminder_date, reminder_enabled
		FROM notes WHERE is_deleted = 0
		ORDER BY is_favorite DESC, updated_at DESC
	`
	return s.queryNotes(ctx, query)
}

// SearchNotes matches the term against note titles and content.
func (s *Store) SearchNotes(ctx context.Context, term string) ([]Note, error) {
	query := `
		SELECT id, title, content, tags, is_favorite, is_deleted, created_at, updated_at, reminder_date, reminder_enabled
		FROM notes
		WHERE is_deleted = 0 AND (title LIKE ? OR content LIKE ?)
		ORDER BY updated_at DESC
	`
	pattern := "%" + term + "%"
	return s.queryNotes(ctx, query, pattern, pattern)
}

func (s *Store) UpdateNote(ctx context.Context, id, title, content string, tags []string) error {
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	query := `
		UPDATE notes SET title = ?, content = ?, tags = ?, updated_at = ?
		WHERE id = ? AND is_deleted = 0
	`
	res, err := s.DB.ExecContext(ctx, query, title, content, string(tagsJSON),
		time.Now().UTC().Format(noteTimeLayout), id)
	if err != nil {
		return dbErr("update note", err)
	}
	return requireRow(res)
}

// UpdateNoteContent replaces only the serialized content, leaving title
// and tags untouched. Used by the ghost-review accept path.
func (s *Store) UpdateNoteContent(ctx context.Context, id, content string) error {
	query := `UPDATE notes SET content = ?, updated_at = ? WHERE id = ? AND is_deleted = 0`
	res, err := s.DB.ExecContext(ctx, query, content, time.Now().UTC().Format(noteTimeLayout), id)
	if err != nil {
		return dbErr("update note content", err)
	}
	return requireRow(res)
}

func (s *Store) SetFavorite(ctx context.Context, id string, favorite bool) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE notes SET is_favorite = ?, updated_at = ? WHERE id = ?`,
		boolToInt(favorite), time.Now().UTC().Format(noteTimeLayout), id)
	if err != nil {
		return dbErr("set favorite", err)
	}
	return requireRow(res)
}

func (s *Store) SetReminder(ctx context.Context, id string, at *time.Time, enabled bool) error {
	var dateValue interface{}
	if at != nil {
		dateValue = at.UTC().Format(noteTimeLayout)
	}
	res, err := s.DB.ExecContext(ctx,
		`UPDATE notes SET reminder_date = ?, reminder_enabled = ?, updated_at = ? WHERE id = ?`,
		dateValue, boolToInt(enabled), time.Now().UTC().Format(noteTimeLayout), id)
	if err != nil {
		return dbErr("set reminder", err)
	}
	return requireRow(res)
}

// DeleteNote soft-deletes the note; its chat history stays until purge.
func (s *Store) DeleteNote(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE notes SET is_deleted = 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC().Format(noteTimeLayout), id)
	if err != nil {
		return dbErr("delete note", err)
	}
	return requireRow(res)
}

// PurgeNote permanently removes a note and its chat messages.
func (s *Store) PurgeNote(ctx context.Context, id string) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chat_messages WHERE note_id = ?`, id); err != nil {
		return dbErr("purge chat messages", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id); err != nil {
		return dbErr("purge note", err)
	}
	return tx.Commit()
}

func (s *Store) queryNotes(ctx context.Context, query string, args ...interface{}) ([]Note, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []Note
	for rows.Next() {
		note, err := s.scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	return notes, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *Store) scanNote(row rowScanner) (Note, error) {
	var note Note
	var tagsJSON, createdAt, updatedAt string
	var reminderDate sql.NullString
	var favorite, deleted, reminderEnabled int

	err := row.Scan(&note.ID, &note.Title, &note.Content, &tagsJSON,
		&favorite, &deleted, &createdAt, &updatedAt, &reminderDate, &reminderEnabled)
	if err != nil {
		if err == sql.ErrNoRows {
			return Note{}, apperrors.ErrNotFound
		}
		return Note{}, err
	}

	if err := json.Unmarshal([]byte(tagsJSON), &note.Tags); err != nil {
		// Tolerate legacy rows with malformed tag payloads
		note.Tags = []string{}
	}
	note.IsFavorite = favorite != 0
	note.IsDeleted = deleted != 0
	note.ReminderEnabled = reminderEnabled != 0
	if note.CreatedAt, err = time.Parse(noteTimeLayout, createdAt); err != nil {
		return Note{}, fmt.Errorf("parse created_at: %w", err)
	}
	if note.UpdatedAt, err = time.Parse(noteTimeLayout, updatedAt); err != nil {
		return Note{}, fmt.Errorf("parse updated_at: %w", err)
	}
	if reminderDate.Valid {
		t, err := time.Parse(noteTimeLayout, reminderDate.String)
		if err == nil {
			note.ReminderDate = &t
		}
	}
	return note, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
