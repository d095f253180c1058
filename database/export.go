package database

import (
	"context"
	"encoding/json"
	"time"
)

// ExportData is the portable JSON backup format. Version is bumped only
// on breaking shape changes.
type ExportData struct {
	Version      string        `json:"version"`
	ExportedAt   string        `json:"exported_at"`
	Notes        []Note        `json:"notes"`
	ChatMessages []ChatMessage `json:"chat_messages"`
}

// ImportStats reports what an import actually wrote.
type ImportStats struct {
	NotesImported    int `json:"notes_imported"`
	MessagesImported int `json:"messages_imported"`
}

const exportVersion = "1.0"

// ExportJSON snapshots every note (including soft-deleted ones) and the
// full chat history.
func (s *Store) ExportJSON(ctx context.Context) (ExportData, error) {
	notes, err := s.queryNotes(ctx, `
		SELECT id, title, content, tags, is_favorite, is_deleted, created_at, updated_at, reminder_date, reminder_enabled
		FROM notes ORDER BY created_at ASC`)
	if err != nil {
		return ExportData{}, dbErr("export notes", err)
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, note_id, role, content, created_at FROM chat_messages ORDER BY created_at ASC, rowid ASC`)
	if err != nil {
		return ExportData{}, dbErr("export messages", err)
	}
	defer rows.Close()

	var messages []ChatMessage
	for rows.Next() {
		var msg ChatMessage
		if err := rows.Scan(&msg.ID, &msg.NoteID, &msg.Role, &msg.Content, &msg.Timestamp); err != nil {
			return ExportData{}, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return ExportData{}, err
	}

	return ExportData{
		Version:      exportVersion,
		ExportedAt:   time.Now().UTC().Format(time.RFC3339),
		Notes:        notes,
		ChatMessages: messages,
	}, nil
}

// ImportJSON upserts notes and messages by id. Existing rows with the
// same id are replaced, everything else is left alone.
func (s *Store) ImportJSON(ctx context.Context, data ExportData) (ImportStats, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return ImportStats{}, err
	}
	defer tx.Rollback()

	var stats ImportStats
	for _, note := range data.Notes {
		if note.ID == "" {
			continue
		}
		tagsJSON := "[]"
		if len(note.Tags) > 0 {
			tagsJSON = marshalTags(note.Tags)
		}
		var reminderDate interface{}
		if note.ReminderDate != nil {
			reminderDate = note.ReminderDate.UTC().Format(noteTimeLayout)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO notes (id, title, content, tags, is_favorite, is_deleted, created_at, updated_at, reminder_date, reminder_enabled)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			note.ID, note.Title, note.Content, tagsJSON,
			boolToInt(note.IsFavorite), boolToInt(note.IsDeleted),
			note.CreatedAt.UTC().Format(noteTimeLayout), note.UpdatedAt.UTC().Format(noteTimeLayout),
			reminderDate, boolToInt(note.ReminderEnabled))
		if err != nil {
			return ImportStats{}, dbErr("import note "+note.ID, err)
		}
		stats.NotesImported++
	}

	for _, msg := range data.ChatMessages {
		if msg.ID == "" || msg.NoteID == "" {
			continue
		}
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO chat_messages (id, note_id, role, content, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			msg.ID, msg.NoteID, msg.Role, msg.Content, msg.Timestamp)
		if err != nil {
			return ImportStats{}, dbErr("import message "+msg.ID, err)
		}
		stats.MessagesImported++
	}

	if err := tx.Commit(); err != nil {
		return ImportStats{}, err
	}
	return stats, nil
}

func marshalTags(tags []string) string {
	b, _ := json.Marshal(tags)
	return string(b)
}
