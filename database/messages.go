package database

import (
	"context"
	"database/sql"
	"errors"
	"sync/atomic"
	"time"

	apperrors "jdnotes/errors"

	"github.com/google/uuid"
)

// lastStamp makes message timestamps strictly monotonic even when two
// writes land in the same millisecond, so "later than" cascades stay
// well defined.
var lastStamp atomic.Int64

func nextTimestamp() int64 {
	for {
		now := time.Now().UnixMilli()
		prev := lastStamp.Load()
		if now <= prev {
			now = prev + 1
		}
		if lastStamp.CompareAndSwap(prev, now) {
			return now
		}
	}
}

// CreateMessage appends a message to a note's conversation. The id and
// timestamp are assigned here, not by the caller.
func (s *Store) CreateMessage(ctx context.Context, noteID, role, content string) (ChatMessage, error) {
	msg := ChatMessage{
		ID:        uuid.New().String(),
		NoteID:    noteID,
		Role:      role,
		Content:   content,
		Timestamp: nextTimestamp(),
	}
	query := `
		INSERT INTO chat_messages (id, note_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := s.DB.ExecContext(ctx, query, msg.ID, msg.NoteID, msg.Role, msg.Content, msg.Timestamp)
	if err != nil {
		return ChatMessage{}, dbErr("create message", err)
	}
	return msg, nil
}

// ListMessages returns the note's conversation in chronological order.
func (s *Store) ListMessages(ctx context.Context, noteID string) ([]ChatMessage, error) {
	query := `
		SELECT id, note_id, role, content, created_at FROM chat_messages
		WHERE note_id = ? ORDER BY created_at ASC, rowid ASC
	`
	rows, err := s.DB.QueryContext(ctx, query, noteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []ChatMessage
	for rows.Next() {
		var msg ChatMessage
		if err := rows.Scan(&msg.ID, &msg.NoteID, &msg.Role, &msg.Content, &msg.Timestamp); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (s *Store) GetMessage(ctx context.Context, id string) (ChatMessage, error) {
	query := `SELECT id, note_id, role, content, created_at FROM chat_messages WHERE id = ?`
	var msg ChatMessage
	err := s.DB.QueryRowContext(ctx, query, id).Scan(&msg.ID, &msg.NoteID, &msg.Role, &msg.Content, &msg.Timestamp)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ChatMessage{}, apperrors.ErrNotFound
		}
		return ChatMessage{}, err
	}
	return msg, nil
}

// UpdateMessage replaces a message's content in place. The timestamp is
// intentionally left untouched so the message keeps its position in the
// conversation.
func (s *Store) UpdateMessage(ctx context.Context, id, content string) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE chat_messages SET content = ? WHERE id = ?`, content, id)
	if err != nil {
		return dbErr("update message", err)
	}
	return requireRow(res)
}

func (s *Store) DeleteMessage(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM chat_messages WHERE id = ?`, id)
	if err != nil {
		return dbErr("delete message", err)
	}
	return requireRow(res)
}

// DeleteMessagesAfter removes every message in the note strictly later
// than the given timestamp. Used by the edit flow to collapse the
// conversation back to the edited message.
func (s *Store) DeleteMessagesAfter(ctx context.Context, noteID string, timestamp int64) error {
	_, err := s.DB.ExecContext(ctx,
		`DELETE FROM chat_messages WHERE note_id = ? AND created_at > ?`, noteID, timestamp)
	if err != nil {
		return dbErr("delete messages after cutoff", err)
	}
	return nil
}

// ClearMessages removes the whole conversation for a note.
func (s *Store) ClearMessages(ctx context.Context, noteID string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM chat_messages WHERE note_id = ?`, noteID)
	if err != nil {
		return dbErr("clear messages", err)
	}
	return nil
}
