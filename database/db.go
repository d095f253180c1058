package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"jdnotes/config"
	apperrors "jdnotes/errors"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Note is a persisted note, including soft-deleted ones.
type Note struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Content         string     `json:"content"`
	Tags            []string   `json:"tags"`
	IsFavorite      bool       `json:"is_favorite"`
	IsDeleted       bool       `json:"is_deleted"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	ReminderDate    *time.Time `json:"reminder_date,omitempty"`
	ReminderEnabled bool       `json:"reminder_enabled"`
}

// ChatMessage is a single persisted chat message. Timestamp is unix
// milliseconds, assigned by the store at creation time.
type ChatMessage struct {
	ID        string `json:"id"`
	NoteID    string `json:"note_id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Store is the embedded SQLite store backing notes, chat history and
// runtime settings.
type Store struct {
	DB         *sql.DB
	aiDefaults config.AISettings
	logger     *zap.Logger
}

func Open(path string, aiDefaults config.AISettings, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY on concurrent handlers.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		return nil, dbErr("open database", err)
	}
	logger.Info("Opened notes database", zap.String("path", path))
	return &Store{DB: db, aiDefaults: aiDefaults, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}

// EnsureSchema creates the required tables if they do not already exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS notes (
            id TEXT PRIMARY KEY,
            title TEXT NOT NULL DEFAULT '',
            content TEXT NOT NULL DEFAULT '',
            tags TEXT NOT NULL DEFAULT '[]',
            is_favorite INTEGER NOT NULL DEFAULT 0,
            is_deleted INTEGER NOT NULL DEFAULT 0,
            created_at TEXT NOT NULL,
            updated_at TEXT NOT NULL,
            reminder_date TEXT,
            reminder_enabled INTEGER NOT NULL DEFAULT 0
        )`,
		`CREATE INDEX IF NOT EXISTS idx_notes_updated_at ON notes(updated_at DESC)`,
		`CREATE TABLE IF NOT EXISTS chat_messages (
            id TEXT PRIMARY KEY,
            note_id TEXT NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
            role TEXT NOT NULL,
            content TEXT NOT NULL,
            created_at INTEGER NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_chat_messages_note_created ON chat_messages(note_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS app_config (
            key TEXT PRIMARY KEY,
            value TEXT NOT NULL
        )`,
	}

	for _, stmt := range stmts {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return dbErr("execute schema statement", err)
		}
	}

	if _, err := s.DB.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		return dbErr("enable foreign keys", err)
	}

	return nil
}

// dbErr tags a driver failure with ErrDatabaseOperation so callers can
// categorize it without inspecting driver error types.
func dbErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, apperrors.ErrDatabaseOperation, err)
}
