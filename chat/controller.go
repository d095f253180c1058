package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"jdnotes/database"
	apperrors "jdnotes/errors"
	"jdnotes/llm"

	"go.uber.org/zap"
)

// MessageStore is the slice of the persistence layer the controller
// consumes. Ids and timestamps are assigned by the store.
type MessageStore interface {
	CreateMessage(ctx context.Context, noteID, role, content string) (database.ChatMessage, error)
	ListMessages(ctx context.Context, noteID string) ([]database.ChatMessage, error)
	UpdateMessage(ctx context.Context, id, content string) error
	DeleteMessage(ctx context.Context, id string) error
	DeleteMessagesAfter(ctx context.Context, noteID string, timestamp int64) error
	ClearMessages(ctx context.Context, noteID string) error
}

// Streamer is the slice of the stream client the controller needs.
type Streamer interface {
	Start(ctx context.Context, req llm.Request, cb llm.Callbacks) error
	Cancel()
}

// Events let the API layer forward stream progress to the frontend.
// All optional.
type Events struct {
	OnChunk func(chunk string)
	OnDone  func()
	OnError func(message string)
}

// PendingExchange is the one transient exchange slot: the user text
// shown immediately but not yet persisted, and the assistant text
// accumulating while the stream runs. RetryMode means the user side is
// already in the log and only the assistant reply gets appended.
type PendingExchange struct {
	UserText      string
	AssistantText strings.Builder
	RetryMode     bool
}

// Snapshot is what the UI renders: the persisted log plus the transient
// exchange.
type Snapshot struct {
	Messages          []database.ChatMessage `json:"messages"`
	PendingUserText   string                 `json:"pending_user_text,omitempty"`
	StreamingResponse string                 `json:"streaming_response,omitempty"`
	Streaming         bool                   `json:"streaming"`
}

// persistTimeout bounds the DB writes that happen after the stream
// terminates, when the originating request context may already be gone.
const persistTimeout = 30 * time.Second

// Controller owns the conversation of one note: the persisted message
// list plus a single-slot pending exchange. Every terminal stream
// outcome resolves the pending exchange exactly once: persisted on
// finish, persisted as a formatted error entry on failure.
type Controller struct {
	noteID    string
	noteTitle string
	store     MessageStore
	client    Streamer
	logger    *zap.Logger

	mu       sync.Mutex
	messages []database.ChatMessage
	pending  *PendingExchange
}

func NewController(noteID, noteTitle string, store MessageStore, client Streamer, logger *zap.Logger) *Controller {
	return &Controller{
		noteID:    noteID,
		noteTitle: noteTitle,
		store:     store,
		client:    client,
		logger:    logger,
	}
}

// Load refreshes the persisted message list from the store.
func (c *Controller) Load(ctx context.Context) error {
	messages, err := c.store.ListMessages(ctx, c.noteID)
	if err != nil {
		return apperrors.WrapError(err, "load messages")
	}
	c.mu.Lock()
	c.messages = messages
	c.mu.Unlock()
	return nil
}

// Snapshot returns the current conversation view.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{Messages: append([]database.ChatMessage(nil), c.messages...)}
	if c.pending != nil {
		snap.Streaming = true
		snap.StreamingResponse = c.pending.AssistantText.String()
		if !c.pending.RetryMode {
			snap.PendingUserText = c.pending.UserText
		}
	}
	return snap
}

// Send starts a new exchange. Rejected when the text is empty, no note
// is bound, or an exchange is already streaming.
func (c *Controller) Send(ctx context.Context, text string, events Events) error {
	if c.noteID == "" {
		return apperrors.WrapError(apperrors.ErrInvalidInput, "no note selected")
	}
	if strings.TrimSpace(text) == "" {
		return apperrors.WrapError(apperrors.ErrInvalidInput, "message is empty")
	}

	c.mu.Lock()
	if c.pending != nil {
		c.mu.Unlock()
		return apperrors.ErrStreamActive
	}
	c.pending = &PendingExchange{UserText: text}
	c.mu.Unlock()

	return c.startStream(ctx, text, events)
}

// Edit rewrites a user message in place, truncates everything after it,
// and regenerates the assistant reply in retry mode.
func (c *Controller) Edit(ctx context.Context, messageID, newText string, events Events) error {
	if strings.TrimSpace(newText) == "" {
		return apperrors.WrapError(apperrors.ErrInvalidInput, "message is empty")
	}

	c.mu.Lock()
	if c.pending != nil {
		c.mu.Unlock()
		return apperrors.ErrStreamActive
	}
	target, ok := c.findLocked(messageID)
	if !ok {
		c.mu.Unlock()
		return apperrors.ErrNotFound
	}
	if target.Role != database.RoleUser {
		c.mu.Unlock()
		return apperrors.WrapError(apperrors.ErrInvalidInput, "only user messages can be edited")
	}
	c.pending = &PendingExchange{UserText: newText, RetryMode: true}
	c.mu.Unlock()

	// Collapse the conversation to the edited message before updating it
	if err := c.store.DeleteMessagesAfter(ctx, c.noteID, target.Timestamp); err != nil {
		c.clearPending()
		return apperrors.WrapError(err, "truncate conversation")
	}
	if err := c.store.UpdateMessage(ctx, messageID, newText); err != nil {
		c.clearPending()
		return apperrors.WrapError(err, "update message")
	}
	if err := c.Load(ctx); err != nil {
		c.clearPending()
		return err
	}

	return c.startStream(ctx, newText, events)
}

// Retry regenerates the reply for an assistant message using the
// immediately preceding user message. A no-op (state unchanged, started
// false) when that message is missing or not a user message.
func (c *Controller) Retry(ctx context.Context, assistantID string, events Events) (bool, error) {
	c.mu.Lock()
	if c.pending != nil {
		c.mu.Unlock()
		return false, apperrors.ErrStreamActive
	}
	idx := -1
	for i, msg := range c.messages {
		if msg.ID == assistantID {
			idx = i
			break
		}
	}
	if idx < 0 || c.messages[idx].Role != database.RoleAssistant {
		c.mu.Unlock()
		return false, nil
	}
	if idx == 0 || c.messages[idx-1].Role != database.RoleUser {
		c.mu.Unlock()
		return false, nil
	}
	userText := c.messages[idx-1].Content
	c.pending = &PendingExchange{UserText: userText, RetryMode: true}
	c.mu.Unlock()

	if err := c.store.DeleteMessage(ctx, assistantID); err != nil {
		c.clearPending()
		return false, apperrors.WrapError(err, "delete assistant message")
	}
	if err := c.Load(ctx); err != nil {
		c.clearPending()
		return false, err
	}

	if err := c.startStream(ctx, userText, events); err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes a single message, no cascade.
func (c *Controller) Delete(ctx context.Context, messageID string) error {
	if err := c.store.DeleteMessage(ctx, messageID); err != nil {
		return err
	}
	return c.Load(ctx)
}

// Clear cancels any active stream, wipes the note's conversation and
// resets transient state.
func (c *Controller) Clear(ctx context.Context) error {
	c.client.Cancel()

	c.mu.Lock()
	c.pending = nil
	c.mu.Unlock()

	if err := c.store.ClearMessages(ctx, c.noteID); err != nil {
		return apperrors.WrapError(err, "clear messages")
	}
	return c.Load(ctx)
}

func (c *Controller) startStream(ctx context.Context, userText string, events Events) error {
	req := llm.BuildChatPrompt(c.noteTitle, userText)

	err := c.client.Start(ctx, req, llm.Callbacks{
		OnChunk: func(chunk string) {
			c.mu.Lock()
			if c.pending != nil {
				c.pending.AssistantText.WriteString(chunk)
			}
			c.mu.Unlock()
			if events.OnChunk != nil {
				events.OnChunk(chunk)
			}
		},
		OnFinish: func(full string) { c.resolve(full, nil, events) },
		OnError:  func(err error) { c.resolve("", err, events) },
	})
	if err != nil {
		c.clearPending()
		return err
	}
	return nil
}

// resolve settles the pending exchange exactly once per stream session:
// the user message is persisted first (unless retry mode), then the
// assistant reply or a formatted error entry, so failures stay part of
// the visible conversation and can themselves be retried.
func (c *Controller) resolve(full string, streamErr error, events Events) {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()
	if pending == nil {
		return
	}

	// The originating request context may be cancelled by now; the
	// persistence writes must still land.
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	content := full
	if streamErr != nil {
		content = fmt.Sprintf("⚠️ Error: %v", streamErr)
	}

	if !pending.RetryMode {
		if _, err := c.store.CreateMessage(ctx, c.noteID, database.RoleUser, pending.UserText); err != nil {
			c.logger.Error("Failed to persist user message - CONVERSATION DATA MAY BE LOST",
				zap.Error(err), zap.String("note_id", c.noteID))
		}
	}
	if _, err := c.store.CreateMessage(ctx, c.noteID, database.RoleAssistant, content); err != nil {
		c.logger.Error("Failed to persist assistant message - CONVERSATION DATA MAY BE LOST",
			zap.Error(err), zap.String("note_id", c.noteID))
	}

	if err := c.Load(ctx); err != nil {
		c.logger.Error("Failed to reload conversation", zap.Error(err), zap.String("note_id", c.noteID))
	}

	if streamErr != nil {
		if events.OnError != nil {
			events.OnError(content)
		}
		return
	}
	if events.OnDone != nil {
		events.OnDone()
	}
}

func (c *Controller) clearPending() {
	c.mu.Lock()
	c.pending = nil
	c.mu.Unlock()
}

func (c *Controller) findLocked(messageID string) (database.ChatMessage, bool) {
	for _, msg := range c.messages {
		if msg.ID == messageID {
			return msg, true
		}
	}
	return database.ChatMessage{}, false
}
