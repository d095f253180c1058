package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"jdnotes/chat"
	"jdnotes/config"
	"jdnotes/database"
	apperrors "jdnotes/errors"
	"jdnotes/llm"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ChatHandler exposes the per-note conversation over the local API. One
// controller (with its own single-flight stream client) lives per note.
type ChatHandler struct {
	store  *database.Store
	cfg    *config.Config
	logger *zap.Logger

	mu          sync.Mutex
	controllers map[string]*chat.Controller
}

type chatSendRequest struct {
	Message string `json:"message" binding:"required"`
}

type chatEditRequest struct {
	MessageID string `json:"message_id" binding:"required"`
	Content   string `json:"content" binding:"required"`
}

type chatRetryRequest struct {
	MessageID string `json:"message_id" binding:"required"`
}

func NewChatHandler(store *database.Store, cfg *config.Config, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		store:       store,
		cfg:         cfg,
		logger:      logger,
		controllers: make(map[string]*chat.Controller),
	}
}

func (h *ChatHandler) controller(ctx context.Context, noteID string) (*chat.Controller, error) {
	note, err := h.store.GetNote(ctx, noteID)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if ctrl, ok := h.controllers[noteID]; ok {
		return ctrl, nil
	}
	client := llm.NewStreamClient(h.store, h.cfg.LLMRequestTimeout, h.logger)
	ctrl := chat.NewController(noteID, note.Title, h.store, client, h.logger)
	if err := ctrl.Load(ctx); err != nil {
		return nil, err
	}
	h.controllers[noteID] = ctrl
	return ctrl, nil
}

// GetConversation returns the persisted log plus any transient exchange.
func (h *ChatHandler) GetConversation(c *gin.Context) {
	ctrl, err := h.controller(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ctrl.Snapshot())
}

// Send streams a new exchange over SSE.
func (h *ChatHandler) Send(c *gin.Context) {
	var req chatSendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	h.stream(c, func(ctrl *chat.Controller, ctx context.Context, events chat.Events) (bool, error) {
		if err := ctrl.Send(ctx, req.Message, events); err != nil {
			return false, err
		}
		return true, nil
	})
}

// Edit truncates the conversation after the edited message and streams
// the regenerated reply.
func (h *ChatHandler) Edit(c *gin.Context) {
	var req chatEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	h.stream(c, func(ctrl *chat.Controller, ctx context.Context, events chat.Events) (bool, error) {
		if err := ctrl.Edit(ctx, req.MessageID, req.Content, events); err != nil {
			return false, err
		}
		return true, nil
	})
}

// Retry regenerates the reply for an assistant message.
func (h *ChatHandler) Retry(c *gin.Context) {
	var req chatRetryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	h.stream(c, func(ctrl *chat.Controller, ctx context.Context, events chat.Events) (bool, error) {
		return ctrl.Retry(ctx, req.MessageID, events)
	})
}

// DeleteMessage removes one message, no cascade.
func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	ctrl, err := h.controller(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if err := ctrl.Delete(c.Request.Context(), c.Param("messageID")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Clear wipes the note's conversation.
func (h *ChatHandler) Clear(c *gin.Context) {
	ctrl, err := h.controller(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if err := ctrl.Clear(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ChatHandler) stream(c *gin.Context, start func(*chat.Controller, context.Context, chat.Events) (bool, error)) {
	noteID := c.Param("id")
	ctrl, err := h.controller(c.Request.Context(), noteID)
	if err != nil {
		respondError(c, err)
		return
	}

	sse := newSSEWriter(c.Request.Context(), c.Writer)
	done := make(chan struct{})

	events := chat.Events{
		OnChunk: func(chunk string) {
			if err := sse.write(StreamData{Type: "chunk", Content: chunk}); err != nil {
				h.logger.Debug("Dropping chat chunk, client gone", zap.String("note_id", noteID))
			}
		},
		OnDone: func() {
			sse.write(StreamData{Type: "end"})
			close(done)
		},
		OnError: func(message string) {
			sse.write(StreamData{Type: "error", Content: message})
			close(done)
		},
	}

	// The stream is deliberately decoupled from the request context: if
	// the client disconnects mid-stream, the exchange still resolves and
	// persists exactly once. Abandoning a conversation is done through
	// the explicit clear endpoint.
	started, err := start(ctrl, context.Background(), events)
	if err != nil {
		respondError(c, err)
		return
	}
	if !started {
		sse.write(StreamData{Type: "end"})
		return
	}

	select {
	case <-done:
	case <-c.Request.Context().Done():
	}
}

func respondError(c *gin.Context, err error) {
	switch {
	case apperrors.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case apperrors.IsInvalidInput(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case apperrors.IsMissingAPIKey(err):
		c.JSON(http.StatusPreconditionFailed, gin.H{"error": "AI API key is not configured"})
	case apperrors.IsStreamActive(err), errors.Is(err, apperrors.ErrGhostActive):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrEmptyContext):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
