package handlers

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"jdnotes/config"
	"jdnotes/database"
	"jdnotes/editor"
	apperrors "jdnotes/errors"
	"jdnotes/llm"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ghostPersistTimeout bounds the content write that follows an accept or
// rollback, which runs after the originating request may be gone.
const ghostPersistTimeout = 30 * time.Second

// GhostHandler drives the in-document ghost-text review over the local
// API. The frontend ships its editor state (content, selection offsets,
// anchor position) with the activation request; the review runs against
// that snapshot and the result lands back in the store.
type GhostHandler struct {
	store  *database.Store
	cfg    *config.Config
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[string]*ghostSession
}

// ghostSession is the per-note review slot. The stream client and sync
// lease live as long as the note is open; the controller and surface are
// replaced on each activation.
type ghostSession struct {
	client *llm.StreamClient
	lease  *editor.SyncLease

	ctrl    *editor.DiffController
	surface *editor.SnapshotSurface
}

type ghostActivateRequest struct {
	Action        string  `json:"action"`
	Template      string  `json:"template"`
	Instruction   string  `json:"instruction"`
	Language      string  `json:"language"`
	Content       string  `json:"content"`
	SelectionFrom int     `json:"selection_from"`
	SelectionTo   int     `json:"selection_to"`
	ScreenTop     float64 `json:"screen_top"`
	ScreenLeft    float64 `json:"screen_left"`
}

type ghostSnapshotResponse struct {
	State         string          `json:"state"`
	Action        llm.ActionKind  `json:"action,omitempty"`
	OriginalText  string          `json:"original_text,omitempty"`
	GeneratedText string          `json:"generated_text"`
	Position      editor.Position `json:"position"`
	Editable      bool            `json:"editable"`
}

type ghostResolveResponse struct {
	State   string `json:"state"`
	Content string `json:"content"`
}

func NewGhostHandler(store *database.Store, cfg *config.Config, logger *zap.Logger) *GhostHandler {
	return &GhostHandler{
		store:    store,
		cfg:      cfg,
		logger:   logger,
		sessions: make(map[string]*ghostSession),
	}
}

// Activate starts a document action and streams the generated ghost text
// over SSE. With no explicit action in the request, the text before the
// selection is checked for a trailing slash command, which is stripped
// from the snapshot before generation.
func (h *GhostHandler) Activate(c *gin.Context) {
	noteID := c.Param("id")
	var req ghostActivateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	note, err := h.store.GetNote(c.Request.Context(), noteID)
	if err != nil {
		respondError(c, err)
		return
	}

	action := llm.ActionKind(req.Action)
	template := llm.TemplateKind(req.Template)
	instruction := req.Instruction
	content := req.Content
	selFrom := clampOffset(req.SelectionFrom, len([]rune(content)))
	selTo := clampOffset(req.SelectionTo, len([]rune(content)))

	if req.Action == "" {
		trigger, ok := editor.DetectSlashCommand(string([]rune(content)[:selFrom]))
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no action given and no slash command found"})
			return
		}
		action = trigger.Action
		template = trigger.Template
		instruction = trigger.Instruction
		content, selFrom = stripCommandLine(content, selFrom)
		selTo = selFrom
	}

	h.mu.Lock()
	sess, ok := h.sessions[noteID]
	if !ok {
		sess = &ghostSession{
			client: llm.NewStreamClient(h.store, h.cfg.LLMRequestTimeout, h.logger),
			lease:  editor.NewSyncLease(h.cfg.SyncLeaseTimeout),
		}
		h.sessions[noteID] = sess
	}
	if sess.ctrl != nil && sess.ctrl.Snapshot().State != editor.StateInactive {
		h.mu.Unlock()
		respondError(c, apperrors.ErrGhostActive)
		return
	}

	surface := editor.NewSnapshotSurface(content,
		editor.Selection{From: selFrom, To: selTo},
		editor.Position{Top: req.ScreenTop, Left: req.ScreenLeft})
	host := &ghostHost{noteID: noteID, store: h.store, lease: sess.lease, logger: h.logger}
	ctrl := editor.NewDiffController(surface, host, sess.client, sess.lease, h.logger)
	sess.ctrl = ctrl
	sess.surface = surface
	h.mu.Unlock()

	sse := newSSEWriter(c.Request.Context(), c.Writer)
	done := make(chan struct{})

	events := editor.Events{
		OnChunk: func(chunk string) {
			if err := sse.write(StreamData{Type: "chunk", Content: chunk}); err != nil {
				h.logger.Debug("Dropping ghost chunk, client gone", zap.String("note_id", noteID))
			}
		},
		OnFinish: func(full string) {
			sse.write(StreamData{Type: "end", Content: full})
			close(done)
		},
		OnError: func(message string) {
			sse.write(StreamData{Type: "error", Content: message})
			close(done)
		},
	}

	// Decoupled from the request context: a client disconnect mid-stream
	// leaves the review in place, and the frontend picks it back up from
	// the snapshot endpoint.
	err = ctrl.Activate(context.Background(), action, editor.ActivateOptions{
		NoteTitle:    note.Title,
		Instruction:  instruction,
		Language:     req.Language,
		Template:     template,
		ContextChars: h.cfg.GhostContextChars,
		Events:       events,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	select {
	case <-done:
	case <-c.Request.Context().Done():
	}
}

// Snapshot returns the current review state for the note.
func (h *GhostHandler) Snapshot(c *gin.Context) {
	h.mu.Lock()
	sess := h.sessions[c.Param("id")]
	h.mu.Unlock()

	if sess == nil || sess.ctrl == nil {
		c.JSON(http.StatusOK, ghostSnapshotResponse{State: editor.StateInactive.String(), Editable: true})
		return
	}

	snap := sess.ctrl.Snapshot()
	c.JSON(http.StatusOK, ghostSnapshotResponse{
		State:         snap.State.String(),
		Action:        snap.Action,
		OriginalText:  snap.OriginalText,
		GeneratedText: snap.GeneratedText,
		Position:      snap.Position,
		Editable:      sess.surface.Editable(),
	})
}

// Accept commits the generated text and returns the updated content.
func (h *GhostHandler) Accept(c *gin.Context) {
	h.mu.Lock()
	sess := h.sessions[c.Param("id")]
	h.mu.Unlock()

	if sess == nil || sess.ctrl == nil {
		respondError(c, apperrors.WrapError(apperrors.ErrNotFound, "no ghost review"))
		return
	}
	if err := sess.ctrl.Accept(); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ghostResolveResponse{
		State:   editor.StateInactive.String(),
		Content: sess.surface.SerializedContent(),
	})
}

// Discard abandons the review, mid-stream or not, and returns the
// restored content.
func (h *GhostHandler) Discard(c *gin.Context) {
	h.mu.Lock()
	sess := h.sessions[c.Param("id")]
	h.mu.Unlock()

	if sess == nil || sess.ctrl == nil {
		respondError(c, apperrors.WrapError(apperrors.ErrNotFound, "no ghost review"))
		return
	}
	sess.ctrl.Discard()
	c.JSON(http.StatusOK, ghostResolveResponse{
		State:   editor.StateInactive.String(),
		Content: sess.surface.SerializedContent(),
	})
}

// Actions lists the editor's AI context-menu entries.
func (h *GhostHandler) Actions(c *gin.Context) {
	c.JSON(http.StatusOK, editor.MenuActions())
}

// SyncBlocked reports whether frontend-driven content updates for the
// note must be held off: a review is in flight, or the sync lease from a
// just-applied edit has not expired yet.
func (h *GhostHandler) SyncBlocked(noteID string) bool {
	h.mu.Lock()
	sess := h.sessions[noteID]
	h.mu.Unlock()

	if sess == nil {
		return false
	}
	if sess.lease.Held() {
		return true
	}
	return sess.ctrl != nil && sess.ctrl.Snapshot().State != editor.StateInactive
}

// ghostHost receives review outcomes: accepted or restored content is
// persisted, stream failures are logged (the SSE error event carries
// them to the frontend).
type ghostHost struct {
	noteID string
	store  *database.Store
	lease  *editor.SyncLease
	logger *zap.Logger
}

func (g *ghostHost) ContentChanged(serialized string) {
	ctx, cancel := context.WithTimeout(context.Background(), ghostPersistTimeout)
	defer cancel()

	if err := g.store.UpdateNoteContent(ctx, g.noteID, serialized); err != nil {
		g.logger.Error("Failed to persist note content after review",
			zap.Error(err), zap.String("note_id", g.noteID))
		return
	}
	g.lease.Release()
}

func (g *ghostHost) ShowError(message string) {
	g.logger.Warn("Document action failed", zap.String("note_id", g.noteID), zap.String("message", message))
}

// stripCommandLine removes the slash command line ending at cursor and
// returns the shortened content with the new cursor offset.
func stripCommandLine(content string, cursor int) (string, int) {
	runes := []rune(content)
	lineStart := 0
	for i := cursor - 1; i >= 0; i-- {
		if runes[i] == '\n' {
			lineStart = i + 1
			break
		}
	}
	var b strings.Builder
	b.WriteString(string(runes[:lineStart]))
	b.WriteString(string(runes[cursor:]))
	return b.String(), lineStart
}

func clampOffset(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}
