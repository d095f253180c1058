package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"jdnotes/config"
	"jdnotes/database"
	"jdnotes/notes"
	"jdnotes/web/format"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SyncGate is consulted before frontend-driven content writes; the ghost
// review holds it while a generated edit is in flight or freshly applied.
type SyncGate interface {
	SyncBlocked(noteID string) bool
}

// NotesHandler exposes note CRUD, search, rendering, tag suggestion and
// PDF import.
type NotesHandler struct {
	store    *database.Store
	cfg      *config.Config
	logger   *zap.Logger
	renderer *format.Renderer
	importer *notes.PDFImporter
	gate     SyncGate
}

type noteRequest struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

type favoriteRequest struct {
	Favorite bool `json:"favorite"`
}

type reminderRequest struct {
	Date    string `json:"date"` // RFC3339, empty clears the date
	Enabled bool   `json:"enabled"`
}

func NewNotesHandler(store *database.Store, cfg *config.Config, renderer *format.Renderer, importer *notes.PDFImporter, gate SyncGate, logger *zap.Logger) *NotesHandler {
	return &NotesHandler{
		store:    store,
		cfg:      cfg,
		logger:   logger,
		renderer: renderer,
		importer: importer,
		gate:     gate,
	}
}

// List returns all live notes, or the search matches when ?q= is given.
func (h *NotesHandler) List(c *gin.Context) {
	var (
		result []database.Note
		err    error
	)
	if term := strings.TrimSpace(c.Query("q")); term != "" {
		result, err = h.store.SearchNotes(c.Request.Context(), term)
	} else {
		result, err = h.store.ListNotes(c.Request.Context())
	}
	if err != nil {
		respondError(c, err)
		return
	}
	if result == nil {
		result = []database.Note{}
	}
	c.JSON(http.StatusOK, result)
}

func (h *NotesHandler) Create(c *gin.Context) {
	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	note, err := h.store.CreateNote(c.Request.Context(), req.Title, req.Content, req.Tags)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, note)
}

func (h *NotesHandler) Get(c *gin.Context) {
	note, err := h.store.GetNote(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, note)
}

// Update rewrites title, content and tags. Rejected while a ghost review
// holds the note, so a stale frontend sync cannot clobber an applied
// edit.
func (h *NotesHandler) Update(c *gin.Context) {
	noteID := c.Param("id")
	if h.gate != nil && h.gate.SyncBlocked(noteID) {
		c.JSON(http.StatusConflict, gin.H{"error": "note is locked by an active review"})
		return
	}

	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if err := h.store.UpdateNote(c.Request.Context(), noteID, req.Title, req.Content, req.Tags); err != nil {
		respondError(c, err)
		return
	}
	note, err := h.store.GetNote(c.Request.Context(), noteID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, note)
}

// Delete soft-deletes by default; ?purge=true removes the note and its
// chat history permanently.
func (h *NotesHandler) Delete(c *gin.Context) {
	noteID := c.Param("id")
	var err error
	if c.Query("purge") == "true" {
		err = h.store.PurgeNote(c.Request.Context(), noteID)
	} else {
		err = h.store.DeleteNote(c.Request.Context(), noteID)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *NotesHandler) SetFavorite(c *gin.Context) {
	var req favoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if err := h.store.SetFavorite(c.Request.Context(), c.Param("id"), req.Favorite); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *NotesHandler) SetReminder(c *gin.Context) {
	var req reminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	var at *time.Time
	if req.Date != "" {
		parsed, err := time.Parse(time.RFC3339, req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reminder date"})
			return
		}
		at = &parsed
	}
	if err := h.store.SetReminder(c.Request.Context(), c.Param("id"), at, req.Enabled); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Render returns the note content as HTML for preview.
func (h *NotesHandler) Render(c *gin.Context) {
	note, err := h.store.GetNote(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	html := h.renderer.RenderNote(note.ID, note.UpdatedAt, note.Content)
	c.JSON(http.StatusOK, gin.H{"html": html})
}

// SuggestTags proposes tags derived from the note content.
func (h *NotesHandler) SuggestTags(c *gin.Context) {
	note, err := h.store.GetNote(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	tags, err := notes.SuggestTags(note.Content, h.cfg.SuggestedTagsLimit)
	if err != nil {
		respondError(c, err)
		return
	}
	if tags == nil {
		tags = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"tags": tags})
}

// ImportPDF creates a new note from an uploaded PDF.
func (h *NotesHandler) ImportPDF(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing pdf upload"})
		return
	}

	tmp, err := os.CreateTemp("", "jdnotes-import-*.pdf")
	if err != nil {
		respondError(c, err)
		return
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := c.SaveUploadedFile(file, tmpPath); err != nil {
		respondError(c, err)
		return
	}

	text, err := h.importer.ExtractText(tmpPath)
	if err != nil {
		h.logger.Warn("PDF import failed", zap.String("file", file.Filename), zap.Error(err))
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "could not extract text from pdf"})
		return
	}

	title := strings.TrimSuffix(filepath.Base(file.Filename), filepath.Ext(file.Filename))
	note, err := h.store.CreateNote(c.Request.Context(), title, text, nil)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, note)
}
