package handlers

import (
	"net/http"

	"jdnotes/database"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ExportHandler moves whole-database backups in and out as JSON.
type ExportHandler struct {
	store  *database.Store
	logger *zap.Logger
}

func NewExportHandler(store *database.Store, logger *zap.Logger) *ExportHandler {
	return &ExportHandler{store: store, logger: logger}
}

// Export returns the full backup, soft-deleted notes included.
func (h *ExportHandler) Export(c *gin.Context) {
	data, err := h.store.ExportJSON(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="jdnotes-export.json"`)
	c.JSON(http.StatusOK, data)
}

// Import upserts the posted backup by id and reports what was written.
func (h *ExportHandler) Import(c *gin.Context) {
	var data database.ExportData
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid export payload"})
		return
	}

	stats, err := h.store.ImportJSON(c.Request.Context(), data)
	if err != nil {
		respondError(c, err)
		return
	}
	h.logger.Info("Import completed",
		zap.Int("notes", stats.NotesImported),
		zap.Int("messages", stats.MessagesImported))
	c.JSON(http.StatusOK, stats)
}
