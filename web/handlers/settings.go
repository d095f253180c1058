package handlers

import (
	"net/http"
	"strings"

	"jdnotes/config"
	"jdnotes/database"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SettingsHandler manages the model endpoint configuration. The key is
// never echoed back in full.
type SettingsHandler struct {
	store  *database.Store
	cfg    *config.Config
	logger *zap.Logger
}

type settingsResponse struct {
	BaseURL      string `json:"base_url"`
	Model        string `json:"model"`
	APIKeySet    bool   `json:"api_key_set"`
	APIKeyMasked string `json:"api_key_masked,omitempty"`
}

type settingsRequest struct {
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
	// Empty keeps the stored key; the masked value round-trips as empty.
	APIKey string `json:"api_key"`
}

func NewSettingsHandler(store *database.Store, cfg *config.Config, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{store: store, cfg: cfg, logger: logger}
}

// UIConfig returns the behavioral knobs the frontend needs at startup.
func (h *SettingsHandler) UIConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"error_dismiss_seconds": int(h.cfg.ErrorDismissDelay.Seconds()),
		"ghost_context_chars":   h.cfg.GhostContextChars,
		"suggested_tags_limit":  h.cfg.SuggestedTagsLimit,
	})
}

func (h *SettingsHandler) Get(c *gin.Context) {
	settings, err := h.store.AISettings(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settingsResponse{
		BaseURL:      settings.BaseURL,
		Model:        settings.Model,
		APIKeySet:    settings.APIKey != "",
		APIKeyMasked: maskKey(settings.APIKey),
	})
}

func (h *SettingsHandler) Update(c *gin.Context) {
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	current, err := h.store.AISettings(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	next := config.AISettings{
		BaseURL: strings.TrimSpace(req.BaseURL),
		Model:   strings.TrimSpace(req.Model),
		APIKey:  strings.TrimSpace(req.APIKey),
	}
	if next.BaseURL == "" {
		next.BaseURL = current.BaseURL
	}
	if next.Model == "" {
		next.Model = current.Model
	}
	if next.APIKey == "" {
		next.APIKey = current.APIKey
	}

	if err := h.store.SaveAISettings(c.Request.Context(), next); err != nil {
		respondError(c, err)
		return
	}
	h.logger.Info("AI settings updated",
		zap.String("base_url", next.BaseURL), zap.String("model", next.Model))
	c.JSON(http.StatusOK, settingsResponse{
		BaseURL:      next.BaseURL,
		Model:        next.Model,
		APIKeySet:    next.APIKey != "",
		APIKeyMasked: maskKey(next.APIKey),
	})
}

func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}
