package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"jdnotes/config"
	"jdnotes/database"
	apperrors "jdnotes/errors"
	"jdnotes/notes"
	"jdnotes/web/format"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig() *config.Config {
	return &config.Config{
		LLMRequestTimeout:  5 * time.Second,
		GhostContextChars:  400,
		SyncLeaseTimeout:   200 * time.Millisecond,
		RenderCacheSize:    16,
		ImportMaxPDFPages:  10,
		SuggestedTagsLimit: 5,
	}
}

func newTestRouter(t *testing.T) (*gin.Engine, *database.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := database.Open(":memory:", config.AISettings{Model: "m"}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.EnsureSchema(context.Background()))

	cfg := testConfig()
	renderer, err := format.NewRenderer(cfg.RenderCacheSize)
	require.NoError(t, err)
	importer := notes.NewPDFImporter(cfg.ImportMaxPDFPages, zap.NewNop())

	ghostHandler := NewGhostHandler(store, cfg, zap.NewNop())
	notesHandler := NewNotesHandler(store, cfg, renderer, importer, ghostHandler, zap.NewNop())
	chatHandler := NewChatHandler(store, cfg, zap.NewNop())
	settingsHandler := NewSettingsHandler(store, cfg, zap.NewNop())
	exportHandler := NewExportHandler(store, zap.NewNop())

	r := gin.New()
	api := r.Group("/api")
	api.GET("/notes", notesHandler.List)
	api.POST("/notes", notesHandler.Create)
	api.GET("/notes/:id", notesHandler.Get)
	api.PUT("/notes/:id", notesHandler.Update)
	api.DELETE("/notes/:id", notesHandler.Delete)
	api.POST("/notes/:id/favorite", notesHandler.SetFavorite)
	api.GET("/notes/:id/render", notesHandler.Render)
	api.GET("/notes/:id/ghost", ghostHandler.Snapshot)
	api.POST("/notes/:id/ghost", ghostHandler.Activate)
	api.POST("/notes/:id/ghost/accept", ghostHandler.Accept)
	api.POST("/notes/:id/ghost/discard", ghostHandler.Discard)
	api.GET("/notes/:id/chat", chatHandler.GetConversation)
	api.POST("/notes/:id/chat", chatHandler.Send)
	api.GET("/settings", settingsHandler.Get)
	api.PUT("/settings", settingsHandler.Update)
	api.GET("/export", exportHandler.Export)
	api.POST("/import", exportHandler.Import)
	return r, store
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestNoteCRUDOverHTTP(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/notes", noteRequest{Title: "first", Content: "body"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created database.Note
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)

	w = doJSON(t, r, http.MethodGet, "/api/notes/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodPut, "/api/notes/"+created.ID, noteRequest{Title: "renamed", Content: "new body"})
	require.Equal(t, http.StatusOK, w.Code)
	var updated database.Note
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, "renamed", updated.Title)

	w = doJSON(t, r, http.MethodGet, "/api/notes", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []database.Note
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	w = doJSON(t, r, http.MethodDelete, "/api/notes/"+created.ID, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/notes", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list = nil
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Empty(t, list)
}

func TestGetNoteNotFoundMapsTo404(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doJSON(t, r, http.MethodGet, "/api/notes/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRenderEndpoint(t *testing.T) {
	r, store := newTestRouter(t)
	note, err := store.CreateNote(context.Background(), "md", "# Heading", nil)
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/notes/%s/render", note.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp["html"], "<h1")
}

func TestGhostSnapshotDefaultsToInactive(t *testing.T) {
	r, store := newTestRouter(t)
	note, err := store.CreateNote(context.Background(), "n", "", nil)
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/notes/%s/ghost", note.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var snap ghostSnapshotResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, "inactive", snap.State)
	assert.True(t, snap.Editable)
}

func TestChatConversationEndpoint(t *testing.T) {
	r, store := newTestRouter(t)
	note, err := store.CreateNote(context.Background(), "talkative", "", nil)
	require.NoError(t, err)
	_, err = store.CreateMessage(context.Background(), note.ID, database.RoleUser, "hi")
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/notes/%s/chat", note.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var snap struct {
		Messages  []database.ChatMessage `json:"messages"`
		Streaming bool                   `json:"streaming"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Len(t, snap.Messages, 1)
	assert.False(t, snap.Streaming)

	w = doJSON(t, r, http.MethodGet, "/api/notes/missing/chat", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSettingsMaskKey(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPut, "/api/settings", settingsRequest{
		BaseURL: "https://api.example/v1",
		Model:   "model-x",
		APIKey:  "sk-abcdefghijklmnop",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var resp settingsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.APIKeySet)
	assert.NotContains(t, resp.APIKeyMasked, "abcdefghijkl")

	// Empty key on update keeps the stored one.
	w = doJSON(t, r, http.MethodPut, "/api/settings", settingsRequest{Model: "model-y"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.APIKeySet)
	assert.Equal(t, "model-y", resp.Model)

	w = doJSON(t, r, http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "https://api.example/v1", resp.BaseURL)
}

func TestExportImportEndpoints(t *testing.T) {
	r, store := newTestRouter(t)
	_, err := store.CreateNote(context.Background(), "backed up", "content", nil)
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodGet, "/api/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var data database.ExportData
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &data))
	require.Len(t, data.Notes, 1)

	w = doJSON(t, r, http.MethodPost, "/api/import", data)
	require.Equal(t, http.StatusOK, w.Code)
	var stats database.ImportStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.NotesImported)
}

// fakeModelServer speaks just enough of the streaming completion
// protocol to drive the SSE handlers end to end.
func fakeModelServer(t *testing.T, chunks ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, chunk := range chunks {
			quoted, _ := json.Marshal(chunk)
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%s}}]}\n\n", quoted)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(srv.Close)
	return srv
}

func configureModel(t *testing.T, store *database.Store, baseURL string) {
	t.Helper()
	require.NoError(t, store.SaveAISettings(context.Background(), config.AISettings{
		BaseURL: baseURL,
		APIKey:  "sk-test",
		Model:   "test-model",
	}))
}

func TestGhostFlowOverHTTP(t *testing.T) {
	r, store := newTestRouter(t)
	llm := fakeModelServer(t, "kind ")
	configureModel(t, store, llm.URL)

	note, err := store.CreateNote(context.Background(), "greeting", "Hello cruel world", nil)
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/notes/%s/ghost", note.ID), ghostActivateRequest{
		Action:        "refine",
		Content:       "Hello cruel world",
		SelectionFrom: 6,
		SelectionTo:   12,
	})
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `"type":"chunk"`)
	assert.Contains(t, body, `"type":"end"`)

	w = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/notes/%s/ghost", note.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var snap ghostSnapshotResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, "reviewing", snap.State)
	assert.Equal(t, "kind ", snap.GeneratedText)

	w = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/notes/%s/ghost/accept", note.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resolved ghostResolveResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resolved))
	assert.Equal(t, "Hello kind world", resolved.Content)

	got, err := store.GetNote(context.Background(), note.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hello kind world", got.Content)
}

func TestGhostDiscardOverHTTP(t *testing.T) {
	r, store := newTestRouter(t)
	llm := fakeModelServer(t, "whatever")
	configureModel(t, store, llm.URL)

	note, err := store.CreateNote(context.Background(), "greeting", "Hello cruel world", nil)
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/notes/%s/ghost", note.ID), ghostActivateRequest{
		Action:        "refine",
		Content:       "Hello cruel world",
		SelectionFrom: 6,
		SelectionTo:   12,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/notes/%s/ghost/discard", note.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resolved ghostResolveResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resolved))
	assert.Equal(t, "Hello cruel world", resolved.Content)
}

func TestGhostActivateRequiresAPIKey(t *testing.T) {
	r, store := newTestRouter(t)
	note, err := store.CreateNote(context.Background(), "n", "some text here", nil)
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/notes/%s/ghost", note.ID), ghostActivateRequest{
		Action:        "refine",
		Content:       "some text here",
		SelectionFrom: 0,
		SelectionTo:   4,
	})
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)
}

func TestChatSendOverHTTP(t *testing.T) {
	r, store := newTestRouter(t)
	llm := fakeModelServer(t, "it is ", "a note")
	configureModel(t, store, llm.URL)

	note, err := store.CreateNote(context.Background(), "subject", "", nil)
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/notes/%s/chat", note.ID), chatSendRequest{
		Message: "what is this?",
	})
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `"type":"chunk"`)
	assert.Contains(t, body, `"type":"end"`)

	messages, err := store.ListMessages(context.Background(), note.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, database.RoleUser, messages[0].Role)
	assert.Equal(t, "what is this?", messages[0].Content)
	assert.Equal(t, database.RoleAssistant, messages[1].Role)
	assert.Equal(t, "it is a note", messages[1].Content)
}

func TestRespondErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{apperrors.ErrNotFound, http.StatusNotFound},
		{apperrors.ErrInvalidInput, http.StatusBadRequest},
		{apperrors.ErrEmptyContext, http.StatusBadRequest},
		{apperrors.ErrMissingAPIKey, http.StatusPreconditionFailed},
		{apperrors.ErrStreamActive, http.StatusConflict},
		{apperrors.ErrGhostActive, http.StatusConflict},
		{apperrors.WrapError(apperrors.ErrNotFound, "wrapped"), http.StatusNotFound},
		{fmt.Errorf("anything else"), http.StatusInternalServerError},
	}
	gin.SetMode(gin.TestMode)
	for _, tt := range tests {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		respondError(c, tt.err)
		assert.Equal(t, tt.code, w.Code, "error %v", tt.err)
	}
}
