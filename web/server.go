package web

import (
	"context"
	"net/http"

	"jdnotes/config"
	"jdnotes/database"
	"jdnotes/notes"
	"jdnotes/web/format"
	"jdnotes/web/handlers"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	router *gin.Engine
	logger *zap.Logger
	config *config.Config
	store  *database.Store
}

func NewServer(cfg *config.Config, store *database.Store, logger *zap.Logger) (*Server, error) {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(func(c *gin.Context) {
		c.Set("logger", logger)
		c.Next()
	})

	server := &Server{
		router: router,
		logger: logger,
		config: cfg,
		store:  store,
	}

	if err := server.setupRoutes(); err != nil {
		return nil, err
	}
	return server, nil
}

func (s *Server) setupRoutes() error {
	renderer, err := format.NewRenderer(s.config.RenderCacheSize)
	if err != nil {
		return err
	}
	importer := notes.NewPDFImporter(s.config.ImportMaxPDFPages, s.logger)

	ghostHandler := handlers.NewGhostHandler(s.store, s.config, s.logger)
	notesHandler := handlers.NewNotesHandler(s.store, s.config, renderer, importer, ghostHandler, s.logger)
	chatHandler := handlers.NewChatHandler(s.store, s.config, s.logger)
	settingsHandler := handlers.NewSettingsHandler(s.store, s.config, s.logger)
	exportHandler := handlers.NewExportHandler(s.store, s.logger)

	api := s.router.Group("/api")

	api.GET("/notes", notesHandler.List)
	api.POST("/notes", notesHandler.Create)
	api.GET("/notes/:id", notesHandler.Get)
	api.PUT("/notes/:id", notesHandler.Update)
	api.DELETE("/notes/:id", notesHandler.Delete)
	api.POST("/notes/:id/favorite", notesHandler.SetFavorite)
	api.POST("/notes/:id/reminder", notesHandler.SetReminder)
	api.GET("/notes/:id/render", notesHandler.Render)
	api.GET("/notes/:id/tags/suggest", notesHandler.SuggestTags)

	api.GET("/editor/actions", ghostHandler.Actions)
	api.POST("/notes/:id/ghost", ghostHandler.Activate)
	api.GET("/notes/:id/ghost", ghostHandler.Snapshot)
	api.POST("/notes/:id/ghost/accept", ghostHandler.Accept)
	api.POST("/notes/:id/ghost/discard", ghostHandler.Discard)

	api.GET("/notes/:id/chat", chatHandler.GetConversation)
	api.POST("/notes/:id/chat", chatHandler.Send)
	api.POST("/notes/:id/chat/edit", chatHandler.Edit)
	api.POST("/notes/:id/chat/retry", chatHandler.Retry)
	api.DELETE("/notes/:id/chat", chatHandler.Clear)
	api.DELETE("/notes/:id/chat/:messageID", chatHandler.DeleteMessage)

	api.GET("/settings", settingsHandler.Get)
	api.PUT("/settings", settingsHandler.Update)
	api.GET("/config", settingsHandler.UIConfig)

	api.GET("/export", exportHandler.Export)
	api.POST("/import", exportHandler.Import)
	api.POST("/import/pdf", notesHandler.ImportPDF)

	return nil
}

func (s *Server) Start(ctx context.Context, addr string) error {
	s.logger.Info("Starting web server", zap.String("address", addr))

	srv := &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Web server failed to start", zap.Error(err))
		}
	}()

	<-ctx.Done()

	s.logger.Info("Shutting down web server")
	return srv.Shutdown(context.Background())
}
