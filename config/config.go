package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// AISettings is the connection configuration for the model endpoint. The
// values here are file/env defaults; the live values are read from the
// app_config table so the settings screen can change them at runtime.
type AISettings struct {
	BaseURL string `mapstructure:"AI_BASE_URL" json:"base_url"`
	APIKey  string `mapstructure:"AI_API_KEY" json:"api_key"`
	Model   string `mapstructure:"AI_MODEL" json:"model"`
}

// Config holds the application's configuration
type Config struct {
	ListenAddr          string        `mapstructure:"LISTEN_ADDR"`
	LogLevel            string        `mapstructure:"LOG_LEVEL"`
	DatabasePath        string        `mapstructure:"DATABASE_PATH"`
	AI                  AISettings    `mapstructure:",squash"`
	LLMRequestTimeout   time.Duration `mapstructure:"LLM_REQUEST_TIMEOUT"`
	GhostContextChars   int           `mapstructure:"GHOST_CONTEXT_CHARS"`
	SyncLeaseTimeout    time.Duration `mapstructure:"SYNC_LEASE_TIMEOUT_MS"`
	ErrorDismissDelay   time.Duration `mapstructure:"ERROR_DISMISS_SECONDS"`
	RenderCacheSize     int           `mapstructure:"RENDER_CACHE_SIZE"`
	ImportMaxPDFPages   int           `mapstructure:"IMPORT_MAX_PDF_PAGES"`
	SuggestedTagsLimit  int           `mapstructure:"SUGGESTED_TAGS_LIMIT"`
}

func Load(logger *zap.Logger) *Config {
	var config Config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")        // For running locally
	viper.AddConfigPath("../")      // For running from a subdir
	viper.AddConfigPath("./config") // Common config folder
	viper.AutomaticEnv()

	// Set default values
	viper.SetDefault("LISTEN_ADDR", "127.0.0.1:8787")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("DATABASE_PATH", "jdnotes.db")
	viper.SetDefault("AI_BASE_URL", "https://api.deepseek.com/v1")
	viper.SetDefault("AI_API_KEY", "")
	viper.SetDefault("AI_MODEL", "deepseek-chat")
	viper.SetDefault("LLM_REQUEST_TIMEOUT", 300)
	viper.SetDefault("GHOST_CONTEXT_CHARS", 400)
	viper.SetDefault("SYNC_LEASE_TIMEOUT_MS", 500)
	viper.SetDefault("ERROR_DISMISS_SECONDS", 5)
	viper.SetDefault("RENDER_CACHE_SIZE", 128)
	viper.SetDefault("IMPORT_MAX_PDF_PAGES", 50)
	viper.SetDefault("SUGGESTED_TAGS_LIMIT", 5)

	if err := viper.ReadInConfig(); err != nil {
		if logger != nil {
			logger.Warn("Could not read config file, using defaults/env vars", zap.Error(err))
		}
	}

	if err := viper.Unmarshal(&config); err != nil {
		// Config unmarshaling is critical - fail fast during bootstrap
		if logger != nil {
			logger.Fatal("Unable to decode config into struct", zap.Error(err))
		} else {
			fmt.Fprintf(os.Stderr, "FATAL: Unable to decode config into struct: %v\n", err)
			os.Exit(1)
		}
	}

	// Convert plain numbers to proper time.Duration
	config.LLMRequestTimeout = config.LLMRequestTimeout * time.Second
	config.SyncLeaseTimeout = config.SyncLeaseTimeout * time.Millisecond
	config.ErrorDismissDelay = config.ErrorDismissDelay * time.Second

	return &config
}
