package config

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var appLogger *zap.Logger

// InitLogger builds the process-wide logger at the given level. An
// unknown level string falls back to info rather than failing bootstrap.
func InitLogger(level string) (*zap.Logger, error) {
	if strings.EqualFold(level, "warning") {
		level = "warn"
	}
	parsed, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		parsed = zapcore.InfoLevel
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(parsed)
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	appLogger = logger
	return logger, nil
}

// Cleanup flushes buffered log entries on shutdown.
func Cleanup() {
	if appLogger != nil {
		appLogger.Sync()
	}
}
