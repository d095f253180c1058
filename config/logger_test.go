package config

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestInitLoggerLevels(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"ERROR", zapcore.ErrorLevel},
		{"nonsense", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		logger, err := InitLogger(tt.in)
		if err != nil {
			t.Fatalf("InitLogger(%q): %v", tt.in, err)
		}
		if !logger.Core().Enabled(tt.want) {
			t.Errorf("InitLogger(%q): level %v not enabled", tt.in, tt.want)
		}
		if tt.want > zapcore.DebugLevel && logger.Core().Enabled(tt.want-1) {
			t.Errorf("InitLogger(%q): level below %v unexpectedly enabled", tt.in, tt.want)
		}
	}
}
