package config

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestInitLogger(t *testing.T) {
	tests := []struct {
		name        string
		level       string
		wantDebug   bool
		wantWarnMin bool
	}{
		{name: "debug", level: "debug", wantDebug: true},
		{name: "info", level: "info", wantDebug: false},
		{name: "warn", level: "warn", wantDebug: false, wantWarnMin: true},
		{name: "unknown_falls_back_to_info", level: "verbose", wantDebug: false},
		{name: "empty_falls_back_to_info", level: "", wantDebug: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := InitLogger(tt.level)
			if err != nil {
				t.Fatalf("InitLogger(%q) error = %v", tt.level, err)
			}
			if got := logger.Core().Enabled(zapcore.DebugLevel); got != tt.wantDebug {
				t.Errorf("debug enabled = %v, want %v", got, tt.wantDebug)
			}
			if tt.wantWarnMin && logger.Core().Enabled(zapcore.InfoLevel) {
				t.Error("info should be disabled at warn level")
			}
		})
	}
}
