package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew_Levels(t *testing.T) {
	for _, lvl := range []string{"", "debug", "info", "warn", "error"} {
		logger, err := New(lvl)
		if err != nil {
			t.Errorf("New(%q): %v", lvl, err)
			continue
		}
		_ = logger.Sync()
	}
}

func TestNew_DebugEnabled(t *testing.T) {
	logger, err := New("debug")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if ce := logger.Check(zapcore.DebugLevel, "debug check"); ce == nil {
		t.Error("debug entries should be enabled at debug level")
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	if _, err := New("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}
