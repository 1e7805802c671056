package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	for _, lvl := range []string{"debug", "info", "warn", "error"} {
		l, err := New(lvl)
		if err != nil {
			t.Fatalf("New(%q): %v", lvl, err)
		}
		if !l.Core().Enabled(mustLevel(t, lvl)) {
			t.Errorf("level %q not enabled on its own logger", lvl)
		}
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func mustLevel(t *testing.T, s string) zapcore.Level {
	t.Helper()
	lvl, err := zapcore.ParseLevel(s)
	if err != nil {
		t.Fatalf("ParseLevel: %v", err)
	}
	return lvl
}
