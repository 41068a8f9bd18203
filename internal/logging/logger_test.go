package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewLoggerDefaultsToStderr(t *testing.T) {
	l := NewLogger(nil)
	if l == nil {
		t.Fatal("NewLogger(nil) returned nil")
	}
	if l.level != LevelInfo {
		t.Errorf("expected default level Info, got %v", l.level)
	}
}

func TestLoggerLevelGating(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&Config{Level: LevelWarn, Output: &buf})

	l.Debug("should not appear")
	l.Info("should not appear either")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below configured level, got %q", buf.String())
	}

	l.Warn("buffer rotation stalled")
	if !strings.Contains(buf.String(), "buffer rotation stalled") {
		t.Errorf("expected warn message in output, got %q", buf.String())
	}
}

func TestLoggerFormatArgs(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&Config{Level: LevelDebug, Output: &buf})

	l.Info("acquired slot", "buffer", 2, "events_used", 41)
	out := buf.String()
	if !strings.Contains(out, "buffer=2") || !strings.Contains(out, "events_used=41") {
		t.Errorf("expected key=value pairs in output, got %q", out)
	}
}

func TestLoggerfVariants(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&Config{Level: LevelDebug, Output: &buf})

	l.Errorf("rendezvous failed: %v", "econnrefused")
	if !strings.Contains(buf.String(), "rendezvous failed: econnrefused") {
		t.Errorf("expected formatted error message, got %q", buf.String())
	}
}

func TestGlobalDefaultLogger(t *testing.T) {
	var buf bytes.Buffer
	SetDefault(NewLogger(&Config{Level: LevelDebug, Output: &buf}))
	defer SetDefault(NewLogger(nil))

	Info("transport opened")
	if !strings.Contains(buf.String(), "transport opened") {
		t.Errorf("expected global Info to reach configured default logger, got %q", buf.String())
	}
}
