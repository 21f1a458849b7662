package core

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

// TestSlogLogger_WritesFields verifies the slog adapter
// Given: A SlogLogger over a JSON handler at info level
// When: Debug and Info messages with fields are logged
// Then: Only the info line is written, carrying its fields
func TestSlogLogger_WritesFields(t *testing.T) {
	// Arrange
	var buf bytes.Buffer
	logger := NewSlogLogger(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))

	// Act
	logger.Debug("hidden", F("k", "v"))
	logger.Info("pool started", F("pool", "p1"), F("workers", 4))

	// Assert
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d log lines, want 1: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("invalid JSON log line: %v", err)
	}
	if entry["msg"] != "pool started" || entry["pool"] != "p1" || entry["workers"] != float64(4) {
		t.Errorf("log entry = %v", entry)
	}
}

// TestPool_LogsLifecycle verifies the pool logs through the configured Logger
func TestPool_LogsLifecycle(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	pool, err := NewPool(WithID("logged"), WithWorkers(1), WithLogger(logger))
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}
	if err := pool.Stop(); err != nil {
		t.Fatalf("Stop() = %v", err)
	}

	out := buf.String()
	for _, want := range []string{"pool started", "pool stopped", "pool=logged"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}
