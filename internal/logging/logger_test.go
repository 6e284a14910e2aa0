package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"podcaster/internal/config"
	"podcaster/internal/logging"
	"podcaster/internal/services"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("feed created", logging.String("feed_guid", "abc"))

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, logging.LogFileName))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "feed created") || !strings.Contains(string(content), "feed_guid=abc") {
		t.Fatalf("unexpected log content %q", content)
	}
}

func TestConsoleLoggerHoistsComponentAndStage(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger = logging.NewComponentLogger(logger, "generation")
	logger.Info("stage complete", logging.String(logging.FieldStage, "podcast_premise"), logging.String("title", "Car Talk"))

	line := buf.String()
	if !strings.Contains(line, "INFO generation [podcast_premise]: stage complete") {
		t.Fatalf("expected hoisted component and stage, got %q", line)
	}
	if !strings.Contains(line, `title="Car Talk"`) {
		t.Fatalf("expected quoted attribute, got %q", line)
	}
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no source information at info level, got %q", line)
	}
}

func TestJSONLoggerRenamesTime(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "debug", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("cache miss", logging.String("key", "deadbeef"))

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatalf("expected ts field, got %v", payload)
	}
	if payload["level"] != "debug" {
		t.Fatalf("expected lowercase level, got %v", payload["level"])
	}
	if src, _ := payload["source"].(string); !strings.Contains(src, "logger_test.go:") {
		t.Fatalf("expected compact source at debug level, got %v", payload["source"])
	}
}

func TestNewRejectsUnknownFormatAndLevel(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
	if _, err := logging.New(logging.Options{Level: "loud"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	base, err := logging.New(logging.Options{Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := services.WithWorkspace(context.Background(), "default")
	ctx = services.WithRequestID(ctx, "req-1")

	logging.WithContext(ctx, base).Info("request")

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if payload[logging.FieldWorkspace] != "default" {
		t.Fatalf("expected workspace field, got %v", payload)
	}
	if payload[logging.FieldCorrelationID] != "req-1" {
		t.Fatalf("expected correlation id field, got %v", payload)
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "duplicate feed", "feed_race", logging.String(logging.FieldImpact, "re-queried"))

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if payload[logging.FieldEventType] != "feed_race" {
		t.Fatalf("expected event type, got %v", payload)
	}
	if payload[logging.FieldImpact] != "re-queried" {
		t.Fatalf("expected caller impact to win, got %v", payload[logging.FieldImpact])
	}
	if _, ok := payload[logging.FieldErrorHint]; !ok {
		t.Fatalf("expected default error hint, got %v", payload)
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), 12) {
		t.Fatal("nop logger should not be enabled")
	}
	logging.WarnWithContext(nil, "ignored", "noop")
}
