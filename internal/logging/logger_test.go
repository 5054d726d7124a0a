package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"podstudio/internal/config"
	"podstudio/internal/logging"
	"podstudio/internal/services"
)

func TestNewFromConfigConsole(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	if logger == nil {
		t.Fatal("expected logger instance")
	}
	logger.Info("hello")
	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, logging.LogFileName))
	if err != nil {
		t.Fatalf("expected log file to be created: %v", err)
	}
	if !strings.Contains(string(content), `"msg":"hello"`) {
		t.Fatalf("expected JSON line in log file, got %q", content)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	var console bytes.Buffer
	logger, err := logging.New(logging.Options{
		Format:  "console",
		Level:   "info",
		Console: &console,
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.NewComponentLogger(logger, "pipeline").Info("message without caller",
		logging.String(logging.FieldEpisodeID, "E1"),
		logging.String("step", "fetch episode"),
	)

	line := console.String()
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", line)
	}
	if !strings.Contains(line, "INFO  pipeline [E1] message without caller") {
		t.Fatalf("expected component and episode prefix, got %q", line)
	}
	if strings.Contains(line, "episode_id=") || strings.Contains(line, "component=") {
		t.Fatalf("lifted fields repeated in tail: %q", line)
	}
	if !strings.Contains(line, `step="fetch episode"`) {
		t.Fatalf("expected quoted attribute, got %q", line)
	}
}

func TestJSONLoggerIncludesContextFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "json.log")
	var console bytes.Buffer
	logger, err := logging.New(logging.Options{
		Format:   "json",
		Level:    "info",
		Console:  &console,
		FilePath: logPath,
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithEpisodeID(context.Background(), "ep-1")
	ctx = services.WithStage(ctx, "synthesize_audio")
	logging.WithContext(ctx, logger).Info("stage finished")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(console.String(), `"msg":"stage finished"`) {
		t.Fatalf("expected JSON on console too, got %q", console.String())
	}
	var entry map[string]any
	if err := json.Unmarshal(content, &entry); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, content)
	}
	if entry[logging.FieldEpisodeID] != "ep-1" {
		t.Fatalf("expected episode id field, got %v", entry)
	}
	if entry[logging.FieldStage] != "synthesize_audio" {
		t.Fatalf("expected stage field, got %v", entry)
	}
	if entry["level"] != "info" {
		t.Fatalf("expected lower-case level, got %v", entry["level"])
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", entry)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected unsupported format error")
	}
}

func TestConsoleDebugRecordsIncludeSource(t *testing.T) {
	var console bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "debug", Console: &console})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.WithGroup("audio").Debug("segment", logging.Int("index", 2))
	line := console.String()
	if !strings.Contains(line, "logger_test.go:") {
		t.Fatalf("expected caller for debug logs, got %q", line)
	}
	if !strings.Contains(line, "audio.index=2") {
		t.Fatalf("expected grouped key, got %q", line)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for input, want := range cases {
		if got := logging.ParseLevel(input); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewComponentLogger(nil, "test")
	if logger.Enabled(context.Background(), 12) {
		t.Fatal("expected nop logger to be disabled")
	}
}
