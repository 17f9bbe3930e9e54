package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"DEBUG": slog.LevelDebug,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"info":  slog.LevelInfo,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewHandler_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, slog.LevelInfo, "json"))

	logger.Debug("hidden")
	logger.Info("Expense recorded", "group_id", "g1", "amount", 1000)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 log line, got %d: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if rec["msg"] != "Expense recorded" || rec["group_id"] != "g1" {
		t.Errorf("unexpected record %v", rec)
	}
}

func TestNewHandler_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, slog.LevelWarn, "text"))

	logger.Info("hidden")
	logger.Warn("Settlement rejected", "group_id", "g1")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line should be filtered: %q", out)
	}
	if !strings.Contains(out, "Settlement rejected") || !strings.Contains(out, "g1") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestSetup_FromEnvironment(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("LOG_FORMAT", "json")
	Setup()
	if slog.Default().Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be disabled at LOG_LEVEL=warn")
	}
	if !slog.Default().Enabled(context.Background(), slog.LevelWarn) {
		t.Error("warn should be enabled at LOG_LEVEL=warn")
	}

	SetupWithLevel(slog.LevelDebug)
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug should be enabled after SetupWithLevel(debug)")
	}
}
