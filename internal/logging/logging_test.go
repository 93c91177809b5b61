package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		" warn ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "info", "json", "cloner")

	logger.Debug("hidden")
	logger.Info("scraped page", "url", "https://example.com", "bytes", 42)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), buf.String())
	}

	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("invalid JSON log line: %v", err)
	}
	if rec["msg"] != "scraped page" {
		t.Errorf("expected msg 'scraped page', got %v", rec["msg"])
	}
	if rec["url"] != "https://example.com" {
		t.Errorf("expected url attribute, got %v", rec["url"])
	}
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "warn", "text", "research")

	logger.Info("hidden")
	logger.Warn("missing key", "name", "SERP_API_KEY")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "missing key") || !strings.Contains(out, "SERP_API_KEY") {
		t.Errorf("expected warning with attribute, got %q", out)
	}
	if !strings.Contains(out, "research") {
		t.Errorf("expected prefix in output, got %q", out)
	}
}
