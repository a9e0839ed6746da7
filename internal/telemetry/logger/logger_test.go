package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func newBufferLogger(t *testing.T, level, format string) (Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l, err := New(Config{Level: level, Format: format, Output: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { SetLevel("info") })
	return l, &buf
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "default config", cfg: DefaultConfig()},
		{name: "json format", cfg: Config{Level: "debug", Format: "json"}},
		{name: "console format", cfg: Config{Level: "warn", Format: "console"}},
		{name: "unknown format", cfg: Config{Format: "xml"}, wantErr: true},
		{name: "unknown level", cfg: Config{Level: "loud"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && l == nil {
				t.Fatal("New() returned nil logger")
			}
		})
	}
	SetLevel("info")
}

func TestLogger_JSONFields(t *testing.T) {
	l, buf := newBufferLogger(t, "debug", "json")

	l.With("component", "pool").Info("job done", "commands", 3)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not JSON: %v", err)
	}
	if entry["msg"] != "job done" {
		t.Errorf("msg = %v, want %q", entry["msg"], "job done")
	}
	if entry["component"] != "pool" {
		t.Errorf("component = %v, want %q", entry["component"], "pool")
	}
	if entry["commands"] != float64(3) {
		t.Errorf("commands = %v, want 3", entry["commands"])
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	l, buf := newBufferLogger(t, "warn", "text")

	l.Debug("debug message")
	l.Info("info message")
	l.Warn("warn message")
	l.Error("error message")

	out := buf.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Errorf("records below warn were written:\n%s", out)
	}
	if !strings.Contains(out, "warn message") || !strings.Contains(out, "error message") {
		t.Errorf("records at or above warn are missing:\n%s", out)
	}
}

func TestSetLevel(t *testing.T) {
	l, buf := newBufferLogger(t, "info", "text")

	l.Debug("hidden")
	SetLevel("debug")
	if GetLevel() != "debug" {
		t.Errorf("GetLevel() = %q, want debug", GetLevel())
	}
	l.Debug("shown")

	SetLevel("nonsense")
	if GetLevel() != "debug" {
		t.Errorf("unknown level changed GetLevel() to %q", GetLevel())
	}

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug record written before SetLevel")
	}
	if !strings.Contains(out, "shown") {
		t.Error("debug record missing after SetLevel")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDefaultLogger(t *testing.T) {
	if Default() == nil {
		t.Fatal("Default() returned nil")
	}

	l, buf := newBufferLogger(t, "info", "text")
	prev := Default()
	SetDefault(l)
	defer SetDefault(prev)

	Info("via package")
	if !strings.Contains(buf.String(), "via package") {
		t.Errorf("package-level Info did not use the default logger: %q", buf.String())
	}
}

func TestDiscard(t *testing.T) {
	l := Discard()
	l.Error("dropped")
	l.With("k", "v").Info("dropped")
}
