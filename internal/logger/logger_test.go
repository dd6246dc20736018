package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/suenchunyu/word-frequency/internal/config"
)

func TestNewWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithWriter(&buf, config.Log{Level: "warn"})
	if err != nil {
		t.Fatalf("NewWithWriter failed: %v", err)
	}

	l.Info().Msg("dropped")
	l.Warn().Str("job", "42").Msg("kept")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("Expected 1 line, got %d: %q", len(lines), buf.String())
	}

	var event map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &event); err != nil {
		t.Fatalf("Line is not JSON: %v", err)
	}
	if event["level"] != "warn" || event["message"] != "kept" || event["job"] != "42" {
		t.Errorf("Unexpected event %v", event)
	}
	if _, ok := event["time"]; !ok {
		t.Errorf("Expected a timestamp in %v", event)
	}
}

func TestNewWithWriterConsole(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithWriter(&buf, config.Log{Format: "console"})
	if err != nil {
		t.Fatalf("NewWithWriter failed: %v", err)
	}

	l.Info().Msg("hello")
	if out := buf.String(); !strings.Contains(out, "hello") || strings.HasPrefix(out, "{") {
		t.Errorf("Expected console output, got %q", out)
	}
}

func TestNewWithWriterBadLevel(t *testing.T) {
	if _, err := NewWithWriter(&bytes.Buffer{}, config.Log{Level: "loud"}); err == nil {
		t.Errorf("Expected an error for an unknown level")
	}
}
