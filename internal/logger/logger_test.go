package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"

	"github.com/zhouzirui/assistant-relay/backend/internal/config"
)

func TestNewJSONIncludesService(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(config.LogConfig{Level: "debug", Format: "json", Service: "relay-test"}, &buf)

	log.Info().Str("session_id", "s1").Msg("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected json log line, got %q: %v", buf.String(), err)
	}
	if entry["service"] != "relay-test" {
		t.Fatalf("expected service field, got %v", entry["service"])
	}
	if entry["session_id"] != "s1" {
		t.Fatalf("expected session_id field, got %v", entry["session_id"])
	}
}

func TestParseLevelFallsBackToInfo(t *testing.T) {
	if got := parseLevel("nonsense"); got != zerolog.InfoLevel {
		t.Fatalf("expected info, got %s", got)
	}
	if got := parseLevel("WARN"); got != zerolog.WarnLevel {
		t.Fatalf("expected warn, got %s", got)
	}
}
