package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("APP_PASSWORD", "abc123")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("ASSISTANT_ID", "asst_123")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Fatalf("expected default addr :8080, got %s", cfg.Server.Addr)
	}
	if cfg.Assistant.PollInterval != time.Second {
		t.Fatalf("expected 1s poll interval, got %s", cfg.Assistant.PollInterval)
	}
	if cfg.Assistant.PollMaxWait != 2*time.Minute {
		t.Fatalf("expected 2m max wait, got %s", cfg.Assistant.PollMaxWait)
	}
	if cfg.Session.MaxActive != 1024 {
		t.Fatalf("expected 1024 sessions, got %d", cfg.Session.MaxActive)
	}
	if cfg.UI.FirstPlaceholder == "" || cfg.UI.Placeholder == "" {
		t.Fatal("expected placeholders to have defaults")
	}
}

func TestLoadMissingSecrets(t *testing.T) {
	t.Setenv("APP_PASSWORD", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ASSISTANT_ID", "asst_123")

	_, err := Load()
	if !errors.Is(err, ErrConfigMissing) {
		t.Fatalf("expected ErrConfigMissing, got %v", err)
	}
	if !strings.Contains(err.Error(), "APP_PASSWORD") || !strings.Contains(err.Error(), "OPENAI_API_KEY") {
		t.Fatalf("expected missing names in error, got %v", err)
	}
	if strings.Contains(err.Error(), "ASSISTANT_ID") {
		t.Fatalf("ASSISTANT_ID was provided, got %v", err)
	}
}

func TestLoadServerAddr(t *testing.T) {
	setRequired(t)

	t.Setenv("PORT", "127.0.0.1:9000")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Fatalf("unexpected addr %s", cfg.Server.Addr)
	}

	t.Setenv("PORT", "80 80")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for PORT with spaces")
	}
}

func TestLoadPollOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("RUN_POLL_INTERVAL", "250ms")
	t.Setenv("RUN_POLL_MAX_INTERVAL", "100ms")
	t.Setenv("RUN_POLL_MULTIPLIER", "2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Assistant.PollInterval != 250*time.Millisecond {
		t.Fatalf("unexpected interval %s", cfg.Assistant.PollInterval)
	}
	if cfg.Assistant.PollMaxInterval != cfg.Assistant.PollInterval {
		t.Fatalf("expected max interval raised to interval, got %s", cfg.Assistant.PollMaxInterval)
	}
	if cfg.Assistant.PollMultiplier != 2 {
		t.Fatalf("unexpected multiplier %v", cfg.Assistant.PollMultiplier)
	}
}

func TestLoadRejectsShrinkingMultiplier(t *testing.T) {
	setRequired(t)
	t.Setenv("RUN_POLL_MULTIPLIER", "0.5")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for multiplier below 1")
	}
}
