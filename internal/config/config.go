package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// ErrConfigMissing reports required settings that were not provided.
var ErrConfigMissing = errors.New("required configuration missing")

// Config aggregates every setting of the relay.
type Config struct {
	Server    ServerConfig
	Auth      AuthConfig
	Assistant AssistantConfig
	Session   SessionConfig
	UI        UIConfig
	Log       LogConfig
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	cfg := &Config{Server: server}
	sections := []any{&cfg.Auth, &cfg.Assistant, &cfg.Session, &cfg.UI, &cfg.Log}
	for _, section := range sections {
		if err := env.Parse(section); err != nil {
			return nil, fmt.Errorf("parse env config: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

// loadServerConfig resolves the listen address from PORT.
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// ":8080" and "127.0.0.1:8080" are accepted as-is.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AuthConfig holds the shared access secret.
type AuthConfig struct {
	Password string `env:"APP_PASSWORD"`
}

// AssistantConfig describes the hosted assistant and how runs are awaited.
type AssistantConfig struct {
	APIKey          string        `env:"OPENAI_API_KEY"`
	AssistantID     string        `env:"ASSISTANT_ID"`
	BaseURL         string        `env:"OPENAI_BASE_URL"`
	OrgID           string        `env:"OPENAI_ORG_ID"`
	RequestTimeout  time.Duration `env:"OPENAI_REQUEST_TIMEOUT" envDefault:"30s"`
	PollInterval    time.Duration `env:"RUN_POLL_INTERVAL" envDefault:"1s"`
	PollMultiplier  float64       `env:"RUN_POLL_MULTIPLIER" envDefault:"1.5"`
	PollMaxInterval time.Duration `env:"RUN_POLL_MAX_INTERVAL" envDefault:"5s"`
	PollMaxWait     time.Duration `env:"RUN_POLL_MAX_WAIT" envDefault:"2m"`
}

// SessionConfig bounds the in-memory session store.
type SessionConfig struct {
	MaxActive int `env:"SESSION_MAX_ACTIVE" envDefault:"1024"`
}

// UIConfig carries the copy shown by presenters.
type UIConfig struct {
	Title            string `env:"APP_TITLE" envDefault:"HTC Fundraising Assistant"`
	FirstPlaceholder string `env:"CHAT_FIRST_PLACEHOLDER" envDefault:"What month and year are you writing for today?"`
	Placeholder      string `env:"CHAT_PLACEHOLDER" envDefault:"Type your response here..."`
}

// LogConfig selects verbosity and output encoding.
type LogConfig struct {
	Level   string `env:"LOG_LEVEL" envDefault:"info"`
	Format  string `env:"LOG_FORMAT" envDefault:"console"`
	Service string `env:"SERVICE_NAME" envDefault:"assistant-relay"`
}

func (c *Config) validate() error {
	var missing []string
	if strings.TrimSpace(c.Auth.Password) == "" {
		missing = append(missing, "APP_PASSWORD")
	}
	if strings.TrimSpace(c.Assistant.APIKey) == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if strings.TrimSpace(c.Assistant.AssistantID) == "" {
		missing = append(missing, "ASSISTANT_ID")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrConfigMissing, strings.Join(missing, ", "))
	}

	if c.Assistant.PollInterval <= 0 {
		return fmt.Errorf("invalid RUN_POLL_INTERVAL value %s: must be positive", c.Assistant.PollInterval)
	}
	if c.Assistant.PollMultiplier < 1 {
		return fmt.Errorf("invalid RUN_POLL_MULTIPLIER value %v: must be at least 1", c.Assistant.PollMultiplier)
	}
	if c.Assistant.PollMaxInterval < c.Assistant.PollInterval {
		c.Assistant.PollMaxInterval = c.Assistant.PollInterval
	}
	if c.Assistant.PollMaxWait <= 0 {
		return fmt.Errorf("invalid RUN_POLL_MAX_WAIT value %s: must be positive", c.Assistant.PollMaxWait)
	}
	if c.Session.MaxActive < 1 {
		c.Session.MaxActive = 1
	}
	return nil
}
