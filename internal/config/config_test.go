package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  url: postgres://localhost/unspiral
anthropic:
  api_key: sk-test
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen.Port != 8080 {
		t.Errorf("default port = %d", cfg.Listen.Port)
	}
	if cfg.Anthropic.Model != "claude-sonnet-4-20250514" {
		t.Errorf("default model = %q", cfg.Anthropic.Model)
	}
	if cfg.Agent.MaxToolRounds != 3 || cfg.Agent.ToolTimeoutSec != 10 {
		t.Errorf("agent defaults = %+v", cfg.Agent)
	}
	if cfg.Agent.ToolTimeout() != 10*time.Second {
		t.Errorf("tool timeout = %v", cfg.Agent.ToolTimeout())
	}
	if cfg.DataDir != "data" {
		t.Errorf("data dir = %q", cfg.DataDir)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("config with defaults should validate: %v", err)
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("UNSPIRAL_TEST_KEY", "sk-from-env")
	path := writeConfig(t, `
database:
  url: postgres://localhost/unspiral
anthropic:
  api_key: ${UNSPIRAL_TEST_KEY}
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Anthropic.APIKey != "sk-from-env" {
		t.Errorf("api key = %q", cfg.Anthropic.APIKey)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
listen:
  address: 127.0.0.1
  port: 9090
database:
  url: postgres://db/unspiral
  max_open_conns: 8
anthropic:
  api_key: sk-test
  model: claude-test
agent:
  max_tool_rounds: 5
  tool_timeout_sec: 30
cors:
  allowed_origins:
    - https://app.unspiral.com
log_level: debug
log_format: json
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen.Address != "127.0.0.1" || cfg.Listen.Port != 9090 {
		t.Errorf("listen = %+v", cfg.Listen)
	}
	if cfg.Database.MaxOpenConns != 8 {
		t.Errorf("max open conns = %d", cfg.Database.MaxOpenConns)
	}
	if cfg.Agent.ToolTimeout() != 30*time.Second {
		t.Errorf("tool timeout = %v", cfg.Agent.ToolTimeout())
	}
	if len(cfg.CORS.AllowedOrigins) != 1 {
		t.Errorf("cors = %+v", cfg.CORS)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := Default()
		cfg.Database.URL = "postgres://localhost/unspiral"
		cfg.Anthropic.APIKey = "sk-test"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing database", func(c *Config) { c.Database.URL = "" }, "database.url"},
		{"missing api key", func(c *Config) { c.Anthropic.APIKey = "" }, "api_key"},
		{"zero rounds", func(c *Config) { c.Agent.MaxToolRounds = 0 }, "max_tool_rounds"},
		{"zero timeout", func(c *Config) { c.Agent.ToolTimeoutSec = 0 }, "tool_timeout_sec"},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, "log level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestFindConfigExplicitMissing(t *testing.T) {
	if _, err := FindConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("explicit missing path should fail")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"trace", LevelTrace, false},
		{"debug", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"DEBUG", slog.LevelDebug, false},
		{"loud", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseLogLevel(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseLogLevel(%q) unexpected error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
