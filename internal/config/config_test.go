// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML loading, env var expansion, defaults, and validation

package config

import (
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
		t.Fatalf("writing config: %v", err)
	}
	return path
}

const validConfig = `
ollama:
  host: "https://ollama.example.com"
  api_key: "test-key"
  chat_model: "chat-model"
  vision_model: "vision-model"
  search_model: "search-model"
  timeout: "90s"

conversation:
  history_size: 30
  search_context: 6
  max_image_size: 5242880
  chunk_size: 2000

matrix:
  homeserver: "https://matrix.org"
  user_id: "@bot:matrix.org"
  access_token: "matrix-token"
  allowed_users:
    - "@user1:matrix.org"
  allowed_rooms:
    - "!room1:matrix.org"
  command_prefix: "!"
  typing_indicator: true

database:
  path: "./telemetry.db"

logging:
  level: "debug"
  format: "json"
`

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, validConfig)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Ollama.Host != "https://ollama.example.com" {
		t.Errorf("unexpected host: %s", cfg.Ollama.Host)
	}
	if cfg.Ollama.Timeout != 90*time.Second {
		t.Errorf("unexpected timeout: %v", cfg.Ollama.Timeout)
	}
	if cfg.Conversation.HistorySize != 30 {
		t.Errorf("unexpected history_size: %d", cfg.Conversation.HistorySize)
	}
	if cfg.Conversation.SearchContext != 6 {
		t.Errorf("unexpected search_context: %d", cfg.Conversation.SearchContext)
	}
	if cfg.Matrix.UserID != "@bot:matrix.org" {
		t.Errorf("unexpected user_id: %s", cfg.Matrix.UserID)
	}
	if len(cfg.Matrix.AllowedUsers) != 1 {
		t.Errorf("unexpected allowed_users: %v", cfg.Matrix.AllowedUsers)
	}
	if cfg.Database.Path != "./telemetry.db" {
		t.Errorf("unexpected database path: %s", cfg.Database.Path)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("unexpected log format: %s", cfg.Logging.Format)
	}
}

func TestLoad_DefaultsApplied(t *testing.T) {
	path := writeConfig(t, `
matrix:
  homeserver: "https://matrix.org"
  user_id: "@bot:matrix.org"
  access_token: "token"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Ollama.Host != "https://ollama.com" {
		t.Errorf("default host not applied: %s", cfg.Ollama.Host)
	}
	if cfg.Ollama.Timeout != 60*time.Second {
		t.Errorf("default timeout not applied: %v", cfg.Ollama.Timeout)
	}
	if cfg.Conversation.HistorySize != 20 {
		t.Errorf("default history_size not applied: %d", cfg.Conversation.HistorySize)
	}
	if cfg.Conversation.MaxImageSize != 10*1024*1024 {
		t.Errorf("default max_image_size not applied: %d", cfg.Conversation.MaxImageSize)
	}
	if cfg.Conversation.ChunkSize != 4000 {
		t.Errorf("default chunk_size not applied: %d", cfg.Conversation.ChunkSize)
	}
	if cfg.Matrix.CommandPrefix != "!" {
		t.Errorf("default command_prefix not applied: %s", cfg.Matrix.CommandPrefix)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TRIAD_TEST_API_KEY", "expanded-secret")

	path := writeConfig(t, `
ollama:
  api_key: "${TRIAD_TEST_API_KEY}"

matrix:
  homeserver: "https://matrix.org"
  user_id: "@bot:matrix.org"
  access_token: "token"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Ollama.APIKey != "expanded-secret" {
		t.Errorf("env var not expanded: %s", cfg.Ollama.APIKey)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := writeConfig(t, `
ollama:
  timeout: "not-a-duration"

matrix:
  homeserver: "https://matrix.org"
  user_id: "@bot:matrix.org"
  access_token: "token"
`)

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "timeout") {
		t.Fatalf("expected duration error, got: %v", err)
	}
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing homeserver", func(c *Config) { c.Matrix.Homeserver = "" }, "matrix.homeserver"},
		{"missing user id", func(c *Config) { c.Matrix.UserID = "" }, "matrix.user_id"},
		{"missing access token", func(c *Config) { c.Matrix.AccessToken = "" }, "matrix.access_token"},
		{"missing chat model", func(c *Config) { c.Ollama.ChatModel = "" }, "ollama.chat_model"},
		{"zero history size", func(c *Config) { c.Conversation.HistorySize = 0 }, "history_size"},
		{"search context above cap", func(c *Config) {
			c.Conversation.HistorySize = 4
			c.Conversation.SearchContext = 5
		}, "search_context"},
		{"zero chunk size", func(c *Config) { c.Conversation.ChunkSize = 0 }, "chunk_size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			cfg.Matrix.Homeserver = "https://matrix.org"
			cfg.Matrix.UserID = "@bot:matrix.org"
			cfg.Matrix.AccessToken = "token"
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}
