// ABOUTME: Configuration loading and parsing for triad-bot
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete triad-bot configuration.
type Config struct {
	Ollama       OllamaConfig       `yaml:"ollama"`
	Conversation ConversationConfig `yaml:"conversation"`
	Matrix       MatrixConfig       `yaml:"matrix"`
	Database     DatabaseConfig     `yaml:"database"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// OllamaConfig holds backend service and model configuration.
type OllamaConfig struct {
	Host        string `yaml:"host"`
	APIKey      string `yaml:"api_key"`
	ChatModel   string `yaml:"chat_model"`
	VisionModel string `yaml:"vision_model"`
	SearchModel string `yaml:"search_model"`

	Timeout time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	TimeoutRaw string `yaml:"timeout"`
}

// ConversationConfig holds history and formatting limits.
type ConversationConfig struct {
	// HistorySize is the maximum turns retained per user.
	HistorySize int `yaml:"history_size"`

	// SearchContext is the trailing history window supplied to the search
	// backend and the intent classifier. Must not exceed HistorySize.
	SearchContext int `yaml:"search_context"`

	// MaxImageSize is the largest accepted image attachment in bytes.
	MaxImageSize int64 `yaml:"max_image_size"`

	// ChunkSize is the maximum outbound message size in characters.
	ChunkSize int `yaml:"chunk_size"`
}

// MatrixConfig holds the Matrix frontend configuration.
type MatrixConfig struct {
	Homeserver      string   `yaml:"homeserver"`
	UserID          string   `yaml:"user_id"`
	AccessToken     string   `yaml:"access_token"`
	AllowedUsers    []string `yaml:"allowed_users"`
	AllowedRooms    []string `yaml:"allowed_rooms"`
	CommandPrefix   string   `yaml:"command_prefix"`
	TypingIndicator bool     `yaml:"typing_indicator"`
}

// DatabaseConfig holds telemetry database configuration. An empty path
// disables request telemetry.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	cfg := defaults()
	if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-filled with the stock limits. Values present
// in the file override them.
func defaults() *Config {
	return &Config{
		Ollama: OllamaConfig{
			Host:        "https://ollama.com",
			ChatModel:   "kimi-k2:1t-cloud",
			VisionModel: "qwen3-vl:235b-instruct-cloud",
			SearchModel: "gpt-oss:120b-cloud",
			Timeout:     60 * time.Second,
		},
		Conversation: ConversationConfig{
			HistorySize:   20,
			SearchContext: 5,
			MaxImageSize:  10 * 1024 * 1024,
			ChunkSize:     4000,
		},
		Matrix: MatrixConfig{
			CommandPrefix:   "!",
			TypingIndicator: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Ollama.Host == "" {
		return fmt.Errorf("ollama.host is required")
	}
	if c.Ollama.ChatModel == "" {
		return fmt.Errorf("ollama.chat_model is required")
	}
	if c.Ollama.VisionModel == "" {
		return fmt.Errorf("ollama.vision_model is required")
	}
	if c.Ollama.SearchModel == "" {
		return fmt.Errorf("ollama.search_model is required")
	}

	if c.Conversation.HistorySize <= 0 {
		return fmt.Errorf("conversation.history_size must be positive")
	}
	if c.Conversation.SearchContext <= 0 {
		return fmt.Errorf("conversation.search_context must be positive")
	}
	if c.Conversation.SearchContext > c.Conversation.HistorySize {
		return fmt.Errorf("conversation.search_context must not exceed conversation.history_size")
	}
	if c.Conversation.MaxImageSize <= 0 {
		return fmt.Errorf("conversation.max_image_size must be positive")
	}
	if c.Conversation.ChunkSize <= 0 {
		return fmt.Errorf("conversation.chunk_size must be positive")
	}

	if c.Matrix.Homeserver == "" {
		return fmt.Errorf("matrix.homeserver is required")
	}
	if c.Matrix.UserID == "" {
		return fmt.Errorf("matrix.user_id is required")
	}
	if c.Matrix.AccessToken == "" {
		return fmt.Errorf("matrix.access_token is required")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	if cfg.Ollama.TimeoutRaw != "" {
		timeout, err := time.ParseDuration(cfg.Ollama.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing ollama.timeout %q: %w", cfg.Ollama.TimeoutRaw, err)
		}
		cfg.Ollama.Timeout = timeout
	}
	return nil
}
