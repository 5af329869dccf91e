// ABOUTME: Entry point for triad-bot
// ABOUTME: Wires config, backends, orchestration, and the Matrix frontend

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"

	"github.com/zokz/triad-bot/internal/config"
	"github.com/zokz/triad-bot/internal/conversation"
	"github.com/zokz/triad-bot/internal/frontend/matrix"
	"github.com/zokz/triad-bot/internal/gateway"
	"github.com/zokz/triad-bot/internal/history"
	"github.com/zokz/triad-bot/internal/ollama"
	"github.com/zokz/triad-bot/internal/router"
	"github.com/zokz/triad-bot/internal/store"
)

const banner = `
    ╭──────────────────────────────────╮
    │                                  │
    │   ╺┳╸┏━┓╻┏━┓╺┳┓   ┏┓ ┏━┓╺┳╸      │
    │    ┃ ┣┳┛┃┣━┫ ┃┃   ┣┻┓┃ ┃ ┃       │
    │    ╹ ╹┗╸╹╹ ╹╺┻┛   ┗━┛┗━┛ ╹       │
    │                                  │
    │          triad-bot               │
    │                                  │
    ╰──────────────────────────────────╯
`

// getConfigPath returns the path to the bot config file.
// Priority: TRIAD_CONFIG env var > ./config.yaml > XDG_CONFIG_HOME/triad/bot.yaml > ~/.config/triad/bot.yaml
func getConfigPath() string {
	if envPath := os.Getenv("TRIAD_CONFIG"); envPath != "" {
		return envPath
	}

	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "triad", "bot.yaml")
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	configPath := getConfigPath()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config from %s: %w", configPath, err)
	}

	logger := setupLogger(cfg.Logging)

	// Print startup info
	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:     %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("Backend:    %s\n", cfg.Ollama.Host)
	green.Print("    ▶ ")
	fmt.Printf("Chat:       %s\n", cfg.Ollama.ChatModel)
	green.Print("    ▶ ")
	fmt.Printf("Vision:     %s\n", cfg.Ollama.VisionModel)
	green.Print("    ▶ ")
	fmt.Printf("Search:     %s\n", cfg.Ollama.SearchModel)
	green.Print("    ▶ ")
	fmt.Printf("Homeserver: %s\n", cfg.Matrix.Homeserver)
	if cfg.Database.Path != "" {
		green.Print("    ▶ ")
		fmt.Printf("Telemetry:  %s\n", cfg.Database.Path)
	}
	fmt.Println()

	backend := ollama.NewClient(ollama.Config{
		BaseURL: cfg.Ollama.Host,
		APIKey:  cfg.Ollama.APIKey,
		Timeout: cfg.Ollama.Timeout,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := backend.CheckRunning(ctx); err != nil {
		logger.Warn("backend not reachable at startup", "host", cfg.Ollama.Host, "error", err)
	}

	// Telemetry is optional; an empty path disables it.
	var usage gateway.UsageRecorder
	if cfg.Database.Path != "" {
		sqlStore, err := store.NewSQLiteStore(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("opening telemetry store: %w", err)
		}
		defer sqlStore.Close()
		usage = sqlStore
	}

	gw := gateway.New(backend, usage, gateway.Config{
		ChatModel:     cfg.Ollama.ChatModel,
		VisionModel:   cfg.Ollama.VisionModel,
		SearchModel:   cfg.Ollama.SearchModel,
		SearchContext: cfg.Conversation.SearchContext,
	}, logger)

	rt := router.New(gw, cfg.Conversation.SearchContext, logger)
	hist := history.NewStore(cfg.Conversation.HistorySize)

	svc := conversation.New(gw, rt, hist, conversation.Config{
		ChunkSize:    cfg.Conversation.ChunkSize,
		MaxImageSize: cfg.Conversation.MaxImageSize,
	}, logger)

	bridge, err := matrix.NewBridge(matrix.Config{
		Homeserver:      cfg.Matrix.Homeserver,
		UserID:          cfg.Matrix.UserID,
		AccessToken:     cfg.Matrix.AccessToken,
		AllowedUsers:    cfg.Matrix.AllowedUsers,
		AllowedRooms:    cfg.Matrix.AllowedRooms,
		CommandPrefix:   cfg.Matrix.CommandPrefix,
		TypingIndicator: cfg.Matrix.TypingIndicator,
		MaxImageSize:    cfg.Conversation.MaxImageSize,
	}, svc, logger)
	if err != nil {
		return fmt.Errorf("creating bridge: %w", err)
	}

	logger.Info("starting triad-bot")
	return bridge.Run(ctx)
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var logLevel slog.Level
	switch cfg.Level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
