// ABOUTME: Service is the central orchestration layer for user queries
// ABOUTME: Routes intent, dispatches backends, and maintains bounded history

package conversation

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/zokz/triad-bot/internal/format"
	"github.com/zokz/triad-bot/internal/history"
)

// ErrImageTooLarge is returned when an attachment exceeds the configured
// limit. The rejection happens before any backend call.
var ErrImageTooLarge = errors.New("image exceeds the maximum allowed size")

// ModelGateway defines what the service needs from the backend dispatch
// layer. Every method returns displayable text even on failure.
type ModelGateway interface {
	Chat(ctx context.Context, turns []history.Turn) (string, error)
	AnalyzeImage(ctx context.Context, image []byte, caption string) (string, error)
	Search(ctx context.Context, query string, turns []history.Turn) (string, []history.Turn, error)
}

// IntentRouter defines what the service needs from the intent layer.
type IntentRouter interface {
	Decide(ctx context.Context, query string, turns []history.Turn) bool
}

// Config holds the orchestration limits.
type Config struct {
	// ChunkSize bounds each outbound message in runes.
	ChunkSize int

	// MaxImageSize bounds accepted image attachments in bytes.
	MaxImageSize int64
}

// Service orchestrates one user interaction end to end: intent decision,
// backend dispatch, history bookkeeping, and outbound formatting. Each
// inbound query is handled on its own goroutine by the transport; the
// service holds no locks across backend round trips, so one user's slow
// backend call never delays another user.
type Service struct {
	gateway ModelGateway
	router  IntentRouter
	history *history.Store
	config  Config
	logger  *slog.Logger
}

// New creates the orchestration service.
func New(gw ModelGateway, rt IntentRouter, hist *history.Store, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		gateway: gw,
		router:  rt,
		history: hist,
		config:  cfg,
		logger:  logger.With("component", "conversation"),
	}
}

// HandleText processes one text query and returns the ordered chunks to
// deliver. Gateway failures surface as displayable error text in the
// chunks, never as an error.
func (s *Service) HandleText(ctx context.Context, userID, text string) []string {
	requestID := uuid.New().String()
	snapshot := s.history.Snapshot(userID)

	needSearch := s.router.Decide(ctx, text, snapshot)
	s.logger.Info("handling text query",
		"request_id", requestID,
		"user", userID,
		"search", needSearch,
		"input", format.Truncate(text, 50),
	)

	if needSearch {
		return s.handleSearch(ctx, userID, text, snapshot)
	}
	return s.handleDirect(ctx, userID, text, snapshot)
}

// handleDirect answers from the chat backend using the full bounded history.
func (s *Service) handleDirect(ctx context.Context, userID, text string, snapshot []history.Turn) []string {
	userTurn := history.Turn{Role: history.RoleUser, Content: text}
	input := append(snapshot, userTurn)

	reply, err := s.gateway.Chat(ctx, input)
	if err != nil {
		// The reply already carries displayable error text. Keep the user
		// turn so a retry has the question in context.
		s.history.Append(userID, userTurn)
		return s.deliver(reply)
	}

	s.history.Append(userID, userTurn, history.Turn{Role: history.RoleAssistant, Content: reply})
	return s.deliver(reply)
}

// handleSearch answers from the search backend with a trailing context
// window, tagging the stored turns so later prompts can tell search
// exchanges apart.
func (s *Service) handleSearch(ctx context.Context, userID, text string, snapshot []history.Turn) []string {
	answer, used, err := s.gateway.Search(ctx, text, snapshot)
	if err != nil {
		s.history.Append(userID, history.Turn{Role: history.RoleUser, Content: text, Tag: history.TagSearchQuestion})
		return s.deliver(answer)
	}

	s.logger.Debug("search answered", "user", userID, "context_turns", len(used))

	s.history.Append(userID,
		history.Turn{Role: history.RoleUser, Content: text, Tag: history.TagSearchQuestion},
		history.Turn{Role: history.RoleAssistant, Content: answer, Tag: history.TagSearchAnswer},
	)
	return s.deliver(answer)
}

// HandleImage processes an image with an optional caption. Oversize
// attachments are rejected before any backend call.
func (s *Service) HandleImage(ctx context.Context, userID string, image []byte, caption string) ([]string, error) {
	if int64(len(image)) > s.config.MaxImageSize {
		s.logger.Warn("rejecting oversize image",
			"user", userID,
			"size", len(image),
			"limit", s.config.MaxImageSize,
		)
		return nil, ErrImageTooLarge
	}

	requestID := uuid.New().String()
	s.logger.Info("handling image query",
		"request_id", requestID,
		"user", userID,
		"size", len(image),
		"caption", format.Truncate(caption, 50),
	)

	derived, err := s.gateway.AnalyzeImage(ctx, image, caption)
	if err != nil {
		return s.deliver(derived), nil
	}

	userTurn := history.Turn{Role: history.RoleUser, Content: caption, Tag: history.TagImageQuestion}

	// The derived instruction already embeds the caption and description;
	// it is sent as a standalone turn rather than with the full history.
	reply, err := s.gateway.Chat(ctx, []history.Turn{{Role: history.RoleUser, Content: derived}})
	if err != nil {
		s.history.Append(userID, userTurn)
		return s.deliver(reply), nil
	}

	s.history.Append(userID, userTurn, history.Turn{Role: history.RoleAssistant, Content: reply, Tag: history.TagImageAnswer})
	return s.deliver(reply), nil
}

// Reset clears all history for the user.
func (s *Service) Reset(userID string) {
	dropped := s.history.Len(userID)
	s.history.Clear(userID)
	s.logger.Info("history cleared", "user", userID, "turns", dropped)
}

// deliver strips markup and splits the reply into transport-sized chunks.
func (s *Service) deliver(reply string) []string {
	return format.Chunk(format.StripMarkup(reply), s.config.ChunkSize)
}
