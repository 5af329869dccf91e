// ABOUTME: Typed dispatch to the configured chat, vision, and search backends
// ABOUTME: Converts every transport failure into user-displayable error text

package gateway

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zokz/triad-bot/internal/format"
	"github.com/zokz/triad-bot/internal/history"
	"github.com/zokz/triad-bot/internal/ollama"
	"github.com/zokz/triad-bot/internal/store"
)

// systemPrompt is prepended to every chat request.
const systemPrompt = "Ты полезный ассистент. Отвечай КРАТКО и по делу."

// visionPrompt asks the vision backend for a compact description.
const visionPrompt = "Опиши это изображение КРАТКО и по делу (максимум 4-5 предложений). " +
	"Опиши только главные объекты, действия и важные детали."

// turnBudget caps how many characters of a history turn are embedded into
// search and classification prompts.
const turnBudget = 80

// Backend defines what the gateway needs from the inference client.
type Backend interface {
	Chat(ctx context.Context, req *ollama.ChatRequest) (*ollama.ChatResponse, error)
}

// UsageRecorder defines what the gateway needs from the telemetry store.
type UsageRecorder interface {
	RecordRequest(ctx context.Context, rec *store.RequestRecord) error
}

// Config binds the gateway to named backend models.
type Config struct {
	ChatModel   string
	VisionModel string
	SearchModel string

	// SearchContext is the number of trailing history turns supplied to the
	// search backend and the intent classifier.
	SearchContext int
}

// Gateway dispatches requests to the configured backends. Every operation is
// one blocking round trip; any failure is converted at this boundary into a
// literal, user-displayable error string, so callers always receive text
// they can send. The returned error value carries the cause for callers that
// need to branch (the intent router, telemetry); it never needs to reach
// the user.
type Gateway struct {
	backend Backend
	usage   UsageRecorder
	config  Config
	logger  *slog.Logger
}

// New creates a gateway. usage may be nil to disable telemetry.
func New(backend Backend, usage UsageRecorder, cfg Config, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		backend: backend,
		usage:   usage,
		config:  cfg,
		logger:  logger.With("component", "gateway"),
	}
}

// Chat sends the full ordered turn sequence, prefixed with the system
// instruction, to the chat backend and returns the markup-stripped reply.
func (g *Gateway) Chat(ctx context.Context, turns []history.Turn) (string, error) {
	messages := make([]ollama.Message, 0, len(turns)+1)
	messages = append(messages, ollama.Message{Role: "system", Content: systemPrompt})
	for _, turn := range turns {
		messages = append(messages, ollama.Message{Role: string(turn.Role), Content: turn.Content})
	}

	var last string
	if len(turns) > 0 {
		last = turns[len(turns)-1].Content
	}
	g.logger.Info("chat request",
		"backend", g.config.ChatModel,
		"turns", len(turns),
		"input", format.Truncate(last, 50),
	)

	resp, err := g.roundTrip(ctx, store.RequestKindChat, g.config.ChatModel, &ollama.ChatRequest{
		Model:    g.config.ChatModel,
		Messages: messages,
	})
	if err != nil {
		return g.failureText("chat", g.config.ChatModel, last, err), err
	}

	return format.StripMarkup(resp.Message.Content), nil
}

// AnalyzeImage sends the image and caption to the vision backend and returns
// a derived instruction turn: a synthesized prompt combining the caption and
// the backend's description, meant to be fed back into Chat.
func (g *Gateway) AnalyzeImage(ctx context.Context, image []byte, caption string) (string, error) {
	encoded := base64.StdEncoding.EncodeToString(image)

	g.logger.Info("vision request",
		"backend", g.config.VisionModel,
		"image_bytes", len(image),
		"caption", format.Truncate(caption, 50),
	)

	resp, err := g.roundTrip(ctx, store.RequestKindVision, g.config.VisionModel, &ollama.ChatRequest{
		Model: g.config.VisionModel,
		Messages: []ollama.Message{
			{Role: "user", Content: visionPrompt, Images: []string{encoded}},
		},
	})
	if err != nil {
		return g.failureText("vision", g.config.VisionModel, caption, err), err
	}

	description := format.StripMarkup(resp.Message.Content)

	derived := fmt.Sprintf(
		"Пользователь отправил изображение и написал: %q\n\n"+
			"Описание изображения: %s\n\n"+
			"Ответь КРАТКО на вопрос пользователя с учетом изображения.",
		caption, description,
	)
	return derived, nil
}

// Search sends the query plus the trailing context window to the search
// backend with the search capability flag set. It returns the answer text
// and the exact context slice that was used.
func (g *Gateway) Search(ctx context.Context, query string, turns []history.Turn) (string, []history.Turn, error) {
	window := history.Tail(turns, g.config.SearchContext)

	var prompt strings.Builder
	prompt.WriteString(ContextLines(window))
	fmt.Fprintf(&prompt, "Вопрос: %q\n\n", query)
	prompt.WriteString("Используя контекст и интернет, найди актуальную информацию и дай КРАТКИЙ, информативный ответ (не более 5 предложений).")

	g.logger.Info("search request",
		"backend", g.config.SearchModel,
		"context_turns", len(window),
		"input", format.Truncate(query, 50),
	)

	resp, err := g.roundTrip(ctx, store.RequestKindSearch, g.config.SearchModel, &ollama.ChatRequest{
		Model:    g.config.SearchModel,
		Messages: []ollama.Message{{Role: "user", Content: prompt.String()}},
		Tools:    []ollama.Tool{{Type: "search"}},
	})
	if err != nil {
		return g.failureText("search", g.config.SearchModel, query, err), nil, err
	}

	return resp.Message.Content, window, nil
}

// roundTrip performs the backend call and records telemetry for it.
func (g *Gateway) roundTrip(ctx context.Context, kind store.RequestKind, model string, req *ollama.ChatRequest) (*ollama.ChatResponse, error) {
	start := time.Now()
	resp, err := g.backend.Chat(ctx, req)
	g.record(kind, model, time.Since(start), err != nil)
	return resp, err
}

// failureText builds the literal error string handed back to callers. It is
// always safe to display.
func (g *Gateway) failureText(op, model, input string, err error) string {
	g.logger.Error("backend request failed",
		"op", op,
		"backend", model,
		"input", format.Truncate(input, 50),
		"error", err,
	)
	return fmt.Sprintf("Error: %s backend request failed: %v", op, err)
}

// record writes one telemetry row. Failures to record are logged and
// swallowed; telemetry must never affect the request that produced it.
func (g *Gateway) record(kind store.RequestKind, model string, elapsed time.Duration, failed bool) {
	if g.usage == nil {
		return
	}

	recCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rec := &store.RequestRecord{
		ID:         uuid.New().String(),
		Kind:       kind,
		Backend:    model,
		DurationMs: elapsed.Milliseconds(),
		Failed:     failed,
		CreatedAt:  time.Now(),
	}
	if err := g.usage.RecordRequest(recCtx, rec); err != nil {
		g.logger.Error("failed to record request telemetry",
			"error", err,
			"kind", kind,
			"backend", model,
		)
	}
}

// ContextLines renders history turns as truncated bullet lines for embedding
// in a bounded prompt. Returns "" for empty input.
func ContextLines(turns []history.Turn) string {
	if len(turns) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Контекст беседы:\n")
	for _, turn := range turns {
		b.WriteString("- ")
		b.WriteString(format.Truncate(turn.Content, turnBudget))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String()
}
