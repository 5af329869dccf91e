// ABOUTME: Decides per query whether the search-augmented backend is needed
// ABOUTME: Keyword fast path first, then a one-word model verdict, fail-closed

package router

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/zokz/triad-bot/internal/format"
	"github.com/zokz/triad-bot/internal/gateway"
	"github.com/zokz/triad-bot/internal/history"
)

// searchKeywords is the fixed multilingual fast-path set: temporal/recency
// terms, explicit search verbs, and price/purchase terms. A match routes to
// search immediately, without consulting the model.
var searchKeywords = []string{
	"найди", "поищи", "ищи", "search", "найти",
	"какие новости", "что нового", "последние", "новости",
	"актуальная информация", "в интернете", "online",
	"кто такой", "что такое", "где найти", "когда будет",
	"обращайся к интернету", "посмотри в сети", "загугли",
	"для актуальности", "последние данные", "свежие новости",
	"сколько стоит", "цена", "купить", "где купить",
}

// verdictInstruction asks the chat backend for a one-word answer.
const verdictInstruction = "Если для ответа НУЖНА актуальная информация из интернета, новости или свежие данные, ответь \"ДА\". " +
	"Если можно ответить без интернета, ответь \"НЕТ\". Ответь только одним словом."

// ChatBackend defines what the router needs from the model gateway.
type ChatBackend interface {
	Chat(ctx context.Context, turns []history.Turn) (string, error)
}

// Router decides whether a query requires the search-capable path.
type Router struct {
	chat        ChatBackend
	contextSize int
	logger      *slog.Logger
}

// New creates a router. contextSize bounds how many trailing history turns
// are embedded into the classification prompt.
func New(chat ChatBackend, contextSize int, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		chat:        chat,
		contextSize: contextSize,
		logger:      logger.With("component", "router"),
	}
}

// Decide reports whether the query should be answered via the search
// backend. The keyword fast path always wins; otherwise the chat backend is
// asked for a one-word verdict. Any failure to obtain or parse a verdict
// fails closed to the direct path. Decide never mutates the history.
func (r *Router) Decide(ctx context.Context, query string, turns []history.Turn) bool {
	normalized := strings.ToLower(strings.TrimSpace(query))
	for _, keyword := range searchKeywords {
		if strings.Contains(normalized, keyword) {
			r.logger.Info("search keyword matched",
				"keyword", keyword,
				"query", format.Truncate(query, 50),
			)
			return true
		}
	}

	window := history.Tail(turns, r.contextSize)
	prompt := fmt.Sprintf("%sПользователь спрашивает: %q\n\n%s",
		gateway.ContextLines(window), query, verdictInstruction)

	verdict, err := r.chat.Chat(ctx, []history.Turn{{Role: history.RoleUser, Content: prompt}})
	if err != nil {
		// Fail closed: search availability must never block an answer.
		r.logger.Warn("classification failed, using direct path",
			"query", format.Truncate(query, 50),
			"error", err,
		)
		return false
	}

	needSearch := isAffirmative(verdict)
	r.logger.Info("classification verdict",
		"query", format.Truncate(query, 50),
		"search", needSearch,
	)
	return needSearch
}

// isAffirmative parses the one-word verdict case-insensitively.
func isAffirmative(verdict string) bool {
	v := strings.ToUpper(strings.TrimSpace(verdict))
	return strings.Contains(v, "ДА") || strings.Contains(v, "YES")
}
