// ABOUTME: Tests for backend dispatch and the failure-to-text contract
// ABOUTME: Uses a stub backend with call counting and fault injection

package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zokz/triad-bot/internal/history"
	"github.com/zokz/triad-bot/internal/ollama"
	"github.com/zokz/triad-bot/internal/store"
)

// stubBackend returns canned responses and counts calls.
type stubBackend struct {
	calls    int
	lastReq  *ollama.ChatRequest
	response string
	err      error
}

func (s *stubBackend) Chat(ctx context.Context, req *ollama.ChatRequest) (*ollama.ChatResponse, error) {
	s.calls++
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return &ollama.ChatResponse{
		Model:   req.Model,
		Message: ollama.Message{Role: "assistant", Content: s.response},
		Done:    true,
	}, nil
}

// stubRecorder collects telemetry records.
type stubRecorder struct {
	records []*store.RequestRecord
}

func (s *stubRecorder) RecordRequest(ctx context.Context, rec *store.RequestRecord) error {
	s.records = append(s.records, rec)
	return nil
}

func testConfig() Config {
	return Config{
		ChatModel:     "chat-model",
		VisionModel:   "vision-model",
		SearchModel:   "search-model",
		SearchContext: 3,
	}
}

func turnsOf(contents ...string) []history.Turn {
	turns := make([]history.Turn, len(contents))
	for i, c := range contents {
		turns[i] = history.Turn{Role: history.RoleUser, Content: c}
	}
	return turns
}

func TestGateway_ChatPrependsSystemPromptAndMapsRoles(t *testing.T) {
	backend := &stubBackend{response: "hello"}
	g := New(backend, nil, testConfig(), nil)

	turns := []history.Turn{
		{Role: history.RoleUser, Content: "question"},
		{Role: history.RoleAssistant, Content: "answer"},
	}

	text, err := g.Chat(context.Background(), turns)
	require.NoError(t, err)
	assert.Equal(t, "hello", text)

	req := backend.lastReq
	require.Len(t, req.Messages, 3)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, "user", req.Messages[1].Role)
	assert.Equal(t, "question", req.Messages[1].Content)
	assert.Equal(t, "assistant", req.Messages[2].Role)
	assert.Equal(t, "chat-model", req.Model)
}

func TestGateway_ChatStripsMarkup(t *testing.T) {
	backend := &stubBackend{response: "some **bold** and a [link](http://x)"}
	g := New(backend, nil, testConfig(), nil)

	text, err := g.Chat(context.Background(), turnsOf("q"))
	require.NoError(t, err)
	assert.Equal(t, "some bold and a link", text)
}

func TestGateway_SearchUsesTrailingWindowAndFlag(t *testing.T) {
	backend := &stubBackend{response: "search answer"}
	g := New(backend, nil, testConfig(), nil)

	turns := turnsOf("one", "two", "three", "four", "five")

	text, used, err := g.Search(context.Background(), "что нового?", turns)
	require.NoError(t, err)
	assert.Equal(t, "search answer", text)

	// Exactly the last SearchContext turns, in order.
	require.Len(t, used, 3)
	assert.Equal(t, "three", used[0].Content)
	assert.Equal(t, "five", used[2].Content)

	req := backend.lastReq
	assert.Equal(t, "search-model", req.Model)
	require.Len(t, req.Tools, 1)
	assert.Equal(t, "search", req.Tools[0].Type)
	require.Len(t, req.Messages, 1)
	assert.Contains(t, req.Messages[0].Content, "three")
	assert.Contains(t, req.Messages[0].Content, "что нового?")
	assert.NotContains(t, req.Messages[0].Content, "one")
}

func TestGateway_SearchShortHistoryUsesAll(t *testing.T) {
	backend := &stubBackend{response: "ok"}
	g := New(backend, nil, testConfig(), nil)

	turns := turnsOf("only")

	_, used, err := g.Search(context.Background(), "q", turns)
	require.NoError(t, err)
	require.Len(t, used, 1)
	assert.Equal(t, "only", used[0].Content)
}

func TestGateway_AnalyzeImageBuildsDerivedInstruction(t *testing.T) {
	backend := &stubBackend{response: "кот на подоконнике"}
	g := New(backend, nil, testConfig(), nil)

	derived, err := g.AnalyzeImage(context.Background(), []byte{0xFF, 0xD8}, "что за порода?")
	require.NoError(t, err)

	assert.Contains(t, derived, "что за порода?")
	assert.Contains(t, derived, "кот на подоконнике")

	req := backend.lastReq
	assert.Equal(t, "vision-model", req.Model)
	require.Len(t, req.Messages, 1)
	require.Len(t, req.Messages[0].Images, 1)
	assert.NotEmpty(t, req.Messages[0].Images[0])
}

func TestGateway_FailuresBecomeDisplayableText(t *testing.T) {
	backendErr := errors.New("connection refused")

	tests := []struct {
		name string
		call func(g *Gateway) (string, error)
	}{
		{"chat", func(g *Gateway) (string, error) {
			return g.Chat(context.Background(), turnsOf("q"))
		}},
		{"vision", func(g *Gateway) (string, error) {
			return g.AnalyzeImage(context.Background(), []byte{1}, "caption")
		}},
		{"search", func(g *Gateway) (string, error) {
			text, _, err := g.Search(context.Background(), "q", nil)
			return text, err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &stubBackend{err: backendErr}
			g := New(backend, nil, testConfig(), nil)

			text, err := tt.call(g)

			require.Error(t, err)
			assert.Contains(t, text, "Error")
			assert.Contains(t, text, "connection refused")
		})
	}
}

func TestGateway_RecordsTelemetry(t *testing.T) {
	backend := &stubBackend{response: "ok"}
	recorder := &stubRecorder{}
	g := New(backend, recorder, testConfig(), nil)

	_, err := g.Chat(context.Background(), turnsOf("q"))
	require.NoError(t, err)

	backend.err = errors.New("boom")
	_, _, err = g.Search(context.Background(), "q", nil)
	require.Error(t, err)

	require.Len(t, recorder.records, 2)
	assert.Equal(t, store.RequestKindChat, recorder.records[0].Kind)
	assert.False(t, recorder.records[0].Failed)
	assert.Equal(t, store.RequestKindSearch, recorder.records[1].Kind)
	assert.True(t, recorder.records[1].Failed)
	assert.NotEmpty(t, recorder.records[0].ID)
}

func TestContextLines(t *testing.T) {
	assert.Empty(t, ContextLines(nil))

	long := strings.Repeat("ш", 200)
	lines := ContextLines([]history.Turn{
		{Role: history.RoleUser, Content: "короткий"},
		{Role: history.RoleAssistant, Content: long},
	})

	assert.Contains(t, lines, "- короткий\n")
	assert.Contains(t, lines, "...")
	assert.NotContains(t, lines, long)

	for _, line := range strings.Split(strings.TrimSpace(lines), "\n") {
		assert.LessOrEqual(t, len([]rune(line)), 90, "line %q", line)
	}
}

func TestGateway_NoRetryOnFailure(t *testing.T) {
	backend := &stubBackend{err: fmt.Errorf("transient")}
	g := New(backend, nil, testConfig(), nil)

	_, _ = g.Chat(context.Background(), turnsOf("q"))
	assert.Equal(t, 1, backend.calls)
}
