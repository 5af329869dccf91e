// ABOUTME: Tests for markup stripping and chunking
// ABOUTME: Covers rule ordering, idempotence, and chunk concatenation equality

package format

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripMarkup(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bold", "this is **bold** text", "this is bold text"},
		{"italic", "this is *italic* text", "this is italic text"},
		{"bold then italic", "***both***", "both"},
		{"inline code", "run `go test` now", "run go test now"},
		{"link keeps label", "see [the docs](https://example.com/x) here", "see the docs here"},
		{"heading", "## Summary\ntext", "Summary\ntext"},
		{"list bullets", "- first\n- second\n* third", "first\nsecond\nthird"},
		{"plain text untouched", "2 + 2 = 4", "2 + 2 = 4"},
		{"empty", "", ""},
		{"cyrillic", "**Новости** за *сегодня*", "Новости за сегодня"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripMarkup(tt.input))
		})
	}
}

func TestStripMarkup_Idempotent(t *testing.T) {
	inputs := []string{
		"**bold** and *italic* and `code`",
		"[label](http://example.com) plain",
		"# Heading\n- item one\n- item two",
		"already plain text",
		"* unbalanced ** markers `",
	}

	for _, in := range inputs {
		once := StripMarkup(in)
		twice := StripMarkup(once)
		assert.Equal(t, once, twice, "input %q", in)
	}
}

func TestChunk_ConcatenationEquality(t *testing.T) {
	text := strings.Repeat("abcdefghij", 123) // 1230 chars
	chunks := Chunk(text, 400)

	require.Len(t, chunks, 4)
	for _, c := range chunks {
		assert.NotEmpty(t, c)
		assert.LessOrEqual(t, len([]rune(c)), 400)
	}
	assert.Equal(t, text, strings.Join(chunks, ""))
}

func TestChunk_ShortTextSingleChunk(t *testing.T) {
	chunks := Chunk("hello", 4000)
	require.Len(t, chunks, 1)
	assert.Equal(t, "hello", chunks[0])
}

func TestChunk_EmptyInputIsEmptySlice(t *testing.T) {
	assert.Empty(t, Chunk("", 4000))
}

func TestChunk_ExactMultiple(t *testing.T) {
	chunks := Chunk("abcdef", 3)
	require.Len(t, chunks, 2)
	assert.Equal(t, []string{"abc", "def"}, chunks)
}

func TestChunk_DoesNotSplitRunes(t *testing.T) {
	text := strings.Repeat("д", 10)
	chunks := Chunk(text, 3)

	require.Len(t, chunks, 4)
	assert.Equal(t, text, strings.Join(chunks, ""))
	for _, c := range chunks {
		assert.True(t, strings.HasPrefix(c, "д"))
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 80))
	assert.Equal(t, "aaa...", Truncate(strings.Repeat("a", 100), 3))
	long := Truncate(strings.Repeat("слово ", 40), 80)
	assert.True(t, strings.HasSuffix(long, "..."))
	assert.LessOrEqual(t, len([]rune(long)), 83)
}
