// ABOUTME: Pure text transformations applied to model replies before delivery
// ABOUTME: Strips lightweight markup and splits text into transport-sized chunks

package format

import (
	"regexp"
	"strings"
)

// markupRule is a single rewrite step. Rules run in order and each rule
// operates on the output of the previous one.
type markupRule struct {
	pattern *regexp.Regexp
	replace string
}

// Ordered rewrite chain. The order matters: bold must be handled before
// italic so "**x**" does not leave stray asterisks behind.
var markupRules = []markupRule{
	{regexp.MustCompile(`\*\*(.*?)\*\*`), "$1"},        // bold
	{regexp.MustCompile(`\*(.*?)\*`), "$1"},            // italic
	{regexp.MustCompile("`(.*?)`"), "$1"},              // inline code
	{regexp.MustCompile(`\[(.*?)\]\(.*?\)`), "$1"},     // link -> visible label
	{regexp.MustCompile(`#{1,6}\s+`), ""},              // heading markers
	{regexp.MustCompile(`(?m)^\s*[-*+]\s+`), ""},       // leading list bullets
}

// StripMarkup removes lightweight Markdown markup from text, leaving only
// the visible content. The function is idempotent: applying it to its own
// output is a no-op.
func StripMarkup(text string) string {
	for _, rule := range markupRules {
		text = rule.pattern.ReplaceAllString(text, rule.replace)
	}
	return text
}

// Chunk splits text into contiguous segments of at most size runes,
// preserving order. Concatenating the result reproduces the input exactly.
// Empty input yields an empty slice; no returned segment is ever empty.
//
// Segments are measured in runes rather than bytes so multi-byte text is
// never split in the middle of a character.
func Chunk(text string, size int) []string {
	if size <= 0 || text == "" {
		return nil
	}

	runes := []rune(text)
	chunks := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

// Truncate shortens a string to the given max rune count, adding "..." if
// truncated. Used when embedding history turns into bounded prompts and when
// logging user input.
func Truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return strings.TrimSpace(string(runes[:maxLen])) + "..."
}
