package flashcards

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultChunkSize is the number of characters sent per generation request.
const DefaultChunkSize = 5000

var whitespace = regexp.MustCompile(`\s+`)

// CleanText normalizes extracted document text: whitespace runs become one
// space, non-ASCII characters become a space, and the ends are trimmed.
// The cache key is computed over this form.
func CleanText(s string) string {
	s = whitespace.ReplaceAllString(s, " ")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < utf8.RuneSelf {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return strings.TrimSpace(b.String())
}

// Chunk splits s into pieces of at most size characters.
func Chunk(s string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	runes := []rune(s)
	chunks := make([]string, 0, len(runes)/size+1)
	for start := 0; start < len(runes); start += size {
		end := min(start+size, len(runes))
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
