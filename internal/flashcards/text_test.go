package flashcards

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "collapse whitespace", in: "  cell\n\n\tbiology  101 ", want: "cell biology 101"},
		{name: "non-ascii replaced", in: "naïve café", want: "na ve caf"},
		{name: "only whitespace", in: " \n\t ", want: ""},
		{name: "already clean", in: "photosynthesis", want: "photosynthesis"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanText(tt.in))
		})
	}
}

func TestChunk(t *testing.T) {
	assert.Empty(t, Chunk("", 10))
	assert.Equal(t, []string{"abc"}, Chunk("abc", 10))
	assert.Equal(t, []string{"abcd", "efgh", "ij"}, Chunk("abcdefghij", 4))

	long := strings.Repeat("x", DefaultChunkSize+1)
	chunks := Chunk(long, 0)
	assert.Len(t, chunks, 2)
	assert.Len(t, chunks[0], DefaultChunkSize)
}
