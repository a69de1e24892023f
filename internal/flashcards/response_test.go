package flashcards

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantShape Shape
		wantCards []Card
	}{
		{
			name:      "list",
			raw:       `[{"question":"Q1","answer":"A1"},{"question":"Q2","answer":"A2"}]`,
			wantShape: ShapeList,
			wantCards: []Card{{"Q1", "A1"}, {"Q2", "A2"}},
		},
		{
			name:      "single card",
			raw:       `{"question":"Q1","answer":"A1"}`,
			wantShape: ShapeCard,
			wantCards: []Card{{"Q1", "A1"}},
		},
		{
			name:      "wrapped",
			raw:       `{"flashcards":[{"question":"Q1","answer":"A1"}]}`,
			wantShape: ShapeWrapped,
			wantCards: []Card{{"Q1", "A1"}},
		},
		{
			name:      "nested wrapper",
			raw:       `{"data":{"cards":[{"question":"Q1","answer":"A1"}]}}`,
			wantShape: ShapeWrapped,
			wantCards: []Card{{"Q1", "A1"}},
		},
		{
			name:      "code fence",
			raw:       "Here you go:\n```json\n[{\"question\":\"Q1\",\"answer\":\"A1\"}]\n```",
			wantShape: ShapeList,
			wantCards: []Card{{"Q1", "A1"}},
		},
		{
			name:      "non-string answer",
			raw:       `[{"question":"Q1","answer":42}]`,
			wantShape: ShapeList,
			wantCards: []Card{{"Q1", "42"}},
		},
		{
			name:      "no cards",
			raw:       `{"note":"nothing here"}`,
			wantShape: ShapeUnknown,
		},
		{
			name:      "list of strings",
			raw:       `["a","b"]`,
			wantShape: ShapeUnknown,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseResponse(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.wantShape, got.Shape, "shape %s", got.Shape)
			assert.Equal(t, tt.wantCards, got.Cards)
		})
	}
}

func TestParseResponseMalformed(t *testing.T) {
	_, err := ParseResponse("Sorry, I can't help with that.")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}
