package flashcards

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
)

var ErrMalformedResponse = errors.New("flashcards: malformed response")

// Card is one question/answer pair.
type Card struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Shape is the layout a generation reply arrived in.
type Shape int

const (
	ShapeUnknown Shape = iota
	ShapeList          // [{"question": ..., "answer": ...}, ...]
	ShapeCard          // {"question": ..., "answer": ...}
	ShapeWrapped       // {"flashcards": [...]} or deeper nesting
)

func (s Shape) String() string {
	switch s {
	case ShapeList:
		return "list"
	case ShapeCard:
		return "card"
	case ShapeWrapped:
		return "wrapped"
	default:
		return "unknown"
	}
}

// Response is a decoded generation reply.
type Response struct {
	Shape Shape
	Cards []Card
}

// ParseResponse decodes a model reply. Markdown code fences around the
// JSON are ignored. A reply that is valid JSON but holds no cards has
// ShapeUnknown and no error.
func ParseResponse(raw string) (Response, error) {
	var v any
	if err := json.Unmarshal([]byte(stripFences(raw)), &v); err != nil {
		return Response{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	switch v := v.(type) {
	case []any:
		if cards := cardList(v); len(cards) > 0 {
			return Response{Shape: ShapeList, Cards: cards}, nil
		}
	case map[string]any:
		var cards []Card
		shape := ShapeUnknown
		if c, ok := asCard(v); ok {
			cards = append(cards, c)
			shape = ShapeCard
		}
		if nested := wrappedCards(v); len(nested) > 0 {
			cards = append(cards, nested...)
			shape = ShapeWrapped
		}
		return Response{Shape: shape, Cards: cards}, nil
	}
	return Response{Shape: ShapeUnknown}, nil
}

func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	start := strings.Index(s, "```")
	if start < 0 {
		return s
	}
	body := s[start+3:]
	// Drop the info string ("json") on the opening fence line.
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	}
	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

// cardList returns the card-shaped elements of list, or nil if the first
// element is not a card.
func cardList(list []any) []Card {
	if len(list) == 0 {
		return nil
	}
	if _, ok := asObjectCard(list[0]); !ok {
		return nil
	}
	cards := make([]Card, 0, len(list))
	for _, item := range list {
		if c, ok := asObjectCard(item); ok {
			cards = append(cards, c)
		}
	}
	return cards
}

// wrappedCards collects cards from the values of obj, descending into
// nested objects. Keys are visited in sorted order.
func wrappedCards(obj map[string]any) []Card {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var cards []Card
	for _, k := range keys {
		switch v := obj[k].(type) {
		case []any:
			cards = append(cards, cardList(v)...)
		case map[string]any:
			if c, ok := asCard(v); ok {
				cards = append(cards, c)
			}
			cards = append(cards, wrappedCards(v)...)
		}
	}
	return cards
}

func asObjectCard(v any) (Card, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return Card{}, false
	}
	return asCard(obj)
}

func asCard(obj map[string]any) (Card, bool) {
	q, qok := obj["question"]
	a, aok := obj["answer"]
	if !qok || !aok {
		return Card{}, false
	}
	return Card{Question: text(q), Answer: text(a)}, true
}

func text(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
