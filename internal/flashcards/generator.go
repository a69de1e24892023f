package flashcards

import (
	"context"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
)

// DefaultPrompt opens every request when no prompt is configured.
const DefaultPrompt = "Generate JSON flashcards from the following text:"

const instructions = `Instructions:
1. Review the text thoroughly.
2. Pinpoint key points for flashcards.
3. Generate questions based on these key points.
4. Include additional relevant information if deemed important.
5. Format the flashcards as a JSON array of objects with "question" and "answer" fields.`

// Generator produces flashcards for a chunk of text.
type Generator interface {
	Generate(ctx context.Context, text, prompt string) ([]Card, error)
}

// OpenAIConfig holds the chat completion endpoint settings.
type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// DefaultOpenAIConfig returns the default configuration.
func DefaultOpenAIConfig() *OpenAIConfig {
	return &OpenAIConfig{
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4o-mini",
		Timeout: 60 * time.Second,
	}
}

// OpenAI generates flashcards with any OpenAI-compatible chat endpoint.
type OpenAI struct {
	client *openai.Client
	config *OpenAIConfig
}

var _ Generator = (*OpenAI)(nil)

func NewOpenAI(cfg *OpenAIConfig) *OpenAI {
	if cfg == nil {
		cfg = DefaultOpenAIConfig()
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIConfig().Model
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultOpenAIConfig().Timeout
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &OpenAI{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
	}
}

// Generate sends one chat completion for text and decodes the reply.
func (g *OpenAI) Generate(ctx context.Context, text, prompt string) ([]Card, error) {
	if prompt == "" {
		prompt = DefaultPrompt
	}

	ctx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.config.Model,
		Messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt + "\n" + text + "\n" + instructions,
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion: empty response")
	}

	parsed, err := ParseResponse(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	return parsed.Cards, nil
}
