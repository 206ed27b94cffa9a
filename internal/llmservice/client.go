package llmservice

import (
	"context"
	"fmt"
	"strings"

	"data-cleaner/internal/config"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Completer is the single capability the cleaning pipeline needs from the
// inference backend. Tests substitute a fake.
type Completer interface {
	Complete(ctx context.Context, model, prompt string) (string, error)
}

// Client talks to a local ollama server or any OpenAI-compatible endpoint,
// depending on the configured provider.
type Client struct {
	cfg *config.LLMConfig
}

func New(cfg *config.LLMConfig) *Client {
	return &Client{cfg: cfg}
}

func (c *Client) Complete(ctx context.Context, model, prompt string) (string, error) {
	if model == "" {
		model = c.cfg.Model
	}

	llm, err := c.newModel(model)
	if err != nil {
		return "", err
	}

	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextContent{Text: prompt}},
		},
	}

	res, err := llm.GenerateContent(ctx, messages)
	if err != nil {
		return "", err
	}
	if len(res.Choices) == 0 {
		return "", fmt.Errorf("no choices in model response")
	}
	return res.Choices[0].Content, nil
}

func (c *Client) newModel(model string) (llms.Model, error) {
	switch c.cfg.Provider {
	case "", "ollama":
		return ollama.New(
			ollama.WithServerURL(c.cfg.BaseURL),
			ollama.WithModel(model),
		)
	case "openai":
		log.Debug().Str("base_url", c.cfg.BaseURL).Str("model", model).Msg("Using OpenAI-compatible backend")
		return openai.New(
			openai.WithBaseURL(c.cfg.BaseURL),
			openai.WithToken(strings.TrimPrefix(c.cfg.Key, "Bearer ")),
			openai.WithModel(model),
		)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", c.cfg.Provider)
	}
}
