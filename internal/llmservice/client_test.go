package llmservice

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"data-cleaner/internal/config"
)

func TestCompleteUnknownProvider(t *testing.T) {
	c := New(&config.LLMConfig{Provider: "bedrock", Model: "m"})

	_, err := c.Complete(context.Background(), "", "prompt")
	assert.ErrorContains(t, err, "unknown llm provider")
}
