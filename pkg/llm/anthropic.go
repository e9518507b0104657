package llm

import (
	"context"
	"fmt"

	anthropic "github.com/liushuangls/go-anthropic/v2"
)

// AnthropicGenerator backs SQL generation with the Anthropic Messages API.
type AnthropicGenerator struct {
	client *anthropic.Client
	model  string
}

func NewAnthropicGenerator(apiKey, model string) (*AnthropicGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("LLM API key is not configured")
	}
	return &AnthropicGenerator{
		client: anthropic.NewClient(apiKey),
		model:  model,
	}, nil
}

func (g *AnthropicGenerator) GenerateSQL(ctx context.Context, systemPrompt, query string) (string, error) {
	temperature := float32(generationTemperature)
	resp, err := g.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:       anthropic.Model(g.model),
		MaxTokens:   generationMaxTokens,
		Temperature: &temperature,
		System:      systemPrompt,
		Messages: []anthropic.Message{
			{Role: anthropic.RoleUser, Content: []anthropic.MessageContent{
				{Type: "text", Text: &query},
			}},
		},
	})
	if err != nil {
		return "", fmt.Errorf("messages request failed: %w", err)
	}
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != nil {
			return *block.Text, nil
		}
	}
	return "", fmt.Errorf("messages response contained no text block")
}

func (g *AnthropicGenerator) Model() string {
	return g.model
}
