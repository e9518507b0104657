package llm

import (
	"fmt"

	"github.com/OveRide-Phoenix/kk-v1/pkg/config"
)

// NewGenerator builds the configured provider's client.
func NewGenerator(cfg config.LLMConfig) (SQLGenerator, error) {
	switch cfg.Provider {
	case "openai", "":
		return NewOpenAIGenerator(cfg.APIKey, cfg.Endpoint, cfg.Model)
	case "anthropic":
		return NewAnthropicGenerator(cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}
