package provider

import (
	"context"
	"fmt"

	"github.com/mohammad-safakhou/deepsearch/config"
	openai_provider "github.com/mohammad-safakhou/deepsearch/provider/openai"
)

// Provider is the interface that all LLM implementations must satisfy
type Provider interface {
	// Generate generates text for a prompt using the given model key.
	Generate(ctx context.Context, prompt string, model string, options map[string]interface{}) (string, error)

	// GenerateWithTokens generates text and returns prompt/completion token usage.
	GenerateWithTokens(ctx context.Context, prompt string, model string, options map[string]interface{}) (string, int64, int64, error)

	// CalculateCost calculates the cost for a given number of tokens
	CalculateCost(inputTokens, outputTokens int64, model string) float64

	// GetAvailableModels returns configured model keys
	GetAvailableModels() []string
}

// NewProvider creates a new LLM client based on the provided configuration
func NewProvider(cfg config.LLMConfig) (Provider, error) {
	if len(cfg.Providers) == 0 {
		return nil, fmt.Errorf("no LLM providers configured")
	}

	for _, p := range cfg.Providers {
		switch p.Type {
		case "openai":
			return openai_provider.NewClient(p), nil
		case "anthropic":
			return nil, fmt.Errorf("anthropic client not implemented yet")
		default:
			return nil, fmt.Errorf("unsupported LLM provider type: %s", p.Type)
		}
	}

	return nil, fmt.Errorf("no valid LLM providers found")
}
