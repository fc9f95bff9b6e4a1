// Package assistantutils builds an Assistant from configuration.
package assistantutils

import (
	"fmt"
	"log/slog"

	"github.com/papercomputeco/tablechat/pkg/assistant"
	"github.com/papercomputeco/tablechat/pkg/assistant/anthropic"
	"github.com/papercomputeco/tablechat/pkg/assistant/echo"
	"github.com/papercomputeco/tablechat/pkg/assistant/ollama"
	"github.com/papercomputeco/tablechat/pkg/assistant/openai"
)

type NewAssistantOpts struct {
	ProviderType string
	TargetURL    string
	Model        string

	// APIKey is used by the hosted providers. When empty they read their
	// own environment variable.
	APIKey string

	// ThinkingBudget turns on extended thinking for anthropic.
	ThinkingBudget int

	Logger *slog.Logger
}

func NewAssistant(o *NewAssistantOpts) (assistant.Assistant, error) {
	switch o.ProviderType {
	case "ollama":
		return ollama.NewAssistant(ollama.Config{
			BaseURL: o.TargetURL,
			Model:   o.Model,
			Logger:  o.Logger,
		})
	case "openai":
		return openai.NewAssistant(openai.Config{
			BaseURL: o.TargetURL,
			Model:   o.Model,
			APIKey:  o.APIKey,
			Logger:  o.Logger,
		})
	case "anthropic", "claude":
		return anthropic.NewAssistant(anthropic.Config{
			BaseURL:        o.TargetURL,
			Model:          o.Model,
			APIKey:         o.APIKey,
			ThinkingBudget: o.ThinkingBudget,
			Logger:         o.Logger,
		})
	case "echo":
		return echo.NewAssistant(echo.Config{}), nil
	default:
		return nil, fmt.Errorf("unsupported assistant provider: %s", o.ProviderType)
	}
}
