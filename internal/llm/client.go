// Package llm wraps the structured-output call made at every LLM-backed
// step of the pipeline (C3): render a prompt, call one of the two
// supported providers, validate the JSON result against a schema derived
// from a Go type, and retry failed provider calls with bounded backoff. Callers never see raw provider SDK types.
package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nvael/codechange-agent/internal/config"
)

// Client generates one schema-validated JSON object from a prompt.
// Implementations do not retry a validation failure; a failed provider
// call is retried with bounded backoff whatever its cause (4xx responses
// included).
type Client interface {
	Generate(ctx context.Context, schema *Schema, systemPrompt, userPrompt string) (json.RawMessage, error)
	Name() string
	Model() string
}

// ProviderError wraps a failed provider call with the provider name, so
// callers can log which backend failed without inspecting sentinel error
// types.
type ProviderError struct {
	Provider string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewClient selects a backend from cfg.Provider. cfg.APIKey has already
// been validated non-empty by config.Load; an empty cfg.Model selects the
// provider's default model. When cfg.Verbose
// is set, the returned Client logs every prompt/response pair.
func NewClient(cfg *config.Config) (Client, error) {
	var client Client
	switch cfg.Provider {
	case config.ProviderAnthropic:
		client = newAnthropicClient(cfg.APIKey, cfg.Model, cfg.ReasoningEffort)
	case config.ProviderOpenAI:
		client = newOpenAIClient(cfg.APIKey, cfg.Model, cfg.ReasoningEffort)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}

	if cfg.Verbose {
		client = newVerboseClient(client, nil)
	}
	return client, nil
}
