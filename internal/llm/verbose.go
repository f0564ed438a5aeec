package llm

import (
	"context"
	"encoding/json"
	"log/slog"
)

// verboseClient wraps a Client and logs every prompt/response pair at
// Info level, gated by Config.Verbose (FACTORY_VERBOSE). Wrapping keeps
// both provider backends free of logging concerns.
type verboseClient struct {
	Client
	logger *slog.Logger
}

func newVerboseClient(inner Client, logger *slog.Logger) Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &verboseClient{Client: inner, logger: logger}
}

func (v *verboseClient) Generate(ctx context.Context, schema *Schema, systemPrompt, userPrompt string) (json.RawMessage, error) {
	v.logger.Info("llm request", "provider", v.Client.Name(), "model", v.Client.Model(), "system_prompt", systemPrompt, "user_prompt", userPrompt)
	raw, err := v.Client.Generate(ctx, schema, systemPrompt, userPrompt)
	if err != nil {
		v.logger.Info("llm response", "provider", v.Client.Name(), "error", err)
		return raw, err
	}
	v.logger.Info("llm response", "provider", v.Client.Name(), "response", string(raw))
	return raw, nil
}
