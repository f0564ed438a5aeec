package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cenkalti/backoff/v5"
)

const (
	defaultAnthropicModel = "claude-sonnet-4-5-20250929"
	defaultMaxTokens      = 4096
)

type anthropicClient struct {
	client anthropic.Client
	model  string
	effort string
}

func newAnthropicClient(apiKey, model, effort string) *anthropicClient {
	if model == "" {
		model = defaultAnthropicModel
	}
	return &anthropicClient{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
		effort: effort,
	}
}

func (c *anthropicClient) Name() string  { return "anthropic" }
func (c *anthropicClient) Model() string { return c.model }

func (c *anthropicClient) Generate(ctx context.Context, schema *Schema, systemPrompt, userPrompt string) (json.RawMessage, error) {
	op := func() (json.RawMessage, error) {
		resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     anthropic.Model(c.model),
			MaxTokens: defaultMaxTokens,
			System: []anthropic.TextBlockParam{
				{Text: systemPrompt},
			},
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
			},
		})
		if err != nil {
			return nil, &ProviderError{Provider: "anthropic", Message: "messages.new failed", Err: err}
		}

		var text string
		for _, block := range resp.Content {
			if block.Type == "text" {
				text += block.Text
			}
		}
		if text == "" {
			return nil, backoff.Permanent(&ProviderError{Provider: "anthropic", Message: "empty response"})
		}

		raw := json.RawMessage(text)
		if err := schema.Validate(raw); err != nil {
			return nil, backoff.Permanent(err)
		}
		return raw, nil
	}

	result, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(3),
		backoff.WithMaxElapsedTime(2*time.Minute),
	)
	if err != nil {
		return nil, fmt.Errorf("anthropic generate: %w", err)
	}
	return result, nil
}
