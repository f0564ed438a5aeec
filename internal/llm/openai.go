package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	openai "github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = "gpt-4o-mini"

type openAIClient struct {
	client *openai.Client
	model  string
	effort string
}

func newOpenAIClient(apiKey, model, effort string) *openAIClient {
	if model == "" {
		model = defaultOpenAIModel
	}
	return &openAIClient{
		client: openai.NewClient(apiKey),
		model:  model,
		effort: effort,
	}
}

func (c *openAIClient) Name() string  { return "openai" }
func (c *openAIClient) Model() string { return c.model }

func (c *openAIClient) Generate(ctx context.Context, schema *Schema, systemPrompt, userPrompt string) (json.RawMessage, error) {
	op := func() (json.RawMessage, error) {
		req := openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: userPrompt},
			},
			Temperature:    0,
			N:              1,
			ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		}
		if c.effort != "" {
			req.ReasoningEffort = c.effort
		}

		resp, err := c.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return nil, &ProviderError{Provider: "openai", Message: "chat completion failed", Err: err}
		}
		if len(resp.Choices) == 0 {
			return nil, backoff.Permanent(&ProviderError{Provider: "openai", Message: "no choices in response"})
		}

		raw := json.RawMessage(resp.Choices[0].Message.Content)
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
		return nil, fmt.Errorf("openai generate: %w", err)
	}
	return result, nil
}
