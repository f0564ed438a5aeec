package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

type fakeClient struct {
	name, model string
	raw         json.RawMessage
	err         error
}

func (f *fakeClient) Generate(ctx context.Context, schema *Schema, systemPrompt, userPrompt string) (json.RawMessage, error) {
	return f.raw, f.err
}
func (f *fakeClient) Name() string  { return f.name }
func (f *fakeClient) Model() string { return f.model }

func TestVerboseClientLogsPromptAndResponse(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	inner := &fakeClient{name: "openai", model: "gpt-4o-mini", raw: json.RawMessage(`{"ok":true}`)}
	client := newVerboseClient(inner, logger)

	_, err := client.Generate(context.Background(), nil, "system prompt text", "user prompt text")
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "user prompt text") {
		t.Errorf("log output missing user prompt: %s", out)
	}
	if !strings.Contains(out, `{"ok":true}`) {
		t.Errorf("log output missing response: %s", out)
	}
}

func TestVerboseClientLogsErrors(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	inner := &fakeClient{name: "anthropic", model: "claude", err: errors.New("boom")}
	client := newVerboseClient(inner, logger)

	_, err := client.Generate(context.Background(), nil, "sys", "usr")
	if err == nil {
		t.Fatal("expected error")
	}

	if !strings.Contains(buf.String(), "boom") {
		t.Errorf("log output missing error: %s", buf.String())
	}
}

func TestVerboseClientForwardsNameAndModel(t *testing.T) {
	inner := &fakeClient{name: "openai", model: "gpt-4o-mini"}
	client := newVerboseClient(inner, nil)

	if client.Name() != "openai" {
		t.Errorf("Name() = %q, want openai", client.Name())
	}
	if client.Model() != "gpt-4o-mini" {
		t.Errorf("Model() = %q, want gpt-4o-mini", client.Model())
	}
}
