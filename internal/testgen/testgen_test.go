package testgen

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/nvael/codechange-agent/internal/llm"
	"github.com/nvael/codechange-agent/internal/pipeline"
)

type fakeClient struct {
	raw json.RawMessage
	err error
}

func (f *fakeClient) Generate(ctx context.Context, schema *llm.Schema, system, user string) (json.RawMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.raw, nil
}
func (f *fakeClient) Name() string  { return "fake" }
func (f *fakeClient) Model() string { return "fake-model" }

func TestGenerateReturnsPostProcessedProposals(t *testing.T) {
	raw := json.RawMessage(`{"proposals":[{"path":"__tests__/unit/Widget.test.ts","action":"create"}]}`)
	g, err := New(&fakeClient{raw: raw}, "__tests__/unit")
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	prCtx := &pipeline.PRContextWithTests{
		PRContext: pipeline.PRContext{ChangedFiles: []pipeline.FileDiff{{Path: "app/contact/Widget.tsx"}}},
	}
	proposals, err := g.Generate(context.Background(), prCtx, "")
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if len(proposals) != 1 || proposals[0].Path != "__tests__/unit/Widget.test.tsx" {
		t.Errorf("proposals = %+v", proposals)
	}
}
