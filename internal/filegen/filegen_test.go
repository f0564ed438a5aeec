package filegen

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

func TestGenerateReturnsChanges(t *testing.T) {
	raw := json.RawMessage(`{"changes":[{"path":"app/contact/page.tsx","content":"export default function Page() {}"}]}`)
	g, err := New(&fakeClient{raw: raw}, "")
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	step := pipeline.Step{Name: "Step 1", Description: "add contact page"}
	changes, err := g.Generate(context.Background(), step, pipeline.NewAccumulatedChanges(), "snapshot", "")
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if len(changes) != 1 || changes[0].Path != "app/contact/page.tsx" {
		t.Errorf("changes = %+v", changes)
	}
}

func TestGenerateFiltersOutsideFrontendRoot(t *testing.T) {
	raw := json.RawMessage(`{"changes":[
		{"path":"app/contact/page.tsx","content":"ok"},
		{"path":"infra/terraform/main.tf","content":"nope"}
	]}`)
	g, err := New(&fakeClient{raw: raw}, "app")
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	changes, err := g.Generate(context.Background(), pipeline.Step{Name: "Step 1"}, pipeline.NewAccumulatedChanges(), "snapshot", "")
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if len(changes) != 1 || changes[0].Path != "app/contact/page.tsx" {
		t.Errorf("expected only the in-root change to survive, got %+v", changes)
	}
}

func TestGenerateReturnsEmptyForNoOpStep(t *testing.T) {
	g, err := New(&fakeClient{raw: json.RawMessage(`{"changes":[]}`)}, "")
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	changes, err := g.Generate(context.Background(), pipeline.Step{Name: "Step 1"}, pipeline.NewAccumulatedChanges(), "snapshot", "")
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if len(changes) != 0 {
		t.Errorf("expected empty changes, got %+v", changes)
	}
}

func TestGeneratePropagatesProviderError(t *testing.T) {
	g, err := New(&fakeClient{err: context.DeadlineExceeded}, "")
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if _, err := g.Generate(context.Background(), pipeline.Step{Name: "Step 1"}, pipeline.NewAccumulatedChanges(), "snapshot", ""); err == nil {
		t.Fatal("expected error to propagate from provider failure")
	}
}
