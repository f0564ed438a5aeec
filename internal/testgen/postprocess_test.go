package testgen

import (
	"testing"

	"github.com/nvael/codechange-agent/internal/pipeline"
)

func TestPostProcessUsesMarkupExtensionForMarkupDiff(t *testing.T) {
	diffs := []pipeline.FileDiff{{Path: "app/contact/Widget.tsx"}}
	proposals := []pipeline.TestProposal{{Path: "__tests__/unit/Widget.test.ts", Action: pipeline.TestProposalCreate}}

	out := PostProcess(proposals, diffs, "__tests__/unit")
	if len(out) != 1 {
		t.Fatalf("len(out) = %d, want 1", len(out))
	}
	if out[0].Path != "__tests__/unit/Widget.test.tsx" {
		t.Errorf("Path = %q, want markup extension", out[0].Path)
	}
}

func TestPostProcessUsesPlainExtensionForNonMarkupDiff(t *testing.T) {
	diffs := []pipeline.FileDiff{{Path: "app/lib/format.ts"}}
	proposals := []pipeline.TestProposal{{Path: "__tests__/unit/format.test.tsx", Action: pipeline.TestProposalCreate}}

	out := PostProcess(proposals, diffs, "__tests__/unit")
	if out[0].Path != "__tests__/unit/format.test.ts" {
		t.Errorf("Path = %q, want plain extension", out[0].Path)
	}
}

func TestPostProcessDedupesPreferringMarkup(t *testing.T) {
	diffs := []pipeline.FileDiff{{Path: "app/contact/Widget.tsx"}}
	proposals := []pipeline.TestProposal{
		{Path: "__tests__/unit/Widget.test.ts", Action: pipeline.TestProposalCreate},
		{Path: "__tests__/unit/Widget.test.tsx", Action: pipeline.TestProposalCreate},
	}

	out := PostProcess(proposals, diffs, "__tests__/unit")
	if len(out) != 1 {
		t.Fatalf("len(out) = %d, want 1 after dedup", len(out))
	}
	if out[0].Path != "__tests__/unit/Widget.test.tsx" {
		t.Errorf("Path = %q, want markup variant to win", out[0].Path)
	}
}

func TestPostProcessDetectsMarkupImportInPlainFile(t *testing.T) {
	diffs := []pipeline.FileDiff{{
		Path:    "app/contact/useWidget.ts",
		Content: "import { render } from \"react-dom\"\n",
	}}
	proposals := []pipeline.TestProposal{{Path: "__tests__/unit/useWidget.test.ts"}}

	out := PostProcess(proposals, diffs, "__tests__/unit")
	if out[0].Path != "__tests__/unit/useWidget.test.tsx" {
		t.Errorf("Path = %q, want markup extension from import detection", out[0].Path)
	}
}
