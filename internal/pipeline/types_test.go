package pipeline

import "testing"

func TestAccumulatedChangesLastWriteWins(t *testing.T) {
	ac := NewAccumulatedChanges()
	ac.Apply([]FileChange{
		{Path: "a.go", Content: "v1"},
		{Path: "b.go", Content: "v1"},
	})
	ac.Apply([]FileChange{
		{Path: "a.go", Content: "v2"},
	})

	if ac.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", ac.Len())
	}
	fc, ok := ac.Get("a.go")
	if !ok || fc.Content != "v2" {
		t.Fatalf("Get(a.go) = %+v, %v; want content v2", fc, ok)
	}
}

func TestAccumulatedChangesOrderReflectsLastTouch(t *testing.T) {
	ac := NewAccumulatedChanges()
	ac.Apply([]FileChange{
		{Path: "a.go", Content: "v1"},
		{Path: "b.go", Content: "v1"},
	})
	ac.Apply([]FileChange{
		{Path: "a.go", Content: "v2"},
	})

	list := ac.List()
	if len(list) != 2 {
		t.Fatalf("List() len = %d, want 2", len(list))
	}
	if list[0].Path != "b.go" || list[1].Path != "a.go" {
		t.Fatalf("List() order = %+v, want b.go then a.go", list)
	}
}

func TestIsPlanError(t *testing.T) {
	cases := []struct {
		name  string
		steps []Step
		want  bool
	}{
		{"empty", nil, false},
		{"normal single", []Step{{Name: "add page"}}, false},
		{"sentinel", []Step{{Name: PlanErrorStepName}}, true},
		{"sentinel plus more", []Step{{Name: PlanErrorStepName}, {Name: "x"}}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := IsPlanError(c.steps); got != c.want {
				t.Errorf("IsPlanError(%+v) = %v, want %v", c.steps, got, c.want)
			}
		})
	}
}

func TestFallbackReviewAnalysis(t *testing.T) {
	ra := FallbackReviewAnalysis()
	if ra.Summary != "Review parse error" {
		t.Errorf("Summary = %q, want %q", ra.Summary, "Review parse error")
	}
	if len(ra.FileAnalyses) != 0 || len(ra.OverallSuggestions) != 0 {
		t.Errorf("fallback analysis should have empty lists, got %+v", ra)
	}
}

func TestFallbackGatingDecision(t *testing.T) {
	gd := FallbackGatingDecision()
	if gd.ShouldGenerate {
		t.Errorf("fallback decision should default to false")
	}
	if gd.Reasoning != "Gating error" {
		t.Errorf("Reasoning = %q, want %q", gd.Reasoning, "Gating error")
	}
}
