// Package pipeline holds the data model shared by every component of the
// run: steps, file changes, the accumulated-change ledger, diff records,
// and the structured objects the LLM-facing components produce.
package pipeline

// Step is one ordered plan element produced by the Planner. Immutable once
// produced.
type Step struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Plan        string `json:"plan"`
}

// PlanErrorStepName is the sentinel Step name the Planner emits when it
// cannot produce a valid plan (schema failure or provider error). The
// orchestrator treats a plan consisting of exactly this step as terminal.
const PlanErrorStepName = "PlanError"

// IsPlanError reports whether steps is the single-element PlanError
// sentinel.
func IsPlanError(steps []Step) bool {
	return len(steps) == 1 && steps[0].Name == PlanErrorStepName
}

// FileChange is the full post-state of one file. Writes are replace-in-full;
// there is no patch arithmetic.
type FileChange struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// AccumulatedChanges is an ordered, path-unique ledger of FileChange with
// last-write-wins semantics: at most one entry per path, and that entry is
// always the most recent FileChange emitted for that path. Order reflects
// last touch, not first.
type AccumulatedChanges struct {
	order  []string
	byPath map[string]FileChange
}

// NewAccumulatedChanges returns an empty ledger.
func NewAccumulatedChanges() *AccumulatedChanges {
	return &AccumulatedChanges{byPath: make(map[string]FileChange)}
}

// Apply records changes into the ledger, last-write-wins. A path already
// present is moved to the end of iteration order to reflect the new touch.
func (a *AccumulatedChanges) Apply(changes []FileChange) {
	for _, c := range changes {
		if _, exists := a.byPath[c.Path]; exists {
			a.removeFromOrder(c.Path)
		}
		a.byPath[c.Path] = c
		a.order = append(a.order, c.Path)
	}
}

func (a *AccumulatedChanges) removeFromOrder(path string) {
	for i, p := range a.order {
		if p == path {
			a.order = append(a.order[:i], a.order[i+1:]...)
			return
		}
	}
}

// List returns the ledger's entries in last-touch order.
func (a *AccumulatedChanges) List() []FileChange {
	out := make([]FileChange, 0, len(a.order))
	for _, p := range a.order {
		out = append(out, a.byPath[p])
	}
	return out
}

// Len returns the number of distinct paths in the ledger.
func (a *AccumulatedChanges) Len() int {
	return len(a.order)
}

// Get returns the current content for path, if any.
func (a *AccumulatedChanges) Get(path string) (FileChange, bool) {
	fc, ok := a.byPath[path]
	return fc, ok
}

// FileDiff is one element of a parsed diff.
type FileDiff struct {
	Path      string `json:"path"`
	RawPatch  string `json:"raw_patch"`
	Status    string `json:"status,omitempty"`
	Additions int    `json:"additions,omitempty"`
	Deletions int    `json:"deletions,omitempty"`
	Content   string `json:"content,omitempty"`
	Excluded  bool   `json:"excluded,omitempty"`
}

// PRContext is the per-review-pass pipeline record. Built twice per run:
// partial (HEAD~1..HEAD) and full (merge-base..HEAD). Never cached across
// commits.
type PRContext struct {
	Owner          string     `json:"owner"`
	Repo           string     `json:"repo"`
	PullNumber     int        `json:"pull_number,omitempty"`
	HeadRef        string     `json:"head_ref"`
	BaseRef        string     `json:"base_ref"`
	Title          string     `json:"title"`
	ChangedFiles   []FileDiff `json:"changed_files"`
	CommitMessages []string   `json:"commit_messages"`
}

// ExistingTestFile is one existing test under the configured test root.
type ExistingTestFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// PRContextWithTests extends PRContext with the set of existing test files
// under the test root whose name matches the unit-test naming convention.
type PRContextWithTests struct {
	PRContext
	ExistingTestFiles []ExistingTestFile `json:"existing_test_files"`
}

// FileAnalysis is one per-file note within a ReviewAnalysis.
type FileAnalysis struct {
	Path     string `json:"path"`
	Analysis string `json:"analysis"`
}

// ReviewAnalysis is the structured output of the Code Reviewer (C9).
type ReviewAnalysis struct {
	Summary            string         `json:"summary"`
	FileAnalyses       []FileAnalysis `json:"file_analyses"`
	OverallSuggestions []string       `json:"overall_suggestions"`
}

// FallbackReviewAnalysis is returned whenever the Code Reviewer's LLM call
// fails; the review is advisory so a parse failure must not abort the run.
func FallbackReviewAnalysis() ReviewAnalysis {
	return ReviewAnalysis{
		Summary:            "Review parse error",
		FileAnalyses:       []FileAnalysis{},
		OverallSuggestions: []string{},
	}
}

// TestProposalAction is the action a TestProposal requests.
type TestProposalAction string

const (
	TestProposalCreate TestProposalAction = "create"
	TestProposalUpdate TestProposalAction = "update"
	TestProposalRename TestProposalAction = "rename"
)

// TestProposal is produced by C11/C12. If Action is rename, OldPath is
// non-empty and must differ from Path; otherwise OldPath is ignored.
type TestProposal struct {
	Path        string             `json:"path"`
	TestContent string             `json:"test_content"`
	Action      TestProposalAction `json:"action"`
	OldPath     string             `json:"old_path,omitempty"`
}

// GatingDecision is produced by C10.
type GatingDecision struct {
	ShouldGenerate bool   `json:"should_generate"`
	Reasoning      string `json:"reasoning"`
	Recommendation string `json:"recommendation"`
}

// FallbackGatingDecision is returned whenever the Test Gating LLM call
// fails; the default is conservative (no generation) rather than blocking
// the run.
func FallbackGatingDecision() GatingDecision {
	return GatingDecision{
		ShouldGenerate: false,
		Reasoning:      "Gating error",
	}
}

// RunRecord is the per-process pipeline record the Orchestrator maintains
// for the lifetime of one run.
type RunRecord struct {
	BranchName       string              `json:"branch_name"`
	PRNumber         int                 `json:"pr_number"`
	Accumulated      *AccumulatedChanges `json:"-"`
	ReviewCommentIDs []int64             `json:"review_comment_ids"`
	TestCommentIDs   []int64             `json:"test_comment_ids"`
}
