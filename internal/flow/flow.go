// Package flow implements the per-step partial flow (C13) and the
// full-range final flow (C14): the sequence of generate, write, commit,
// push, review, and test-repair operations that run once per plan step
// and once more at the end of the plan. Generalized from the teacher's
// stage.Engine.Run (prompt → session → checks → bounded fix loop).
package flow

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/nvael/codechange-agent/internal/codereview"
	"github.com/nvael/codechange-agent/internal/config"
	"github.com/nvael/codechange-agent/internal/diffset"
	"github.com/nvael/codechange-agent/internal/filegen"
	"github.com/nvael/codechange-agent/internal/pipeline"
	"github.com/nvael/codechange-agent/internal/review"
	"github.com/nvael/codechange-agent/internal/snapshot"
	"github.com/nvael/codechange-agent/internal/testgate"
	"github.com/nvael/codechange-agent/internal/testgen"
	"github.com/nvael/codechange-agent/internal/testrepair"
	"github.com/nvael/codechange-agent/internal/testrun"
	"github.com/nvael/codechange-agent/internal/vcs"
)

const (
	testGenerationCommit = "AI test generation - final pass"
	testFixCommitFmt     = "AI test fix attempt #%d"
)

var existingTestSuffixes = []string{".test.ts", ".test.tsx"}

// Flow bundles every component a step or the final pass drives. All
// fields are required; Flow performs no LLM or VCS calls of its own
// beyond what these wrap.
type Flow struct {
	Cfg *config.Config

	Repo   *vcs.Repo
	PRs    *vcs.PRClient
	Review *review.Surface
	Diffs  *diffset.Extractor

	FileGen    *filegen.Generator
	Reviewer   *codereview.Reviewer
	Gate       *testgate.Gate
	TestGen    *testgen.Generator
	TestRepair *testrepair.Repairer
	TestRunner *testrun.Runner

	// Progress receives human-readable status lines. Defaults to
	// io.Discard if nil.
	Progress io.Writer
}

func (f *Flow) logf(format string, args ...interface{}) {
	if f.Progress == nil {
		return
	}
	fmt.Fprintf(f.Progress, format+"\n", args...)
}

// StepResult reports what a partial step accomplished.
type StepResult struct {
	Committed bool
	PRNumber  int
	PRURL     string
}

// PartialStep executes the C13 flow for the i-th step (1-indexed).
// accumulated is updated in place with this step's changes. run.PRNumber
// is populated on the first step that produces a commit.
func (f *Flow) PartialStep(ctx context.Context, run *pipeline.RunRecord, accumulated *pipeline.AccumulatedChanges, step pipeline.Step, index int, prTitle, prBody string) (*StepResult, error) {
	snap, err := snapshot.Snapshot(f.Cfg.WorkDir, snapshot.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("snapshot working tree: %w", err)
	}

	changes, err := f.FileGen.Generate(ctx, step, accumulated, snap, f.Cfg.CodeRules)
	if err != nil {
		return nil, fmt.Errorf("generate changes for step %q: %w", step.Name, err)
	}
	if len(changes) == 0 {
		f.logf("step %d (%s): no file changes, advancing", index, step.Name)
		return &StepResult{}, nil
	}

	if err := writeFileChanges(f.Cfg.WorkDir, changes); err != nil {
		return nil, fmt.Errorf("write step %d changes: %w", index, err)
	}
	accumulated.Apply(changes)

	committed, err := f.Repo.Commit(fmt.Sprintf("Step %d: %s", index, step.Name))
	if err != nil {
		return nil, fmt.Errorf("commit step %d: %w", index, err)
	}
	if !committed {
		return &StepResult{}, nil
	}

	if err := f.Repo.Push(run.BranchName); err != nil {
		return nil, fmt.Errorf("push step %d: %w", index, err)
	}

	result := &StepResult{Committed: true}
	if run.PRNumber == 0 {
		pr, err := f.PRs.EnsurePullRequest(ctx, run.BranchName, f.Cfg.BaseBranch, prTitle, prBody)
		if err != nil {
			return nil, fmt.Errorf("ensure pull request: %w", err)
		}
		run.PRNumber = pr.Number
		result.PRNumber = pr.Number
		result.PRURL = pr.URL
	}

	testCtx, err := f.buildPartialContext(run)
	if err != nil {
		return nil, fmt.Errorf("build partial context for step %d: %w", index, err)
	}

	analysis := f.Reviewer.Review(ctx, &testCtx.PRContext)
	commentID, err := f.Review.CreateComment(ctx, run.PRNumber, fmt.Sprintf("## Step %d: %s\nReviewing...", index, step.Name))
	if err != nil {
		f.logf("step %d: post placeholder review comment failed: %v", index, err)
	} else {
		run.ReviewCommentIDs = append(run.ReviewCommentIDs, commentID)
		if err := f.Review.UpdateComment(ctx, commentID, renderReviewComment(index, step.Name, analysis)); err != nil {
			f.logf("step %d: update review comment failed: %v", index, err)
		}
	}

	if f.Cfg.PartialTestingEnabled {
		passed, _, err := f.runTestCycle(ctx, accumulated, testCtx, analysis.Summary)
		if err != nil {
			return nil, fmt.Errorf("test cycle for step %d: %w", index, err)
		}
		if !passed {
			return nil, fmt.Errorf("step %d: test budget exhausted after %d fix attempts", index, f.Cfg.MaxFixRounds)
		}
	}

	return result, nil
}

// FinalFlow executes the C14 flow over the full range base..HEAD.
// Returns true when the final test run (after any repair attempts)
// passed.
func (f *Flow) FinalFlow(ctx context.Context, run *pipeline.RunRecord, accumulated *pipeline.AccumulatedChanges) (bool, error) {
	prCtx, err := f.Diffs.Full(f.Cfg.WorkDir, f.Cfg.BaseBranch)
	if err != nil {
		return false, fmt.Errorf("build full diff context: %w", err)
	}
	prCtx.Owner, prCtx.Repo, prCtx.PullNumber = f.Cfg.Owner, f.Cfg.Repo, run.PRNumber
	prCtx.HeadRef, prCtx.BaseRef = run.BranchName, f.Cfg.BaseBranch
	testCtx, err := f.attachExistingTests(prCtx)
	if err != nil {
		return false, fmt.Errorf("attach existing tests: %w", err)
	}

	analysis := f.Reviewer.Review(ctx, &testCtx.PRContext)
	commentID, err := f.Review.CreateComment(ctx, run.PRNumber, "## Final review\nReviewing...")
	if err != nil {
		f.logf("final review: post placeholder comment failed: %v", err)
	} else {
		run.ReviewCommentIDs = append(run.ReviewCommentIDs, commentID)
		if err := f.Review.UpdateComment(ctx, commentID, renderReviewComment(0, "final", analysis)); err != nil {
			f.logf("final review: update comment failed: %v", err)
		}
	}

	testCommentID, err := f.Review.CreateComment(ctx, run.PRNumber, "## Tests\nEvaluating...")
	if err != nil {
		f.logf("final tests: post placeholder comment failed: %v", err)
	} else {
		run.TestCommentIDs = append(run.TestCommentIDs, testCommentID)
	}

	passed, attempts, err := f.runTestCycle(ctx, accumulated, testCtx, analysis.Summary)
	if err != nil {
		return false, fmt.Errorf("final test cycle: %w", err)
	}

	if testCommentID != 0 {
		body := "Tests passing."
		if !passed {
			body = fmt.Sprintf("Tests failing after %d fix attempts.", attempts)
		}
		if err := f.Review.UpdateComment(ctx, testCommentID, body); err != nil {
			f.logf("final tests: update comment failed: %v", err)
		}
	}

	finalBody := "All steps done. PR is ready for final review."
	if !passed {
		finalBody = fmt.Sprintf("All steps done. Tests failing after %d fix attempts.", attempts)
	}
	if err := f.PRs.UpdatePullRequestBody(ctx, run.PRNumber, finalBody); err != nil {
		f.logf("final: update PR body failed: %v", err)
	}

	return passed, nil
}

// runTestCycle runs C10, optionally C11, then C6 and up to MaxFixRounds
// iterations of C12, per §4.13/§4.14's shared test-repair discipline.
func (f *Flow) runTestCycle(ctx context.Context, accumulated *pipeline.AccumulatedChanges, testCtx *pipeline.PRContextWithTests, reviewSummary string) (passed bool, attempts int, err error) {
	decision := f.Gate.Decide(ctx, testCtx, reviewSummary)
	if decision.ShouldGenerate {
		proposals, genErr := f.TestGen.Generate(ctx, testCtx, reviewSummary)
		if genErr != nil {
			f.logf("test generation failed, treating as no-op: %v", genErr)
			proposals = nil
		}
		if len(proposals) > 0 {
			if err := writeTestProposals(f.Cfg.WorkDir, proposals); err != nil {
				return false, 0, fmt.Errorf("write generated tests: %w", err)
			}
			if _, err := f.Repo.Commit(testGenerationCommit); err != nil {
				return false, 0, fmt.Errorf("commit generated tests: %w", err)
			}
			if err := f.Repo.Push(testCtx.HeadRef); err != nil {
				return false, 0, fmt.Errorf("push generated tests: %w", err)
			}
		}
	}

	result, err := f.TestRunner.Run(f.Cfg.WorkDir)
	if err != nil {
		return false, 0, fmt.Errorf("run tests: %w", err)
	}

	for result.Failed && attempts < f.Cfg.MaxFixRounds {
		attempts++
		repaired, repairErr := f.TestRepair.Repair(ctx, testCtx, result.Output, attempts)
		if repairErr != nil {
			f.logf("test repair attempt %d failed, treating as no-op: %v", attempts, repairErr)
			break
		}
		if len(repaired) == 0 {
			break
		}
		if err := writeTestProposals(f.Cfg.WorkDir, repaired); err != nil {
			return false, attempts, fmt.Errorf("write repaired tests: %w", err)
		}
		if _, err := f.Repo.Commit(fmt.Sprintf(testFixCommitFmt, attempts)); err != nil {
			return false, attempts, fmt.Errorf("commit test fix attempt %d: %w", attempts, err)
		}
		if err := f.Repo.Push(testCtx.HeadRef); err != nil {
			return false, attempts, fmt.Errorf("push test fix attempt %d: %w", attempts, err)
		}
		result, err = f.TestRunner.Run(f.Cfg.WorkDir)
		if err != nil {
			return false, attempts, fmt.Errorf("run tests after fix attempt %d: %w", attempts, err)
		}
	}

	return !result.Failed, attempts, nil
}

func (f *Flow) buildPartialContext(run *pipeline.RunRecord) (*pipeline.PRContextWithTests, error) {
	prCtx, err := f.Diffs.Partial(f.Cfg.WorkDir)
	if err != nil {
		return nil, err
	}
	prCtx.Owner, prCtx.Repo, prCtx.PullNumber = f.Cfg.Owner, f.Cfg.Repo, run.PRNumber
	prCtx.HeadRef, prCtx.BaseRef = run.BranchName, f.Cfg.BaseBranch
	return f.attachExistingTests(prCtx)
}

// attachExistingTests reads every file under the configured test root
// matching the unit-test naming convention and attaches it to base.
func (f *Flow) attachExistingTests(base *pipeline.PRContext) (*pipeline.PRContextWithTests, error) {
	testRoot := filepath.Join(f.Cfg.WorkDir, f.Cfg.TestRoot)
	entries, err := os.ReadDir(testRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return &pipeline.PRContextWithTests{PRContext: *base}, nil
		}
		return nil, fmt.Errorf("read test root %s: %w", testRoot, err)
	}

	var files []pipeline.ExistingTestFile
	for _, e := range entries {
		if e.IsDir() || !isExistingTestName(e.Name()) {
			continue
		}
		content, err := os.ReadFile(filepath.Join(testRoot, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read test file %s: %w", e.Name(), err)
		}
		files = append(files, pipeline.ExistingTestFile{
			Path:    path.Join(f.Cfg.TestRoot, e.Name()),
			Content: string(content),
		})
	}

	return &pipeline.PRContextWithTests{PRContext: *base, ExistingTestFiles: files}, nil
}

func isExistingTestName(name string) bool {
	for _, suffix := range existingTestSuffixes {
		if len(name) > len(suffix) && name[len(name)-len(suffix):] == suffix {
			return true
		}
	}
	return false
}

func writeFileChanges(dir string, changes []pipeline.FileChange) error {
	for _, c := range changes {
		abs := filepath.Join(dir, c.Path)
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			return fmt.Errorf("mkdir for %s: %w", c.Path, err)
		}
		if err := pipeline.WriteAtomic(abs, []byte(c.Content)); err != nil {
			return fmt.Errorf("write %s: %w", c.Path, err)
		}
	}
	return nil
}

func writeTestProposals(dir string, proposals []pipeline.TestProposal) error {
	for _, p := range proposals {
		if p.Action == pipeline.TestProposalRename && p.OldPath != "" && p.OldPath != p.Path {
			oldAbs := filepath.Join(dir, p.OldPath)
			newAbs := filepath.Join(dir, p.Path)
			if err := os.MkdirAll(filepath.Dir(newAbs), 0o755); err != nil {
				return fmt.Errorf("mkdir for %s: %w", p.Path, err)
			}
			if err := os.Rename(oldAbs, newAbs); err != nil {
				return fmt.Errorf("rename %s to %s: %w", p.OldPath, p.Path, err)
			}
		}
		abs := filepath.Join(dir, p.Path)
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			return fmt.Errorf("mkdir for %s: %w", p.Path, err)
		}
		if err := pipeline.WriteAtomic(abs, []byte(p.TestContent)); err != nil {
			return fmt.Errorf("write %s: %w", p.Path, err)
		}
	}
	return nil
}

func renderReviewComment(index int, name string, analysis pipeline.ReviewAnalysis) string {
	header := fmt.Sprintf("## Step %d: %s\n", index, name)
	if index == 0 {
		header = "## Final review\n"
	}
	body := header + analysis.Summary + "\n"
	for _, fa := range analysis.FileAnalyses {
		body += fmt.Sprintf("\n**%s**\n%s\n", fa.Path, fa.Analysis)
	}
	for _, s := range analysis.OverallSuggestions {
		body += fmt.Sprintf("\n- %s", s)
	}
	return body
}
