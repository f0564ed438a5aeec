// Package orchestrator drives one run end to end: it switches to the
// run's branch, plans, runs the per-step flow for every plan step, then
// the final flow, logging each transition to the narrow event log and
// reporting the terminal state (C15). Narrowed from the teacher's
// Advance/event-logging/typed-result discipline to a single linear,
// non-retrying state machine.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nvael/codechange-agent/internal/config"
	"github.com/nvael/codechange-agent/internal/db"
	"github.com/nvael/codechange-agent/internal/flow"
	"github.com/nvael/codechange-agent/internal/pipeline"
	"github.com/nvael/codechange-agent/internal/planner"
	"github.com/nvael/codechange-agent/internal/snapshot"
	"github.com/nvael/codechange-agent/internal/vcs"
)

// State is one node of the run's state machine (§4.15).
type State string

const (
	StateInit                 State = "INIT"
	StatePlanning             State = "PLANNING"
	StateStep                 State = "STEP"
	StateFinalReview          State = "FINAL_REVIEW"
	StateReadyForReview       State = "READY_FOR_REVIEW"
	StateTestBudgetExhausted  State = "TEST_BUDGET_EXHAUSTED"
	StateAborted              State = "ABORTED"
	StateNoPlan               State = "NO_PLAN"
)

// Result reports the terminal state of a run and the exit code the
// caller should use.
type Result struct {
	State      State
	BranchName string
	PRNumber   int
	PRURL      string
	Err        error
}

// ExitCode reports the process exit code for Result per §6: 0 on success
// or a diagnosable non-fatal state (no plan), 1 on abort or unresolved
// test failures.
func (r Result) ExitCode() int {
	switch r.State {
	case StateReadyForReview, StateNoPlan:
		return 0
	default:
		return 1
	}
}

// Orchestrator wires every component of a run together.
type Orchestrator struct {
	Cfg     *config.Config
	Repo    *vcs.Repo
	Planner *planner.Planner
	Flow    *flow.Flow
	DB      *db.DB // optional; nil disables event logging
	Now     func() time.Time

	// Logger receives Info lines for each state transition. Defaults to
	// slog.Default() if nil.
	Logger *slog.Logger
}

// New builds an Orchestrator. now defaults to time.Now.
func New(cfg *config.Config, repo *vcs.Repo, p *planner.Planner, f *flow.Flow, database *db.DB) *Orchestrator {
	return &Orchestrator{Cfg: cfg, Repo: repo, Planner: p, Flow: f, DB: database, Now: time.Now}
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o *Orchestrator) logEvent(ctx context.Context, branch, event, stepName, detail string, failed bool) {
	if o.DB == nil {
		return
	}
	_ = o.DB.LogEvent(ctx, branch, event, stepName, detail, failed)
}

// Run drives the full state machine: INIT → PLANNING → STEP(i)… →
// FINAL_REVIEW → {READY_FOR_REVIEW | TEST_BUDGET_EXHAUSTED}, or an early
// terminal state on plan or step failure. Transitions are strictly
// forward; Run never retries a step.
func (o *Orchestrator) Run(ctx context.Context) Result {
	branch := vcs.BranchName(o.Cfg, o.now())
	run := &pipeline.RunRecord{BranchName: branch}
	log := o.logger().With("branch", branch)
	log.Info("run starting", "state", StateInit, "feature_request", o.Cfg.FeatureRequest)

	if err := o.Repo.SwitchToBranch(branch, o.Cfg.BaseBranch); err != nil {
		log.Warn("branch switch failed", "state", StateAborted, "error", err)
		o.logEvent(ctx, branch, "abort", "", err.Error(), true)
		return Result{State: StateAborted, BranchName: branch, Err: fmt.Errorf("switch to branch: %w", err)}
	}

	snap, err := snapshot.Snapshot(o.Cfg.WorkDir, snapshot.DefaultOptions())
	if err != nil {
		log.Warn("snapshot build failed", "state", StateAborted, "error", err)
		o.logEvent(ctx, branch, "abort", "", err.Error(), true)
		return Result{State: StateAborted, BranchName: branch, Err: fmt.Errorf("build snapshot: %w", err)}
	}

	log.Info("planning", "state", StatePlanning)
	steps := o.Planner.Plan(ctx, o.Cfg.FeatureRequest, o.Cfg.CodeRules, snap)
	o.logEvent(ctx, branch, "plan", "", fmt.Sprintf("%d steps", len(steps)), pipeline.IsPlanError(steps))
	if pipeline.IsPlanError(steps) {
		log.Warn("planner produced no usable plan", "state", StateNoPlan)
		return Result{State: StateNoPlan, BranchName: branch}
	}
	log.Info("plan ready", "state", StateStep, "steps", len(steps))

	accumulated := pipeline.NewAccumulatedChanges()
	prTitle := fmt.Sprintf("AI: %s", o.Cfg.FeatureRequest)
	prBody := fmt.Sprintf("This is an AI-generated PR for feature: %q", o.Cfg.FeatureRequest)

	for i, step := range steps {
		index := i + 1
		result, err := o.Flow.PartialStep(ctx, run, accumulated, step, index, prTitle, prBody)
		if err != nil {
			log.Warn("step failed", "state", StateAborted, "step", step.Name, "index", index, "error", err)
			o.logEvent(ctx, branch, "abort", step.Name, err.Error(), true)
			return Result{State: StateAborted, BranchName: branch, PRNumber: run.PRNumber, Err: fmt.Errorf("step %d: %w", index, err)}
		}
		log.Info("step committed", "state", StateStep, "step", step.Name, "index", index)
		o.logEvent(ctx, branch, "commit", step.Name, "", false)
		if result.PRNumber != 0 {
			o.logEvent(ctx, branch, "pr_ensure", step.Name, result.PRURL, false)
		}
	}

	log.Info("running final review and test pass", "state", StateFinalReview)
	passed, err := o.Flow.FinalFlow(ctx, run, accumulated)
	if err != nil {
		log.Warn("final flow failed", "state", StateAborted, "error", err)
		o.logEvent(ctx, branch, "abort", "final", err.Error(), true)
		return Result{State: StateAborted, BranchName: branch, PRNumber: run.PRNumber, Err: fmt.Errorf("final flow: %w", err)}
	}

	if !passed {
		log.Warn("test fix budget exhausted", "state", StateTestBudgetExhausted, "pr", run.PRNumber)
		o.logEvent(ctx, branch, "test_run", "final", "budget exhausted", true)
		return Result{State: StateTestBudgetExhausted, BranchName: branch, PRNumber: run.PRNumber}
	}

	log.Info("run ready for review", "state", StateReadyForReview, "pr", run.PRNumber)
	o.logEvent(ctx, branch, "test_run", "final", "passed", false)
	return Result{State: StateReadyForReview, BranchName: branch, PRNumber: run.PRNumber}
}
