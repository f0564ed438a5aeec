// Package codereview produces an advisory ReviewAnalysis for one
// PRContext (C9). The review never blocks the run: any LLM or schema
// failure degrades to pipeline.FallbackReviewAnalysis rather than
// propagating an error, mirroring the always-produce-a-result discipline
// a gate report follows even when individual checks fail.
package codereview

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/nvael/codechange-agent/internal/llm"
	"github.com/nvael/codechange-agent/internal/pipeline"
	"github.com/nvael/codechange-agent/internal/prompt"
)

const systemPrompt = `You are the code review stage of an autonomous code-change agent. Given a
diff (partial or full), summarize what changed, call out per-file
observations, and list any overall suggestions. Be concise and concrete.
Respond with a JSON object matching the given schema, nothing else.`

const userTemplate = `COMMIT MESSAGES:
{{commits}}

CHANGED FILES:
{{diffs}}

Produce the review as JSON.`

// Reviewer produces ReviewAnalysis values.
type Reviewer struct {
	Client llm.Client
	Schema *llm.Schema

	// Logger receives a Warn line on every fallback path. Defaults to
	// slog.Default() if nil.
	Logger *slog.Logger
}

// New builds a Reviewer backed by client.
func New(client llm.Client) (*Reviewer, error) {
	schema, err := llm.NewSchema("ReviewAnalysis", &pipeline.ReviewAnalysis{})
	if err != nil {
		return nil, err
	}
	return &Reviewer{Client: client, Schema: schema}, nil
}

func (r *Reviewer) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// Review analyzes ctx and always returns a usable ReviewAnalysis, falling
// back to pipeline.FallbackReviewAnalysis on any failure.
func (r *Reviewer) Review(ctx context.Context, prCtx *pipeline.PRContext) pipeline.ReviewAnalysis {
	userPrompt, err := prompt.Render(userTemplate, prompt.Vars{
		"commits": strings.Join(prCtx.CommitMessages, "\n"),
		"diffs":   renderDiffs(prCtx.ChangedFiles),
	})
	if err != nil {
		r.logger().Warn("code review falling back", "stage", "render_prompt", "error", err)
		return pipeline.FallbackReviewAnalysis()
	}

	raw, err := r.Client.Generate(ctx, r.Schema, systemPrompt, userPrompt)
	if err != nil {
		r.logger().Warn("code review falling back", "stage", "generate", "error", err)
		return pipeline.FallbackReviewAnalysis()
	}

	var analysis pipeline.ReviewAnalysis
	if err := json.Unmarshal(raw, &analysis); err != nil {
		r.logger().Warn("code review falling back", "stage", "unmarshal", "error", err)
		return pipeline.FallbackReviewAnalysis()
	}
	return analysis
}

func renderDiffs(diffs []pipeline.FileDiff) string {
	var sb strings.Builder
	for _, d := range diffs {
		sb.WriteString(d.Path)
		sb.WriteString("\n")
		sb.WriteString(d.RawPatch)
		sb.WriteString("\n")
	}
	return sb.String()
}
