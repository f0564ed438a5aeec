// Package testgate decides whether new test coverage is warranted for a
// PRContextWithTests (C10). Like C9, failure never blocks the run: an
// LLM or schema failure degrades to pipeline.FallbackGatingDecision
// ("should_generate=false") rather than propagating an error.
package testgate

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/nvael/codechange-agent/internal/llm"
	"github.com/nvael/codechange-agent/internal/pipeline"
	"github.com/nvael/codechange-agent/internal/prompt"
)

const systemPrompt = `You are the test gating stage of an autonomous code-change agent. Given a
diff and its existing tests, decide whether new test coverage is
warranted. Any new behavior not already covered by an existing test
should generate; pure style or formatting changes should not. Respond
with a JSON object matching the given schema, nothing else.`

const userTemplate = `COMMIT MESSAGES:
{{commits}}

CHANGED FILES:
{{diffs}}

EXISTING TESTS:
{{existing_tests}}

{{#if review_summary}}
REVIEW SUMMARY:
{{review_summary}}
{{/if}}

Produce the gating decision as JSON.`

// Gate decides whether generation is required.
type Gate struct {
	Client llm.Client
	Schema *llm.Schema

	// Logger receives a Warn line on every fallback path. Defaults to
	// slog.Default() if nil.
	Logger *slog.Logger
}

// New builds a Gate backed by client.
func New(client llm.Client) (*Gate, error) {
	schema, err := llm.NewSchema("GatingDecision", &pipeline.GatingDecision{})
	if err != nil {
		return nil, err
	}
	return &Gate{Client: client, Schema: schema}, nil
}

func (g *Gate) logger() *slog.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	return slog.Default()
}

// Decide analyzes ctx (plus an optional prior review summary) and always
// returns a usable GatingDecision, falling back to
// pipeline.FallbackGatingDecision on any failure.
func (g *Gate) Decide(ctx context.Context, prCtx *pipeline.PRContextWithTests, reviewSummary string) pipeline.GatingDecision {
	userPrompt, err := prompt.Render(userTemplate, prompt.Vars{
		"commits":        strings.Join(prCtx.CommitMessages, "\n"),
		"diffs":          renderDiffs(prCtx.ChangedFiles),
		"existing_tests": renderTests(prCtx.ExistingTestFiles),
		"review_summary": reviewSummary,
	})
	if err != nil {
		g.logger().Warn("test gating falling back", "stage", "render_prompt", "error", err)
		return pipeline.FallbackGatingDecision()
	}

	raw, err := g.Client.Generate(ctx, g.Schema, systemPrompt, userPrompt)
	if err != nil {
		g.logger().Warn("test gating falling back", "stage", "generate", "error", err)
		return pipeline.FallbackGatingDecision()
	}

	var decision pipeline.GatingDecision
	if err := json.Unmarshal(raw, &decision); err != nil {
		g.logger().Warn("test gating falling back", "stage", "unmarshal", "error", err)
		return pipeline.FallbackGatingDecision()
	}
	return decision
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

func renderTests(tests []pipeline.ExistingTestFile) string {
	if len(tests) == 0 {
		return "(none)"
	}
	var sb strings.Builder
	for _, tf := range tests {
		sb.WriteString(tf.Path)
		sb.WriteString("\n---\n")
		sb.WriteString(tf.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}
