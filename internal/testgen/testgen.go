// Package testgen proposes unit tests for a PRContextWithTests (C11).
// Proposals are post-processed through PostProcess to enforce extension
// correctness and dedup-by-basename before the caller writes anything to
// disk.
package testgen

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/nvael/codechange-agent/internal/llm"
	"github.com/nvael/codechange-agent/internal/pipeline"
	"github.com/nvael/codechange-agent/internal/prompt"
)

type proposalsResponse struct {
	Proposals []pipeline.TestProposal `json:"proposals"`
}

const systemPrompt = `You are the test generation stage of an autonomous code-change agent.
Given a diff and its existing tests, propose unit tests for any new
behavior that existing tests do not already cover. Each proposal targets
the designated test root and is named "<Component>.test.ts" for plain
code or "<Component>.test.tsx" for markup-bearing code. Import the
project's testing-assertions library and component-rendering library by
convention. Respond with a JSON object matching the given schema,
nothing else.`

const userTemplate = `TEST ROOT: {{test_root}}

CHANGED FILES:
{{diffs}}

EXISTING TESTS:
{{existing_tests}}

{{#if review_summary}}
REVIEW SUMMARY:
{{review_summary}}
{{/if}}

Produce the test proposals as JSON.`

// Generator proposes new test files.
type Generator struct {
	Client   llm.Client
	Schema   *llm.Schema
	TestRoot string
}

// New builds a Generator backed by client.
func New(client llm.Client, testRoot string) (*Generator, error) {
	schema, err := llm.NewSchema("TestProposals", &proposalsResponse{})
	if err != nil {
		return nil, err
	}
	return &Generator{Client: client, Schema: schema, TestRoot: testRoot}, nil
}

// Generate proposes tests for prCtx, post-processed against its changed
// files.
func (g *Generator) Generate(ctx context.Context, prCtx *pipeline.PRContextWithTests, reviewSummary string) ([]pipeline.TestProposal, error) {
	userPrompt, err := prompt.Render(userTemplate, prompt.Vars{
		"test_root":      g.TestRoot,
		"diffs":          renderDiffs(prCtx.ChangedFiles),
		"existing_tests": renderTests(prCtx.ExistingTestFiles),
		"review_summary": reviewSummary,
	})
	if err != nil {
		return nil, err
	}

	raw, err := g.Client.Generate(ctx, g.Schema, systemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}

	var resp proposalsResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, err
	}

	return PostProcess(resp.Proposals, prCtx.ChangedFiles, g.TestRoot), nil
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
