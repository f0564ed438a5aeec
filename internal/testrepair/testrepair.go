// Package testrepair proposes fixes to previously generated tests after a
// failing run (C12). It shares testgen's PostProcess so the extension
// and dedup laws stay identical between generation and repair.
package testrepair

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nvael/codechange-agent/internal/llm"
	"github.com/nvael/codechange-agent/internal/pipeline"
	"github.com/nvael/codechange-agent/internal/prompt"
	"github.com/nvael/codechange-agent/internal/testgen"
)

type proposalsResponse struct {
	Proposals []pipeline.TestProposal `json:"proposals"`
}

const systemPrompt = `You are the test repair stage of an autonomous code-change agent. A
previous test run failed; you are given its verbatim output along with
the diff and existing tests. Propose corrected test files that address
the failure. Each proposal targets the designated test root and is named
"<Component>.test.ts" for plain code or "<Component>.test.tsx" for
markup-bearing code. Respond with a JSON object matching the given
schema, nothing else.`

const userTemplate = `TEST ROOT: {{test_root}}
ITERATION: {{iteration}}

FAILING TEST OUTPUT (verbatim):
{{failure_output}}

CHANGED FILES:
{{diffs}}

EXISTING TESTS:
{{existing_tests}}

Produce the corrected test proposals as JSON.`

// Repairer proposes corrected test files after a failing run.
type Repairer struct {
	Client   llm.Client
	Schema   *llm.Schema
	TestRoot string
}

// New builds a Repairer backed by client.
func New(client llm.Client, testRoot string) (*Repairer, error) {
	schema, err := llm.NewSchema("TestRepairProposals", &proposalsResponse{})
	if err != nil {
		return nil, err
	}
	return &Repairer{Client: client, Schema: schema, TestRoot: testRoot}, nil
}

// Repair proposes corrected tests for prCtx given failureOutput from
// iteration. Proposals run through testgen.PostProcess before return.
func (r *Repairer) Repair(ctx context.Context, prCtx *pipeline.PRContextWithTests, failureOutput string, iteration int) ([]pipeline.TestProposal, error) {
	userPrompt, err := prompt.Render(userTemplate, prompt.Vars{
		"test_root":      r.TestRoot,
		"iteration":      fmt.Sprintf("%d", iteration),
		"failure_output": failureOutput,
		"diffs":          renderDiffs(prCtx.ChangedFiles),
		"existing_tests": renderTests(prCtx.ExistingTestFiles),
	})
	if err != nil {
		return nil, err
	}

	raw, err := r.Client.Generate(ctx, r.Schema, systemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}

	var resp proposalsResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, err
	}

	return testgen.PostProcess(resp.Proposals, prCtx.ChangedFiles, r.TestRoot), nil
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
