// Package filegen turns one Step into the set of file writes that
// implement it (C8). The prompt receives both the base repository
// snapshot and the accumulated overlay from prior steps in the same run,
// so the model can reason about in-progress state without re-reading
// disk. A frontend-root path-prefix filter defends the Planner's
// prompt-level constraint in depth: any proposed path outside the
// configured root is dropped before it ever reaches disk.
package filegen

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nvael/codechange-agent/internal/llm"
	"github.com/nvael/codechange-agent/internal/pipeline"
	"github.com/nvael/codechange-agent/internal/prompt"
)

type changesResponse struct {
	Changes []pipeline.FileChange `json:"changes"`
}

const systemPrompt = `You are the file-change generation stage of an autonomous code-change
agent. Given one implementation step, the base repository snapshot, and
the accumulated overlay of files already rewritten earlier in this run,
produce the full post-state content of every file this step touches.

Write complete files, not patches: each entry replaces the named path in
full. Only touch files under the frontend application root. If the step
requires no file changes, return an empty changes list. Respond with a
JSON object matching the given schema, nothing else.`

const userTemplate = `STEP:
{{step_name}}: {{step_description}}
{{step_plan}}

CODE RULES:
{{code_rules}}

BASE REPOSITORY SNAPSHOT:
{{snapshot}}

ACCUMULATED CHANGES SO FAR THIS RUN (overlay on top of the base snapshot):
{{overlay}}

Produce the file changes for this step as JSON.`

// Generator produces file changes for one Step.
type Generator struct {
	Client       llm.Client
	Schema       *llm.Schema
	FrontendRoot string
}

// New builds a Generator backed by client. frontendRoot is the path
// prefix enforced against every proposed FileChange; empty means no
// restriction.
func New(client llm.Client, frontendRoot string) (*Generator, error) {
	schema, err := llm.NewSchema("GeneratorResponse", &changesResponse{})
	if err != nil {
		return nil, fmt.Errorf("build generator schema: %w", err)
	}
	return &Generator{Client: client, Schema: schema, FrontendRoot: frontendRoot}, nil
}

// Generate renders the step prompt, overlaying accumulated on top of the
// base snapshot, and returns the file changes the model proposes after
// the frontend-root filter.
func (g *Generator) Generate(ctx context.Context, step pipeline.Step, accumulated *pipeline.AccumulatedChanges, snapshot, codeRules string) ([]pipeline.FileChange, error) {
	userPrompt, err := prompt.Render(userTemplate, prompt.Vars{
		"step_name":        step.Name,
		"step_description": step.Description,
		"step_plan":        step.Plan,
		"code_rules":       codeRules,
		"snapshot":         snapshot,
		"overlay":          renderOverlay(accumulated),
	})
	if err != nil {
		return nil, fmt.Errorf("render generator prompt: %w", err)
	}

	raw, err := g.Client.Generate(ctx, g.Schema, systemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("generate file changes: %w", err)
	}

	var resp changesResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal generator response: %w", err)
	}

	return g.filterFrontendRoot(resp.Changes), nil
}

// filterFrontendRoot drops any proposed change outside FrontendRoot. The
// Planner's prompt already asks for this; this is the defense-in-depth
// enforcement.
func (g *Generator) filterFrontendRoot(changes []pipeline.FileChange) []pipeline.FileChange {
	if g.FrontendRoot == "" {
		return changes
	}
	prefix := strings.TrimSuffix(g.FrontendRoot, "/") + "/"
	filtered := make([]pipeline.FileChange, 0, len(changes))
	for _, c := range changes {
		if strings.HasPrefix(c.Path, prefix) {
			filtered = append(filtered, c)
		}
	}
	return filtered
}

func renderOverlay(accumulated *pipeline.AccumulatedChanges) string {
	if accumulated == nil || accumulated.Len() == 0 {
		return "(no prior changes this run)"
	}
	var sb strings.Builder
	for _, fc := range accumulated.List() {
		sb.WriteString(fc.Path)
		sb.WriteString("\n---\n")
		sb.WriteString(fc.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}
