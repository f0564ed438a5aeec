// Package planner turns a feature request into an ordered list of Steps
// (C7). On any LLM or schema failure it returns the PlanError sentinel
// rather than propagating an error, so the orchestrator can treat "no
// plan" as just another terminal outcome.
package planner

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nvael/codechange-agent/internal/llm"
	"github.com/nvael/codechange-agent/internal/pipeline"
	"github.com/nvael/codechange-agent/internal/prompt"
)

type stepsResponse struct {
	Steps []pipeline.Step `json:"steps"`
}

const systemPrompt = `You are the planning stage of an autonomous code-change agent. You read a
feature request and a snapshot of a Next.js/React frontend repository and
produce an ordered list of small, independently committable steps that
implement the request.

Restrict yourself entirely to the frontend application layer: pages,
components, styles, client-side state, and the route tree rooted at the
configured frontend path. Do not propose steps that touch backend
services, infrastructure, CI configuration, or database schemas.

Each step must have a short name, a one-sentence description, and a plan
field describing concretely what will change. Respond with a JSON object
matching the given schema, nothing else.`

const userTemplate = `FEATURE REQUEST:
{{feature_request}}

CODE RULES:
{{code_rules}}

REPOSITORY SNAPSHOT:
{{snapshot}}

Produce the ordered list of steps as JSON.`

// Planner produces the step plan for one run.
type Planner struct {
	Client llm.Client
	Schema *llm.Schema
}

// New builds a Planner backed by client.
func New(client llm.Client) (*Planner, error) {
	schema, err := llm.NewSchema("PlannerResponse", &stepsResponse{})
	if err != nil {
		return nil, fmt.Errorf("build planner schema: %w", err)
	}
	return &Planner{Client: client, Schema: schema}, nil
}

// Plan renders the planning prompt and asks the LLM for a step list. A
// schema or provider failure yields the PlanError sentinel, not an error.
func (p *Planner) Plan(ctx context.Context, featureRequest, codeRules, snapshot string) []pipeline.Step {
	userPrompt, err := prompt.Render(userTemplate, prompt.Vars{
		"feature_request": featureRequest,
		"code_rules":      codeRules,
		"snapshot":        snapshot,
	})
	if err != nil {
		return planError()
	}

	raw, err := p.Client.Generate(ctx, p.Schema, systemPrompt, userPrompt)
	if err != nil {
		return planError()
	}

	var resp stepsResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return planError()
	}
	if len(resp.Steps) == 0 {
		return planError()
	}
	return resp.Steps
}

func planError() []pipeline.Step {
	return []pipeline.Step{{Name: pipeline.PlanErrorStepName}}
}
