// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"

	"github.com/pdiddy/research-agent/internal/history"
	"github.com/pdiddy/research-agent/internal/plan"
)

// PlanAdapter produces the step-by-step research plan. Argument
// normalization (string-encoded mappings, "null" sentinels) happens here,
// at the construction boundary, via the plan package's decoding rules;
// downstream stages never re-interpret arguments.
type PlanAdapter struct {
	Provider Provider

	// ToolsDescription is the rendered tool roster interpolated into the
	// planning prompt.
	ToolsDescription string
}

// Plan runs the planning call over the conversation. A non-conforming
// response, including a step whose arguments decode to a non-object,
// surfaces as *SchemaError.
func (a *PlanAdapter) Plan(ctx context.Context, h history.History) (plan.Plan, error) {
	system, err := renderToolPrompt(planningPromptTmpl, a.ToolsDescription)
	if err != nil {
		return plan.Plan{}, err
	}

	reply, err := a.Provider.Complete(ctx, Request{System: system, Turns: h})
	if err != nil {
		return plan.Plan{}, err
	}

	var p plan.Plan
	if err := decodeStructured("plan", reply.Text, &p); err != nil {
		return plan.Plan{}, err
	}
	if err := p.Normalize(); err != nil {
		return plan.Plan{}, &SchemaError{Adapter: "plan", Raw: reply.Text, Cause: err}
	}
	return p, nil
}
