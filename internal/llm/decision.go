// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"

	"github.com/pdiddy/research-agent/internal/history"
)

// Decision is the decision adapter's schema: whether the query requires
// research, and the direct answer when it does not.
type Decision struct {
	RequiresResearch bool   `json:"requires_research"`
	Answer           string `json:"answer,omitempty"`
}

// DecisionAdapter classifies the user query at the workflow's entry stage.
type DecisionAdapter struct {
	Provider Provider
}

// Decide runs the decision classification over the conversation. A
// non-conforming model response surfaces as *SchemaError.
func (a *DecisionAdapter) Decide(ctx context.Context, h history.History) (Decision, error) {
	reply, err := a.Provider.Complete(ctx, Request{System: decisionPrompt, Turns: h})
	if err != nil {
		return Decision{}, err
	}

	var d Decision
	if err := decodeStructured("decision", reply.Text, &d); err != nil {
		return Decision{}, err
	}
	// The answer accompanies only a direct response.
	if d.RequiresResearch {
		d.Answer = ""
	}
	return d, nil
}
