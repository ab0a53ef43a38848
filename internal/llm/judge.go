// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"

	"github.com/pdiddy/research-agent/internal/history"
)

// Judgment is the judge adapter's schema: whether the candidate answer is
// good, and feedback when it is not.
type Judgment struct {
	IsGoodAnswer bool   `json:"is_good_answer"`
	Feedback     string `json:"feedback,omitempty"`
}

// JudgeAdapter evaluates the quality of the candidate final answer.
type JudgeAdapter struct {
	Provider Provider
}

// Judge runs the evaluation over the conversation. A non-conforming model
// response surfaces as *SchemaError.
func (a *JudgeAdapter) Judge(ctx context.Context, h history.History) (Judgment, error) {
	reply, err := a.Provider.Complete(ctx, Request{System: judgePrompt, Turns: h})
	if err != nil {
		return Judgment{}, err
	}

	var j Judgment
	if err := decodeStructured("judge", reply.Text, &j); err != nil {
		return Judgment{}, err
	}
	// Feedback accompanies only a rejection.
	if j.IsGoodAnswer {
		j.Feedback = ""
	}
	return j, nil
}
