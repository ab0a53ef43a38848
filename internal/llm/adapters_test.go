// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/pdiddy/research-agent/internal/history"
)

// scriptedProvider replays canned replies and records the requests it saw.
type scriptedProvider struct {
	replies []Reply
	err     error
	reqs    []Request
}

func (p *scriptedProvider) Complete(_ context.Context, req Request) (Reply, error) {
	p.reqs = append(p.reqs, req)
	if p.err != nil {
		return Reply{}, p.err
	}
	if len(p.replies) == 0 {
		return Reply{}, fmt.Errorf("scripted provider exhausted")
	}
	r := p.replies[0]
	p.replies = p.replies[1:]
	return r, nil
}

func text(s string) Reply { return Reply{Text: s} }

// --- DecisionAdapter ---

func TestDecide(t *testing.T) {
	tests := []struct {
		name       string
		reply      string
		want       Decision
		wantSchema bool
	}{
		{
			name:  "direct answer",
			reply: `{"requires_research": false, "answer": "I am fine, thanks."}`,
			want:  Decision{RequiresResearch: false, Answer: "I am fine, thanks."},
		},
		{
			name:  "research required clears answer",
			reply: `{"requires_research": true, "answer": "stray text"}`,
			want:  Decision{RequiresResearch: true},
		},
		{
			name:  "fenced json accepted",
			reply: "```json\n{\"requires_research\": false, \"answer\": \"hi\"}\n```",
			want:  Decision{RequiresResearch: false, Answer: "hi"},
		},
		{
			name:       "prose rejected",
			reply:      "I think you should do research.",
			wantSchema: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &DecisionAdapter{Provider: &scriptedProvider{replies: []Reply{text(tt.reply)}}}
			got, err := a.Decide(context.Background(), history.History{history.User("q")})
			if tt.wantSchema {
				var se *SchemaError
				if !errors.As(err, &se) {
					t.Fatalf("Decide() error = %v, want *SchemaError", err)
				}
				if se.Adapter != "decision" {
					t.Errorf("Adapter = %q", se.Adapter)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decide() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Decide() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDecidePropagatesProviderError(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	a := &DecisionAdapter{Provider: &scriptedProvider{err: cause}}
	_, err := a.Decide(context.Background(), history.History{history.User("q")})
	if !errors.Is(err, cause) {
		t.Errorf("Decide() error = %v, want provider error", err)
	}
	var se *SchemaError
	if errors.As(err, &se) {
		t.Error("provider fault misclassified as a schema error")
	}
}

// --- PlanAdapter ---

func TestPlanAdapter(t *testing.T) {
	reply := `{"plan": [
		{"step": 1, "tool": "search-papers", "arguments": "{\"query\": \"transformers\", \"max_papers\": 3}", "description": "search"},
		{"step": 2, "tool": "null", "arguments": null, "description": "review"}
	]}`
	sp := &scriptedProvider{replies: []Reply{text(reply)}}
	a := &PlanAdapter{Provider: sp, ToolsDescription: "search-papers: searches"}

	p, err := a.Plan(context.Background(), history.History{history.User("q")})
	if err != nil {
		t.Fatalf("Plan() error: %v", err)
	}
	if len(p.Steps) != 2 {
		t.Fatalf("steps = %+v", p.Steps)
	}
	// String-encoded arguments decode into a real mapping.
	if p.Steps[0].Arguments["query"] != "transformers" {
		t.Errorf("step 1 arguments = %v", p.Steps[0].Arguments)
	}
	// The "null" tool sentinel normalizes to a review step.
	if p.Steps[1].HasTool() || p.Steps[1].Arguments == nil {
		t.Errorf("step 2 = %+v", p.Steps[1])
	}

	// The roster must reach the system prompt.
	if len(sp.reqs) != 1 || !strings.Contains(sp.reqs[0].System, "search-papers: searches") {
		t.Error("tool roster missing from planning prompt")
	}
}

func TestPlanAdapterSchemaErrors(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"prose", "Here is my plan: first search, then review."},
		{"scalar arguments", `{"plan": [{"step": 1, "tool": "search-papers", "arguments": "42", "description": "d"}]}`},
		{"empty plan", `{"plan": []}`},
		{"bad indices", `{"plan": [{"step": 2, "tool": null, "arguments": null, "description": "d"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &PlanAdapter{Provider: &scriptedProvider{replies: []Reply{text(tt.reply)}}}
			_, err := a.Plan(context.Background(), history.History{history.User("q")})
			var se *SchemaError
			if !errors.As(err, &se) {
				t.Fatalf("Plan() error = %v, want *SchemaError", err)
			}
			if se.Adapter != "plan" {
				t.Errorf("Adapter = %q", se.Adapter)
			}
		})
	}
}

// --- JudgeAdapter ---

func TestJudge(t *testing.T) {
	tests := []struct {
		name       string
		reply      string
		want       Judgment
		wantSchema bool
	}{
		{
			name:  "good answer clears feedback",
			reply: `{"is_good_answer": true, "feedback": "nice"}`,
			want:  Judgment{IsGoodAnswer: true},
		},
		{
			name:  "rejection keeps feedback",
			reply: `{"is_good_answer": false, "feedback": "cite your sources"}`,
			want:  Judgment{IsGoodAnswer: false, Feedback: "cite your sources"},
		},
		{
			name:       "prose rejected",
			reply:      "Looks good to me!",
			wantSchema: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &JudgeAdapter{Provider: &scriptedProvider{replies: []Reply{text(tt.reply)}}}
			got, err := a.Judge(context.Background(), history.History{history.User("q"), history.Assistant("a")})
			if tt.wantSchema {
				var se *SchemaError
				if !errors.As(err, &se) {
					t.Fatalf("Judge() error = %v, want *SchemaError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Judge() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Judge() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

// --- prompts ---

func TestAgentPromptIncludesRoster(t *testing.T) {
	got, err := AgentPrompt("search-papers: finds papers\ndownload-paper: fetches text")
	if err != nil {
		t.Fatalf("AgentPrompt() error: %v", err)
	}
	if !strings.Contains(got, "search-papers: finds papers") {
		t.Error("roster missing from agent prompt")
	}
}
