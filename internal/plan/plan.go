// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package plan models the step-by-step research plan produced by the
// planning stage and consumed by the agent stage. A plan is embedded in
// an assistant turn as fenced JSON; the authoritative plan is always the
// most recent assistant turn whose content parses as one.
package plan

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pdiddy/research-agent/internal/history"
)

// Step is one unit of the research plan. A step without a tool is a
// review step the agent performs itself; such steps carry no arguments.
type Step struct {
	// Index is the 1-based step number. Indices are strictly increasing.
	Index int `json:"step"`

	// Tool names the tool to run, or "" for a review step.
	Tool string `json:"tool,omitempty"`

	// Arguments is the argument mapping passed to the tool. Empty for
	// review steps.
	Arguments Args `json:"arguments"`

	// Description says what the step aims to achieve.
	Description string `json:"description"`
}

// HasTool reports whether the step runs a tool.
func (s Step) HasTool() bool { return s.Tool != "" }

// Args is a tool argument mapping. Models sometimes emit the mapping as a
// JSON-encoded string, the literal "null", or a blank string; Args
// normalizes all of those once, at plan-construction time. A string that
// parses to a non-object JSON value is a schema error.
type Args map[string]any

// UnmarshalJSON accepts an object, null, or a string holding either
// "null"/blank or a JSON object.
func (a *Args) UnmarshalJSON(data []byte) error {
	// Fast path: a real object or null.
	var m map[string]any
	if err := json.Unmarshal(data, &m); err == nil {
		if m == nil {
			m = map[string]any{}
		}
		*a = m
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("arguments must be an object or a JSON-object string")
	}
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") {
		*a = map[string]any{}
		return nil
	}
	if err := json.Unmarshal([]byte(s), &m); err != nil || m == nil {
		return fmt.Errorf("arguments string %q does not encode a JSON object", s)
	}
	*a = m
	return nil
}

// Plan is an ordered sequence of steps.
type Plan struct {
	Steps []Step `json:"plan"`
}

// Normalize applies the tool sentinel rules ("null" or "" means no tool,
// no arguments) and validates the step invariants: indices strictly
// increasing from 1. A review step always ends up with an empty argument
// mapping, whatever the model attached to it.
func (p *Plan) Normalize() error {
	if len(p.Steps) == 0 {
		return fmt.Errorf("plan has no steps")
	}
	for i := range p.Steps {
		s := &p.Steps[i]
		if strings.EqualFold(strings.TrimSpace(s.Tool), "null") {
			s.Tool = ""
		}
		if s.Arguments == nil || !s.HasTool() {
			s.Arguments = map[string]any{}
		}
		if i == 0 {
			if s.Index != 1 {
				return fmt.Errorf("step indices must start at 1, got %d", s.Index)
			}
		} else if s.Index <= p.Steps[i-1].Index {
			return fmt.Errorf("step index %d not increasing after %d", s.Index, p.Steps[i-1].Index)
		}
	}
	return nil
}

// Render returns the plan as the content of an assistant turn: an
// indented JSON document inside a json code fence, so later stages (and
// humans reading the transcript) can recover it.
func (p Plan) Render() (string, error) {
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding plan: %w", err)
	}
	return "```json\n" + string(b) + "\n```", nil
}

// Parse attempts to recover a plan from assistant-turn content. It strips
// an optional json code fence before decoding. ok is false when the
// content is not a plan.
func Parse(content string) (Plan, bool) {
	raw := strings.TrimSpace(content)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
	}
	var p Plan
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Plan{}, false
	}
	if err := p.Normalize(); err != nil {
		return Plan{}, false
	}
	return p, true
}

// Latest returns the current authoritative plan: the most recent
// assistant turn in h whose content parses as a plan. ok is false when
// no such turn exists; the agent stage then proceeds without a plan.
func Latest(h history.History) (Plan, bool) {
	for i := len(h) - 1; i >= 0; i-- {
		if h[i].Role != history.RoleAssistant {
			continue
		}
		if p, ok := Parse(h[i].Content); ok {
			return p, true
		}
	}
	return Plan{}, false
}
