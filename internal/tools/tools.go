// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package tools declares the closed set of tools the agent may invoke and
// the dispatcher that executes invocations against them.
package tools

import (
	"context"
	"fmt"

	"github.com/pdiddy/research-agent/internal/history"
	"github.com/pdiddy/research-agent/pkg/types"
)

// Name identifies a tool. The set is closed: the dispatcher rejects any
// registration outside it at construction time, so an unknown tool name
// can never silently no-op.
type Name string

const (
	SearchPapers     Name = "search-papers"
	DownloadPaper    Name = "download-paper"
	AskHumanFeedback Name = "ask-human-feedback"
)

// known is the complete tool identifier set.
var known = map[Name]bool{
	SearchPapers:     true,
	DownloadPaper:    true,
	AskHumanFeedback: true,
}

// Tool executes one kind of invocation. Execute validates its own
// arguments before doing any work and returns either a payload or an
// error; the dispatcher converts both into an Outcome.
type Tool interface {
	Name() Name
	Description() string

	// InputSchema is the JSON-schema object declared to the model for
	// this tool's arguments.
	InputSchema() map[string]any

	Execute(ctx context.Context, args map[string]any) (Payload, error)
}

// Payload is a successful tool result. Exactly one branch is populated:
// Papers for the search tool, Text for everything else.
type Payload struct {
	Papers []types.Paper
	Text   string
}

// Outcome is the uniform result of one invocation: Ok with a payload, or
// Err with a message. Err outcomes are rendered into the tool-result turn
// so the agent stage can react to them; they never abort the batch.
type Outcome struct {
	Tool    Name
	Ok      bool
	Payload Payload
	Err     string
}

// Dispatcher maps tool names to implementations. The mapping is fixed at
// construction and never consulted dynamically beyond a lookup.
type Dispatcher struct {
	tools map[Name]Tool
}

// NewDispatcher builds a dispatcher over the given tools. Registration of
// a tool outside the closed name set, or twice, is a construction error.
func NewDispatcher(ts ...Tool) (*Dispatcher, error) {
	d := &Dispatcher{tools: make(map[Name]Tool, len(ts))}
	for _, t := range ts {
		n := t.Name()
		if !known[n] {
			return nil, fmt.Errorf("unknown tool %q", n)
		}
		if _, dup := d.tools[n]; dup {
			return nil, fmt.Errorf("tool %q registered twice", n)
		}
		d.tools[n] = t
	}
	return d, nil
}

// Tools returns the registered tools in a stable order, for prompt
// construction.
func (d *Dispatcher) Tools() []Tool {
	out := make([]Tool, 0, len(d.tools))
	for _, n := range []Name{SearchPapers, DownloadPaper, AskHumanFeedback} {
		if t, ok := d.tools[n]; ok {
			out = append(out, t)
		}
	}
	return out
}

// Execute runs a single invocation. A missing tool or a failing execution
// yields an Err outcome rather than an error so the remaining invocations
// in a batch still run.
func (d *Dispatcher) Execute(ctx context.Context, call history.ToolCall) Outcome {
	n := Name(call.Name)
	t, ok := d.tools[n]
	if !ok {
		return Outcome{Tool: n, Err: fmt.Sprintf("unknown tool %q", call.Name)}
	}
	payload, err := t.Execute(ctx, call.Args)
	if err != nil {
		return Outcome{Tool: n, Err: err.Error()}
	}
	return Outcome{Tool: n, Ok: true, Payload: payload}
}

// ExecuteAll runs every invocation of one assistant turn in declaration
// order. Order matters: tool-result turns must answer invocations in the
// order they were issued, and summaries stay deterministic.
func (d *Dispatcher) ExecuteAll(ctx context.Context, calls []history.ToolCall) []Outcome {
	out := make([]Outcome, 0, len(calls))
	for _, c := range calls {
		out = append(out, d.Execute(ctx, c))
	}
	return out
}

// stringArg extracts a required string argument.
func stringArg(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing required argument %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %q must be a string", key)
	}
	return s, nil
}

// intArg extracts an optional integer argument, tolerating the float64
// values JSON decoding produces.
func intArg(args map[string]any, key string, fallback int) (int, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return fallback, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("argument %q must be a number", key)
	}
}
