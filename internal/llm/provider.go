// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm wraps the black-box language model behind a small provider
// interface and layers the three structured-output adapters (decision,
// plan, judgment) on top of it. Adapters validate the model's output
// against a fixed schema and return a typed error instead of raising, so
// the workflow can degrade gracefully.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pdiddy/research-agent/internal/history"
)

// ToolSpec declares a tool to the model: name, human description, and a
// JSON-schema object describing its arguments.
type ToolSpec struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// Request is one model call: a fixed system instruction prepended to the
// conversation history, plus optional tool declarations.
type Request struct {
	System string
	Turns  history.History
	Tools  []ToolSpec
}

// Reply is the model's response: free text, zero or more tool invocation
// requests, or both.
type Reply struct {
	Text      string
	ToolCalls []history.ToolCall
}

// Provider maps a request to a reply. Implementations may suspend on the
// network; they must respect ctx. Errors from Provider are run-level
// faults and propagate out of the whole run.
type Provider interface {
	Complete(ctx context.Context, req Request) (Reply, error)
}

// SchemaError reports that the model's output did not conform to an
// adapter's declared schema. It is recoverable: the workflow substitutes
// a descriptive turn and continues.
type SchemaError struct {
	Adapter string
	Raw     string
	Cause   error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s adapter: model output does not match schema: %v", e.Adapter, e.Cause)
}

func (e *SchemaError) Unwrap() error { return e.Cause }

// decodeStructured parses a model reply as a JSON document of the
// adapter's schema. Models habitually wrap JSON in a code fence; the
// fence is stripped before decoding.
func decodeStructured(adapter, raw string, v any) error {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	if err := json.Unmarshal([]byte(s), v); err != nil {
		return &SchemaError{Adapter: adapter, Raw: raw, Cause: err}
	}
	return nil
}
