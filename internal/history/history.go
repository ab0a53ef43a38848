// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history models the conversation log threaded through every
// workflow stage: an append-only sequence of turns tagged by originator.
// Turns are never mutated or removed once appended; stages produce new
// turns and the workflow appends them.
package history

import "fmt"

// Role tags a turn by its originator.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	RoleSystem    Role = "system"
)

// ToolCall is a pending tool invocation carried by an assistant turn:
// a named tool, its argument mapping, and a correlation id that the
// answering tool-result turn must echo.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// Turn is one record in the conversation history.
type Turn struct {
	Role    Role
	Content string

	// ToolCalls holds pending invocations. Only assistant turns carry them.
	ToolCalls []ToolCall

	// ToolCallID and ToolName identify the invocation a tool-result turn
	// answers. Only tool turns carry them.
	ToolCallID string
	ToolName   string
}

// User returns a user turn.
func User(content string) Turn { return Turn{Role: RoleUser, Content: content} }

// Assistant returns an assistant turn with no pending invocations.
func Assistant(content string) Turn { return Turn{Role: RoleAssistant, Content: content} }

// AssistantCalls returns an assistant turn carrying pending tool invocations.
func AssistantCalls(content string, calls []ToolCall) Turn {
	return Turn{Role: RoleAssistant, Content: content, ToolCalls: calls}
}

// ToolResult returns a tool turn answering the invocation with the given id.
func ToolResult(callID, toolName, content string) Turn {
	return Turn{Role: RoleTool, Content: content, ToolCallID: callID, ToolName: toolName}
}

// System returns a system turn.
func System(content string) Turn { return Turn{Role: RoleSystem, Content: content} }

// History is an ordered, append-only sequence of turns. Append returns a
// fresh slice so earlier values stay valid; callers pass History by value
// between stages.
type History []Turn

// Append returns a new History with the given turns added. The receiver
// is not modified.
func (h History) Append(turns ...Turn) History {
	out := make(History, 0, len(h)+len(turns))
	out = append(out, h...)
	out = append(out, turns...)
	return out
}

// Last returns the final turn, or false for an empty history.
func (h History) Last() (Turn, bool) {
	if len(h) == 0 {
		return Turn{}, false
	}
	return h[len(h)-1], true
}

// LastAssistant returns the most recent assistant turn, or false if the
// history holds none.
func (h History) LastAssistant() (Turn, bool) {
	for i := len(h) - 1; i >= 0; i-- {
		if h[i].Role == RoleAssistant {
			return h[i], true
		}
	}
	return Turn{}, false
}

// Validate checks the correlation invariant: every tool turn must answer
// an unanswered invocation id declared by the immediately preceding
// assistant turn, and only assistant turns may carry pending invocations.
func (h History) Validate() error {
	// pending maps invocation id to answered-yet for the assistant turn
	// currently being resolved.
	var pending map[string]bool
	for i, t := range h {
		switch t.Role {
		case RoleAssistant:
			pending = make(map[string]bool, len(t.ToolCalls))
			for _, c := range t.ToolCalls {
				if c.ID == "" {
					return fmt.Errorf("turn %d: tool call %q has empty correlation id", i, c.Name)
				}
				pending[c.ID] = false
			}
		case RoleTool:
			if pending == nil {
				return fmt.Errorf("turn %d: tool result %q without a preceding assistant turn", i, t.ToolCallID)
			}
			answered, ok := pending[t.ToolCallID]
			if !ok {
				return fmt.Errorf("turn %d: tool result %q does not match a pending invocation", i, t.ToolCallID)
			}
			if answered {
				return fmt.Errorf("turn %d: tool result %q answers an already-resolved invocation", i, t.ToolCallID)
			}
			pending[t.ToolCallID] = true
		default:
			if len(t.ToolCalls) > 0 {
				return fmt.Errorf("turn %d: %s turn carries tool calls", i, t.Role)
			}
			pending = nil
		}
	}
	return nil
}
