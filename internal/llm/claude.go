// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pdiddy/research-agent/internal/history"
	"github.com/pdiddy/research-agent/pkg/types"
)

// claudeAPIURL is the Claude Messages API endpoint. Package-level var for
// test substitution.
var claudeAPIURL = "https://api.anthropic.com/v1/messages"

// ClaudeProvider implements Provider against the Claude Messages API.
type ClaudeProvider struct {
	Cfg    types.LLMConfig
	Client *http.Client
}

// claudeRequest is the request body for the Claude Messages API.
type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	System    string          `json:"system,omitempty"`
	Messages  []claudeMessage `json:"messages"`
	Tools     []claudeTool    `json:"tools,omitempty"`
}

// claudeMessage is a single message in the Claude API conversation.
type claudeMessage struct {
	Role    string          `json:"role"`
	Content []claudeContent `json:"content"`
}

// claudeContent is a content block in a request or response message.
type claudeContent struct {
	Type string `json:"type"`

	// Text blocks.
	Text string `json:"text,omitempty"`

	// tool_use blocks (assistant).
	ID    string         `json:"id,omitempty"`
	Name  string         `json:"name,omitempty"`
	Input map[string]any `json:"input,omitempty"`

	// tool_result blocks (user).
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
}

// claudeTool declares a tool to the API.
type claudeTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// claudeResponse is the response body from the Claude Messages API.
type claudeResponse struct {
	Content    []claudeContent `json:"content"`
	StopReason string          `json:"stop_reason"`
}

// Complete sends the system instruction, converted history, and tool
// declarations, and maps the response's text and tool_use blocks onto a
// Reply.
func (p *ClaudeProvider) Complete(ctx context.Context, req Request) (Reply, error) {
	maxTokens := p.Cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	body := claudeRequest{
		Model:     p.Cfg.Model,
		MaxTokens: maxTokens,
		System:    req.System,
		Messages:  convertTurns(req.Turns),
	}
	for _, t := range req.Tools {
		schema := t.InputSchema
		if schema == nil {
			schema = map[string]any{"type": "object"}
		}
		body.Tools = append(body.Tools, claudeTool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: schema,
		})
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return Reply{}, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, claudeAPIURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return Reply{}, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.Cfg.APIKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return Reply{}, fmt.Errorf("calling Claude API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return Reply{}, fmt.Errorf("Claude API returned %d: %s", resp.StatusCode, string(respBody))
	}

	var cResp claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return Reply{}, fmt.Errorf("decoding Claude response: %w", err)
	}

	var reply Reply
	for _, block := range cResp.Content {
		switch block.Type {
		case "text":
			if reply.Text != "" {
				reply.Text += "\n"
			}
			reply.Text += block.Text
		case "tool_use":
			args := block.Input
			if args == nil {
				args = map[string]any{}
			}
			reply.ToolCalls = append(reply.ToolCalls, history.ToolCall{
				ID:   block.ID,
				Name: block.Name,
				Args: args,
			})
		}
	}
	if reply.Text == "" && len(reply.ToolCalls) == 0 {
		return Reply{}, fmt.Errorf("Claude API returned empty content")
	}
	return reply, nil
}

// convertTurns maps conversation turns onto Claude API messages. Tool
// results become tool_result blocks in a user message; consecutive tool
// turns coalesce into one message because the API requires all results
// for an assistant turn's tool_use blocks to arrive together. System
// turns ride along as user text since the API takes a single top-level
// system string.
func convertTurns(turns history.History) []claudeMessage {
	var msgs []claudeMessage
	for _, t := range turns {
		switch t.Role {
		case history.RoleAssistant:
			var content []claudeContent
			if t.Content != "" {
				content = append(content, claudeContent{Type: "text", Text: t.Content})
			}
			for _, c := range t.ToolCalls {
				content = append(content, claudeContent{Type: "tool_use", ID: c.ID, Name: c.Name, Input: c.Args})
			}
			if len(content) == 0 {
				continue
			}
			msgs = append(msgs, claudeMessage{Role: "assistant", Content: content})
		case history.RoleTool:
			block := claudeContent{Type: "tool_result", ToolUseID: t.ToolCallID, Content: t.Content}
			if n := len(msgs); n > 0 && msgs[n-1].Role == "user" && msgs[n-1].Content[0].Type == "tool_result" {
				msgs[n-1].Content = append(msgs[n-1].Content, block)
			} else {
				msgs = append(msgs, claudeMessage{Role: "user", Content: []claudeContent{block}})
			}
		default: // user and system turns
			msgs = append(msgs, claudeMessage{Role: "user", Content: []claudeContent{{Type: "text", Text: t.Content}}})
		}
	}
	return msgs
}
