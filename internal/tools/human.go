// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tools

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// HumanFeedbackTool asks the operator a question on the console and
// returns their reply. Argument: question (required).
type HumanFeedbackTool struct {
	In  io.Reader
	Out io.Writer
}

// Name returns the tool identifier.
func (t *HumanFeedbackTool) Name() Name { return AskHumanFeedback }

// Description documents the tool for the planning and agent prompts.
func (t *HumanFeedbackTool) Description() string {
	return `Ask the human user for feedback or clarification. Arguments: "question" (string, the question to ask).`
}

// InputSchema declares the feedback arguments to the model.
func (t *HumanFeedbackTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"question": map[string]any{
				"type":        "string",
				"description": "The question to ask the human user.",
			},
		},
		"required": []string{"question"},
	}
}

// Execute prints the question and reads one line of reply.
func (t *HumanFeedbackTool) Execute(_ context.Context, args map[string]any) (Payload, error) {
	question, err := stringArg(args, "question")
	if err != nil {
		return Payload{}, err
	}

	fmt.Fprintf(t.Out, "\n%s\n> ", question)
	reader := bufio.NewReader(t.In)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return Payload{}, fmt.Errorf("reading feedback: %w", err)
	}
	return Payload{Text: strings.TrimSpace(line)}, nil
}
