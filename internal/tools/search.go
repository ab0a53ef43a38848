// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/research-agent/internal/coreapi"
)

// SearchTool queries the paper search API. Arguments: query (required,
// non-empty) and max_papers (optional, 1-10, default 1). Out-of-range
// values are rejected before any network call.
type SearchTool struct {
	Client *coreapi.Client
}

// Name returns the tool identifier.
func (t *SearchTool) Name() Name { return SearchPapers }

// Description documents the tool for the planning and agent prompts.
func (t *SearchTool) Description() string {
	return `Search for scientific papers using the CORE API. Arguments: "query" (string, CORE query syntax, e.g. "machine learning AND yearPublished:2023") and "max_papers" (int, 1-10, default 1).`
}

// InputSchema declares the search arguments to the model.
func (t *SearchTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "The query to search for, in CORE API query syntax.",
			},
			"max_papers": map[string]any{
				"type":        "integer",
				"description": "Maximum number of papers to return. Default 1, up to 10 for a comprehensive search.",
				"minimum":     1,
				"maximum":     10,
				"default":     1,
			},
		},
		"required": []string{"query"},
	}
}

// Execute validates arguments and runs the search. An empty result list
// is a successful outcome; the summarizer renders the no-results marker.
func (t *SearchTool) Execute(ctx context.Context, args map[string]any) (Payload, error) {
	query, err := stringArg(args, "query")
	if err != nil {
		return Payload{}, err
	}
	if strings.TrimSpace(query) == "" {
		return Payload{}, fmt.Errorf("argument \"query\" must not be empty")
	}

	maxPapers, err := intArg(args, "max_papers", 1)
	if err != nil {
		return Payload{}, err
	}
	if maxPapers < 1 || maxPapers > 10 {
		return Payload{}, fmt.Errorf("argument \"max_papers\" must be between 1 and 10, got %d", maxPapers)
	}

	papers, err := t.Client.Search(ctx, query, maxPapers)
	if err != nil {
		return Payload{}, fmt.Errorf("searching for papers: %w", err)
	}
	return Payload{Papers: papers}, nil
}
