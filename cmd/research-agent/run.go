// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-agent/internal/coreapi"
	"github.com/pdiddy/research-agent/internal/history"
	"github.com/pdiddy/research-agent/internal/llm"
	"github.com/pdiddy/research-agent/internal/runstore"
	"github.com/pdiddy/research-agent/internal/tools"
	"github.com/pdiddy/research-agent/internal/workflow"
	"github.com/pdiddy/research-agent/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run [query]",
	Short: "Run a research query through the full agent workflow",
	Long: `Run submits a query to the agent workflow. Simple conversational
queries are answered directly; anything needing evidence goes through
planning, paper search, and self-judging before the answer is printed.

Progress is streamed to stderr as the workflow advances; the final answer
goes to stdout.`,
	Args: cobra.ArbitraryArgs,
	RunE: runRun,
}

func init() {
	runCmd.Flags().Bool("no-store", false, "do not persist the run to the local run store")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		return fmt.Errorf("provide a research query")
	}

	cfg := loadConfig()
	if cfg.LLM.APIKey == "" {
		return fmt.Errorf("no Anthropic API key: add .secrets/anthropic-api-key or set llm.api_key")
	}

	wf, closeStore, err := buildWorkflow(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	noStore, _ := cmd.Flags().GetBool("no-store")
	if noStore {
		wf.Recorder = nil
	}
	wf.Observer = printTurns(os.Stderr)

	answer, err := wf.Run(context.Background(), query)
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout, answer)
	return nil
}

// buildWorkflow assembles the provider, tools, dispatcher, and run store
// from configuration. The returned func closes the store.
func buildWorkflow(cfg types.Config) (*workflow.Workflow, func(), error) {
	httpClient := &http.Client{Timeout: cfg.LLM.Timeout}

	dispatcher, err := tools.NewDispatcher(
		&tools.SearchTool{Client: &coreapi.Client{HTTPClient: httpClient, Cfg: cfg.Search}},
		&tools.DownloadTool{Client: httpClient, Cfg: cfg.Download},
		&tools.HumanFeedbackTool{In: os.Stdin, Out: os.Stderr},
	)
	if err != nil {
		return nil, nil, err
	}

	provider := &llm.ClaudeProvider{Cfg: cfg.LLM, Client: httpClient}

	wf, err := workflow.New(provider, dispatcher, cfg.Workflow)
	if err != nil {
		return nil, nil, err
	}

	store, err := runstore.Open(cfg.Store)
	if err != nil {
		// The store is an audit convenience; a run without one is fine.
		fmt.Fprintf(os.Stderr, "warning: run store unavailable: %v\n", err)
		return wf, func() {}, nil
	}
	wf.Recorder = store
	return wf, func() { store.Close() }, nil
}

// printTurns renders newly produced turns to w as the workflow advances.
func printTurns(w *os.File) workflow.Observer {
	return func(stage workflow.Stage, turns []history.Turn) {
		for _, t := range turns {
			fmt.Fprintf(w, "\n--- %s (%s) ---\n", stage, t.Role)
			if t.Content != "" {
				fmt.Fprintln(w, t.Content)
			}
			for _, c := range t.ToolCalls {
				fmt.Fprintf(w, "[tool call] %s %v\n", c.Name, c.Args)
			}
		}
	}
}
