// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-agent/internal/runstore"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List past runs from the local run store",
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().Int("limit", 20, "maximum number of runs to list")

	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	cfg := loadConfig()
	store, err := runstore.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(context.Background(), limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}

	for _, r := range runs {
		answer := strings.ReplaceAll(r.Answer, "\n", " ")
		if len(answer) > 80 {
			answer = answer[:80] + "..."
		}
		fmt.Printf("%s  %s  (%d turns)\n  Q: %s\n  A: %s\n", r.CreatedAt.Format("2006-01-02 15:04"), r.ID, r.Turns, r.Query, answer)
	}
	return nil
}
