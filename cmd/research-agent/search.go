// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-agent/internal/coreapi"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the CORE API for papers, bypassing the agent",
	Long: `Search runs the paper-search tool directly with a CORE API query and
prints the normalized results, without involving the language model.
Useful for checking credentials and experimenting with query syntax.`,
	Args: cobra.ArbitraryArgs,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().Int("max-papers", 5, "maximum number of papers to return (1-10)")
	searchCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		return fmt.Errorf("provide a search query (CORE API syntax)")
	}

	maxPapers, _ := cmd.Flags().GetInt("max-papers")
	if maxPapers < 1 || maxPapers > 10 {
		return fmt.Errorf("--max-papers must be between 1 and 10")
	}

	cfg := loadConfig()
	client := &coreapi.Client{
		HTTPClient: &http.Client{Timeout: cfg.Search.Timeout},
		Cfg:        cfg.Search,
	}

	papers, err := client.Search(context.Background(), query, maxPapers)
	if err != nil {
		return err
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(papers)
	}

	if len(papers) == 0 {
		fmt.Println("No relevant results were found")
		return nil
	}
	for i, p := range papers {
		fmt.Printf("%d. %s\n   Authors: %s\n   Published: %s\n   URLs: %s\n", i+1, p.Title, p.Authors, p.PublishedDate, p.SourceURLs)
	}
	return nil
}
