// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the research-agent CLI: a
// research assistant that plans, searches academic APIs, and judges its
// own answers before returning them.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/research-agent/internal/secrets"
	"github.com/pdiddy/research-agent/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

const (
	defaultTimeout   = 60 * time.Second
	defaultUserAgent = "research-agent/0.1"
	defaultModel     = "claude-sonnet-4-5"
)

// rootCmd is the base command for the research-agent CLI.
var rootCmd = &cobra.Command{
	Use:   "research-agent",
	Short: "A self-judging research assistant over academic search APIs",
	Long: `research-agent answers research questions through a staged workflow:
it decides whether a query needs research at all, plans the steps, runs
paper-search and download tools, drafts an answer, and judges that answer
before returning it. Past runs are stored locally for audit.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./research-agent.yaml or ~/.config/research-agent/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("research-agent")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "research-agent"))
		}
	}

	viper.SetEnvPrefix("RESEARCH_AGENT")
	viper.AutomaticEnv()

	viper.SetDefault("llm.model", defaultModel)
	viper.SetDefault("llm.max_tokens", 4096)
	viper.SetDefault("http.timeout", defaultTimeout)
	viper.SetDefault("workflow.max_feedback", 2)
	viper.SetDefault("store.dir", "runs")
	viper.SetDefault("download.dir", "downloads")

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig assembles the typed configuration from viper settings and
// the secrets directory. Explicit config values beat key files.
func loadConfig() types.Config {
	timeout := viper.GetDuration("http.timeout")
	if timeout == 0 {
		timeout = defaultTimeout
	}
	httpCfg := types.HTTPConfig{Timeout: timeout, UserAgent: defaultUserAgent}

	return types.Config{
		Search: types.SearchConfig{
			HTTPConfig: httpCfg,
			APIKey:     secrets.Get(loadedSecrets, "core-api-key", viper.GetString("search.api_key")),
			MaxResults: 10,
		},
		LLM: types.LLMConfig{
			HTTPConfig: httpCfg,
			APIKey:     secrets.Get(loadedSecrets, "anthropic-api-key", viper.GetString("llm.api_key")),
			Model:      viper.GetString("llm.model"),
			MaxTokens:  viper.GetInt("llm.max_tokens"),
		},
		Download: types.DownloadConfig{
			HTTPConfig:   httpCfg,
			DownloadsDir: viper.GetString("download.dir"),
		},
		Workflow: types.WorkflowConfig{
			MaxFeedback: viper.GetInt("workflow.max_feedback"),
		},
		Store: types.StoreConfig{
			Dir: viper.GetString("store.dir"),
		},
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
