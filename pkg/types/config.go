// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the shared data records and configuration structs
// used across the agent's stages.
package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "research-agent/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// SearchConfig holds settings for the paper search API client.
type SearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// APIKey is the bearer token for the CORE API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxResults caps the number of papers a single search may request (default 10).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// LLMConfig holds settings for the language-model provider.
type LLMConfig struct {
	HTTPConfig `yaml:",inline"`

	// APIKey authenticates against the model API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Model is the model identifier.
	Model string `json:"model" yaml:"model"`

	// MaxTokens bounds the response length per call (default 4096).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`
}

// DownloadConfig holds settings for the document download tool.
type DownloadConfig struct {
	HTTPConfig `yaml:",inline"`

	// DownloadsDir, when non-empty, is where fetched documents and their
	// metadata sidecars are persisted. Empty disables persistence; the
	// fetched text is still returned to the agent.
	DownloadsDir string `json:"downloads_dir,omitempty" yaml:"downloads_dir,omitempty"`
}

// WorkflowConfig holds settings for the orchestration loop.
type WorkflowConfig struct {
	// MaxFeedback is the number of judge evaluations allowed before the
	// run force-terminates with the last produced answer (default 2).
	MaxFeedback int `json:"max_feedback" yaml:"max_feedback"`
}

// StoreConfig holds settings for the run store.
type StoreConfig struct {
	// Dir is the directory holding the runs database (default "runs").
	Dir string `json:"dir" yaml:"dir"`
}

// Config is the top-level configuration for the agent.
type Config struct {
	Search   SearchConfig   `json:"search" yaml:"search"`
	LLM      LLMConfig      `json:"llm" yaml:"llm"`
	Download DownloadConfig `json:"download" yaml:"download"`
	Workflow WorkflowConfig `json:"workflow" yaml:"workflow"`
	Store    StoreConfig    `json:"store" yaml:"store"`
}
