// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tools

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/research-agent/internal/httputil"
	"github.com/pdiddy/research-agent/pkg/types"
)

// maxDownloadBytes bounds how much of a document the tool will read.
const maxDownloadBytes = 10 << 20

// DownloadTool fetches a document URL and returns its text content.
// Argument: url (required). When a downloads directory is configured the
// raw bytes are persisted alongside a YAML metadata sidecar; the
// conversation history only ever receives the summarized form.
type DownloadTool struct {
	Client *http.Client
	Cfg    types.DownloadConfig
}

// downloadRecord is the metadata sidecar written next to a persisted document.
type downloadRecord struct {
	URL        string    `yaml:"url"`
	Path       string    `yaml:"path"`
	Bytes      int       `yaml:"bytes"`
	FetchedAt  time.Time `yaml:"fetched_at"`
	StatusCode int       `yaml:"status_code"`
}

// Name returns the tool identifier.
func (t *DownloadTool) Name() Name { return DownloadPaper }

// Description documents the tool for the planning and agent prompts.
func (t *DownloadTool) Description() string {
	return `Download the content of a paper from a URL. Arguments: "url" (string, the full-text URL of the paper).`
}

// InputSchema declares the download arguments to the model.
func (t *DownloadTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "The full-text URL of the paper to download.",
			},
		},
		"required": []string{"url"},
	}
}

// Execute validates the URL, fetches it with retry, and returns the body
// as text.
func (t *DownloadTool) Execute(ctx context.Context, args map[string]any) (Payload, error) {
	raw, err := stringArg(args, "url")
	if err != nil {
		return Payload{}, err
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return Payload{}, fmt.Errorf("argument \"url\" is not a valid http(s) URL: %q", raw)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	if err != nil {
		return Payload{}, fmt.Errorf("creating request: %w", err)
	}
	if t.Cfg.UserAgent != "" {
		req.Header.Set("User-Agent", t.Cfg.UserAgent)
	}

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return Payload{}, fmt.Errorf("downloading %s: %w", raw, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Payload{}, fmt.Errorf("downloading %s: HTTP %d", raw, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes))
	if err != nil {
		return Payload{}, fmt.Errorf("reading %s: %w", raw, err)
	}

	if t.Cfg.DownloadsDir != "" {
		if err := t.persist(raw, body, resp.StatusCode); err != nil {
			// Persistence is best effort; the agent still gets the text.
			fmt.Fprintf(os.Stderr, "warning: could not persist download: %v\n", err)
		}
	}

	return Payload{Text: string(body)}, nil
}

// persist writes the raw document and its metadata sidecar under the
// downloads directory, using a temporary file and rename so a partial
// write never looks like a complete download.
func (t *DownloadTool) persist(srcURL string, body []byte, status int) error {
	if err := os.MkdirAll(t.Cfg.DownloadsDir, 0o755); err != nil {
		return fmt.Errorf("creating downloads directory: %w", err)
	}

	slug := slugForURL(srcURL)
	docPath := filepath.Join(t.Cfg.DownloadsDir, slug)
	metaPath := docPath + ".yaml"

	tmp, err := os.CreateTemp(t.Cfg.DownloadsDir, slug+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing %s: %w", docPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing %s: %w", docPath, err)
	}
	if err := os.Rename(tmp.Name(), docPath); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("renaming %s: %w", docPath, err)
	}

	rec := downloadRecord{
		URL:        srcURL,
		Path:       docPath,
		Bytes:      len(body),
		FetchedAt:  time.Now().UTC(),
		StatusCode: status,
	}
	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}
	if err := os.WriteFile(metaPath, data, 0o644); err != nil {
		return fmt.Errorf("writing metadata: %w", err)
	}
	return nil
}

// slugForURL derives a stable filename for a document URL: the last path
// element when it is usable, otherwise a content hash of the URL.
func slugForURL(raw string) string {
	u, err := url.Parse(raw)
	if err == nil {
		base := filepath.Base(u.Path)
		base = strings.Map(func(r rune) rune {
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
				return r
			case r == '.', r == '-', r == '_':
				return r
			default:
				return '-'
			}
		}, base)
		if base != "" && base != "." && base != "/" {
			return base
		}
	}
	sum := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%x", sum[:8])
}
