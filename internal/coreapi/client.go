// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package coreapi queries the CORE v3 academic search API and returns
// normalized paper records.
package coreapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/research-agent/internal/httputil"
	"github.com/pdiddy/research-agent/pkg/types"
)

// apiBase is the CORE API root. Declared as a var so tests can substitute
// an httptest server.
var apiBase = "https://api.core.ac.uk/v3"

// Client calls the CORE search endpoint with bearer-token auth.
type Client struct {
	HTTPClient *http.Client
	Cfg        types.SearchConfig
}

// rawResponse mirrors the fields of the CORE search response we consume.
type rawResponse struct {
	Results []rawResult `json:"results"`
}

type rawResult struct {
	ID                 json.Number `json:"id"`
	Title              string      `json:"title"`
	PublishedDate      string      `json:"publishedDate"`
	YearPublished      json.Number `json:"yearPublished"`
	Abstract           string      `json:"abstract"`
	Authors            []rawAuthor `json:"authors"`
	SourceFulltextUrls []string    `json:"sourceFulltextUrls"`
	DownloadURL        string      `json:"downloadUrl"`
}

type rawAuthor struct {
	Name string `json:"name"`
}

// Search runs a GET query against /search/outputs and returns normalized
// papers. Searches are idempotent, so a non-2xx status, transport error,
// or malformed JSON body is retried up to five times with exponential
// backoff before the last failure is surfaced. An empty result list is a
// successful search, not an error.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]types.Paper, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query is empty")
	}
	if limit <= 0 {
		limit = 1
	}
	if c.Cfg.MaxResults > 0 && limit > c.Cfg.MaxResults {
		limit = c.Cfg.MaxResults
	}

	params := url.Values{
		"q":     {query},
		"limit": {fmt.Sprintf("%d", limit)},
	}
	reqURL := apiBase + "/search/outputs?" + params.Encode()

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	var lastErr error
	for attempt := 0; attempt < httputil.DefaultMaxRetries; attempt++ {
		if attempt > 0 {
			if err := httputil.Sleep(ctx, attempt-1); err != nil {
				return nil, err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.Cfg.APIKey)
		if c.Cfg.UserAgent != "" {
			req.Header.Set("User-Agent", c.Cfg.UserAgent)
		}

		resp, err := client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("CORE API request: %w", err)
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("reading CORE API response: %w", readErr)
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			lastErr = fmt.Errorf("CORE API returned HTTP %d: %s", resp.StatusCode, truncateBody(body))
			continue
		}

		var raw rawResponse
		if err := json.Unmarshal(body, &raw); err != nil {
			lastErr = fmt.Errorf("parsing CORE API response: %w", err)
			continue
		}

		papers := make([]types.Paper, 0, len(raw.Results))
		for _, r := range raw.Results {
			papers = append(papers, normalize(r))
		}
		return papers, nil
	}
	return nil, fmt.Errorf("maximum retries reached: %w", lastErr)
}

// normalize maps a raw CORE record to a Paper, applying the display
// fallbacks for missing fields.
func normalize(r rawResult) types.Paper {
	p := types.Paper{
		ID:            string(r.ID),
		Title:         r.Title,
		PublishedDate: r.PublishedDate,
		Abstract:      r.Abstract,
	}
	if p.ID == "" {
		p.ID = "Unknown ID"
	}
	if p.Title == "" {
		p.Title = "Untitled"
	}
	// Fall back to the bare publication year when no full date exists.
	if p.PublishedDate == "" {
		p.PublishedDate = string(r.YearPublished)
	}
	if p.PublishedDate == "" {
		p.PublishedDate = "Unknown"
	}
	if p.Abstract == "" {
		p.Abstract = "No abstract available"
	}

	var names []string
	for _, a := range r.Authors {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	if len(names) > 0 {
		p.Authors = strings.Join(names, " and ")
	} else {
		p.Authors = "Unknown"
	}

	switch {
	case len(r.SourceFulltextUrls) > 0:
		p.SourceURLs = strings.Join(r.SourceFulltextUrls, ", ")
	case r.DownloadURL != "":
		p.SourceURLs = r.DownloadURL
	default:
		p.SourceURLs = "No URL available"
	}
	return p
}

// truncateBody keeps error messages readable when the API returns a long
// HTML error page.
func truncateBody(b []byte) string {
	const max = 200
	s := strings.TrimSpace(string(b))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
