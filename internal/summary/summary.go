// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package summary converts raw tool outcomes into bounded history entries.
// Raw tool output is high volume and low value per character; keeping it
// whole would blow up the context passed to every later model call, so
// each tool gets a size-aware rendering policy and everything shares a
// hard cap.
package summary

import (
	"fmt"
	"strings"

	"github.com/pdiddy/research-agent/internal/tools"
	"github.com/pdiddy/research-agent/pkg/types"
)

const (
	// maxEntry is the universal cap on a summarized history entry.
	maxEntry = 3000

	// truncationMarker terminates any hard-truncated entry.
	truncationMarker = "... (content truncated)"

	// noResultsMarker is the literal entry for an empty-but-successful search.
	noResultsMarker = "No relevant results were found"

	// topPapers is how many search results are rendered in detail.
	topPapers = 3

	// abstractSnippet bounds the abstract excerpt per rendered paper.
	abstractSnippet = 300

	// longTextThreshold and longTextHead control the placeholder policy
	// for long downloaded documents: above the threshold only the head is
	// kept in history.
	longTextThreshold = 1500
	longTextHead      = 500
)

// Summarize renders one tool outcome as the content of its tool-result
// turn. Error outcomes pass through unchanged; successful outcomes go
// through the per-tool policy. The result never exceeds the universal cap.
func Summarize(out tools.Outcome) string {
	var s string
	switch {
	case !out.Ok:
		s = out.Err
	case out.Tool == tools.SearchPapers:
		s = searchDigest(out.Payload.Papers)
	case out.Tool == tools.DownloadPaper:
		s = longText(out.Payload.Text)
	default:
		s = out.Payload.Text
	}
	return capEntry(s)
}

// searchDigest renders a found-N header, the first three papers in
// detail, and a note when more results exist. The full records are
// discarded after this; only the digest persists in history.
func searchDigest(papers []types.Paper) string {
	if len(papers) == 0 {
		return noResultsMarker
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Search successful. Found %d papers.\n", len(papers))
	b.WriteString("Top 3 results:")

	n := len(papers)
	if n > topPapers {
		n = topPapers
	}
	for i := 0; i < n; i++ {
		p := papers[i]
		abstract := p.Abstract
		if len(abstract) > abstractSnippet {
			abstract = abstract[:abstractSnippet] + "..."
		}
		fmt.Fprintf(&b, "\n  %d. Title: %s\n     Authors: %s\n     Published: %s\n     URLs: %s\n     Abstract Snippet: %s",
			i+1, p.Title, p.Authors, p.PublishedDate, p.SourceURLs, abstract)
	}

	if len(papers) > topPapers {
		b.WriteString("\n\nMore results are available for detailed analysis if needed.")
	}
	return b.String()
}

// longText applies the download policy: past the threshold the full text
// is deliberately dropped from history and replaced by a placeholder
// naming the total length and the first 500 characters. Callers needing
// the full content must re-fetch it.
func longText(text string) string {
	if len(text) <= longTextThreshold {
		return text
	}
	return fmt.Sprintf("Paper content has been downloaded (length: %d). The full text is not retained in history; re-download if the complete content is needed. Start of content: %s...",
		len(text), text[:longTextHead])
}

// capEntry hard-truncates an entry at the universal limit. The marker
// replaces the tail rather than extending it, so the capped entry itself
// never exceeds the limit.
func capEntry(s string) string {
	if len(s) <= maxEntry {
		return s
	}
	return s[:maxEntry-len(truncationMarker)] + truncationMarker
}
