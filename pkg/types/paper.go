// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Paper is one record returned by the paper search tool. Fields are
// normalized display strings: missing values carry the documented
// fallbacks rather than being empty. A Paper is never mutated after
// creation; it lives only between tool execution and summarization.
type Paper struct {
	// ID is the search API's identifier for the record.
	ID string `json:"id" yaml:"id"`

	// Title is the paper title, "Untitled" if the API omitted it.
	Title string `json:"title" yaml:"title"`

	// PublishedDate is the publication date as reported by the API.
	// May be year-only.
	PublishedDate string `json:"published_date" yaml:"published_date"`

	// Authors is a display string joining author names, "Unknown" if none.
	Authors string `json:"authors" yaml:"authors"`

	// Abstract is the full abstract text, "No abstract available" if absent.
	Abstract string `json:"abstract" yaml:"abstract"`

	// SourceURLs is a comma-joined list of full-text URLs, or
	// "No URL available".
	SourceURLs string `json:"source_urls" yaml:"source_urls"`
}
