// Package types provides type definitions for structured data shared across the pitch-agent pipeline.
package types

import "time"

// SearchResult is a single hit returned by a search engine adapter.
// Results are ephemeral and live only for the request that produced them.
type SearchResult struct {
	Query       string     `json:"query"`
	EngineUsed  string     `json:"engine_used"`
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	Snippet     string     `json:"snippet"`
	Rank        int        `json:"rank"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// Filters are the optional, user-supplied narrowing criteria for a matching request.
type Filters struct {
	Industry   string `json:"industry,omitempty"`
	Technology string `json:"technology,omitempty"`
	Focus      string `json:"focus,omitempty"`
	Website    string `json:"website,omitempty"`
}

// IsEmpty reports whether no filter was supplied.
func (f Filters) IsEmpty() bool {
	return f.Industry == "" && f.Technology == "" && f.Focus == "" && f.Website == ""
}

// ClampConfidence bounds a confidence value to [0, 1].
func ClampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
