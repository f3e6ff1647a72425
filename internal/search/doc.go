// Package search provides the web search and page retrieval services behind
// the web_search and fetch_page_content tools.
//
// Every result carries an opaque ID. Passing that ID back to a Fetcher
// returns the full page text.
package search

import "context"

// Result is one search hit.
type Result struct {
	ID      string
	Title   string
	URL     string
	Snippet string
}

// Page is the retrieved content for one result ID.
type Page struct {
	ID    string
	Title string
	Text  string
}

// Searcher runs a query and returns up to n results.
type Searcher interface {
	Search(ctx context.Context, query string, n int) ([]Result, error)
}

// Fetcher retrieves full page content for result IDs.
type Fetcher interface {
	Contents(ctx context.Context, ids []string) ([]Page, error)
}

// Engine pairs a Searcher with the Fetcher that understands its IDs.
type Engine interface {
	Searcher
	Fetcher
}
