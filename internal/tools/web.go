package tools

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ashutoshrp06/reasonchain/internal/search"
)

// ============================================================================
// Web Search Tool
// ============================================================================

// WebSearchTool queries a search engine and lists the hits with their IDs.
type WebSearchTool struct {
	searcher search.Searcher
}

func NewWebSearchTool(searcher search.Searcher) *WebSearchTool {
	return &WebSearchTool{searcher: searcher}
}

func (w *WebSearchTool) Name() string { return "web_search" }

func (w *WebSearchTool) Description() string {
	return "Search the web. Each result includes an ID that can be passed to 'fetch_page_content'. " +
		"If you cannot find information in a website, try another one, up to 5 times."
}

func (w *WebSearchTool) Parameters() []Parameter {
	return []Parameter{
		{Name: "tool_input", Type: "string", Description: "Search query", Required: true},
		{Name: "num_results", Type: "int", Description: "Number of results to return", Default: strconv.Itoa(search.DefaultResults)},
	}
}

func (w *WebSearchTool) Execute(ctx context.Context, call Call) (string, error) {
	if w.searcher == nil {
		return "", fmt.Errorf("web search is not configured (set EXA_API_KEY or TAVILY_API_KEY)")
	}

	n := call.NumResults
	if n <= 0 {
		n = search.DefaultResults
	}

	results, err := w.searcher.Search(ctx, call.Input.String(), n)
	if err != nil {
		return fmt.Sprintf("An error occurred while searching the web: %v", err), nil
	}
	return formatResults(results), nil
}

func formatResults(results []search.Result) string {
	entries := make([]string, 0, len(results))
	for i, r := range results {
		entries = append(entries, fmt.Sprintf("Result %d:\nID: %s\nTitle: %s\nSnippet: %s\nURL: %s\n",
			i+1,
			orDefault(r.ID, "No ID found"),
			orDefault(r.Title, "No title found"),
			orDefault(r.Snippet, "No snippet found"),
			orDefault(r.URL, "No URL found")))
	}
	return strings.Join(entries, "\n")
}

// ============================================================================
// Fetch Page Content Tool
// ============================================================================

// FetchPageTool retrieves the full text behind web_search result IDs.
type FetchPageTool struct {
	fetcher search.Fetcher
}

func NewFetchPageTool(fetcher search.Fetcher) *FetchPageTool {
	return &FetchPageTool{fetcher: fetcher}
}

func (f *FetchPageTool) Name() string { return "fetch_page_content" }

func (f *FetchPageTool) Description() string {
	return "Retrieve the full text of pages found by 'web_search'. " +
		"Confirm all preview highlights from 'web_search' with this tool to get the most up to date information."
}

func (f *FetchPageTool) Parameters() []Parameter {
	return []Parameter{
		{Name: "tool_input", Type: "list", Description: "One ID or a list of IDs from previous web_search results", Required: true},
	}
}

func (f *FetchPageTool) Execute(ctx context.Context, call Call) (string, error) {
	if f.fetcher == nil {
		return "", fmt.Errorf("page fetching is not configured")
	}

	pages, err := f.fetcher.Contents(ctx, call.Input.Values)
	if err != nil {
		return fmt.Sprintf("An error occurred while retrieving page content: %v", err), nil
	}

	entries := make([]string, 0, len(pages))
	for _, p := range pages {
		entries = append(entries, fmt.Sprintf("Title: %s\nContent: %s\n",
			orDefault(p.Title, "No title found"),
			orDefault(p.Text, "No text found")))
	}
	return strings.Join(entries, "\n"), nil
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
