package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const tavilyURL = "https://api.tavily.com"

// Tavily calls the Tavily search API. Tavily has no contents endpoint, so
// result IDs are page URLs and Contents downloads them directly.
type Tavily struct {
	APIKey  string
	BaseURL string
	// Depth controls Tavily's search_depth parameter (basic or advanced).
	Depth   string
	client  *http.Client
	fetcher *HTTPFetcher
}

// NewTavily constructs a Tavily engine.
func NewTavily(apiKey string, depth string) *Tavily {
	return NewTavilyWithClient(apiKey, depth, "", &http.Client{Timeout: 10 * time.Second})
}

// NewTavilyWithClient constructs a Tavily engine using the supplied HTTP
// client and base URL.
func NewTavilyWithClient(apiKey, depth, baseURL string, client *http.Client) *Tavily {
	if depth == "" {
		depth = "basic"
	}
	if baseURL == "" {
		baseURL = tavilyURL
	}
	return &Tavily{
		APIKey:  apiKey,
		Depth:   depth,
		BaseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		fetcher: NewHTTP(),
	}
}

// Search posts a query to Tavily.
func (t *Tavily) Search(ctx context.Context, query string, n int) ([]Result, error) {
	if strings.TrimSpace(t.APIKey) == "" {
		return nil, errors.New("tavily: API key is missing")
	}
	if n <= 0 {
		n = DefaultResults
	}

	payload, err := json.Marshal(map[string]any{
		"query":        query,
		"api_key":      t.APIKey,
		"search_depth": t.Depth,
		"max_results":  n,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.BaseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := doWithBackoff(ctx, t.client, req, payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily http %d", resp.StatusCode)
	}

	var response struct {
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Content string `json:"content"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(response.Results))
	for _, r := range response.Results {
		results = append(results, Result{ID: r.URL, Title: r.Title, URL: r.URL, Snippet: r.Content})
		if len(results) >= n {
			break
		}
	}
	return results, nil
}

// Contents downloads each URL ID.
func (t *Tavily) Contents(ctx context.Context, ids []string) ([]Page, error) {
	return t.fetcher.Contents(ctx, ids)
}
