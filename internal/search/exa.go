package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const exaURL = "https://api.exa.ai"

// Exa calls the Exa neural search API. Exa result IDs are accepted by its
// contents endpoint.
type Exa struct {
	APIKey  string
	BaseURL string
	client  *http.Client
}

// NewExa constructs an Exa engine.
func NewExa(apiKey string) *Exa {
	return &Exa{APIKey: apiKey, BaseURL: exaURL, client: &http.Client{Timeout: 20 * time.Second}}
}

// NewExaWithClient constructs an Exa engine using the supplied HTTP client
// and base URL.
func NewExaWithClient(apiKey, baseURL string, client *http.Client) *Exa {
	if baseURL == "" {
		baseURL = exaURL
	}
	return &Exa{APIKey: apiKey, BaseURL: strings.TrimRight(baseURL, "/"), client: client}
}

type exaResult struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	URL        string   `json:"url"`
	Text       string   `json:"text"`
	Highlights []string `json:"highlights"`
}

// Search runs an auto-typed search and asks for page text with highlights.
func (e *Exa) Search(ctx context.Context, query string, n int) ([]Result, error) {
	if n <= 0 {
		n = DefaultResults
	}
	body := map[string]any{
		"query":         query,
		"type":          "auto",
		"useAutoprompt": true,
		"numResults":    n,
		"contents": map[string]any{
			"text":       true,
			"highlights": true,
		},
	}

	var response struct {
		Results []exaResult `json:"results"`
	}
	if err := e.post(ctx, "/search", body, &response); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(response.Results))
	for _, r := range response.Results {
		snippet := r.Text
		if snippet == "" && len(r.Highlights) > 0 {
			snippet = strings.Join(r.Highlights, " ")
		}
		results = append(results, Result{ID: r.ID, Title: r.Title, URL: r.URL, Snippet: snippet})
		if len(results) >= n {
			break
		}
	}
	return results, nil
}

// Contents fetches the text of previously returned result IDs.
func (e *Exa) Contents(ctx context.Context, ids []string) ([]Page, error) {
	if len(ids) == 0 {
		return nil, errors.New("exa: no ids given")
	}

	var response struct {
		Results []exaResult `json:"results"`
	}
	if err := e.post(ctx, "/contents", map[string]any{"ids": ids, "text": true}, &response); err != nil {
		return nil, err
	}

	pages := make([]Page, 0, len(response.Results))
	for _, r := range response.Results {
		pages = append(pages, Page{ID: r.ID, Title: r.Title, Text: r.Text})
	}
	return pages, nil
}

func (e *Exa) post(ctx context.Context, path string, body any, out any) error {
	if strings.TrimSpace(e.APIKey) == "" {
		return errors.New("exa: API key is missing")
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", e.APIKey)

	resp, err := doWithBackoff(ctx, e.client, req, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("exa http %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
