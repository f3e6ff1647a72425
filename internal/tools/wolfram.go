package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const wolframURL = "https://api.wolframalpha.com/v2/query"

// WolframTool queries the Wolfram Alpha full results API.
type WolframTool struct {
	appID   string
	baseURL string
	client  *http.Client
}

func NewWolframTool(appID string) *WolframTool {
	return &WolframTool{
		appID:   appID,
		baseURL: wolframURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (w *WolframTool) Name() string { return "wolfram_alpha" }

func (w *WolframTool) Description() string {
	return "Ask Wolfram Alpha a natural-language or mathematical query, e.g. 'integrate sin(x)'. " +
		"Returns the plaintext of every result pod."
}

func (w *WolframTool) Parameters() []Parameter {
	return []Parameter{
		{Name: "tool_input", Type: "string", Description: "Query for Wolfram Alpha", Required: true},
	}
}

type wolframResponse struct {
	QueryResult struct {
		Success bool `json:"success"`
		Pods    []struct {
			Title   string `json:"title"`
			Subpods []struct {
				Plaintext string `json:"plaintext"`
			} `json:"subpods"`
		} `json:"pods"`
	} `json:"queryresult"`
}

// Execute reports every failure as text in Wolfram's own wording.
func (w *WolframTool) Execute(ctx context.Context, call Call) (string, error) {
	if w.appID == "" {
		return "Error: Wolfram Alpha App ID is not set in environment variables.", nil
	}

	params := url.Values{}
	params.Set("appid", w.appID)
	params.Set("input", call.Input.String())
	params.Set("output", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Sprintf("An error occurred: %v", err), nil
	}

	resp, err := w.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return "Error: The request to Wolfram Alpha timed out.", nil
		}
		return fmt.Sprintf("An error occurred: %v", err), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Sprintf("An error occurred: wolfram alpha returned status %d", resp.StatusCode), nil
	}

	var data wolframResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		if isTimeout(err) {
			return "Error: The request to Wolfram Alpha timed out.", nil
		}
		return fmt.Sprintf("An error occurred: %v", err), nil
	}

	if !data.QueryResult.Success {
		return "No results found for the query.", nil
	}

	var b strings.Builder
	for _, pod := range data.QueryResult.Pods {
		for _, sub := range pod.Subpods {
			if sub.Plaintext != "" {
				b.WriteString(sub.Plaintext)
				b.WriteString("\n")
			}
		}
	}
	if b.Len() == 0 {
		return "No plaintext result available.", nil
	}
	return strings.TrimSpace(b.String()), nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
