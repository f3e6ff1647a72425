package search

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// DefaultResults is the number of search results requested when the caller
// does not say.
const DefaultResults = 5

const maxFetchBytes = 32 * 1024

// HTTPFetcher treats IDs as URLs and downloads them.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTP creates an HTTP fetcher with a modest timeout.
func NewHTTP() *HTTPFetcher {
	return &HTTPFetcher{client: &http.Client{Timeout: 15 * time.Second}}
}

// NewHTTPWithClient creates an HTTP fetcher using the supplied client.
func NewHTTPWithClient(client *http.Client) *HTTPFetcher {
	return &HTTPFetcher{client: client}
}

// Contents downloads every URL. A failed download yields a page whose text
// describes the failure so other pages are still returned.
func (f *HTTPFetcher) Contents(ctx context.Context, ids []string) ([]Page, error) {
	if len(ids) == 0 {
		return nil, errors.New("fetch: no urls given")
	}
	pages := make([]Page, 0, len(ids))
	for _, id := range ids {
		title, text, err := f.Fetch(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			text = "Error: " + err.Error()
		}
		pages = append(pages, Page{ID: id, Title: title, Text: text})
	}
	return pages, nil
}

// Fetch downloads the URL and returns its title and plain text, truncated.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, string, error) {
	trimmed := strings.TrimSpace(url)
	if trimmed == "" {
		return "", "", errors.New("fetch url is empty")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, trimmed, nil)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("fetch http %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4*maxFetchBytes))
	if err != nil {
		return "", "", err
	}

	html := string(body)
	text := stripHTML(html)
	if len(text) > maxFetchBytes {
		text = text[:maxFetchBytes] + "\n[TRUNCATED]"
	}
	return extractTitle(html), text, nil
}

var (
	reTitle      = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	reScript     = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	reStyle      = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	reChrome     = regexp.MustCompile(`(?is)<(nav|header|footer)[^>]*>.*?</(nav|header|footer)>`)
	reTags       = regexp.MustCompile(`<[^>]+>`)
	reWhitespace = regexp.MustCompile(`[ \t]+`)
)

var entities = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", "\"",
	"&#39;", "'",
	"&nbsp;", " ",
)

func extractTitle(html string) string {
	m := reTitle.FindStringSubmatch(html)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(entities.Replace(m[1]))
}

// stripHTML removes scripts, styles and page chrome, then all tags.
func stripHTML(html string) string {
	s := reTitle.ReplaceAllString(html, "")
	s = reScript.ReplaceAllString(s, "")
	s = reStyle.ReplaceAllString(s, "")
	s = reChrome.ReplaceAllString(s, "")
	s = reTags.ReplaceAllString(s, " ")
	s = entities.Replace(s)
	s = reWhitespace.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return strings.Join(out, "\n")
}

// doWithBackoff sends req, retrying on 429 with a doubling delay capped at
// 30s. payload is replayed on each attempt.
func doWithBackoff(ctx context.Context, client *http.Client, req *http.Request, payload []byte) (*http.Response, error) {
	delay := 1 * time.Second
	for {
		if payload != nil {
			req.Body = io.NopCloser(bytes.NewReader(payload))
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}
		resp.Body.Close()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		if delay < 30*time.Second {
			delay *= 2
		}
	}
}
