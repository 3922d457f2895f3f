package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"craggo/src/core/crag"
	"craggo/src/log"
)

// Client talks to a SearxNG-compatible search endpoint that returns JSON
// results for a plain query parameter.
type Client struct {
	httpClient *http.Client
	baseURL    string
	maxResults int
}

const DefaultMaxResults = 5

type searchResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

func NewClient(baseURL string, c *http.Client) *Client {
	if c == nil {
		c = http.DefaultClient
	}

	return &Client{
		httpClient: c,
		baseURL:    baseURL,
		maxResults: DefaultMaxResults,
	}
}

// Search runs the query against the search endpoint. A response that cannot
// be parsed is treated as an empty result set, not an error, so the pipeline
// degrades instead of failing.
func (c *Client) Search(ctx context.Context, query string) ([]crag.SearchResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")

	searchURL := fmt.Sprintf("%s/search?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, "GET", searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: search returned %s", crag.ErrRateLimitExceeded, resp.Status)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("search returned %s: %s", resp.Status, string(body))
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		log.Warn("failed to parse search response, treating as no results", "error", err.Error(), "query", query)
		return []crag.SearchResult{}, nil
	}

	results := make([]crag.SearchResult, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		if len(results) >= c.maxResults {
			break
		}
		results = append(results, crag.SearchResult{
			Title:   r.Title,
			Link:    r.URL,
			Snippet: r.Content,
		})
	}
	return results, nil
}
