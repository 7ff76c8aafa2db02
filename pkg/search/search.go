// Package search provides web search through a SearxNG instance with a
// Tavily fallback. Both are thin HTTP JSON clients with no state of their
// own.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Result is a single search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Client queries the configured search backends.
type Client struct {
	httpClient *http.Client
	searxURL   string
	tavilyKey  string
	tavilyURL  string
}

// Options configures a search client.
type Options struct {
	// SearxURL is the base URL of a SearxNG instance
	SearxURL string

	// TavilyAPIKey enables the Tavily backend
	TavilyAPIKey string
}

// NewClient creates a search client. At least one backend should be
// configured; Search fails otherwise.
func NewClient(opts Options) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		searxURL:   opts.SearxURL,
		tavilyKey:  opts.TavilyAPIKey,
		tavilyURL:  "https://api.tavily.com/search",
	}
}

// Search runs query against SearxNG when configured, else Tavily.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if maxResults <= 0 {
		maxResults = 5
	}
	if c.searxURL != "" {
		return c.searxSearch(ctx, query, maxResults)
	}
	if c.tavilyKey != "" {
		return c.tavilySearch(ctx, query, maxResults)
	}
	return nil, fmt.Errorf("no search backend configured")
}

func (c *Client) searxSearch(ctx context.Context, query string, maxResults int) ([]Result, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("categories", "general")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searxURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("searxng request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("searxng returned %s", resp.Status)
	}

	var payload struct {
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Content string `json:"content"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode searxng response: %w", err)
	}

	results := make([]Result, 0, maxResults)
	for _, item := range payload.Results {
		if len(results) >= maxResults {
			break
		}
		results = append(results, Result{Title: item.Title, URL: item.URL, Snippet: item.Content})
	}
	return results, nil
}

func (c *Client) tavilySearch(ctx context.Context, query string, maxResults int) ([]Result, error) {
	body, err := json.Marshal(map[string]interface{}{
		"api_key":      c.tavilyKey,
		"query":        query,
		"search_depth": "advanced",
		"max_results":  maxResults,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tavilyURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily returned %s", resp.Status)
	}

	var payload struct {
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Content string `json:"content"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode tavily response: %w", err)
	}

	results := make([]Result, 0, maxResults)
	for _, item := range payload.Results {
		if len(results) >= maxResults {
			break
		}
		results = append(results, Result{Title: item.Title, URL: item.URL, Snippet: item.Content})
	}
	return results, nil
}
