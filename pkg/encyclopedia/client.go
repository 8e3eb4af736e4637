// Package encyclopedia answers questions from the introductory extract of the
// best-matching encyclopedia article, using the MediaWiki action API.
package encyclopedia

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/kakapo-ai/kakapo/pkg/config"
)

// SearchResult is the top search hit plus the engine's spelling suggestion.
type SearchResult struct {
	Title      string
	Suggestion string
}

// Client is a minimal MediaWiki API client.
type Client struct {
	BaseURL    string
	UserAgent  string
	HTTPClient *http.Client
}

// NewClient creates a Client with a fixed per-request timeout.
func NewClient(cfg config.EncyclopediaConfig) *Client {
	return &Client{
		BaseURL:   cfg.BaseURL,
		UserAgent: cfg.UserAgent,
		HTTPClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

func (c *Client) get(ctx context.Context, params url.Values, out any) error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	params.Set("format", "json")
	params.Set("formatversion", "2")
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("encyclopedia request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("encyclopedia returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Search returns the single best-matching title for query and the engine's
// spelling suggestion. Title is empty when nothing matched.
func (c *Client) Search(ctx context.Context, query string) (*SearchResult, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("srlimit", "1")
	params.Set("srinfo", "suggestion")
	params.Set("srprop", "")

	var raw struct {
		Query struct {
			SearchInfo struct {
				Suggestion string `json:"suggestion"`
			} `json:"searchinfo"`
			Search []struct {
				Title string `json:"title"`
			} `json:"search"`
		} `json:"query"`
	}
	if err := c.get(ctx, params, &raw); err != nil {
		return nil, err
	}

	res := &SearchResult{Suggestion: raw.Query.SearchInfo.Suggestion}
	if len(raw.Query.Search) > 0 {
		res.Title = raw.Query.Search[0].Title
	}
	return res, nil
}

// Extract returns the plain-text introduction of the page titled title.
func (c *Client) Extract(ctx context.Context, title string) (string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("prop", "extracts")
	params.Set("exintro", "1")
	params.Set("explaintext", "1")
	params.Set("redirects", "1")
	params.Set("titles", title)

	var raw struct {
		Query struct {
			Pages []struct {
				Title   string `json:"title"`
				Missing bool   `json:"missing"`
				Extract string `json:"extract"`
			} `json:"pages"`
		} `json:"query"`
	}
	if err := c.get(ctx, params, &raw); err != nil {
		return "", err
	}

	for _, p := range raw.Query.Pages {
		if !p.Missing && strings.TrimSpace(p.Extract) != "" {
			return strings.TrimSpace(p.Extract), nil
		}
	}
	return "", nil
}
