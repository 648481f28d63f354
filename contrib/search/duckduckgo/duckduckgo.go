package duckduckgo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	defaultEndpoint   = "https://html.duckduckgo.com/html/"
	defaultMaxResults = 5
	userAgent         = "Mozilla/5.0 (compatible; procedure-assess/1.0)"

	// NoResults is returned in place of hits when the page lists none.
	NoResults = "No good search result was found"
)

// Config holds DuckDuckGo client configuration
type Config struct {
	Endpoint   string
	MaxResults int
	Timeout    time.Duration
	HTTPClient *http.Client
}

// DefaultConfig returns default DuckDuckGo configuration
func DefaultConfig() *Config {
	return &Config{
		Endpoint:   defaultEndpoint,
		MaxResults: defaultMaxResults,
		Timeout:    20 * time.Second,
	}
}

// Result is a single search hit.
type Result struct {
	Title   string
	Snippet string
	URL     string
}

// Client queries the DuckDuckGo HTML endpoint.
type Client struct {
	config *Config
	client *http.Client
}

// New creates a new DuckDuckGo search client
func New(config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Endpoint == "" {
		config.Endpoint = defaultEndpoint
	}
	if config.MaxResults <= 0 {
		config.MaxResults = defaultMaxResults
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}
	return &Client{config: config, client: httpClient}
}

// Search implements search.Searcher.
func (c *Client) Search(ctx context.Context, query string) (string, error) {
	results, err := c.Results(ctx, query)
	if err != nil {
		return "", err
	}
	return Format(results), nil
}

// Results fetches and parses the hits for query.
func (c *Client) Results(ctx context.Context, query string) ([]Result, error) {
	form := url.Values{"q": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("search returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return Parse(resp.Body, c.config.MaxResults)
}

// Parse extracts up to limit hits from a DuckDuckGo HTML results page.
func Parse(r io.Reader, limit int) ([]Result, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse search results: %w", err)
	}

	var results []Result
	doc.Find(".result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.HasClass("result--ad") {
			return true
		}
		res := Result{
			Title:   collapse(s.Find(".result__title").Text()),
			Snippet: collapse(s.Find(".result__snippet").Text()),
			URL:     collapse(s.Find(".result__url").Text()),
		}
		if res.URL == "" {
			if href, ok := s.Find("a.result__a").Attr("href"); ok {
				res.URL = resolveRedirect(href)
			}
		}
		if res.Title == "" && res.Snippet == "" {
			return true
		}
		results = append(results, res)
		return limit <= 0 || len(results) < limit
	})
	return results, nil
}

// Format flattens hits into the text handed to the model.
func Format(results []Result) string {
	if len(results) == 0 {
		return NoResults
	}
	blocks := make([]string, 0, len(results))
	for _, r := range results {
		var b strings.Builder
		b.WriteString(r.Title)
		if r.Snippet != "" {
			b.WriteString("\n" + r.Snippet)
		}
		if r.URL != "" {
			b.WriteString("\n" + r.URL)
		}
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n\n")
}

// resolveRedirect unwraps DuckDuckGo's /l/?uddg= redirect links.
func resolveRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
