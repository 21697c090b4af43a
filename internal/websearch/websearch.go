// Package websearch provides web search for the clinical answering flow.
//
// Results come from DuckDuckGo's HTML endpoint, parsed with goquery. The
// provider is deliberately forgiving: transport errors, bad status codes
// and unparseable pages all yield an empty result list rather than an
// error, because web search only ever augments the knowledge base — the
// answering pipeline must proceed without it.
package websearch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/oakhealth/aftercare/internal/log"
)

// DefaultBaseURL is DuckDuckGo's JavaScript-free HTML endpoint.
const DefaultBaseURL = "https://html.duckduckgo.com/html/"

// defaultTimeout bounds one search round-trip.
const defaultTimeout = 15 * time.Second

// Result is one web search hit.
type Result struct {
	Title   string
	Snippet string
	URL     string
}

// Client searches the web via DuckDuckGo HTML.
// Safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the search endpoint (used in tests).
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a web search client.
func New(logger log.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = log.NewNop()
	}

	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search returns up to limit results for query.
// It never returns an error: any failure is logged and yields an empty
// slice, which the caller treats as "searched, found nothing".
func (c *Client) Search(ctx context.Context, query string, limit int) []Result {
	if limit <= 0 {
		return nil
	}

	c.logger.Info("performing web search", "query", query)

	reqURL := c.baseURL + "?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		c.logger.Error("web search request build failed", "error", err)
		return nil
	}
	// DuckDuckGo rejects default Go user agents
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("web search failed", "error", err)
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("web search returned non-OK status", "status", resp.StatusCode)
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		c.logger.Error("web search parse failed", "error", err)
		return nil
	}

	results := parseResults(doc, limit)
	c.logger.Info("web search complete", "results", len(results))
	return results
}

// parseResults extracts results from DuckDuckGo's HTML result page.
func parseResults(doc *goquery.Document, limit int) []Result {
	var results []Result

	doc.Find(".result").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		link := sel.Find(".result__a").First()
		title := strings.TrimSpace(link.Text())
		if title == "" {
			return true // skip ads/empty blocks, keep scanning
		}

		href, _ := link.Attr("href")
		snippet := strings.TrimSpace(sel.Find(".result__snippet").First().Text())

		results = append(results, Result{
			Title:   title,
			Snippet: snippet,
			URL:     resolveRedirect(href),
		})
		return len(results) < limit
	})

	return results
}

// resolveRedirect unwraps DuckDuckGo's /l/?uddg=<target> redirect links.
func resolveRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	// Protocol-relative redirect links
	if u.Scheme == "" && u.Host != "" {
		return "https:" + href
	}
	return href
}

// FormatResults renders results into a numbered, human-readable block.
// Used by CLI output and diagnostics; the answering pipeline numbers
// snippets through its own citation ledger instead.
func FormatResults(results []Result) string {
	if len(results) == 0 {
		return ""
	}

	formatted := make([]string, 0, len(results))
	for i, r := range results {
		title := r.Title
		if title == "" {
			title = "No title"
		}
		u := r.URL
		if u == "" {
			u = "No URL"
		}
		body := r.Snippet
		if body == "" {
			body = "No description"
		}
		formatted = append(formatted, fmt.Sprintf("[%d] %s\nURL: %s\n%s\n", i+1, title, u, body))
	}

	return strings.Join(formatted, "\n---\n\n")
}
