package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"NewsDesk/internal/domain"
	"NewsDesk/internal/ports"
	"NewsDesk/internal/ratelimit"
)

const defaultEndpoint = "https://api.search.brave.com/res/v1/web/search"

// Config describes how to reach a Brave-compatible web search API.
type Config struct {
	Endpoint   string
	APIKey     string
	SafeSearch string
}

// Client implements ports.SearchProvider over the Brave web search API.
type Client struct {
	endpoint   string
	apiKey     string
	safeSearch string
	httpClient *http.Client
}

var _ ports.SearchProvider = (*Client)(nil)

// NewClient builds a search client; nil httpClient gets a 15 second timeout.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	safe := cfg.SafeSearch
	if safe == "" {
		safe = "moderate"
	}
	return &Client{
		endpoint:   endpoint,
		apiKey:     cfg.APIKey,
		safeSearch: safe,
		httpClient: httpClient,
	}
}

type braveResponse struct {
	Web struct {
		Results []braveResult `json:"results"`
	} `json:"web"`
}

type braveResult struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	Description   string `json:"description"`
	Age           string `json:"age"`
	PageAge       string `json:"page_age"`
	PublishedDate string `json:"published_date"`
	MetaURL       struct {
		Hostname string `json:"hostname"`
	} `json:"meta_url"`
}

// Search issues one GET request. A 429 response is reported as ratelimit.ErrRateLimited.
func (c *Client) Search(ctx context.Context, q domain.SearchQuery) ([]domain.SearchResult, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("search client misconfigured: missing api key")
	}

	params := url.Values{}
	params.Set("q", q.Text)
	if q.Count > 0 {
		params.Set("count", strconv.Itoa(q.Count))
	}
	if q.Freshness != "" {
		params.Set("freshness", q.Freshness)
	}
	if q.Language != "" {
		params.Set("search_lang", q.Language)
	}
	if q.Country != "" {
		params.Set("country", q.Country)
	}
	params.Set("safesearch", c.safeSearch)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("search api %s: %w", resp.Status, ratelimit.ErrRateLimited)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("search api error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var decoded braveResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	results := make([]domain.SearchResult, 0, len(decoded.Web.Results))
	for _, r := range decoded.Web.Results {
		age := r.Age
		if age == "" {
			age = r.PageAge
		}
		results = append(results, domain.SearchResult{
			Title:         r.Title,
			URL:           r.URL,
			Description:   r.Description,
			Age:           age,
			PublishedDate: r.PublishedDate,
			Domain:        strings.TrimPrefix(r.MetaURL.Hostname, "www."),
		})
	}
	return results, nil
}
