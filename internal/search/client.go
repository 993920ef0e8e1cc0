// Package search queries a SerpApi-compatible search provider for web
// pages, videos and news, focused on India.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/ajitpratap0/moneymind/internal/breaker"
	"github.com/ajitpratap0/moneymind/internal/metrics"
)

// Engines, also used as cache namespaces and metric labels
const (
	EngineGoogle  = "google"
	EngineYouTube = "youtube"
	EngineNews    = "news"
)

// Result counts per engine
const (
	GoogleResults  = 3
	YouTubeResults = 2
	NewsResults    = 5
)

const DefaultBaseURL = "https://serpapi.com"

// ErrNotConfigured is returned when no API key is set
var ErrNotConfigured = errors.New("search API key not configured")

// ProviderError is an error reported in the provider's response body
type ProviderError struct {
	Message string
}

func (e *ProviderError) Error() string {
	return "search provider error: " + e.Message
}

// Result is one search hit. Fields not produced by an engine are empty.
type Result struct {
	Title         string `json:"title"`
	Link          string `json:"link"`
	Snippet       string `json:"snippet,omitempty"`
	Source        string `json:"source,omitempty"`
	Date          string `json:"date,omitempty"`
	Channel       string `json:"channel,omitempty"`
	PublishedDate string `json:"published_date,omitempty"`
}

// Searcher is the capability agents depend on
type Searcher interface {
	Search(ctx context.Context, query string) ([]Result, error)
	YouTube(ctx context.Context, query string) ([]Result, error)
	News(ctx context.Context, query string) ([]Result, error)
}

// Config configures the search client
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// RequestsPerSecond limits outbound calls; 0 disables limiting
	RequestsPerSecond float64
	Burst             int
	Cache             *Cache
	Breakers          *breaker.Manager
}

// Client is a SerpApi client
type Client struct {
	http     *resty.Client
	apiKey   string
	limiter  *rate.Limiter
	cache    *Cache
	breakers *breaker.Manager
	log      zerolog.Logger
}

var _ Searcher = (*Client)(nil)

// NewClient creates a search client
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimRight(cfg.BaseURL, "/"))
	client.SetTimeout(cfg.Timeout)
	client.SetHeader("Accept", "application/json")

	return &Client{
		http:     client,
		apiKey:   cfg.APIKey,
		limiter:  limiter,
		cache:    cfg.Cache,
		breakers: cfg.Breakers,
		log:      log.With().Str("component", "search").Logger(),
	}
}

// Search returns organic Google results
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	params := map[string]string{
		"q":   query,
		"gl":  "in",
		"hl":  "en",
		"num": strconv.Itoa(GoogleResults),
	}
	return c.run(ctx, EngineGoogle, query, params, func(r *response) []Result {
		out := make([]Result, 0, GoogleResults)
		for _, o := range limit(r.OrganicResults, GoogleResults) {
			out = append(out, Result{Title: o.Title, Link: o.Link, Snippet: o.Snippet})
		}
		return out
	})
}

// YouTube returns video results
func (c *Client) YouTube(ctx context.Context, query string) ([]Result, error) {
	params := map[string]string{
		"engine":       "youtube",
		"search_query": query,
		"gl":           "in",
	}
	return c.run(ctx, EngineYouTube, query, params, func(r *response) []Result {
		out := make([]Result, 0, YouTubeResults)
		for _, v := range limit(r.VideoResults, YouTubeResults) {
			out = append(out, Result{Title: v.Title, Link: v.Link, Channel: v.Channel.Name, PublishedDate: v.PublishedDate})
		}
		return out
	})
}

// News returns Google News results. Queries without "india" get it appended.
func (c *Client) News(ctx context.Context, query string) ([]Result, error) {
	q := query
	if !strings.Contains(strings.ToLower(q), "india") {
		q += " India"
	}
	params := map[string]string{
		"q":   q,
		"tbm": "nws",
		"gl":  "in",
		"hl":  "en",
		"num": strconv.Itoa(NewsResults),
	}
	return c.run(ctx, EngineNews, q, params, func(r *response) []Result {
		out := make([]Result, 0, NewsResults)
		for _, n := range limit(r.NewsResults, NewsResults) {
			out = append(out, Result{Title: n.Title, Link: n.Link, Snippet: n.Snippet, Source: n.Source.Name, Date: n.Date})
		}
		return out
	})
}

func (c *Client) run(ctx context.Context, engine, query string, params map[string]string, extract func(*response) []Result) ([]Result, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}

	if cached, ok := c.cache.Get(ctx, engine, query); ok {
		return cached, nil
	}

	body, err := c.call(ctx, engine, query, params)
	if err != nil {
		return nil, err
	}
	results := extract(body)

	c.log.Info().Str("engine", engine).Str("query", query).Int("results", len(results)).Msg("Search successful")
	_ = c.cache.Set(ctx, engine, query, results)
	return results, nil
}

// call sends one rate-limited, circuit-broken request to the provider
func (c *Client) call(ctx context.Context, engine, query string, params map[string]string) (*response, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("search rate limit wait: %w", err)
		}
	}

	start := time.Now()
	body, err := breaker.Do(c.breakers, breaker.ServiceSearch, func() (*response, error) {
		return c.fetch(ctx, params)
	})
	metrics.RecordSearchRequest(engine, time.Since(start), err)

	if err != nil {
		c.log.Error().Err(err).Str("engine", engine).Str("query", query).Msg("Search failed")
		return nil, err
	}
	return body, nil
}

func (c *Client) fetch(ctx context.Context, params map[string]string) (*response, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetQueryParam("api_key", c.apiKey).
		Get("/search.json")
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}

	var body response
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		if resp.IsError() {
			return nil, fmt.Errorf("search API error %d: %s", resp.StatusCode(), resp.String())
		}
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}
	if body.Error != "" {
		return nil, &ProviderError{Message: body.Error}
	}
	if resp.IsError() {
		return nil, fmt.Errorf("search API error %d", resp.StatusCode())
	}
	return &body, nil
}

// response is the subset of the provider payload we read
type response struct {
	Error          string `json:"error"`
	OrganicResults []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic_results"`
	VideoResults []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Channel struct {
			Name string `json:"name"`
		} `json:"channel"`
		PublishedDate string `json:"published_date"`
	} `json:"video_results"`
	NewsResults []struct {
		Title     string     `json:"title"`
		Link      string     `json:"link"`
		Snippet   string     `json:"snippet"`
		Source    namedField `json:"source"`
		Date      string     `json:"date"`
		Thumbnail string     `json:"thumbnail"`
	} `json:"news_results"`
	MarketTrends []json.RawMessage `json:"market_trends"`
}

// namedField accepts either "name" or {"name": "..."}
type namedField struct {
	Name string
}

func (n *namedField) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &n.Name)
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return nil
	}
	n.Name = obj.Name
	return nil
}

func limit[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}
