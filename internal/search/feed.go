package search

import (
	"context"
	"encoding/json"
	"strings"
	"unicode"
)

// Feed engines, also used as metric labels
const (
	EngineGoogleNews = "google_news"
	EngineMarkets    = "google_finance_markets"
)

// TrendingQuery selects market headlines instead of a news search
const TrendingQuery = "trending"

// FeedCategories are searched as "finance <category>" in the default region
var FeedCategories = []string{"investments", "market & economy", "startups", "business & fintech"}

// FeedOptions narrows a news feed to a region. Empty fields mean India and English.
type FeedOptions struct {
	Country  string
	Language string
}

func (o FeedOptions) withDefaults() FeedOptions {
	if o.Country == "" {
		o.Country = "in"
	}
	if o.Language == "" {
		o.Language = "en"
	}
	return o
}

// Article is a news item as served by the news API
type Article struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	URL         string        `json:"url"`
	ImageURL    string        `json:"urlToImage"`
	PublishedAt string        `json:"publishedAt"`
	Source      ArticleSource `json:"source"`
	Category    string        `json:"category"`
}

// ArticleSource names the publisher
type ArticleSource struct {
	Name string `json:"name"`
}

// Headlines returns news for a topic. "trending" gives market headlines and
// the known categories are searched as finance topics.
func (c *Client) Headlines(ctx context.Context, query string, opts FeedOptions) ([]Article, error) {
	q := strings.TrimSpace(query)
	lower := strings.ToLower(q)
	if lower == TrendingQuery {
		return c.Trending(ctx)
	}
	for _, cat := range FeedCategories {
		if lower == cat {
			return c.googleNews(ctx, "finance "+q, FeedOptions{})
		}
	}
	return c.googleNews(ctx, q, opts)
}

func (c *Client) googleNews(ctx context.Context, query string, opts FeedOptions) ([]Article, error) {
	opts = opts.withDefaults()
	body, err := c.call(ctx, EngineGoogleNews, query, map[string]string{
		"engine": EngineGoogleNews,
		"q":      query,
		"gl":     opts.Country,
		"hl":     opts.Language,
	})
	if err != nil {
		return nil, err
	}

	category := capitalize(query)
	out := make([]Article, 0, len(body.NewsResults))
	for _, n := range body.NewsResults {
		out = append(out, Article{
			Title:       orDefault(n.Title, "No Title"),
			Description: n.Snippet,
			URL:         n.Link,
			ImageURL:    n.Thumbnail,
			PublishedAt: n.Date,
			Source:      ArticleSource{Name: orDefault(n.Source.Name, "Unknown Source")},
			Category:    category,
		})
	}
	return out, nil
}

// Trending returns headlines from the finance markets page. Those items carry
// their text in the snippet.
func (c *Client) Trending(ctx context.Context) ([]Article, error) {
	body, err := c.markets(ctx, TrendingQuery)
	if err != nil {
		return nil, err
	}

	out := make([]Article, 0, len(body.NewsResults))
	for _, n := range body.NewsResults {
		out = append(out, Article{
			Title:       orDefault(n.Snippet, "No Title"),
			Description: n.Snippet,
			URL:         n.Link,
			ImageURL:    n.Thumbnail,
			PublishedAt: n.Date,
			Source:      ArticleSource{Name: orDefault(n.Source.Name, "Unknown Source")},
			Category:    "Trending",
		})
	}
	return out, nil
}

// Markets returns the provider's market trend blocks unchanged
func (c *Client) Markets(ctx context.Context) ([]json.RawMessage, error) {
	body, err := c.markets(ctx, "markets")
	if err != nil {
		return nil, err
	}
	if body.MarketTrends == nil {
		return []json.RawMessage{}, nil
	}
	return body.MarketTrends, nil
}

func (c *Client) markets(ctx context.Context, label string) (*response, error) {
	return c.call(ctx, EngineMarkets, label, map[string]string{
		"engine": EngineMarkets,
		"trend":  "indexes",
	})
}

// capitalize upper-cases the first letter and lower-cases the rest
func capitalize(s string) string {
	r := []rune(strings.ToLower(s))
	if len(r) > 0 {
		r[0] = unicode.ToUpper(r[0])
	}
	return string(r)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
