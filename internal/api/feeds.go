package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ajitpratap0/moneymind/internal/investments"
	"github.com/ajitpratap0/moneymind/internal/search"
)

const (
	defaultNewsLimit = 10
	maxNewsLimit     = 100
)

// NewsFeed serves the app's news tab
type NewsFeed interface {
	Headlines(ctx context.Context, query string, opts search.FeedOptions) ([]search.Article, error)
	Markets(ctx context.Context) ([]json.RawMessage, error)
}

// InvestmentAssistant serves the product conversation in the app
type InvestmentAssistant interface {
	Answer(ctx context.Context, q investments.Query) investments.Answer
	Explain(ctx context.Context, product investments.Product, userID string) investments.Explanation
	Compare(ctx context.Context, products []investments.Product) investments.Comparison
}

var (
	_ NewsFeed            = (*search.Client)(nil)
	_ InvestmentAssistant = (*investments.Assistant)(nil)
)

// NewsSearchRequest is the body of POST /api/news/search
type NewsSearchRequest struct {
	Query    string `json:"query"`
	Country  string `json:"country"`
	Language string `json:"language"`
	Limit    *int   `json:"limit"`
}

// ExplainProductRequest is the body of POST /api/investments/assistant/explain-product
type ExplainProductRequest struct {
	Product investments.Product `json:"product"`
	UserID  string              `json:"user_id"`
}

// CompareProductsRequest is the body of POST /api/investments/assistant/compare-products
type CompareProductsRequest struct {
	Products []investments.Product `json:"products"`
}

func (s *Server) handleTrendingNews(c *gin.Context) {
	s.serveHeadlines(c, search.TrendingQuery)
}

func (s *Server) handleCategoryNews(c *gin.Context) {
	s.serveHeadlines(c, c.Param("category"))
}

func (s *Server) serveHeadlines(c *gin.Context, query string) {
	limit, ok := parseLimit(c.Query("limit"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "limit must be between 1 and 100"})
		return
	}
	opts := search.FeedOptions{Country: c.Query("country"), Language: c.Query("language")}
	s.writeHeadlines(c, query, opts, limit)
}

func (s *Server) handleSearchNews(c *gin.Context) {
	var req NewsSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid request body"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "query is required"})
		return
	}
	limit := defaultNewsLimit
	if req.Limit != nil {
		if *req.Limit < 1 || *req.Limit > maxNewsLimit {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "limit must be between 1 and 100"})
			return
		}
		limit = *req.Limit
	}
	s.writeHeadlines(c, req.Query, search.FeedOptions{Country: req.Country, Language: req.Language}, limit)
}

func (s *Server) writeHeadlines(c *gin.Context, query string, opts search.FeedOptions, limit int) {
	articles, err := s.news.Headlines(c.Request.Context(), query, opts)
	if err != nil {
		s.log.Error().Err(err).Str("query", query).Msg("Failed to fetch news")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	if len(articles) > limit {
		articles = articles[:limit]
	}
	c.JSON(http.StatusOK, articles)
}

func (s *Server) handleMarkets(c *gin.Context) {
	trends, err := s.news.Markets(c.Request.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to fetch market data")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, trends)
}

// parseLimit reads ?limit, defaulting to 10
func parseLimit(raw string) (int, bool) {
	if raw == "" {
		return defaultNewsLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxNewsLimit {
		return 0, false
	}
	return n, true
}

func (s *Server) handleAssistantQuery(c *gin.Context) {
	var q investments.Query
	if err := c.ShouldBindJSON(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid request body"})
		return
	}
	if strings.TrimSpace(q.Question) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "question is required"})
		return
	}

	ctx, cancel := s.turnContext(c.Request.Context())
	defer cancel()
	c.JSON(http.StatusOK, s.investments.Answer(ctx, q))
}

func (s *Server) handleExplainProduct(c *gin.Context) {
	var req ExplainProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid request body"})
		return
	}
	if len(req.Product) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Product data is required"})
		return
	}

	ctx, cancel := s.turnContext(c.Request.Context())
	defer cancel()
	c.JSON(http.StatusOK, s.investments.Explain(ctx, req.Product, req.UserID))
}

func (s *Server) handleCompareProducts(c *gin.Context) {
	var req CompareProductsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid request body"})
		return
	}
	if len(req.Products) < 2 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "At least two products are required for comparison"})
		return
	}

	ctx, cancel := s.turnContext(c.Request.Context())
	defer cancel()
	c.JSON(http.StatusOK, s.investments.Compare(ctx, req.Products))
}
