package search

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/moneymind/internal/metrics"
)

const (
	cacheKeyPrefix  = "moneymind:search:"
	DefaultCacheTTL = 15 * time.Minute
)

// Cache stores search results in Redis. A nil *Cache is valid and always misses.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

type cacheEntry struct {
	Query    string    `json:"query"`
	Results  []Result  `json:"results"`
	CachedAt time.Time `json:"cached_at"`
}

// NewCache creates a Redis-backed result cache
// If client is nil, returns nil (optional Redis support)
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if client == nil {
		return nil
	}
	if ttl == 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{client: client, ttl: ttl}
}

// Get returns cached results for an engine and query
func (c *Cache) Get(ctx context.Context, engine, query string) ([]Result, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}

	key := buildKey(engine, query)

	cacheCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	cached, err := c.client.Get(cacheCtx, key).Result()
	if err != nil {
		if err != redis.Nil {
			log.Debug().Err(err).Str("key", key).Msg("Redis get error - treating as cache miss")
		}
		metrics.RecordCacheLookup("search", false)
		return nil, false
	}

	var entry cacheEntry
	if err := json.Unmarshal([]byte(cached), &entry); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to unmarshal cached search results")
		metrics.RecordCacheLookup("search", false)
		return nil, false
	}

	metrics.RecordCacheLookup("search", true)
	log.Debug().Str("engine", engine).Str("query", query).Time("cached_at", entry.CachedAt).Msg("Cache hit for search")
	return entry.Results, true
}

// Set stores results with the configured TTL
func (c *Cache) Set(ctx context.Context, engine, query string, results []Result) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("cache not initialized")
	}

	data, err := json.Marshal(cacheEntry{Query: query, Results: results, CachedAt: time.Now()})
	if err != nil {
		return fmt.Errorf("failed to marshal search results: %w", err)
	}

	cacheCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	key := buildKey(engine, query)
	if err := c.client.Set(cacheCtx, key, data, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to cache search results")
		return err
	}
	return nil
}

// Health checks if the Redis connection is healthy
func (c *Cache) Health(ctx context.Context) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("cache not initialized")
	}

	cacheCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := c.client.Ping(cacheCtx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

// buildKey hashes the normalized query so keys stay short and safe
func buildKey(engine, query string) string {
	sum := sha1.Sum([]byte(strings.ToLower(strings.TrimSpace(query))))
	return cacheKeyPrefix + engine + ":" + hex.EncodeToString(sum[:])
}
