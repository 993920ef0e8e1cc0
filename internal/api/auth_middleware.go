package api

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// AuthConfig contains authentication configuration for the read endpoints
type AuthConfig struct {
	Enabled    bool     `mapstructure:"enabled"`
	HeaderName string   `mapstructure:"header_name"`
	KeyHashes  []string `mapstructure:"key_hashes"` // hex SHA-256 of accepted keys
}

// DefaultAuthConfig returns the default auth configuration
func DefaultAuthConfig() *AuthConfig {
	return &AuthConfig{
		Enabled:    false,
		HeaderName: "X-API-Key",
	}
}

// HashAPIKey creates a SHA-256 hash of an API key
func HashAPIKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

// KeySet validates API keys against configured hashes
type KeySet struct {
	hashes []string
}

// NewKeySet builds a KeySet from hex-encoded SHA-256 hashes
func NewKeySet(hashes []string) *KeySet {
	ks := &KeySet{}
	for _, h := range hashes {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			ks.hashes = append(ks.hashes, h)
		}
	}
	return ks
}

// Valid reports whether key hashes to one of the configured values
func (k *KeySet) Valid(key string) bool {
	if key == "" {
		return false
	}
	got := []byte(HashAPIKey(key))
	for _, h := range k.hashes {
		if subtle.ConstantTimeCompare(got, []byte(h)) == 1 {
			return true
		}
	}
	return false
}

// Len returns the number of configured keys
func (k *KeySet) Len() int {
	return len(k.hashes)
}

func extractAPIKey(c *gin.Context, header string) string {
	if key := c.GetHeader(header); key != "" {
		return key
	}
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

// AuthMiddleware creates a Gin middleware that validates API keys.
// When auth is disabled it allows all requests through.
func AuthMiddleware(config *AuthConfig) gin.HandlerFunc {
	if config == nil {
		config = DefaultAuthConfig()
	}
	header := config.HeaderName
	if header == "" {
		header = "X-API-Key"
	}
	keys := NewKeySet(config.KeyHashes)

	return func(c *gin.Context) {
		if !config.Enabled {
			c.Next()
			return
		}

		apiKey := extractAPIKey(c, header)
		if apiKey == "" {
			log.Debug().
				Str("ip", c.ClientIP()).
				Str("path", c.Request.URL.Path).
				Msg("Auth: No API key provided")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "API key required",
				"message": "Provide API key via " + header + " header or Authorization: Bearer <key>",
			})
			return
		}

		if !keys.Valid(apiKey) {
			log.Warn().
				Str("ip", c.ClientIP()).
				Str("path", c.Request.URL.Path).
				Msg("Auth: Invalid API key")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid API key",
			})
			return
		}

		c.Next()
	}
}
