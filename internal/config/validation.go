package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Configuration validation failed with %d error(s):\n\n", len(ve)))
	for i, err := range ve {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	sb.WriteString("\nPlease fix the above errors and try again.\n")
	return sb.String()
}

// Has reports whether field failed validation
func (ve ValidationErrors) Has(field string) bool {
	for _, e := range ve {
		if e.Field == field {
			return true
		}
	}
	return false
}

var (
	validEnvironments = []string{"development", "staging", "production"}
	validLogFormats   = []string{"json", "console"}
	validBackends     = []string{"file", "memory", "redis", "postgres"}
	validVaultAuth    = []string{"token", "approle", "kubernetes"}
)

// Validate performs configuration validation. Connection settings are only
// checked for the services that are actually enabled.
func (c *Config) Validate() error {
	var errs ValidationErrors

	errs = append(errs, c.validateApp()...)
	errs = append(errs, c.validateLLM()...)
	errs = append(errs, c.validateSearch()...)
	errs = append(errs, c.validateStore()...)
	errs = append(errs, c.validateChannels()...)
	errs = append(errs, c.validateAPI()...)
	errs = append(errs, c.validateVault()...)
	errs = append(errs, c.validateEnvironmentRequirements()...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func oneOf(value string, allowed []string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}

func validPort(p int) bool {
	return p >= 1 && p <= 65535
}

func (c *Config) validateApp() ValidationErrors {
	var errs ValidationErrors

	if c.App.Name == "" {
		errs = append(errs, ValidationError{Field: "app.name", Message: "Application name is required"})
	}
	if !oneOf(c.App.Environment, validEnvironments) {
		errs = append(errs, ValidationError{
			Field:   "app.environment",
			Message: fmt.Sprintf("Invalid environment '%s'. Must be one of: %v", c.App.Environment, validEnvironments),
		})
	}
	if c.App.LogLevel == "" {
		errs = append(errs, ValidationError{Field: "app.log_level", Message: "Log level is required (debug, info, warn, error)"})
	}
	if !oneOf(c.App.LogFormat, validLogFormats) {
		errs = append(errs, ValidationError{
			Field:   "app.log_format",
			Message: fmt.Sprintf("Invalid log format '%s'. Must be one of: %v", c.App.LogFormat, validLogFormats),
		})
	}
	if c.App.TurnTimeout < 0 {
		errs = append(errs, ValidationError{Field: "app.turn_timeout", Message: "Turn timeout cannot be negative"})
	}

	return errs
}

func (c *Config) validateLLM() ValidationErrors {
	var errs ValidationErrors

	if c.LLM.BaseURL == "" {
		errs = append(errs, ValidationError{Field: "llm.base_url", Message: "LLM base URL is required"})
	}
	if c.LLM.Model == "" {
		errs = append(errs, ValidationError{Field: "llm.model", Message: "LLM model is required"})
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, ValidationError{
			Field:   "llm.temperature",
			Message: fmt.Sprintf("Invalid temperature %.2f. Must be between 0 and 2", c.LLM.Temperature),
		})
	}
	if c.LLM.MaxTokens < 1 {
		errs = append(errs, ValidationError{Field: "llm.max_tokens", Message: "Max tokens must be at least 1"})
	}
	if c.LLM.Timeout < 1 {
		errs = append(errs, ValidationError{Field: "llm.timeout", Message: "LLM timeout must be positive (ms)"})
	}
	if c.LLM.MaxToolCalls < 1 {
		errs = append(errs, ValidationError{Field: "llm.max_tool_calls", Message: "At least one tool call must be allowed"})
	}
	if c.LLM.MaxRetries < 0 || c.LLM.MaxRetries > 10 {
		errs = append(errs, ValidationError{Field: "llm.max_retries", Message: "Max retries must be between 0 and 10"})
	}

	return errs
}

func (c *Config) validateSearch() ValidationErrors {
	var errs ValidationErrors

	if c.Search.BaseURL == "" {
		errs = append(errs, ValidationError{Field: "search.base_url", Message: "Search base URL is required"})
	}
	if c.Search.RequestsPerSecond < 0 {
		errs = append(errs, ValidationError{Field: "search.requests_per_second", Message: "Rate limit cannot be negative"})
	}
	if c.Search.CacheEnabled && c.Search.CacheTTL < 1 {
		errs = append(errs, ValidationError{Field: "search.cache_ttl", Message: "Cache TTL must be positive when the cache is enabled"})
	}
	if c.Search.CacheEnabled {
		errs = append(errs, c.validateRedis()...)
	}

	return errs
}

func (c *Config) validateStore() ValidationErrors {
	var errs ValidationErrors

	if !oneOf(c.Store.Backend, validBackends) {
		errs = append(errs, ValidationError{
			Field:   "store.backend",
			Message: fmt.Sprintf("Invalid store backend '%s'. Must be one of: %v", c.Store.Backend, validBackends),
		})
		return errs
	}

	switch c.Store.Backend {
	case "file":
		if c.Store.DataDir == "" {
			errs = append(errs, ValidationError{Field: "store.data_dir", Message: "Data directory is required for the file store"})
		}
	case "redis":
		if !c.Search.CacheEnabled {
			errs = append(errs, c.validateRedis()...)
		}
	case "postgres":
		errs = append(errs, c.validateDatabase()...)
	}

	return errs
}

func (c *Config) validateDatabase() ValidationErrors {
	var errs ValidationErrors

	if c.Database.Host == "" {
		errs = append(errs, ValidationError{Field: "database.host", Message: "Database host is required"})
	}
	if !validPort(c.Database.Port) {
		errs = append(errs, ValidationError{
			Field:   "database.port",
			Message: fmt.Sprintf("Invalid port %d. Must be between 1-65535", c.Database.Port),
		})
	}
	if c.Database.User == "" {
		errs = append(errs, ValidationError{Field: "database.user", Message: "Database user is required"})
	}
	if c.Database.Database == "" {
		errs = append(errs, ValidationError{Field: "database.database", Message: "Database name is required"})
	}
	if c.Database.Password == "" && c.App.Environment != "development" {
		errs = append(errs, ValidationError{
			Field:   "database.password",
			Message: "Database password is required in non-development environments",
		})
	}
	if c.Database.PoolSize < 1 {
		errs = append(errs, ValidationError{Field: "database.pool_size", Message: "Database pool size must be at least 1"})
	}

	return errs
}

func (c *Config) validateRedis() ValidationErrors {
	var errs ValidationErrors

	if c.Redis.Host == "" {
		errs = append(errs, ValidationError{Field: "redis.host", Message: "Redis host is required"})
	}
	if !validPort(c.Redis.Port) {
		errs = append(errs, ValidationError{
			Field:   "redis.port",
			Message: fmt.Sprintf("Invalid port %d. Must be between 1-65535", c.Redis.Port),
		})
	}

	return errs
}

func (c *Config) validateChannels() ValidationErrors {
	var errs ValidationErrors

	if c.NATS.Enabled && c.NATS.URL == "" {
		errs = append(errs, ValidationError{Field: "nats.url", Message: "NATS URL is required when events are enabled"})
	}
	if c.Telegram.Enabled && c.Telegram.Token == "" {
		errs = append(errs, ValidationError{Field: "telegram.token", Message: "Telegram bot token is required when the bot is enabled"})
	}
	if c.Twilio.Enabled {
		if c.Twilio.AccountSID == "" {
			errs = append(errs, ValidationError{Field: "twilio.account_sid", Message: "Twilio account SID is required when WhatsApp is enabled"})
		}
		if c.Twilio.AuthToken == "" {
			errs = append(errs, ValidationError{Field: "twilio.auth_token", Message: "Twilio auth token is required when WhatsApp is enabled"})
		}
		if c.Twilio.From == "" {
			errs = append(errs, ValidationError{Field: "twilio.from", Message: "Twilio sender number is required when WhatsApp is enabled"})
		}
	}

	return errs
}

func (c *Config) validateAPI() ValidationErrors {
	var errs ValidationErrors

	if c.API.Enabled && !validPort(c.API.Port) {
		errs = append(errs, ValidationError{
			Field:   "api.port",
			Message: fmt.Sprintf("Invalid port %d. Must be between 1-65535", c.API.Port),
		})
	}
	if c.API.Auth.Enabled && len(c.API.Auth.KeyHashes) == 0 {
		errs = append(errs, ValidationError{Field: "api.auth.key_hashes", Message: "At least one API key hash is required when auth is enabled"})
	}
	if c.Monitoring.EnableMetrics && !validPort(c.Monitoring.PrometheusPort) {
		errs = append(errs, ValidationError{
			Field:   "monitoring.prometheus_port",
			Message: fmt.Sprintf("Invalid port %d. Must be between 1-65535", c.Monitoring.PrometheusPort),
		})
	}

	return errs
}

func (c *Config) validateVault() ValidationErrors {
	var errs ValidationErrors

	if !c.Vault.Enabled {
		return errs
	}
	if c.Vault.Address == "" {
		errs = append(errs, ValidationError{Field: "vault.address", Message: "Vault address is required when Vault is enabled"})
	}
	if !oneOf(c.Vault.AuthMethod, validVaultAuth) {
		errs = append(errs, ValidationError{
			Field:   "vault.auth_method",
			Message: fmt.Sprintf("Unsupported Vault auth method '%s'. Must be one of: %v", c.Vault.AuthMethod, validVaultAuth),
		})
	}

	return errs
}

// validateEnvironmentRequirements applies production-only rules. Secrets may
// still arrive later from Vault, so they are only checked when Vault is off.
func (c *Config) validateEnvironmentRequirements() ValidationErrors {
	var errs ValidationErrors

	if !c.App.IsProduction() {
		return errs
	}

	if c.Store.Backend == "memory" {
		errs = append(errs, ValidationError{Field: "store.backend", Message: "The memory store loses all users on restart and cannot be used in production"})
	}
	if c.Store.Backend == "postgres" && c.Database.SSLMode == "disable" {
		errs = append(errs, ValidationError{Field: "database.ssl_mode", Message: "SSL must be enabled for database connections in production"})
	}
	if c.API.Enabled && containsString(c.API.AllowedOrigins, "*") {
		errs = append(errs, ValidationError{Field: "api.allowed_origins", Message: "Wildcard CORS origins are not allowed in production"})
	}

	if c.Vault.Enabled {
		return errs
	}
	if isPlaceholderValue(c.LLM.APIKey) {
		errs = append(errs, ValidationError{Field: "llm.api_key", Message: "A real LLM API key is required in production"})
	}
	if isPlaceholderValue(c.Search.APIKey) {
		errs = append(errs, ValidationError{Field: "search.api_key", Message: "A real search API key is required in production"})
	}

	return errs
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// isPlaceholderValue reports empty values and obvious template leftovers
func isPlaceholderValue(value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return true
	}
	for _, p := range []string{"changeme", "change_me", "your_", "your-", "placeholder", "xxx", "<"} {
		if strings.Contains(v, p) {
			return true
		}
	}
	return false
}
