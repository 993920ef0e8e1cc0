package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. MONEYMIND_LLM_API_KEY
const EnvPrefix = "MONEYMIND"

// Config holds all application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Search     SearchConfig     `mapstructure:"search"`
	Store      StoreConfig      `mapstructure:"store"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	NATS       NATSConfig       `mapstructure:"nats"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	Twilio     TwilioConfig     `mapstructure:"twilio"`
	API        APIConfig        `mapstructure:"api"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Vault      VaultConfig      `mapstructure:"vault"`
}

// AppConfig contains application-level settings
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"` // development, staging, production
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"` // json or console
	TurnTimeout int    `mapstructure:"turn_timeout"` // ms
}

// LLMConfig contains settings for the OpenAI-compatible chat endpoint
type LLMConfig struct {
	BaseURL        string   `mapstructure:"base_url"`
	APIKey         string   `mapstructure:"api_key"`
	Model          string   `mapstructure:"model"`
	FallbackModels []string `mapstructure:"fallback_models"`
	Temperature    float64  `mapstructure:"temperature"`
	MaxTokens      int      `mapstructure:"max_tokens"`
	Timeout        int      `mapstructure:"timeout"`       // ms
	RetryBackoff   int      `mapstructure:"retry_backoff"` // ms
	MaxToolCalls   int      `mapstructure:"max_tool_calls"`
	MaxRetries     int      `mapstructure:"max_retries"`
}

// SearchConfig contains SerpApi settings
type SearchConfig struct {
	BaseURL           string  `mapstructure:"base_url"`
	APIKey            string  `mapstructure:"api_key"`
	Timeout           int     `mapstructure:"timeout"` // ms
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
	CacheEnabled      bool    `mapstructure:"cache_enabled"`
	CacheTTL          int     `mapstructure:"cache_ttl"` // seconds
}

// StoreConfig selects the user record backend
type StoreConfig struct {
	Backend string `mapstructure:"backend"` // file, memory, redis, postgres
	DataDir string `mapstructure:"data_dir"`
}

// DatabaseConfig contains PostgreSQL settings
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
	PoolSize int    `mapstructure:"pool_size"`
	Migrate  bool   `mapstructure:"migrate"` // apply pending migrations on startup
}

// RedisConfig contains Redis settings
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// NATSConfig contains turn event settings
type NATSConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Prefix  string `mapstructure:"prefix"`
}

// TelegramConfig contains bot settings
type TelegramConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Token          string `mapstructure:"token"`
	Debug          bool   `mapstructure:"debug"`
	PollingTimeout int    `mapstructure:"polling_timeout"` // seconds
}

// TwilioConfig contains WhatsApp delivery settings
type TwilioConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	BaseURL    string `mapstructure:"base_url"`
	AccountSID string `mapstructure:"account_sid"`
	AuthToken  string `mapstructure:"auth_token"`
	From       string `mapstructure:"from"`
	Timeout    int    `mapstructure:"timeout"` // ms
}

// APIConfig contains REST API settings
type APIConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	AppLink        string        `mapstructure:"app_link"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	Auth           APIAuthConfig `mapstructure:"auth"`
}

// APIAuthConfig guards the record lookup endpoint
type APIAuthConfig struct {
	Enabled    bool     `mapstructure:"enabled"`
	HeaderName string   `mapstructure:"header_name"`
	KeyHashes  []string `mapstructure:"key_hashes"`
}

// MonitoringConfig contains monitoring settings
type MonitoringConfig struct {
	PrometheusPort int  `mapstructure:"prometheus_port"`
	EnableMetrics  bool `mapstructure:"enable_metrics"`
}

// Load reads .env (if present), then configuration from file and environment
// variables.
func Load(configPath string) (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadDotEnv loads .env without overriding variables already set. A missing
// file is not an error.
func loadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !isNotExist(err) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Keys without a default are invisible to AutomaticEnv during Unmarshal,
	// so every field gets one, empty secrets included.
	v.SetDefault("app.name", "MoneyMind")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "json")
	v.SetDefault("app.turn_timeout", 120000)

	v.SetDefault("llm.base_url", "https://generativelanguage.googleapis.com/v1beta/openai")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "gemini-2.0-flash")
	v.SetDefault("llm.fallback_models", []string{})
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.timeout", 60000)
	v.SetDefault("llm.retry_backoff", 1000)
	v.SetDefault("llm.max_tool_calls", 5)
	v.SetDefault("llm.max_retries", 2)

	v.SetDefault("search.base_url", "https://serpapi.com")
	v.SetDefault("search.api_key", "")
	v.SetDefault("search.timeout", 15000)
	v.SetDefault("search.requests_per_second", 2.0)
	v.SetDefault("search.burst", 4)
	v.SetDefault("search.cache_enabled", false)
	v.SetDefault("search.cache_ttl", 900)

	v.SetDefault("store.backend", "file")
	v.SetDefault("store.data_dir", "user_data")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.database", "moneymind")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.pool_size", 10)
	v.SetDefault("database.migrate", true)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.prefix", "moneymind.")

	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.debug", false)
	v.SetDefault("telegram.polling_timeout", 60)

	v.SetDefault("twilio.enabled", false)
	v.SetDefault("twilio.base_url", "https://api.twilio.com")
	v.SetDefault("twilio.account_sid", "")
	v.SetDefault("twilio.auth_token", "")
	v.SetDefault("twilio.from", "")
	v.SetDefault("twilio.timeout", 10000)

	v.SetDefault("api.enabled", true)
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8000)
	v.SetDefault("api.app_link", "https://moneymind.app")
	v.SetDefault("api.allowed_origins", []string{"*"})
	v.SetDefault("api.auth.enabled", false)
	v.SetDefault("api.auth.header_name", "X-API-Key")
	v.SetDefault("api.auth.key_hashes", []string{})

	v.SetDefault("monitoring.prometheus_port", 9100)
	v.SetDefault("monitoring.enable_metrics", true)

	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.address", "http://localhost:8200")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.namespace", "")
	v.SetDefault("vault.auth_method", "token")
	v.SetDefault("vault.mount_path", "secret")
	v.SetDefault("vault.secret_path", "moneymind/production")
	v.SetDefault("vault.cache_ttl", 300)
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *RedisConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetAPIAddr returns the API server address
func (c *APIConfig) GetAPIAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetTimeout returns the LLM timeout as time.Duration
func (c *LLMConfig) GetTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Millisecond
}

// GetRetryBackoff returns the retry backoff unit as time.Duration
func (c *LLMConfig) GetRetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoff) * time.Millisecond
}

// GetTimeout returns the search timeout as time.Duration
func (c *SearchConfig) GetTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Millisecond
}

// GetCacheTTL returns the search cache TTL as time.Duration
func (c *SearchConfig) GetCacheTTL() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// GetTimeout returns the Twilio request timeout as time.Duration
func (c *TwilioConfig) GetTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Millisecond
}

// GetTurnTimeout returns the per-turn deadline as time.Duration
func (c *AppConfig) GetTurnTimeout() time.Duration {
	return time.Duration(c.TurnTimeout) * time.Millisecond
}

// IsProduction reports whether the app runs in production
func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production"
}
