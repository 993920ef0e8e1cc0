package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	vault "github.com/hashicorp/vault/api"
	"github.com/rs/zerolog/log"
)

// VaultConfig holds Vault connection configuration
type VaultConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Address    string `mapstructure:"address"`
	Token      string `mapstructure:"token"`
	AuthMethod string `mapstructure:"auth_method"` // token, kubernetes, approle
	MountPath  string `mapstructure:"mount_path"`
	SecretPath string `mapstructure:"secret_path"` // e.g. moneymind/production
	Namespace  string `mapstructure:"namespace"`
	CacheTTL   int    `mapstructure:"cache_ttl"` // seconds
}

// VaultClient wraps the HashiCorp Vault client for KV secrets
type VaultClient struct {
	client *vault.Client
	config VaultConfig

	mu       sync.RWMutex
	cache    map[string]cachedSecret
	cacheTTL time.Duration
}

type cachedSecret struct {
	data      map[string]interface{}
	expiresAt time.Time
}

// NewVaultClient creates and authenticates a Vault client
func NewVaultClient(cfg VaultConfig) (*VaultClient, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("vault is not enabled in configuration")
	}
	if cfg.MountPath == "" {
		cfg.MountPath = "secret"
	}

	vaultCfg := vault.DefaultConfig()
	vaultCfg.Address = cfg.Address

	client, err := vault.NewClient(vaultCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}

	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}

	switch cfg.AuthMethod {
	case "token", "":
		if cfg.Token == "" {
			cfg.Token = os.Getenv("VAULT_TOKEN")
		}
		if cfg.Token == "" {
			return nil, fmt.Errorf("VAULT_TOKEN not set for token authentication")
		}
		client.SetToken(cfg.Token)
	case "kubernetes":
		if err := authenticateKubernetes(client); err != nil {
			return nil, fmt.Errorf("kubernetes authentication failed: %w", err)
		}
	case "approle":
		if err := authenticateAppRole(client); err != nil {
			return nil, fmt.Errorf("AppRole authentication failed: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported Vault auth method: %s", cfg.AuthMethod)
	}

	if strings.HasPrefix(cfg.Address, "http://") && !strings.Contains(cfg.Address, "localhost") && !strings.Contains(cfg.Address, "127.0.0.1") {
		log.Warn().
			Str("vault_addr", cfg.Address).
			Msg("Using unencrypted HTTP connection to a non-local Vault")
	}

	ttl := time.Duration(cfg.CacheTTL) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	log.Info().
		Str("address", cfg.Address).
		Str("auth_method", cfg.AuthMethod).
		Str("secret_path", cfg.SecretPath).
		Msg("Vault client initialized")

	return &VaultClient{
		client:   client,
		config:   cfg,
		cache:    make(map[string]cachedSecret),
		cacheTTL: ttl,
	}, nil
}

// GetSecret reads a KV secret relative to the configured SecretPath. KV v2
// payloads are unwrapped from their "data" envelope.
func (vc *VaultClient) GetSecret(ctx context.Context, path string) (map[string]interface{}, error) {
	fullPath := fmt.Sprintf("%s/data/%s/%s", vc.config.MountPath, vc.config.SecretPath, path)

	vc.mu.RLock()
	cached, ok := vc.cache[fullPath]
	vc.mu.RUnlock()
	if ok && time.Now().Before(cached.expiresAt) {
		return cached.data, nil
	}

	log.Debug().Str("path", fullPath).Msg("Reading secret from Vault")

	secret, err := vc.client.Logical().ReadWithContext(ctx, fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret from Vault: %w", err)
	}
	if secret == nil {
		return nil, fmt.Errorf("secret not found at path: %s", fullPath)
	}

	data := secret.Data
	if inner, ok := secret.Data["data"].(map[string]interface{}); ok {
		data = inner
	}

	vc.mu.Lock()
	vc.cache[fullPath] = cachedSecret{data: data, expiresAt: time.Now().Add(vc.cacheTTL)}
	vc.mu.Unlock()

	return data, nil
}

// GetSecretString retrieves a single string value from Vault
func (vc *VaultClient) GetSecretString(ctx context.Context, path, key string) (string, error) {
	data, err := vc.GetSecret(ctx, path)
	if err != nil {
		return "", err
	}
	value, ok := data[key].(string)
	if !ok {
		return "", fmt.Errorf("secret key '%s' not found or not a string at path: %s", key, path)
	}
	return value, nil
}

// ClearCache drops all cached secrets
func (vc *VaultClient) ClearCache() {
	vc.mu.Lock()
	vc.cache = make(map[string]cachedSecret)
	vc.mu.Unlock()
}

// secretBinding copies one Vault key into a config field when present
type secretBinding struct {
	path   string
	key    string
	target *string
}

func (c *Config) secretBindings() []secretBinding {
	return []secretBinding{
		{"llm", "api_key", &c.LLM.APIKey},
		{"search", "api_key", &c.Search.APIKey},
		{"telegram", "token", &c.Telegram.Token},
		{"twilio", "account_sid", &c.Twilio.AccountSID},
		{"twilio", "auth_token", &c.Twilio.AuthToken},
		{"database", "user", &c.Database.User},
		{"database", "password", &c.Database.Password},
		{"redis", "password", &c.Redis.Password},
	}
}

// LoadSecretsFromVault fills secret fields of cfg from Vault. Paths that are
// missing are logged and skipped so environment values still apply. It
// returns the number of values loaded.
func LoadSecretsFromVault(ctx context.Context, cfg *Config) (int, error) {
	if !cfg.Vault.Enabled {
		log.Info().Msg("Vault integration disabled, using configuration and environment for secrets")
		return 0, nil
	}

	vc, err := NewVaultClient(cfg.Vault)
	if err != nil {
		return 0, fmt.Errorf("failed to create Vault client: %w", err)
	}
	return loadSecrets(ctx, vc, cfg), nil
}

func loadSecrets(ctx context.Context, vc *VaultClient, cfg *Config) int {
	loaded := 0
	failed := map[string]bool{}
	for _, b := range cfg.secretBindings() {
		if failed[b.path] {
			continue
		}
		data, err := vc.GetSecret(ctx, b.path)
		if err != nil {
			failed[b.path] = true
			log.Warn().Err(err).Str("path", b.path).Msg("Failed to load secrets from Vault")
			continue
		}
		if value, ok := data[b.key].(string); ok && value != "" {
			*b.target = value
			loaded++
			log.Info().Str("path", b.path).Str("key", b.key).Msg("Loaded secret from Vault")
		}
	}
	return loaded
}

func authenticateKubernetes(client *vault.Client) error {
	jwt, err := os.ReadFile("/var/run/secrets/kubernetes.io/serviceaccount/token")
	if err != nil {
		return fmt.Errorf("failed to read service account token: %w", err)
	}

	role := os.Getenv("VAULT_K8S_ROLE")
	if role == "" {
		role = "moneymind"
	}

	secret, err := client.Logical().Write("auth/kubernetes/login", map[string]interface{}{
		"jwt":  string(jwt),
		"role": role,
	})
	if err != nil {
		return fmt.Errorf("failed to login with Kubernetes auth: %w", err)
	}
	if secret == nil || secret.Auth == nil {
		return fmt.Errorf("kubernetes authentication returned no token")
	}

	client.SetToken(secret.Auth.ClientToken)
	log.Info().Str("role", role).Msg("Authenticated to Vault using Kubernetes service account")
	return nil
}

func authenticateAppRole(client *vault.Client) error {
	roleID := os.Getenv("VAULT_ROLE_ID")
	secretID := os.Getenv("VAULT_SECRET_ID")
	if roleID == "" || secretID == "" {
		return fmt.Errorf("VAULT_ROLE_ID and VAULT_SECRET_ID must be set for AppRole authentication")
	}

	secret, err := client.Logical().Write("auth/approle/login", map[string]interface{}{
		"role_id":   roleID,
		"secret_id": secretID,
	})
	if err != nil {
		return fmt.Errorf("failed to login with AppRole: %w", err)
	}
	if secret == nil || secret.Auth == nil {
		return fmt.Errorf("AppRole authentication returned no token")
	}

	client.SetToken(secret.Auth.ClientToken)
	log.Info().Msg("Authenticated to Vault using AppRole")
	return nil
}
