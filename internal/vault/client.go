// Package vault loads runtime secrets (bridge API key, LLM keys, bot tokens,
// database passwords) from a HashiCorp Vault KV v2 secret, falling back to
// environment variables when Vault is disabled or a field is absent.
package vault

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/hashicorp/vault/api"
)

// Config holds the Vault connection settings.
type Config struct {
	Enabled    bool   `json:"enabled"`
	Address    string `json:"address"`
	Token      string `json:"token"`
	MountPath  string `json:"mount_path"`
	SecretPath string `json:"secret_path"`
	TLSEnabled bool   `json:"tls_enabled"`
	CACert     string `json:"ca_cert"`
}

// Client reads secrets from a single KV v2 secret and caches them for the
// life of the process. Secrets are not expected to rotate while running.
type Client struct {
	client *api.Client
	config Config

	mu     sync.RWMutex
	cache  map[string]string
	loaded bool
}

// NewClient creates a Vault client. With Vault disabled the client still
// works: every lookup falls through to the environment.
func NewClient(cfg Config) (*Client, error) {
	if cfg.MountPath == "" {
		cfg.MountPath = "secret"
	}
	if cfg.SecretPath == "" {
		cfg.SecretPath = "mt5-smc-bot"
	}

	c := &Client{config: cfg, cache: make(map[string]string)}
	if !cfg.Enabled {
		return c, nil
	}

	vaultConfig := api.DefaultConfig()
	vaultConfig.Address = cfg.Address

	if cfg.TLSEnabled && cfg.CACert != "" {
		tlsConfig := &api.TLSConfig{CACert: cfg.CACert}
		if err := vaultConfig.ConfigureTLS(tlsConfig); err != nil {
			return nil, fmt.Errorf("failed to configure TLS: %w", err)
		}
	}

	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(cfg.Token)

	c.client = client
	return c, nil
}

// Secret returns the named secret. Vault holds fields keyed lowercase
// (e.g. "terminal_api_key"); the environment fallback uses the uppercase
// form of the same name. A missing secret is an empty string, not an error,
// so optional integrations stay optional.
func (c *Client) Secret(ctx context.Context, name string) (string, error) {
	name = strings.ToLower(name)

	if c.config.Enabled {
		if err := c.load(ctx); err != nil {
			return "", err
		}
		c.mu.RLock()
		val, ok := c.cache[name]
		c.mu.RUnlock()
		if ok && val != "" {
			return val, nil
		}
	}

	return os.Getenv(strings.ToUpper(name)), nil
}

// load fetches the KV secret once and fills the cache.
func (c *Client) load(ctx context.Context) error {
	c.mu.RLock()
	loaded := c.loaded
	c.mu.RUnlock()
	if loaded {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return nil
	}

	path := fmt.Sprintf("%s/data/%s", c.config.MountPath, c.config.SecretPath)
	secret, err := c.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to read secrets from vault: %w", err)
	}

	if secret != nil && secret.Data != nil {
		if data, ok := secret.Data["data"].(map[string]interface{}); ok {
			for key, val := range data {
				if str, ok := val.(string); ok {
					c.cache[strings.ToLower(key)] = str
				}
			}
		}
	}

	c.loaded = true
	return nil
}

// IsEnabled returns whether Vault is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// Health checks the Vault connection.
func (c *Client) Health(ctx context.Context) error {
	if !c.config.Enabled {
		return nil
	}

	health, err := c.client.Sys().HealthWithContext(ctx)
	if err != nil {
		return fmt.Errorf("vault health check failed: %w", err)
	}
	if health.Sealed {
		return fmt.Errorf("vault is sealed")
	}
	return nil
}
