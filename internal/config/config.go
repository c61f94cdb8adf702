// Package config manages persistent tool settings: the active LLM provider,
// per-provider model overrides, and API keys.
//
// Settings live in a YAML file under the user's home directory. API keys go
// to the OS keyring when one is available, falling back to the settings file
// otherwise.
package config

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/zalando/go-keyring"
	"go.yaml.in/yaml/v3"

	"github.com/YASSERRMD/schema-forge/internal/errs"
)

const keyringService = "schema-forge"

// DefaultModels maps each provider name to the model used when no override
// is configured.
var DefaultModels = map[string]string{
	"anthropic": "claude-sonnet-4-20250514",
	"openai":    "gpt-4o",
	"groq":      "llama-3.3-70b-versatile",
	"cohere":    "command-r-plus",
	"xai":       "grok-2",
	"minimax":   "abab6.5s-chat",
	"qwen":      "qwen-max",
	"zai":       "deepseek-r1",
}

// fileSettings is the on-disk YAML shape.
type fileSettings struct {
	CurrentProvider string            `yaml:"current_provider,omitempty"`
	Models          map[string]string `yaml:"models,omitempty"`
	// APIKeys holds keys only when the OS keyring is unavailable.
	APIKeys map[string]string `yaml:"api_keys,omitempty"`
}

// Config is a concurrency-safe view over the settings file and keyring.
type Config struct {
	mu         sync.Mutex
	path       string
	settings   fileSettings
	useKeyring bool
}

// DefaultPath returns the settings file location under the user's home
// directory.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errs.Wrap(errs.KindConfig, "resolving home directory", err)
	}
	return filepath.Join(home, ".schema-forge", "config.yaml"), nil
}

// Load reads the settings file at path, creating empty settings when the
// file does not exist yet.
func Load(path string) (*Config, error) {
	cfg := &Config{
		path:       path,
		useKeyring: keyringAvailable(),
	}
	cfg.settings.Models = make(map[string]string)
	cfg.settings.APIKeys = make(map[string]string)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.KindConfig, "reading settings file", err)
	}

	if err := yaml.Unmarshal(data, &cfg.settings); err != nil {
		return nil, errs.Wrap(errs.KindConfig, "parsing settings file", err)
	}
	if cfg.settings.Models == nil {
		cfg.settings.Models = make(map[string]string)
	}
	if cfg.settings.APIKeys == nil {
		cfg.settings.APIKeys = make(map[string]string)
	}
	return cfg, nil
}

// LoadDefault loads settings from DefaultPath.
func LoadDefault() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return Load(path)
}

// Path returns the settings file location.
func (c *Config) Path() string { return c.path }

// CurrentProvider returns the configured provider name, or "" when unset.
func (c *Config) CurrentProvider() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings.CurrentProvider
}

// SetCurrentProvider records provider as active and persists the change.
func (c *Config) SetCurrentProvider(provider string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings.CurrentProvider = provider
	return c.save()
}

// Model returns the model for provider: the configured override if present,
// else the provider default, else "".
func (c *Config) Model(provider string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := c.settings.Models[provider]; ok && m != "" {
		return m
	}
	return DefaultModels[provider]
}

// SetModel overrides the model for provider and persists the change.
func (c *Config) SetModel(provider, model string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings.Models[provider] = model
	return c.save()
}

// APIKey returns the stored key for provider, or "" when absent. The
// environment variable form SCHEMA_FORGE is not consulted here; key lookup
// order is keyring first, then the settings file.
func (c *Config) APIKey(provider string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.useKeyring {
		if key, err := keyring.Get(keyringService, provider); err == nil && key != "" {
			return key
		}
	}
	return c.settings.APIKeys[provider]
}

// SetAPIKey stores the key for provider in the keyring, or in the settings
// file when no keyring is available.
func (c *Config) SetAPIKey(provider, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.useKeyring {
		if err := keyring.Set(keyringService, provider, key); err == nil {
			return nil
		}
		// Keyring refused the write; fall back to the file.
		c.useKeyring = false
	}
	c.settings.APIKeys[provider] = key
	return c.save()
}

// RemoveAPIKey deletes the stored key for provider from both stores.
func (c *Config) RemoveAPIKey(provider string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.useKeyring {
		// A missing keyring entry is not an error.
		_ = keyring.Delete(keyringService, provider)
	}
	if _, ok := c.settings.APIKeys[provider]; ok {
		delete(c.settings.APIKeys, provider)
		return c.save()
	}
	return nil
}

// HasAPIKey reports whether a key is stored for provider.
func (c *Config) HasAPIKey(provider string) bool {
	return c.APIKey(provider) != ""
}

// save writes the settings file. Caller holds c.mu.
func (c *Config) save() error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return errs.Wrap(errs.KindConfig, "creating settings directory", err)
	}
	data, err := yaml.Marshal(&c.settings)
	if err != nil {
		return errs.Wrap(errs.KindSerialization, "encoding settings", err)
	}
	if err := os.WriteFile(c.path, data, 0o600); err != nil {
		return errs.Wrap(errs.KindConfig, "writing settings file", err)
	}
	return nil
}

// keyringAvailable probes the OS keyring with a throwaway entry.
func keyringAvailable() bool {
	const probe = "__probe__"
	if err := keyring.Set(keyringService, probe, "1"); err != nil {
		return false
	}
	_ = keyring.Delete(keyringService, probe)
	return true
}
