package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// APIKeyPrefix is required on every ClawMemory API key.
const APIKeyPrefix = "cm_"

// DefaultBaseURL points at the hosted ClawMemory service.
const DefaultBaseURL = "https://api.clawmemory.io/v1"

// ConfigurationError indicates the plugin cannot activate with the
// supplied settings. It is fatal to activation, never retried.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// Config contains the plugin's settings. It is read once at
// initialization and immutable afterwards.
type Config struct {
	APIKey          string  `yaml:"api_key"`
	AgentID         string  `yaml:"agent_id"`
	BaseURL         string  `yaml:"base_url"`
	AutoRecall      bool    `yaml:"auto_recall"`
	AutoCapture     bool    `yaml:"auto_capture"`
	RecallLimit     int     `yaml:"recall_limit"`
	RecallThreshold float64 `yaml:"recall_threshold"`
	LogLevel        string  `yaml:"log_level"`
}

// Default returns a Config populated with safe defaults. The API key has
// no default; activation fails without one.
func Default() Config {
	return Config{
		BaseURL:         DefaultBaseURL,
		AutoRecall:      true,
		AutoCapture:     true,
		RecallLimit:     5,
		RecallThreshold: 0.3,
		LogLevel:        "info",
	}
}

// DefaultPath is where the CLI looks for its config file.
func DefaultPath() string {
	return filepath.Join(userHomeDir(), ".clawmemory", "config.yaml")
}

// Load reads config from disk; a missing file yields defaults. The
// CLAWMEMORY_API_KEY environment variable overrides the file's key.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(ExpandPath(path))
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return cfg, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config yaml: %w", err)
		}
	}
	if key := os.Getenv("CLAWMEMORY_API_KEY"); key != "" {
		cfg.APIKey = key
	}
	cfg.normalize()
	return cfg, nil
}

// FromSettings builds a Config from the settings map the host hands over
// at plugin initialization. Unknown keys are ignored.
func FromSettings(settings map[string]any) Config {
	cfg := Default()
	if v, ok := stringSetting(settings, "apiKey"); ok {
		cfg.APIKey = v
	}
	if v, ok := stringSetting(settings, "agentId"); ok {
		cfg.AgentID = v
	}
	if v, ok := stringSetting(settings, "baseUrl"); ok {
		cfg.BaseURL = v
	}
	if v, ok := settings["autoRecall"].(bool); ok {
		cfg.AutoRecall = v
	}
	if v, ok := settings["autoCapture"].(bool); ok {
		cfg.AutoCapture = v
	}
	if v, ok := numberSetting(settings, "recallLimit"); ok && v > 0 {
		cfg.RecallLimit = int(v)
	}
	if v, ok := numberSetting(settings, "recallThreshold"); ok {
		cfg.RecallThreshold = v
	}
	cfg.normalize()
	return cfg
}

// Validate checks the settings the plugin cannot run without.
func (c *Config) Validate() error {
	key := strings.TrimSpace(c.APIKey)
	if key == "" {
		return &ConfigurationError{Reason: "api_key is required"}
	}
	if !strings.HasPrefix(key, APIKeyPrefix) {
		return &ConfigurationError{Reason: fmt.Sprintf("api_key must start with %q", APIKeyPrefix)}
	}
	if c.BaseURL == "" {
		return &ConfigurationError{Reason: "base_url must not be empty"}
	}
	if c.RecallLimit <= 0 {
		return &ConfigurationError{Reason: "recall_limit must be > 0"}
	}
	if c.RecallThreshold < 0 || c.RecallThreshold > 1 {
		return &ConfigurationError{Reason: "recall_threshold must be within [0,1]"}
	}
	return nil
}

// Save writes the config as YAML, creating parent directories.
func (c Config) Save(path string) error {
	path = ExpandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c *Config) normalize() {
	c.APIKey = strings.TrimSpace(c.APIKey)
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.RecallLimit <= 0 {
		c.RecallLimit = 5
	}
}

func stringSetting(settings map[string]any, key string) (string, bool) {
	v, ok := settings[key].(string)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func numberSetting(settings map[string]any, key string) (float64, bool) {
	switch v := settings[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

// ExpandPath expands "~/" to the current user's home directory.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	if p == "~" {
		return userHomeDir()
	}
	if strings.HasPrefix(p, "~/") {
		return filepath.Join(userHomeDir(), p[2:])
	}
	return p
}

func userHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
