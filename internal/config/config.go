// Package config holds all concierge configuration, loaded from a YAML
// file with environment-variable overrides for secrets.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all concierge configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// LLM configures the completion endpoint.
	LLM LLMConfig `yaml:"llm"`

	// Engine configures orchestration budgets and policies.
	Engine EngineConfig `yaml:"engine"`

	// Remote configures the optional remote capability catalog.
	Remote RemoteConfig `yaml:"remote"`

	// Logging configures categorized logging.
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the completion endpoint.
type LLMConfig struct {
	Provider string `yaml:"provider"` // openai, gemini
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"`
}

// EngineConfig configures the orchestration loop.
type EngineConfig struct {
	// MaxSteps bounds recorded steps per call.
	MaxSteps int `yaml:"max_steps"`

	// MaxCalls bounds capability invocations per call.
	MaxCalls int `yaml:"max_calls"`

	// DedupWindow is the recency window K for full invocation detail
	// injection into the rolling context.
	DedupWindow int `yaml:"dedup_window"`

	// ValidationEnabled turns the single self-check pass on or off.
	ValidationEnabled bool `yaml:"validation_enabled"`
}

// RemoteConfig configures the remote capability catalog.
type RemoteConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"`
	CacheTTL string `yaml:"cache_ttl"`

	// StorePath, when set, persists discovered descriptors to SQLite so
	// the catalog warm-starts across restarts.
	StorePath string `yaml:"store_path"`
}

// LoggingConfig configures the logging package.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Dir        string          `yaml:"dir"`
	Categories map[string]bool `yaml:"categories"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:    "concierge",
		Version: "0.3.0",
		LLM: LLMConfig{
			Provider: "openai",
			Model:    "gpt-4o",
			BaseURL:  "https://api.openai.com/v1",
			Timeout:  "120s",
		},
		Engine: EngineConfig{
			MaxSteps:          12,
			MaxCalls:          6,
			DedupWindow:       3,
			ValidationEnabled: true,
		},
		Remote: RemoteConfig{
			Enabled:  false,
			Timeout:  "10s",
			CacheTTL: "30s",
		},
		Logging: LoggingConfig{
			DebugMode: false,
		},
	}
}

// DefaultPath returns the conventional config location,
// ~/.concierge/config.yaml, falling back to the working directory when
// the home directory cannot be resolved.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".concierge", "config.yaml")
}

// Load reads a config file and applies environment overrides.
// A missing file is not an error; defaults are returned.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// applyEnv overrides secret-bearing fields from the environment.
func (c *Config) applyEnv() {
	if v := os.Getenv("CONCIERGE_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("CONCIERGE_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("CONCIERGE_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
}

// Validate checks invariants that would otherwise surface deep inside
// the engine.
func (c *Config) Validate() error {
	if c.Engine.MaxSteps <= 0 {
		return fmt.Errorf("engine.max_steps must be positive, got %d", c.Engine.MaxSteps)
	}
	if c.Engine.MaxCalls < 0 {
		return fmt.Errorf("engine.max_calls must not be negative, got %d", c.Engine.MaxCalls)
	}
	if c.Engine.DedupWindow < 0 {
		return fmt.Errorf("engine.dedup_window must not be negative, got %d", c.Engine.DedupWindow)
	}
	if _, err := c.LLMTimeout(); err != nil {
		return err
	}
	if _, err := c.RemoteCacheTTL(); err != nil {
		return err
	}
	return nil
}

// LLMTimeout parses the LLM timeout duration.
func (c *Config) LLMTimeout() (time.Duration, error) {
	return parseDuration(c.LLM.Timeout, 120*time.Second, "llm.timeout")
}

// RemoteTimeout parses the remote catalog request timeout.
func (c *Config) RemoteTimeout() (time.Duration, error) {
	return parseDuration(c.Remote.Timeout, 10*time.Second, "remote.timeout")
}

// RemoteCacheTTL parses the remote catalog cache TTL.
func (c *Config) RemoteCacheTTL() (time.Duration, error) {
	return parseDuration(c.Remote.CacheTTL, 30*time.Second, "remote.cache_ttl")
}

func parseDuration(s string, def time.Duration, field string) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, s, err)
	}
	return d, nil
}
