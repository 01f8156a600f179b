package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/manu3618/reflecto/internal/mirror"
)

type Config struct {
	Fetch     FetchConfig     `json:"fetch"`
	Selection SelectionConfig `json:"selection"`
	Probe     ProbeConfig     `json:"probe"`
	API       APIConfig       `json:"api"`
	Storage   StorageConfig   `json:"storage"`
	Metrics   MetricsConfig   `json:"metrics"`
	Logging   LoggingConfig   `json:"logging"`

	mu       sync.RWMutex
	filePath string
}

type FetchConfig struct {
	StatusURL       string `json:"status_url"`
	UserAgent       string `json:"user_agent"`
	IntervalSeconds int    `json:"interval_seconds"`
}

type SelectionConfig struct {
	SortBy      string   `json:"sort_by"` // "age", "rate", "country", "score", "delay"
	Limit       int      `json:"limit"`   // number of Server lines in the mirrorlist
	MaxAgeHours *float64 `json:"max_age_hours"`
	RequireIsos bool     `json:"require_isos"`
	RequireIPv4 bool     `json:"require_ipv4"`
	RequireIPv6 bool     `json:"require_ipv6"`
	Protocols   []string `json:"protocols"`
}

type ProbeConfig struct {
	TimeoutSeconds        int    `json:"timeout_seconds"` // 0 = no deadline
	TargetCount           int    `json:"target_count"`    // probe successes to stop at
	SamplePath            string `json:"sample_path"`
	SOCKS5Proxy           string `json:"socks5_proxy"`
	EnableFastFilter      bool   `json:"enable_fast_filter"`
	FastFilterTimeoutMs   int    `json:"fast_filter_timeout_ms"`
	FastFilterConcurrency int    `json:"fast_filter_concurrency"`
}

type APIConfig struct {
	Addr               string `json:"addr"`
	APIKeyEnv          string `json:"api_key_env"`
	RateLimitPerMinute int    `json:"rate_limit_per_minute"`
	EnableAPIKeyAuth   bool   `json:"enable_api_key_auth"`
	EnableIPRateLimit  bool   `json:"enable_ip_rate_limit"`
}

type StorageConfig struct {
	Type                   string `json:"type"` // "file", "sqlite", "redis"
	Path                   string `json:"path"`
	PersistIntervalSeconds int    `json:"persist_interval_seconds"`
}

type MetricsConfig struct {
	Enabled   bool   `json:"enabled"`
	Endpoint  string `json:"endpoint"`
	Namespace string `json:"namespace"`
}

type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

var (
	globalConfig *Config
	configMu     sync.RWMutex
)

// Load reads configuration from JSON file
func Load(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config JSON: %w", err)
	}

	cfg.filePath = filePath
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	configMu.Lock()
	globalConfig = &cfg
	configMu.Unlock()

	return &cfg, nil
}

// ApplyDefaults fills in every unset field.
func (c *Config) ApplyDefaults() {
	if c.Fetch.StatusURL == "" {
		c.Fetch.StatusURL = "https://archlinux.org/mirrors/status/json"
	}
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = "reflecto/1.0"
	}
	if c.Fetch.IntervalSeconds == 0 {
		c.Fetch.IntervalSeconds = 3600
	}
	if c.Selection.SortBy == "" {
		c.Selection.SortBy = "score"
	}
	if c.Selection.Limit == 0 {
		c.Selection.Limit = 20
	}
	if c.Probe.TimeoutSeconds == 0 {
		c.Probe.TimeoutSeconds = 10
	}
	if c.Probe.SamplePath == "" {
		c.Probe.SamplePath = "extra/os/x86_64/extra.db"
	}
	if c.Probe.FastFilterTimeoutMs == 0 {
		c.Probe.FastFilterTimeoutMs = 2000
	}
	if c.Probe.FastFilterConcurrency == 0 {
		c.Probe.FastFilterConcurrency = 50
	}
	if c.API.Addr == "" {
		c.API.Addr = ":8083"
	}
	if c.API.RateLimitPerMinute == 0 {
		c.API.RateLimitPerMinute = 600
	}
	if c.Storage.Type == "" {
		c.Storage.Type = "file"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "/data/mirrorlist.json"
	}
	if c.Storage.PersistIntervalSeconds == 0 {
		c.Storage.PersistIntervalSeconds = 300
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "reflecto"
	}
	if c.Metrics.Endpoint == "" {
		c.Metrics.Endpoint = "/metrics"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Reload reloads configuration from file
func (c *Config) Reload() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	newCfg, err := Load(c.filePath)
	if err != nil {
		return err
	}

	*c = *newCfg
	return nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if _, err := mirror.ParseSortKey(c.Selection.SortBy); err != nil {
		return err
	}
	if _, err := c.Selection.ProtocolList(); err != nil {
		return err
	}
	if c.Selection.Limit < 1 {
		return fmt.Errorf("limit must be at least 1")
	}
	if c.Selection.MaxAgeHours != nil && *c.Selection.MaxAgeHours < 0 {
		return fmt.Errorf("max_age_hours must not be negative")
	}
	if c.Probe.TimeoutSeconds < 0 || c.Probe.TimeoutSeconds > 300 {
		return fmt.Errorf("timeout_seconds must be between 0 and 300")
	}
	if c.Probe.TargetCount < 0 {
		return fmt.Errorf("target_count must not be negative")
	}
	if c.Storage.Type != "file" && c.Storage.Type != "sqlite" && c.Storage.Type != "redis" {
		return fmt.Errorf("storage type must be 'file', 'sqlite', or 'redis'")
	}
	return nil
}

// SortKey returns the validated ranking key.
func (s SelectionConfig) SortKey() mirror.SortKey {
	k, err := mirror.ParseSortKey(s.SortBy)
	if err != nil {
		return mirror.SortScore
	}
	return k
}

// ProtocolList converts the configured protocol names.
func (s SelectionConfig) ProtocolList() ([]mirror.Protocol, error) {
	out := make([]mirror.Protocol, 0, len(s.Protocols))
	for _, name := range s.Protocols {
		p, err := mirror.ParseProtocol(name)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Criteria builds the filter criteria from the selection settings.
func (s SelectionConfig) Criteria() mirror.Criteria {
	protocols, _ := s.ProtocolList()
	return mirror.Criteria{
		MaxAgeHours: s.MaxAgeHours,
		RequireIsos: s.RequireIsos,
		RequireIPv4: s.RequireIPv4,
		RequireIPv6: s.RequireIPv6,
		Protocols:   protocols,
	}
}

// GetGlobal returns global config instance
func GetGlobal() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
