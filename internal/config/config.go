// Package config provides configuration management for the backtesting
// engine: default pricing assumptions, the local data-cache layout, and the
// HTTP front end's listen settings.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/optopsy/backtest-engine/internal/models"
)

// Defaults applied by Normalize when the corresponding field is unset.
const (
	defaultMultiplier     = 100
	defaultDashboardPort  = 8787
	defaultCacheTTL       = 24 * time.Hour
	defaultRequestTimeout = 2 * time.Minute
)

// Config is the complete engine configuration, loaded from a single YAML
// document (optionally with `${VAR}`-style environment expansion, same as
// the teacher's operational config).
type Config struct {
	Environment EnvironmentConfig `yaml:"environment"`
	Pricing     PricingConfig     `yaml:"pricing"`
	Datasource  DatasourceConfig  `yaml:"datasource"`
	Cache       CacheConfig       `yaml:"cache"`
	Server      ServerConfig      `yaml:"server"`
}

// EnvironmentConfig controls logging behavior.
type EnvironmentConfig struct {
	Mode     string `yaml:"mode"`      // dev | prod
	LogLevel string `yaml:"log_level"` // debug | info | warn | error
}

// PricingConfig holds the default simulation assumptions applied when a
// tool-surface call omits them (§6).
type PricingConfig struct {
	Multiplier float64                     `yaml:"multiplier"`
	Slippage   string                      `yaml:"slippage"` // mid | spread | liquidity | per_leg
	Commission *models.CommissionSchedule  `yaml:"commission"`
}

// DatasourceConfig points at the local file cache and, optionally, a
// remote object-store endpoint the RemoteFetcher stub would use.
type DatasourceConfig struct {
	LocalCacheDir string `yaml:"local_cache_dir"`
	RemoteURL     string `yaml:"remote_url"`
}

// CacheConfig controls the run-result cache (internal/storagecache).
type CacheConfig struct {
	Path string        `yaml:"path"`
	TTL  time.Duration `yaml:"ttl"`
}

// ServerConfig controls cmd/backtestd's HTTP listener.
type ServerConfig struct {
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Load reads and parses the configuration file at path, expanding
// environment variables, rejecting unknown fields, and applying
// Normalize/Validate in sequence.
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.yaml"
	}

	data, err := os.ReadFile(path) // #nosec G304 -- path is an operator-supplied config file
	if err != nil {
		return nil, fmt.Errorf("reading config file %q: %w", path, err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config %q: %w", path, err)
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Normalize fills in defaults for every field left at its zero value.
func (c *Config) Normalize() {
	if strings.TrimSpace(c.Environment.Mode) == "" {
		c.Environment.Mode = "dev"
	}
	if strings.TrimSpace(c.Environment.LogLevel) == "" {
		c.Environment.LogLevel = "info"
	}
	if c.Pricing.Multiplier == 0 {
		c.Pricing.Multiplier = defaultMultiplier
	}
	if strings.TrimSpace(c.Pricing.Slippage) == "" {
		c.Pricing.Slippage = "mid"
	}
	if strings.TrimSpace(c.Datasource.LocalCacheDir) == "" {
		c.Datasource.LocalCacheDir = "data"
	}
	if strings.TrimSpace(c.Cache.Path) == "" {
		c.Cache.Path = "cache/runs.json"
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = defaultCacheTTL
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaultDashboardPort
	}
	if c.Server.RequestTimeout == 0 {
		c.Server.RequestTimeout = defaultRequestTimeout
	}
}

// Validate checks that every configured value is in range and internally
// consistent. Call after Normalize.
func (c *Config) Validate() error {
	if c.Environment.Mode != "dev" && c.Environment.Mode != "prod" {
		return fmt.Errorf("environment.mode must be 'dev' or 'prod'")
	}
	switch strings.ToLower(c.Environment.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("environment.log_level must be one of: debug, info, warn, error")
	}

	if c.Pricing.Multiplier <= 0 {
		return fmt.Errorf("pricing.multiplier must be > 0")
	}
	switch models.SlippageKind(c.Pricing.Slippage) {
	case models.SlippageMid, models.SlippageSpread, models.SlippageLiquidity, models.SlippagePerLeg:
	default:
		return fmt.Errorf("pricing.slippage must be one of: mid, spread, liquidity, per_leg")
	}

	if strings.TrimSpace(c.Datasource.LocalCacheDir) == "" {
		return fmt.Errorf("datasource.local_cache_dir is required")
	}

	if strings.TrimSpace(c.Cache.Path) == "" {
		return fmt.Errorf("cache.path is required")
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must be >= 0")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("server.request_timeout must be > 0")
	}
	return nil
}

// DefaultSlippageModel builds the models.SlippageModel described by
// c.Pricing.Slippage, for callers that don't override it per request.
func (c *Config) DefaultSlippageModel() models.SlippageModel {
	return models.SlippageModel{Kind: models.SlippageKind(c.Pricing.Slippage)}
}
