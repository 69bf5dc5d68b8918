// Package config loads the fedsearch module manifest: which index modules
// to register at startup, their weights, and search/logging tuning.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	ferrors "github.com/offlinekit/fedsearch/internal/errors"
)

// DefaultConfigName is the manifest filename looked up in the working
// directory when no explicit path is given.
const DefaultConfigName = "fedsearch.yaml"

// Config is the complete fedsearch configuration.
type Config struct {
	Version int            `yaml:"version"`
	Modules []ModuleConfig `yaml:"modules"`
	Search  SearchConfig   `yaml:"search"`
	Logging LoggingConfig  `yaml:"logging"`
	// Watch enables the index-directory watcher that auto-reloads modules
	// when an external builder commits new segments.
	Watch bool `yaml:"watch"`
}

// ModuleConfig describes one index module to load at startup.
type ModuleConfig struct {
	// Name is the unique module name.
	Name string `yaml:"name"`
	// Path is the on-device index location.
	Path string `yaml:"path"`
	// Weight is the score multiplier applied to this module's hits
	// (default: 1.0).
	Weight float64 `yaml:"weight"`
}

// SearchConfig tunes the coordinator.
type SearchConfig struct {
	// DefaultLimit is the result limit when a request leaves it unset.
	DefaultLimit int `yaml:"default_limit"`
	// MaxLimit caps the result limit a request may ask for.
	MaxLimit int `yaml:"max_limit"`
	// Parallelism bounds concurrent per-module searches.
	Parallelism int `yaml:"parallelism"`
	// CacheSize is the merged-result LRU capacity; 0 disables caching.
	CacheSize int `yaml:"cache_size"`
}

// LoggingConfig configures structured log output.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Version: 1,
		Search: SearchConfig{
			DefaultLimit: 20,
			MaxLimit:     200,
			Parallelism:  4,
			CacheSize:    128,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the manifest at path, fills defaults, applies FEDSEARCH_* env
// overrides, and validates.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Config{}, ferrors.Newf(ferrors.ErrCodeConfigNotFound, "config file not found: %s", path)
	}
	if err != nil {
		return Config{}, ferrors.Wrap(ferrors.ErrCodeConfigInvalid, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, ferrors.Wrap(ferrors.ErrCodeConfigInvalid, err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyDefaults fills zero values left by partial manifests.
func (c *Config) applyDefaults() {
	def := Default()
	if c.Search.DefaultLimit == 0 {
		c.Search.DefaultLimit = def.Search.DefaultLimit
	}
	if c.Search.MaxLimit == 0 {
		c.Search.MaxLimit = def.Search.MaxLimit
	}
	if c.Search.Parallelism == 0 {
		c.Search.Parallelism = def.Search.Parallelism
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
	for i := range c.Modules {
		if c.Modules[i].Weight == 0 {
			c.Modules[i].Weight = 1.0
		}
	}
}

// applyEnv applies environment overrides. Env vars win over file values.
func (c *Config) applyEnv() {
	if v := os.Getenv("FEDSEARCH_PARALLELISM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.Parallelism = n
		}
	}
	if v := os.Getenv("FEDSEARCH_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Search.CacheSize = n
		}
	}
	if v := os.Getenv("FEDSEARCH_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate rejects manifests the coordinator cannot run with.
func (c *Config) Validate() error {
	if c.Search.DefaultLimit <= 0 {
		return ferrors.Newf(ferrors.ErrCodeConfigInvalid, "search.default_limit must be positive, got %d", c.Search.DefaultLimit)
	}
	if c.Search.MaxLimit < c.Search.DefaultLimit {
		return ferrors.Newf(ferrors.ErrCodeConfigInvalid, "search.max_limit %d is below search.default_limit %d", c.Search.MaxLimit, c.Search.DefaultLimit)
	}
	if c.Search.Parallelism <= 0 {
		return ferrors.Newf(ferrors.ErrCodeConfigInvalid, "search.parallelism must be positive, got %d", c.Search.Parallelism)
	}
	if c.Search.CacheSize < 0 {
		return ferrors.Newf(ferrors.ErrCodeConfigInvalid, "search.cache_size must not be negative, got %d", c.Search.CacheSize)
	}

	seen := make(map[string]struct{}, len(c.Modules))
	for _, m := range c.Modules {
		if m.Name == "" {
			return ferrors.Newf(ferrors.ErrCodeConfigInvalid, "module with empty name")
		}
		if m.Path == "" {
			return ferrors.Newf(ferrors.ErrCodeConfigInvalid, "module %q has no path", m.Name)
		}
		if m.Weight <= 0 {
			return ferrors.Newf(ferrors.ErrCodeConfigInvalid, "module %q weight must be positive, got %g", m.Name, m.Weight)
		}
		if _, dup := seen[m.Name]; dup {
			return ferrors.Newf(ferrors.ErrCodeConfigInvalid, "duplicate module name %q", m.Name)
		}
		seen[m.Name] = struct{}{}
	}
	return nil
}

// Weights returns the per-module weight mapping from the manifest.
func (c *Config) Weights() map[string]float64 {
	if len(c.Modules) == 0 {
		return nil
	}
	weights := make(map[string]float64, len(c.Modules))
	for _, m := range c.Modules {
		weights[m.Name] = m.Weight
	}
	return weights
}

// String renders the effective config for diagnostics.
func (c *Config) String() string {
	return fmt.Sprintf("config{modules=%d limit=%d parallelism=%d cache=%d watch=%t}",
		len(c.Modules), c.Search.DefaultLimit, c.Search.Parallelism, c.Search.CacheSize, c.Watch)
}
