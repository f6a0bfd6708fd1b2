// Package config loads the khoj CLI configuration: which lookup backend to
// use, its connection settings and the search options.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/remiges-tech/khoj"
	"github.com/remiges-tech/khoj/providers/bleve"
	"github.com/remiges-tech/khoj/providers/elasticsearch"
	"github.com/remiges-tech/khoj/providers/redis"
	"github.com/remiges-tech/khoj/providers/sqlite"
)

// Config represents the complete khoj configuration.
type Config struct {
	// Provider selects the lookup backend: sqlite, bleve, redis or elasticsearch.
	Provider string `yaml:"provider" json:"provider"`

	SQLite        SQLiteConfig        `yaml:"sqlite" json:"sqlite"`
	Bleve         BleveConfig         `yaml:"bleve" json:"bleve"`
	Redis         RedisConfig         `yaml:"redis" json:"redis"`
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch" json:"elasticsearch"`

	Search  SearchConfig  `yaml:"search" json:"search"`
	Session SessionConfig `yaml:"session" json:"session"`

	// Language selects the transliteration and translation shown with a
	// line. Lines without it fall back to english.
	Language string `yaml:"language" json:"language"`

	// LogLevel is one of debug, info, warn or error.
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// SQLiteConfig configures the sqlite provider.
type SQLiteConfig struct {
	// Path is the database file. Empty keeps the database in memory.
	Path string `yaml:"path" json:"path"`
}

// BleveConfig configures the bleve provider.
type BleveConfig struct {
	// Path is the index directory. Empty keeps the index in memory.
	Path string `yaml:"path" json:"path"`
}

// RedisConfig configures the redis provider.
type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`
}

// ElasticsearchConfig configures the elasticsearch provider.
type ElasticsearchConfig struct {
	URLs          []string `yaml:"urls" json:"urls"`
	Index         string   `yaml:"index" json:"index"`
	Username      string   `yaml:"username" json:"username"`
	Password      string   `yaml:"password" json:"password"`
	APIKey        string   `yaml:"api_key" json:"api_key"`
	RefreshPolicy string   `yaml:"refresh_policy" json:"refresh_policy"`
}

// SearchConfig mirrors khoj.Options.
type SearchConfig struct {
	MinSearchChars int    `yaml:"min_search_chars" json:"min_search_chars"`
	MaxResults     int    `yaml:"max_results" json:"max_results"`
	MaxLimit       int    `yaml:"max_limit" json:"max_limit"`
	Namespace      string `yaml:"namespace" json:"namespace"`
	CacheSize      int    `yaml:"cache_size" json:"cache_size"`
}

// SessionConfig configures interactive search.
type SessionConfig struct {
	// Workers is the number of lookups that may run at once.
	// Zero selects the session default.
	Workers int `yaml:"workers" json:"workers"`

	IncludeTranslations     bool `yaml:"include_translations" json:"include_translations"`
	IncludeTransliterations bool `yaml:"include_transliterations" json:"include_transliterations"`
	IncludeCitations        bool `yaml:"include_citations" json:"include_citations"`
}

// NewConfig creates a new Config with defaults.
func NewConfig() *Config {
	defaults := khoj.DefaultOptions()
	return &Config{
		Provider: "sqlite",
		SQLite: SQLiteConfig{
			Path: "khoj.db",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Elasticsearch: ElasticsearchConfig{
			URLs: []string{"http://localhost:9200"},
		},
		Search: SearchConfig{
			MinSearchChars: defaults.MinSearchChars,
			MaxResults:     defaults.MaxResults,
			MaxLimit:       defaults.MaxLimit,
			Namespace:      defaults.Namespace,
		},
		Session: SessionConfig{
			IncludeTranslations:     true,
			IncludeTransliterations: true,
			IncludeCitations:        true,
		},
		Language: khoj.DefaultLanguage,
		LogLevel: "info",
	}
}

// Load builds the configuration with the following precedence (lowest to highest):
//  1. Defaults
//  2. The YAML file at path, if path is not empty
//  3. Environment variables (KHOJ_*)
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	if path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadYAML decodes the file at path over c. Keys absent from the file keep
// their current values.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides applies KHOJ_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("KHOJ_PROVIDER"); v != "" {
		c.Provider = v
	}
	if v := os.Getenv("KHOJ_SQLITE_PATH"); v != "" {
		c.SQLite.Path = v
	}
	if v := os.Getenv("KHOJ_BLEVE_PATH"); v != "" {
		c.Bleve.Path = v
	}
	if v := os.Getenv("KHOJ_REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("KHOJ_REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("KHOJ_ELASTICSEARCH_URLS"); v != "" {
		c.Elasticsearch.URLs = strings.Split(v, ",")
	}
	if v := os.Getenv("KHOJ_NAMESPACE"); v != "" {
		c.Search.Namespace = v
	}
	if v := os.Getenv("KHOJ_MAX_RESULTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.MaxResults = n
		}
	}
	if v := os.Getenv("KHOJ_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Search.CacheSize = n
		}
	}
	if v := os.Getenv("KHOJ_LANGUAGE"); v != "" {
		c.Language = v
	}
	if v := os.Getenv("KHOJ_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	validProviders := map[string]bool{"sqlite": true, "bleve": true, "redis": true, "elasticsearch": true}
	if !validProviders[strings.ToLower(c.Provider)] {
		return fmt.Errorf("provider must be 'sqlite', 'bleve', 'redis' or 'elasticsearch', got %q", c.Provider)
	}

	if c.Search.MinSearchChars < 1 {
		return fmt.Errorf("search.min_search_chars must be at least 1, got %d", c.Search.MinSearchChars)
	}
	if c.Search.MaxResults < 0 {
		return fmt.Errorf("search.max_results must be non-negative, got %d", c.Search.MaxResults)
	}
	if c.Search.MaxLimit > 0 && c.Search.MaxResults > c.Search.MaxLimit {
		return fmt.Errorf("search.max_results (%d) must not exceed search.max_limit (%d)", c.Search.MaxResults, c.Search.MaxLimit)
	}
	if c.Search.CacheSize < 0 {
		return fmt.Errorf("search.cache_size must be non-negative, got %d", c.Search.CacheSize)
	}
	if c.Session.Workers < 0 {
		return fmt.Errorf("session.workers must be non-negative, got %d", c.Session.Workers)
	}

	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}

	return nil
}

// ProviderConfig returns the settings of the selected provider in the type
// its factory expects.
func (c *Config) ProviderConfig() interface{} {
	switch strings.ToLower(c.Provider) {
	case "bleve":
		return bleve.Config{Path: c.Bleve.Path}
	case "redis":
		return redis.Config{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password, // pragma: allowlist secret
			DB:       c.Redis.DB,
		}
	case "elasticsearch":
		return elasticsearch.Config{
			URLs:          c.Elasticsearch.URLs,
			Index:         c.Elasticsearch.Index,
			Username:      c.Elasticsearch.Username,
			Password:      c.Elasticsearch.Password, // pragma: allowlist secret
			APIKey:        c.Elasticsearch.APIKey,
			RefreshPolicy: c.Elasticsearch.RefreshPolicy,
		}
	default:
		return sqlite.Config{Path: c.SQLite.Path}
	}
}

// Options returns the searcher options, logging to logger.
func (c *Config) Options(logger *slog.Logger) khoj.Options {
	return khoj.Options{
		MinSearchChars: c.Search.MinSearchChars,
		MaxResults:     c.Search.MaxResults,
		MaxLimit:       c.Search.MaxLimit,
		Namespace:      c.Search.Namespace,
		CacheSize:      c.Search.CacheSize,
		Logger:         logger,
	}
}

// KhojConfig returns the configuration khoj.New expects.
func (c *Config) KhojConfig(logger *slog.Logger) khoj.Config {
	return khoj.NewConfigWithOptions(c.ProviderConfig(), c.Options(logger))
}

// SearchOptions returns the per-search options selected by the session settings.
func (c *Config) SearchOptions() khoj.SearchOptions {
	return khoj.SearchOptions{
		IncludeTranslations:     c.Session.IncludeTranslations,
		IncludeTransliterations: c.Session.IncludeTransliterations,
		IncludeCitations:        c.Session.IncludeCitations,
	}
}

// ParseLevel parses a log level name.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log_level must be 'debug', 'info', 'warn' or 'error', got %q", level)
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
