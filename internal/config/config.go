// Package config manages application configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	ythttp "ytplan/http"
	"ytplan/internal/retry"
)

// Playlist sources.
const (
	SourceInnertube = "innertube"
	SourceDataAPI   = "dataapi"
)

// Store drivers.
const (
	StoreJSON   = "json"
	StoreSQLite = "sqlite"
)

// Config holds all application configuration.
type Config struct {
	// Crawl settings
	Source      string `json:"source" yaml:"source"`
	MaxPages    int    `json:"max_pages" yaml:"max_pages"`
	Concurrency int    `json:"concurrency" yaml:"concurrency"`

	// HTTP and retry settings
	HTTPTimeout       time.Duration `json:"http_timeout" yaml:"http_timeout"`
	MaxRetries        int           `json:"max_retries" yaml:"max_retries"`
	InitialBackoff    time.Duration `json:"initial_backoff" yaml:"initial_backoff"`
	MaxBackoff        time.Duration `json:"max_backoff" yaml:"max_backoff"`
	BackoffMultiplier float64       `json:"backoff_multiplier" yaml:"backoff_multiplier"`
	RequestsPerSecond float64       `json:"requests_per_second" yaml:"requests_per_second"`

	// Schedule generation
	AIModel      string        `json:"ai_model" yaml:"ai_model"`
	AITimeout    time.Duration `json:"ai_timeout" yaml:"ai_timeout"`
	GeminiAPIKey string        `json:"gemini_api_key" yaml:"gemini_api_key"`

	YouTubeAPIKey string `json:"youtube_api_key" yaml:"youtube_api_key"`

	// Routine storage
	Store     string `json:"store" yaml:"store"`
	StorePath string `json:"store_path" yaml:"store_path"`

	LogLevel string `json:"log_level" yaml:"log_level"`
	LogJSON  bool   `json:"log_json" yaml:"log_json"`
}

// DefaultConfig returns configuration with safe defaults.
func DefaultConfig() *Config {
	crawl := retry.CrawlConfig()
	return &Config{
		Source:            SourceInnertube,
		MaxPages:          100,
		Concurrency:       4,
		HTTPTimeout:       30 * time.Second,
		MaxRetries:        crawl.MaxRetries,
		InitialBackoff:    crawl.InitialBackoff,
		MaxBackoff:        crawl.MaxBackoff,
		BackoffMultiplier: crawl.Multiplier,
		RequestsPerSecond: ythttp.DefaultRateLimiterConfig().InnertubeRPS,
		AIModel:           "gemini-1.5-flash-latest",
		AITimeout:         30 * time.Second,
		Store:             StoreJSON,
		LogLevel:          "info",
	}
}

// Load loads configuration from the first config file found, then
// environment variables, on top of the defaults.
// Priority: env vars > config file > defaults
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if err := cfg.loadFromFiles(searchPaths()); err != nil {
		// Config file is optional
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile is Load with an explicit config file, which must exist.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := cfg.loadFile(path); err != nil {
		return nil, fmt.Errorf("load config file: %w", err)
	}
	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) finish() error {
	if err := c.loadFromEnv(); err != nil {
		return err
	}
	return c.Validate()
}

func searchPaths() []string {
	names := []string{"ytplan.json", "ytplan.yaml", "ytplan.yml"}
	paths := append([]string(nil), names...)
	if home, err := os.UserHomeDir(); err == nil {
		for _, n := range names {
			paths = append(paths, filepath.Join(home, ".config", "ytplan", n))
		}
	}
	return paths
}

// loadFromFiles reads the first existing file in paths.
func (c *Config) loadFromFiles(paths []string) error {
	for _, path := range paths {
		err := c.loadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		return err
	}
	return os.ErrNotExist
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	default:
		err = json.Unmarshal(data, c)
	}
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// loadFromEnv overrides config with environment variables.
func (c *Config) loadFromEnv() error {
	var errs []error
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v := os.Getenv(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("YTPLAN_SOURCE", &c.Source)
	num("YTPLAN_MAX_PAGES", &c.MaxPages)
	num("YTPLAN_CONCURRENCY", &c.Concurrency)
	duration("YTPLAN_HTTP_TIMEOUT", &c.HTTPTimeout)
	num("YTPLAN_MAX_RETRIES", &c.MaxRetries)
	duration("YTPLAN_INITIAL_BACKOFF", &c.InitialBackoff)
	duration("YTPLAN_MAX_BACKOFF", &c.MaxBackoff)
	float("YTPLAN_RPS", &c.RequestsPerSecond)
	str("YTPLAN_AI_MODEL", &c.AIModel)
	duration("YTPLAN_AI_TIMEOUT", &c.AITimeout)
	str("GOOGLE_GENERATIVE_AI_API_KEY", &c.GeminiAPIKey)
	str("GEMINI_API_KEY", &c.GeminiAPIKey)
	str("YOUTUBE_API_KEY", &c.YouTubeAPIKey)
	str("YTPLAN_STORE", &c.Store)
	str("YTPLAN_STORE_PATH", &c.StorePath)
	str("YTPLAN_LOG_LEVEL", &c.LogLevel)
	if v := os.Getenv("YTPLAN_LOG_JSON"); v != "" {
		c.LogJSON = v == "true" || v == "1"
	}

	return errors.Join(errs...)
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	switch c.Source {
	case SourceInnertube:
	case SourceDataAPI:
		if c.YouTubeAPIKey == "" {
			return fmt.Errorf("source %q requires youtube_api_key", SourceDataAPI)
		}
	default:
		return fmt.Errorf("unknown source %q", c.Source)
	}
	switch c.Store {
	case StoreJSON, StoreSQLite:
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}

	if c.MaxPages < 1 {
		return fmt.Errorf("max_pages must be at least 1")
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http_timeout must be positive")
	}
	if c.AITimeout <= 0 {
		return fmt.Errorf("ai_timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative")
	}
	if c.InitialBackoff <= 0 {
		return fmt.Errorf("initial_backoff must be positive")
	}
	if c.MaxBackoff <= 0 {
		return fmt.Errorf("max_backoff must be positive")
	}
	if c.MaxBackoff < c.InitialBackoff {
		return fmt.Errorf("max_backoff must be >= initial_backoff")
	}
	if c.BackoffMultiplier <= 1 {
		return fmt.Errorf("backoff_multiplier must be > 1")
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must be non-negative")
	}
	return nil
}

// RetryConfig returns the retry policy for network calls.
func (c *Config) RetryConfig() retry.Config {
	cfg := retry.CrawlConfig()
	cfg.MaxRetries = c.MaxRetries
	cfg.InitialBackoff = c.InitialBackoff
	cfg.MaxBackoff = c.MaxBackoff
	cfg.Multiplier = c.BackoffMultiplier
	return cfg
}

// HTTPConfig returns the HTTP client configuration.
func (c *Config) HTTPConfig() *ythttp.Config {
	cfg := ythttp.DefaultConfig()
	cfg.Timeout = c.HTTPTimeout
	cfg.Retry = c.RetryConfig()
	if c.RequestsPerSecond > 0 {
		cfg.RateLimiter.InnertubeRPS = c.RequestsPerSecond
	}
	return cfg
}

// StoreFile returns the routine store location, defaulting to a file under
// the user's data directory.
func (c *Config) StoreFile() string {
	if c.StorePath != "" {
		return c.StorePath
	}
	name := "routines.json"
	if c.Store == StoreSQLite {
		name = "routines.db"
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return filepath.Join(home, ".local", "share", "ytplan", name)
}
