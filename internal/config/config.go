package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Validation errors.
var (
	ErrMissingVariables   = errors.New("missing environment variables")
	ErrInvalidPageSize    = errors.New("PRODUCTS_PER_PAGE must be between 1 and 100")
	ErrInvalidMaxPages    = errors.New("MAX_PAGES must be non-negative")
	ErrInvalidDiscount    = errors.New("DISCOUNT_PERCENTAGE must be between 0 and 100")
	ErrInvalidCacheTTL    = errors.New("CACHE_DURATION_MINUTES must be non-negative")
	ErrInvalidMaxErrors   = errors.New("MAX_CONSECUTIVE_ERRORS must be at least 1")
	ErrInvalidTimeout     = errors.New("REQUEST_TIMEOUT_SECONDS must be at least 1")
	ErrInvalidRetryDelay  = errors.New("RETRY_DELAY_MS must be non-negative")
	ErrInvalidSourceDelay = errors.New("catalog request delay must be non-negative")
)

// Source describes one store product endpoint. The consumer key and secret
// are passed through as basic auth credentials.
type Source struct {
	Name           string        `yaml:"name"`
	URL            string        `yaml:"url"`
	ConsumerKey    string        `yaml:"consumer_key"`
	ConsumerSecret string        `yaml:"consumer_secret"`
	RequestDelay   time.Duration `yaml:"request_delay"`
}

type Config struct {
	Source    Source `yaml:"source"`
	Reference Source `yaml:"reference"`

	PageSize             int           `yaml:"products_per_page"`
	MaxPages             int           `yaml:"max_pages"`
	DiscountPercentage   int           `yaml:"discount_percentage"`
	CacheTTL             time.Duration `yaml:"cache_ttl"`
	RetryDelay           time.Duration `yaml:"retry_delay"`
	MaxConsecutiveErrors int           `yaml:"max_consecutive_errors"`
	RequestTimeout       time.Duration `yaml:"request_timeout"`
	UserAgent            string        `yaml:"user_agent"`

	DatabaseURL string `yaml:"database_url"`
	RedisURL    string `yaml:"redis_url"`
	MetricsPort string `yaml:"metrics_port"`
	ListenAddr  string `yaml:"listen_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Source: Source{
			Name:         "source",
			RequestDelay: 500 * time.Millisecond,
		},
		Reference: Source{
			Name:         "reference",
			RequestDelay: time.Second,
		},
		PageSize:             100,
		MaxPages:             0,
		DiscountPercentage:   35,
		CacheTTL:             30 * time.Minute,
		RetryDelay:           2 * time.Second,
		MaxConsecutiveErrors: 3,
		RequestTimeout:       30 * time.Second,
		UserAgent:            "catalogsync/1.0",
		MetricsPort:          "9090",
		ListenAddr:           ":8080",
		LogLevel:             "info",
	}
}

// Load resolves the configuration: defaults, then the optional YAML file at
// path (or CATALOGSYNC_CONFIG), then environment variables. A .env file in
// the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path == "" {
		path = os.Getenv("CATALOGSYNC_CONFIG")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	return nil
}

func (c *Config) applyEnv() {
	applySource(&c.Source, "SOURCE")
	applySource(&c.Reference, "REFERENCE")

	c.PageSize = getEnvInt("PRODUCTS_PER_PAGE", c.PageSize)
	c.MaxPages = getEnvInt("MAX_PAGES", c.MaxPages)
	c.DiscountPercentage = getEnvInt("DISCOUNT_PERCENTAGE", c.DiscountPercentage)
	c.CacheTTL = getEnvDuration("CACHE_DURATION_MINUTES", time.Minute, c.CacheTTL)
	c.RetryDelay = getEnvDuration("RETRY_DELAY_MS", time.Millisecond, c.RetryDelay)
	c.MaxConsecutiveErrors = getEnvInt("MAX_CONSECUTIVE_ERRORS", c.MaxConsecutiveErrors)
	c.RequestTimeout = getEnvDuration("REQUEST_TIMEOUT_SECONDS", time.Second, c.RequestTimeout)
	c.UserAgent = getEnv("USER_AGENT", c.UserAgent)

	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.RedisURL = getEnv("REDIS_URL", c.RedisURL)
	c.MetricsPort = getEnv("METRICS_PORT", c.MetricsPort)
	c.ListenAddr = getEnv("LISTEN_ADDR", c.ListenAddr)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
}

func applySource(s *Source, prefix string) {
	s.Name = getEnv(prefix+"_NAME", s.Name)
	s.URL = getEnv(prefix+"_URL", s.URL)
	s.ConsumerKey = getEnv(prefix+"_CONSUMER_KEY", s.ConsumerKey)
	s.ConsumerSecret = getEnv(prefix+"_CONSUMER_SECRET", s.ConsumerSecret)
	s.RequestDelay = getEnvDuration(prefix+"_DELAY_MS", time.Millisecond, s.RequestDelay)
}

// Validate checks that both catalogs are reachable and numeric settings are
// in range. It must pass before any fetch starts.
func (c *Config) Validate() error {
	var missing []string

	for _, src := range []struct {
		prefix string
		source Source
	}{
		{"SOURCE", c.Source},
		{"REFERENCE", c.Reference},
	} {
		if src.source.URL == "" {
			missing = append(missing, src.prefix+"_URL")
		}
		if src.source.ConsumerKey == "" {
			missing = append(missing, src.prefix+"_CONSUMER_KEY")
		}
		if src.source.ConsumerSecret == "" {
			missing = append(missing, src.prefix+"_CONSUMER_SECRET")
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingVariables, strings.Join(missing, ", "))
	}

	if c.PageSize < 1 || c.PageSize > 100 {
		return ErrInvalidPageSize
	}

	if c.MaxPages < 0 {
		return ErrInvalidMaxPages
	}

	if c.DiscountPercentage < 0 || c.DiscountPercentage > 100 {
		return ErrInvalidDiscount
	}

	if c.CacheTTL < 0 {
		return ErrInvalidCacheTTL
	}

	if c.MaxConsecutiveErrors < 1 {
		return ErrInvalidMaxErrors
	}

	if c.RequestTimeout < time.Second {
		return ErrInvalidTimeout
	}

	if c.RetryDelay < 0 {
		return ErrInvalidRetryDelay
	}

	if c.Source.RequestDelay < 0 || c.Reference.RequestDelay < 0 {
		return ErrInvalidSourceDelay
	}

	return nil
}

// String returns a summary without credentials.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Source: %s, Reference: %s, PageSize: %d, MaxPages: %d, Discount: %d%%, CacheTTL: %s}",
		c.Source.Name,
		c.Reference.Name,
		c.PageSize,
		c.MaxPages,
		c.DiscountPercentage,
		c.CacheTTL,
	)
}

func getEnv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getEnvInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}

	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return d
	}
	return n
}

func getEnvDuration(k string, unit time.Duration, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}

	n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return d
	}
	return time.Duration(n * float64(unit))
}
