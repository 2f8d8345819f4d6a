package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config is the complete clinmatch configuration. It is built once at process start
// and passed explicitly into the pipeline; the core never reads the environment.
type Config struct {
	Resolver    ResolverConfig    `yaml:"resolver" mapstructure:"resolver"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Reducer     ReducerConfig     `yaml:"reducer" mapstructure:"reducer"`
	Dedupe      DedupeConfig      `yaml:"dedupe" mapstructure:"dedupe"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
	Logging     LoggingConfig     `yaml:"logging" mapstructure:"logging"`
}

// ResolverConfig describes how to reach the disease matching service
type ResolverConfig struct {
	URL          string        `yaml:"url" mapstructure:"url"`
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"` // Per request
	Language     string        `yaml:"language" mapstructure:"language"`
	TopK         int           `yaml:"top_k" mapstructure:"top_k"`
	SendContext  bool          `yaml:"send_context" mapstructure:"send_context"` // Attach full row context to each request
	Retries      int           `yaml:"retries" mapstructure:"retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff" mapstructure:"retry_backoff"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`

	HTTPProxy  string `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy string `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy    string `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`

	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"` // 0 disables throttling
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// ConcurrencyConfig bounds the number of resolver calls in flight
type ConcurrencyConfig struct {
	Limit int `yaml:"limit" mapstructure:"limit"`
}

// ReducerConfig controls candidate reduction
type ReducerConfig struct {
	Lookahead int `yaml:"lookahead" mapstructure:"lookahead"` // Alternatives scanned after the primary
}

// DedupeConfig controls in-run memoization of identical lookups.
// Entries live only for the lifetime of the process.
type DedupeConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	TTL     time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// OutputConfig controls where annotated tables go
type OutputConfig struct {
	Dir          string `yaml:"dir,omitempty" mapstructure:"dir"`
	Verbose      bool   `yaml:"verbose" mapstructure:"verbose"`
	WritePartial bool   `yaml:"write_partial" mapstructure:"write_partial"`
}

// LoggingConfig controls the structured logger
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // console or json
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Resolver: ResolverConfig{
			URL:          "http://localhost:8002",
			Timeout:      60 * time.Second,
			Language:     "ru",
			TopK:         10,
			SendContext:  true,
			Retries:      0,
			RetryBackoff: 2 * time.Second,
			UserAgent:    "clinmatch/0.1 (+https://github.com/ppiankov/clinmatch)",
			Burst:        5,
		},
		Concurrency: ConcurrencyConfig{
			Limit: 5,
		},
		Reducer: ReducerConfig{
			Lookahead: 3,
		},
		Dedupe: DedupeConfig{
			Enabled: false,
			TTL:     30 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// ErrInvalidConfig is returned by Validate
var ErrInvalidConfig = errors.New("invalid config")

// Validate checks the values the pipeline cannot run without
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Resolver.URL) == "" {
		problems = append(problems, "resolver.url is empty")
	}
	if c.Resolver.Timeout <= 0 {
		problems = append(problems, "resolver.timeout must be positive")
	}
	if c.Resolver.Retries < 0 {
		problems = append(problems, "resolver.retries must not be negative")
	}
	if c.Resolver.RequestsPerSecond < 0 {
		problems = append(problems, "resolver.requests_per_second must not be negative")
	}
	if c.Concurrency.Limit <= 0 {
		problems = append(problems, "concurrency.limit must be positive")
	}
	if c.Reducer.Lookahead < 0 {
		problems = append(problems, "reducer.lookahead must not be negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
