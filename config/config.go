// Package config provides YAML configuration parsing for TablePulse.
//
// This package enables running TablePulse as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
// The service endpoint and access key never appear in the file; they come
// from the environment (see tablepulse.ServiceFromEnv).
//
// Example configuration:
//
//	title: Support tickets
//	port: 8080
//	table: tickets
//	poll_interval: 5s
//	order_by: created_at.desc
//	request_timeout: 10s
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultPort         = 8080
	defaultPollInterval = 5 * time.Second
)

// tableNamePattern mirrors the SDK's table name rule.
var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config is the root configuration structure for TablePulse.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Title is the page title. Defaults to "TablePulse" if not set.
	Title string `yaml:"title"`

	// Port is the HTTP server port. Defaults to 8080.
	Port int `yaml:"port"`

	// Table is the name of the hosted table to watch. Required.
	Table string `yaml:"table"`

	// PollInterval is the time between fetches.
	// Accepts duration strings like "10s", "1m", "500ms", or the word
	// "once" to fetch a single time and never arm a timer.
	// Defaults to 5s.
	PollInterval Duration `yaml:"poll_interval"`

	// OrderBy is an optional ordering clause (service syntax, e.g.
	// "created_at.desc"). Empty means natural order.
	OrderBy string `yaml:"order_by"`

	// RequestTimeout is the per-query timeout. Defaults to 10s.
	RequestTimeout Duration `yaml:"request_timeout"`
}

// Duration wraps time.Duration for YAML unmarshalling. The special value
// "once" parses to a negative duration, which the poll loop treats as
// "fetch once, arm no timer".
type Duration time.Duration

// Once is the Duration value representing one-shot polling.
const Once = Duration(-1)

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	if strings.EqualFold(strings.TrimSpace(s), "once") {
		*d = Once
		return nil
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load reads and parses a YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML config data, applies defaults, and validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in zero-valued optional fields. A PollInterval of
// exactly zero means "not set" in YAML terms; one-shot polling is spelled
// "once" so the two cannot be confused.
func applyDefaults(cfg *Config) {
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = Duration(defaultPollInterval)
	}
}

func validate(cfg *Config) error {
	if cfg.Table == "" {
		return fmt.Errorf("table is required")
	}
	if !tableNamePattern.MatchString(cfg.Table) {
		return fmt.Errorf("invalid table name %q: must match %s", cfg.Table, tableNamePattern.String())
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", cfg.Port)
	}
	if cfg.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout cannot be negative")
	}
	return nil
}
