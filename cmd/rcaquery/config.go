package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	defaultHTTPTimeout  = 30 * time.Second
	defaultQueryTimeout = time.Minute
	defaultWait         = 2 * time.Minute
)

// Config is the rcaquery configuration file.
type Config struct {
	// Server is the base URL of the root-cause server.
	Server string `yaml:"server"`
	// HTTPTimeout limits a single HTTP request.
	HTTPTimeout time.Duration `yaml:"http_timeout"`
	// QueryTimeout limits one framework query, including retries.
	QueryTimeout time.Duration `yaml:"query_timeout"`
	// Wait limits how long to wait for all frameworks to respond.
	Wait time.Duration `yaml:"wait"`
	// Retry configures retrying of failed requests.
	Retry RetryConfig `yaml:"retry"`
	// Headers are sent with every request. Values starting with "$" are
	// read from the named environment variable.
	Headers map[string]string `yaml:"headers"`
}

// RetryConfig configures HTTP retries. A zero Max disables retries.
type RetryConfig struct {
	Max     int           `yaml:"max"`
	WaitMin time.Duration `yaml:"wait_min"`
	WaitMax time.Duration `yaml:"wait_max"`
}

// LoadConfig reads the config file at path. An empty path returns the
// defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("cannot read config: %w", err)
		}
		if err = yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("cannot parse config %s: %w", path, err)
		}
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.HTTPTimeout == 0 {
		c.HTTPTimeout = defaultHTTPTimeout
	}
	if c.QueryTimeout == 0 {
		c.QueryTimeout = defaultQueryTimeout
	}
	if c.Wait == 0 {
		c.Wait = defaultWait
	}
}

// Validate checks the config after flags have been applied.
func (c *Config) Validate() error {
	if c.Server == "" {
		return errors.New("server is not set")
	}
	u, err := url.Parse(c.Server)
	if err != nil {
		return fmt.Errorf("invalid server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("server url must have http or https scheme: %s", c.Server)
	}
	if c.Retry.Max < 0 {
		return errors.New("retry max must not be negative")
	}
	if c.Retry.WaitMin > c.Retry.WaitMax && c.Retry.WaitMax != 0 {
		return errors.New("retry wait_min is greater than wait_max")
	}
	if c.HTTPTimeout < 0 || c.QueryTimeout < 0 || c.Wait < 0 {
		return errors.New("timeouts must not be negative")
	}
	return nil
}

// header returns the header value, resolving environment references.
func header(value string) string {
	if len(value) > 1 && value[0] == '$' {
		return os.Getenv(value[1:])
	}
	return value
}
