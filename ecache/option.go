package ecache

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const defaultQueryTimeout = time.Minute

type config struct {
	queryTimeout time.Duration
	registerer   prometheus.Registerer
}

// Option is a function that sets a value in a config.
type Option func(*config) error

// getOpts creates a config and applies Options to it.
func getOpts(opts []Option) (config, error) {
	cfg := config{
		queryTimeout: defaultQueryTimeout,
	}
	for i, opt := range opts {
		if err := opt(&cfg); err != nil {
			return config{}, fmt.Errorf("option %d failed: %s", i, err)
		}
	}
	return cfg, nil
}

// WithQueryTimeout sets the time limit for each framework or identity query.
// A query that does not finish in time is treated as failed.
//
// Default is 1 minute.
func WithQueryTimeout(timeout time.Duration) Option {
	return func(cfg *config) error {
		if timeout <= 0 {
			return errors.New("query timeout must be positive")
		}
		cfg.queryTimeout = timeout
		return nil
	}
}

// WithRegisterer registers the cache metrics with reg. If not set, metrics are
// collected but not registered.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(cfg *config) error {
		cfg.registerer = reg
		return nil
	}
}
