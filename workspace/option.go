package workspace

import (
	"fmt"
)

type config struct {
	timeseries Requester
	breakdowns Requester
	aggregates Requester
}

// Option is a function that sets a value in a config.
type Option func(*config) error

// getOpts creates a config and applies Options to it.
func getOpts(opts []Option) (config, error) {
	var cfg config
	for i, opt := range opts {
		if err := opt(&cfg); err != nil {
			return config{}, fmt.Errorf("option %d failed: %s", i, err)
		}
	}
	return cfg, nil
}

// WithTimeseries sets the cache that loads timeseries for the selection.
func WithTimeseries(r Requester) Option {
	return func(cfg *config) error {
		cfg.timeseries = r
		return nil
	}
}

// WithBreakdowns sets the cache that loads dimension breakdowns for the
// selection.
func WithBreakdowns(r Requester) Option {
	return func(cfg *config) error {
		cfg.breakdowns = r
		return nil
	}
}

// WithAggregates sets the cache that loads aggregate values. Its URNs are
// derived from the metrics in the entity cache, not from the selection.
func WithAggregates(r Requester) Option {
	return func(cfg *config) error {
		cfg.aggregates = r
		return nil
	}
}
