package httpdispatch

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

const (
	defaultHTTPTimeout  = 30 * time.Second
	defaultRetryWaitMin = 500 * time.Millisecond
	defaultRetryWaitMax = 5 * time.Second
)

type config struct {
	httpClient   *http.Client
	httpTimeout  time.Duration
	header       http.Header
	retryMax     int
	retryWaitMin time.Duration
	retryWaitMax time.Duration
}

// Option is a function that sets a value in a config.
type Option func(*config) error

// getOpts creates a config and applies Options to it.
func getOpts(opts []Option) (config, error) {
	cfg := config{
		httpTimeout:  defaultHTTPTimeout,
		retryWaitMin: defaultRetryWaitMin,
		retryWaitMax: defaultRetryWaitMax,
	}
	for i, opt := range opts {
		if err := opt(&cfg); err != nil {
			return config{}, fmt.Errorf("option %d failed: %s", i, err)
		}
	}
	return cfg, nil
}

// WithClient sets the http client used to send queries. The client's timeout
// is left as is.
func WithClient(c *http.Client) Option {
	return func(cfg *config) error {
		if c != nil {
			cfg.httpClient = c
		}
		return nil
	}
}

// WithTimeout sets the time limit for a single HTTP request when no client is
// given with WithClient.
//
// Default is 30 seconds.
func WithTimeout(timeout time.Duration) Option {
	return func(cfg *config) error {
		if timeout < 0 {
			return errors.New("timeout must not be negative")
		}
		cfg.httpTimeout = timeout
		return nil
	}
}

// WithHeader adds a header that is sent with every query.
func WithHeader(key, value string) Option {
	return func(cfg *config) error {
		if cfg.header == nil {
			cfg.header = make(http.Header)
		}
		cfg.header.Add(key, value)
		return nil
	}
}

// WithRetry configures retrying of failed queries. A query is retried on
// connection errors and on 429 or 5xx responses, up to retryMax times, waiting
// between waitMin and waitMax with exponential backoff. A retryMax of 0
// disables retries.
//
// Default is no retries.
func WithRetry(retryMax int, waitMin, waitMax time.Duration) Option {
	return func(cfg *config) error {
		if retryMax < 0 {
			return errors.New("retry max must not be negative")
		}
		if waitMax != 0 && waitMin > waitMax {
			return errors.New("retry wait min is greater than wait max")
		}
		cfg.retryMax = retryMax
		if waitMin != 0 {
			cfg.retryWaitMin = waitMin
		}
		if waitMax != 0 {
			cfg.retryWaitMax = waitMax
		}
		return nil
	}
}
