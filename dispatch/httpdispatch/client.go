// Package httpdispatch implements dispatch.Dispatcher over the root-cause
// HTTP API.
package httpdispatch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	logging "github.com/ipfs/go-log/v2"
	"github.com/thirdeye/go-rootcause/apierror"
	"github.com/thirdeye/go-rootcause/dispatch"
	"github.com/thirdeye/go-rootcause/model"
	"github.com/thirdeye/go-rootcause/urn"
)

var log = logging.Logger("httpdispatch")

const (
	queryPath = "rootcause/query"
	rawPath   = "rootcause/raw"
)

// Dispatcher sends framework and identity queries to a root-cause server.
type Dispatcher struct {
	c        *http.Client
	header   http.Header
	queryURL *url.URL
	rawURL   *url.URL
}

// Dispatcher must implement dispatch.Dispatcher.
var _ dispatch.Dispatcher = (*Dispatcher)(nil)

// New creates a new Dispatcher for the server at baseURL.
func New(baseURL string, options ...Option) (*Dispatcher, error) {
	opts, err := getOpts(options)
	if err != nil {
		return nil, err
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("url must have http or https scheme: %s", baseURL)
	}
	u.RawQuery = ""
	u.Fragment = ""

	httpClient := opts.httpClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: opts.httpTimeout,
		}
	}
	if opts.retryMax != 0 {
		rclient := &retryablehttp.Client{
			HTTPClient:   httpClient,
			Logger:       retryLogger{},
			RetryWaitMin: opts.retryWaitMin,
			RetryWaitMax: opts.retryWaitMax,
			RetryMax:     opts.retryMax,
			CheckRetry:   retryablehttp.DefaultRetryPolicy,
			Backoff:      retryablehttp.DefaultBackoff,
			// Return the last response so that its status reaches apierror.
			ErrorHandler: retryablehttp.PassthroughErrorHandler,
		}
		httpClient = rclient.StandardClient()
	}

	return &Dispatcher{
		c:        httpClient,
		header:   opts.header,
		queryURL: u.JoinPath(queryPath),
		rawURL:   u.JoinPath(rawPath),
	}, nil
}

// FetchFramework queries a relevance-search framework. The search URNs sent
// are the context's metric and dimension URNs with tails removed.
func (d *Dispatcher) FetchFramework(ctx context.Context, fw model.Framework, sc model.SearchContext) ([]model.Entity, error) {
	baseline := sc.BaselineRange()
	q := url.Values{}
	q.Set("framework", fw.String())
	q.Set("anomalyStart", strconv.FormatInt(sc.AnomalyRange.Start, 10))
	q.Set("anomalyEnd", strconv.FormatInt(sc.AnomalyRange.End, 10))
	q.Set("baselineStart", strconv.FormatInt(baseline.Start, 10))
	q.Set("baselineEnd", strconv.FormatInt(baseline.End, 10))
	q.Set("analysisStart", strconv.FormatInt(sc.AnalysisRange.Start, 10))
	q.Set("analysisEnd", strconv.FormatInt(sc.AnalysisRange.End, 10))
	q.Set("urns", sc.URNs.Filter(urn.MetricPrefix, urn.DimensionPrefix).BaseSet().Key())

	u := *d.queryURL
	u.RawQuery = q.Encode()
	return d.fetch(ctx, &u)
}

// FetchIdentity looks up the entities for the given URNs, with tails
// removed.
func (d *Dispatcher) FetchIdentity(ctx context.Context, urns urn.Set) ([]model.Entity, error) {
	q := url.Values{}
	q.Set("framework", model.Identity.String())
	q.Set("urns", urns.BaseSet().Key())

	u := *d.rawURL
	u.RawQuery = q.Encode()
	return d.fetch(ctx, &u)
}

func (d *Dispatcher) fetch(ctx context.Context, u *url.URL) ([]model.Entity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	for key, vals := range d.header {
		for _, val := range vals {
			req.Header.Add(key, val)
		}
	}
	req.Header.Add("Accept", "application/json")

	resp, err := d.c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, apierror.FromResponse(resp.StatusCode, body)
	}

	entities, err := model.DecodeEntities(body)
	if err != nil {
		return nil, err
	}
	log.Debugw("Fetched entities", "url", u.Path, "framework", u.Query().Get("framework"), "count", len(entities))
	return entities, nil
}

func (d *Dispatcher) String() string {
	return strings.TrimSuffix(d.queryURL.String(), "/"+queryPath)
}

// retryLogger routes retryablehttp logging to the package logger.
type retryLogger struct{}

func (retryLogger) Error(msg string, keysAndValues ...interface{}) {
	log.Errorw(msg, keysAndValues...)
}

func (retryLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Infow(msg, keysAndValues...)
}

func (retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	log.Debugw(msg, keysAndValues...)
}

func (retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	log.Warnw(msg, keysAndValues...)
}
