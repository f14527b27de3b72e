// Package workspace drives the caches of a root-cause analysis workspace from
// a single search context and selection.
//
// The entity, timeseries and breakdown caches are requested with the user's
// selection. The aggregates cache is requested with the current and baseline
// variants of every metric in the entity cache, so it must be requested again
// whenever the entity cache changes. Run does that.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
	logging "github.com/ipfs/go-log/v2"
	"github.com/thirdeye/go-rootcause/ecache"
	"github.com/thirdeye/go-rootcause/model"
	"github.com/thirdeye/go-rootcause/urn"
)

var log = logging.Logger("workspace")

// Requester is implemented by every cache that is driven by the workspace.
type Requester interface {
	// Request applies a search context and the URNs to load for it.
	Request(model.SearchContext, urn.Set) error
}

// ecache.Cache must implement Requester.
var _ Requester = (*ecache.Cache)(nil)

// Workspace holds the caches of one analysis session.
type Workspace struct {
	entities   *ecache.Cache
	timeseries Requester
	breakdowns Requester
	aggregates Requester

	mutex         sync.Mutex
	hasContext    bool
	context       model.SearchContext
	selected      urn.Set
	aggregateURNs urn.Set
}

// New creates a workspace around an entity cache.
func New(entities *ecache.Cache, options ...Option) (*Workspace, error) {
	if entities == nil {
		return nil, errors.New("nil entity cache")
	}
	opts, err := getOpts(options)
	if err != nil {
		return nil, err
	}
	return &Workspace{
		entities:   entities,
		timeseries: opts.timeseries,
		breakdowns: opts.breakdowns,
		aggregates: opts.aggregates,
	}, nil
}

// AggregateURNs returns the current and baseline variants of every metric in
// entities.
func AggregateURNs(entities model.Entities) urn.Set {
	out := make(urn.Set)
	for _, u := range urn.FilterPrefix(entities.URNs(), urn.MetricPrefix) {
		out.Add(urn.ToCurrent(u))
		out.Add(urn.ToBaseline(u))
	}
	return out
}

// Update requests every cache with the search context and selection. Errors
// from all caches are returned together; a failing cache does not stop the
// others from being requested.
func (w *Workspace) Update(sc model.SearchContext, selected urn.Set) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	w.hasContext = true
	w.context = sc.Clone()
	w.selected = selected.Clone()

	var errs error
	if err := w.entities.Request(sc, selected); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("entities: %w", err))
	}
	if w.timeseries != nil {
		if err := w.timeseries.Request(sc, selected); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("timeseries: %w", err))
		}
	}
	if w.breakdowns != nil {
		if err := w.breakdowns.Request(sc, selected); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("breakdowns: %w", err))
		}
	}
	if err := w.requestAggregates(AggregateURNs(w.entities.Entities()), true); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("aggregates: %w", err))
	}
	return errs
}

// Run requests the aggregates cache again each time the metrics in the entity
// cache change. It returns when ctx is canceled or the entity cache is
// closed.
func (w *Workspace) Run(ctx context.Context) error {
	updates, cancel := w.entities.OnUpdate()
	defer func() {
		cancel()
		for range updates {
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			w.mutex.Lock()
			err := w.requestAggregates(AggregateURNs(u.Entities), false)
			w.mutex.Unlock()
			if err != nil {
				log.Errorw("Cannot request aggregates", "err", err)
			}
		}
	}
}

// Entities returns the current entity set.
func (w *Workspace) Entities() model.Entities {
	return w.entities.Entities()
}

// Loading reports whether the entity search is still in progress.
func (w *Workspace) Loading() bool {
	return w.entities.Loading()
}

// Selected returns a copy of the current selection.
func (w *Workspace) Selected() urn.Set {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.selected.Clone()
}

// requestAggregates requests the aggregates cache with urns. Unless force is
// set, nothing is requested if urns has not changed. Must be called while
// holding the mutex.
func (w *Workspace) requestAggregates(urns urn.Set, force bool) error {
	if w.aggregates == nil || !w.hasContext {
		return nil
	}
	if !force && urns.Equal(w.aggregateURNs) {
		return nil
	}
	w.aggregateURNs = urns
	log.Debugw("Requesting aggregates", "urns", len(urns))
	return w.aggregates.Request(w.context, urns)
}
