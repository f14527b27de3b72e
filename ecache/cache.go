package ecache

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gammazero/channelqueue"
	logging "github.com/ipfs/go-log/v2"
	"github.com/thirdeye/go-rootcause/dispatch"
	"github.com/thirdeye/go-rootcause/model"
	"github.com/thirdeye/go-rootcause/urn"
	"golang.org/x/sync/singleflight"
)

var log = logging.Logger("ecache")

var ErrClosed = errors.New("cache closed")

// Update is an immutable snapshot of the cache state. It is published after
// every change. The maps and slices in an Update are shared and must not be
// modified.
type Update struct {
	// Context is the search context the state belongs to.
	Context model.SearchContext
	// Entities is the entity store.
	Entities model.Entities
	// Pending lists, in sorted order, the search frameworks that have not yet
	// responded for Context.
	Pending []model.Framework
	// Failed holds the error of each framework whose query failed for
	// Context.
	Failed map[model.Framework]error
}

// Cache coordinates entity queries for a root-cause workspace and merges
// their results into a single entity store.
type Cache struct {
	dispatcher   dispatch.Dispatcher
	queryTimeout time.Duration
	metrics      *metrics

	read atomic.Pointer[Update]

	// Write state. Only modified while holding writeLock.
	writeLock  sync.Mutex
	closed     bool
	context    model.SearchContext
	entities   model.Entities
	nativeURNs urn.Set
	pending    map[model.Framework]struct{}
	failed     map[model.Framework]error

	identityFlight singleflight.Group

	// closing is canceled by Close to stop in-flight queries.
	closing     context.Context
	cancelQuery context.CancelFunc
	queryWG     sync.WaitGroup

	subsMutex  sync.Mutex
	subs       []chan<- Update
	subsClosed bool
}

// New creates a new entity cache that sends its queries to d.
func New(d dispatch.Dispatcher, options ...Option) (*Cache, error) {
	if d == nil {
		return nil, errors.New("nil dispatcher")
	}
	opts, err := getOpts(options)
	if err != nil {
		return nil, err
	}

	closing, cancel := context.WithCancel(context.Background())
	c := &Cache{
		dispatcher:   d,
		queryTimeout: opts.queryTimeout,
		metrics:      newMetrics(opts.registerer),

		entities:   make(model.Entities),
		nativeURNs: make(urn.Set),
		pending:    make(map[model.Framework]struct{}),
		failed:     make(map[model.Framework]error),

		closing:     closing,
		cancelQuery: cancel,
	}
	c.publish()
	return c, nil
}

// Request applies a new search context and selection. It returns without
// waiting for any query; results are observed through the cache snapshots.
//
// The selected metric URNs that are not yet in the store are looked up by
// identity whenever the set of selected metric URNs changes. If the context
// differs from the stored context, then one query per search framework is
// started, unless the context has no URNs, in which case the store is
// narrowed to the selected URNs.
//
// An error wrapping model.ErrInvalidContext is returned if a context with URNs
// cannot be searched.
func (c *Cache) Request(sc model.SearchContext, urns urn.Set) error {
	if len(sc.URNs) != 0 {
		if err := sc.Validate(); err != nil {
			return err
		}
	}

	c.writeLock.Lock()
	defer c.writeLock.Unlock()

	if c.closed {
		return ErrClosed
	}

	var changed bool

	nativeURNs := urns.Filter(urn.MetricPrefix)
	if !nativeURNs.Equal(c.nativeURNs) {
		c.nativeURNs = nativeURNs
		missing := make(urn.Set)
		for u := range nativeURNs {
			if _, ok := c.entities[u]; ok {
				continue
			}
			if _, ok := c.entities[urn.StripTail(u)]; ok {
				continue
			}
			missing.Add(u)
		}
		if len(missing) != 0 {
			c.dispatchIdentity(sc.Clone(), urns.Clone(), missing)
		}
	}

	if !sc.Equal(c.context) {
		c.context = sc.Clone()
		c.pending = make(map[model.Framework]struct{})
		c.failed = make(map[model.Framework]error)

		if len(sc.URNs) == 0 {
			c.entities = narrow(c.entities, urns)
			log.Debugw("Narrowed entities to selection", "entities", len(c.entities))
		} else {
			for _, fw := range model.SearchFrameworks() {
				c.pending[fw] = struct{}{}
				c.dispatchFramework(fw, c.context.Clone(), urns.Clone())
			}
			log.Debugw("Dispatched search", "urns", len(sc.URNs), "selected", len(urns))
		}
		changed = true
	}

	if changed {
		c.publish()
	}
	return nil
}

// Entities returns a copy of the entity store.
func (c *Cache) Entities() model.Entities {
	return c.loadReadOnly().Entities.Clone()
}

// Pending returns the search frameworks still awaiting a response for the
// current context.
func (c *Cache) Pending() []model.Framework {
	pending := c.loadReadOnly().Pending
	if len(pending) == 0 {
		return nil
	}
	out := make([]model.Framework, len(pending))
	copy(out, pending)
	return out
}

// Loading reports whether any search framework is pending.
func (c *Cache) Loading() bool {
	return len(c.loadReadOnly().Pending) != 0
}

// Failed returns the errors of queries that failed for the current context.
func (c *Cache) Failed() map[model.Framework]error {
	failed := c.loadReadOnly().Failed
	out := make(map[model.Framework]error, len(failed))
	for fw, err := range failed {
		out[fw] = err
	}
	return out
}

// Context returns a copy of the stored search context.
func (c *Cache) Context() model.SearchContext {
	return c.loadReadOnly().Context.Clone()
}

// Snapshot returns the current state. Do not modify the maps or slices in
// the returned Update.
func (c *Cache) Snapshot() Update {
	return c.loadReadOnly()
}

// OnUpdate creates a channel that receives a snapshot after every change of
// the cache state, starting with the state at the time of the call.
//
// Calling the returned cancel function stops delivery and closes the channel.
// The channel is also closed when the cache is closed.
func (c *Cache) OnUpdate() (<-chan Update, context.CancelFunc) {
	cq := channelqueue.New[Update](-1)
	ch := cq.In()

	c.subsMutex.Lock()
	if c.subsClosed {
		c.subsMutex.Unlock()
		close(ch)
		return cq.Out(), func() {}
	}
	c.subs = append(c.subs, ch)
	ch <- c.loadReadOnly()
	c.subsMutex.Unlock()

	cncl := func() {
		c.subsMutex.Lock()
		defer c.subsMutex.Unlock()
		for i, sub := range c.subs {
			if sub == ch {
				c.subs[i] = c.subs[len(c.subs)-1]
				c.subs[len(c.subs)-1] = nil
				c.subs = c.subs[:len(c.subs)-1]
				close(ch)
				return
			}
		}
	}
	return cq.Out(), cncl
}

// Close stops all in-flight queries, waits for them to finish, and closes all
// update channels. Results that arrive during Close are discarded.
func (c *Cache) Close() {
	c.writeLock.Lock()
	if c.closed {
		c.writeLock.Unlock()
		return
	}
	c.closed = true
	c.writeLock.Unlock()

	c.cancelQuery()
	c.queryWG.Wait()

	c.subsMutex.Lock()
	for _, ch := range c.subs {
		close(ch)
	}
	c.subs = nil
	c.subsClosed = true
	c.subsMutex.Unlock()
}

func (c *Cache) dispatchFramework(fw model.Framework, sc model.SearchContext, pinned urn.Set) {
	c.metrics.queries.WithLabelValues(fw.String()).Inc()
	c.queryWG.Add(1)
	go func() {
		defer c.queryWG.Done()

		ctx, cancel := context.WithTimeout(c.closing, c.queryTimeout)
		defer cancel()

		list, err := c.dispatcher.FetchFramework(ctx, fw, sc)
		if err != nil {
			c.fail(sc, fw, nil, err)
			return
		}
		c.complete(sc, pinned, nil, model.EntitiesFromList(list), fw)
	}()
}

// dispatchIdentity looks up the missing URNs. Lookups for the same set of
// URNs that overlap in time share a single query. If the lookup fails or its
// result is discarded, the URNs it did not resolve are looked up again by the
// next Request that selects them.
func (c *Cache) dispatchIdentity(sc model.SearchContext, pinned, missing urn.Set) {
	c.queryWG.Add(1)
	go func() {
		defer c.queryWG.Done()

		var leader bool
		v, err, shared := c.identityFlight.Do(missing.Key(), func() (interface{}, error) {
			leader = true
			c.metrics.queries.WithLabelValues(model.Identity.String()).Inc()
			ctx, cancel := context.WithTimeout(c.closing, c.queryTimeout)
			defer cancel()
			return c.dispatcher.FetchIdentity(ctx, missing)
		})
		if shared && !leader {
			c.metrics.identityShared.Inc()
		}
		if err != nil {
			c.fail(sc, model.Identity, missing, err)
			return
		}
		list, _ := v.([]model.Entity)
		c.complete(sc, pinned, missing, model.EntitiesFromList(list), model.Identity)
	}()
}

// complete merges the results of a query that was dispatched for reqCtx. The
// results are discarded if reqCtx is no longer the stored context. lookup is
// the set of URNs an identity query was sent for, and nil for searches.
func (c *Cache) complete(reqCtx model.SearchContext, pinned, lookup urn.Set, incoming model.Entities, fw model.Framework) {
	c.writeLock.Lock()
	defer c.writeLock.Unlock()

	if c.closed {
		return
	}
	if !c.context.Equal(reqCtx) {
		log.Debugw("Discarding result for previous context", "framework", fw, "entities", len(incoming))
		c.metrics.completions.WithLabelValues(fw.String(), resultStale).Inc()
		c.forgetUnresolved(lookup)
		return
	}

	c.entities = Merge(c.entities, pinned, incoming, fw)
	delete(c.pending, fw)
	c.metrics.completions.WithLabelValues(fw.String(), resultMerged).Inc()
	c.publish()
}

// fail records a failed query that was dispatched for reqCtx.
func (c *Cache) fail(reqCtx model.SearchContext, fw model.Framework, lookup urn.Set, err error) {
	c.writeLock.Lock()
	defer c.writeLock.Unlock()

	if c.closed {
		return
	}
	c.forgetUnresolved(lookup)
	if !c.context.Equal(reqCtx) {
		log.Debugw("Discarding error for previous context", "framework", fw, "err", err)
		c.metrics.completions.WithLabelValues(fw.String(), resultStale).Inc()
		return
	}

	log.Errorw("Query failed", "framework", fw, "err", err)
	c.failed[fw] = err
	delete(c.pending, fw)
	c.metrics.completions.WithLabelValues(fw.String(), resultFailed).Inc()
	c.publish()
}

// forgetUnresolved removes the looked up URNs that are still not in the store
// from the recorded selection, so that the next Request with them selected
// looks them up again. Must be called while holding writeLock.
func (c *Cache) forgetUnresolved(lookup urn.Set) {
	for u := range lookup {
		if _, ok := c.entities[u]; ok {
			continue
		}
		if _, ok := c.entities[urn.StripTail(u)]; ok {
			continue
		}
		delete(c.nativeURNs, u)
	}
}

// publish stores a new read-only snapshot and sends it to all subscribers.
// Must be called while holding writeLock, or before the cache is shared.
func (c *Cache) publish() {
	pending := make([]model.Framework, 0, len(c.pending))
	for fw := range c.pending {
		pending = append(pending, fw)
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i] < pending[j] })

	failed := make(map[model.Framework]error, len(c.failed))
	for fw, err := range c.failed {
		failed[fw] = err
	}

	u := &Update{
		Context:  c.context.Clone(),
		Entities: c.entities,
		Pending:  pending,
		Failed:   failed,
	}
	c.read.Store(u)

	c.metrics.entities.Set(float64(len(c.entities)))
	c.metrics.pending.Set(float64(len(c.pending)))

	c.subsMutex.Lock()
	for _, ch := range c.subs {
		ch <- *u
	}
	c.subsMutex.Unlock()
}

func (c *Cache) loadReadOnly() Update {
	if p := c.read.Load(); p != nil {
		return *p
	}
	return Update{}
}
