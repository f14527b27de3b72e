package workspace_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/require"
	"github.com/thirdeye/go-rootcause/dispatch"
	"github.com/thirdeye/go-rootcause/ecache"
	"github.com/thirdeye/go-rootcause/internal/test"
	"github.com/thirdeye/go-rootcause/model"
	"github.com/thirdeye/go-rootcause/urn"
	"github.com/thirdeye/go-rootcause/workspace"
	"go.uber.org/goleak"
)

const (
	metric1 = "thirdeye:metric:1"
	metric2 = "thirdeye:metric:2:country=us"
	event1  = "thirdeye:event:holiday:1"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type request struct {
	sc   model.SearchContext
	urns urn.Set
}

type recorder struct {
	mutex    sync.Mutex
	requests []request
	err      error
}

func (r *recorder) Request(sc model.SearchContext, urns urn.Set) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.requests = append(r.requests, request{sc: sc.Clone(), urns: urns.Clone()})
	return r.err
}

func (r *recorder) last() (request, int) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if len(r.requests) == 0 {
		return request{}, 0
	}
	return r.requests[len(r.requests)-1], len(r.requests)
}

// searchDispatcher answers relatedMetrics with the given metrics and every
// other query with nothing.
func searchDispatcher(metrics ...string) dispatch.Dispatcher {
	return dispatch.Funcs{
		Framework: func(_ context.Context, fw model.Framework, _ model.SearchContext) ([]model.Entity, error) {
			if fw != model.RelatedMetrics {
				return nil, nil
			}
			var out []model.Entity
			for _, u := range metrics {
				out = append(out, model.Entity{URN: u, Type: "metric", Score: 1})
			}
			return out, nil
		},
	}
}

func newEntityCache(t *testing.T, d dispatch.Dispatcher) *ecache.Cache {
	c, err := ecache.New(d)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestAggregateURNs(t *testing.T) {
	entities := model.Entities{
		metric1: {URN: metric1},
		metric2: {URN: metric2},
		event1:  {URN: event1},
	}
	want := urn.NewSet(
		"frontend:metric:current:1",
		"frontend:metric:baseline:1",
		"frontend:metric:current:2:country=us",
		"frontend:metric:baseline:2:country=us",
	)
	require.True(t, want.Equal(workspace.AggregateURNs(entities)))
	require.Empty(t, workspace.AggregateURNs(nil))
}

func TestUpdateRequestsAllCaches(t *testing.T) {
	entities := newEntityCache(t, searchDispatcher())
	ts, bd, agg := &recorder{}, &recorder{}, &recorder{}

	w, err := workspace.New(entities,
		workspace.WithTimeseries(ts),
		workspace.WithBreakdowns(bd),
		workspace.WithAggregates(agg))
	require.NoError(t, err)

	sc := test.RandomContext(event1)
	selected := urn.NewSet(event1)
	require.NoError(t, w.Update(sc, selected))

	for _, r := range []*recorder{ts, bd} {
		req, n := r.last()
		require.Equal(t, 1, n)
		require.True(t, sc.Equal(req.sc))
		require.True(t, selected.Equal(req.urns))
	}
	req, n := agg.last()
	require.Equal(t, 1, n)
	require.True(t, sc.Equal(req.sc))
	require.Empty(t, req.urns)
	require.True(t, selected.Equal(w.Selected()))
}

func TestUpdateCombinesErrors(t *testing.T) {
	entities := newEntityCache(t, searchDispatcher())
	errTS := errors.New("timeseries down")
	errBD := errors.New("breakdowns down")

	w, err := workspace.New(entities,
		workspace.WithTimeseries(&recorder{err: errTS}),
		workspace.WithBreakdowns(&recorder{err: errBD}))
	require.NoError(t, err)

	sc := test.RandomContext(event1)
	sc.AnalysisRange = model.Range{}
	err = w.Update(sc, nil)
	require.ErrorIs(t, err, model.ErrInvalidContext)
	require.ErrorIs(t, err, errTS)
	require.ErrorIs(t, err, errBD)

	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	require.Len(t, merr.Errors, 3)
}

func TestRunFollowsEntityMetrics(t *testing.T) {
	entities := newEntityCache(t, searchDispatcher(metric1, metric2))
	agg := &recorder{}
	w, err := workspace.New(entities, workspace.WithAggregates(agg))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx)
	}()

	sc := test.RandomContext(metric1)
	require.NoError(t, w.Update(sc, nil))

	want := workspace.AggregateURNs(model.Entities{metric1: {}, metric2: {}})
	require.Eventually(t, func() bool {
		req, _ := agg.last()
		return want.Equal(req.urns)
	}, 2*time.Second, time.Millisecond)

	req, _ := agg.last()
	require.True(t, sc.Equal(req.sc))
	require.Eventually(t, func() bool { return !w.Loading() }, 2*time.Second, time.Millisecond)
	require.Len(t, w.Entities(), 2)

	// Further entity updates with the same metrics do not request again.
	_, n := agg.last()
	require.NoError(t, w.Update(sc, nil))
	_, n2 := agg.last()
	require.Equal(t, n+1, n2)
	time.Sleep(20 * time.Millisecond)
	_, n3 := agg.last()
	require.Equal(t, n2, n3)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestRunStopsOnClose(t *testing.T) {
	entities, err := ecache.New(searchDispatcher())
	require.NoError(t, err)
	w, err := workspace.New(entities)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		done <- w.Run(context.Background())
	}()

	// Wait for Run to subscribe before closing.
	time.Sleep(10 * time.Millisecond)
	entities.Close()
	require.NoError(t, <-done)
}

func TestNewRequiresEntityCache(t *testing.T) {
	_, err := workspace.New(nil)
	require.Error(t, err)
}
