package ecache_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/thirdeye/go-rootcause/ecache"
	"github.com/thirdeye/go-rootcause/model"
	"github.com/thirdeye/go-rootcause/urn"
)

const (
	eventA  = "thirdeye:event:holiday:1"
	eventB  = "thirdeye:event:deployment:2"
	metricM = "thirdeye:metric:3"
	metricN = "thirdeye:metric:4:country=us"
	dimUS   = "thirdeye:dimension:country:us:provided"
)

func initialStore() model.Entities {
	return model.Entities{
		eventA:  {URN: eventA, Type: "event", Score: 5},
		metricM: {URN: metricM, Type: "metric", Score: 3},
	}
}

func TestEvictionCandidates(t *testing.T) {
	store := model.Entities{
		eventA:  {URN: eventA},
		eventB:  {URN: eventB},
		metricM: {URN: metricM},
		metricN: {URN: metricN},
		dimUS:   {URN: dimUS},
	}

	require.Equal(t, []string{eventB, eventA}, ecache.EvictionCandidates(store, model.RelatedEvents))
	require.Equal(t, []string{metricM, metricN}, ecache.EvictionCandidates(store, model.RelatedMetrics))
	require.Equal(t, []string{dimUS}, ecache.EvictionCandidates(store, model.RelatedDimensions))
	require.Empty(t, ecache.EvictionCandidates(store, model.Identity))
	require.Empty(t, ecache.EvictionCandidates(store, "relatedThings"))
	require.Empty(t, ecache.EvictionCandidates(nil, model.RelatedEvents))
	require.Len(t, store, 5)
}

func TestMergeReplacesNamespace(t *testing.T) {
	store := initialStore()
	incoming := model.Entities{eventA: {URN: eventA, Score: 9}}

	merged := ecache.Merge(store, urn.NewSet(), incoming, model.RelatedEvents)
	require.Equal(t, model.Entities{
		eventA:  {URN: eventA, Score: 9},
		metricM: {URN: metricM, Type: "metric", Score: 3},
	}, merged)

	// Input is not modified.
	require.Equal(t, initialStore(), store)
}

func TestMergeDemotesPinned(t *testing.T) {
	store := initialStore()

	merged := ecache.Merge(store, urn.NewSet(eventA), model.Entities{}, model.RelatedEvents)
	require.Equal(t, model.Entities{
		eventA:  {URN: eventA, Type: "event", Score: model.StaleScore},
		metricM: {URN: metricM, Type: "metric", Score: 3},
	}, merged)
	require.True(t, merged[eventA].Stale())
	require.Equal(t, 5.0, store[eventA].Score)
}

func TestMergeDropsUnpinned(t *testing.T) {
	store := initialStore()
	store[eventB] = model.Entity{URN: eventB, Score: 1}

	merged := ecache.Merge(store, urn.NewSet(eventB), nil, model.RelatedEvents)
	require.NotContains(t, merged, eventA)
	require.Equal(t, float64(model.StaleScore), merged[eventB].Score)
	require.Contains(t, merged, metricM)
}

func TestMergePinnedByBaseURN(t *testing.T) {
	store := model.Entities{
		metricN:             {URN: metricN, Score: 2},
		"thirdeye:metric:9": {URN: "thirdeye:metric:9", Score: 2},
	}
	// Selection holds the metric with a different tail.
	pinned := urn.NewSet("thirdeye:metric:4:country=ca")

	merged := ecache.Merge(store, pinned, nil, model.RelatedMetrics)
	require.Len(t, merged, 1)
	require.True(t, merged[metricN].Stale())
}

func TestMergeIdentityNeverEvicts(t *testing.T) {
	store := initialStore()
	incoming := model.Entities{metricN: {URN: metricN, Type: "metric"}}

	merged := ecache.Merge(store, nil, incoming, model.Identity)
	require.Len(t, merged, 3)
	require.Equal(t, 5.0, merged[eventA].Score)
	require.Equal(t, 3.0, merged[metricM].Score)
}

func TestMergeIdempotent(t *testing.T) {
	store := initialStore()
	store[dimUS] = model.Entity{URN: dimUS, Score: 7}
	pinned := urn.NewSet(eventA)
	incoming := model.Entities{eventB: {URN: eventB, Score: 4}}

	once := ecache.Merge(store, pinned, incoming, model.RelatedEvents)
	twice := ecache.Merge(once, pinned, incoming, model.RelatedEvents)
	require.Equal(t, once, twice)
}

func TestMergeEvictionInvariant(t *testing.T) {
	store := make(model.Entities)
	for _, u := range []string{eventA, eventB, "thirdeye:event:anomaly:5", metricM, dimUS} {
		store[u] = model.Entity{URN: u, Score: 1}
	}
	pinned := urn.NewSet(eventB, metricM)

	for _, fw := range model.SearchFrameworks() {
		candidates := ecache.EvictionCandidates(store, fw)
		merged := ecache.Merge(store, pinned, nil, fw)
		for _, u := range candidates {
			if pinned.BaseSet().Has(urn.StripTail(u)) {
				require.Contains(t, merged, u)
				require.Equal(t, float64(model.StaleScore), merged[u].Score)
			} else {
				require.NotContains(t, merged, u)
			}
		}
		require.Len(t, merged, len(store)-len(candidates)+countPinned(candidates, pinned))
		for u, e := range merged {
			require.Equal(t, u, e.URN)
		}
	}
}

func countPinned(urns []string, pinned urn.Set) int {
	var n int
	base := pinned.BaseSet()
	for _, u := range urns {
		if base.Has(urn.StripTail(u)) {
			n++
		}
	}
	return n
}
