// Package test provides generators of random entities and search contexts
// for tests.
package test

import (
	"fmt"
	"math/rand"
	"sync/atomic"

	"github.com/thirdeye/go-rootcause/model"
	"github.com/thirdeye/go-rootcause/urn"
)

const weekMillis = 7 * 24 * 3600 * 1000

var globalSeed atomic.Int64

// RandomURNs returns n distinct URNs with the given type prefix.
func RandomURNs(prefix string, n int) []string {
	rng := rand.New(rand.NewSource(globalSeed.Add(1)))

	seen := make(map[string]struct{}, n)
	urns := make([]string, 0, n)
	for len(urns) < n {
		u := fmt.Sprintf("%s%d", prefix, rng.Int63n(1_000_000))
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		urns = append(urns, u)
	}
	return urns
}

// RandomEntities returns n entities with the given type prefix and random
// positive scores.
func RandomEntities(prefix, typ string, n int) []model.Entity {
	rng := rand.New(rand.NewSource(globalSeed.Add(1)))

	urns := RandomURNs(prefix, n)
	entities := make([]model.Entity, n)
	for i, u := range urns {
		entities[i] = model.Entity{
			URN:   u,
			Type:  typ,
			Label: fmt.Sprintf("%s-%d", typ, i),
			Score: 1 + rng.Float64()*100,
		}
	}
	return entities
}

// RandomContext returns a valid search context for the given URNs, with a
// one hour anomaly window at a random week.
func RandomContext(urns ...string) model.SearchContext {
	rng := rand.New(rand.NewSource(globalSeed.Add(1)))

	start := int64(10+rng.Intn(1000)) * weekMillis
	return model.SearchContext{
		URNs:          urn.NewSet(urns...),
		AnomalyRange:  model.Range{Start: start, End: start + 3600*1000},
		AnalysisRange: model.Range{Start: start - weekMillis, End: start + weekMillis},
		CompareMode:   model.WoW,
	}
}
