package ecache

import (
	"sort"

	"github.com/thirdeye/go-rootcause/model"
	"github.com/thirdeye/go-rootcause/urn"
)

// namespaces maps each search framework to the URN prefix of the entities it
// owns.
var namespaces = map[model.Framework]string{
	model.RelatedEvents:     urn.EventPrefix,
	model.RelatedDimensions: urn.DimensionPrefix,
	model.RelatedMetrics:    urn.MetricPrefix,
}

// EvictionCandidates returns, in sorted order, the URNs of the entities that
// are superseded when fresh results arrive from the framework. These are all
// entities in the framework's namespace. Identity and unknown frameworks have
// no candidates.
func EvictionCandidates(entities model.Entities, fw model.Framework) []string {
	prefix, ok := namespaces[fw]
	if !ok {
		return nil
	}
	var candidates []string
	for u := range entities {
		if urn.HasPrefix(u, prefix) {
			candidates = append(candidates, u)
		}
	}
	sort.Strings(candidates)
	return candidates
}

// Merge returns a new store with the framework's incoming results applied to
// entities. Eviction candidates whose base URN is pinned are kept with their
// score set to model.StaleScore; all other candidates are removed. Incoming
// entities are then added, replacing any entity with the same URN.
//
// The given maps are not modified.
func Merge(entities model.Entities, pinned urn.Set, incoming model.Entities, fw model.Framework) model.Entities {
	out := entities.Clone()

	candidates := EvictionCandidates(entities, fw)
	if len(candidates) != 0 {
		pinnedBase := pinned.BaseSet()
		for _, u := range candidates {
			if !pinnedBase.Has(urn.StripTail(u)) {
				delete(out, u)
				continue
			}
			e := out[u]
			e.Score = model.StaleScore
			out[u] = e
		}
	}

	for u, e := range incoming {
		out[u] = e
	}
	return out
}

// narrow returns the entities whose URN is in urns.
func narrow(entities model.Entities, urns urn.Set) model.Entities {
	out := make(model.Entities)
	for u, e := range entities {
		if urns.Has(u) {
			out[u] = e
		}
	}
	return out
}
