// Package urn provides helpers for the colon-delimited entity identifiers
// used by root-cause search.
//
// A URN is grouped by its type prefix, such as "thirdeye:metric:". Metric
// URNs may carry a trailing qualifier (the tail), for example a dimension
// filter or a current/baseline marker. The base URN is the URN with that tail
// removed.
package urn

import (
	"strings"
)

const (
	MetricPrefix    = "thirdeye:metric:"
	EventPrefix     = "thirdeye:event:"
	DimensionPrefix = "thirdeye:dimension:"
	AnomalyPrefix   = "thirdeye:event:anomaly:"

	FrontendMetricPrefix = "frontend:metric:"
	CurrentMetricPrefix  = "frontend:metric:current:"
	BaselineMetricPrefix = "frontend:metric:baseline:"
)

// HasPrefix reports whether u begins with any of the given prefixes.
func HasPrefix(u string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(u, p) {
			return true
		}
	}
	return false
}

// FilterPrefix returns the URNs that start with any of the prefixes, in the
// order given.
func FilterPrefix(urns []string, prefixes ...string) []string {
	var out []string
	for _, u := range urns {
		if HasPrefix(u, prefixes...) {
			out = append(out, u)
		}
	}
	return out
}

// StripTail returns the base URN. Only metric URNs have tails; all other URNs
// are returned unchanged.
func StripTail(u string) string {
	switch {
	case strings.HasPrefix(u, MetricPrefix):
		return firstParts(u, 3)
	case strings.HasPrefix(u, FrontendMetricPrefix):
		return firstParts(u, 4)
	}
	return u
}

// ToCurrent maps a metric URN to its current-window variant. URNs that are
// not metric URNs are returned unchanged.
func ToCurrent(u string) string {
	return toVariant(u, CurrentMetricPrefix)
}

// ToBaseline maps a metric URN to its baseline-window variant.
func ToBaseline(u string) string {
	return toVariant(u, BaselineMetricPrefix)
}

func toVariant(u, prefix string) string {
	switch {
	case strings.HasPrefix(u, MetricPrefix):
		return prefix + u[len(MetricPrefix):]
	case strings.HasPrefix(u, CurrentMetricPrefix):
		return prefix + u[len(CurrentMetricPrefix):]
	case strings.HasPrefix(u, BaselineMetricPrefix):
		return prefix + u[len(BaselineMetricPrefix):]
	}
	return u
}

func firstParts(u string, n int) string {
	var count int
	for i := 0; i < len(u); i++ {
		if u[i] == ':' {
			count++
			if count == n {
				return u[:i]
			}
		}
	}
	return u
}
