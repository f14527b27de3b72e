package urn

import (
	"sort"
	"strings"
)

// Set is a set of URNs. The zero value (nil) is an empty set that may be read
// but not written.
type Set map[string]struct{}

// NewSet creates a Set containing the given URNs.
func NewSet(urns ...string) Set {
	s := make(Set, len(urns))
	for _, u := range urns {
		s[u] = struct{}{}
	}
	return s
}

func (s Set) Has(u string) bool {
	_, ok := s[u]
	return ok
}

func (s Set) Add(u string) {
	s[u] = struct{}{}
}

// Equal reports whether both sets hold the same URNs. A nil set equals an
// empty set.
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for u := range s {
		if _, ok := other[u]; !ok {
			return false
		}
	}
	return true
}

// Clone returns a copy of the set. Cloning a nil set returns an empty,
// writable set.
func (s Set) Clone() Set {
	c := make(Set, len(s))
	for u := range s {
		c[u] = struct{}{}
	}
	return c
}

// Sorted returns the URNs in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for u := range s {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// Key returns a canonical string for the set, suitable as a map or dedupe
// key.
func (s Set) Key() string {
	return strings.Join(s.Sorted(), ",")
}

// Filter returns a new set with the URNs that have any of the prefixes.
func (s Set) Filter(prefixes ...string) Set {
	out := make(Set)
	for u := range s {
		if HasPrefix(u, prefixes...) {
			out[u] = struct{}{}
		}
	}
	return out
}

// BaseSet returns a new set of the base URNs of s.
func (s Set) BaseSet() Set {
	out := make(Set, len(s))
	for u := range s {
		out[StripTail(u)] = struct{}{}
	}
	return out
}
