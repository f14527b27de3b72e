package urn_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/thirdeye/go-rootcause/urn"
)

func TestStripTail(t *testing.T) {
	tests := map[string]string{
		"thirdeye:metric:12345":                    "thirdeye:metric:12345",
		"thirdeye:metric:12345:country=us":         "thirdeye:metric:12345",
		"thirdeye:metric:12345:country=us:os=ios":  "thirdeye:metric:12345",
		"frontend:metric:current:12345":            "frontend:metric:current:12345",
		"frontend:metric:baseline:12345:browser=x": "frontend:metric:baseline:12345",
		"thirdeye:event:holiday:2":                 "thirdeye:event:holiday:2",
		"thirdeye:dimension:country:us:provided":   "thirdeye:dimension:country:us:provided",
		"":                                         "",
	}
	for in, want := range tests {
		require.Equal(t, want, urn.StripTail(in), "input %q", in)
	}
}

func TestVariants(t *testing.T) {
	require.Equal(t, "frontend:metric:current:7", urn.ToCurrent("thirdeye:metric:7"))
	require.Equal(t, "frontend:metric:baseline:7:a=b", urn.ToBaseline("thirdeye:metric:7:a=b"))
	require.Equal(t, "frontend:metric:current:7", urn.ToCurrent("frontend:metric:baseline:7"))
	require.Equal(t, "thirdeye:event:1", urn.ToBaseline("thirdeye:event:1"))
}

func TestFilterPrefix(t *testing.T) {
	urns := []string{"thirdeye:metric:1", "thirdeye:event:2", "thirdeye:dimension:a:b", "thirdeye:metric:3"}
	require.Equal(t, []string{"thirdeye:metric:1", "thirdeye:metric:3"}, urn.FilterPrefix(urns, urn.MetricPrefix))
	require.Equal(t, []string{"thirdeye:metric:1", "thirdeye:dimension:a:b", "thirdeye:metric:3"},
		urn.FilterPrefix(urns, urn.MetricPrefix, urn.DimensionPrefix))
	require.Nil(t, urn.FilterPrefix(urns, "other:"))
}

func TestSet(t *testing.T) {
	s := urn.NewSet("b", "a", "c")
	require.True(t, s.Has("a"))
	require.False(t, s.Has("d"))
	require.Equal(t, []string{"a", "b", "c"}, s.Sorted())
	require.Equal(t, "a,b,c", s.Key())

	c := s.Clone()
	require.True(t, s.Equal(c))
	c.Add("d")
	require.False(t, s.Equal(c))
	require.False(t, s.Has("d"))

	var empty urn.Set
	require.True(t, empty.Equal(urn.NewSet()))
	require.Equal(t, "", empty.Key())
	require.NotNil(t, empty.Clone())
}

func TestSetFilterAndBase(t *testing.T) {
	s := urn.NewSet("thirdeye:metric:1:a=b", "thirdeye:metric:1", "thirdeye:event:9")
	require.True(t, urn.NewSet("thirdeye:metric:1:a=b", "thirdeye:metric:1").Equal(s.Filter(urn.MetricPrefix)))
	require.True(t, urn.NewSet("thirdeye:metric:1", "thirdeye:event:9").Equal(s.BaseSet()))
}
