package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/thirdeye/go-rootcause/urn"
)

// ErrInvalidContext is returned for a search context that cannot be used to
// query the search frameworks.
var ErrInvalidContext = errors.New("invalid search context")

const week = int64(7 * 24 * time.Hour / time.Millisecond)

// Range is a time window in epoch milliseconds.
type Range struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// IsZero reports whether the range is unset.
func (r Range) IsZero() bool {
	return r.Start == 0 && r.End == 0
}

// Shift returns the range moved by d milliseconds.
func (r Range) Shift(d int64) Range {
	return Range{Start: r.Start + d, End: r.End + d}
}

func (r Range) validate(name string) error {
	if r.Start <= 0 || r.End <= 0 {
		return fmt.Errorf("%w: %s range is not set", ErrInvalidContext, name)
	}
	if r.Start > r.End {
		return fmt.Errorf("%w: %s range starts after it ends", ErrInvalidContext, name)
	}
	return nil
}

// CompareMode selects how far back the baseline window is from the anomaly
// window.
type CompareMode string

const (
	WoW  CompareMode = "WoW"
	Wo2W CompareMode = "Wo2W"
	Wo3W CompareMode = "Wo3W"
	Wo4W CompareMode = "Wo4W"
)

// weeks returns the baseline offset in weeks. An empty or unknown mode means
// WoW.
func (m CompareMode) weeks() int64 {
	switch m {
	case Wo2W:
		return 2
	case Wo3W:
		return 3
	case Wo4W:
		return 4
	}
	return 1
}

// SearchContext describes one root-cause search: the URNs of interest and
// the time windows to analyze. It is a value type; use Equal to compare and
// Clone to copy.
type SearchContext struct {
	URNs          urn.Set
	AnomalyRange  Range
	AnalysisRange Range
	CompareMode   CompareMode
}

// BaselineRange returns the anomaly range shifted back by the compare mode.
func (c SearchContext) BaselineRange() Range {
	return c.AnomalyRange.Shift(-c.CompareMode.weeks() * week)
}

// Equal reports whether two contexts are structurally equal. URN sets are
// compared by value; nil and empty sets are equal.
func (c SearchContext) Equal(other SearchContext) bool {
	return c.AnomalyRange == other.AnomalyRange &&
		c.AnalysisRange == other.AnalysisRange &&
		c.CompareMode == other.CompareMode &&
		c.URNs.Equal(other.URNs)
}

// Clone returns a deep copy of the context.
func (c SearchContext) Clone() SearchContext {
	c.URNs = c.URNs.Clone()
	return c
}

// Validate checks that the context can be dispatched to the search
// frameworks. All errors wrap ErrInvalidContext.
func (c SearchContext) Validate() error {
	if err := c.AnomalyRange.validate("anomaly"); err != nil {
		return err
	}
	return c.AnalysisRange.validate("analysis")
}
