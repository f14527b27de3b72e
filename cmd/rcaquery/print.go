package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/thirdeye/go-rootcause/apierror"
	"github.com/thirdeye/go-rootcause/model"
	"github.com/thirdeye/go-rootcause/urn"
)

var (
	headerColor   = color.New(color.Bold)
	staleColor    = color.New(color.FgHiBlack)
	selectedColor = color.New(color.FgCyan, color.Bold)
	errorColor    = color.New(color.FgRed)
)

// typeColors colors each entity type namespace. The first matching prefix
// wins.
var typeColors = []struct {
	prefix string
	color  *color.Color
}{
	{urn.AnomalyPrefix, color.New(color.FgRed, color.Bold)},
	{urn.EventPrefix, color.New(color.FgYellow)},
	{urn.DimensionPrefix, color.New(color.FgMagenta)},
	{urn.MetricPrefix, color.New(color.FgGreen)},
}

// sortEntities orders entities by descending score, then URN.
func sortEntities(entities model.Entities) []model.Entity {
	list := make([]model.Entity, 0, len(entities))
	for _, e := range entities {
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Score != list[j].Score {
			return list[i].Score > list[j].Score
		}
		return list[i].URN < list[j].URN
	})
	return list
}

func printEntities(w io.Writer, entities model.Entities, selected urn.Set, minScore float64) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	headerColor.Fprintln(tw, "SCORE\tTYPE\tURN\tLABEL")

	base := selected.BaseSet()
	var hidden int
	for _, e := range sortEntities(entities) {
		if !e.Stale() && e.Score < minScore {
			hidden++
			continue
		}
		score := fmt.Sprintf("%.3f", e.Score)
		if e.Stale() {
			score = "stale"
		}
		line := fmt.Sprintf("%s\t%s\t%s\t%s", score, e.Type, e.URN, e.Label)
		switch {
		case base.Has(urn.StripTail(e.URN)):
			selectedColor.Fprintln(tw, line)
		case e.Stale():
			staleColor.Fprintln(tw, line)
		default:
			entityColor(e.URN).Fprintln(tw, line)
		}
	}
	tw.Flush()

	fmt.Fprintf(w, "%d entities", len(entities))
	if hidden != 0 {
		fmt.Fprintf(w, ", %d below score %g", hidden, minScore)
	}
	fmt.Fprintln(w)
}

func printFailures(w io.Writer, failed map[model.Framework]error) {
	if len(failed) == 0 {
		return
	}
	names := make([]string, 0, len(failed))
	for fw := range failed {
		names = append(names, fw.String())
	}
	sort.Strings(names)
	for _, name := range names {
		err := failed[model.Framework(name)]
		msg := err.Error()
		var ae *apierror.Error
		if errors.As(err, &ae) {
			msg = ae.Text()
		}
		if apierror.IsTemporary(err) {
			msg += " (temporary, try again)"
		}
		errorColor.Fprintf(w, "%s failed: %s\n", name, msg)
	}
}

func entityColor(u string) *color.Color {
	for _, tc := range typeColors {
		if urn.HasPrefix(u, tc.prefix) {
			return tc.color
		}
	}
	return color.New(color.Reset)
}
