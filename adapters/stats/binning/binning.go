// Package binning converts a numeric feature into monotonic-risk bins.
package binning

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"scorecard/adapters/stats/isotonic"
	"scorecard/domain/core"
	"scorecard/domain/dataset"
	"scorecard/domain/sfa"

	"github.com/montanaflynn/stats"
)

// Result is the binned table plus the derived bin mapping
type Result struct {
	Table     *dataset.Table
	Mapping   sfa.BinMapping
	Direction isotonic.Direction
}

// Column name suffixes added by Monotonic
const (
	SuffixIso      = "_iso"
	SuffixGroup    = "_group"
	SuffixBinID    = "_bin_id"
	SuffixCategory = "_category"
)

// Monotonic fits an isotonic regression of target y on feature x, cuts the
// fitted values into n equal-population groups (dropping duplicate edges,
// so fewer bins may result) and derives bins from the original x range of
// each group. The returned table is the input plus the fitted value, group,
// bin index and label columns, joined on group id with row order and
// original index preserved. Rows with a missing x have no fitted value or
// group; they get sfa.MissingBinIndex and the "missing" label.
func Monotonic(t *dataset.Table, x, y string, n int) (*Result, error) {
	if n < 2 {
		return nil, fmt.Errorf("%w: got %d", core.ErrInvalidBinCount, n)
	}
	xs, err := t.Floats(x)
	if err != nil {
		return nil, err
	}
	ys, err := t.Target(y)
	if err != nil {
		return nil, err
	}

	var rows []int
	for i, v := range xs {
		if !math.IsNaN(v) {
			rows = append(rows, i)
		}
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %q has no observed values", core.ErrInsufficientData, x)
	}

	obsX := make([]float64, len(rows))
	obsY := make([]float64, len(rows))
	for k, i := range rows {
		obsX[k] = xs[i]
		obsY[k] = ys[i]
	}

	fitted, dir, err := isotonic.FitAuto(obsX, obsY)
	if err != nil {
		return nil, fmt.Errorf("isotonic fit of %q: %w", x, err)
	}

	edges := quantileEdges(fitted, n)
	groupOf := make([]int, len(rows))
	members := make(map[int][]float64)
	for k, v := range fitted {
		g := assignGroup(edges, v)
		groupOf[k] = g
		members[g] = append(members[g], obsX[k])
	}

	bins, binOf, err := buildBins(members)
	if err != nil {
		return nil, err
	}

	// keyed join: group id -> bin, written back to each row's own position
	iso := nanSlice(len(xs))
	group := nanSlice(len(xs))
	binID := make([]float64, len(xs))
	label := make([]string, len(xs))
	for i := range xs {
		binID[i] = sfa.MissingBinIndex
		label[i] = dataset.MissingCategory
	}
	for k, i := range rows {
		b := binOf[groupOf[k]]
		iso[i] = fitted[k]
		group[i] = float64(groupOf[k])
		binID[i] = float64(b)
		label[i] = bins[b].Label
	}

	out, err := t.WithColumns(
		dataset.NumericColumn(x+SuffixIso, iso),
		dataset.NumericColumn(x+SuffixGroup, group),
		dataset.NumericColumn(x+SuffixBinID, binID),
		dataset.CategoricalColumn(x+SuffixCategory, label),
	)
	if err != nil {
		return nil, err
	}

	return &Result{
		Table:     out,
		Mapping:   sfa.BinMapping{Feature: x, Bins: bins, Missing: len(xs) - len(rows)},
		Direction: dir,
	}, nil
}

// quantileEdges returns the distinct quantiles of values at i/n, i=0..n,
// interpolating linearly between order statistics.
func quantileEdges(values []float64, n int) []float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	edges := make([]float64, 0, n+1)
	for i := 0; i <= n; i++ {
		q := quantile(sorted, float64(i)/float64(n))
		if len(edges) == 0 || q != edges[len(edges)-1] {
			edges = append(edges, q)
		}
	}
	return edges
}

func quantile(sorted []float64, p float64) float64 {
	h := p * float64(len(sorted)-1)
	lo := int(math.Floor(h))
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[lo+1]-sorted[lo])
}

// assignGroup places v in the right-closed interval (edges[g], edges[g+1]];
// the first interval also includes its left edge.
func assignGroup(edges []float64, v float64) int {
	if len(edges) < 2 {
		return 0
	}
	g := sort.SearchFloat64s(edges[1:], v)
	if g > len(edges)-2 {
		g = len(edges) - 2
	}
	return g
}

// buildBins orders groups by their minimum x and labels them
func buildBins(members map[int][]float64) ([]sfa.Bin, map[int]int, error) {
	type span struct {
		group    int
		min, max float64
		count    int
	}
	spans := make([]span, 0, len(members))
	for g, vals := range members {
		lo, err := stats.Min(vals)
		if err != nil {
			return nil, nil, err
		}
		hi, err := stats.Max(vals)
		if err != nil {
			return nil, nil, err
		}
		spans = append(spans, span{group: g, min: lo, max: hi, count: len(vals)})
	}
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].min != spans[j].min {
			return spans[i].min < spans[j].min
		}
		return spans[i].group < spans[j].group
	})

	bins := make([]sfa.Bin, len(spans))
	binOf := make(map[int]int, len(spans))
	for i, s := range spans {
		bins[i] = sfa.Bin{
			Index: i,
			Lower: s.min,
			Upper: s.max,
			Label: formatBound(s.min) + " - " + formatBound(s.max),
			Count: s.count,
		}
		binOf[s.group] = i
	}
	return bins, binOf, nil
}

// formatBound rounds to two decimals and always shows a decimal point
func formatBound(v float64) string {
	r := math.Round(v*100) / 100
	s := strconv.FormatFloat(r, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEIN") {
		s += ".0"
	}
	return s
}

func nanSlice(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}
