package sfa

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"scorecard/domain/core"
	"scorecard/domain/dataset"
)

// MissingBinIndex is the bin index assigned to rows whose feature value is missing
const MissingBinIndex = -1

// Bin is one monotonic-risk bin of a numeric feature
type Bin struct {
	Index int     `json:"index"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Label string  `json:"label"`
	Count int     `json:"count"`
}

// BinMapping is the ordered set of bins derived for one feature
type BinMapping struct {
	Feature string `json:"feature"`
	Bins    []Bin  `json:"bins"`
	Missing int    `json:"missing"` // rows mapped to MissingBinIndex
}

// Validate checks that bins are indexed 0..m-1, ordered and non-overlapping
func (m BinMapping) Validate() error {
	for i, b := range m.Bins {
		if b.Index != i {
			return fmt.Errorf("%w: bin %d has index %d", core.ErrInvalidInput, i, b.Index)
		}
		if b.Lower > b.Upper {
			return fmt.Errorf("%w: bin %d lower %v > upper %v", core.ErrInvalidInput, i, b.Lower, b.Upper)
		}
		if i > 0 && m.Bins[i-1].Upper >= b.Lower {
			return fmt.Errorf("%w: bins %d and %d overlap", core.ErrInvalidInput, i-1, i)
		}
	}
	return nil
}

// WOERow holds the weight-of-evidence statistics of one category
type WOERow struct {
	Category      string  `json:"category"`
	Population    int     `json:"pop"`
	Events        int     `json:"def"`
	NonEvents     int     `json:"nondef"`
	EventRate     float64 `json:"def_rate"`
	EventShare    float64 `json:"perc_def"`
	NonEventShare float64 `json:"perc_nondef"`
	WOE           float64 `json:"woe"`
	IV            float64 `json:"iv"`
}

// Defined reports whether the row's WOE could be computed
func (r WOERow) Defined() bool {
	return !math.IsNaN(r.WOE)
}

// WOETable is the per-category WOE summary of one feature
type WOETable struct {
	Feature   string   `json:"feature"`
	Target    string   `json:"target"`
	Rows      []WOERow `json:"rows"`
	TotalIV   float64  `json:"total_iv"`  // sum over defined rows
	Undefined int      `json:"undefined"` // rows whose WOE is NaN
}

// Lookup finds the row for a category
func (t *WOETable) Lookup(category string) (WOERow, bool) {
	for _, r := range t.Rows {
		if r.Category == category {
			return r, true
		}
	}
	return WOERow{}, false
}

// Totals returns the event and non-event counts summed over all rows
func (t *WOETable) Totals() (events, nonEvents int) {
	for _, r := range t.Rows {
		events += r.Events
		nonEvents += r.NonEvents
	}
	return events, nonEvents
}

// SortedByCategory returns a copy with rows in natural category order:
// numerically when every category is a number, lexically otherwise, and
// the missing category last.
func (t *WOETable) SortedByCategory() *WOETable {
	out := *t
	out.Rows = append([]WOERow(nil), t.Rows...)

	numeric := true
	for _, r := range out.Rows {
		if r.Category == dataset.MissingCategory {
			continue
		}
		if _, err := strconv.ParseFloat(r.Category, 64); err != nil {
			numeric = false
			break
		}
	}

	sort.SliceStable(out.Rows, func(i, j int) bool {
		a, b := out.Rows[i].Category, out.Rows[j].Category
		if a == dataset.MissingCategory || b == dataset.MissingCategory {
			return b == dataset.MissingCategory && a != dataset.MissingCategory
		}
		if numeric {
			fa, _ := strconv.ParseFloat(a, 64)
			fb, _ := strconv.ParseFloat(b, 64)
			return fa < fb
		}
		return a < b
	})
	return &out
}

// FeatureStrength is the IV summary of one feature for ranking in SFA
type FeatureStrength struct {
	Feature    string       `json:"feature"`
	Kind       dataset.Kind `json:"kind"`
	Bins       int          `json:"bins"`
	TotalIV    float64      `json:"total_iv"`
	Undefined  int          `json:"undefined"`
	MissingWOE float64      `json:"missing_woe"` // NaN when the feature has no missing rows
}

// RankByIV orders feature strengths by IV descending, then by name
func RankByIV(items []FeatureStrength) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].TotalIV != items[j].TotalIV {
			return items[i].TotalIV > items[j].TotalIV
		}
		return items[i].Feature < items[j].Feature
	})
}
