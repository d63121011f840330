// Package woe computes weight-of-evidence tables and WOE encodings.
package woe

import (
	"fmt"
	"math"

	"scorecard/domain/dataset"
	"scorecard/domain/sfa"
)

// SuffixWOE is appended to a feature name for its WOE-encoded column
const SuffixWOE = "_woe"

// Calculate groups the target by the categories of feature and derives
// population, events, shares, WOE and IV per category. Missing cells form
// the "missing" category. Rows appear in order of first appearance. WOE and
// IV are NaN whenever either share is zero; they are never coerced to zero.
func Calculate(t *dataset.Table, feature, target string) (*sfa.WOETable, error) {
	return calculate(t, feature, target, categoryOf)
}

// CalculateBins is Calculate over a bin index column, where the missing
// bin index forms the "missing" category.
func CalculateBins(t *dataset.Table, binColumn, target string) (*sfa.WOETable, error) {
	return calculate(t, binColumn, target, binCategoryOf)
}

func categoryOf(col dataset.Column, i int) string {
	return col.Category(i)
}

func binCategoryOf(col dataset.Column, i int) string {
	if col.Value(i) == sfa.MissingBinIndex {
		return dataset.MissingCategory
	}
	return col.Category(i)
}

func calculate(t *dataset.Table, feature, target string, category func(dataset.Column, int) string) (*sfa.WOETable, error) {
	col, err := t.Column(feature)
	if err != nil {
		return nil, err
	}
	y, err := t.Target(target)
	if err != nil {
		return nil, err
	}

	position := make(map[string]int)
	var rows []sfa.WOERow
	for i := range y {
		cat := category(col, i)
		pos, ok := position[cat]
		if !ok {
			pos = len(rows)
			position[cat] = pos
			rows = append(rows, sfa.WOERow{Category: cat})
		}
		rows[pos].Population++
		if y[i] == 1 {
			rows[pos].Events++
		}
	}

	var totalEvents, totalNonEvents float64
	for i := range rows {
		rows[i].NonEvents = rows[i].Population - rows[i].Events
		totalEvents += float64(rows[i].Events)
		totalNonEvents += float64(rows[i].NonEvents)
	}

	table := &sfa.WOETable{Feature: feature, Target: target, Rows: rows}
	for i := range rows {
		r := &rows[i]
		r.EventRate = float64(r.Events) / float64(r.Population)
		r.EventShare = share(r.Events, totalEvents)
		r.NonEventShare = share(r.NonEvents, totalNonEvents)
		r.WOE = weight(r.NonEventShare, r.EventShare)
		r.IV = math.NaN()
		if r.Defined() {
			r.IV = (r.NonEventShare - r.EventShare) * r.WOE
			table.TotalIV += r.IV
		} else {
			table.Undefined++
		}
	}
	return table, nil
}

// share is count/total; an empty total yields NaN
func share(count int, total float64) float64 {
	if total == 0 {
		return math.NaN()
	}
	return float64(count) / total
}

// weight is ln(nonEventShare/eventShare), NaN when either share is zero
// or undefined.
func weight(nonEventShare, eventShare float64) float64 {
	if nonEventShare == 0 || eventShare == 0 || math.IsNaN(nonEventShare) || math.IsNaN(eventShare) {
		return math.NaN()
	}
	return math.Log(nonEventShare / eventShare)
}

// Encode returns a new table with a numeric column name holding the WOE of
// each row's category of feature. Categories absent from the table, or
// with undefined WOE, encode as NaN.
func Encode(t *dataset.Table, feature string, table *sfa.WOETable, name string) (*dataset.Table, error) {
	return encode(t, feature, table, name, categoryOf)
}

// EncodeBins is Encode for a table built by CalculateBins
func EncodeBins(t *dataset.Table, binColumn string, table *sfa.WOETable, name string) (*dataset.Table, error) {
	return encode(t, binColumn, table, name, binCategoryOf)
}

func encode(t *dataset.Table, feature string, table *sfa.WOETable, name string, category func(dataset.Column, int) string) (*dataset.Table, error) {
	if table == nil {
		return nil, fmt.Errorf("encode %q: nil WOE table", feature)
	}
	col, err := t.Column(feature)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = feature + SuffixWOE
	}

	lookup := make(map[string]float64, len(table.Rows))
	for _, r := range table.Rows {
		lookup[r.Category] = r.WOE
	}

	encoded := make([]float64, t.Rows())
	for i := range encoded {
		v, ok := lookup[category(col, i)]
		if !ok {
			v = math.NaN()
		}
		encoded[i] = v
	}
	return t.WithColumns(dataset.NumericColumn(name, encoded))
}
