package binning

import (
	"math"
	"math/rand"
	"testing"

	"scorecard/domain/core"
	"scorecard/domain/dataset"
	"scorecard/domain/sfa"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stepTable builds 500 rows in shuffled order: x runs 0..499 in five
// segments of 100 whose event rates rise 10%..50% (30% overall).
func stepTable(t *testing.T) *dataset.Table {
	t.Helper()
	perm := rand.New(rand.NewSource(7)).Perm(500)
	x := make([]float64, 500)
	y := make([]float64, 500)
	for row, v := range perm {
		x[row] = float64(v)
		seg := v / 100
		if v%100 < 10*(seg+1) {
			y[row] = 1
		}
	}
	tbl, err := dataset.New(
		dataset.NumericColumn("x", x),
		dataset.NumericColumn("default_flag", y),
	)
	require.NoError(t, err)
	return tbl
}

func TestMonotonic_FiveContiguousBins(t *testing.T) {
	tbl := stepTable(t)

	res, err := Monotonic(tbl, "x", "default_flag", 5)
	require.NoError(t, err)
	require.NoError(t, res.Mapping.Validate())
	require.Len(t, res.Mapping.Bins, 5)

	bins := res.Mapping.Bins
	assert.Equal(t, 0.0, bins[0].Lower)
	assert.Equal(t, 499.0, bins[4].Upper)
	for i, b := range bins {
		assert.Equal(t, float64(100*i), b.Lower)
		assert.Equal(t, float64(100*i+99), b.Upper)
		assert.Equal(t, 100, b.Count)
	}
	assert.Equal(t, "0.0 - 99.0", bins[0].Label)
	assert.Equal(t, "400.0 - 499.0", bins[4].Label)
}

func TestMonotonic_JoinPreservesRowsAndIndex(t *testing.T) {
	tbl := stepTable(t)
	tbl, err := tbl.WithIndex(reverseIndex(tbl.Rows()))
	require.NoError(t, err)

	res, err := Monotonic(tbl, "x", "default_flag", 5)
	require.NoError(t, err)

	assert.Equal(t, tbl.Index(), res.Table.Index())
	xs, _ := res.Table.Floats("x")
	ids, err := res.Table.Floats("x" + SuffixBinID)
	require.NoError(t, err)
	labels, err := res.Table.Strings("x" + SuffixCategory)
	require.NoError(t, err)

	for i := range xs {
		b := res.Mapping.Bins[int(ids[i])]
		assert.GreaterOrEqual(t, xs[i], b.Lower)
		assert.LessOrEqual(t, xs[i], b.Upper)
		assert.Equal(t, b.Label, labels[i])
	}

	// the caller's table is untouched
	assert.False(t, tbl.Has("x"+SuffixBinID))
}

func TestMonotonic_CollapsesDuplicateEdges(t *testing.T) {
	x := make([]float64, 200)
	y := make([]float64, 200)
	for i := range x {
		x[i] = float64(i)
		if i >= 140 {
			y[i] = 1
		}
	}
	tbl, err := dataset.New(dataset.NumericColumn("dti", x), dataset.NumericColumn("default_flag", y))
	require.NoError(t, err)

	res, err := Monotonic(tbl, "dti", "default_flag", 10)
	require.NoError(t, err)
	assert.Less(t, len(res.Mapping.Bins), 10)
	assert.NoError(t, res.Mapping.Validate())
}

func TestMonotonic_MissingValuesGetMissingBin(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, math.NaN()}
	y := []float64{0, 0, 0, 1, 0, 1, 0, 1, 1, 1, 1}
	tbl, err := dataset.New(dataset.NumericColumn("revol_util", x), dataset.NumericColumn("default_flag", y))
	require.NoError(t, err)

	res, err := Monotonic(tbl, "revol_util", "default_flag", 3)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Mapping.Missing)

	ids, err := res.Table.Floats("revol_util" + SuffixBinID)
	require.NoError(t, err)
	labels, err := res.Table.Strings("revol_util" + SuffixCategory)
	require.NoError(t, err)
	iso, err := res.Table.Floats("revol_util" + SuffixIso)
	require.NoError(t, err)

	assert.Equal(t, float64(sfa.MissingBinIndex), ids[10])
	assert.Equal(t, dataset.MissingCategory, labels[10])
	assert.True(t, math.IsNaN(iso[10]))
	for i := 0; i < 10; i++ {
		assert.GreaterOrEqual(t, ids[i], 0.0, "row %d", i)
		assert.NotEqual(t, dataset.MissingCategory, labels[i], "row %d", i)
	}
}

func TestMonotonic_RandomDataBinsAreOrdered(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 20; trial++ {
		n := 100 + rng.Intn(400)
		x := make([]float64, n)
		y := make([]float64, n)
		for i := range x {
			x[i] = math.Round(rng.NormFloat64()*50) / 10
			if rng.Float64() < 1/(1+math.Exp(-x[i]/3)) {
				y[i] = 1
			}
		}
		tbl, err := dataset.New(dataset.NumericColumn("x", x), dataset.NumericColumn("y", y))
		require.NoError(t, err)

		res, err := Monotonic(tbl, "x", "y", 2+rng.Intn(8))
		require.NoError(t, err)
		assertOrdered(t, res.Mapping)
	}
}

func TestMonotonic_InvalidInput(t *testing.T) {
	tbl := stepTable(t)

	_, err := Monotonic(tbl, "x", "default_flag", 1)
	assert.ErrorIs(t, err, core.ErrInvalidBinCount)

	_, err = Monotonic(tbl, "nope", "default_flag", 5)
	assert.True(t, core.IsNotFoundError(err))

	_, err = Monotonic(tbl, "x", "x", 5)
	assert.ErrorIs(t, err, core.ErrNotBinary)
}

func TestFormatBound(t *testing.T) {
	assert.Equal(t, "1.0", formatBound(1))
	assert.Equal(t, "2.35", formatBound(2.349999))
	assert.Equal(t, "-0.5", formatBound(-0.5))
	assert.Equal(t, "1000.0", formatBound(1000))
}

func assertOrdered(t *testing.T, m sfa.BinMapping) {
	t.Helper()
	require.NoError(t, m.Validate())
	for i := 1; i < len(m.Bins); i++ {
		assert.Less(t, m.Bins[i-1].Upper, m.Bins[i].Lower)
		assert.Less(t, m.Bins[i-1].Lower, m.Bins[i].Lower)
	}
}

func reverseIndex(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = n - 1 - i
	}
	return idx
}
