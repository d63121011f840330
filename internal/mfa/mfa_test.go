package mfa

import (
	"math"
	"math/rand"
	"testing"

	"scorecard/domain/dataset"

	"github.com/stretchr/testify/require"
)

// simulatedTable draws a loan-like table where y follows a known logistic
// model in x1, x2, c1 and c2. Other columns are distractors:
//
//	noise      independent of everything
//	x1_dup     x1 plus a little noise (collinear)
//	x1_shadow  0.6*x1 + 0.8*z, which the model weights with the opposite
//	           sign of its raw correlation when fitted next to x1
func simulatedTable(t *testing.T, n int, seed int64) *dataset.Table {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	cols := map[string][]float64{}
	names := []string{"x1", "x2", "c1", "c2", "noise", "x1_dup", "x1_shadow", "constant", "default_flag"}
	for _, name := range names {
		cols[name] = make([]float64, n)
	}
	c1Levels := []float64{-0.6, 0.1, 0.7}
	c2Levels := []float64{-0.4, 0.5}
	for i := 0; i < n; i++ {
		x1 := rng.NormFloat64()
		x2 := rng.NormFloat64()
		c1 := c1Levels[rng.Intn(len(c1Levels))]
		c2 := c2Levels[rng.Intn(len(c2Levels))]
		cols["x1"][i] = x1
		cols["x2"][i] = x2
		cols["c1"][i] = c1
		cols["c2"][i] = c2
		cols["noise"][i] = rng.NormFloat64()
		cols["x1_dup"][i] = x1 + 0.05*rng.NormFloat64()
		cols["x1_shadow"][i] = 0.6*x1 + 0.8*rng.NormFloat64()
		cols["constant"][i] = 1

		eta := -1 + 0.9*x1 - 0.7*x2 + 1.0*c1 + 0.8*c2
		if rng.Float64() < 1/(1+math.Exp(-eta)) {
			cols["default_flag"][i] = 1
		}
	}

	columns := make([]dataset.Column, 0, len(names))
	for _, name := range names {
		columns = append(columns, dataset.NumericColumn(name, cols[name]))
	}
	table, err := dataset.New(columns...)
	require.NoError(t, err)
	return table
}

// suppressionTable has y = logit(1.5*x1 - 0.5*x2) with x2 = 0.6*x1 + 0.8*z,
// so x2 correlates positively with y but gets a negative coefficient.
func suppressionTable(t *testing.T, n int, seed int64) *dataset.Table {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	x1 := make([]float64, n)
	x2 := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x1[i] = rng.NormFloat64()
		x2[i] = 0.6*x1[i] + 0.8*rng.NormFloat64()
		eta := 1.5*x1[i] - 0.5*x2[i]
		if rng.Float64() < 1/(1+math.Exp(-eta)) {
			y[i] = 1
		}
	}
	table, err := dataset.New(
		dataset.NumericColumn("x1", x1),
		dataset.NumericColumn("x2", x2),
		dataset.NumericColumn("default_flag", y),
	)
	require.NoError(t, err)
	return table
}
