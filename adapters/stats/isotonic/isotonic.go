// Package isotonic fits monotone step functions with the
// pool-adjacent-violators algorithm.
package isotonic

import (
	"fmt"
	"math"
	"sort"

	"scorecard/adapters/stats/rank"
	"scorecard/domain/core"

	"gonum.org/v1/gonum/stat"
)

// Direction is the monotonicity of a fit
type Direction int

const (
	Increasing Direction = iota
	Decreasing
)

func (d Direction) String() string {
	if d == Decreasing {
		return "decreasing"
	}
	return "increasing"
}

// DetectDirection picks the direction from the sign of the Spearman
// correlation between x and y; a non-negative or undefined correlation
// means increasing.
func DetectDirection(x, y []float64) Direction {
	rho := stat.Correlation(rank.Average(x), rank.Average(y), nil)
	if rho < 0 {
		return Decreasing
	}
	return Increasing
}

// FitAuto detects the direction and fits
func FitAuto(x, y []float64) ([]float64, Direction, error) {
	dir := DetectDirection(x, y)
	fitted, err := Fit(x, y, dir)
	return fitted, dir, err
}

// Fit returns the isotonic regression of y on x evaluated at every row.
// Rows sharing an x value are pooled first, so they always receive the
// same fitted value. Inputs are not modified.
func Fit(x, y []float64, dir Direction) ([]float64, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("%w: x has %d rows, y has %d", core.ErrLengthMismatch, len(x), len(y))
	}
	if len(x) == 0 {
		return nil, core.ErrInsufficientData
	}
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			return nil, fmt.Errorf("%w: missing value at row %d", core.ErrInvalidInput, i)
		}
	}

	order := make([]int, len(x))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return x[order[a]] < x[order[b]] })

	sign := 1.0
	if dir == Decreasing {
		sign = -1.0
	}

	// one block per distinct x, in ascending x order
	type block struct {
		sum    float64
		weight float64
		groups int
	}
	var tieGroup []int // tie group id per sorted position
	var blocks []block
	for pos, idx := range order {
		if pos == 0 || x[idx] != x[order[pos-1]] {
			blocks = append(blocks, block{groups: 1})
		}
		b := &blocks[len(blocks)-1]
		b.sum += sign * y[idx]
		b.weight++
		tieGroup = append(tieGroup, len(blocks)-1)
	}

	// pool adjacent violators
	stack := make([]block, 0, len(blocks))
	for _, b := range blocks {
		stack = append(stack, b)
		for len(stack) > 1 {
			top := stack[len(stack)-1]
			prev := stack[len(stack)-2]
			if prev.sum/prev.weight <= top.sum/top.weight {
				break
			}
			stack = stack[:len(stack)-2]
			stack = append(stack, block{
				sum:    prev.sum + top.sum,
				weight: prev.weight + top.weight,
				groups: prev.groups + top.groups,
			})
		}
	}

	groupValue := make([]float64, len(blocks))
	g := 0
	for _, b := range stack {
		mean := sign * b.sum / b.weight
		for i := 0; i < b.groups; i++ {
			groupValue[g] = mean
			g++
		}
	}

	fitted := make([]float64, len(x))
	for pos, idx := range order {
		fitted[idx] = groupValue[tieGroup[pos]]
	}
	return fitted, nil
}
