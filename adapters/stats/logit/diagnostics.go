package logit

import (
	"fmt"
	"math"

	"scorecard/adapters/stats/rank"
	"scorecard/domain/core"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// VIF returns the variance inflation factor of design column j: 1/(1-R²)
// of the least-squares regression of column j on every other column of X,
// intercept included. Constant columns and exact collinearity give +Inf.
func VIF(X mat.Matrix, j int) float64 {
	n, k := X.Dims()
	if k < 2 {
		return 1
	}

	others := mat.NewDense(n, k-1, nil)
	target := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		c := 0
		for col := 0; col < k; col++ {
			if col == j {
				target.Set(i, 0, X.At(i, col))
				continue
			}
			others.Set(i, c, X.At(i, col))
			c++
		}
	}

	var qr mat.QR
	qr.Factorize(others)
	var coef mat.Dense
	if err := qr.SolveTo(&coef, false, target); err != nil {
		return math.Inf(1)
	}

	var fitted mat.Dense
	fitted.Mul(others, &coef)

	col := mat.Col(nil, 0, target)
	mean := stat.Mean(col, nil)
	var ssr, sst float64
	for i := 0; i < n; i++ {
		r := col[i] - fitted.At(i, 0)
		ssr += r * r
		d := col[i] - mean
		sst += d * d
	}
	if sst == 0 {
		return math.Inf(1)
	}
	r2 := 1 - ssr/sst
	if r2 >= 1 {
		return math.Inf(1)
	}
	return 1 / (1 - r2)
}

// AUC is the area under the ROC curve of scores against binary labels,
// computed from average ranks so tied scores count one half.
func AUC(labels, scores []float64) (float64, error) {
	if len(labels) != len(scores) {
		return math.NaN(), fmt.Errorf("%w: %d labels, %d scores", core.ErrLengthMismatch, len(labels), len(scores))
	}
	ranks := rank.Average(scores)
	var pos, neg, rankSum float64
	for i, l := range labels {
		if l == 1 {
			pos++
			rankSum += ranks[i]
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return math.NaN(), core.ErrDegenerateTarget
	}
	return (rankSum - pos*(pos+1)/2) / (pos * neg), nil
}

// Gini is 2·AUC − 1
func Gini(labels, scores []float64) (float64, error) {
	auc, err := AUC(labels, scores)
	if err != nil {
		return math.NaN(), err
	}
	return 2*auc - 1, nil
}

// Correlation is the Pearson correlation of x with y; NaN when either is constant
func Correlation(x, y []float64) float64 {
	return stat.Correlation(x, y, nil)
}

// SampleStdDev is the n-1 standard deviation of x
func SampleStdDev(x []float64) (float64, error) {
	return stats.StandardDeviationSample(stats.Float64Data(x))
}

// Sign returns -1, 0 or +1, and NaN for NaN
func Sign(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return math.NaN()
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
