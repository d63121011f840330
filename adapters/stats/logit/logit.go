// Package logit fits binomial logistic regressions and computes the
// diagnostics used to screen candidate scorecard models.
package logit

import (
	"fmt"
	"math"

	"scorecard/domain/core"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Options controls the Newton-Raphson fit
type Options struct {
	MaxIter int
	Tol     float64 // maximum absolute parameter change at convergence
}

// DefaultOptions mirrors the usual statistical-package defaults
func DefaultOptions() Options {
	return Options{MaxIter: 35, Tol: 1e-8}
}

// maxCondition is the largest information-matrix condition number accepted
const maxCondition = 1e15

// Model is a fitted logistic regression. Parameter slices are indexed like
// the design matrix columns.
type Model struct {
	Params     []float64
	StdErr     []float64
	ZValues    []float64
	PValues    []float64
	LogLik     float64
	Iterations int
}

// Fit estimates a logistic regression of y on the design matrix X by
// Newton-Raphson. X must already contain any intercept column. A constant
// target, a singular information matrix, non-finite estimates, perfect
// separation and non-convergence are all reported as errors wrapping
// core.ErrFitFailed. X and y are not modified.
func Fit(X mat.Matrix, y []float64, opts Options) (*Model, error) {
	n, k := X.Dims()
	if n != len(y) {
		return nil, fmt.Errorf("%w: design has %d rows, target %d", core.ErrLengthMismatch, n, len(y))
	}
	if n <= k {
		return nil, fmt.Errorf("%w: %d rows for %d parameters", core.ErrInsufficientData, n, k)
	}
	if degenerate(y) {
		return nil, core.ErrDegenerateTarget
	}
	if opts.MaxIter <= 0 {
		opts = DefaultOptions()
	}

	beta := mat.NewVecDense(k, nil)
	iter := 0
	converged := false
	for iter < opts.MaxIter {
		iter++
		chol, grad, err := newtonSystem(X, y, beta)
		if err != nil {
			return nil, err
		}
		var step mat.VecDense
		if err := chol.SolveVecTo(&step, grad); err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrSingularMatrix, err)
		}
		beta.AddVec(beta, &step)

		maxStep := 0.0
		for j := 0; j < k; j++ {
			maxStep = math.Max(maxStep, math.Abs(step.AtVec(j)))
		}
		if math.IsNaN(maxStep) || math.IsInf(maxStep, 0) {
			return nil, core.ErrNonFinite
		}
		if maxStep < opts.Tol {
			converged = true
			break
		}
	}
	if !converged {
		return nil, fmt.Errorf("%w after %d iterations", core.ErrNotConverged, iter)
	}

	chol, _, err := newtonSystem(X, y, beta)
	if err != nil {
		return nil, err
	}
	var cov mat.SymDense
	if err := chol.InverseTo(&cov); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrSingularMatrix, err)
	}

	m := &Model{
		Params:     make([]float64, k),
		StdErr:     make([]float64, k),
		ZValues:    make([]float64, k),
		PValues:    make([]float64, k),
		Iterations: iter,
	}
	for j := 0; j < k; j++ {
		b := beta.AtVec(j)
		v := cov.At(j, j)
		if math.IsNaN(b) || math.IsInf(b, 0) || !(v > 0) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: parameter %d", core.ErrNonFinite, j)
		}
		m.Params[j] = b
		m.StdErr[j] = math.Sqrt(v)
		m.ZValues[j] = b / m.StdErr[j]
		m.PValues[j] = 2 * distuv.UnitNormal.CDF(-math.Abs(m.ZValues[j]))
	}

	var eta mat.VecDense
	eta.MulVec(X, beta)
	separated := true
	for i := 0; i < n; i++ {
		e := eta.AtVec(i)
		m.LogLik += y[i]*e - softplus(e)
		if math.Abs(sigmoid(e)-y[i]) > 1e-10 {
			separated = false
		}
	}
	if separated {
		return nil, fmt.Errorf("%w: perfect separation", core.ErrFitFailed)
	}
	return m, nil
}

// newtonSystem factorizes the information matrix X'WX at beta and returns
// it with the score vector X'(y-p).
func newtonSystem(X mat.Matrix, y []float64, beta *mat.VecDense) (*mat.Cholesky, *mat.VecDense, error) {
	n, k := X.Dims()
	var eta mat.VecDense
	eta.MulVec(X, beta)

	resid := mat.NewVecDense(n, nil)
	weighted := mat.NewDense(n, k, nil)
	for i := 0; i < n; i++ {
		p := sigmoid(eta.AtVec(i))
		resid.SetVec(i, y[i]-p)
		w := math.Sqrt(p * (1 - p))
		for j := 0; j < k; j++ {
			weighted.Set(i, j, w*X.At(i, j))
		}
	}

	var info mat.SymDense
	info.SymOuterK(1, weighted.T())

	var chol mat.Cholesky
	if ok := chol.Factorize(&info); !ok {
		return nil, nil, core.ErrSingularMatrix
	}
	if c := chol.Cond(); math.IsInf(c, 0) || math.IsNaN(c) || c > maxCondition {
		return nil, nil, fmt.Errorf("%w: condition number %g", core.ErrSingularMatrix, c)
	}

	grad := mat.NewVecDense(k, nil)
	grad.MulVec(X.T(), resid)
	return &chol, grad, nil
}

// Predict returns the fitted event probabilities for the rows of X in a
// newly allocated slice.
func (m *Model) Predict(X mat.Matrix) []float64 {
	n, _ := X.Dims()
	var eta mat.VecDense
	eta.MulVec(X, mat.NewVecDense(len(m.Params), append([]float64(nil), m.Params...)))
	out := make([]float64, n)
	for i := range out {
		out[i] = sigmoid(eta.AtVec(i))
	}
	return out
}

func degenerate(y []float64) bool {
	for _, v := range y[1:] {
		if v != y[0] {
			return false
		}
	}
	return true
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

// softplus is log(1+exp(x)) without overflow
func softplus(x float64) float64 {
	if x > 0 {
		return x + math.Log1p(math.Exp(-x))
	}
	return math.Log1p(math.Exp(x))
}
