package mfa

import (
	"fmt"
	"math"

	"scorecard/adapters/stats/logit"
	"scorecard/domain/core"
	"scorecard/domain/dataset"
	"scorecard/domain/mfa"

	"gonum.org/v1/gonum/mat"
)

// Criteria are the acceptance thresholds for a fitted combination
type Criteria struct {
	MaxPValue float64
	MaxVIF    float64
}

// DefaultCriteria returns p < 0.05 and VIF < 2.5
func DefaultCriteria() Criteria {
	return Criteria{MaxPValue: 0.05, MaxVIF: 2.5}
}

// Evaluator fits and screens one combination at a time. It holds no mutable
// state, so one Evaluator may be shared by any number of goroutines.
type Evaluator struct {
	criteria Criteria
	fit      logit.Options
}

// NewEvaluator creates an evaluator with the given acceptance criteria
func NewEvaluator(criteria Criteria) *Evaluator {
	return &Evaluator{criteria: criteria, fit: logit.DefaultOptions()}
}

// Criteria returns the acceptance thresholds in use
func (e *Evaluator) Criteria() Criteria {
	return e.criteria
}

// Evaluate fits target on the combination and applies the acceptance rule.
// It never returns an error: fit problems, including panics, come back as a
// StatusFitFailed evaluation.
func (e *Evaluator) Evaluate(t *dataset.Table, target string, combo mfa.Combination) (ev mfa.Evaluation) {
	combo = append(mfa.Combination(nil), combo...)
	defer func() {
		if r := recover(); r != nil {
			ev = failed(combo, fmt.Errorf("%w: panic: %v", core.ErrFitFailed, r))
		}
	}()

	y, err := t.Target(target)
	if err != nil {
		return failed(combo, err)
	}
	X, cols, err := designMatrix(t, combo)
	if err != nil {
		return failed(combo, err)
	}

	model, err := logit.Fit(X, y, e.fit)
	if err != nil {
		return failed(combo, err)
	}

	gini, err := logit.Gini(y, model.Predict(X))
	if err != nil {
		return failed(combo, err)
	}

	vars := make([]mfa.VariableDiagnostic, len(combo))
	weights := make([]float64, len(combo))
	signCheck := true
	for i, name := range combo {
		j := i + 1
		coef := model.Params[j]
		corr := logit.Correlation(cols[i], y)
		if math.IsNaN(corr) || logit.Sign(coef) != logit.Sign(corr) {
			signCheck = false
		}
		sd, err := logit.SampleStdDev(cols[i])
		if err != nil {
			sd = math.NaN()
		}
		weights[i] = math.Abs(coef) * sd
		vars[i] = mfa.VariableDiagnostic{
			Variable:    name,
			Coefficient: coef,
			PValue:      model.PValues[j],
			VIF:         logit.VIF(X, j),
			Correlation: corr,
		}
	}

	total := 0.0
	for _, w := range weights {
		total += w
	}
	summary := mfa.Summary{
		MaxPValue:       math.Inf(-1),
		MaxVIF:          math.Inf(-1),
		Gini:            gini,
		SignCheck:       signCheck,
		MinContribution: math.Inf(1),
		MaxContribution: math.Inf(-1),
		Intercept:       model.Params[0],
		Iterations:      model.Iterations,
	}
	for i := range vars {
		share := math.NaN()
		if total > 0 {
			share = weights[i] / total
		}
		vars[i].Contribution = share
		summary.MaxPValue = nanMax(summary.MaxPValue, vars[i].PValue)
		summary.MaxVIF = nanMax(summary.MaxVIF, vars[i].VIF)
		summary.MinContribution = nanMin(summary.MinContribution, share)
		summary.MaxContribution = nanMax(summary.MaxContribution, share)
	}

	reasons := e.reject(summary)
	if len(reasons) > 0 {
		return mfa.Evaluation{
			Combination: combo,
			Status:      mfa.StatusRejected,
			Summary:     summary,
			Reasons:     reasons,
		}
	}
	return mfa.Evaluation{
		Combination: combo,
		Status:      mfa.StatusAccepted,
		Variables:   vars,
		Summary:     summary,
	}
}

// reject lists every criterion the summary fails. NaN never passes.
func (e *Evaluator) reject(s mfa.Summary) []mfa.RejectReason {
	var reasons []mfa.RejectReason
	if !(s.MaxPValue < e.criteria.MaxPValue) {
		reasons = append(reasons, mfa.ReasonPValue)
	}
	if !(s.MaxVIF < e.criteria.MaxVIF) {
		reasons = append(reasons, mfa.ReasonVIF)
	}
	if !s.SignCheck {
		reasons = append(reasons, mfa.ReasonSignCheck)
	}
	return reasons
}

// designMatrix copies the combination's columns into a new matrix with a
// leading intercept column. It also returns the raw feature columns.
func designMatrix(t *dataset.Table, combo mfa.Combination) (*mat.Dense, [][]float64, error) {
	if len(combo) == 0 {
		return nil, nil, fmt.Errorf("%w: empty combination", core.ErrInvalidInput)
	}
	n := t.Rows()
	cols := make([][]float64, len(combo))
	for i, name := range combo {
		values, err := t.Floats(name)
		if err != nil {
			return nil, nil, err
		}
		for _, v := range values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, nil, fmt.Errorf("%w: column %q", core.ErrMissingValues, name)
			}
		}
		cols[i] = values
	}

	X := mat.NewDense(n, len(combo)+1, nil)
	for r := 0; r < n; r++ {
		X.Set(r, 0, 1)
		for i := range cols {
			X.Set(r, i+1, cols[i][r])
		}
	}
	return X, cols, nil
}

func failed(combo mfa.Combination, err error) mfa.Evaluation {
	return mfa.Evaluation{
		Combination: combo,
		Status:      mfa.StatusFitFailed,
		Err:         core.NewFitError(combo.Key(), err),
	}
}

func nanMax(a, b float64) float64 {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.NaN()
	}
	return math.Max(a, b)
}

func nanMin(a, b float64) float64 {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.NaN()
	}
	return math.Min(a, b)
}
