package mfa

import (
	"errors"
	"math"
	"testing"

	"scorecard/domain/core"
	"scorecard/domain/dataset"
	"scorecard/domain/mfa"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate_AcceptsTrueModel(t *testing.T) {
	table := simulatedTable(t, 3000, 11)
	ev := NewEvaluator(DefaultCriteria()).Evaluate(table, "default_flag", mfa.Combination{"x1", "x2", "c1", "c2"})

	require.Equal(t, mfa.StatusAccepted, ev.Status, "reasons: %v, err: %v", ev.Reasons, ev.Err)
	require.Len(t, ev.Variables, 4)
	assert.True(t, ev.Summary.SignCheck)
	assert.Less(t, ev.Summary.MaxPValue, 0.05)
	assert.Less(t, ev.Summary.MaxVIF, 1.1)
	assert.Greater(t, ev.Summary.Gini, 0.3)
	assert.Greater(t, ev.Variables[0].Coefficient, 0.0)
	assert.Less(t, ev.Variables[1].Coefficient, 0.0)

	sum := 0.0
	for _, v := range ev.Variables {
		assert.GreaterOrEqual(t, v.VIF, 1.0)
		sum += v.Contribution
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.LessOrEqual(t, ev.Summary.MinContribution, ev.Summary.MaxContribution)
}

func TestEvaluate_IsPure(t *testing.T) {
	table := simulatedTable(t, 1500, 3)
	evaluator := NewEvaluator(DefaultCriteria())
	combo := mfa.Combination{"x1", "x2", "c1", "c2"}
	before, err := table.Floats("x1")
	require.NoError(t, err)

	first := evaluator.Evaluate(table, "default_flag", combo)
	second := evaluator.Evaluate(table, "default_flag", combo)

	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.Summary, second.Summary)
	assert.Equal(t, first.Variables, second.Variables)

	after, err := table.Floats("x1")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestEvaluate_SignContradictionIsRejected(t *testing.T) {
	table := suppressionTable(t, 4000, 5)
	ev := NewEvaluator(DefaultCriteria()).Evaluate(table, "default_flag", mfa.Combination{"x1", "x2"})

	require.Equal(t, mfa.StatusRejected, ev.Status, "err: %v", ev.Err)
	assert.Equal(t, []mfa.RejectReason{mfa.ReasonSignCheck}, ev.Reasons)
	assert.False(t, ev.Summary.SignCheck)
	assert.Less(t, ev.Summary.MaxPValue, 0.05)
	assert.Less(t, ev.Summary.MaxVIF, 2.5)
	assert.Empty(t, ev.Variables, "rejected evaluations carry no variable rows")
}

func TestEvaluate_CollinearityIsRejected(t *testing.T) {
	table := simulatedTable(t, 2000, 9)
	ev := NewEvaluator(DefaultCriteria()).Evaluate(table, "default_flag", mfa.Combination{"x1", "x1_dup"})

	require.Equal(t, mfa.StatusRejected, ev.Status)
	assert.Contains(t, ev.Reasons, mfa.ReasonVIF)
	assert.Greater(t, ev.Summary.MaxVIF, 2.5)
	assert.Nil(t, ev.Variables)
}

func TestEvaluate_FitFailures(t *testing.T) {
	table := simulatedTable(t, 500, 13)
	withNaN, err := table.WithColumns(dataset.NumericColumn("gappy", append(make([]float64, 499), math.NaN())))
	require.NoError(t, err)
	withText, err := table.WithColumns(dataset.CategoricalColumn("grade", make([]string, 500)))
	require.NoError(t, err)
	evaluator := NewEvaluator(DefaultCriteria())

	tests := []struct {
		name   string
		table  *dataset.Table
		target string
		combo  mfa.Combination
		want   error
	}{
		{"constant column", table, "default_flag", mfa.Combination{"x1", "constant"}, core.ErrFitFailed},
		{"missing values", withNaN, "default_flag", mfa.Combination{"x1", "gappy"}, core.ErrMissingValues},
		{"categorical storage", withText, "default_flag", mfa.Combination{"x1", "grade"}, core.ErrNotNumeric},
		{"unknown column", table, "default_flag", mfa.Combination{"x1", "nope"}, core.ErrColumnNotFound},
		{"non-binary target", table, "x2", mfa.Combination{"x1"}, core.ErrNotBinary},
		{"empty combination", table, "default_flag", mfa.Combination{}, core.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := evaluator.Evaluate(tt.table, tt.target, tt.combo)
			assert.Equal(t, mfa.StatusFitFailed, ev.Status)
			assert.True(t, errors.Is(ev.Err, tt.want), "got %v", ev.Err)
			assert.Nil(t, ev.Variables)
			assert.Nil(t, ev.Reasons)
		})
	}
}

func TestEvaluate_RecoversPanics(t *testing.T) {
	ev := NewEvaluator(DefaultCriteria()).Evaluate(nil, "default_flag", mfa.Combination{"x1"})

	assert.Equal(t, mfa.StatusFitFailed, ev.Status)
	assert.True(t, core.IsFitError(ev.Err))
	assert.Equal(t, mfa.Combination{"x1"}, ev.Combination)
}

func TestReject_StrictAndNaNSafe(t *testing.T) {
	e := NewEvaluator(DefaultCriteria())
	pass := mfa.Summary{MaxPValue: 0.01, MaxVIF: 1.2, SignCheck: true}
	assert.Empty(t, e.reject(pass))

	atThreshold := pass
	atThreshold.MaxPValue = 0.05
	assert.Equal(t, []mfa.RejectReason{mfa.ReasonPValue}, e.reject(atThreshold))

	nanVIF := pass
	nanVIF.MaxVIF = math.NaN()
	assert.Equal(t, []mfa.RejectReason{mfa.ReasonVIF}, e.reject(nanVIF))

	all := mfa.Summary{MaxPValue: 0.5, MaxVIF: math.Inf(1)}
	assert.Equal(t, []mfa.RejectReason{mfa.ReasonPValue, mfa.ReasonVIF, mfa.ReasonSignCheck}, e.reject(all))
}
