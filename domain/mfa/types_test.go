package mfa

import (
	"testing"

	"scorecard/domain/dataset"

	"github.com/stretchr/testify/assert"
)

func TestExcludedPairs_Symmetric(t *testing.T) {
	pairs := NewExcludedPairs(
		Pair{A: "loan_amnt", B: "funded_amnt"},
		Pair{A: "funded_amnt", B: "loan_amnt"},
		Pair{A: "grade", B: "sub_grade"},
	)

	assert.Equal(t, 2, pairs.Len())
	assert.True(t, pairs.Excludes("funded_amnt", "loan_amnt"))
	assert.True(t, pairs.Excludes("loan_amnt", "funded_amnt"))
	assert.True(t, pairs.Excludes("sub_grade", "grade"))
	assert.False(t, pairs.Excludes("grade", "loan_amnt"))
}

func TestPool_KindOfAndValidate(t *testing.T) {
	p := Pool{Numeric: []string{"dti", "annual_inc"}, Categorical: []string{"grade"}}

	kind, ok := p.KindOf("grade")
	assert.True(t, ok)
	assert.Equal(t, dataset.KindCategorical, kind)

	_, ok = p.KindOf("purpose")
	assert.False(t, ok)

	assert.NoError(t, p.Validate())
	assert.Error(t, Pool{Numeric: []string{"dti"}, Categorical: []string{"dti"}}.Validate())
}

func TestRankByGini_TotalOrder(t *testing.T) {
	evals := []Evaluation{
		{Combination: Combination{"b", "c"}, Summary: Summary{Gini: 0.4}},
		{Combination: Combination{"a", "c"}, Summary: Summary{Gini: 0.4}},
		{Combination: Combination{"a", "b"}, Summary: Summary{Gini: 0.6}},
	}
	RankByGini(evals)

	assert.Equal(t, "a+b", evals[0].Combination.Key())
	assert.Equal(t, "a+c", evals[1].Combination.Key())
	assert.Equal(t, "b+c", evals[2].Combination.Key())
}

func TestComputeFingerprint_SensitiveToStatistics(t *testing.T) {
	base := []Evaluation{{
		Combination: Combination{"a", "b"},
		Summary:     Summary{Gini: 0.5},
		Variables:   []VariableDiagnostic{{Variable: "a", Coefficient: 1}},
	}}
	same := []Evaluation{{
		Combination: Combination{"a", "b"},
		Summary:     Summary{Gini: 0.5},
		Variables:   []VariableDiagnostic{{Variable: "a", Coefficient: 1}},
	}}
	other := []Evaluation{{
		Combination: Combination{"a", "b"},
		Summary:     Summary{Gini: 0.5},
		Variables:   []VariableDiagnostic{{Variable: "a", Coefficient: 1.0000001}},
	}}

	assert.Equal(t, ComputeFingerprint(base), ComputeFingerprint(same))
	assert.NotEqual(t, ComputeFingerprint(base), ComputeFingerprint(other))
}
