// Package mfa runs multi-factor analysis: it screens candidate feature
// combinations, fits a logistic model per admissible combination and ranks
// the models that pass the acceptance rule.
package mfa

import (
	"scorecard/domain/dataset"
	"scorecard/domain/mfa"
)

// TypeMix is the minimum number of features of each declared kind a
// combination must contain.
type TypeMix struct {
	MinNumeric     int `yaml:"min_numeric"`
	MinCategorical int `yaml:"min_categorical"`
}

// DefaultTypeMix disallows single-type models: two of each kind
func DefaultTypeMix() TypeMix {
	return TypeMix{MinNumeric: 2, MinCategorical: 2}
}

// ViolatesExclusion reports whether combo holds both members of any excluded pair
func ViolatesExclusion(combo mfa.Combination, excluded mfa.ExcludedPairs) bool {
	if excluded.Len() == 0 {
		return false
	}
	for i := 0; i < len(combo); i++ {
		for j := i + 1; j < len(combo); j++ {
			if excluded.Excludes(combo[i], combo[j]) {
				return true
			}
		}
	}
	return false
}

// ViolatesTypeMix reports whether combo has too few numeric or categorical
// features. Names the pool does not declare count towards neither kind.
func ViolatesTypeMix(combo mfa.Combination, pool mfa.Pool, mix TypeMix) bool {
	numeric, categorical := 0, 0
	for _, name := range combo {
		kind, ok := pool.KindOf(name)
		if !ok {
			continue
		}
		switch kind {
		case dataset.KindNumeric:
			numeric++
		case dataset.KindCategorical:
			categorical++
		}
	}
	return numeric < mix.MinNumeric || categorical < mix.MinCategorical
}

// Admissible reports whether combo passes both structural predicates
func Admissible(combo mfa.Combination, pool mfa.Pool, excluded mfa.ExcludedPairs, mix TypeMix) bool {
	return !ViolatesExclusion(combo, excluded) && !ViolatesTypeMix(combo, pool, mix)
}
