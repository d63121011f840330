package mfa

import (
	"math"

	"scorecard/domain/mfa"

	"gonum.org/v1/gonum/stat/combin"
)

// maxExactLog bounds log C(n,k) for which the integer binomial, including
// its intermediate products, stays inside int64.
var maxExactLog = math.Log(math.MaxInt64) - 8

// CountCombinations is the number of k-subsets of n features, 0 when k is
// out of range. Counts too large for exact integer arithmetic are
// approximated from the log-gamma form.
func CountCombinations(n, k int) float64 {
	if k <= 0 || k > n {
		return 0
	}
	logCount := combin.LogGeneralizedBinomial(float64(n), float64(k))
	if logCount+math.Log(float64(n)) < maxExactLog {
		return float64(combin.Binomial(n, k))
	}
	return math.Exp(logCount)
}

// forEachCombination calls fn with every k-subset of names in lexicographic
// index order until fn returns false. Each combination is a fresh slice.
// The total is never computed, so spaces larger than an int can be walked
// as long as fn stops early.
func forEachCombination(names []string, k int, fn func(mfa.Combination) bool) {
	n := len(names)
	if k <= 0 || k > n {
		return
	}
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	for {
		combo := make(mfa.Combination, k)
		for i, j := range idx {
			combo[i] = names[j]
		}
		if !fn(combo) {
			return
		}

		// rightmost position that can still move right
		i := k - 1
		for i >= 0 && idx[i] == n-k+i {
			i--
		}
		if i < 0 {
			return
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}
