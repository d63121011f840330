package mfa

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"scorecard/domain/core"
	"scorecard/domain/dataset"
)

// Pool is the candidate feature pool partitioned by declared kind
type Pool struct {
	Numeric     []string `json:"numeric" yaml:"numeric"`
	Categorical []string `json:"categorical" yaml:"categorical"`
}

// Names returns numeric features followed by categorical features
func (p Pool) Names() []string {
	names := make([]string, 0, len(p.Numeric)+len(p.Categorical))
	names = append(names, p.Numeric...)
	return append(names, p.Categorical...)
}

// KindOf returns the declared kind of a feature in the pool
func (p Pool) KindOf(name string) (dataset.Kind, bool) {
	for _, n := range p.Numeric {
		if n == name {
			return dataset.KindNumeric, true
		}
	}
	for _, n := range p.Categorical {
		if n == name {
			return dataset.KindCategorical, true
		}
	}
	return "", false
}

// Validate rejects empty names and features declared twice
func (p Pool) Validate() error {
	seen := make(map[string]bool)
	for _, n := range p.Names() {
		if strings.TrimSpace(n) == "" {
			return fmt.Errorf("%w: empty feature name in pool", core.ErrInvalidInput)
		}
		if seen[n] {
			return fmt.Errorf("%w: feature %q appears twice in pool", core.ErrInvalidInput, n)
		}
		seen[n] = true
	}
	return nil
}

// Combination is an unordered set of feature names, stored in pool order
type Combination []string

// Key is the canonical name of the combination
func (c Combination) Key() string {
	return strings.Join(c, "+")
}

// Pair is two features that must never appear in the same combination
type Pair struct {
	A string `json:"a" yaml:"a"`
	B string `json:"b" yaml:"b"`
}

// ExcludedPairs is a symmetric set of excluded feature pairs
type ExcludedPairs struct {
	pairs []Pair
	set   map[[2]string]struct{}
}

// NewExcludedPairs builds the symmetric exclusion set
func NewExcludedPairs(pairs ...Pair) ExcludedPairs {
	e := ExcludedPairs{set: make(map[[2]string]struct{}, len(pairs))}
	for _, p := range pairs {
		k := pairKey(p.A, p.B)
		if _, dup := e.set[k]; dup {
			continue
		}
		e.set[k] = struct{}{}
		e.pairs = append(e.pairs, p)
	}
	return e
}

func pairKey(a, b string) [2]string {
	if b < a {
		a, b = b, a
	}
	return [2]string{a, b}
}

// Excludes reports whether a and b form an excluded pair
func (e ExcludedPairs) Excludes(a, b string) bool {
	_, ok := e.set[pairKey(a, b)]
	return ok
}

// Pairs returns the configured pairs in insertion order
func (e ExcludedPairs) Pairs() []Pair {
	return append([]Pair(nil), e.pairs...)
}

// Len returns the number of distinct excluded pairs
func (e ExcludedPairs) Len() int {
	return len(e.pairs)
}

// Status is the outcome of evaluating one combination
type Status string

const (
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"   // fitted, failed the acceptance rule
	StatusFitFailed Status = "fit_failed" // the model could not be fitted
	StatusSkipped   Status = "skipped"    // never evaluated (deadline)
)

// RejectReason names the acceptance criterion a fitted model failed
type RejectReason string

const (
	ReasonPValue    RejectReason = "max_pvalue"
	ReasonVIF       RejectReason = "max_vif"
	ReasonSignCheck RejectReason = "sign_check"
)

// VariableDiagnostic holds the per-variable statistics of a fitted model
type VariableDiagnostic struct {
	Variable     string  `json:"variable"`
	Coefficient  float64 `json:"coefficients"`
	PValue       float64 `json:"p_values"`
	VIF          float64 `json:"vif"`
	Correlation  float64 `json:"correlation"`
	Contribution float64 `json:"contribution_pct"`
}

// Summary holds the combination-level statistics of a fitted model
type Summary struct {
	MaxPValue       float64 `json:"max_pval"`
	MaxVIF          float64 `json:"max_vif"`
	Gini            float64 `json:"gini"`
	SignCheck       bool    `json:"sign_check"`
	MinContribution float64 `json:"min_contribution"`
	MaxContribution float64 `json:"max_contribution"`
	Intercept       float64 `json:"intercept"`
	Iterations      int     `json:"iterations"`
}

// Evaluation is the result of one combination. Only accepted evaluations
// carry variable rows; rejected ones carry the summary and the reasons;
// failed ones carry only the error.
type Evaluation struct {
	Combination Combination          `json:"combination"`
	Status      Status               `json:"status"`
	Variables   []VariableDiagnostic `json:"variables,omitempty"`
	Summary     Summary              `json:"summary"`
	Reasons     []RejectReason       `json:"reasons,omitempty"`
	Err         error                `json:"-"`
}

// Accepted reports whether the combination passed the acceptance rule
func (e Evaluation) Accepted() bool {
	return e.Status == StatusAccepted
}

// Error returns the failure message, if any
func (e Evaluation) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// SearchStats counts combinations by outcome
type SearchStats struct {
	Enumerated   int  `json:"enumerated"`
	ExcludedPair int  `json:"excluded_pair"`
	TypeMix      int  `json:"type_mix"`
	Evaluated    int  `json:"evaluated"`
	Accepted     int  `json:"accepted"`
	Rejected     int  `json:"rejected"`
	FitFailed    int  `json:"fit_failed"`
	Skipped      int  `json:"skipped"`
	Truncated    bool `json:"truncated"` // enumeration stopped at the combination cap
}

// SearchResult is the ranked output of one combinatorial search
type SearchResult struct {
	RunID       core.RunID    `json:"run_id"`
	Target      string        `json:"target"`
	Size        int           `json:"size"`
	Accepted    []Evaluation  `json:"accepted"`
	Audit       []Evaluation  `json:"audit,omitempty"`
	Stats       SearchStats   `json:"stats"`
	ParamsHash  core.Hash     `json:"params_hash"`
	Fingerprint core.Hash     `json:"fingerprint"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
}

// RankByGini orders evaluations by Gini descending, breaking ties by
// combination key so the order is total and reproducible.
func RankByGini(evals []Evaluation) {
	sort.SliceStable(evals, func(i, j int) bool {
		gi, gj := evals[i].Summary.Gini, evals[j].Summary.Gini
		if gi != gj {
			return gi > gj
		}
		return evals[i].Combination.Key() < evals[j].Combination.Key()
	})
}

// ComputeFingerprint hashes the accepted combinations and their statistics
func ComputeFingerprint(accepted []Evaluation) core.Hash {
	var b strings.Builder
	for _, e := range accepted {
		b.WriteString(e.Combination.Key())
		fmt.Fprintf(&b, "|%x|%x|%x", e.Summary.Gini, e.Summary.MaxPValue, e.Summary.MaxVIF)
		for _, v := range e.Variables {
			fmt.Fprintf(&b, "|%s:%x:%x:%x:%x", v.Variable, v.Coefficient, v.PValue, v.VIF, v.Contribution)
		}
		b.WriteString("\n")
	}
	return core.NewHash([]byte(b.String()))
}
