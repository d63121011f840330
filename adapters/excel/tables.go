package excel

import (
	"strings"

	"scorecard/domain/mfa"
	"scorecard/domain/sfa"
)

// AcceptedTable lists accepted combinations in long format: one row per
// variable with the combination statistics repeated on every row
func AcceptedTable(res *mfa.SearchResult) *ResultTable {
	t := NewResultTable("rank", "combination", "variable", "coefficients", "p_values", "vif",
		"correlation", "contribution_pct", "max_pval", "max_vif", "gini", "sign_check",
		"min_contribution", "max_contribution")
	for rank, ev := range res.Accepted {
		s := ev.Summary
		for _, v := range ev.Variables {
			t.Append(rank+1, ev.Combination.Key(), v.Variable, v.Coefficient, v.PValue, v.VIF,
				v.Correlation, v.Contribution, s.MaxPValue, s.MaxVIF, s.Gini, s.SignCheck,
				s.MinContribution, s.MaxContribution)
		}
	}
	return t
}

// CombinationSummaryTable lists one row per accepted combination
func CombinationSummaryTable(res *mfa.SearchResult) *ResultTable {
	t := NewResultTable("rank", "combination", "gini", "max_pval", "max_vif",
		"min_contribution", "max_contribution", "intercept", "iterations")
	for rank, ev := range res.Accepted {
		s := ev.Summary
		t.Append(rank+1, ev.Combination.Key(), s.Gini, s.MaxPValue, s.MaxVIF,
			s.MinContribution, s.MaxContribution, s.Intercept, s.Iterations)
	}
	return t
}

// AuditTable lists every evaluated combination with its outcome
func AuditTable(res *mfa.SearchResult) *ResultTable {
	t := NewResultTable("combination", "status", "reasons", "gini", "max_pval", "max_vif", "error")
	for _, ev := range res.Audit {
		reasons := make([]string, len(ev.Reasons))
		for i, r := range ev.Reasons {
			reasons[i] = string(r)
		}
		var gini, maxP, maxVIF interface{}
		if ev.Status == mfa.StatusAccepted || ev.Status == mfa.StatusRejected {
			gini, maxP, maxVIF = ev.Summary.Gini, ev.Summary.MaxPValue, ev.Summary.MaxVIF
		}
		t.Append(ev.Combination.Key(), string(ev.Status), strings.Join(reasons, ","), gini, maxP, maxVIF, ev.Error())
	}
	return t
}

// StatsTable lists the search counters and identifiers
func StatsTable(res *mfa.SearchResult) *ResultTable {
	s := res.Stats
	t := NewResultTable("metric", "value")
	t.Append("run_id", res.RunID.String())
	t.Append("target", res.Target)
	t.Append("combination_size", res.Size)
	t.Append("enumerated", s.Enumerated)
	t.Append("excluded_pair", s.ExcludedPair)
	t.Append("type_mix", s.TypeMix)
	t.Append("evaluated", s.Evaluated)
	t.Append("accepted", s.Accepted)
	t.Append("rejected", s.Rejected)
	t.Append("fit_failed", s.FitFailed)
	t.Append("skipped", s.Skipped)
	t.Append("truncated", s.Truncated)
	t.Append("params_hash", res.ParamsHash.String())
	t.Append("fingerprint", res.Fingerprint.String())
	t.Append("duration_seconds", res.Duration.Seconds())
	return t
}

// WOESheet renders a WOE table
func WOESheet(w *sfa.WOETable) *ResultTable {
	t := NewResultTable("category", "pop", "def", "nondef", "def_rate", "perc_def", "perc_nondef", "woe", "iv")
	for _, r := range w.Rows {
		t.Append(r.Category, r.Population, r.Events, r.NonEvents, r.EventRate,
			r.EventShare, r.NonEventShare, r.WOE, r.IV)
	}
	return t
}

// BinSheet renders a bin mapping, with the missing bin last when present
func BinSheet(m sfa.BinMapping) *ResultTable {
	t := NewResultTable("bin_id", "lower", "upper", "label", "count")
	for _, b := range m.Bins {
		t.Append(b.Index, b.Lower, b.Upper, b.Label, b.Count)
	}
	if m.Missing > 0 {
		t.Append(sfa.MissingBinIndex, nil, nil, "missing", m.Missing)
	}
	return t
}

// IVSummarySheet renders the single-factor strength ranking
func IVSummarySheet(items []sfa.FeatureStrength) *ResultTable {
	t := NewResultTable("feature", "kind", "bins", "total_iv", "undefined_categories", "missing_woe")
	for _, it := range items {
		t.Append(it.Feature, string(it.Kind), it.Bins, it.TotalIV, it.Undefined, it.MissingWOE)
	}
	return t
}
