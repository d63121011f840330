package app

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"time"

	"scorecard/adapters/excel"
	"scorecard/adapters/ingest"
	"scorecard/adapters/report"
	"scorecard/adapters/stats/binning"
	"scorecard/adapters/stats/woe"
	"scorecard/domain/core"
	"scorecard/domain/dataset"
	"scorecard/domain/mfa"
	"scorecard/domain/sfa"
	"scorecard/internal"
	"scorecard/internal/config"
	"scorecard/internal/errors"
	mfasearch "scorecard/internal/mfa"
)

// FeatureAnalysis is the single-factor output for one pool feature
type FeatureAnalysis struct {
	Feature string
	Kind    dataset.Kind
	Encoded string          // name of the WOE-encoded column
	Bins    *sfa.BinMapping // nil for categorical features
	WOE     *sfa.WOETable
}

// SingleFactorResult holds every feature's analysis and the table extended
// with the derived bin and WOE columns
type SingleFactorResult struct {
	Table    *dataset.Table
	Features []FeatureAnalysis     // pool order
	Strength []sfa.FeatureStrength // IV descending
	Pool     mfa.Pool              // the encoded columns, kinds preserved
	Excluded mfa.ExcludedPairs     // configured pairs renamed to encoded columns
}

// ScorecardService runs single-factor analysis, the combination search and
// the exports
type ScorecardService struct {
	cfg      *config.Config
	loader   *ingest.CachedLoader
	searcher *mfasearch.Searcher
	writer   *excel.WorkbookWriter
	charts   *excel.ChartRenderer
	logger   *internal.Logger
}

// NewScorecardService wires the service from configuration
func NewScorecardService(cfg *config.Config, logger *internal.Logger) *ScorecardService {
	if logger == nil {
		logger = internal.NewDiscardLogger()
	}
	evaluator := mfasearch.NewEvaluator(mfasearch.Criteria{
		MaxPValue: cfg.Search.MaxPValue,
		MaxVIF:    cfg.Search.MaxVIF,
	})
	return &ScorecardService{
		cfg:      cfg,
		loader:   ingest.NewCachedLoader(logger),
		searcher: mfasearch.NewSearcher(evaluator, logger),
		writer:   excel.NewWorkbookWriter(logger),
		charts:   excel.NewChartRenderer(logger),
		logger:   logger.WithComponent("ScorecardService"),
	}
}

// Load reads the configured loan book
func (s *ScorecardService) Load(ctx context.Context) (*dataset.Table, error) {
	return s.loader.Load(ctx, s.cfg.Data.Path)
}

// SingleFactor bins every numeric pool feature, computes WOE tables for all
// pool features and WOE-encodes them for the search
func (s *ScorecardService) SingleFactor(ctx context.Context, t *dataset.Table) (*SingleFactorResult, error) {
	pool := s.cfg.Features.Pool
	target := s.cfg.Data.Target
	if err := s.checkPool(t, pool); err != nil {
		return nil, err
	}
	if _, err := t.Target(target); err != nil {
		return nil, classify(err, "target")
	}

	out := &SingleFactorResult{}
	encoded := make(map[string]string)
	for _, name := range pool.Names() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		kind, _ := pool.KindOf(name)
		fa, next, err := s.analyse(t, name, kind, target)
		if err != nil {
			return nil, classify(err, fmt.Sprintf("single-factor analysis of %s", name))
		}
		t = next
		encoded[name] = fa.Encoded
		out.Features = append(out.Features, fa)

		bins := len(fa.WOE.Rows)
		if fa.Bins != nil {
			bins = len(fa.Bins.Bins)
		}
		missingWOE := math.NaN()
		if row, ok := fa.WOE.Lookup(dataset.MissingCategory); ok {
			missingWOE = row.WOE
		}
		out.Strength = append(out.Strength, sfa.FeatureStrength{
			Feature:    name,
			Kind:       kind,
			Bins:       bins,
			TotalIV:    fa.WOE.TotalIV,
			Undefined:  fa.WOE.Undefined,
			MissingWOE: missingWOE,
		})
		if kind == dataset.KindNumeric {
			out.Pool.Numeric = append(out.Pool.Numeric, fa.Encoded)
		} else {
			out.Pool.Categorical = append(out.Pool.Categorical, fa.Encoded)
		}
		events, nonEvents := fa.WOE.Totals()
		s.logger.Debug("%s: %d bins, IV %.4f (%d events, %d non-events)", name, bins, fa.WOE.TotalIV, events, nonEvents)
	}
	sfa.RankByIV(out.Strength)

	var pairs []mfa.Pair
	for _, p := range s.cfg.Features.Excluded {
		a, okA := encoded[p.A]
		b, okB := encoded[p.B]
		if okA && okB {
			pairs = append(pairs, mfa.Pair{A: a, B: b})
		}
	}
	out.Excluded = mfa.NewExcludedPairs(pairs...)
	out.Table = t

	s.logger.Info("single-factor analysis of %d features done", len(out.Features))
	return out, nil
}

func (s *ScorecardService) analyse(t *dataset.Table, name string, kind dataset.Kind, target string) (FeatureAnalysis, *dataset.Table, error) {
	fa := FeatureAnalysis{Feature: name, Kind: kind, Encoded: name + woe.SuffixWOE}
	source := name

	if kind == dataset.KindNumeric {
		binned, err := binning.Monotonic(t, name, target, s.cfg.Binning.Bins)
		if err != nil {
			return fa, nil, err
		}
		mapping := binned.Mapping
		fa.Bins = &mapping
		t = binned.Table
		source = name + binning.SuffixBinID
	}

	calculate, encode := woe.Calculate, woe.Encode
	if kind == dataset.KindNumeric {
		calculate, encode = woe.CalculateBins, woe.EncodeBins
	}
	table, err := calculate(t, source, target)
	if err != nil {
		return fa, nil, err
	}
	fa.WOE = table
	next, err := encode(t, source, table, fa.Encoded)
	if err != nil {
		return fa, nil, err
	}
	return fa, next, nil
}

// checkPool rejects pools naming absent columns or leakage columns
func (s *ScorecardService) checkPool(t *dataset.Table, pool mfa.Pool) error {
	if err := pool.Validate(); err != nil {
		return errors.WithCode(errors.CodeInvalidInput, err)
	}
	leakage := make(map[string]bool)
	for _, c := range s.cfg.Features.Groups.Leakage() {
		leakage[c] = true
	}
	for _, name := range pool.Names() {
		if !t.Has(name) {
			return errors.InvalidInput(fmt.Sprintf("pool feature %q is not a column of the data", name))
		}
		if leakage[name] {
			return errors.ConfigInvalid(fmt.Sprintf("pool feature %q is an identifier, outcome or hardship column", name))
		}
	}
	return nil
}

// Search runs the combination search over the encoded pool
func (s *ScorecardService) Search(ctx context.Context, sf *SingleFactorResult) (*mfa.SearchResult, error) {
	c := s.cfg.Search
	res, err := s.searcher.Search(ctx, sf.Table, mfasearch.SearchRequest{
		Target:          s.cfg.Data.Target,
		Pool:            sf.Pool,
		Size:            c.ComboSize,
		Excluded:        sf.Excluded,
		Mix:             mfasearch.TypeMix{MinNumeric: c.MinNumeric, MinCategorical: c.MinCategorical},
		Workers:         c.Workers,
		MaxCombinations: c.MaxCombinations,
		Timeout:         c.Timeout,
		KeepAudit:       true,
	})
	if err != nil {
		return nil, classify(err, "combination search")
	}
	return res, nil
}

// classify wraps a domain error, tagging bad input and missing columns
// as INVALID_INPUT and anything else as INTERNAL_ERROR.
func classify(err error, message string) error {
	wrapped := errors.Wrap(err, message)
	if core.IsInputError(err) || core.IsNotFoundError(err) {
		return errors.WithCode(errors.CodeInvalidInput, wrapped)
	}
	return wrapped
}

// Workbook assembles the export: search results first, then the
// single-factor sheets. Either argument may be nil.
func (s *ScorecardService) Workbook(sf *SingleFactorResult, res *mfa.SearchResult) excel.Workbook {
	var wb excel.Workbook
	if res != nil {
		wb = append(wb,
			excel.Sheet{Name: "mfa_results", Table: excel.AcceptedTable(res)},
			excel.Sheet{Name: "combinations", Table: excel.CombinationSummaryTable(res)},
			excel.Sheet{Name: "audit", Table: excel.AuditTable(res)},
			excel.Sheet{Name: "search_stats", Table: excel.StatsTable(res)},
		)
	}
	if sf != nil {
		wb = append(wb, excel.Sheet{Name: "iv_summary", Table: excel.IVSummarySheet(sf.Strength)})
		used := make(map[string]bool)
		for _, fa := range sf.Features {
			wb = append(wb, excel.Sheet{Name: sheetName("woe_", fa.Feature, used), Table: excel.WOESheet(fa.WOE)})
			if fa.Bins != nil {
				wb = append(wb, excel.Sheet{Name: sheetName("bins_", fa.Feature, used), Table: excel.BinSheet(*fa.Bins)})
			}
		}
	}
	return wb
}

// Export writes the workbook to path
func (s *ScorecardService) Export(path string, sf *SingleFactorResult, res *mfa.SearchResult) error {
	return s.writer.Write(path, s.Workbook(sf, res))
}

// RenderCharts writes one WOE chart workbook per feature into dir
func (s *ScorecardService) RenderCharts(dir string, sf *SingleFactorResult, opts excel.ChartOptions) ([]string, error) {
	var paths []string
	for _, fa := range sf.Features {
		o := opts
		if o.XLabel == "" {
			o.XLabel = fa.Feature
		}
		o.SortCategories = true
		path := filepath.Join(dir, "woe_"+fa.Feature+".xlsx")
		if err := s.charts.RenderWOE(path, fa.WOE, o); err != nil {
			return paths, errors.Wrapf(err, "WOE chart for %s", fa.Feature)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// Report writes the HTML summary of a search
func (s *ScorecardService) Report(path string, sf *SingleFactorResult, res *mfa.SearchResult) error {
	summary := report.Summary{
		Result:    res,
		TopN:      s.cfg.Export.TopN,
		MaxPValue: s.cfg.Search.MaxPValue,
		MaxVIF:    s.cfg.Search.MaxVIF,
	}
	if sf != nil {
		summary.Features = sf.Strength
	}
	return report.WriteHTML(path, summary)
}

// Run loads the data, runs both analyses and writes the configured outputs
func (s *ScorecardService) Run(ctx context.Context) (*mfa.SearchResult, error) {
	start := time.Now()
	t, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	sf, err := s.SingleFactor(ctx, t)
	if err != nil {
		return nil, err
	}
	res, err := s.Search(ctx, sf)
	if err != nil {
		return nil, err
	}
	if err := s.Export(s.cfg.Export.OutputPath, sf, res); err != nil {
		return nil, err
	}
	if s.cfg.Export.ReportPath != "" {
		if err := s.Report(s.cfg.Export.ReportPath, sf, res); err != nil {
			return nil, err
		}
	}
	s.logger.Info("run %s finished in %v: %d accepted combinations written to %s",
		res.RunID, time.Since(start).Round(time.Millisecond), len(res.Accepted), s.cfg.Export.OutputPath)
	return res, nil
}

// sheetName builds a unique sheet name within the 31-character limit,
// counted in runes
func sheetName(prefix, feature string, used map[string]bool) string {
	const maxLen = 31
	base := []rune(prefix + feature)
	name := truncate(base, maxLen)
	for i := 2; used[name]; i++ {
		suffix := fmt.Sprintf("~%d", i)
		name = truncate(base, maxLen-len(suffix)) + suffix
	}
	used[name] = true
	return name
}

func truncate(r []rune, n int) string {
	if len(r) > n {
		r = r[:n]
	}
	return string(r)
}
