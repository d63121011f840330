package app

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"unicode/utf8"

	"scorecard/adapters/excel"
	"scorecard/domain/dataset"
	"scorecard/domain/mfa"
	"scorecard/internal/config"
	"scorecard/internal/errors"
	"scorecard/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	gen := testkit.DefaultLoanConfig()
	gen.LoanCount = 5000
	_, err := testkit.NewLoanDataGenerator(gen).WriteCSVFile(filepath.Join(dir, "loans.csv"))
	require.NoError(t, err)

	return &config.Config{
		Data: config.DataConfig{Path: filepath.Join(dir, "loans.gob"), Target: "default_flag"},
		Search: config.SearchConfig{
			ComboSize:      4,
			Workers:        2,
			MaxPValue:      0.05,
			MaxVIF:         2.5,
			MinNumeric:     2,
			MinCategorical: 2,
		},
		Binning: config.BinningConfig{Bins: 5},
		Export: config.ExportConfig{
			OutputPath: filepath.Join(dir, "mfa_results.xlsx"),
			ReportPath: filepath.Join(dir, "report.html"),
			TopN:       5,
		},
		Features: config.DefaultFeatureConfig(),
	}
}

func TestScorecardService_SingleFactor(t *testing.T) {
	cfg := testConfig(t)
	svc := NewScorecardService(cfg, nil)
	ctx := context.Background()

	table, err := svc.Load(ctx)
	require.NoError(t, err)
	sf, err := svc.SingleFactor(ctx, table)
	require.NoError(t, err)

	require.Len(t, sf.Features, 9)
	assert.Equal(t, []string{"loan_amnt_woe", "int_rate_woe", "annual_inc_woe", "dti_woe", "revol_util_woe"}, sf.Pool.Numeric)
	assert.Equal(t, []string{"grade_woe", "home_ownership_woe", "purpose_woe", "emp_length_woe"}, sf.Pool.Categorical)
	assert.True(t, sf.Excluded.Excludes("grade_woe", "int_rate_woe"))

	for i := 1; i < len(sf.Strength); i++ {
		assert.GreaterOrEqual(t, sf.Strength[i-1].TotalIV, sf.Strength[i].TotalIV)
	}

	for _, fa := range sf.Features {
		require.True(t, sf.Table.Has(fa.Encoded), fa.Encoded)
		if fa.Kind == dataset.KindNumeric {
			require.NotNil(t, fa.Bins)
			assert.NoError(t, fa.Bins.Validate())
			assert.LessOrEqual(t, len(fa.Bins.Bins), cfg.Binning.Bins)
		} else {
			assert.Nil(t, fa.Bins)
		}
	}

	var revol FeatureAnalysis
	for _, fa := range sf.Features {
		if fa.Feature == "revol_util" {
			revol = fa
		}
	}
	_, ok := revol.WOE.Lookup(dataset.MissingCategory)
	assert.True(t, ok, "missing revol_util values form their own WOE row")
	for _, s := range sf.Strength {
		if s.Feature == "revol_util" {
			assert.False(t, math.IsNaN(s.MissingWOE), "revol_util has missing rows")
		}
		if s.Feature == "dti" {
			assert.True(t, math.IsNaN(s.MissingWOE), "dti is never missing")
		}
	}

	original, err := table.Floats("dti")
	require.NoError(t, err)
	after, err := sf.Table.Floats("dti")
	require.NoError(t, err)
	assert.Equal(t, original, after)
}

func TestScorecardService_Run(t *testing.T) {
	cfg := testConfig(t)
	res, err := NewScorecardService(cfg, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Greater(t, res.Stats.Accepted, 0)
	for _, ev := range res.Accepted {
		assert.False(t, slices.Contains(ev.Combination, "grade_woe") && slices.Contains(ev.Combination, "int_rate_woe"))
		sum := 0.0
		for _, v := range ev.Variables {
			sum += v.Contribution
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
	}

	f, err := excelize.OpenFile(cfg.Export.OutputPath)
	require.NoError(t, err)
	sheets := f.GetSheetList()
	require.NoError(t, f.Close())
	assert.Equal(t, []string{"mfa_results", "combinations", "audit", "search_stats", "iv_summary"}, sheets[:5])
	assert.Contains(t, sheets, "woe_dti")
	assert.Contains(t, sheets, "bins_dti")

	page, err := os.ReadFile(cfg.Export.ReportPath)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(page), res.RunID.String()))
}

func TestScorecardService_RenderCharts(t *testing.T) {
	cfg := testConfig(t)
	cfg.Features.Pool = mfa.Pool{Numeric: []string{"dti"}, Categorical: []string{"grade"}}
	svc := NewScorecardService(cfg, nil)
	ctx := context.Background()

	table, err := svc.Load(ctx)
	require.NoError(t, err)
	sf, err := svc.SingleFactor(ctx, table)
	require.NoError(t, err)

	dir := t.TempDir()
	paths, err := svc.RenderCharts(dir, sf, excel.DefaultChartOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "woe_dti.xlsx"), filepath.Join(dir, "woe_grade.xlsx")}, paths)
}

func TestScorecardService_RejectsBadPools(t *testing.T) {
	cfg := testConfig(t)
	svc := NewScorecardService(cfg, nil)
	ctx := context.Background()
	table, err := svc.Load(ctx)
	require.NoError(t, err)

	cfg.Features.Pool = mfa.Pool{Numeric: []string{"dti", "id"}}
	_, err = svc.SingleFactor(ctx, table)
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))

	cfg.Features.Pool = mfa.Pool{Numeric: []string{"dti", "fico"}}
	_, err = svc.SingleFactor(ctx, table)
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestScorecardService_ClassifiesDomainErrors(t *testing.T) {
	cfg := testConfig(t)
	svc := NewScorecardService(cfg, nil)
	ctx := context.Background()
	table, err := svc.Load(ctx)
	require.NoError(t, err)

	cfg.Data.Target = "id"
	_, err = svc.SingleFactor(ctx, table)
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
	cfg.Data.Target = "default_flag"

	pool := cfg.Features.Pool
	cfg.Features.Pool = mfa.Pool{Numeric: []string{"dti", "grade"}}
	_, err = svc.SingleFactor(ctx, table)
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
	assert.Contains(t, err.Error(), "single-factor analysis of grade")
	cfg.Features.Pool = pool

	sf, err := svc.SingleFactor(ctx, table)
	require.NoError(t, err)
	cfg.Search.ComboSize = 50
	_, err = svc.Search(ctx, sf)
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
	assert.Contains(t, err.Error(), "combination search")
}

func TestSheetName(t *testing.T) {
	used := map[string]bool{}
	assert.Equal(t, "woe_dti", sheetName("woe_", "dti", used))

	long := strings.Repeat("x", 40)
	first := sheetName("woe_", long, used)
	second := sheetName("woe_", long, used)
	assert.Len(t, first, 31)
	assert.LessOrEqual(t, len(second), 31)
	assert.NotEqual(t, first, second)
	assert.True(t, strings.HasSuffix(second, "~2"))

	wide := strings.Repeat("é", 40)
	a := sheetName("bins_", wide, used)
	b := sheetName("bins_", wide, used)
	for _, name := range []string{a, b} {
		assert.True(t, utf8.ValidString(name), "%q", name)
		assert.LessOrEqual(t, utf8.RuneCountInString(name), 31)
	}
	assert.Equal(t, 31, utf8.RuneCountInString(a))
	assert.True(t, strings.HasSuffix(b, "~2"))
}
