package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"scorecard/domain/mfa"
	"scorecard/internal/errors"
	mfasearch "scorecard/internal/mfa"

	"gopkg.in/yaml.v3"
)

// Config represents the complete application configuration
type Config struct {
	Data     DataConfig
	Search   SearchConfig
	Binning  BinningConfig
	Export   ExportConfig
	Features FeatureConfig
}

// DataConfig locates the loan book and its target column
type DataConfig struct {
	Path   string // cache path; the .csv or .xlsx sibling is parsed on a miss
	Target string
}

// SearchConfig holds the combinatorial search settings
type SearchConfig struct {
	ComboSize       int
	Workers         int
	MaxCombinations int
	Timeout         time.Duration
	MaxPValue       float64
	MaxVIF          float64
	MinNumeric      int
	MinCategorical  int
}

// BinningConfig holds single-factor binning settings
type BinningConfig struct {
	Bins int
}

// ExportConfig holds output locations
type ExportConfig struct {
	OutputPath string
	ReportPath string // empty disables the HTML report
	TopN       int    // combinations listed in the report
}

// FeatureGroups are the semantic column groups of the loan book. They are
// consumed when building candidate pools and are never interpreted by the
// search itself.
type FeatureGroups struct {
	IDCols              []string `yaml:"id_cols"`
	LoanContractCols    []string `yaml:"loan_contract_cols"`
	BorrowerProfileCols []string `yaml:"borrower_profile_cols"`
	OutcomeCols         []string `yaml:"outcome_cols"`
	HardshipCols        []string `yaml:"hardship_cols"`
}

// FeatureConfig is the feature manifest: groups, candidate pool and
// excluded pairs
type FeatureConfig struct {
	Groups   FeatureGroups `yaml:"groups"`
	Pool     mfa.Pool      `yaml:"pool"`
	Excluded []mfa.Pair    `yaml:"excluded_pairs"`
}

// DefaultFeatureGroups returns the standard loan book column groups
func DefaultFeatureGroups() FeatureGroups {
	return FeatureGroups{
		IDCols:              []string{"id", "issue_d", "term"},
		LoanContractCols:    []string{"loan_amnt", "funded_amnt", "funded_amnt_inv", "int_rate", "installment", "grade", "sub_grade", "purpose", "verification_status"},
		BorrowerProfileCols: []string{"annual_inc", "emp_length", "emp_title", "home_ownership", "dti", "delinq_2yrs", "inq_last_6mths", "open_acc", "pub_rec", "revol_bal", "revol_util", "total_acc"},
		OutcomeCols:         []string{"loan_status", "last_pymnt_d", "last_pymnt_amnt", "total_rec_prncp", "total_rec_int", "recoveries", "collection_recovery_fee"},
		HardshipCols:        []string{"hardship_flag", "hardship_dpd", "hardship_loan_status", "debt_settlement_flag", "settlement_status"},
	}
}

// DefaultFeatureConfig returns the default manifest
func DefaultFeatureConfig() FeatureConfig {
	return FeatureConfig{
		Groups: DefaultFeatureGroups(),
		Pool: mfa.Pool{
			Numeric:     []string{"loan_amnt", "int_rate", "annual_inc", "dti", "revol_util"},
			Categorical: []string{"grade", "home_ownership", "purpose", "emp_length"},
		},
		Excluded: []mfa.Pair{
			{A: "int_rate", B: "grade"},
			{A: "grade", B: "sub_grade"},
			{A: "loan_amnt", B: "funded_amnt"},
		},
	}
}

// Leakage lists the columns that must never enter a model: identifiers,
// outcomes observed after origination and hardship flags
func (g FeatureGroups) Leakage() []string {
	out := make([]string, 0, len(g.IDCols)+len(g.OutcomeCols)+len(g.HardshipCols))
	out = append(out, g.IDCols...)
	out = append(out, g.OutcomeCols...)
	return append(out, g.HardshipCols...)
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Data:    loadDataConfig(),
		Search:  loadSearchConfig(),
		Binning: loadBinningConfig(),
		Export:  loadExportConfig(),
	}

	features, err := loadFeatureConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load feature manifest")
	}
	config.Features = features

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func loadDataConfig() DataConfig {
	return DataConfig{
		Path:   getEnvOrDefault("SCORECARD_DATA_PATH", "data/loans.gob"),
		Target: getEnvOrDefault("SCORECARD_TARGET", "default_flag"),
	}
}

func loadSearchConfig() SearchConfig {
	criteria := mfasearch.DefaultCriteria()
	mix := mfasearch.DefaultTypeMix()
	return SearchConfig{
		ComboSize:       getEnvIntOrDefault("SCORECARD_COMBO_SIZE", 4),
		Workers:         getEnvIntOrDefault("SCORECARD_WORKERS", runtime.NumCPU()),
		MaxCombinations: getEnvIntOrDefault("SCORECARD_MAX_COMBINATIONS", 0),
		Timeout:         getEnvDurationOrDefault("SCORECARD_TIMEOUT", 0),
		MaxPValue:       getEnvFloatOrDefault("SCORECARD_MAX_PVALUE", criteria.MaxPValue),
		MaxVIF:          getEnvFloatOrDefault("SCORECARD_MAX_VIF", criteria.MaxVIF),
		MinNumeric:      getEnvIntOrDefault("SCORECARD_MIN_NUMERIC", mix.MinNumeric),
		MinCategorical:  getEnvIntOrDefault("SCORECARD_MIN_CATEGORICAL", mix.MinCategorical),
	}
}

func loadBinningConfig() BinningConfig {
	return BinningConfig{
		Bins: getEnvIntOrDefault("SCORECARD_BINS", 5),
	}
}

func loadExportConfig() ExportConfig {
	return ExportConfig{
		OutputPath: getEnvOrDefault("SCORECARD_OUTPUT", "mfa_results.xlsx"),
		ReportPath: getEnvOrDefault("SCORECARD_REPORT", ""),
		TopN:       getEnvIntOrDefault("SCORECARD_REPORT_TOP", 10),
	}
}

func loadFeatureConfig() (FeatureConfig, error) {
	path := os.Getenv("SCORECARD_FEATURES_FILE")
	if path == "" {
		return DefaultFeatureConfig(), nil
	}
	return LoadFeatureFile(path)
}

// LoadFeatureFile reads a YAML manifest. Sections absent from the file keep
// their defaults.
func LoadFeatureFile(path string) (FeatureConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return FeatureConfig{}, errors.Wrapf(err, "failed to read %s", path)
	}
	features := DefaultFeatureConfig()
	if err := yaml.Unmarshal(b, &features); err != nil {
		return FeatureConfig{}, errors.WithCode(errors.CodeConfigInvalid, fmt.Errorf("parse %s: %w", path, err))
	}
	return features, nil
}

// Validate checks ranges and the candidate pool
func (c *Config) Validate() error {
	switch {
	case c.Data.Target == "":
		return errors.ConfigInvalid("SCORECARD_TARGET is required")
	case c.Search.ComboSize < 1:
		return errors.ConfigInvalid("SCORECARD_COMBO_SIZE must be at least 1")
	case c.Search.Workers < 0:
		return errors.ConfigInvalid("SCORECARD_WORKERS must not be negative")
	case c.Search.MaxCombinations < 0:
		return errors.ConfigInvalid("SCORECARD_MAX_COMBINATIONS must not be negative")
	case c.Search.Timeout < 0:
		return errors.ConfigInvalid("SCORECARD_TIMEOUT must not be negative")
	case !(c.Search.MaxPValue > 0 && c.Search.MaxPValue <= 1):
		return errors.ConfigInvalid("SCORECARD_MAX_PVALUE must be in (0, 1]")
	case !(c.Search.MaxVIF > 1):
		return errors.ConfigInvalid("SCORECARD_MAX_VIF must be greater than 1")
	case c.Search.MinNumeric < 0 || c.Search.MinCategorical < 0:
		return errors.ConfigInvalid("type-mix minimums must not be negative")
	case c.Binning.Bins < 2:
		return errors.ConfigInvalid("SCORECARD_BINS must be at least 2")
	case c.Export.OutputPath == "":
		return errors.ConfigInvalid("SCORECARD_OUTPUT is required")
	}
	if err := c.Features.Pool.Validate(); err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	for _, p := range c.Features.Excluded {
		if p.A == "" || p.B == "" || p.A == p.B {
			return errors.ConfigInvalid(fmt.Sprintf("invalid excluded pair %q/%q", p.A, p.B))
		}
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
