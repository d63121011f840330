package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"scorecard/adapters/excel"
	"scorecard/app"
	"scorecard/internal"
	"scorecard/internal/config"
	"scorecard/internal/errors"
	"scorecard/internal/testkit"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	var envFile, featuresFile string

	rootCmd := &cobra.Command{
		Use:   "scorecard",
		Short: "Scorecard builder: monotonic binning, WOE and logistic combination search",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// A missing .env file is fine; the environment may already be set.
			_ = godotenv.Load(envFile)
			if featuresFile != "" {
				return os.Setenv("SCORECARD_FEATURES_FILE", featuresFile)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file to load before reading configuration")
	rootCmd.PersistentFlags().StringVar(&featuresFile, "features", "", "YAML feature manifest (overrides SCORECARD_FEATURES_FILE)")

	rootCmd.AddCommand(
		newSFACmd(),
		newMFACmd(),
		newGenerateCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		if errors.IsAppError(err) {
			fmt.Fprintf(os.Stderr, "Error [%s]: %v\n", errors.GetCode(err), err)
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func newSFACmd() *cobra.Command {
	var dataPath, output, chartsDir string
	var bins int

	cmd := &cobra.Command{
		Use:   "sfa",
		Short: "Single-factor analysis: bin, WOE and IV ranking of every pool feature",
		Long: `Bin every numeric pool feature monotonically, compute WOE tables for all
pool features and rank them by information value.

Example: scorecard sfa --data data/loans.gob --bins 5 --charts charts/`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("data") {
				cfg.Data.Path = dataPath
			}
			if cmd.Flags().Changed("bins") {
				cfg.Binning.Bins = bins
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runSFA(cmd.Context(), cfg, output, chartsDir)
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "", "Cache path of the loan book (overrides SCORECARD_DATA_PATH)")
	cmd.Flags().IntVar(&bins, "bins", 5, "Requested number of bins per numeric feature")
	cmd.Flags().StringVar(&output, "output", "sfa_results.xlsx", "Workbook receiving WOE tables, bins and IV ranking")
	cmd.Flags().StringVar(&chartsDir, "charts", "", "Directory for one WOE chart workbook per feature")

	return cmd
}

func runSFA(ctx context.Context, cfg *config.Config, output, chartsDir string) error {
	logger := internal.NewDefaultLogger()
	svc := app.NewScorecardService(cfg, logger)

	table, err := svc.Load(ctx)
	if err != nil {
		return err
	}
	sf, err := svc.SingleFactor(ctx, table)
	if err != nil {
		return err
	}
	if err := svc.Export(output, sf, nil); err != nil {
		return err
	}

	fmt.Printf("\nSINGLE-FACTOR ANALYSIS (%d rows, target %s)\n", table.Rows(), cfg.Data.Target)
	for i, s := range sf.Strength {
		fmt.Printf("%2d. %-24s %-12s bins=%-2d IV=%.4f", i+1, s.Feature, s.Kind, s.Bins, s.TotalIV)
		if s.Undefined > 0 {
			fmt.Printf("  (%d undefined categories)", s.Undefined)
		}
		fmt.Println()
	}
	fmt.Printf("Results written to %s\n", output)

	if chartsDir != "" {
		if err := os.MkdirAll(chartsDir, 0o755); err != nil {
			return err
		}
		paths, err := svc.RenderCharts(chartsDir, sf, excel.DefaultChartOptions())
		if err != nil {
			return err
		}
		fmt.Printf("%d WOE charts written to %s\n", len(paths), chartsDir)
	}
	return nil
}

func newMFACmd() *cobra.Command {
	var dataPath, output, reportPath string
	var size, workers, maxCombinations int
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "mfa",
		Short: "Multi-factor analysis: search all admissible feature combinations",
		Long: `Encode the pool with WOE, fit a logistic regression for every admissible
combination of the requested size and rank the accepted models by Gini.

Example: scorecard mfa --size 4 --workers 8 --timeout 10m --report report.html`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("data") {
				cfg.Data.Path = dataPath
			}
			if flags.Changed("size") {
				cfg.Search.ComboSize = size
			}
			if flags.Changed("workers") {
				cfg.Search.Workers = workers
			}
			if flags.Changed("max-combinations") {
				cfg.Search.MaxCombinations = maxCombinations
			}
			if flags.Changed("timeout") {
				cfg.Search.Timeout = timeout
			}
			if flags.Changed("output") {
				cfg.Export.OutputPath = output
			}
			if flags.Changed("report") {
				cfg.Export.ReportPath = reportPath
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runMFA(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "", "Cache path of the loan book (overrides SCORECARD_DATA_PATH)")
	cmd.Flags().IntVar(&size, "size", 4, "Number of features per combination")
	cmd.Flags().IntVar(&workers, "workers", 0, "Parallel evaluations (0 = number of CPUs)")
	cmd.Flags().IntVar(&maxCombinations, "max-combinations", 0, "Stop after this many admissible combinations (0 = all)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Deadline for the search; unstarted combinations are skipped")
	cmd.Flags().StringVar(&output, "output", "mfa_results.xlsx", "Result workbook")
	cmd.Flags().StringVar(&reportPath, "report", "", "Optional HTML summary")

	return cmd
}

func runMFA(ctx context.Context, cfg *config.Config) error {
	svc := app.NewScorecardService(cfg, internal.NewDefaultLogger())
	res, err := svc.Run(ctx)
	if err != nil {
		return err
	}

	st := res.Stats
	fmt.Printf("\nCOMBINATION SEARCH %s\n", res.RunID)
	fmt.Printf("Enumerated: %d (excluded pair %d, type mix %d)\n", st.Enumerated, st.ExcludedPair, st.TypeMix)
	fmt.Printf("Evaluated: %d  Accepted: %d  Rejected: %d  Fit failed: %d  Skipped: %d\n",
		st.Evaluated, st.Accepted, st.Rejected, st.FitFailed, st.Skipped)
	for i, ev := range res.Accepted {
		if i == cfg.Export.TopN {
			break
		}
		fmt.Printf("%2d. gini=%.4f max_p=%.2e max_vif=%.2f  %s\n", i+1, ev.Summary.Gini,
			ev.Summary.MaxPValue, ev.Summary.MaxVIF, ev.Combination.Key())
	}
	fmt.Printf("Results written to %s\n", cfg.Export.OutputPath)
	return nil
}

func newGenerateCmd() *cobra.Command {
	var out string
	gen := testkit.DefaultLoanConfig()

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic loan book as CSV",
		Long: `Generate a seeded synthetic loan book whose default risk depends on grade,
dti, utilisation, income, home ownership and purpose.

Example: scorecard generate --out data/loans.csv --count 20000 --seed 7`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if gen.LoanCount <= 0 {
				return fmt.Errorf("--count must be positive")
			}
			n, err := testkit.NewLoanDataGenerator(gen).WriteCSVFile(out)
			if err != nil {
				return err
			}
			fmt.Printf("Wrote %d loans to %s\n", n, out)
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "data/loans.csv", "Output CSV path")
	cmd.Flags().IntVar(&gen.LoanCount, "count", gen.LoanCount, "Number of loans")
	cmd.Flags().Int64Var(&gen.Seed, "seed", gen.Seed, "Random seed")
	cmd.Flags().Float64Var(&gen.BaseDefaultRate, "default-rate", gen.BaseDefaultRate, "Baseline default rate")
	cmd.Flags().Float64Var(&gen.MissingRate, "missing-rate", gen.MissingRate, "Share of blank emp_length and revol_util cells")

	return cmd
}
