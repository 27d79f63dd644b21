package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/KaramelBytes/nearlimit-cli/internal/generator"
	"github.com/KaramelBytes/nearlimit-cli/internal/measurements"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var genFlags generateFlags

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate synthetic near-limit datasets (naive and/or realistic)",
	Long: `Generate labelled synthetic water-quality datasets.

naive:     every parameter drawn uniformly; near-limit samples push 1-3
           parameters into the top of their range.
realistic: correlated draws from measured mean/std and the catalog
           correlations; near-limit samples replace 1-3 parameters with a
           draw around mean+std inside the legal range.

Outputs go to --out-dir: CSV, XLSX, a highlighted XLSX, optional raw draws
and a JSON manifest. With --mode both the files are prefixed naive_ and
realistic_.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		opts, err := resolveGenerateOptions(c, genFlags, cmd.Flags().Changed)
		if err != nil {
			return err
		}
		cat, err := activeCatalog()
		if err != nil {
			return err
		}

		var stats *measurements.Statistics
		if wantsRealistic(opts.Kinds) {
			if opts.Measurements == "" {
				if len(opts.Kinds) == 1 {
					return fmt.Errorf("realistic mode requires --measurements (or measurements_path in config)")
				}
				fmt.Fprintln(cmd.OutOrStdout(), "⚠ Warning: no measurement file configured; generating the naive dataset only")
				opts.Kinds = []generator.Kind{generator.Naive}
			} else {
				res, err := loadStatistics(cat, c, opts.Measurements, opts.Sheet, opts.Columns)
				if err != nil {
					return err
				}
				if res.Skipped > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "⚠ Warning: skipped %d non-numeric measurement values\n", res.Skipped)
				}
				stats = &res.Stats
				if debug {
					printStatistics(cmd.OutOrStdout(), stats)
				}
			}
		}

		parent := cmd.Context()
		if parent == nil {
			parent = context.Background()
		}
		ctx, stop := signal.NotifyContext(parent, os.Interrupt)
		defer stop()
		logger.Info("generating",
			zap.Int("samples", opts.Gen.Samples),
			zap.Uint64("seed", opts.Seed),
			zap.Float64("ratio", opts.Gen.NearLimitRatio),
			zap.String("out_dir", opts.Export.Dir))

		runs, err := generateAndExport(ctx, cat, opts, stats)
		printRunSummary(cmd.OutOrStdout(), runs)
		return err
	},
}

func wantsRealistic(kinds []generator.Kind) bool {
	for _, k := range kinds {
		if k == generator.Realistic {
			return true
		}
	}
	return false
}

func init() {
	rootCmd.AddCommand(generateCmd)
	f := generateCmd.Flags()
	f.StringVar(&genFlags.Mode, "mode", "both", "generator: naive|realistic|both")
	f.IntVarP(&genFlags.Samples, "samples", "n", 10000, "number of samples per dataset")
	f.Uint64Var(&genFlags.Seed, "seed", 42, "random seed")
	f.Float64Var(&genFlags.Ratio, "ratio", 0.2, "share of near-limit samples")
	f.Float64Var(&genFlags.Coefficient, "coefficient", 0.8, "near-limit coefficient (fraction of the range below the near zone)")
	f.StringVarP(&genFlags.Measurements, "measurements", "m", "", "measurement file (.xlsx/.csv) for realistic statistics")
	f.StringVar(&genFlags.Sheet, "sheet", measurements.DefaultSheet, "XLSX sheet of the measurement file")
	f.StringVarP(&genFlags.OutDir, "out-dir", "o", "data", "output directory")
	f.BoolVar(&genFlags.NoXLSX, "no-xlsx", false, "write CSV only")
	f.BoolVar(&genFlags.NoHighlight, "no-highlight", false, "skip the highlighted XLSX")
	f.BoolVar(&genFlags.Raw, "raw", false, "also export the realistic draws before the absolute value")
	f.StringVar(&genFlags.OnExhausted, "on-exhausted", "fail", "when rejection sampling runs out of retries: fail|fallback|skip")
	f.IntVar(&genFlags.MaxRetries, "max-retries", 1000, "rejection sampling retries per near-limit value")
	f.BoolVar(&genFlags.Clip, "clip", false, "clamp realistic draws into their legal range")
}
