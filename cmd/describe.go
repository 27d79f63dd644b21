package cmd

import (
	"fmt"

	"github.com/KaramelBytes/nearlimit-cli/internal/analysis"
	"github.com/KaramelBytes/nearlimit-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	descOutputPath string
	descSheet      string
	descSampleRows int
	descCoef       float64
	descOutlierThr float64
)

var describeCmd = &cobra.Command{
	Use:   "describe <dataset>",
	Short: "Summarize a generated dataset (CSV or XLSX) as Markdown",
	Long: `Describe reads a generated dataset and reports per-column statistics,
near-limit label counts, observed correlations against the catalog targets,
and sample rows.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := activeCatalog()
		if err != nil {
			return err
		}
		opt := analysis.DefaultOptions()
		if cfg != nil {
			opt.Coefficient = cfg.Coefficient
		}
		if cmd.Flags().Changed("coefficient") {
			opt.Coefficient = descCoef
		}
		if descSampleRows > 0 {
			opt.SampleRows = descSampleRows
		}
		if cmd.Flags().Changed("outlier-threshold") {
			opt.OutlierThreshold = descOutlierThr
		}
		opt.Sheet = descSheet

		rep, err := analysis.DescribeFile(args[0], cat, opt)
		if err != nil {
			return err
		}
		md := rep.Markdown()
		if descOutputPath != "" {
			if err := utils.SafeWriteFile(descOutputPath, []byte(md)); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote description to %s\n", descOutputPath)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), md)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
	describeCmd.Flags().StringVarP(&descOutputPath, "output", "o", "", "optional path to write the report (Markdown)")
	describeCmd.Flags().StringVar(&descSheet, "sheet", "", "XLSX: sheet to read (default Data)")
	describeCmd.Flags().IntVar(&descSampleRows, "sample-rows", 5, "number of sample rows to include")
	describeCmd.Flags().Float64Var(&descCoef, "coefficient", 0.8, "near-limit coefficient for threshold counts")
	describeCmd.Flags().Float64Var(&descOutlierThr, "outlier-threshold", 3.5, "robust |z| threshold for outliers (0 disables)")
}
