package cmd

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/KaramelBytes/nearlimit-cli/internal/measurements"
	"github.com/KaramelBytes/nearlimit-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	statsSheet    string
	statsParamCol string
	statsValueCol string
	statsSplitDir string
	statsJSON     bool
)

var statsCmd = &cobra.Command{
	Use:   "stats <measurements>",
	Short: "Extract per-parameter mean/std from a measurement file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		cat, err := activeCatalog()
		if err != nil {
			return err
		}
		sheet := c.MeasurementsSheet
		if cmd.Flags().Changed("sheet") {
			sheet = statsSheet
		}
		cols := measurements.Options{ParameterColumn: c.ParameterColumn, ValueColumn: c.ValueColumn}
		if cmd.Flags().Changed("parameter-column") {
			cols.ParameterColumn = statsParamCol
		}
		if cmd.Flags().Changed("value-column") {
			cols.ValueColumn = statsValueCol
		}

		res, err := loadStatistics(cat, c, args[0], sheet, cols)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if statsJSON {
			b, err := utils.PrettyJSON(res.Stats.List())
			if err != nil {
				return err
			}
			_, err = out.Write(b)
			return err
		}
		printStatistics(out, &res.Stats)
		if res.Skipped > 0 {
			fmt.Fprintf(out, "⚠ Warning: skipped %d non-numeric values\n", res.Skipped)
		}

		if statsSplitDir != "" {
			if err := utils.EnsureDir(statsSplitDir); err != nil {
				return err
			}
			for _, part := range []struct {
				name string
				t    *measurements.Table
			}{
				{"selected_parameters.csv", res.Selected},
				{"other_parameters.csv", res.Other},
			} {
				t := part.t
				path := filepath.Join(statsSplitDir, part.name)
				var buf bytes.Buffer
				if err := t.WriteCSV(&buf); err != nil {
					return err
				}
				if err := utils.SafeWriteFile(path, buf.Bytes()); err != nil {
					return fmt.Errorf("write %s: %w", path, err)
				}
				fmt.Fprintf(out, "✓ Wrote %d rows to %s\n", len(t.Rows), path)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().StringVar(&statsSheet, "sheet", measurements.DefaultSheet, "XLSX sheet name")
	statsCmd.Flags().StringVar(&statsParamCol, "parameter-column", measurements.DefaultParameterColumn, "column holding the parameter identifier")
	statsCmd.Flags().StringVar(&statsValueCol, "value-column", measurements.DefaultValueColumn, "column holding the measured value")
	statsCmd.Flags().StringVar(&statsSplitDir, "split-dir", "", "write selected/other parameter rows as CSV into this directory")
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "print statistics as JSON")
}
