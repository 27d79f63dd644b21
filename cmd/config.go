package cmd

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/KaramelBytes/nearlimit-cli/internal/catalog"
	cfgpkg "github.com/KaramelBytes/nearlimit-cli/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set nearlimit configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "No config loaded")
			return nil
		}
		return printConfig(cmd.OutOrStdout(), cfg)
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Long: `Set a config value and save to disk.

Scalar keys: samples, near_limit_ratio, near_limit_coefficient, seed, mode,
max_retries, on_exhausted, clip, measurements_path, measurements_sheet,
parameter_column, value_column, out_dir, catalog_path, log_level, log_format.
Assumed statistics: assumed.<Key>.mean or assumed.<Key>.std, e.g.
assumed.Turbidity.std. Measurement labels: site_names.<Key>, e.g.
site_names.PH "pH-waarde".`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		if err := cfg.Set(key, val); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func printConfig(w io.Writer, c *cfgpkg.Global) error {
	vals := map[string]string{
		"samples":                strconv.Itoa(c.Samples),
		"near_limit_ratio":       fmt.Sprintf("%.3f", c.NearLimitRatio),
		"near_limit_coefficient": fmt.Sprintf("%.3f", c.Coefficient),
		"seed":                   strconv.FormatUint(c.Seed, 10),
		"mode":                   c.Mode,
		"max_retries":            strconv.Itoa(c.MaxRetries),
		"on_exhausted":           c.OnExhausted,
		"clip":                   strconv.FormatBool(c.Clip),
		"measurements_path":      c.MeasurementsPath,
		"measurements_sheet":     c.MeasurementsSheet,
		"parameter_column":       c.ParameterColumn,
		"value_column":           c.ValueColumn,
		"out_dir":                c.OutDir,
		"catalog_path":           c.CatalogPath,
		"log_level":              c.LogLevel,
		"log_format":             c.LogFormat,
	}
	for _, k := range cfgpkg.Keys() {
		fmt.Fprintf(w, "%s: %s\n", k, vals[k])
	}

	assumed, err := c.AssumedParams()
	if err != nil {
		return err
	}
	params := make([]catalog.Param, 0, len(assumed))
	for p := range assumed {
		params = append(params, p)
	}
	sort.Slice(params, func(i, j int) bool { return params[i] < params[j] })
	fmt.Fprintln(w, "assumed:")
	for _, p := range params {
		a := assumed[p]
		fmt.Fprintf(w, "  %s: mean %g, std %g\n", p, a.Mean, a.Std)
	}

	sites, err := c.SiteNames()
	if err != nil {
		return err
	}
	labels := make([]string, 0, len(sites))
	for label := range sites {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool { return sites[labels[i]] < sites[labels[j]] })
	fmt.Fprintln(w, "site_names:")
	for _, label := range labels {
		fmt.Fprintf(w, "  %s: %s\n", sites[label], label)
	}
	return nil
}
