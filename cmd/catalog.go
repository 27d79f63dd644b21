package cmd

import (
	"fmt"
	"io"

	"github.com/KaramelBytes/nearlimit-cli/internal/catalog"
	"github.com/KaramelBytes/nearlimit-cli/internal/utils"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	catExportPath string
	catCoef       float64
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Show and validate the parameter catalog",
	Long: `Catalog prints every parameter with its legal range and the near-limit
threshold for the given coefficient, followed by the correlation matrix.
The catalog is validated first; --export writes it as YAML so it can be
edited and passed back with --catalog.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := activeCatalog()
		if err != nil {
			return err
		}
		if err := cat.Validate(); err != nil {
			return err
		}
		coef := catCoef
		if !cmd.Flags().Changed("coefficient") && cfg != nil {
			coef = cfg.Coefficient
		}
		out := cmd.OutOrStdout()
		printCatalog(out, cat, coef)

		if catExportPath != "" {
			b, err := yaml.Marshal(cat.File())
			if err != nil {
				return fmt.Errorf("marshal catalog: %w", err)
			}
			if err := utils.SafeWriteFile(catExportPath, b); err != nil {
				return fmt.Errorf("write catalog: %w", err)
			}
			fmt.Fprintf(out, "✓ Exported catalog to %s\n", catExportPath)
		}
		return nil
	},
}

func printCatalog(w io.Writer, cat *catalog.Catalog, coef float64) {
	fmt.Fprintf(w, "%-13s %-26s %10s %10s %10s\n", "Key", "Name", "Lower", "Upper", "Threshold")
	for _, p := range catalog.Params() {
		s := cat.Spec(p)
		fmt.Fprintf(w, "%-13s %-26s %10.4g %10.4g %10.4g\n", s.Key, s.Name, s.Lower, s.Upper, cat.NearThreshold(p, coef))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-13s", "")
	for _, p := range catalog.Params() {
		fmt.Fprintf(w, " %6.6s", p)
	}
	fmt.Fprintln(w)
	for _, a := range catalog.Params() {
		fmt.Fprintf(w, "%-13s", a)
		for _, b := range catalog.Params() {
			fmt.Fprintf(w, " %6.2f", cat.Correlation(a, b))
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w, "✓ Catalog is valid")
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.Flags().StringVar(&catExportPath, "export", "", "write the active catalog as YAML to this path")
	catalogCmd.Flags().Float64Var(&catCoef, "coefficient", 0.8, "near-limit coefficient for the threshold column")
}
