package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/KaramelBytes/nearlimit-cli/internal/scoring"
	"github.com/KaramelBytes/nearlimit-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	checkJSON   string
	checkFile   string
	checkCoef   float64
	checkFormat string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Assess one reading against the parameter ranges",
	Long: `Check takes a reading in the prediction request shape, e.g.

  {"Ammonium":0.5,"Phosphate":0.2,"COD":40,"BOD":5,"Conductivity":600,
   "PH":7.4,"Nitrogen":6,"Nitrate":10,"Turbidity":2,"TSS":8}

and reports, per parameter, whether the value is ok, near its limit or
outside the legal range, plus a 0-100 soft score. This is a rule-based
assessment, not a model prediction.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if (checkJSON == "") == (checkFile == "") {
			return fmt.Errorf("specify exactly one of --json or --file")
		}
		var r io.Reader
		switch {
		case checkJSON != "":
			r = strings.NewReader(checkJSON)
		case checkFile == "-":
			r = cmd.InOrStdin()
		default:
			f, err := os.Open(checkFile)
			if err != nil {
				return fmt.Errorf("open reading: %w", err)
			}
			defer f.Close()
			r = f
		}
		cat, err := activeCatalog()
		if err != nil {
			return err
		}
		v, err := scoring.Decode(r, cat)
		if err != nil {
			return err
		}
		coef := checkCoef
		if !cmd.Flags().Changed("coefficient") && cfg != nil {
			coef = cfg.Coefficient
		}
		a := scoring.Assess(cat, v, coef)

		out := cmd.OutOrStdout()
		switch strings.ToLower(checkFormat) {
		case "json":
			b, err := utils.PrettyJSON(struct {
				*scoring.Assessment
				scoring.Prediction
			}{a, a.Prediction()})
			if err != nil {
				return err
			}
			_, err = out.Write(b)
			return err
		case "text", "":
		default:
			return fmt.Errorf("invalid --format: %s (use text|json)", checkFormat)
		}

		fmt.Fprintf(out, "%-26s %10s %10s %10s  %s\n", "Parameter", "Value", "Threshold", "Upper", "Status")
		for _, p := range a.Params {
			fmt.Fprintf(out, "%-26s %10.4g %10.4g %10.4g  %s\n", p.Name, p.Value, p.Threshold, p.Upper, p.Status)
		}
		switch {
		case a.Exceeded:
			fmt.Fprintln(out, "✗ Outside the legal range")
		case a.NearLimit:
			fmt.Fprintln(out, "⚠ Near limit")
		default:
			fmt.Fprintln(out, "✓ Within limits")
		}
		fmt.Fprintf(out, "Soft score: %.1f\n", a.SoftScore)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVar(&checkJSON, "json", "", "reading as a JSON object")
	checkCmd.Flags().StringVarP(&checkFile, "file", "f", "", "file holding the reading JSON ('-' for stdin)")
	checkCmd.Flags().Float64Var(&checkCoef, "coefficient", 0.8, "near-limit coefficient")
	checkCmd.Flags().StringVar(&checkFormat, "format", "text", "output format: text|json")
}
