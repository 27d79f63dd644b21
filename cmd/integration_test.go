package cmd

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/nearlimit-cli/internal/catalog"
	"github.com/KaramelBytes/nearlimit-cli/internal/export"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// resetFlags restores every flag to its default so state does not leak
// between invocations of the shared rootCmd.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// runCmd is a helper to execute the root command with args and capture stdout.
func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execCmd(args...)
	if err != nil {
		t.Fatalf("command %v failed: %v\n%s", args, err, out)
	}
	return out
}

func execCmd(args ...string) (string, error) {
	resetFlags(rootCmd)
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	rootCmd.SetOut(nil)
	return buf.String(), err
}

// isolateHome points HOME at a temp dir so no user config is picked up.
func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	oldHome := os.Getenv("HOME")
	t.Cleanup(func() { os.Setenv("HOME", oldHome) })
	os.Setenv("HOME", home)
	return home
}

func writeMeasurements(t *testing.T, dir string) string {
	t.Helper()
	rows := []string{
		"MPNIDENT,OMS_PARAMETER,WAARDE_O",
		"A1,ammonium,0.4", "A1,ammonium,0.6",
		"A1,fosfaat,0.2", "A1,fosfaat,0.3",
		"A1,Biochemisch zuurstofverbruik over 5 dagen,4", "A1,Biochemisch zuurstofverbruik over 5 dagen,6",
		"A1,Geleidendheid,50", "A1,Geleidendheid,60",
		"A1,Zuurgraad,7.5", "A1,Zuurgraad,7.9",
		"A1,stikstof totaal,8", "A1,stikstof totaal,10",
		"A1,nitraat,10", "A1,nitraat,14",
		"A1,Temperatuur,12",
	}
	path := filepath.Join(dir, "measurements.csv")
	if err := os.WriteFile(path, []byte(strings.Join(rows, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write measurements: %v", err)
	}
	return path
}

func TestCLI_GenerateNaiveThenDescribe(t *testing.T) {
	home := isolateHome(t)
	outDir := filepath.Join(home, "out")

	out := runCmd(t, "generate", "--mode", "naive", "--samples", "200", "--out-dir", outDir)
	if !strings.Contains(out, "✓ Generated 200 naive samples") {
		t.Fatalf("unexpected generate output:\n%s", out)
	}
	for _, name := range []string{export.DatasetCSV, export.DatasetXLSX, export.HighlightXLSX, "manifest.json"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}

	md := runCmd(t, "describe", filepath.Join(outDir, export.DatasetCSV))
	for _, section := range []string{"[DATASET SUMMARY]", "[SCHEMA]", "[LABELS]", "[CORRELATIONS]", "[HEAD AND SAMPLE ROWS]"} {
		if !strings.Contains(md, section) {
			t.Fatalf("describe output missing %s:\n%s", section, md)
		}
	}
	if !strings.Contains(md, "Rows: 200") {
		t.Fatalf("expected 200 rows in describe output:\n%s", md)
	}

	// XLSX input reads the Data sheet by default.
	report := filepath.Join(home, "report.md")
	runCmd(t, "describe", filepath.Join(outDir, export.DatasetXLSX), "--output", report)
	b, err := os.ReadFile(report)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(b), "Rows: 200") {
		t.Fatalf("unexpected xlsx report:\n%s", b)
	}
}

func TestCLI_StatsAndRealistic(t *testing.T) {
	home := isolateHome(t)
	mpath := writeMeasurements(t, home)
	split := filepath.Join(home, "split")

	out := runCmd(t, "stats", mpath, "--split-dir", split)
	if !strings.Contains(out, "Ammonium (mg/l N)") || !strings.Contains(out, "assumed") {
		t.Fatalf("unexpected stats output:\n%s", out)
	}
	for _, name := range []string{"selected_parameters.csv", "other_parameters.csv"} {
		if _, err := os.Stat(filepath.Join(split, name)); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}
	// The split files are always reported in the same order.
	for i := 0; i < 5; i++ {
		out = runCmd(t, "stats", mpath, "--split-dir", split)
		sel := strings.Index(out, "✓ Wrote 14 rows to "+filepath.Join(split, "selected_parameters.csv"))
		oth := strings.Index(out, "✓ Wrote 1 rows to "+filepath.Join(split, "other_parameters.csv"))
		if sel < 0 || oth < 0 || sel > oth {
			t.Fatalf("split files out of order:\n%s", out)
		}
	}

	js := runCmd(t, "stats", mpath, "--json")
	var stats []struct {
		Name   string  `json:"name"`
		Mean   float64 `json:"mean"`
		Source string  `json:"source"`
	}
	if err := json.Unmarshal([]byte(js), &stats); err != nil {
		t.Fatalf("decode stats json: %v\n%s", err, js)
	}
	if len(stats) != catalog.Count || math.Abs(stats[0].Mean-0.5) > 1e-9 || stats[0].Source != "measured" {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	outDir := filepath.Join(home, "out")
	out = runCmd(t, "generate", "--samples", "300", "--measurements", mpath, "--out-dir", outDir, "--raw")
	if !strings.Contains(out, "naive samples") || !strings.Contains(out, "realistic samples") {
		t.Fatalf("expected both runs:\n%s", out)
	}
	for _, name := range []string{"naive_" + export.DatasetCSV, "realistic_" + export.DatasetCSV, "realistic_" + export.RawXLSX, "realistic_manifest.json"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}
}

func TestCLI_BothWithoutMeasurementsFallsBackToNaive(t *testing.T) {
	home := isolateHome(t)
	outDir := filepath.Join(home, "out")
	out := runCmd(t, "generate", "--samples", "50", "--out-dir", outDir, "--no-xlsx")
	if !strings.Contains(out, "⚠ Warning: no measurement file configured") {
		t.Fatalf("expected fallback warning:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(outDir, export.DatasetCSV)); err != nil {
		t.Fatalf("expected unprefixed naive csv: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, export.DatasetXLSX)); !os.IsNotExist(err) {
		t.Fatalf("--no-xlsx should skip the workbook, got %v", err)
	}

	if _, err := execCmd("generate", "--mode", "realistic", "--out-dir", outDir); err == nil {
		t.Fatalf("realistic mode without measurements should fail")
	}
}

func TestCLI_Check(t *testing.T) {
	isolateHome(t)
	ok := `{"Ammonium":0.5,"Phosphate":0.2,"COD":40,"BOD":5,"Conductivity":60,"PH":7.4,"Nitrogen":6,"Nitrate":10,"Turbidity":2,"TSS":8}`
	out := runCmd(t, "check", "--json", ok)
	if !strings.Contains(out, "✓ Within limits") || !strings.Contains(out, "Soft score:") {
		t.Fatalf("unexpected check output:\n%s", out)
	}

	near := strings.Replace(ok, `"COD":40`, `"COD":110`, 1)
	out = runCmd(t, "check", "--json", near, "--format", "json")
	var res struct {
		NearLimit  bool    `json:"near_limit"`
		Prediction int     `json:"prediction"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode check json: %v\n%s", err, out)
	}
	if !res.NearLimit || res.Prediction != 1 || res.Confidence <= 0 {
		t.Fatalf("unexpected assessment: %+v", res)
	}

	if _, err := execCmd("check", "--json", `{"COD":40}`); err == nil || !strings.Contains(err.Error(), "missing parameters") {
		t.Fatalf("expected missing parameters error, got %v", err)
	}
	if _, err := execCmd("check"); err == nil {
		t.Fatalf("expected error without --json or --file")
	}
}

func TestCLI_CatalogExportRoundTrip(t *testing.T) {
	home := isolateHome(t)
	out := runCmd(t, "catalog")
	if !strings.Contains(out, "COD (mg/l O2)") || !strings.Contains(out, "✓ Catalog is valid") {
		t.Fatalf("unexpected catalog output:\n%s", out)
	}

	path := filepath.Join(home, "catalog.yaml")
	runCmd(t, "catalog", "--export", path)
	loaded, err := catalog.Load(path)
	if err != nil {
		t.Fatalf("load exported catalog: %v", err)
	}
	if loaded.CorrelationMatrix() != catalog.Default().CorrelationMatrix() {
		t.Fatalf("exported catalog differs from the built-in one")
	}
	// The exported file is accepted back through --catalog.
	runCmd(t, "catalog", "--catalog", path)
}

func TestCLI_ConfigSetShow(t *testing.T) {
	home := isolateHome(t)
	out := runCmd(t, "config", "set", "samples", "500")
	if !strings.Contains(out, "✓ Saved config") {
		t.Fatalf("unexpected set output:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(home, ".nearlimit", "config.yaml")); err != nil {
		t.Fatalf("expected config file: %v", err)
	}
	runCmd(t, "config", "set", "assumed.Turbidity.std", "2.5")

	out = runCmd(t, "config", "show")
	if !strings.Contains(out, "samples: 500") {
		t.Fatalf("expected saved samples:\n%s", out)
	}
	if !strings.Contains(out, "Turbidity: mean 1, std 2.5") {
		t.Fatalf("expected assumed override:\n%s", out)
	}
	if _, err := execCmd("config", "set", "near_limit_ratio", "3"); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestCLI_SiteNamesFromConfig(t *testing.T) {
	home := isolateHome(t)
	mpath := writeMeasurements(t, home)
	b, err := os.ReadFile(mpath)
	if err != nil {
		t.Fatalf("read measurements: %v", err)
	}
	if err := os.WriteFile(mpath, []byte(strings.ReplaceAll(string(b), "Zuurgraad", "pH-waarde")), 0o644); err != nil {
		t.Fatalf("rewrite measurements: %v", err)
	}

	runCmd(t, "config", "set", "site_names.PH", "pH-waarde")
	if out := runCmd(t, "config", "show"); !strings.Contains(out, "PH: pH-waarde") {
		t.Fatalf("expected site name override:\n%s", out)
	}

	js := runCmd(t, "stats", mpath, "--json")
	var stats []struct {
		Mean   float64 `json:"mean"`
		Source string  `json:"source"`
	}
	if err := json.Unmarshal([]byte(js), &stats); err != nil {
		t.Fatalf("decode stats json: %v\n%s", err, js)
	}
	if ph := stats[catalog.PH]; math.Abs(ph.Mean-7.7) > 1e-9 || ph.Source != "measured" {
		t.Fatalf("unexpected PH statistics: %+v", ph)
	}
}
