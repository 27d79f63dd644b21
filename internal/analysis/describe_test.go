package analysis

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/nearlimit-cli/internal/catalog"
	"github.com/KaramelBytes/nearlimit-cli/internal/export"
	"github.com/KaramelBytes/nearlimit-cli/internal/generator"
	"github.com/KaramelBytes/nearlimit-cli/internal/measurements"
)

func writeRealistic(t *testing.T, ratio float64, xlsx bool) []string {
	t.Helper()
	cat := catalog.Default()
	mean := catalog.Vector{100, 100, 100, 100, 100, 100, 100, 100, 100, 100}
	std := catalog.Vector{1, 1, 1, 1, 1, 1, 1, 1, 1, 1}
	opt := generator.DefaultOptions()
	opt.Samples = 4000
	opt.NearLimitRatio = ratio
	opt.OnExhausted = generator.ExhaustFallback
	g, err := generator.NewRealistic(cat, measurements.FromVectors(cat, mean, std), opt, nil)
	if err != nil {
		t.Fatalf("NewRealistic: %v", err)
	}
	ds, err := g.Generate(context.Background(), generator.NewRand(17))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	w, err := export.New(cat, 0.8, nil).Export(ds, export.Options{Dir: t.TempDir(), XLSX: xlsx})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	return w.Files
}

func TestDescribeCorrelationsTrackCatalog(t *testing.T) {
	files := writeRealistic(t, 0, false)
	rep, err := DescribeFile(files[0], catalog.Default(), DefaultOptions())
	if err != nil {
		t.Fatalf("DescribeFile: %v", err)
	}
	if rep.Rows != 4000 {
		t.Fatalf("rows = %d, want 4000", rep.Rows)
	}
	if rep.Corr == nil || len(rep.Corr.Columns) != catalog.Count {
		t.Fatalf("correlation matrix missing: %#v", rep.Corr)
	}
	if rep.Corr.Rows != 4000 {
		t.Fatalf("corr rows = %d", rep.Corr.Rows)
	}
	if d := rep.Corr.MaxDeviation(); d > 0.08 {
		t.Fatalf("max deviation from catalog = %.3f", d)
	}
	for i := range rep.Corr.Columns {
		for j := range rep.Corr.Columns {
			if math.Abs(rep.Corr.Values[i][j]-rep.Corr.Values[j][i]) > 1e-12 {
				t.Fatalf("matrix not symmetric at %d,%d", i, j)
			}
		}
	}
	if rep.Labels == nil || rep.Labels.Total != 4000 || rep.Labels.NearLimit != 0 {
		t.Fatalf("labels = %#v", rep.Labels)
	}

	md := rep.Markdown()
	for _, want := range []string{
		"[DATASET SUMMARY]",
		"Rows: 4000",
		"- COD [mg/l O2]: numeric",
		"[LABELS]",
		"[CORRELATIONS] (n=4000)",
		"COD (mg/l O2) ~ BOD (mg/l O2)",
		"[CORRELATION DEVIATION]",
		"[HEAD AND SAMPLE ROWS]",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestDescribeLabelsFromXLSX(t *testing.T) {
	files := writeRealistic(t, 0.5, true)
	xlsx := files[1]
	if filepath.Ext(xlsx) != ".xlsx" {
		t.Fatalf("unexpected export order: %v", files)
	}
	rep, err := DescribeFile(xlsx, catalog.Default(), DefaultOptions())
	if err != nil {
		t.Fatalf("DescribeFile: %v", err)
	}
	l := rep.Labels
	if l == nil {
		t.Fatal("labels missing")
	}
	if r := l.Ratio(); r < 0.45 || r > 0.55 {
		t.Fatalf("near ratio = %.3f", r)
	}
	sized := 0
	for k, n := range l.SetSizes {
		if k < 1 || k > 3 {
			t.Fatalf("set size %d out of range", k)
		}
		sized += n
	}
	if sized != l.NearLimit {
		t.Fatalf("set sizes cover %d of %d near samples", sized, l.NearLimit)
	}
	if len(l.ParamCounts) != catalog.Count {
		t.Fatalf("param counts = %d", len(l.ParamCounts))
	}
}

func TestDescribeFlagsOutOfRangeAndMissingColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.csv")
	body := strings.Join([]string{
		"COD (mg/l O2),pH,Near_Limit",
		"130,7.5,1",
		"50,6.5,0",
		"110,,0",
	}, "\n")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	rep, err := DescribeFile(path, catalog.Default(), DefaultOptions())
	if err != nil {
		t.Fatalf("DescribeFile: %v", err)
	}
	cod := rep.Cols[0]
	if !cod.IsParam || cod.OutOfRange != 1 || cod.AboveThreshold != 2 {
		t.Fatalf("COD summary = %#v", cod)
	}
	ph := rep.Cols[1]
	if ph.OutOfRange != 1 || ph.Missing != 1 {
		t.Fatalf("pH summary = %#v", ph)
	}
	if rep.Corr == nil || rep.Corr.Rows != 2 {
		t.Fatalf("correlation should use 2 complete rows: %#v", rep.Corr)
	}
	if len(rep.Warnings) == 0 || !strings.Contains(rep.Warnings[0], "2 of 10 parameter columns") {
		t.Fatalf("warnings = %#v", rep.Warnings)
	}
	if rep.Labels.NearLimit != 1 || rep.Labels.Total != 3 {
		t.Fatalf("labels = %#v", rep.Labels)
	}
}

func TestSplitUnits(t *testing.T) {
	cases := map[string][2]string{
		"COD (mg/l O2)": {"COD", "mg/l O2"},
		"pH":            {"pH", ""},
		"Mass [mg/L]":   {"Mass", "mg/L"},
	}
	for in, want := range cases {
		c, u := splitUnits(in)
		if c != want[0] || u != want[1] {
			t.Fatalf("splitUnits(%q) = %q, %q", in, c, u)
		}
	}
}

func TestDescribeNumericStats(t *testing.T) {
	tbl := &measurements.Table{
		Name:   "stats",
		Header: []string{"a", "b"},
		Rows: [][]string{
			{"2", "10"}, {"4", "11"}, {"4", "12"}, {"4", "12"},
			{"5", "12"}, {"5", "13"}, {"7", "14"}, {"9", "100"},
		},
	}
	rep, err := Describe(tbl, catalog.Default(), DefaultOptions())
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	a := rep.Cols[0]
	if a.Kind != "numeric" || a.Min != 2 || a.Max != 9 {
		t.Fatalf("a summary = %#v", a)
	}
	if math.Abs(a.Mean-5) > 1e-12 || math.Abs(a.Std-2) > 1e-12 {
		t.Fatalf("a mean/std = %g/%g, want 5/2 (population)", a.Mean, a.Std)
	}
	if a.OutliersCount != 0 {
		t.Fatalf("a outliers = %d", a.OutliersCount)
	}
	b := rep.Cols[1]
	if b.OutliersCount != 1 || math.Abs(b.OutliersMaxAbsZ-0.6745*88) > 1e-9 {
		t.Fatalf("b outliers = %d max |z| = %g", b.OutliersCount, b.OutliersMaxAbsZ)
	}
}

func TestMedianMAD(t *testing.T) {
	med, mad := medianMAD([]float64{14, 10, 12, 100, 12, 11, 13, 12})
	if med != 12 || mad != 1 {
		t.Fatalf("medianMAD = %g, %g; want 12, 1", med, mad)
	}
	if med, mad := medianMAD(nil); med != 0 || mad != 0 {
		t.Fatalf("empty medianMAD = %g, %g", med, mad)
	}
}
