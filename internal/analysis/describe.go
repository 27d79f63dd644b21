package analysis

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strings"

	"github.com/KaramelBytes/nearlimit-cli/internal/catalog"
	"github.com/KaramelBytes/nearlimit-cli/internal/export"
	"github.com/KaramelBytes/nearlimit-cli/internal/measurements"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Options controls dataset analysis.
type Options struct {
	// SampleRows determines how many example rows to include in the report.
	SampleRows int
	// Coefficient sets the near-limit thresholds counted per column.
	Coefficient float64
	// OutlierThreshold flags values with robust |z| above it; 0 disables.
	OutlierThreshold float64
	// Sheet selects the XLSX sheet; empty means the export sheet.
	Sheet string
}

// DefaultOptions returns reasonable defaults for dataset analysis.
func DefaultOptions() Options {
	return Options{SampleRows: 5, Coefficient: 0.8, OutlierThreshold: 3.5}
}

// Report is a markdown-friendly analysis of a generated dataset.
type Report struct {
	Name     string
	Rows     int
	Cols     []ColumnSummary
	Labels   *LabelSummary
	Corr     *CorrMatrix
	Samples  [][]string
	Warnings []string
}

// ColumnSummary captures inferred type and statistics per column.
type ColumnSummary struct {
	Name    string
	Kind    string // numeric|categorical
	Unit    string
	NonNull int
	Missing int
	Unique  int
	// Numeric stats
	Min  float64
	Max  float64
	Mean float64
	Std  float64
	// Catalog checks, set only for parameter columns.
	IsParam        bool
	OutOfRange     int
	AboveThreshold int
	Threshold      float64
	// Outliers (robust Z via MAD)
	OutliersCount    int
	OutliersMaxAbsZ  float64
	OutlierThreshold float64
	// Categorical top values
	TopValues []CategoryCount
}

type CategoryCount struct {
	Value string
	Count int
}

// LabelSummary describes the near-limit label column.
type LabelSummary struct {
	Total     int
	NearLimit int
	// SetSizes counts near-limit samples by how many parameters were pushed.
	SetSizes map[int]int
	// ParamCounts counts how often each parameter was pushed.
	ParamCounts []CategoryCount
}

// Ratio is the share of near-limit samples.
func (l *LabelSummary) Ratio() float64 {
	if l.Total == 0 {
		return 0
	}
	return float64(l.NearLimit) / float64(l.Total)
}

// CorrMatrix holds observed Pearson correlations between the parameter
// columns next to the catalog's target coefficients.
type CorrMatrix struct {
	Columns []string
	Values  [][]float64 // row-major, Values[i][j]
	Target  [][]float64
	// Rows is the number of complete rows the coefficients are based on.
	Rows int
}

// PairCorr is a simple correlation pair summary.
type PairCorr struct {
	A, B      string
	R, Target float64
}

// Deviation is R - Target.
func (p PairCorr) Deviation() float64 { return p.R - p.Target }

// Pairs lists the upper triangle of the matrix.
func (m *CorrMatrix) Pairs() []PairCorr {
	var out []PairCorr
	for i := range m.Columns {
		for j := i + 1; j < len(m.Columns); j++ {
			out = append(out, PairCorr{A: m.Columns[i], B: m.Columns[j], R: m.Values[i][j], Target: m.Target[i][j]})
		}
	}
	return out
}

// MaxDeviation returns the largest |R - Target| over all pairs.
func (m *CorrMatrix) MaxDeviation() float64 {
	worst := 0.0
	for _, p := range m.Pairs() {
		worst = math.Max(worst, math.Abs(p.Deviation()))
	}
	return worst
}

// DescribeFile reads a dataset CSV or XLSX and analyzes it.
func DescribeFile(path string, cat *catalog.Catalog, opt Options) (*Report, error) {
	sheet := opt.Sheet
	if sheet == "" && strings.EqualFold(filepath.Ext(path), ".xlsx") {
		sheet = export.SheetName
	}
	t, err := measurements.ReadTable(path, measurements.ReadOptions{Sheet: sheet})
	if err != nil {
		return nil, err
	}
	t.Name = filepath.Base(path)
	return Describe(t, cat, opt)
}

// Describe analyzes a dataset table against the catalog.
func Describe(t *measurements.Table, cat *catalog.Catalog, opt Options) (*Report, error) {
	if len(t.Header) == 0 {
		return nil, errors.New("dataset has no header")
	}
	sampleRows := opt.SampleRows
	if sampleRows <= 0 {
		sampleRows = 5
	}
	rep := &Report{Name: t.Name, Rows: len(t.Rows)}

	// Per-column accumulators
	type colAcc struct {
		ColumnSummary
		param  catalog.Param
		numCnt int
		vals   []float64
		cats   map[string]int
	}
	ncol := len(t.Header)
	cols := make([]*colAcc, ncol)
	for i, h := range t.Header {
		name := strings.TrimSpace(h)
		c := &colAcc{cats: map[string]int{}}
		c.Name, c.Unit = splitUnits(name)
		if p, ok := cat.Lookup(name); ok && cat.Spec(p).Name == name {
			c.IsParam = true
			c.param = p
			c.Threshold = cat.NearThreshold(p, opt.Coefficient)
		}
		cols[i] = c
	}

	for _, row := range t.Rows {
		if len(rep.Samples) < sampleRows {
			rowCopy := make([]string, ncol)
			copy(rowCopy, row)
			rep.Samples = append(rep.Samples, rowCopy)
		}
		for j, c := range cols {
			v := measurements.Cell(row, j)
			if v == "" {
				c.Missing++
				continue
			}
			c.NonNull++
			c.cats[v]++
			x, ok := measurements.ParseNumber(v)
			if !ok {
				continue
			}
			c.numCnt++
			c.vals = append(c.vals, x)
			if c.IsParam {
				spec := cat.Spec(c.param)
				if x < spec.Lower || x > spec.Upper {
					c.OutOfRange++
				}
				if x >= c.Threshold {
					c.AboveThreshold++
				}
			}
		}
	}

	for _, c := range cols {
		c.Unique = len(c.cats)
		if c.NonNull > 0 && c.numCnt == c.NonNull {
			c.Kind = "numeric"
			// Population std, matching the generator's notion of spread.
			c.Mean, c.Std = stat.PopMeanStdDev(c.vals, nil)
			c.Min, c.Max = floats.Min(c.vals), floats.Max(c.vals)
			if opt.OutlierThreshold > 0 {
				med, mad := medianMAD(c.vals)
				if mad > 0 {
					c.OutlierThreshold = opt.OutlierThreshold
					for _, x := range c.vals {
						z := 0.6745 * (x - med) / mad
						if math.Abs(z) > opt.OutlierThreshold {
							c.OutliersCount++
						}
						c.OutliersMaxAbsZ = math.Max(c.OutliersMaxAbsZ, math.Abs(z))
					}
				}
			}
		} else {
			c.Kind = "categorical"
			c.Min, c.Max = 0, 0
			c.TopValues = topValues(c.cats, 5)
			if c.IsParam && c.NonNull > 0 {
				rep.Warnings = append(rep.Warnings, fmt.Sprintf("parameter column %q has %d non-numeric values", c.Name, c.NonNull-c.numCnt))
			}
		}
		rep.Cols = append(rep.Cols, c.ColumnSummary)
	}

	var params [catalog.Count]int
	found := 0
	for i := range params {
		params[i] = -1
	}
	for j, c := range cols {
		if c.IsParam && c.Kind == "numeric" {
			params[c.param] = j
			found++
		}
	}
	if found < catalog.Count {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("%d of %d parameter columns found", found, catalog.Count))
	}
	if found >= 2 {
		rep.Corr = correlations(t, cat, params)
	}
	rep.Labels = labels(t)
	if rep.Labels == nil {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("no %s column", export.LabelColumn))
	}
	return rep, nil
}

// correlations computes Pearson coefficients over rows where every present
// parameter column is numeric.
func correlations(t *measurements.Table, cat *catalog.Catalog, params [catalog.Count]int) *CorrMatrix {
	var idx []catalog.Param
	for p, j := range params {
		if j >= 0 {
			idx = append(idx, catalog.Param(p))
		}
	}
	series := make([][]float64, len(idx))
rows:
	for _, row := range t.Rows {
		vals := make([]float64, len(idx))
		for k, p := range idx {
			x, ok := measurements.ParseNumber(measurements.Cell(row, params[p]))
			if !ok {
				continue rows
			}
			vals[k] = x
		}
		for k := range idx {
			series[k] = append(series[k], vals[k])
		}
	}
	m := &CorrMatrix{Rows: len(series[0])}
	m.Values = make([][]float64, len(idx))
	m.Target = make([][]float64, len(idx))
	for a, pa := range idx {
		m.Columns = append(m.Columns, cat.Spec(pa).Name)
		m.Values[a] = make([]float64, len(idx))
		m.Target[a] = make([]float64, len(idx))
		for b, pb := range idx {
			m.Target[a][b] = cat.Correlation(pa, pb)
			switch {
			case a == b:
				m.Values[a][b] = 1
			case b < a:
				m.Values[a][b] = m.Values[b][a]
			default:
				m.Values[a][b] = pearson(series[a], series[b])
			}
		}
	}
	return m
}

// pearson returns 0 for constant or too-short series instead of NaN.
func pearson(x, y []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) {
		return 0
	}
	return r
}

func labels(t *measurements.Table) *LabelSummary {
	li, ok := t.Column(export.LabelColumn)
	if !ok {
		return nil
	}
	pi, hasParams := t.Column(export.ParamsColumn)
	l := &LabelSummary{SetSizes: map[int]int{}}
	counts := map[string]int{}
	for _, row := range t.Rows {
		v := measurements.Cell(row, li)
		if v == "" {
			continue
		}
		l.Total++
		if v != "1" && !strings.EqualFold(v, "true") {
			continue
		}
		l.NearLimit++
		if !hasParams {
			continue
		}
		names := strings.Split(measurements.Cell(row, pi), ",")
		n := 0
		for _, name := range names {
			if name = strings.TrimSpace(name); name != "" {
				counts[name]++
				n++
			}
		}
		l.SetSizes[n]++
	}
	l.ParamCounts = topValues(counts, len(counts))
	return l
}

func topValues(counts map[string]int, limit int) []CategoryCount {
	out := make([]CategoryCount, 0, len(counts))
	for k, v := range counts {
		out = append(out, CategoryCount{Value: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Value < out[j].Value
		}
		return out[i].Count > out[j].Count
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// medianMAD returns the median and the median absolute deviation of vals.
func medianMAD(vals []float64) (median, mad float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	cp := append([]float64(nil), vals...)
	sort.Float64s(cp)
	median = stat.Quantile(0.5, stat.LinInterp, cp, nil)
	dev := make([]float64, len(cp))
	for i, v := range cp {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	mad = stat.Quantile(0.5, stat.LinInterp, dev, nil)
	return median, mad
}
