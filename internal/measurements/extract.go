package measurements

import (
	"errors"
	"math"
	"sort"

	"github.com/KaramelBytes/nearlimit-cli/internal/catalog"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

// Column names used by the source measurement export.
const (
	DefaultParameterColumn = "OMS_PARAMETER"
	DefaultValueColumn     = "WAARDE_O"
	DefaultSheet           = "20025"
)

// DefaultSiteNames maps the site-specific parameter labels of the source
// export to catalog parameters. Only these labels are selected.
var DefaultSiteNames = map[string]catalog.Param{
	"ammonium": catalog.Ammonium,
	"fosfaat":  catalog.Phosphate,
	"COD":      catalog.COD,
	"Biochemisch zuurstofverbruik over 5 dagen": catalog.BOD,
	"Geleidendheid":   catalog.Conductivity,
	"Zuurgraad":       catalog.PH,
	"stikstof totaal": catalog.Nitrogen,
	"nitraat":         catalog.Nitrate,
	"Turbidity":       catalog.Turbidity,
	"TSS":             catalog.TSS,
}

// AssumedStats replaces measured statistics for a parameter the site does
// not measure.
type AssumedStats struct {
	Mean float64 `mapstructure:"mean" yaml:"mean" validate:"gte=0"`
	Std  float64 `mapstructure:"std" yaml:"std" validate:"gte=0"`
}

// DefaultAssumed returns the assumed statistics for parameters absent from
// the source export. Mean and std share one constant per parameter, which
// gives those parameters a coefficient of variation of exactly 1.
func DefaultAssumed() map[catalog.Param]AssumedStats {
	return map[catalog.Param]AssumedStats{
		catalog.COD:       {Mean: 40, Std: 40},
		catalog.Turbidity: {Mean: 1, Std: 1},
		catalog.TSS:       {Mean: 5, Std: 5},
	}
}

// Source tells where a parameter's statistics came from.
type Source string

const (
	Measured Source = "measured"
	Assumed  Source = "assumed"
)

// ParameterStatistics is the mean and population standard deviation of one
// parameter.
type ParameterStatistics struct {
	Param  catalog.Param `json:"-"`
	Name   string        `json:"name"`
	Mean   float64       `json:"mean"`
	Std    float64       `json:"std"`
	Count  int           `json:"count"`
	Source Source        `json:"source"`
}

// Statistics covers every catalog parameter.
type Statistics struct {
	Params [catalog.Count]ParameterStatistics
}

// Means returns the mean vector.
func (s *Statistics) Means() catalog.Vector {
	var v catalog.Vector
	for i, p := range s.Params {
		v[i] = p.Mean
	}
	return v
}

// Stds returns the standard deviation vector.
func (s *Statistics) Stds() catalog.Vector {
	var v catalog.Vector
	for i, p := range s.Params {
		v[i] = p.Std
	}
	return v
}

// List returns the per-parameter entries in catalog order.
func (s *Statistics) List() []ParameterStatistics {
	out := make([]ParameterStatistics, catalog.Count)
	copy(out, s.Params[:])
	return out
}

// Options selects the identifier and value columns.
type Options struct {
	ParameterColumn string
	ValueColumn     string
}

// Result is the outcome of an extraction.
type Result struct {
	Stats Statistics
	// Selected holds the whitelisted rows with identifiers renamed to
	// canonical names; Other holds everything else.
	Selected *Table
	Other    *Table
	// Skipped counts selected rows whose value did not parse.
	Skipped int
}

// Extractor computes per-parameter statistics from raw measurements.
type Extractor struct {
	cat       *catalog.Catalog
	siteNames map[string]catalog.Param
	assumed   map[catalog.Param]AssumedStats
	logger    *zap.Logger
}

// NewExtractor builds an extractor with the default site names. A nil
// assumed map uses DefaultAssumed; a nil logger disables logging.
func NewExtractor(cat *catalog.Catalog, assumed map[catalog.Param]AssumedStats, logger *zap.Logger) *Extractor {
	if assumed == nil {
		assumed = DefaultAssumed()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{cat: cat, siteNames: DefaultSiteNames, assumed: assumed, logger: logger}
}

// WithSiteNames returns a copy of the extractor using a different label map.
func (e *Extractor) WithSiteNames(names map[string]catalog.Param) *Extractor {
	cp := *e
	cp.siteNames = names
	return &cp
}

// Extract filters, relabels and summarises the measurement table.
func (e *Extractor) Extract(t *Table, opt Options) (*Result, error) {
	pcol := opt.ParameterColumn
	if pcol == "" {
		pcol = DefaultParameterColumn
	}
	vcol := opt.ValueColumn
	if vcol == "" {
		vcol = DefaultValueColumn
	}
	pi, ok := t.Column(pcol)
	if !ok {
		return nil, &MissingColumnError{Column: pcol, Available: t.Header}
	}
	vi, ok := t.Column(vcol)
	if !ok {
		return nil, &MissingColumnError{Column: vcol, Available: t.Header}
	}

	res := &Result{
		Selected: &Table{Name: "selected", Header: t.Header},
		Other:    &Table{Name: "other", Header: t.Header},
	}
	var values [catalog.Count][]float64
	var rows [catalog.Count]int
	for _, row := range t.Rows {
		label := Cell(row, pi)
		p, ok := e.siteNames[label]
		if !ok {
			res.Other.Rows = append(res.Other.Rows, row)
			continue
		}
		renamed := make([]string, len(row))
		copy(renamed, row)
		renamed[pi] = e.cat.Spec(p).Name
		res.Selected.Rows = append(res.Selected.Rows, renamed)

		if _, missing := e.assumed[p]; missing {
			continue
		}
		rows[p]++
		x, ok := ParseNumber(Cell(row, vi))
		if !ok {
			res.Skipped++
			continue
		}
		values[p] = append(values[p], x)
	}

	for _, p := range catalog.Params() {
		name := e.cat.Spec(p).Name
		if a, ok := e.assumed[p]; ok {
			res.Stats.Params[p] = ParameterStatistics{Param: p, Name: name, Mean: a.Mean, Std: a.Std, Source: Assumed}
			continue
		}
		mean, std, err := populationStats(values[p])
		if err != nil {
			return nil, &InsufficientDataError{Param: name, Site: e.siteName(p), Rows: rows[p]}
		}
		res.Stats.Params[p] = ParameterStatistics{Param: p, Name: name, Mean: mean, Std: std, Count: len(values[p]), Source: Measured}
		e.logger.Debug("parameter statistics",
			zap.String("param", name),
			zap.Int("n", len(values[p])),
			zap.Float64("mean", mean),
			zap.Float64("std", std))
	}
	if res.Skipped > 0 {
		e.logger.Warn("skipped non-numeric measurement values", zap.Int("rows", res.Skipped))
	}
	return res, nil
}

func (e *Extractor) siteName(p catalog.Param) string {
	var names []string
	for k, v := range e.siteNames {
		if v == p {
			names = append(names, k)
		}
	}
	if len(names) == 0 {
		return p.String()
	}
	sort.Strings(names)
	return names[0]
}

// errNoValues is returned by populationStats for an empty slice.
var errNoValues = errors.New("no values")

// populationStats returns the mean and the standard deviation dividing by N.
func populationStats(x []float64) (mean, std float64, err error) {
	if len(x) == 0 {
		return 0, 0, errNoValues
	}
	mean, variance := stat.PopMeanVariance(x, nil)
	if variance < 0 {
		variance = 0
	}
	return mean, math.Sqrt(variance), nil
}

// FromVectors builds statistics from explicit mean and std vectors, marking
// every parameter as assumed.
func FromVectors(cat *catalog.Catalog, mean, std catalog.Vector) Statistics {
	var s Statistics
	for _, p := range catalog.Params() {
		s.Params[p] = ParameterStatistics{Param: p, Name: cat.Spec(p).Name, Mean: mean[p], Std: std[p], Source: Assumed}
	}
	return s
}
