package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/KaramelBytes/nearlimit-cli/internal/catalog"
	"github.com/KaramelBytes/nearlimit-cli/internal/generator"
	"github.com/KaramelBytes/nearlimit-cli/internal/utils"
	"go.uber.org/zap"
)

// Label columns appended after the parameter columns.
const (
	LabelColumn  = "Near_Limit"
	ParamsColumn = "Near_Limit_Params"
)

// SheetName is the worksheet used by every XLSX export.
const SheetName = "Data"

// File names of one export, relative to the output directory.
const (
	DatasetCSV    = "synthetic_water_quality.csv"
	DatasetXLSX   = "synthetic_water_quality.xlsx"
	HighlightXLSX = "highlighted_data.xlsx"
	RawXLSX       = "synthetic_raw_before_clipping.xlsx"
	RawCSV        = "synthetic_raw_before_clipping.csv"
	ManifestJSON  = "manifest.json"
)

// Exporter serialises datasets. It is stateless apart from the catalog and
// the coefficient used for highlighting thresholds.
type Exporter struct {
	cat    *catalog.Catalog
	coef   float64
	logger *zap.Logger
}

// New returns an exporter. A nil logger disables logging.
func New(cat *catalog.Catalog, coef float64, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{cat: cat, coef: coef, logger: logger.Named("export")}
}

// Header returns the column names for a dataset of the given kind.
func (e *Exporter) Header(kind generator.Kind) []string {
	h := append(e.cat.Names(), LabelColumn)
	if kind == generator.Realistic {
		h = append(h, ParamsColumn)
	}
	return h
}

// FormatValue renders a float in its shortest exact form.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func label(s generator.Sample) int {
	if s.NearLimit {
		return 1
	}
	return 0
}

// WriteCSV writes the dataset as CSV. Output depends only on the dataset.
func (e *Exporter) WriteCSV(w io.Writer, ds *generator.Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(e.Header(ds.Kind)); err != nil {
		return err
	}
	rec := make([]string, 0, catalog.Count+2)
	for _, s := range ds.Samples {
		rec = rec[:0]
		for _, v := range s.Values {
			rec = append(rec, FormatValue(v))
		}
		rec = append(rec, strconv.Itoa(label(s)))
		if ds.Kind == generator.Realistic {
			rec = append(rec, s.ParamNames(e.cat))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveCSV writes the dataset CSV to path atomically.
func (e *Exporter) SaveCSV(path string, ds *generator.Dataset) error {
	var buf bytes.Buffer
	if err := e.WriteCSV(&buf, ds); err != nil {
		return &IOError{Path: path, Op: "encode csv", Err: err}
	}
	if err := utils.SafeWriteFile(path, buf.Bytes()); err != nil {
		return &IOError{Path: path, Op: "write", Err: err}
	}
	return nil
}

// WriteRawCSV writes the pre-absolute-value draws, one column per parameter.
func (e *Exporter) WriteRawCSV(w io.Writer, raw []catalog.Vector) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(e.cat.Names()); err != nil {
		return err
	}
	rec := make([]string, catalog.Count)
	for _, r := range raw {
		for i, v := range r {
			rec[i] = FormatValue(v)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (e *Exporter) saveRawCSV(path string, raw []catalog.Vector) error {
	var buf bytes.Buffer
	if err := e.WriteRawCSV(&buf, raw); err != nil {
		return &IOError{Path: path, Op: "encode csv", Err: err}
	}
	if err := utils.SafeWriteFile(path, buf.Bytes()); err != nil {
		return &IOError{Path: path, Op: "write", Err: err}
	}
	return nil
}

func isXLSX(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xlsx")
}

// Options selects which files Export writes.
type Options struct {
	Dir string
	// Prefix is prepended to every file name, e.g. "naive_".
	Prefix    string
	XLSX      bool
	Highlight bool
	Raw       bool
}

// Written lists the paths produced by Export, primary outputs first.
type Written struct {
	Files []string
	// Warnings holds failures of secondary outputs that did not abort the
	// export.
	Warnings []error
}

// Export writes the dataset CSV, then the optional XLSX, highlighted XLSX
// and raw draws. Primary output errors abort; a failing highlighted or raw
// file is reported in Written.Warnings and never touches the primary files.
func (e *Exporter) Export(ds *generator.Dataset, opt Options) (*Written, error) {
	if err := utils.EnsureDir(opt.Dir); err != nil {
		return nil, &IOError{Path: opt.Dir, Op: "mkdir", Err: err}
	}
	name := func(base string) string { return filepath.Join(opt.Dir, opt.Prefix+base) }
	w := &Written{}

	p := name(DatasetCSV)
	if err := e.SaveCSV(p, ds); err != nil {
		return nil, err
	}
	w.Files = append(w.Files, p)

	if opt.XLSX {
		p := name(DatasetXLSX)
		if err := e.SaveXLSX(p, ds, false); err != nil {
			return w, err
		}
		w.Files = append(w.Files, p)
	}
	if opt.Highlight {
		p := name(HighlightXLSX)
		if err := e.SaveXLSX(p, ds, true); err != nil {
			e.logger.Warn("highlighted export failed", zap.String("path", p), zap.Error(err))
			w.Warnings = append(w.Warnings, err)
		} else {
			w.Files = append(w.Files, p)
		}
	}
	if opt.Raw {
		if len(ds.Raw) == 0 {
			w.Warnings = append(w.Warnings, fmt.Errorf("%s dataset has no raw draws to export", ds.Kind))
		} else {
			p := name(RawCSV)
			if opt.XLSX {
				p = name(RawXLSX)
			}
			if err := e.SaveRaw(p, ds.Raw); err != nil {
				e.logger.Warn("raw export failed", zap.String("path", p), zap.Error(err))
				w.Warnings = append(w.Warnings, err)
			} else {
				w.Files = append(w.Files, p)
			}
		}
	}
	e.logger.Info("dataset exported", zap.Strings("files", w.Files))
	return w, nil
}
