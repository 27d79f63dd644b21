package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/KaramelBytes/nearlimit-cli/internal/catalog"
	cfgpkg "github.com/KaramelBytes/nearlimit-cli/internal/config"
	"github.com/KaramelBytes/nearlimit-cli/internal/export"
	"github.com/KaramelBytes/nearlimit-cli/internal/generator"
	"github.com/KaramelBytes/nearlimit-cli/internal/measurements"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// generateFlags holds the raw flag values of the generate command.
type generateFlags struct {
	Mode         string
	Samples      int
	Seed         uint64
	Ratio        float64
	Coefficient  float64
	Measurements string
	Sheet        string
	OutDir       string
	NoXLSX       bool
	NoHighlight  bool
	Raw          bool
	OnExhausted  string
	MaxRetries   int
	Clip         bool
}

// generateOptions is the resolved plan of one generate invocation.
type generateOptions struct {
	Kinds        []generator.Kind
	Seed         uint64
	Gen          generator.Options
	Measurements string
	Sheet        string
	Columns      measurements.Options
	Export       export.Options
}

// resolveGenerateOptions merges config values with the flags the user set.
// changed reports whether a flag was given explicitly.
func resolveGenerateOptions(cfg *cfgpkg.Global, fl generateFlags, changed func(string) bool) (generateOptions, error) {
	var o generateOptions
	mode := cfg.Mode
	if changed("mode") {
		mode = strings.ToLower(strings.TrimSpace(fl.Mode))
	}
	switch mode {
	case "naive":
		o.Kinds = []generator.Kind{generator.Naive}
	case "realistic":
		o.Kinds = []generator.Kind{generator.Realistic}
	case "both", "":
		o.Kinds = []generator.Kind{generator.Naive, generator.Realistic}
	default:
		return o, fmt.Errorf("invalid --mode: %s (use naive|realistic|both)", mode)
	}

	o.Seed = cfg.Seed
	if changed("seed") {
		o.Seed = fl.Seed
	}
	o.Gen = generator.Options{
		Samples:        cfg.Samples,
		NearLimitRatio: cfg.NearLimitRatio,
		Coefficient:    cfg.Coefficient,
		MaxRetries:     cfg.MaxRetries,
		Clip:           cfg.Clip,
	}
	if changed("samples") {
		o.Gen.Samples = fl.Samples
	}
	if changed("ratio") {
		o.Gen.NearLimitRatio = fl.Ratio
	}
	if changed("coefficient") {
		o.Gen.Coefficient = fl.Coefficient
	}
	if changed("max-retries") {
		o.Gen.MaxRetries = fl.MaxRetries
	}
	if changed("clip") {
		o.Gen.Clip = fl.Clip
	}
	policy := cfg.OnExhausted
	if changed("on-exhausted") {
		policy = fl.OnExhausted
	}
	p, err := generator.ParsePolicy(strings.ToLower(policy))
	if err != nil {
		return o, err
	}
	o.Gen.OnExhausted = p
	o.Gen.KeepRaw = fl.Raw
	if err := o.Gen.Validate(); err != nil {
		return o, err
	}

	o.Measurements = cfg.MeasurementsPath
	if changed("measurements") {
		o.Measurements = fl.Measurements
	}
	o.Sheet = cfg.MeasurementsSheet
	if changed("sheet") {
		o.Sheet = fl.Sheet
	}
	o.Columns = measurements.Options{ParameterColumn: cfg.ParameterColumn, ValueColumn: cfg.ValueColumn}

	o.Export = export.Options{
		Dir:       cfg.OutDir,
		XLSX:      !fl.NoXLSX,
		Highlight: !fl.NoXLSX && !fl.NoHighlight,
		Raw:       fl.Raw,
	}
	if changed("out-dir") {
		o.Export.Dir = fl.OutDir
	}
	return o, nil
}

// loadStatistics reads the measurement file and extracts per-parameter
// statistics.
func loadStatistics(cat *catalog.Catalog, cfg *cfgpkg.Global, path, sheet string, cols measurements.Options) (*measurements.Result, error) {
	t, err := measurements.ReadTable(path, measurements.ReadOptions{Sheet: sheet})
	if err != nil {
		return nil, fmt.Errorf("read measurements: %w", err)
	}
	assumed, err := cfg.AssumedParams()
	if err != nil {
		return nil, err
	}
	sites, err := cfg.SiteNames()
	if err != nil {
		return nil, err
	}
	res, err := measurements.NewExtractor(cat, assumed, logger).WithSiteNames(sites).Extract(t, cols)
	if err != nil {
		return nil, fmt.Errorf("extract statistics from %s: %w", path, err)
	}
	return res, nil
}

// runSummary describes one generated and exported dataset.
type runSummary struct {
	Kind     generator.Kind
	Dataset  *generator.Dataset
	Files    []string
	Warnings []error
}

// generateAndExport builds every requested dataset in memory before writing
// anything, so a fatal generation error leaves no files behind.
func generateAndExport(ctx context.Context, cat *catalog.Catalog, o generateOptions, stats *measurements.Statistics) ([]runSummary, error) {
	var runs []runSummary
	for _, kind := range o.Kinds {
		rng := generator.NewRand(o.Seed)
		var (
			ds  *generator.Dataset
			err error
		)
		switch kind {
		case generator.Naive:
			var g *generator.NaiveGenerator
			if g, err = generator.NewNaive(cat, o.Gen, logger); err == nil {
				ds, err = g.Generate(ctx, rng)
			}
		case generator.Realistic:
			if stats == nil {
				return nil, fmt.Errorf("realistic generation needs measurement statistics (--measurements)")
			}
			var g *generator.RealisticGenerator
			if g, err = generator.NewRealistic(cat, *stats, o.Gen, logger); err == nil {
				logModel(g)
				ds, err = g.Generate(ctx, rng)
			}
		}
		if err != nil {
			return nil, fmt.Errorf("%s generation: %w", kind, err)
		}
		runs = append(runs, runSummary{Kind: kind, Dataset: ds})
	}

	exp := export.New(cat, o.Gen.Coefficient, logger)
	for i := range runs {
		run := &runs[i]
		eo := o.Export
		if len(runs) > 1 {
			eo.Prefix = string(run.Kind) + "_"
		}
		w, err := exp.Export(run.Dataset, eo)
		if err != nil {
			return runs[:i], err
		}
		run.Files, run.Warnings = w.Files, w.Warnings

		m := export.NewManifest(run.Dataset, o.Seed, o.Gen)
		m.Files = w.Files
		if run.Kind == generator.Realistic {
			m.Measurements = o.Measurements
			m.Statistics = stats.List()
		}
		path, err := m.Save(eo.Dir, eo.Prefix)
		if err != nil {
			run.Warnings = append(run.Warnings, err)
		} else {
			run.Files = append(run.Files, path)
			logger.Debug("manifest written", zap.String("path", path), zap.String("run_id", m.RunID))
		}
	}
	return runs, nil
}

// logModel records the mean and covariance the realistic draws come from.
func logModel(g *generator.RealisticGenerator) {
	if ce := logger.Check(zap.DebugLevel, "realistic model"); ce != nil {
		mean := g.Mean()
		ce.Write(
			zap.Float64s("mean", mean[:]),
			zap.String("covariance", fmt.Sprintf("\n%.4g", mat.Formatted(g.CovarianceMatrix(), mat.Prefix("  ")))),
		)
	}
}

// printRunSummary writes the user-facing result lines.
func printRunSummary(w io.Writer, runs []runSummary) {
	for _, r := range runs {
		ds := r.Dataset
		fmt.Fprintf(w, "✓ Generated %d %s samples (%d near-limit)\n", len(ds.Samples), r.Kind, ds.Report.NearLimit)
		if ds.Report.OutOfRange > 0 {
			fmt.Fprintf(w, "⚠ Warning: %d samples have values outside their legal range\n", ds.Report.OutOfRange)
		}
		if ds.Report.Fallbacks > 0 {
			fmt.Fprintf(w, "⚠ Warning: %d near-limit values kept their drawn value (retries exhausted)\n", ds.Report.Fallbacks)
		}
		if ds.Report.Dropped > 0 {
			fmt.Fprintf(w, "⚠ Warning: %d samples dropped after rejection sampling was exhausted\n", ds.Report.Dropped)
		}
		for _, f := range r.Files {
			fmt.Fprintf(w, "  → %s\n", f)
		}
		for _, e := range r.Warnings {
			fmt.Fprintf(w, "⚠ Warning: %v\n", e)
		}
	}
}

// printStatistics writes the per-parameter statistics table.
func printStatistics(w io.Writer, stats *measurements.Statistics) {
	fmt.Fprintf(w, "%-26s %12s %12s %7s  %s\n", "Parameter", "Mean", "Std", "N", "Source")
	for _, s := range stats.List() {
		fmt.Fprintf(w, "%-26s %12.4g %12.4g %7d  %s\n", s.Name, s.Mean, s.Std, s.Count, s.Source)
	}
}
