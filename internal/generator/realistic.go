package generator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/KaramelBytes/nearlimit-cli/internal/catalog"
	"github.com/KaramelBytes/nearlimit-cli/internal/measurements"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// nearScale is the fraction of a parameter's std used as the spread of
// near-limit replacement draws centred at mean+std.
const nearScale = 0.5

// RealisticGenerator draws correlated samples from a multivariate normal
// parameterised by measured statistics and the catalog correlations.
type RealisticGenerator struct {
	cat    *catalog.Catalog
	opt    Options
	logger *zap.Logger
	mean   catalog.Vector
	std    catalog.Vector
	cov    *mat.SymDense
	dist   *mvNormal
}

// NewRealistic builds the covariance matrix and its factorization.
func NewRealistic(cat *catalog.Catalog, stats measurements.Statistics, opt Options, logger *zap.Logger) (*RealisticGenerator, error) {
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	if err := opt.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &RealisticGenerator{
		cat:    cat,
		opt:    opt,
		logger: logger.Named("realistic"),
		mean:   stats.Means(),
		std:    stats.Stds(),
	}
	for _, p := range catalog.Params() {
		if math.IsNaN(g.mean[p]) || math.IsNaN(g.std[p]) || g.std[p] < 0 {
			return nil, fmt.Errorf("invalid statistics for %s: mean %g, std %g", cat.Spec(p).Name, g.mean[p], g.std[p])
		}
	}
	g.cov = Covariance(cat, g.std)
	dist, err := newMVNormal(g.mean[:], g.cov)
	if err != nil {
		return nil, err
	}
	if dist.clamped > 0 {
		g.logger.Warn("covariance is not positive semidefinite; clamped negative eigenvalues",
			zap.Int("clamped", dist.clamped))
	}
	g.dist = dist
	return g, nil
}

// Covariance scales the catalog correlations by the outer product of std:
// cov[i][j] = corr[i][j] * std[i] * std[j].
func Covariance(cat *catalog.Catalog, std catalog.Vector) *mat.SymDense {
	cov := mat.NewSymDense(catalog.Count, nil)
	for i := 0; i < catalog.Count; i++ {
		for j := i; j < catalog.Count; j++ {
			cov.SetSym(i, j, cat.Correlation(catalog.Param(i), catalog.Param(j))*std[i]*std[j])
		}
	}
	return cov
}

// Generate draws opt.Samples rows, then labels and perturbs each row.
func (g *RealisticGenerator) Generate(ctx context.Context, rng *rand.Rand) (*Dataset, error) {
	n := g.opt.Samples
	draws := make([]catalog.Vector, n)
	for i := range draws {
		g.dist.rand(rng, draws[i][:])
	}
	ds := &Dataset{Kind: Realistic, Samples: make([]Sample, 0, n)}
	if g.opt.KeepRaw {
		ds.Raw = make([]catalog.Vector, n)
		copy(ds.Raw, draws)
	}

	for i := range draws {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("generation interrupted at sample %d: %w", i, err)
			}
		}
		row := draws[i]
		for p := range row {
			row[p] = math.Abs(row[p])
		}
		if g.opt.Clip {
			for _, p := range catalog.Params() {
				s := g.cat.Spec(p)
				row[p] = math.Min(math.Max(row[p], s.Lower), s.Upper)
			}
		}
		s, err := g.label(rng, row, &ds.Report)
		if err != nil {
			var exhausted *SamplingExhaustedError
			if errors.As(err, &exhausted) && g.opt.OnExhausted == ExhaustSkip {
				ds.Report.Dropped++
				continue
			}
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		if !inRange(g.cat, s.Values) {
			ds.Report.OutOfRange++
		}
		ds.Samples = append(ds.Samples, s)
	}
	ds.Report.NearLimit = ds.NearCount()
	if ds.Report.Fallbacks > 0 || ds.Report.Dropped > 0 {
		g.logger.Warn("rejection sampling exhausted",
			zap.Int("fallbacks", ds.Report.Fallbacks),
			zap.Int("dropped", ds.Report.Dropped),
			zap.Int("max_retries", g.opt.MaxRetries))
	}
	g.logger.Info("dataset generated",
		zap.Int("samples", len(ds.Samples)),
		zap.Int("near_limit", ds.Report.NearLimit),
		zap.Int("out_of_range", ds.Report.OutOfRange))
	return ds, nil
}

// label decides whether row is a near-limit sample and, if so, replaces the
// selected parameters with draws near mean+std inside their legal range.
func (g *RealisticGenerator) label(rng *rand.Rand, row catalog.Vector, rep *Report) (Sample, error) {
	s := Sample{Values: row}
	s.NearLimit = rng.Float64() < g.opt.NearLimitRatio
	if !s.NearLimit {
		return s, nil
	}
	s.NearLimitParams = pickNearSet(rng, g.cat)
	for _, p := range s.NearLimitParams {
		spec := g.cat.Spec(p)
		v, tries, err := SampleWithinRange(rng, g.mean[p]+g.std[p], g.std[p]*nearScale, spec.Lower, spec.Upper, g.opt.MaxRetries)
		rep.Attempts += tries
		if err != nil {
			var exhausted *SamplingExhaustedError
			if errors.As(err, &exhausted) {
				exhausted.Param = spec.Name
			}
			if g.opt.OnExhausted == ExhaustFallback {
				rep.Fallbacks++
				g.logger.Debug("keeping drawn value", zap.String("param", spec.Name), zap.Float64("value", row[p]))
				continue
			}
			return Sample{}, err
		}
		s.Values[p] = v
	}
	return s, nil
}

// Mean returns the mean vector the generator draws around.
func (g *RealisticGenerator) Mean() catalog.Vector { return g.mean }

// CovarianceMatrix returns the covariance used for drawing.
func (g *RealisticGenerator) CovarianceMatrix() *mat.SymDense {
	data := append([]float64(nil), g.cov.RawSymmetric().Data...)
	return mat.NewSymDense(catalog.Count, data)
}
