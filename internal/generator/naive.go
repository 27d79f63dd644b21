package generator

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/KaramelBytes/nearlimit-cli/internal/catalog"
	"go.uber.org/zap"
)

// NaiveGenerator draws every parameter independently and uniformly, biased
// into the near-limit zone for the selected parameters of near samples.
type NaiveGenerator struct {
	cat    *catalog.Catalog
	opt    Options
	logger *zap.Logger
}

// NewNaive validates the catalog and options.
func NewNaive(cat *catalog.Catalog, opt Options, logger *zap.Logger) (*NaiveGenerator, error) {
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	if err := opt.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NaiveGenerator{cat: cat, opt: opt, logger: logger.Named("naive")}, nil
}

// Generate produces opt.Samples independent samples.
func (g *NaiveGenerator) Generate(ctx context.Context, rng *rand.Rand) (*Dataset, error) {
	ds := &Dataset{Kind: Naive, Samples: make([]Sample, 0, g.opt.Samples)}
	for i := 0; i < g.opt.Samples; i++ {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("generation interrupted at sample %d: %w", i, err)
			}
		}
		ds.Samples = append(ds.Samples, g.sample(rng))
	}
	ds.Report.NearLimit = ds.NearCount()
	g.logger.Info("dataset generated",
		zap.Int("samples", len(ds.Samples)),
		zap.Int("near_limit", ds.Report.NearLimit))
	return ds, nil
}

func (g *NaiveGenerator) sample(rng *rand.Rand) Sample {
	var s Sample
	s.NearLimit = rng.Float64() < g.opt.NearLimitRatio
	if s.NearLimit {
		s.NearLimitParams = pickNearSet(rng, g.cat)
	}
	coef := g.opt.Coefficient
	for _, p := range catalog.Params() {
		spec := g.cat.Spec(p)
		if contains(s.NearLimitParams, p) {
			s.Values[p] = uniform(rng, g.cat.NearThreshold(p, coef), spec.Upper)
		} else {
			s.Values[p] = uniform(rng, spec.Lower, g.cat.RegularCeiling(p, coef))
		}
	}
	return s
}
