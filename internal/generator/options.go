package generator

import (
	"fmt"
	"math/rand/v2"
)

// ExhaustPolicy decides what happens when near-limit rejection sampling
// runs out of retries.
type ExhaustPolicy string

const (
	// ExhaustFail aborts generation with a *SamplingExhaustedError.
	ExhaustFail ExhaustPolicy = "fail"
	// ExhaustFallback keeps the value drawn from the multivariate normal.
	ExhaustFallback ExhaustPolicy = "fallback"
	// ExhaustSkip drops the sample from the dataset.
	ExhaustSkip ExhaustPolicy = "skip"
)

// ParsePolicy validates a policy name.
func ParsePolicy(s string) (ExhaustPolicy, error) {
	switch p := ExhaustPolicy(s); p {
	case ExhaustFail, ExhaustFallback, ExhaustSkip:
		return p, nil
	case "":
		return ExhaustFail, nil
	default:
		return "", fmt.Errorf("unknown exhaustion policy %q (use fail|fallback|skip)", s)
	}
}

// Options controls dataset generation.
type Options struct {
	// Samples is the number of samples to generate.
	Samples int
	// NearLimitRatio is the probability that a sample is near its limits.
	NearLimitRatio float64
	// Coefficient is the fraction of a range below the near-limit zone.
	Coefficient float64
	// MaxRetries caps rejection sampling per near-limit value.
	MaxRetries int
	// OnExhausted applies when MaxRetries is hit.
	OnExhausted ExhaustPolicy
	// Clip clamps realistic draws into their legal range before labelling.
	Clip bool
	// KeepRaw retains the realistic draws before the absolute value.
	KeepRaw bool
}

// DefaultOptions mirrors the reference generation run.
func DefaultOptions() Options {
	return Options{
		Samples:        10000,
		NearLimitRatio: 0.2,
		Coefficient:    0.8,
		MaxRetries:     1000,
		OnExhausted:    ExhaustFail,
	}
}

// Validate checks option ranges.
func (o Options) Validate() error {
	if o.Samples <= 0 {
		return fmt.Errorf("samples must be positive, got %d", o.Samples)
	}
	if o.NearLimitRatio < 0 || o.NearLimitRatio > 1 {
		return fmt.Errorf("near-limit ratio must be within [0,1], got %g", o.NearLimitRatio)
	}
	if o.Coefficient < 0 || o.Coefficient > 1 {
		return fmt.Errorf("coefficient must be within [0,1], got %g", o.Coefficient)
	}
	if o.MaxRetries < 1 {
		return fmt.Errorf("max retries must be at least 1, got %d", o.MaxRetries)
	}
	if _, err := ParsePolicy(string(o.OnExhausted)); err != nil {
		return err
	}
	return nil
}

// NewRand returns a deterministic random source for the given seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
