package generator

import "math/rand/v2"

// SampleWithinRange draws from Normal(center, scale) until the value lands
// in [lower, upper], at most maxRetries times. It returns the value and the
// number of draws used. A zero scale yields center when it is in range.
func SampleWithinRange(rng *rand.Rand, center, scale, lower, upper float64, maxRetries int) (float64, int, error) {
	exhausted := &SamplingExhaustedError{Center: center, Scale: scale, Lower: lower, Upper: upper, Retries: maxRetries}
	if scale <= 0 {
		if center >= lower && center <= upper {
			return center, 1, nil
		}
		exhausted.Retries = 1
		return 0, 1, exhausted
	}
	for i := 1; i <= maxRetries; i++ {
		v := center + scale*rng.NormFloat64()
		if v >= lower && v <= upper {
			return v, i, nil
		}
	}
	return 0, maxRetries, exhausted
}
