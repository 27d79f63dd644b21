package generator

import "fmt"

// SamplingExhaustedError reports that rejection sampling hit its retry cap
// without producing a value inside the legal range.
type SamplingExhaustedError struct {
	Param   string
	Center  float64
	Scale   float64
	Lower   float64
	Upper   float64
	Retries int
}

func (e *SamplingExhaustedError) Error() string {
	return fmt.Sprintf("sampling exhausted for %s after %d retries: normal(%g, %g) rarely falls within [%g, %g]",
		e.Param, e.Retries, e.Center, e.Scale, e.Lower, e.Upper)
}
