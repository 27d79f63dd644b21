package generator

import (
	"errors"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// errFactorize is returned when the covariance cannot be decomposed.
var errFactorize = errors.New("covariance eigendecomposition failed")

// mvNormal draws x = mu + A z with z standard normal and A A^T = sigma.
// A comes from the eigendecomposition of sigma, so positive semidefinite
// (including all-zero) covariances are accepted; small negative eigenvalues
// from a non-PSD correlation table are clamped to zero.
type mvNormal struct {
	mu []float64
	a  *mat.Dense
	// clamped counts eigenvalues below zero that were dropped.
	clamped int
}

func newMVNormal(mu []float64, sigma *mat.SymDense) (*mvNormal, error) {
	n := len(mu)
	var eig mat.EigenSym
	if ok := eig.Factorize(sigma, true); !ok {
		return nil, errFactorize
	}
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	m := &mvNormal{mu: append([]float64(nil), mu...), a: mat.NewDense(n, n, nil)}
	for j := 0; j < n; j++ {
		lambda := vals[j]
		if lambda < 0 {
			m.clamped++
			lambda = 0
		}
		s := math.Sqrt(lambda)
		for i := 0; i < n; i++ {
			m.a.Set(i, j, vecs.At(i, j)*s)
		}
	}
	return m, nil
}

// rand fills dst with one draw.
func (m *mvNormal) rand(rng *rand.Rand, dst []float64) {
	n := len(m.mu)
	z := make([]float64, n)
	for i := range z {
		z[i] = rng.NormFloat64()
	}
	for i := 0; i < n; i++ {
		sum := 0.0
		for j := 0; j < n; j++ {
			sum += m.a.At(i, j) * z[j]
		}
		dst[i] = m.mu[i] + sum
	}
}
