package catalog

import (
	"fmt"
	"math"
	"strings"
)

// Param indexes one of the fixed water-quality parameters.
type Param int

const (
	Ammonium Param = iota
	Phosphate
	COD
	BOD
	Conductivity
	PH
	Nitrogen
	Nitrate
	Turbidity
	TSS
)

// Count is the number of fixed parameters.
const Count = 10

var keys = [Count]string{
	"Ammonium", "Phosphate", "COD", "BOD", "Conductivity",
	"PH", "Nitrogen", "Nitrate", "Turbidity", "TSS",
}

// String returns the short key (the field name used by prediction inputs).
func (p Param) String() string {
	if p < 0 || int(p) >= Count {
		return fmt.Sprintf("Param(%d)", int(p))
	}
	return keys[p]
}

// Params lists every parameter in catalog order.
func Params() []Param {
	out := make([]Param, Count)
	for i := range out {
		out[i] = Param(i)
	}
	return out
}

// ParseKey resolves a short key (case-insensitive) to a Param.
func ParseKey(key string) (Param, bool) {
	k := strings.TrimSpace(key)
	for i, s := range keys {
		if strings.EqualFold(s, k) {
			return Param(i), true
		}
	}
	return 0, false
}

// Vector holds one value per parameter, indexed by Param.
type Vector [Count]float64

// ParameterSpec describes the legal range of a parameter.
// A zero Lower marks the parameter as unbounded below (concentrations).
type ParameterSpec struct {
	Key   string  `yaml:"key"`
	Name  string  `yaml:"name"`
	Unit  string  `yaml:"unit"`
	Lower float64 `yaml:"lower"`
	Upper float64 `yaml:"upper"`
}

// BoundedBelow reports whether the lower bound takes part in range math.
func (s ParameterSpec) BoundedBelow() bool { return s.Lower != 0 }

// Catalog is the immutable parameter table plus the correlation structure
// between parameters. Construct with Default, New or Load.
type Catalog struct {
	specs [Count]ParameterSpec
	corr  [Count][Count]float64
}

// New validates and returns a catalog built from the given table.
func New(specs [Count]ParameterSpec, corr [Count][Count]float64) (*Catalog, error) {
	c := &Catalog{specs: specs, corr: corr}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Spec returns the range definition of p.
func (c *Catalog) Spec(p Param) ParameterSpec { return c.specs[p] }

// Specs returns a copy of all parameter definitions in catalog order.
func (c *Catalog) Specs() []ParameterSpec {
	out := make([]ParameterSpec, Count)
	copy(out, c.specs[:])
	return out
}

// Names returns the canonical column names in catalog order.
func (c *Catalog) Names() []string {
	out := make([]string, Count)
	for i, s := range c.specs {
		out[i] = s.Name
	}
	return out
}

// Lookup finds a parameter by canonical name or short key.
func (c *Catalog) Lookup(name string) (Param, bool) {
	n := strings.TrimSpace(name)
	for i, s := range c.specs {
		if s.Name == n {
			return Param(i), true
		}
	}
	return ParseKey(n)
}

// Correlation returns the coefficient between a and b.
func (c *Catalog) Correlation(a, b Param) float64 { return c.corr[a][b] }

// CorrelationMatrix returns a copy of the full matrix.
func (c *Catalog) CorrelationMatrix() [Count][Count]float64 { return c.corr }

// NearThreshold is the value at which p enters its near-limit zone for the
// given coefficient: upper - span*(1-coef) when bounded below, upper*coef
// otherwise.
func (c *Catalog) NearThreshold(p Param, coef float64) float64 {
	s := c.specs[p]
	if s.BoundedBelow() {
		return s.Upper - (s.Upper-s.Lower)*(1-coef)
	}
	return s.Upper * coef
}

// RegularCeiling is the top of the range used for parameters that are not
// pushed towards their limit: upper - span*coef when bounded below,
// upper*coef otherwise.
func (c *Catalog) RegularCeiling(p Param, coef float64) float64 {
	s := c.specs[p]
	if s.BoundedBelow() {
		return s.Upper - (s.Upper-s.Lower)*coef
	}
	return s.Upper * coef
}

// Validate checks bounds and the correlation matrix structure.
func (c *Catalog) Validate() error {
	seen := map[string]bool{}
	for i, s := range c.specs {
		p := Param(i)
		if s.Key != keys[i] {
			return &ConfigurationError{Param: p.String(), Reason: fmt.Sprintf("key %q does not match slot %d", s.Key, i)}
		}
		if strings.TrimSpace(s.Name) == "" {
			return &ConfigurationError{Param: p.String(), Reason: "empty name"}
		}
		if seen[s.Name] {
			return &ConfigurationError{Param: p.String(), Reason: fmt.Sprintf("duplicate name %q", s.Name)}
		}
		seen[s.Name] = true
		if math.IsNaN(s.Lower) || math.IsNaN(s.Upper) || math.IsInf(s.Lower, 0) || math.IsInf(s.Upper, 0) {
			return &ConfigurationError{Param: p.String(), Reason: "bounds must be finite"}
		}
		if s.Lower > s.Upper {
			return &ConfigurationError{Param: p.String(), Reason: fmt.Sprintf("lower bound %g exceeds upper bound %g", s.Lower, s.Upper)}
		}
	}
	const tol = 1e-9
	for i := 0; i < Count; i++ {
		if math.Abs(c.corr[i][i]-1) > tol {
			return &ConfigurationError{Param: Param(i).String(), Reason: fmt.Sprintf("correlation diagonal is %g, want 1", c.corr[i][i])}
		}
		for j := 0; j < Count; j++ {
			v := c.corr[i][j]
			if math.IsNaN(v) || v < -1 || v > 1 {
				return &ConfigurationError{Param: Param(i).String(), Reason: fmt.Sprintf("correlation with %s out of [-1,1]: %g", Param(j), v)}
			}
			if math.Abs(v-c.corr[j][i]) > tol {
				return &ConfigurationError{Param: Param(i).String(), Reason: fmt.Sprintf("correlation with %s is not symmetric (%g vs %g)", Param(j), v, c.corr[j][i])}
			}
		}
	}
	return nil
}
