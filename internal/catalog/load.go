package catalog

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk YAML representation of a catalog. Parameters may be
// listed in any order; correlation rows and columns follow that order.
type File struct {
	Parameters  []ParameterSpec `yaml:"parameters"`
	Correlation [][]float64     `yaml:"correlation"`
}

// Load reads a catalog from a YAML file.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads a YAML catalog from r and validates it.
func Decode(r io.Reader) (*Catalog, error) {
	var cf File
	if err := yaml.NewDecoder(r).Decode(&cf); err != nil {
		return nil, &ConfigurationError{Reason: "decode yaml", Err: err}
	}
	return cf.Catalog()
}

// Catalog maps the file entries onto catalog slots by key.
func (cf File) Catalog() (*Catalog, error) {
	if len(cf.Parameters) != Count {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("expected %d parameters, got %d", Count, len(cf.Parameters))}
	}
	if len(cf.Correlation) != Count {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("expected %d correlation rows, got %d", Count, len(cf.Correlation))}
	}
	slot := make([]Param, Count)
	var specs [Count]ParameterSpec
	filled := [Count]bool{}
	for i, s := range cf.Parameters {
		p, ok := ParseKey(s.Key)
		if !ok {
			return nil, &ConfigurationError{Param: s.Key, Reason: "unknown parameter key"}
		}
		if filled[p] {
			return nil, &ConfigurationError{Param: s.Key, Reason: "listed twice"}
		}
		filled[p] = true
		s.Key = p.String()
		specs[p] = s
		slot[i] = p
	}
	var corr [Count][Count]float64
	for i, row := range cf.Correlation {
		if len(row) != Count {
			return nil, &ConfigurationError{Param: slot[i].String(), Reason: fmt.Sprintf("correlation row has %d entries, want %d", len(row), Count)}
		}
		for j, v := range row {
			corr[slot[i]][slot[j]] = v
		}
	}
	return New(specs, corr)
}

// File returns the YAML representation of the catalog in catalog order.
func (c *Catalog) File() File {
	cf := File{Parameters: c.Specs(), Correlation: make([][]float64, Count)}
	for i := range cf.Correlation {
		row := make([]float64, Count)
		copy(row, c.corr[i][:])
		cf.Correlation[i] = row
	}
	return cf
}
