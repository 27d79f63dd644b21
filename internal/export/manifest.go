package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/KaramelBytes/nearlimit-cli/internal/generator"
	"github.com/KaramelBytes/nearlimit-cli/internal/measurements"
	"github.com/KaramelBytes/nearlimit-cli/internal/utils"
	"github.com/google/uuid"
)

// Manifest records how a dataset was produced. It is the only export
// artifact carrying a timestamp, so data files stay reproducible.
type Manifest struct {
	RunID          string                             `json:"run_id"`
	CreatedAt      time.Time                          `json:"created_at"`
	Kind           generator.Kind                     `json:"kind"`
	Seed           uint64                             `json:"seed"`
	Samples        int                                `json:"samples"`
	NearLimitRatio float64                            `json:"near_limit_ratio"`
	Coefficient    float64                            `json:"near_limit_coefficient"`
	OnExhausted    generator.ExhaustPolicy            `json:"on_exhausted,omitempty"`
	Report         generator.Report                   `json:"report"`
	Measurements   string                             `json:"measurements,omitempty"`
	Statistics     []measurements.ParameterStatistics `json:"statistics,omitempty"`
	Files          []string                           `json:"files"`
}

// NewManifest fills the run identity and the dataset counters.
func NewManifest(ds *generator.Dataset, seed uint64, opt generator.Options) *Manifest {
	m := &Manifest{
		RunID:          uuid.NewString(),
		CreatedAt:      time.Now().UTC(),
		Kind:           ds.Kind,
		Seed:           seed,
		Samples:        len(ds.Samples),
		NearLimitRatio: opt.NearLimitRatio,
		Coefficient:    opt.Coefficient,
		Report:         ds.Report,
	}
	if ds.Kind == generator.Realistic {
		m.OnExhausted = opt.OnExhausted
	}
	return m
}

// Save writes the manifest as indented JSON into dir, prefixed like the
// dataset files.
func (m *Manifest) Save(dir, prefix string) (string, error) {
	path := filepath.Join(dir, prefix+ManifestJSON)
	b, err := utils.PrettyJSON(m)
	if err != nil {
		return "", &IOError{Path: path, Op: "encode manifest", Err: err}
	}
	if err := utils.SafeWriteFile(path, b); err != nil {
		return "", &IOError{Path: path, Op: "write", Err: err}
	}
	return path, nil
}

// LoadManifest reads a manifest written by Save.
func LoadManifest(path string) (*Manifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &IOError{Path: path, Op: "read", Err: err}
	}
	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return &m, nil
}
