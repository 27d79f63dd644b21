package generator

import (
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/KaramelBytes/nearlimit-cli/internal/catalog"
)

// Kind names the generator that produced a dataset.
type Kind string

const (
	Naive     Kind = "naive"
	Realistic Kind = "realistic"
)

// Sample is one synthetic reading with its label.
type Sample struct {
	Values    catalog.Vector
	NearLimit bool
	// NearLimitParams lists the parameters pushed towards their limit,
	// sorted by canonical name. Empty unless NearLimit.
	NearLimitParams []catalog.Param
}

// ParamNames joins the near-limit parameters' canonical names with commas.
func (s Sample) ParamNames(cat *catalog.Catalog) string {
	names := make([]string, len(s.NearLimitParams))
	for i, p := range s.NearLimitParams {
		names[i] = cat.Spec(p).Name
	}
	return strings.Join(names, ",")
}

// Report summarises a generation run.
type Report struct {
	NearLimit int `json:"near_limit"`
	// OutOfRange counts samples with at least one value outside its legal range.
	OutOfRange int `json:"out_of_range"`
	// Fallbacks counts near-limit values that kept their drawn value after
	// rejection sampling was exhausted.
	Fallbacks int `json:"fallbacks"`
	// Dropped counts samples removed under the skip policy.
	Dropped int `json:"dropped"`
	// Attempts is the total number of rejection-sampling draws.
	Attempts int `json:"attempts"`
}

// Dataset is the ordered output of one generation run.
type Dataset struct {
	Kind    Kind
	Samples []Sample
	// Raw holds the realistic draws before the absolute value, when kept.
	Raw    []catalog.Vector
	Report Report
}

// NearCount returns the number of samples labelled near-limit.
func (d *Dataset) NearCount() int {
	n := 0
	for _, s := range d.Samples {
		if s.NearLimit {
			n++
		}
	}
	return n
}

// pickNearSet draws how many parameters to push (1, 2 or 3 with
// probabilities 0.6, 0.3, 0.1) and which ones, without replacement.
func pickNearSet(rng *rand.Rand, cat *catalog.Catalog) []catalog.Param {
	k := 1
	switch u := rng.Float64(); {
	case u >= 0.9:
		k = 3
	case u >= 0.6:
		k = 2
	}
	perm := rng.Perm(catalog.Count)
	set := make([]catalog.Param, k)
	for i := 0; i < k; i++ {
		set[i] = catalog.Param(perm[i])
	}
	sort.Slice(set, func(i, j int) bool {
		return cat.Spec(set[i]).Name < cat.Spec(set[j]).Name
	})
	return set
}

func contains(set []catalog.Param, p catalog.Param) bool {
	for _, q := range set {
		if q == p {
			return true
		}
	}
	return false
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + (hi-lo)*rng.Float64()
}

func inRange(cat *catalog.Catalog, v catalog.Vector) bool {
	for _, p := range catalog.Params() {
		s := cat.Spec(p)
		if v[p] < s.Lower || v[p] > s.Upper {
			return false
		}
	}
	return true
}
