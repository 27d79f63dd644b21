package scoring

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/nearlimit-cli/internal/catalog"
)

// InputData is one reading in the prediction service's request shape.
type InputData struct {
	Ammonium     float64 `json:"Ammonium"`
	Phosphate    float64 `json:"Phosphate"`
	COD          float64 `json:"COD"`
	BOD          float64 `json:"BOD"`
	Conductivity float64 `json:"Conductivity"`
	PH           float64 `json:"PH"`
	Nitrogen     float64 `json:"Nitrogen"`
	Nitrate      float64 `json:"Nitrate"`
	Turbidity    float64 `json:"Turbidity"`
	TSS          float64 `json:"TSS"`
}

// FromVector lays a catalog-ordered reading out in the request shape.
func FromVector(v catalog.Vector) InputData {
	return InputData{
		Ammonium: v[catalog.Ammonium], Phosphate: v[catalog.Phosphate], COD: v[catalog.COD], BOD: v[catalog.BOD],
		Conductivity: v[catalog.Conductivity], PH: v[catalog.PH], Nitrogen: v[catalog.Nitrogen],
		Nitrate: v[catalog.Nitrate], Turbidity: v[catalog.Turbidity], TSS: v[catalog.TSS],
	}
}

// Decode reads a JSON object holding all ten parameters. Keys may be the
// short keys (case-insensitive) or the canonical column names. A null value
// counts as missing.
func Decode(r io.Reader, cat *catalog.Catalog) (catalog.Vector, error) {
	var raw map[string]*float64
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return catalog.Vector{}, fmt.Errorf("decode reading: %w", err)
	}
	var v catalog.Vector
	var seen [catalog.Count]bool
	for k, x := range raw {
		p, ok := cat.Lookup(k)
		if !ok {
			return v, fmt.Errorf("unknown parameter %q", k)
		}
		if seen[p] {
			return v, fmt.Errorf("parameter %s given twice", p)
		}
		if x == nil {
			continue
		}
		if math.IsNaN(*x) || math.IsInf(*x, 0) {
			return v, fmt.Errorf("parameter %s is not finite", p)
		}
		seen[p] = true
		v[p] = *x
	}
	var missing []string
	for p, ok := range seen {
		if !ok {
			missing = append(missing, catalog.Param(p).String())
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return v, fmt.Errorf("missing parameters: %s", strings.Join(missing, ", "))
	}
	return v, nil
}

// Status classifies one value against its range.
type Status string

const (
	StatusOK       Status = "ok"
	StatusNear     Status = "near"
	StatusExceeded Status = "exceeded"
	StatusBelow    Status = "below-minimum"
)

// ParamAssessment is the verdict for one parameter.
type ParamAssessment struct {
	Param     catalog.Param `json:"-"`
	Key       string        `json:"key"`
	Name      string        `json:"name"`
	Value     float64       `json:"value"`
	Lower     float64       `json:"lower"`
	Upper     float64       `json:"upper"`
	Threshold float64       `json:"threshold"`
	Status    Status        `json:"status"`
}

// Assessment is the rule-based counterpart of a model prediction.
type Assessment struct {
	Reading InputData         `json:"reading"`
	Params  []ParamAssessment `json:"params"`
	// NearLimit is set when any parameter is near or beyond a limit.
	NearLimit bool `json:"near_limit"`
	Exceeded  bool `json:"exceeded"`
	// SoftScore is the mean closeness to the range centres, 0..100.
	SoftScore float64 `json:"soft_score"`
}

// Prediction mirrors the prediction service response: label 0/1 and a
// 0..100 confidence, here the soft score.
type Prediction struct {
	Prediction int     `json:"prediction"`
	Confidence float64 `json:"confidence"`
}

// Prediction converts the assessment to the service response shape.
func (a *Assessment) Prediction() Prediction {
	p := Prediction{Confidence: a.SoftScore}
	if a.NearLimit {
		p.Prediction = 1
	}
	return p
}

// Assess evaluates a reading against the catalog with the given near-limit
// coefficient.
func Assess(cat *catalog.Catalog, v catalog.Vector, coef float64) *Assessment {
	a := &Assessment{Reading: FromVector(v), SoftScore: SoftScore(cat, v)}
	for _, p := range catalog.Params() {
		spec := cat.Spec(p)
		pa := ParamAssessment{
			Param: p, Key: p.String(), Name: spec.Name, Value: v[p],
			Lower: spec.Lower, Upper: spec.Upper, Threshold: cat.NearThreshold(p, coef),
		}
		switch {
		case v[p] > spec.Upper:
			pa.Status = StatusExceeded
			a.Exceeded = true
		case v[p] < spec.Lower:
			pa.Status = StatusBelow
			a.Exceeded = true
		case v[p] >= pa.Threshold:
			pa.Status = StatusNear
		default:
			pa.Status = StatusOK
		}
		if pa.Status != StatusOK {
			a.NearLimit = true
		}
		a.Params = append(a.Params, pa)
	}
	return a
}

// SoftScore averages, over parameters with a non-empty range, how close each
// value sits to its range centre: 1 at the centre, 0 at or beyond a bound.
// The mean is scaled to 0..100.
func SoftScore(cat *catalog.Catalog, v catalog.Vector) float64 {
	sum, n := 0.0, 0
	for _, p := range catalog.Params() {
		spec := cat.Spec(p)
		center := (spec.Lower + spec.Upper) / 2
		maxDist := math.Max(math.Abs(center-spec.Lower), math.Abs(center-spec.Upper))
		if maxDist == 0 {
			continue
		}
		score := 1 - math.Abs(center-v[p])/maxDist
		sum += math.Min(math.Max(score, 0), 1)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n) * 100
}
