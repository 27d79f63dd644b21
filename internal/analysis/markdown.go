package analysis

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
)

// Markdown renders a compact report suitable for a terminal or standalone docs.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", r.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d\n\n", len(r.Cols)))

	b.WriteString("[SCHEMA]\n")
	for _, c := range r.Cols {
		total := c.NonNull + c.Missing
		missPct := 0.0
		if total > 0 {
			missPct = float64(c.Missing) * 100.0 / float64(total)
		}
		name := safeName(c.Name)
		if c.Unit != "" {
			name = fmt.Sprintf("%s [%s]", name, c.Unit)
		}
		b.WriteString(fmt.Sprintf("- %s: %s (non-null %d, missing %.1f%%)", name, c.Kind, c.NonNull, missPct))
		switch c.Kind {
		case "numeric":
			b.WriteString(fmt.Sprintf(": min %.4g, max %.4g, mean %.4g, std %.4g", c.Min, c.Max, c.Mean, c.Std))
			if c.IsParam {
				b.WriteString(fmt.Sprintf("; >= threshold %.4g: %d", c.Threshold, c.AboveThreshold))
				if c.OutOfRange > 0 {
					b.WriteString(fmt.Sprintf("; out of range: %d", c.OutOfRange))
				}
			}
			if c.OutlierThreshold > 0 && c.OutliersCount > 0 {
				b.WriteString(fmt.Sprintf("; outliers: %d above |z|>%.1f (max |z|≈%.2f)", c.OutliersCount, c.OutlierThreshold, c.OutliersMaxAbsZ))
			}
		case "categorical":
			if len(c.TopValues) > 0 {
				b.WriteString(": top ")
				for i, kv := range c.TopValues {
					if i > 0 {
						b.WriteString(", ")
					}
					b.WriteString(fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count))
				}
				if c.Unique > len(c.TopValues) {
					b.WriteString(fmt.Sprintf("; unique=%d", c.Unique))
				}
			}
		}
		b.WriteString("\n")
	}

	if l := r.Labels; l != nil {
		b.WriteString("\n[LABELS]\n")
		b.WriteString(fmt.Sprintf("- near-limit: %d of %d (%.1f%%)\n", l.NearLimit, l.Total, l.Ratio()*100))
		if len(l.SetSizes) > 0 {
			sizes := make([]int, 0, len(l.SetSizes))
			for k := range l.SetSizes {
				sizes = append(sizes, k)
			}
			sort.Ints(sizes)
			b.WriteString("- parameters pushed per sample:")
			for _, k := range sizes {
				b.WriteString(fmt.Sprintf(" %d→%d", k, l.SetSizes[k]))
			}
			b.WriteString("\n")
		}
		for _, kv := range l.ParamCounts {
			b.WriteString(fmt.Sprintf("  • %s: %d\n", safeVal(kv.Value), kv.Count))
		}
	}

	if r.Corr != nil && len(r.Corr.Columns) >= 2 {
		b.WriteString(fmt.Sprintf("\n[CORRELATIONS] (n=%d)\n", r.Corr.Rows))
		pairs := r.Corr.Pairs()
		sort.Slice(pairs, func(i, j int) bool {
			ai := math.Abs(pairs[i].R)
			aj := math.Abs(pairs[j].R)
			if ai == aj {
				return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
			}
			return ai > aj
		})
		maxp := min(10, len(pairs))
		for i := 0; i < maxp; i++ {
			b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f (target %.2f)\n", pairs[i].A, pairs[i].B, pairs[i].R, pairs[i].Target))
		}

		b.WriteString(fmt.Sprintf("\n[CORRELATION DEVIATION] max |r-target|=%.3f\n", r.Corr.MaxDeviation()))
		sort.Slice(pairs, func(i, j int) bool {
			di := math.Abs(pairs[i].Deviation())
			dj := math.Abs(pairs[j].Deviation())
			if di == dj {
				return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
			}
			return di > dj
		})
		maxp = min(5, len(pairs))
		for i := 0; i < maxp; i++ {
			b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f, target %.2f, Δ=%+.3f\n", pairs[i].A, pairs[i].B, pairs[i].R, pairs[i].Target, pairs[i].Deviation()))
		}
	}

	if len(r.Samples) > 0 {
		b.WriteString("\n[HEAD AND SAMPLE ROWS]\n")
		b.WriteString("| ")
		for i, c := range r.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(safeName(c.Name))
		}
		b.WriteString(" |\n")
		b.WriteString("| ")
		for i := range r.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString("---")
		}
		b.WriteString(" |\n")
		for _, row := range r.Samples {
			b.WriteString("| ")
			for i := range r.Cols {
				if i > 0 {
					b.WriteString(" | ")
				}
				val := ""
				if i < len(row) {
					val = row[i]
				}
				if len(val) > 80 {
					val = val[:77] + "..."
				}
				b.WriteString(safeVal(val))
			}
			b.WriteString(" |\n")
		}
	}
	if len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range r.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}
func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }

var unitPatterns = []struct {
	re   *regexp.Regexp
	pick int
}{
	{regexp.MustCompile(`^(.*)\s*\(([^)]+)\)\s*$`), 2},  // e.g., COD (mg/l O2)
	{regexp.MustCompile(`^(.*)\s*\[([^\]]+)\]\s*$`), 2}, // e.g., Mass [mg/L]
}

func splitUnits(name string) (clean string, unit string) {
	s := strings.TrimSpace(name)
	for _, p := range unitPatterns {
		if m := p.re.FindStringSubmatch(s); len(m) >= 3 {
			base := strings.TrimSpace(m[1])
			u := strings.TrimSpace(m[p.pick])
			if base != "" && u != "" {
				return base, u
			}
		}
	}
	return s, ""
}
