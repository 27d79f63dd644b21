package measurements

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/nearlimit-cli/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fullTable returns a table with five values for every measured site label.
func fullTable(t *testing.T) *Table {
	t.Helper()
	tbl := &Table{Header: []string{"MPNIDENT", "OMS_PARAMETER", "WAARDE_O"}}
	for site := range DefaultSiteNames {
		for _, v := range []string{"1", "2", "3", "4", "5"} {
			tbl.Rows = append(tbl.Rows, []string{"20025", site, v})
		}
	}
	tbl.Rows = append(tbl.Rows, []string{"20025", "chloride", "42"})
	return tbl
}

func TestExtractPopulationStatistics(t *testing.T) {
	cat := catalog.Default()
	res, err := NewExtractor(cat, nil, nil).Extract(fullTable(t), Options{})
	require.NoError(t, err)

	st := res.Stats.Params[catalog.Ammonium]
	assert.Equal(t, Measured, st.Source)
	assert.Equal(t, 5, st.Count)
	assert.InDelta(t, 3.0, st.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(2), st.Std, 1e-12)
	assert.Equal(t, "Ammonium (mg/l N)", st.Name)

	// all ten site labels are selected, the unknown one is not
	assert.Len(t, res.Selected.Rows, 50)
	assert.Len(t, res.Other.Rows, 1)
	assert.Equal(t, "chloride", res.Other.Rows[0][1])
}

func TestExtractAssumedParameters(t *testing.T) {
	cat := catalog.Default()
	res, err := NewExtractor(cat, nil, nil).Extract(fullTable(t), Options{})
	require.NoError(t, err)

	cod := res.Stats.Params[catalog.COD]
	assert.Equal(t, Assumed, cod.Source)
	assert.Equal(t, 40.0, cod.Mean)
	assert.Equal(t, 40.0, cod.Std)
	assert.Equal(t, 1.0, res.Stats.Params[catalog.Turbidity].Mean)
	assert.Equal(t, 5.0, res.Stats.Params[catalog.TSS].Std)

	assumed := DefaultAssumed()
	assumed[catalog.COD] = AssumedStats{Mean: 40, Std: 12}
	res, err = NewExtractor(cat, assumed, nil).Extract(fullTable(t), Options{})
	require.NoError(t, err)
	assert.Equal(t, 12.0, res.Stats.Params[catalog.COD].Std)
}

func TestExtractRenamesSelectedRows(t *testing.T) {
	cat := catalog.Default()
	res, err := NewExtractor(cat, nil, nil).Extract(fullTable(t), Options{})
	require.NoError(t, err)
	names := map[string]bool{}
	for _, row := range res.Selected.Rows {
		names[row[1]] = true
	}
	for _, n := range cat.Names() {
		assert.True(t, names[n], "missing canonical name %s", n)
	}
}

func TestExtractInsufficientData(t *testing.T) {
	tbl := fullTable(t)
	var kept [][]string
	for _, row := range tbl.Rows {
		if row[1] != "nitraat" {
			kept = append(kept, row)
		}
	}
	tbl.Rows = kept
	_, err := NewExtractor(catalog.Default(), nil, nil).Extract(tbl, Options{})
	var ide *InsufficientDataError
	require.ErrorAs(t, err, &ide)
	assert.Equal(t, "Nitrate (mg/l NO3)", ide.Param)
	assert.Equal(t, "nitraat", ide.Site)
	assert.Equal(t, 0, ide.Rows)
}

func TestExtractNonNumericOnlyIsInsufficient(t *testing.T) {
	tbl := fullTable(t)
	for _, row := range tbl.Rows {
		if row[1] == "Zuurgraad" {
			row[2] = "n.b."
		}
	}
	_, err := NewExtractor(catalog.Default(), nil, nil).Extract(tbl, Options{})
	var ide *InsufficientDataError
	require.ErrorAs(t, err, &ide)
	assert.Equal(t, 5, ide.Rows)
	assert.Contains(t, ide.Error(), "none numeric")
}

func TestExtractMissingColumn(t *testing.T) {
	tbl := &Table{Header: []string{"OMS_PARAMETER", "VALUE"}}
	_, err := NewExtractor(catalog.Default(), nil, nil).Extract(tbl, Options{})
	var mce *MissingColumnError
	require.ErrorAs(t, err, &mce)
	assert.Equal(t, "WAARDE_O", mce.Column)
}

func TestExtractCustomColumns(t *testing.T) {
	tbl := fullTable(t)
	tbl.Header = []string{"site", "param", "value"}
	res, err := NewExtractor(catalog.Default(), nil, nil).Extract(tbl, Options{ParameterColumn: "PARAM", ValueColumn: "value"})
	require.NoError(t, err)
	assert.InDelta(t, 3.0, res.Stats.Params[catalog.PH].Mean, 1e-12)
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"7,2", 7.2, true},
		{"7.2", 7.2, true},
		{"1.234,5", 1234.5, true},
		{"1,234.5", 1234.5, true},
		{" 0,029 ", 0.029, true},
		{"1e-3", 0.001, true},
		{"", 0, false},
		{"NaN", 0, false},
		{"abc", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseNumber(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		if tt.ok {
			assert.InDelta(t, tt.want, got, 1e-12, tt.in)
		}
	}
}

func TestReadTableCSVAndTSV(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "m.csv")
	content := "\ufeffOMS_PARAMETER,WAARDE_O\nammonium,\"0,5\"\nnitraat,7.2\n"
	require.NoError(t, os.WriteFile(csvPath, []byte(content), 0o644))
	tbl, err := ReadTable(csvPath, ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"OMS_PARAMETER", "WAARDE_O"}, tbl.Header)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, "0,5", tbl.Rows[0][1])

	tsvPath := filepath.Join(dir, "m.tsv")
	require.NoError(t, os.WriteFile(tsvPath, []byte("OMS_PARAMETER\tWAARDE_O\nfosfaat\t0,04\n"), 0o644))
	tbl, err = ReadTable(tsvPath, ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"fosfaat", "0,04"}}, tbl.Rows)

	_, err = ReadTable(filepath.Join(dir, "m.json"), ReadOptions{})
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestTableWriteCSVPadsShortRows(t *testing.T) {
	tbl := &Table{Header: []string{"a", "b", "c"}, Rows: [][]string{{"1"}, {"1", "2", "3"}}}
	var sb strings.Builder
	require.NoError(t, tbl.WriteCSV(&sb))
	assert.Equal(t, "a,b,c\n1,,\n1,2,3\n", sb.String())
}
