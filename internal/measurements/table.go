package measurements

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ReadOptions controls how a measurement table is loaded.
type ReadOptions struct {
	// Sheet selects the XLSX sheet; empty means the first sheet.
	Sheet string
	// Delimiter for CSV. If 0, chosen from the file extension.
	Delimiter rune
}

// Table is a header plus string rows, as read from CSV or XLSX.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// Column returns the index of the named column (case-insensitive).
func (t *Table) Column(name string) (int, bool) {
	want := strings.TrimSpace(name)
	for i, h := range t.Header {
		if strings.EqualFold(strings.TrimSpace(h), want) {
			return i, true
		}
	}
	return -1, false
}

// Cell returns row[i] or "" when the row is short.
func Cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// ReadTable loads a .csv/.tsv or .xlsx file.
func ReadTable(path string, opt ReadOptions) (*Table, error) {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".xlsx"), strings.HasSuffix(lower, ".xlsm"):
		return readXLSX(path, opt.Sheet)
	case strings.HasSuffix(lower, ".csv"), strings.HasSuffix(lower, ".tsv"), strings.HasSuffix(lower, ".txt"):
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open csv: %w", err)
		}
		defer f.Close()
		delim := opt.Delimiter
		if delim == 0 {
			delim = sniffDelimiter(path)
		}
		t, err := ReadCSV(f, delim)
		if err != nil {
			return nil, err
		}
		t.Name = filepath.Base(path)
		return t, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Base(path))
	}
}

// ReadCSV reads a delimited table from r. The first record is the header.
func ReadCSV(r io.Reader, delim rune) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comma = delim
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &Table{}, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	t := &Table{Header: append([]string(nil), header...)}
	// strip a UTF-8 BOM left by spreadsheet exports
	if len(t.Header) > 0 {
		t.Header[0] = strings.TrimPrefix(t.Header[0], "\ufeff")
	}
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", len(t.Rows)+2, err)
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

func readXLSX(path, sheetName string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook '%s' has no sheets", filepath.Base(path))
	}
	target := sheets[0]
	if sheetName != "" {
		target = ""
		for _, s := range sheets {
			if strings.EqualFold(s, sheetName) {
				target = s
				break
			}
		}
		if target == "" {
			return nil, fmt.Errorf("sheet '%s' not found in workbook '%s'.\nAvailable sheets: %s",
				sheetName, filepath.Base(path), strings.Join(sheets, ", "))
		}
	}
	rows, err := f.GetRows(target, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", target, err)
	}
	t := &Table{Name: fmt.Sprintf("%s (sheet: %s)", filepath.Base(path), target)}
	if len(rows) == 0 {
		return t, nil
	}
	t.Header = rows[0]
	t.Rows = rows[1:]
	return t, nil
}

// WriteCSV writes the table with a comma delimiter.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	for _, row := range t.Rows {
		out := row
		if len(out) < len(t.Header) {
			out = make([]string, len(t.Header))
			copy(out, row)
		}
		if err := cw.Write(out); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func sniffDelimiter(path string) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	return ','
}

// ParseNumber parses a measurement value. Comma or dot decimal separators are
// accepted; the separator appearing last is taken as the decimal mark.
func ParseNumber(s string) (float64, bool) {
	raw := strings.TrimSpace(s)
	raw = strings.ReplaceAll(raw, "\u00A0", "")
	raw = strings.ReplaceAll(raw, " ", "")
	if raw == "" {
		return 0, false
	}
	cpos := strings.LastIndex(raw, ",")
	dpos := strings.LastIndex(raw, ".")
	dec := '.'
	if cpos >= 0 && cpos > dpos {
		dec = ','
	}
	if dec == ',' {
		raw = strings.ReplaceAll(raw, ".", "")
		raw = strings.ReplaceAll(raw, ",", ".")
	} else {
		raw = strings.ReplaceAll(raw, ",", "")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
