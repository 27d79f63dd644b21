package export

import (
	"fmt"

	"github.com/KaramelBytes/nearlimit-cli/internal/catalog"
	"github.com/KaramelBytes/nearlimit-cli/internal/generator"
	"github.com/KaramelBytes/nearlimit-cli/internal/utils"
	"github.com/xuri/excelize/v2"
)

// HighlightColor fills cells at or above their near-limit threshold.
const HighlightColor = "FFFF00"

// SaveXLSX writes the dataset to the Data sheet of a new workbook. With
// highlight, each parameter column gets a conditional format filling cells
// >= the parameter's near-limit threshold.
func (e *Exporter) SaveXLSX(path string, ds *generator.Dataset, highlight bool) error {
	f, err := newWorkbook(e.Header(ds.Kind))
	if err != nil {
		return &IOError{Path: path, Op: "create workbook", Err: err}
	}
	defer f.Close()

	for i, s := range ds.Samples {
		row := make([]interface{}, 0, catalog.Count+2)
		for _, v := range s.Values {
			row = append(row, v)
		}
		row = append(row, label(s))
		if ds.Kind == generator.Realistic {
			row = append(row, s.ParamNames(e.cat))
		}
		if err := setRow(f, i+2, row); err != nil {
			return &IOError{Path: path, Op: "write row", Err: err}
		}
	}
	if highlight && len(ds.Samples) > 0 {
		if err := e.highlight(f, len(ds.Samples)); err != nil {
			return &IOError{Path: path, Op: "conditional format", Err: err}
		}
	}
	return save(f, path)
}

// SaveRaw writes the raw draws as CSV or XLSX, chosen by the extension.
func (e *Exporter) SaveRaw(path string, raw []catalog.Vector) error {
	if !isXLSX(path) {
		return e.saveRawCSV(path, raw)
	}
	f, err := newWorkbook(e.cat.Names())
	if err != nil {
		return &IOError{Path: path, Op: "create workbook", Err: err}
	}
	defer f.Close()
	for i, r := range raw {
		row := make([]interface{}, catalog.Count)
		for j, v := range r {
			row[j] = v
		}
		if err := setRow(f, i+2, row); err != nil {
			return &IOError{Path: path, Op: "write row", Err: err}
		}
	}
	return save(f, path)
}

func (e *Exporter) highlight(f *excelize.File, n int) error {
	style, err := f.NewConditionalStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{HighlightColor}, Pattern: 1},
	})
	if err != nil {
		return err
	}
	for _, p := range catalog.Params() {
		col, err := excelize.ColumnNumberToName(int(p) + 1)
		if err != nil {
			return err
		}
		ref := fmt.Sprintf("%s2:%s%d", col, col, n+1)
		threshold := e.cat.NearThreshold(p, e.coef)
		if err := f.SetConditionalFormat(SheetName, ref, []excelize.ConditionalFormatOptions{{
			Type:     "cell",
			Criteria: ">=",
			Format:   style,
			Value:    FormatValue(threshold),
		}}); err != nil {
			return fmt.Errorf("%s: %w", e.cat.Spec(p).Name, err)
		}
	}
	return nil
}

func newWorkbook(header []string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		_ = f.Close()
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := f.SetCellStyle(SheetName, "A1", last, bold); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	}); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

func setRow(f *excelize.File, rowNum int, row []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	return f.SetSheetRow(SheetName, cell, &row)
}

func save(f *excelize.File, path string) error {
	buf, err := f.WriteToBuffer()
	if err != nil {
		return &IOError{Path: path, Op: "encode xlsx", Err: err}
	}
	if err := utils.SafeWriteFile(path, buf.Bytes()); err != nil {
		return &IOError{Path: path, Op: "write", Err: err}
	}
	return nil
}
