// Package excel reads loan books from CSV or xlsx files and writes result
// workbooks and WOE charts with excelize.
package excel

import (
	"fmt"
	"math"
	"time"

	"scorecard/internal"
	"scorecard/internal/errors"

	"github.com/xuri/excelize/v2"
)

// ResultTable is a rectangular table of cells: string, bool, int or float64
type ResultTable struct {
	Columns []string
	Rows    [][]interface{}
}

// NewResultTable creates an empty table with the given header
func NewResultTable(columns ...string) *ResultTable {
	return &ResultTable{Columns: columns}
}

// Append adds a row
func (t *ResultTable) Append(cells ...interface{}) {
	t.Rows = append(t.Rows, cells)
}

// Validate checks that the table has a header and that every row matches it
func (t *ResultTable) Validate() error {
	if len(t.Columns) == 0 {
		return fmt.Errorf("table has no columns")
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("row %d has %d cells, header has %d", i+1, len(row), len(t.Columns))
		}
		for j, cell := range row {
			switch cell.(type) {
			case nil, string, bool, int, int64, float64:
			default:
				return fmt.Errorf("row %d column %q holds unsupported %T", i+1, t.Columns[j], cell)
			}
		}
	}
	return nil
}

// Sheet is one named sheet of a workbook
type Sheet struct {
	Name  string
	Table *ResultTable
}

// Workbook is an ordered list of sheets
type Workbook []Sheet

// Validate rejects empty, duplicate and malformed sheets, naming the sheet
func (w Workbook) Validate() error {
	if len(w) == 0 {
		return errors.InvalidInput("workbook has no sheets")
	}
	seen := make(map[string]bool, len(w))
	for _, s := range w {
		if s.Name == "" {
			return errors.ExportError(s.Name, fmt.Errorf("empty sheet name"))
		}
		if seen[s.Name] {
			return errors.ExportError(s.Name, fmt.Errorf("duplicate sheet name"))
		}
		seen[s.Name] = true
		if s.Table == nil {
			return errors.ExportError(s.Name, fmt.Errorf("nil table"))
		}
		if err := s.Table.Validate(); err != nil {
			return errors.ExportError(s.Name, err)
		}
	}
	return nil
}

// WorkbookWriter writes workbooks to xlsx files
type WorkbookWriter struct {
	logger *internal.Logger
}

// NewWorkbookWriter creates a writer
func NewWorkbookWriter(logger *internal.Logger) *WorkbookWriter {
	if logger == nil {
		logger = internal.NewDiscardLogger()
	}
	return &WorkbookWriter{logger: logger.WithComponent("WorkbookWriter")}
}

// Write validates the whole workbook, then writes one sheet per entry in order
func (w *WorkbookWriter) Write(path string, wb Workbook) error {
	if err := wb.Validate(); err != nil {
		return err
	}
	start := time.Now()

	f := excelize.NewFile()
	defer f.Close()
	for i, s := range wb {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), s.Name); err != nil {
				return errors.ExportError(s.Name, err)
			}
		} else if _, err := f.NewSheet(s.Name); err != nil {
			return errors.ExportError(s.Name, err)
		}
		if err := writeTable(f, s.Name, s.Table); err != nil {
			return errors.ExportError(s.Name, err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return errors.Wrapf(err, "failed to save %s", path)
	}

	w.logger.Info("wrote %d sheets to %s in %.2fms", len(wb), path, float64(time.Since(start).Nanoseconds())/1e6)
	return nil
}

// writeTable writes the header in bold followed by the rows, starting at A1
func writeTable(f *excelize.File, sheet string, t *ResultTable) error {
	header := make([]interface{}, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
		return err
	}

	for i, row := range t.Rows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = cellValue(v)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return err
		}
	}
	return nil
}

// cellValue spells out floats a spreadsheet cannot store as numbers
func cellValue(v interface{}) interface{} {
	f, ok := v.(float64)
	if !ok {
		return v
	}
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	return f
}
