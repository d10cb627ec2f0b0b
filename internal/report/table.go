// Package report renders pipeline results into their on-disk artifacts:
// the augmented table, the text summary and the chart. Every renderer works
// in memory; Commit is the only function that touches the filesystem.
package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"strconv"

	"github.com/xuri/excelize/v2"

	"labfit/internal/measurement"
)

// utf8BOM helps Excel recognise UTF-8 headers such as t(°C) and R_t(Ω)
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// TableCSV renders the augmented table. Input columns come first, in input
// order and with their original cell text, followed by derived columns in
// derivation order at their presentation precision.
func TableCSV(table *measurement.Table) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)

	writer := csv.NewWriter(&buf)
	if err := writer.Write(table.Names()); err != nil {
		return nil, fmt.Errorf("failed to write headers: %w", err)
	}

	columns := table.Columns()
	record := make([]string, len(columns))
	for row := 0; row < table.Len(); row++ {
		for i, c := range columns {
			record[i] = c.Cell(row)
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write record %d: %w", row, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// TableXLSX renders the same grid as TableCSV into a workbook. Numeric
// cells are stored as numbers so the sheet can be charted directly.
func TableXLSX(table *measurement.Table, sheet string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return nil, err
	}

	header := make([]interface{}, 0, len(table.Names()))
	for _, name := range table.Names() {
		header = append(header, name)
	}
	if err := sw.SetRow("A1", header); err != nil {
		return nil, err
	}

	columns := table.Columns()
	for row := 0; row < table.Len(); row++ {
		cells := make([]interface{}, len(columns))
		for i, c := range columns {
			cells[i] = xlsxCell(c, row)
		}
		cell, _ := excelize.CoordinatesToCellName(1, row+2)
		if err := sw.SetRow(cell, cells); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", row+1, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func xlsxCell(c *measurement.Column, row int) interface{} {
	if !c.Numeric {
		return c.Raw[row]
	}
	if math.IsNaN(c.Values[row]) {
		return nil
	}
	if !c.Derived {
		return c.Values[row]
	}
	text := c.Cell(row)
	// percentages and other decorated values stay text
	if v, err := strconv.ParseFloat(text, 64); err == nil {
		return v
	}
	return text
}
