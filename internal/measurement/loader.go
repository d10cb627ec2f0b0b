package measurement

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "labfit/internal/errors"
)

const utf8BOM = "\ufeff"

// Load reads a measurement table from a .csv or .xlsx file and checks it
// against schema. The load is all or nothing: any missing column or
// malformed cell rejects the whole file.
func Load(ctx context.Context, path string, schema Schema) (*Table, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, apperrors.NewInputNotFoundError(path, err)
	}
	if info.IsDir() {
		return nil, apperrors.NewInputNotFoundError(path, fmt.Errorf("is a directory"))
	}

	var table *Table
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		table, err = loadXLSX(path, schema)
	default:
		table, err = loadCSV(path, schema)
	}
	if err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "Measurement table loaded",
		slog.String("path", path),
		slog.Int("rows", table.Len()),
		slog.Int("columns", len(table.Columns())))
	return table, nil
}

func loadCSV(path string, schema Schema) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewInputNotFoundError(path, err)
	}
	defer file.Close()

	return ReadCSV(file, schema)
}

// ReadCSV parses comma separated measurements. The first record is the
// header; every following record must have exactly as many fields.
func ReadCSV(r io.Reader, schema Schema) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 0

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, apperrors.NewSchemaError("input has no header row", nil)
	}
	if err != nil {
		return nil, apperrors.NewSchemaError("cannot read header row", err)
	}

	var records [][]string
	var lines []int
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				return nil, apperrors.NewSchemaError("cannot read input", err)
			}
			if errors.Is(parseErr.Err, csv.ErrFieldCount) {
				return nil, apperrors.NewMalformedRowError(parseErr.StartLine, "",
					fmt.Sprintf("expected %d fields, got %d", len(header), len(record)))
			}
			return nil, apperrors.NewMalformedRowError(parseErr.StartLine, "", parseErr.Err.Error())
		}
		// blank lines are skipped by the reader, so count from the record itself
		line, _ := reader.FieldPos(0)
		records = append(records, record)
		lines = append(lines, line)
	}

	return buildTable(header, records, lines, schema)
}

func loadXLSX(path string, schema Schema) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.NewInputNotFoundError(path, err)
	}
	defer f.Close()

	sheet := schema.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, apperrors.NewSchemaError("workbook has no sheets", nil)
		}
		sheet = sheets[0]
	}

	// raw values: the display text of a number-formatted cell is rounded
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, apperrors.NewSchemaError(fmt.Sprintf("cannot read sheet %q", sheet), err)
	}
	if len(rows) == 0 {
		return nil, apperrors.NewSchemaError("input has no header row", nil)
	}

	header := rows[0]
	records := make([][]string, 0, len(rows)-1)
	lines := make([]int, 0, len(rows)-1)
	for i, row := range rows[1:] {
		line := i + 2
		// GetRows drops trailing empty cells
		if len(row) > len(header) {
			return nil, apperrors.NewMalformedRowError(line, "",
				fmt.Sprintf("expected %d fields, got %d", len(header), len(row)))
		}
		if isBlank(row) {
			continue
		}
		padded := make([]string, len(header))
		copy(padded, row)
		records = append(records, padded)
		lines = append(lines, line)
	}

	return buildTable(header, records, lines, schema)
}

// buildTable checks the header against schema and parses every declared
// numeric cell. lines holds the source line of each record for diagnostics.
func buildTable(header []string, records [][]string, lines []int, schema Schema) (*Table, error) {
	header = normalizeHeader(header)

	seen := make(map[string]bool, len(header))
	for _, name := range header {
		if seen[name] {
			return nil, apperrors.NewSchemaError(fmt.Sprintf("duplicate column %q", name), nil)
		}
		seen[name] = true
	}

	for _, spec := range schema.Columns {
		if spec.Prefix != "" {
			if !hasPrefixed(header, spec.Prefix) {
				return nil, apperrors.NewMissingColumnError(spec.Prefix+"*").
					WithContext("expected", schema.Names())
			}
			continue
		}
		if !seen[spec.Name] {
			return nil, apperrors.NewMissingColumnError(spec.Name).
				WithContext("expected", schema.Names())
		}
	}

	table := NewTable(len(records))
	for col, name := range header {
		raw := make([]string, len(records))
		for row, record := range records {
			raw[row] = record[col]
		}

		spec, declared := schema.match(name)
		if !declared {
			if err := table.AddInput(name, raw, nil); err != nil {
				return nil, err
			}
			continue
		}

		values := make([]float64, len(raw))
		for row, cell := range raw {
			v, err := parseCell(cell, spec.Sparse)
			if err != nil {
				return nil, apperrors.NewMalformedRowError(lines[row], name, err.Error())
			}
			values[row] = v
		}
		if err := table.AddInput(name, raw, values); err != nil {
			return nil, err
		}
	}

	return table, nil
}

// parseCell converts one declared numeric cell. Nothing is coerced:
// NaN and infinities are rejected, and empty cells only pass in sparse
// columns where they become NaN.
func parseCell(cell string, sparse bool) (float64, error) {
	text := strings.TrimSpace(cell)
	if text == "" {
		if sparse {
			return math.NaN(), nil
		}
		return 0, fmt.Errorf("empty cell")
	}

	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", text)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not finite", text)
	}
	return v, nil
}

func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		out[i] = strings.TrimSpace(h)
	}
	return out
}

func hasPrefixed(header []string, prefix string) bool {
	for _, h := range header {
		if strings.HasPrefix(h, prefix) {
			return true
		}
	}
	return false
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
