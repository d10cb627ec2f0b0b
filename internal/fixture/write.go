package fixture

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "labfit/internal/errors"
)

// Write stores a generated fixture at path. Paths ending in .xlsx get a
// workbook, anything else CSV. An existing file is only replaced when
// force is set.
func Write(path, name string, seed int64, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return apperrors.NewOutputWriteError(path, fs.ErrExist).
				WithContext("hint", "pass -force to overwrite")
		} else if !errors.Is(err, fs.ErrNotExist) {
			return apperrors.NewOutputWriteError(path, err)
		}
	}

	var data []byte
	var err error
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		data, err = GenerateXLSX(name, seed, "Sheet1")
	} else {
		data, err = Generate(name, seed)
	}
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperrors.NewOutputWriteError(path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return apperrors.NewOutputWriteError(path, err)
	}
	return nil
}

// GenerateXLSX returns the fixture as a single sheet workbook. Numeric
// cells are stored as numbers and empty cells are left blank.
func GenerateXLSX(name string, seed int64, sheet string) ([]byte, error) {
	rows, err := generate(name, seed)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			return nil, fmt.Errorf("failed to name sheet: %w", err)
		}
	}

	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, text := range row {
			cells[j] = xlsxValue(text, i == 0)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func xlsxValue(text string, header bool) interface{} {
	if header {
		return text
	}
	if text == "" {
		return nil
	}
	if v, err := strconv.ParseFloat(text, 64); err == nil {
		return v
	}
	return text
}
