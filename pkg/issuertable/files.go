package issuertable

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/jakechorley/issuer-allocation/pkg/core/model"
)

// LoadFile reads issuers from a .xlsx or .csv file.
// For workbooks, sheet selects the tab; empty means the first sheet.
func LoadFile(path, sheet string, cols Columns) ([]model.IssuerRecord, error) {
	raw, err := readFileRows(path, sheet)
	if err != nil {
		return nil, err
	}
	return ParseRows(raw, cols)
}

// LoadAssignmentsFile reads a previously exported allocation table
func LoadAssignmentsFile(path, sheet string, cols Columns) ([]model.Assignment, error) {
	raw, err := readFileRows(path, sheet)
	if err != nil {
		return nil, err
	}
	return ParseAssignments(raw, cols)
}

func readFileRows(path, sheet string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return readXLSXRows(f, sheet)
	case ".csv":
		return readCSVRows(f)
	default:
		return nil, fmt.Errorf("unsupported input file type %q (expected .xlsx or .csv)", filepath.Ext(path))
	}
}

// ReadCSV parses a comma-separated issuer table with a header row
func ReadCSV(r io.Reader, cols Columns) ([]model.IssuerRecord, error) {
	raw, err := readCSVRows(r)
	if err != nil {
		return nil, err
	}
	return ParseRows(raw, cols)
}

func readCSVRows(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	raw, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}

	// Strip a UTF-8 byte order mark left by spreadsheet exports
	if len(raw) > 0 && len(raw[0]) > 0 {
		raw[0][0] = strings.TrimPrefix(raw[0][0], "\ufeff")
	}

	return raw, nil
}

// ReadXLSX parses an issuer table from an Excel workbook
func ReadXLSX(r io.Reader, sheet string, cols Columns) ([]model.IssuerRecord, error) {
	raw, err := readXLSXRows(r, sheet)
	if err != nil {
		return nil, err
	}
	return ParseRows(raw, cols)
}

func readXLSXRows(r io.Reader, sheet string) ([][]string, error) {
	workbook, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer workbook.Close()

	if sheet == "" {
		sheets := workbook.GetSheetList()
		if len(sheets) == 0 {
			return nil, ErrEmptyTable
		}
		sheet = sheets[0]
	}

	// Stored values, not the number-formatted display text
	raw, err := workbook.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}

	return raw, nil
}

// ExportFile writes the allocation table to path, choosing the format from the extension
func ExportFile(path string, assignments []model.Assignment, cols Columns) error {
	write := func(w io.Writer) error { return WriteCSV(w, assignments, cols) }
	if strings.ToLower(filepath.Ext(path)) == ".xlsx" {
		write = func(w io.Writer) error { return WriteXLSX(w, assignments, cols) }
	}
	return writeFile(path, write)
}

// writeFile creates path and fills it with write. A failed write leaves no file behind.
func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	if err := write(f); err != nil {
		f.Close()
		_ = os.Remove(path)
		return err
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("failed to close output file: %w", err)
	}
	return nil
}

// WriteCSV writes the allocation table as UTF-8 CSV with a header row
func WriteCSV(w io.Writer, assignments []model.Assignment, cols Columns) error {
	writer := csv.NewWriter(w)
	if err := writer.WriteAll(AllocationRows(assignments, cols)); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

// allocationSheetName is the tab name used for workbook exports
const allocationSheetName = "Allocation"

// WriteXLSX writes the allocation table as a single-sheet workbook.
// Point values are written as numbers so they stay summable in Excel.
func WriteXLSX(w io.Writer, assignments []model.Assignment, cols Columns) error {
	workbook := excelize.NewFile()
	defer workbook.Close()

	defaultSheet := workbook.GetSheetName(0)
	if err := workbook.SetSheetName(defaultSheet, allocationSheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := []interface{}{cols.ID, cols.Name, cols.Points, cols.Country, cols.Member}
	if err := workbook.SetSheetRow(allocationSheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, a := range assignments {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to address row %d: %w", i+2, err)
		}
		row := []interface{}{a.Issuer.ID, a.Issuer.Name, a.Issuer.Points, a.Issuer.CountryCode, a.Member}
		if err := workbook.SetSheetRow(allocationSheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := workbook.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
