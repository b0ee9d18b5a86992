package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"territory-planner/internal/models"
)

// Format of an input table
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// FormatOf guesses the table format from a file name
func FormatOf(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".csv", ".txt":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported file type %q", filepath.Ext(name))
	}
}

// ReadCSV reads a semicolon separated table. Quoted fields may span lines.
func ReadCSV(r io.Reader) ([][]string, error) {
	br := bufio.NewReader(r)
	// drop a UTF-8 byte order mark
	if b, err := br.Peek(3); err == nil && bytes.Equal(b, []byte{0xEF, 0xBB, 0xBF}) {
		_, _ = br.Discard(3)
	}

	cr := csv.NewReader(br)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return rows, nil
}

// ReadWorkbook returns the rows of sheet, or of the first sheet when sheet
// is empty.
func ReadWorkbook(r io.Reader, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

// ReadTable reads a table in the given format
func ReadTable(r io.Reader, format Format) ([][]string, error) {
	switch format {
	case FormatXLSX:
		return ReadWorkbook(r, "")
	case FormatCSV:
		return ReadCSV(r)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// ReadFile reads a table from disk, picking the format from the extension
func ReadFile(path string) ([][]string, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return ReadTable(f, format)
}

// LoadFiles reads and merges a customer file and a representative file
func LoadFiles(customersPath, repsPath string) (*models.Dataset, *Report, error) {
	customerTable, err := ReadFile(customersPath)
	if err != nil {
		return nil, nil, err
	}
	repTable, err := ReadFile(repsPath)
	if err != nil {
		return nil, nil, err
	}
	return Parse(customerTable, repTable)
}
