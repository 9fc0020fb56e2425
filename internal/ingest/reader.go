package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// DefaultMaxUploadBytes caps uploads at 10 MB so chunked processing
// stays bounded.
const DefaultMaxUploadBytes = 10 << 20

// ReadRows extracts the header row and data rows from an uploaded
// spreadsheet. The format is chosen by file extension: .xlsx/.xls go
// through excelize (first sheet only), .csv through encoding/csv.
// A file that cannot be parsed, exceeds maxBytes, or has zero data
// rows yields an InvalidFileError.
func ReadRows(filename string, r io.Reader, maxBytes int64) (header []string, rows [][]string, err error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}

	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, nil, &InvalidFileError{Reason: fmt.Sprintf("read failed: %v", err)}
	}
	if int64(len(data)) > maxBytes {
		return nil, nil, &InvalidFileError{Reason: fmt.Sprintf("file exceeds %d byte limit", maxBytes)}
	}

	var all [][]string
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xls":
		all, err = readExcel(data)
	case ".csv":
		all, err = readCSV(data)
	default:
		return nil, nil, &InvalidFileError{Reason: fmt.Sprintf("unsupported file type %q", filepath.Ext(filename))}
	}
	if err != nil {
		return nil, nil, err
	}

	if len(all) <= 1 {
		return nil, nil, &InvalidFileError{Reason: "file contains no data rows"}
	}
	return all[0], all[1:], nil
}

func readExcel(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &InvalidFileError{Reason: fmt.Sprintf("not a readable Excel workbook: %v", err)}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &InvalidFileError{Reason: "workbook contains no sheets"}
	}

	// First sheet only; the exports never carry data elsewhere.
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, &InvalidFileError{Reason: fmt.Sprintf("failed to read sheet %q: %v", sheets[0], err)}
	}
	return rows, nil
}

func readCSV(data []byte) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, &InvalidFileError{Reason: fmt.Sprintf("not parseable as CSV: %v", err)}
	}
	return rows, nil
}
