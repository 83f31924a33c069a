// Package workbook reads back spreadsheet exports to summarise what was downloaded.
package workbook

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// Summary describes the first sheet of an exported workbook.
type Summary struct {
	Sheet   string   `json:"sheet"`
	Columns []string `json:"columns"`
	Rows    int      `json:"rows"` // data rows, header excluded
}

// Inspect parses an xlsx stream and summarises its first sheet.
func Inspect(r io.Reader) (*Summary, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheets[0], err)
	}

	s := &Summary{Sheet: sheets[0]}
	if len(rows) > 0 {
		s.Columns = rows[0]
		s.Rows = len(rows) - 1
	}
	return s, nil
}
