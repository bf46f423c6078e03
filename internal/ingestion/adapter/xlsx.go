package adapter

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// headerKeywords scores candidate header rows during auto-detection: a
// real header row reads as mostly short, label-like cells drawn from this
// vocabulary rather than data values.
var headerKeywords = []string{
	"id", "date", "amount", "code", "name", "type", "currency",
	"description", "reference", "account", "debit", "credit", "status",
	"qty", "quantity", "price", "total", "customer", "vendor", "invoice",
}

const maxHeaderScanRows = 10

// XLSXAdapter reads spreadsheet sources: a sheet selected by name or
// index, optional leading skip_rows, and keyword-scored auto-detection of
// which remaining row is the header when header_row isn't pinned to a
// specific row.
type XLSXAdapter struct{}

type xlsxOptions struct {
	sheetName string
	sheetIdx  int
	skipRows  int
	headerRow int // explicit 0-based row index; -1 means auto-detect
}

func resolveXLSXOptions(opts map[string]any) xlsxOptions {
	return xlsxOptions{
		sheetName: optString(opts, "sheet", ""),
		sheetIdx:  optInt(opts, "sheet_index", 0),
		skipRows:  optInt(opts, "skip_rows", 0),
		headerRow: optInt(opts, "header_row", -1),
	}
}

func selectSheet(f *excelize.File, o xlsxOptions) (string, error) {
	if o.sheetName != "" {
		return o.sheetName, nil
	}
	names := f.GetSheetList()
	if o.sheetIdx < 0 || o.sheetIdx >= len(names) {
		return "", fmt.Errorf("ingestion: sheet index %d out of range (%d sheets)", o.sheetIdx, len(names))
	}
	return names[o.sheetIdx], nil
}

func scoreHeaderRow(row []string) int {
	score := 0
	for _, cell := range row {
		lower := strings.ToLower(strings.TrimSpace(cell))
		if lower == "" {
			continue
		}
		for _, kw := range headerKeywords {
			if strings.Contains(lower, kw) {
				score++
				break
			}
		}
	}
	return score
}

func detectHeaderRow(rows [][]string, skipRows int) int {
	best, bestScore := skipRows, -1
	limit := skipRows + maxHeaderScanRows
	for i := skipRows; i < len(rows) && i < limit; i++ {
		if s := scoreHeaderRow(rows[i]); s > bestScore {
			bestScore = s
			best = i
		}
	}
	return best
}

func (a *XLSXAdapter) readGrid(path string, opts map[string]any) ([]string, [][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("ingestion: open xlsx %s: %w", path, err)
	}
	defer f.Close()

	o := resolveXLSXOptions(opts)
	sheet, err := selectSheet(f, o)
	if err != nil {
		return nil, nil, err
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("ingestion: read sheet %s: %w", sheet, err)
	}
	if len(rows) <= o.skipRows {
		return nil, nil, nil
	}

	headerIdx := o.headerRow
	if headerIdx < 0 {
		headerIdx = detectHeaderRow(rows, o.skipRows)
	}
	if headerIdx >= len(rows) {
		return nil, nil, fmt.Errorf("ingestion: header row %d beyond sheet bounds (%d rows)", headerIdx, len(rows))
	}

	header := make([]string, len(rows[headerIdx]))
	copy(header, rows[headerIdx])
	var data [][]string
	if headerIdx+1 < len(rows) {
		data = rows[headerIdx+1:]
	}
	return header, data, nil
}

func (a *XLSXAdapter) Read(path string, opts map[string]any) ([]Row, error) {
	header, data, err := a.readGrid(path, opts)
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(data))
	for _, record := range data {
		if isBlankRecord(record) {
			continue
		}
		row := make(Row, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			} else {
				row[col] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func isBlankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func (a *XLSXAdapter) Probe(path string, opts map[string]any) (Probe, error) {
	rows, err := a.Read(path, opts)
	if err != nil {
		return Probe{}, err
	}
	header, _, err := a.readGrid(path, opts)
	if err != nil {
		return Probe{}, err
	}
	return Probe{
		RowCount:   len(rows),
		Columns:    header,
		SampleRows: sample(rows),
		Encoding:   "utf-8",
	}, nil
}

var _ Adapter = (*XLSXAdapter)(nil)
