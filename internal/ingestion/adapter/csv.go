package adapter

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVAdapter reads delimited text files: utf-8-sig BOM stripping, a
// configurable delimiter, optional header row, leading skip_rows, and
// RFC4180 quoting by default.
type CSVAdapter struct{}

// csvOptions resolves the supported options, all optional:
//   - delimiter: single-character field separator, default ","
//   - has_header: whether row 1 names the columns, default true
//   - skip_rows: rows to discard before the header/data, default 0
//
// A quote_all option is not read: Go's encoding/csv always honors quotes.
type csvOptions struct {
	delimiter rune
	hasHeader bool
	skipRows  int
}

func resolveCSVOptions(opts map[string]any) csvOptions {
	delim := optString(opts, "delimiter", ",")
	r := ','
	if delim != "" {
		r = []rune(delim)[0]
	}
	return csvOptions{
		delimiter: r,
		hasHeader: optBool(opts, "has_header", true),
		skipRows:  optInt(opts, "skip_rows", 0),
	}
}

func openCSV(path string, o csvOptions) (*csv.Reader, string, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", nil, fmt.Errorf("ingestion: open %s: %w", path, err)
	}
	br := bufio.NewReader(f)
	encoding := "utf-8"
	if head, err := br.Peek(3); err == nil && len(head) == 3 && head[0] == utf8BOM[0] && head[1] == utf8BOM[1] && head[2] == utf8BOM[2] {
		_, _ = br.Discard(3)
		encoding = "utf-8-sig"
	}

	for i := 0; i < o.skipRows; i++ {
		if _, err := br.ReadString('\n'); err != nil {
			break
		}
	}

	r := csv.NewReader(br)
	r.Comma = o.delimiter
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	return r, encoding, f.Close, nil
}

func (a *CSVAdapter) readAll(path string, opts map[string]any) ([]string, [][]string, string, error) {
	o := resolveCSVOptions(opts)
	r, encoding, closeFn, err := openCSV(path, o)
	if err != nil {
		return nil, nil, "", err
	}
	defer closeFn()

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, "", fmt.Errorf("ingestion: parse csv %s: %w", path, err)
	}

	var header []string
	data := records
	if o.hasHeader && len(records) > 0 {
		header = records[0]
		data = records[1:]
	} else if len(records) > 0 {
		header = make([]string, len(records[0]))
		for i := range header {
			header[i] = fmt.Sprintf("column_%d", i+1)
		}
	}
	return header, data, encoding, nil
}

func (a *CSVAdapter) Read(path string, opts map[string]any) ([]Row, error) {
	header, data, _, err := a.readAll(path, opts)
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(data))
	for _, record := range data {
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

func (a *CSVAdapter) Probe(path string, opts map[string]any) (Probe, error) {
	header, data, encoding, err := a.readAll(path, opts)
	if err != nil {
		return Probe{}, err
	}
	o := resolveCSVOptions(opts)

	rows := make([]Row, 0, len(data))
	for _, record := range data {
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

	return Probe{
		RowCount:          len(data),
		Columns:           header,
		SampleRows:        sample(rows),
		Encoding:          encoding,
		DetectedDelimiter: string(o.delimiter),
	}, nil
}

var _ Adapter = (*CSVAdapter)(nil)
