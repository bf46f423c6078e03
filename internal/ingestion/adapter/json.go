package adapter

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

// JSONAdapter reads either a single JSON array of objects or newline-
// delimited JSON ("jsonl"). A dotted json_path locates a nested array
// inside an envelope object, keys are lowercased on read, and
// required_keys drops rows missing any of the named fields before they
// ever reach the mapping engine.
type JSONAdapter struct{}

type jsonOptions struct {
	format       string // "array" (default) | "jsonl"
	jsonPath     string
	requiredKeys []string
}

func resolveJSONOptions(opts map[string]any) jsonOptions {
	o := jsonOptions{
		format:   optString(opts, "format", "array"),
		jsonPath: optString(opts, "json_path", ""),
	}
	if v, ok := opts["required_keys"]; ok {
		switch keys := v.(type) {
		case []string:
			o.requiredKeys = keys
		case []any:
			for _, k := range keys {
				if s, ok := k.(string); ok {
					o.requiredKeys = append(o.requiredKeys, s)
				}
			}
		}
	}
	return o
}

func lowercaseKeys(m map[string]any) Row {
	row := make(Row, len(m))
	for k, v := range m {
		row[strings.ToLower(k)] = v
	}
	return row
}

func hasRequiredKeys(row Row, required []string) bool {
	for _, k := range required {
		v, ok := row[strings.ToLower(k)]
		if !ok || v == nil || v == "" {
			return false
		}
	}
	return true
}

func (a *JSONAdapter) readRaw(path string, opts map[string]any) ([]map[string]any, error) {
	o := resolveJSONOptions(opts)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ingestion: open %s: %w", path, err)
	}

	if o.format == "jsonl" {
		return readJSONLines(data)
	}

	if o.jsonPath != "" {
		result := gjson.GetBytes(data, o.jsonPath)
		if !result.IsArray() {
			return nil, fmt.Errorf("ingestion: json_path %q in %s did not resolve to an array", o.jsonPath, path)
		}
		var out []map[string]any
		for _, item := range result.Array() {
			var m map[string]any
			if err := json.Unmarshal([]byte(item.Raw), &m); err != nil {
				return nil, fmt.Errorf("ingestion: decode element at %s: %w", o.jsonPath, err)
			}
			out = append(out, m)
		}
		return out, nil
	}

	var arr []map[string]any
	if err := json.Unmarshal(data, &arr); err != nil {
		return nil, fmt.Errorf("ingestion: parse json array %s: %w", path, err)
	}
	return arr, nil
}

func readJSONLines(data []byte) ([]map[string]any, error) {
	var out []map[string]any
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			return nil, fmt.Errorf("ingestion: decode jsonl line: %w", err)
		}
		out = append(out, m)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *JSONAdapter) Read(path string, opts map[string]any) ([]Row, error) {
	raw, err := a.readRaw(path, opts)
	if err != nil {
		return nil, err
	}
	o := resolveJSONOptions(opts)
	rows := make([]Row, 0, len(raw))
	for _, m := range raw {
		row := lowercaseKeys(m)
		if len(o.requiredKeys) > 0 && !hasRequiredKeys(row, o.requiredKeys) {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (a *JSONAdapter) Probe(path string, opts map[string]any) (Probe, error) {
	rows, err := a.Read(path, opts)
	if err != nil {
		return Probe{}, err
	}
	colSet := make(map[string]struct{})
	for _, row := range rows {
		for k := range row {
			colSet[k] = struct{}{}
		}
	}
	columns := make([]string, 0, len(colSet))
	for k := range colSet {
		columns = append(columns, k)
	}
	sort.Strings(columns)

	return Probe{
		RowCount:   len(rows),
		Columns:    columns,
		SampleRows: sample(rows),
		Encoding:   "utf-8",
	}, nil
}

var _ Adapter = (*JSONAdapter)(nil)
