// Package payload resolves dotted field paths against an event payload
// tree, the shared primitive guard evaluation, quantity/dimension
// extraction, and the foreach/from_context line-mapping expansion all
// build on. Paths walk a plain map[string]any tree the way the domain
// layer represents payloads, with no dependency on a JSON document or its
// encoding.
package payload

import (
	"strconv"
	"strings"
)

// Get resolves a dotted path (optionally prefixed with "payload.", which is
// stripped) against a payload tree. Array indices are addressed with
// "items[0].amount" notation.
func Get(tree map[string]any, path string) (any, bool) {
	path = strings.TrimPrefix(path, "payload.")
	parts := splitPath(path)
	var cur any = tree
	for _, part := range parts {
		switch part.kind {
		case partField:
			m, ok := cur.(map[string]any)
			if !ok {
				return nil, false
			}
			cur, ok = m[part.field]
			if !ok {
				return nil, false
			}
		case partIndex:
			arr, ok := cur.([]any)
			if !ok || part.index < 0 || part.index >= len(arr) {
				return nil, false
			}
			cur = arr[part.index]
		}
	}
	return cur, true
}

type partKind int

const (
	partField partKind = iota
	partIndex
)

type pathPart struct {
	kind partKind
	field string
	index int
}

// splitPath parses "a.b[2].c" into field/index parts.
func splitPath(path string) []pathPart {
	var parts []pathPart
	for _, segment := range strings.Split(path, ".") {
		if segment == "" {
			continue
		}
		field := segment
		for {
			open := strings.IndexByte(field, '[')
			if open < 0 {
				break
			}
			close := strings.IndexByte(field[open:], ']')
			if close < 0 {
				break
			}
			close += open
			if open > 0 {
				parts = append(parts, pathPart{kind: partField, field: field[:open]})
			}
			idxStr := field[open+1 : close]
			if idxStr == "*" {
				// wildcard placeholder; callers handling foreach expand before Get.
				parts = append(parts, pathPart{kind: partIndex, index: -1})
			} else if idx, err := strconv.Atoi(idxStr); err == nil {
				parts = append(parts, pathPart{kind: partIndex, index: idx})
			}
			field = field[close+1:]
		}
		if field != "" {
			parts = append(parts, pathPart{kind: partField, field: field})
		}
	}
	return parts
}

// GetCollection resolves a path expected to point at an array, returning its
// elements or (nil, false) if the path is missing or not an array.
func GetCollection(tree map[string]any, path string) ([]any, bool) {
	v, ok := Get(tree, path)
	if !ok {
		return nil, false
	}
	arr, ok := v.([]any)
	return arr, ok
}

// LastSegment returns the final dotted/bracket-free component of a path,
// used as the key when extracting dimensions.
func LastSegment(path string) string {
	path = strings.TrimPrefix(path, "payload.")
	if idx := strings.IndexByte(path, '['); idx >= 0 {
		path = path[:idx]
	}
	parts := strings.Split(path, ".")
	return parts[len(parts)-1]
}
