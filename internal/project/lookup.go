// SPDX-License-Identifier: MPL-2.0

package project

import "sort"

// Lookup is a read-only view over an untrusted decoded document (a parsed
// pyproject.toml, for instance). Every accessor returns a default instead of
// failing when a key is missing or holds an unexpected type.
type Lookup struct {
	data map[string]any
}

// NewLookup wraps data. The map is not copied and must not be mutated afterwards.
func NewLookup(data map[string]any) Lookup {
	return Lookup{data: data}
}

// Has reports whether path resolves to any value.
func (l Lookup) Has(path ...string) bool {
	_, ok := l.get(path)
	return ok
}

// String returns the string at path, or "" when absent or not a string.
func (l Lookup) String(path ...string) string {
	v, ok := l.get(path)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Strings returns the string list at path. Non-string items are skipped.
// A table (the poetry dependency table) yields its sorted keys.
func (l Lookup) Strings(path ...string) []string {
	v, ok := l.get(path)
	if !ok {
		return nil
	}
	switch list := v.(type) {
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return append([]string(nil), list...)
	case map[string]any:
		out := make([]string, 0, len(list))
		for k := range list {
			out = append(out, k)
		}
		sort.Strings(out)
		return out
	default:
		return nil
	}
}

// Sub returns the table at path, or an empty Lookup.
func (l Lookup) Sub(path ...string) Lookup {
	v, ok := l.get(path)
	if !ok {
		return Lookup{}
	}
	m, _ := v.(map[string]any)
	return Lookup{data: m}
}

// Len returns the number of items at path when it is a list or table.
func (l Lookup) Len(path ...string) int {
	v, ok := l.get(path)
	if !ok {
		return 0
	}
	switch c := v.(type) {
	case []any:
		return len(c)
	case map[string]any:
		return len(c)
	default:
		return 0
	}
}

// Index returns element i of the list at path as a Lookup, for lists of tables.
func (l Lookup) Index(i int, path ...string) Lookup {
	v, ok := l.get(path)
	if !ok {
		return Lookup{}
	}
	list, ok := v.([]any)
	if !ok || i < 0 || i >= len(list) {
		return Lookup{}
	}
	m, _ := list[i].(map[string]any)
	return Lookup{data: m}
}

func (l Lookup) get(path []string) (any, bool) {
	if l.data == nil || len(path) == 0 {
		return nil, false
	}
	var cur any = l.data
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
