package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind names one of the remote record collections.
type Kind string

const (
	KindUsers    Kind = "users"
	KindProducts Kind = "products"
)

// ParseKind converts a path segment or CLI argument into a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindUsers:
		return KindUsers, nil
	case KindProducts:
		return KindProducts, nil
	default:
		return "", NewAppError(CodeNotFound, fmt.Sprintf("unknown resource %q", s), nil)
	}
}

// Record is one user or product as returned by the upstream API. Numbers are
// kept as json.Number so they render exactly as the API sent them.
type Record map[string]any

// RecordPage is one upstream list response: the records of the requested
// window plus the total count of the narrowed collection.
type RecordPage struct {
	Records []Record `json:"records"`
	Total   int      `json:"total"`
}

// ID returns the record's integer id, or 0 when it is missing or not numeric.
func (r Record) ID() int64 {
	switch v := r["id"].(type) {
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0
		}
		return n
	case float64:
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	default:
		return 0
	}
}

// Lookup resolves a dotted path such as "address.city". It reports false when
// any segment is missing or an intermediate value is not an object.
func (r Record) Lookup(path string) (any, bool) {
	var cur any = map[string]any(r)
	for _, key := range strings.Split(path, ".") {
		var obj map[string]any
		switch m := cur.(type) {
		case map[string]any:
			obj = m
		case Record:
			obj = m
		default:
			return nil, false
		}
		v, ok := obj[key]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// Text returns the stringified value at path for matching. Missing and null
// values report false.
func (r Record) Text(path string) (string, bool) {
	v, ok := r.Lookup(path)
	if !ok || v == nil {
		return "", false
	}
	return FormatValue(v), true
}

// FormatValue renders a field value for display: null becomes "N/A", objects
// and arrays become JSON.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "N/A"
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case map[string]any, Record, []any:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	default:
		return fmt.Sprint(val)
	}
}

// ContainsFold reports whether s contains substr, ignoring case.
func ContainsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
