package schema

import (
	"encoding/json"
	"strings"
	"time"
)

// The coercion helpers below are total: whatever shape the payload
// value has, they return a usable result or the caller's fallback.
// Nothing here returns an error.

// asMap returns v as a string-keyed map when it has that shape.
func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// rawList returns the list stored under key and whether the key held
// a list at all.
func rawList(m map[string]any, key string) ([]any, bool) {
	list, ok := m[key].([]any)
	return list, ok
}

// listItems returns the list under key, or nil when absent or malformed.
func listItems(m map[string]any, key string) []any {
	list, _ := rawList(m, key)
	return list
}

// identifier returns the trimmed string under key and reports whether
// it is usable as a name. Missing keys, non-string values, and blank
// strings all fail.
func identifier(m map[string]any, key string) (string, bool) {
	s, ok := m[key].(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// optionalString returns the trimmed string under key. Absent keys,
// non-string values, and blank strings collapse to "".
func optionalString(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}

// boolValue coerces v into a bool, returning fallback when the value
// does not look like one. Accepted forms are booleans, the numbers 0
// and 1, and the strings "true", "yes", "1", "false", "no", and "0"
// in any letter case.
func boolValue(v any, fallback bool) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return numericBool(t, fallback)
	case int:
		return numericBool(float64(t), fallback)
	case int64:
		return numericBool(float64(t), fallback)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return fallback
		}
		return numericBool(f, fallback)
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "1":
			return true
		case "false", "no", "0":
			return false
		}
		return fallback
	default:
		return fallback
	}
}

func numericBool(f float64, fallback bool) bool {
	switch f {
	case 0:
		return false
	case 1:
		return true
	default:
		return fallback
	}
}

// stringItems coerces a list value into its trimmed, non-empty string
// items. Both decoded ([]any) and in-process ([]string) lists are
// accepted; anything else yields nil, and items that are not strings
// are skipped.
func stringItems(v any) []string {
	var items []string
	appendItem := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			items = append(items, s)
		}
	}
	switch list := v.(type) {
	case []any:
		for _, item := range list {
			if s, ok := item.(string); ok {
				appendItem(s)
			}
		}
	case []string:
		for _, s := range list {
			appendItem(s)
		}
	}
	return items
}

// timeValue parses the value under key as an RFC 3339 timestamp.
// YAML decoders hand timestamps over as time.Time already, so that
// form is accepted as-is. Everything else yields the zero time.
func timeValue(m map[string]any, key string) time.Time {
	switch t := m[key].(type) {
	case time.Time:
		return t
	case string:
		parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(t))
		if err != nil {
			return time.Time{}
		}
		return parsed
	default:
		return time.Time{}
	}
}
