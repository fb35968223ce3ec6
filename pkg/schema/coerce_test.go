package schema

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"
)

func TestBoolValue(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		fallback bool
		want     bool
	}{
		{"bool true", true, false, true},
		{"bool false", false, true, false},
		{"float 1", float64(1), false, true},
		{"float 0", float64(0), true, false},
		{"float other", float64(3), false, false},
		{"int 1", 1, false, true},
		{"int64 0", int64(0), true, false},
		{"json.Number", json.Number("1"), false, true},
		{"json.Number junk", json.Number("abc"), true, true},
		{"string true", "true", false, true},
		{"string YES", "YES", false, true},
		{"string no", "no", true, false},
		{"string padded", "  False  ", true, false},
		{"string junk", "maybe", true, true},
		{"nil", nil, true, true},
		{"map", map[string]any{}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := boolValue(tt.value, tt.fallback); got != tt.want {
				t.Errorf("boolValue(%v, %v) = %v, want %v", tt.value, tt.fallback, got, tt.want)
			}
		})
	}
}

func TestStringItems(t *testing.T) {
	got := stringItems([]any{" id ", "", 42, "email", nil, "   "})
	want := []string{"id", "email"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("stringItems = %v, want %v", got, want)
	}

	got = stringItems([]string{" a ", "", "b"})
	want = []string{"a", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("stringItems([]string) = %v, want %v", got, want)
	}

	if items := stringItems("not a list"); items != nil {
		t.Errorf("non-list input should yield nil, got %v", items)
	}
	if items := stringItems(nil); items != nil {
		t.Errorf("nil input should yield nil, got %v", items)
	}
}

func TestIdentifier(t *testing.T) {
	m := map[string]any{
		"ok":      "  users  ",
		"blank":   "   ",
		"number":  float64(7),
		"missing": nil,
	}

	if name, ok := identifier(m, "ok"); !ok || name != "users" {
		t.Errorf("identifier(ok) = %q, %v", name, ok)
	}
	for _, key := range []string{"blank", "number", "missing", "absent"} {
		if _, ok := identifier(m, key); ok {
			t.Errorf("identifier(%s) should not be usable", key)
		}
	}
}

func TestTimeValue(t *testing.T) {
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	m := map[string]any{
		"rfc3339": "2024-03-01T10:00:00Z",
		"native":  ts,
		"junk":    "yesterday",
		"number":  float64(1709287200),
	}

	if got := timeValue(m, "rfc3339"); !got.Equal(ts) {
		t.Errorf("timeValue(rfc3339) = %v, want %v", got, ts)
	}
	if got := timeValue(m, "native"); !got.Equal(ts) {
		t.Errorf("timeValue(native) = %v, want %v", got, ts)
	}
	for _, key := range []string{"junk", "number", "absent"} {
		if got := timeValue(m, key); !got.IsZero() {
			t.Errorf("timeValue(%s) = %v, want zero", key, got)
		}
	}
}
