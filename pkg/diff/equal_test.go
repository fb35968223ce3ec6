package diff

import (
	"testing"

	"github.com/schemawatch/schemawatch/pkg/schema"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"TIMESTAMP  WITH   TIME ZONE", "timestamp with time zone"},
		{"  btree ", "btree"},
		{"varchar(255)", "varchar(255)"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		if got := normalizeText(tt.in); got != tt.want {
			t.Errorf("normalizeText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestConstraintFingerprint(t *testing.T) {
	a := []schema.Constraint{
		{Name: "pk", Type: "PRIMARY KEY", Columns: []string{"id"}},
		{Name: "uq", Type: "UNIQUE", Columns: []string{"email", "tenant"}},
	}
	b := []schema.Constraint{a[1], a[0]}

	if constraintFingerprint(a) != constraintFingerprint(b) {
		t.Error("fingerprint must ignore constraint order")
	}

	c := []schema.Constraint{
		{Name: "pk", Type: "PRIMARY KEY", Columns: []string{"id", "tenant"}},
		a[1],
	}
	if constraintFingerprint(a) == constraintFingerprint(c) {
		t.Error("fingerprint must react to column membership")
	}

	if constraintFingerprint(nil) != "" {
		t.Error("empty set fingerprints to the empty string")
	}
}

func TestKeyedOccurrences(t *testing.T) {
	entries := keyedIndexes([]schema.Index{
		{Name: "idx"},
		{Name: "idx"},
		{Name: "other"},
		{Name: "idx"},
	})

	wantKeys := []string{"idx", "idx#2", "other", "idx#3"}
	if len(entries) != len(wantKeys) {
		t.Fatalf("expected %d entries, got %d", len(wantKeys), len(entries))
	}
	for i, want := range wantKeys {
		if entries[i].key != want {
			t.Errorf("entry %d key = %q, want %q", i, entries[i].key, want)
		}
	}
}
