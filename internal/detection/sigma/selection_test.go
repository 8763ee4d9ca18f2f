package sigma

import (
	"testing"

	"github.com/logward/logward/internal/detection/model"
)

func TestLookupField(t *testing.T) {
	rec := model.LogRecord{
		"service": "sshd",
		"a.b":     "literal-dot",
		"metadata": map[string]any{
			"user": map[string]any{"name": "root"},
		},
	}
	cases := []struct {
		path string
		want any
	}{
		{"service", "sshd"},
		{"a.b", "literal-dot"}, // top-level key wins over path traversal
		{"metadata.user.name", "root"},
		{"metadata.user.missing", nil},
		{"metadata.user.name.deeper", nil}, // scalar mid-path
		{"missing", nil},
		{"", nil},
	}
	for _, tc := range cases {
		if got := LookupField(rec, tc.path); got != tc.want {
			t.Errorf("LookupField(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestMatchSelectionFieldMap(t *testing.T) {
	rec := model.LogRecord{"EventID": float64(4625), "User": "Admin"}

	// fields within one map are AND
	sel := SelectionValue{FieldSets: [][]FieldPredicate{{
		{Field: "EventID", Patterns: []string{"4625"}},
		{Field: "User", Patterns: []string{"admin"}},
	}}}
	if !MatchSelection(rec, sel) {
		t.Fatal("all fields match, selection should be true")
	}

	sel.FieldSets[0][1].Patterns = []string{"guest"}
	if MatchSelection(rec, sel) {
		t.Fatal("one failing field must fail the whole map")
	}
}

func TestMatchSelectionFieldMapList(t *testing.T) {
	rec := model.LogRecord{"User": "admin"}
	// a list of maps is OR across the maps
	sel := SelectionValue{FieldSets: [][]FieldPredicate{
		{{Field: "User", Patterns: []string{"guest"}}},
		{{Field: "User", Patterns: []string{"admin"}}},
	}}
	if !MatchSelection(rec, sel) {
		t.Fatal("second map matches, selection should be true")
	}
}

func TestMatchSelectionKeywords(t *testing.T) {
	rec := model.LogRecord{
		"message": "Failed password for invalid user",
		"nested":  map[string]any{"detail": []any{"deep Needle here"}},
	}
	if !MatchSelection(rec, SelectionValue{Keywords: []string{"failed password"}}) {
		t.Fatal("keyword should match the message, case-insensitively")
	}
	if !MatchSelection(rec, SelectionValue{Keywords: []string{"needle"}}) {
		t.Fatal("keywords must reach nested leaves")
	}
	if MatchSelection(rec, SelectionValue{Keywords: []string{"absent"}}) {
		t.Fatal("no leaf contains the keyword")
	}
}

func TestMatchSelectionEmpty(t *testing.T) {
	rec := model.LogRecord{"anything": "x"}
	if MatchSelection(rec, SelectionValue{}) {
		t.Fatal("empty selection must be false")
	}
	if MatchSelection(rec, SelectionValue{FieldSets: [][]FieldPredicate{{}}}) {
		t.Fatal("selection with only an empty field set must be false")
	}
}

func TestSplitFieldKey(t *testing.T) {
	field, mods := splitFieldKey("CommandLine|contains|all")
	if field != "CommandLine" || len(mods) != 2 || mods[0] != "contains" || mods[1] != "all" {
		t.Fatalf("unexpected split: %q %v", field, mods)
	}
	field, mods = splitFieldKey("User")
	if field != "User" || len(mods) != 0 {
		t.Fatalf("bare key: %q %v", field, mods)
	}
}
