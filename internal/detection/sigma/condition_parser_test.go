package sigma

import (
	"strings"
	"testing"
)

func evalCond(t *testing.T, text string, truth map[string]bool) bool {
	t.Helper()
	expr, errs := ParseCondition(text)
	if len(errs) > 0 {
		t.Fatalf("ParseCondition(%q) errors: %v", text, errs)
	}
	return expr.Eval(truth)
}

func TestParseConditionPrecedence(t *testing.T) {
	truth := map[string]bool{"a": true, "b": false, "c": false}

	// "a or b and c" parses as "a or (b and c)"
	if !evalCond(t, "a or b and c", truth) {
		t.Fatal("or must bind looser than and")
	}
	// parentheses override
	if evalCond(t, "(a or b) and c", truth) {
		t.Fatal("parenthesized or must evaluate first")
	}
	// not binds tightest
	if evalCond(t, "not a or b", map[string]bool{"a": true, "b": false}) {
		t.Fatal("not must bind tighter than or")
	}
	if !evalCond(t, "not (a and b)", map[string]bool{"a": true, "b": false}) {
		t.Fatal("not over a parenthesized group")
	}
	if !evalCond(t, "not not a", map[string]bool{"a": true}) {
		t.Fatal("chained not")
	}
}

func TestParseConditionQuantifiers(t *testing.T) {
	truth := map[string]bool{
		"selection_a": true,
		"selection_b": true,
		"selection_c": false,
		"filter":      true,
	}
	cases := []struct {
		text string
		want bool
	}{
		{"1 of selection_*", true},
		{"2 of selection_*", true},
		{"3 of selection_*", false},
		{"all of selection_*", false},
		{"all of them", false},
		{"1 of them", true},
		{"1 of *", true},
		{"all of filter", true},
		// a glob matching nothing is false, for all-of too
		{"1 of missing_*", false},
		{"all of missing_*", false},
	}
	for _, tc := range cases {
		if got := evalCond(t, tc.text, truth); got != tc.want {
			t.Errorf("%q = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestParseConditionErrors(t *testing.T) {
	cases := []struct {
		text    string
		wantSub string
	}{
		{"", "unexpected end of expression"},
		{"a and", "unexpected end of expression"},
		{"(a or b", "expected closing parenthesis"},
		{"a b", "unexpected \"b\" after end of expression"},
		{"0 of them", "must be a positive integer"},
		{"2 selection", "expected 'of'"},
		{"all selection", "expected 'of' after 'all'"},
		{"selection_*", "only valid after 'of'"},
		{"1 of and", "expected selection name pattern after 'of'"},
	}
	for _, tc := range cases {
		_, errs := ParseCondition(tc.text)
		if len(errs) == 0 {
			t.Errorf("ParseCondition(%q): expected errors", tc.text)
			continue
		}
		found := false
		for _, e := range errs {
			if strings.Contains(e, tc.wantSub) {
				found = true
			}
			if !strings.Contains(e, "offset") {
				t.Errorf("ParseCondition(%q): error %q missing offset", tc.text, e)
			}
		}
		if !found {
			t.Errorf("ParseCondition(%q): errors %v missing %q", tc.text, errs, tc.wantSub)
		}
	}
}

func TestIdents(t *testing.T) {
	expr, errs := ParseCondition("a and not (b or c) and 1 of sel_*")
	if len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	got := Idents(expr)
	want := map[string]bool{"a": true, "b": true, "c": true}
	if len(got) != len(want) {
		t.Fatalf("Idents = %v, want keys %v", got, want)
	}
	for _, name := range got {
		if !want[name] {
			t.Fatalf("unexpected ident %q (quantifier globs must not be listed)", name)
		}
	}
}
