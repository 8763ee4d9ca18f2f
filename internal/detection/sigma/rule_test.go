package sigma

import (
	"strings"
	"testing"

	"github.com/logward/logward/internal/detection/model"
)

const validRuleDoc = `
title: SSH Brute Force
id: 3f0e5fa0-8b87-4b47-96f1-0f4f18a6b3aa
level: high
status: test
logsource:
  product: linux
  service: sshd
detection:
  selection:
    message|contains: "Failed password"
  condition: selection
tags:
  - attack.credential_access
`

func TestParseRuleDocumentValid(t *testing.T) {
	rule, errs := ParseRuleDocument(validRuleDoc)
	if len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if rule.ID != "3f0e5fa0-8b87-4b47-96f1-0f4f18a6b3aa" {
		t.Fatalf("existing id must be preserved, got %q", rule.ID)
	}
	if rule.Title != "SSH Brute Force" || rule.Level != "high" || rule.Status != "test" {
		t.Fatalf("unexpected rule fields: %+v", rule.SigmaRule)
	}
	if rule.LogSource == nil || rule.LogSource.Service != "sshd" {
		t.Fatalf("unexpected logsource: %+v", rule.LogSource)
	}
	if !rule.Enabled {
		t.Fatal("imported rules start enabled")
	}
	if rule.Cond == nil || len(rule.Selections) != 1 {
		t.Fatalf("compiled condition/selections missing: %+v", rule)
	}
}

func TestParseRuleDocumentNormalization(t *testing.T) {
	doc := `
title: Minimal
logsource:
  product: linux
detection:
  keywords:
    - badstring
  condition: keywords
`
	rule, errs := ParseRuleDocument(doc)
	if len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if rule.ID == "" {
		t.Fatal("missing id must be generated")
	}
	if rule.Level != model.LevelMedium {
		t.Fatalf("level default = %q, want medium", rule.Level)
	}
	if rule.Status != model.StatusStable {
		t.Fatalf("status default = %q, want stable", rule.Status)
	}
	if rule.CreatedAt.IsZero() {
		t.Fatal("created_at must be set")
	}
}

func TestParseRuleDocumentCollectsAllErrors(t *testing.T) {
	doc := `
level: catastrophic
status: wip
detection:
  selection:
    field: value
  condition: selection and ghost
`
	rule, errs := ParseRuleDocument(doc)
	if rule != nil {
		t.Fatal("invalid document must not produce a rule")
	}
	wantSubs := []string{
		"missing required field 'title'",
		"missing required field 'logsource'",
		`invalid level "catastrophic"`,
		`invalid status "wip"`,
		`undefined selection "ghost"`,
	}
	for _, sub := range wantSubs {
		found := false
		for _, e := range errs {
			if strings.Contains(e, sub) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("errors %v missing %q", errs, sub)
		}
	}
}

func TestParseRuleDocumentStructuralErrors(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		sub  string
	}{
		{"empty", "   \n", "rule document is empty"},
		{"bad yaml", "title: [unclosed", "invalid rule document"},
		{"scalar root", "just a string", "root must be a mapping"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rule, errs := ParseRuleDocument(tc.doc)
			if rule != nil {
				t.Fatal("structural failure must not produce a rule")
			}
			if len(errs) != 1 || !strings.Contains(errs[0], tc.sub) {
				t.Fatalf("errors = %v, want single error containing %q", errs, tc.sub)
			}
		})
	}
}

func TestParseRuleDocumentConditionShapes(t *testing.T) {
	doc := `
title: List Condition
logsource:
  product: linux
detection:
  sel_a:
    field: a
  sel_b:
    field: b
  condition:
    - sel_a
    - sel_b
`
	rule, errs := ParseRuleDocument(doc)
	if len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	// list lines AND together: both selections must hold
	if rule.Eval(model.LogRecord{"product": "linux", "field": "a"}) {
		t.Fatal("only sel_a matches, AND of lines must be false")
	}

	badDoc := `
title: Bad Condition
logsource:
  product: linux
detection:
  selection:
    field: a
  condition: 42
`
	if _, errs := ParseRuleDocument(badDoc); len(errs) == 0 {
		t.Fatal("non-string condition must be rejected")
	}
}

func TestParseRuleDocumentUnsupportedSelection(t *testing.T) {
	doc := `
title: Bad Selection
logsource:
  product: linux
detection:
  selection: 42
  condition: selection
`
	rule, errs := ParseRuleDocument(doc)
	if rule != nil || len(errs) == 0 {
		t.Fatalf("scalar selection must be rejected, got rule=%v errs=%v", rule, errs)
	}
}

func TestCompileStoredRule(t *testing.T) {
	parsed, errs := ParseRuleDocument(validRuleDoc)
	if len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	compiled, err := Compile(parsed.SigmaRule)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	rec := model.LogRecord{"product": "linux", "service": "sshd", "message": "Failed password for root"}
	if !compiled.Eval(rec) {
		t.Fatal("recompiled rule must evaluate like the imported one")
	}

	corrupted := parsed.SigmaRule
	corrupted.Condition = []string{"selection and ("}
	if _, err := Compile(corrupted); err == nil {
		t.Fatal("corrupted stored condition must fail compile")
	}
}
