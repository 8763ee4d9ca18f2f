package sigma

import (
	"testing"

	"github.com/logward/logward/internal/detection/model"
)

func mustParse(t *testing.T, doc string) *Rule {
	t.Helper()
	rule, errs := ParseRuleDocument(doc)
	if len(errs) > 0 {
		t.Fatalf("parse rule: %v", errs)
	}
	return rule
}

func TestEvaluateLogSSHScenario(t *testing.T) {
	rule := mustParse(t, `
title: SSH Failed Password
level: high
logsource:
  product: linux
  service: sshd
detection:
  selection:
    message|contains: "Failed password"
  filter:
    user: healthcheck
  condition: selection and not filter
`)

	cases := []struct {
		name string
		rec  model.LogRecord
		want bool
	}{
		{
			"matching failure",
			model.LogRecord{"product": "linux", "service": "sshd", "message": "Failed password for root", "user": "root"},
			true,
		},
		{
			"filtered user",
			model.LogRecord{"product": "linux", "service": "sshd", "message": "Failed password for healthcheck", "user": "healthcheck"},
			false,
		},
		{
			"wrong service",
			model.LogRecord{"product": "linux", "service": "nginx", "message": "Failed password for root"},
			false,
		},
		{
			"logsource is case sensitive",
			model.LogRecord{"product": "Linux", "service": "sshd", "message": "Failed password for root"},
			false,
		},
		{
			"no message",
			model.LogRecord{"product": "linux", "service": "sshd"},
			false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := EvaluateLog([]*Rule{rule}, tc.rec)
			if res.Matched != tc.want {
				t.Fatalf("Matched = %v, want %v", res.Matched, tc.want)
			}
			if tc.want {
				if len(res.MatchedRules) != 1 {
					t.Fatalf("MatchedRules = %v", res.MatchedRules)
				}
				m := res.MatchedRules[0]
				if m.SigmaRuleID != rule.ID || m.RuleTitle != rule.Title || m.RuleLevel != "high" {
					t.Fatalf("unexpected match record: %+v", m)
				}
				if m.MatchedAt.IsZero() {
					t.Fatal("MatchedAt must be set")
				}
			}
		})
	}
}

func TestEvaluateLogEmptyLogsource(t *testing.T) {
	rule := mustParse(t, `
title: Any Source
logsource: {}
detection:
  selection:
    level: error
  condition: selection
`)
	rec := model.LogRecord{"level": "error"}
	if !EvaluateLog([]*Rule{rule}, rec).Matched {
		t.Fatal("empty logsource must not filter anything")
	}
}

func TestEvaluateBatchMatchesPerLogEvaluation(t *testing.T) {
	rule := mustParse(t, `
title: Error Level
logsource:
  product: app
detection:
  selection:
    level: error
  condition: selection
`)
	logs := []model.LogRecord{
		{"product": "app", "level": "error"},
		{"product": "app", "level": "info"},
		{"product": "app", "level": "error"},
	}
	results := EvaluateBatch([]*Rule{rule}, logs)
	if len(results) != len(logs) {
		t.Fatalf("results for %d logs, want %d", len(results), len(logs))
	}
	for i, rec := range logs {
		if results[i].Matched != EvaluateLog([]*Rule{rule}, rec).Matched {
			t.Fatalf("batch result %d diverges from single evaluation", i)
		}
	}
	if !results[0].Matched || results[1].Matched || !results[2].Matched {
		t.Fatalf("unexpected verdicts: %v", results)
	}
}

func TestGroupMatches(t *testing.T) {
	ruleA := mustParse(t, `
title: Rule A
logsource:
  product: app
detection:
  selection:
    level: error
  condition: selection
`)
	ruleA.EmailRecipients = []string{"oncall@example.com"}
	ruleB := mustParse(t, `
title: Rule B
logsource:
  product: app
detection:
  selection:
    level|startswith: err
  condition: selection
`)
	rules := []*Rule{ruleA, ruleB}

	logs := []model.LogRecord{
		{"product": "app", "level": "error"},
		{"product": "app", "level": "error"},
		{"product": "app", "level": "info"},
	}
	jobs := GroupMatches(rules, EvaluateBatch(rules, logs))
	if len(jobs) != 2 {
		t.Fatalf("jobs = %v, want one per matched rule", jobs)
	}
	byID := map[string]model.NotificationJob{}
	for _, j := range jobs {
		byID[j.RuleID] = j
	}
	jobA := byID[ruleA.ID]
	if jobA.LogCount != 2 || jobA.Threshold != 1 || jobA.TimeWindow != 1 {
		t.Fatalf("unexpected job: %+v", jobA)
	}
	if jobA.RuleName != "[Sigma] Rule A" {
		t.Fatalf("unexpected job name: %q", jobA.RuleName)
	}
	if jobA.HistoryID != nil {
		t.Fatal("sigma match jobs carry no history id")
	}
	if len(jobA.EmailRecipients) != 1 {
		t.Fatalf("recipients not carried: %+v", jobA)
	}
}
