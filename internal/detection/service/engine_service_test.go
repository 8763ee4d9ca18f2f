package service

import (
	"context"
	"testing"
	"time"

	"github.com/logward/logward/internal/detection/model"
	"github.com/logward/logward/internal/detection/sigma"
)

type memRuleStore struct {
	rules []model.SigmaRule
	calls int
	err   error
}

func (s *memRuleStore) ListEnabledRules(_ context.Context, organizationID string, projectID *string) ([]model.SigmaRule, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	var out []model.SigmaRule
	for _, r := range s.rules {
		if r.OrganizationID != organizationID {
			continue
		}
		if projectID != nil && r.ProjectID != nil && *r.ProjectID != *projectID {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func storedRule(t *testing.T, doc, orgID string) model.SigmaRule {
	t.Helper()
	rule, errs := sigma.ParseRuleDocument(doc)
	if len(errs) > 0 {
		t.Fatalf("parse rule: %v", errs)
	}
	stored := rule.SigmaRule
	stored.OrganizationID = orgID
	return stored
}

const errorLevelDoc = `
title: Error Logs
logsource:
  product: app
detection:
  selection:
    level: error
  condition: selection
`

func TestEvaluateBatchFetchesRulesOnce(t *testing.T) {
	store := &memRuleStore{rules: []model.SigmaRule{storedRule(t, errorLevelDoc, "org-1")}}
	d := NewDetection(store, NewRuleCache(time.Minute))

	logs := []model.LogRecord{
		{"product": "app", "level": "error"},
		{"product": "app", "level": "info"},
		{"product": "app", "level": "error"},
	}
	results, err := d.EvaluateBatch(context.Background(), logs, "org-1", nil)
	if err != nil {
		t.Fatalf("EvaluateBatch: %v", err)
	}
	if store.calls != 1 {
		t.Fatalf("rule fetches = %d, want 1 per batch", store.calls)
	}
	if !results[0].Matched || results[1].Matched || !results[2].Matched {
		t.Fatalf("unexpected verdicts: %v", results)
	}
}

func TestEvaluateLogUsesCache(t *testing.T) {
	store := &memRuleStore{rules: []model.SigmaRule{storedRule(t, errorLevelDoc, "org-1")}}
	d := NewDetection(store, NewRuleCache(time.Minute))

	rec := model.LogRecord{"product": "app", "level": "error"}
	for i := 0; i < 3; i++ {
		res, err := d.EvaluateLog(context.Background(), rec, "org-1", nil)
		if err != nil {
			t.Fatalf("EvaluateLog: %v", err)
		}
		if !res.Matched {
			t.Fatal("record should match")
		}
	}
	if store.calls != 1 {
		t.Fatalf("rule fetches = %d, want 1 thanks to the cache", store.calls)
	}
}

func TestInvalidateRulesForcesRefetch(t *testing.T) {
	store := &memRuleStore{rules: []model.SigmaRule{storedRule(t, errorLevelDoc, "org-1")}}
	d := NewDetection(store, NewRuleCache(time.Minute))

	rec := model.LogRecord{"product": "app", "level": "error"}
	if _, err := d.EvaluateLog(context.Background(), rec, "org-1", nil); err != nil {
		t.Fatal(err)
	}
	d.InvalidateRules()
	if _, err := d.EvaluateLog(context.Background(), rec, "org-1", nil); err != nil {
		t.Fatal(err)
	}
	if store.calls != 2 {
		t.Fatalf("rule fetches = %d, want refetch after invalidate", store.calls)
	}
}

func TestOrganizationIsolation(t *testing.T) {
	store := &memRuleStore{rules: []model.SigmaRule{storedRule(t, errorLevelDoc, "org-1")}}
	d := NewDetection(store, NewRuleCache(time.Minute))

	rec := model.LogRecord{"product": "app", "level": "error"}
	res, err := d.EvaluateLog(context.Background(), rec, "org-2", nil)
	if err != nil {
		t.Fatalf("EvaluateLog: %v", err)
	}
	if res.Matched {
		t.Fatal("another organization's rules must never apply")
	}
}

func TestUncompilableRuleIsSkipped(t *testing.T) {
	good := storedRule(t, errorLevelDoc, "org-1")
	bad := good
	bad.ID = "bad-rule"
	bad.Condition = []string{"selection and ("}

	store := &memRuleStore{rules: []model.SigmaRule{bad, good}}
	d := NewDetection(store, NewRuleCache(time.Minute))

	res, err := d.EvaluateLog(context.Background(), model.LogRecord{"product": "app", "level": "error"}, "org-1", nil)
	if err != nil {
		t.Fatalf("EvaluateLog: %v", err)
	}
	if !res.Matched || len(res.MatchedRules) != 1 {
		t.Fatalf("good rule must still apply: %+v", res)
	}
}
