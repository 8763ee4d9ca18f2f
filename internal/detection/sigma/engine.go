package sigma

import (
	"github.com/logward/logward/internal/detection/model"
)

// EvaluateLog runs every compiled rule against one log record and reports the
// matched rules. Rules are independent: nothing here mutates rule state, so
// the same rule slice may be evaluated from many goroutines at once.
func EvaluateLog(rules []*Rule, log model.LogRecord) model.EvalResult {
	var result model.EvalResult
	now := matchedAt().UTC()
	for _, r := range rules {
		if r.Eval(log) {
			result.MatchedRules = append(result.MatchedRules, model.RuleMatch{
				SigmaRuleID: r.ID,
				RuleTitle:   r.Title,
				RuleLevel:   r.Level,
				MatchedAt:   now,
			})
		}
	}
	result.Matched = len(result.MatchedRules) > 0
	return result
}

// EvaluateBatch is semantically one EvaluateLog per record; callers fetch and
// compile the rule set once per batch and pass it here, keeping the rule
// fetch O(1) per batch rather than O(n).
func EvaluateBatch(rules []*Rule, logs []model.LogRecord) map[int]model.EvalResult {
	results := make(map[int]model.EvalResult, len(logs))
	for i, log := range logs {
		results[i] = EvaluateLog(rules, log)
	}
	return results
}

// GroupMatches folds per-log verdicts into one notification job per matched
// rule. Sigma matches carry no history row, so HistoryID stays nil; they are
// modeled as threshold-1, one-minute-window triggers for a uniform downstream
// payload.
func GroupMatches(rules []*Rule, results map[int]model.EvalResult) []model.NotificationJob {
	byID := make(map[string]*Rule, len(rules))
	for _, r := range rules {
		byID[r.ID] = r
	}
	counts := make(map[string]int)
	var order []string
	for _, res := range results {
		for _, m := range res.MatchedRules {
			if counts[m.SigmaRuleID] == 0 {
				order = append(order, m.SigmaRuleID)
			}
			counts[m.SigmaRuleID]++
		}
	}
	jobs := make([]model.NotificationJob, 0, len(order))
	for _, id := range order {
		r := byID[id]
		if r == nil {
			continue
		}
		jobs = append(jobs, model.NotificationJob{
			RuleID:          r.ID,
			RuleName:        "[Sigma] " + r.Title,
			LogCount:        counts[id],
			Threshold:       1,
			TimeWindow:      1,
			EmailRecipients: r.EmailRecipients,
			WebhookURL:      r.WebhookURL,
		})
	}
	return jobs
}
