package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/logward/logward/internal/detection/model"
	"github.com/logward/logward/internal/detection/service/metrics"
	"github.com/logward/logward/internal/detection/sigma"
)

// SigmaRuleStore is the repository surface the detection service reads rules
// through.
type SigmaRuleStore interface {
	ListEnabledRules(ctx context.Context, organizationID string, projectID *string) ([]model.SigmaRule, error)
}

// Detection evaluates Sigma rules against log records for one deployment.
// It holds no mutable state besides the injected cache, so concurrent calls
// for different organizations need no coordination.
type Detection struct {
	rules SigmaRuleStore
	cache *RuleCache
}

func NewDetection(rules SigmaRuleStore, cache *RuleCache) *Detection {
	return &Detection{rules: rules, cache: cache}
}

// EvaluateLog evaluates one record; it shares the batch path so rule fetching
// and compilation behave identically.
func (d *Detection) EvaluateLog(ctx context.Context, rec model.LogRecord, organizationID string, projectID *string) (model.EvalResult, error) {
	results, err := d.EvaluateBatch(ctx, []model.LogRecord{rec}, organizationID, projectID)
	if err != nil {
		return model.EvalResult{}, err
	}
	return results[0], nil
}

// EvaluateBatch fetches and compiles the applicable rule set once, then
// evaluates every record against it. Persisting matches and dispatching
// notifications are the caller's responsibility.
func (d *Detection) EvaluateBatch(ctx context.Context, logs []model.LogRecord, organizationID string, projectID *string) (map[int]model.EvalResult, error) {
	rules, err := d.scopedRules(ctx, organizationID, projectID)
	if err != nil {
		return nil, err
	}
	results := sigma.EvaluateBatch(rules, logs)

	metrics.LogsEvaluated.WithLabelValues(organizationID).Add(float64(len(logs)))
	for _, res := range results {
		for _, m := range res.MatchedRules {
			metrics.SigmaMatches.WithLabelValues(organizationID, m.RuleLevel).Inc()
		}
	}
	return results, nil
}

// MatchJobs folds batch results into one notification job per matched rule.
func (d *Detection) MatchJobs(ctx context.Context, results map[int]model.EvalResult, organizationID string, projectID *string) ([]model.NotificationJob, error) {
	rules, err := d.scopedRules(ctx, organizationID, projectID)
	if err != nil {
		return nil, err
	}
	return sigma.GroupMatches(rules, results), nil
}

// InvalidateRules drops cached rule sets after an import or delete.
func (d *Detection) InvalidateRules() { d.cache.Invalidate() }

func (d *Detection) scopedRules(ctx context.Context, organizationID string, projectID *string) ([]*sigma.Rule, error) {
	key := ScopeKey(organizationID, projectID)
	if rules, ok := d.cache.Get(key); ok {
		metrics.RuleCacheHits.Inc()
		return rules, nil
	}
	metrics.RuleCacheMisses.Inc()

	stored, err := d.rules.ListEnabledRules(ctx, organizationID, projectID)
	if err != nil {
		return nil, fmt.Errorf("fetch sigma rules for %s: %w", key, err)
	}
	rules := make([]*sigma.Rule, 0, len(stored))
	for _, s := range stored {
		compiled, err := sigma.Compile(s)
		if err != nil {
			// one corrupted rule must not block the rest of the set
			log.Error().Err(err).Str("rule", s.ID).Msg("skipping uncompilable sigma rule")
			continue
		}
		rules = append(rules, compiled)
	}
	d.cache.Put(key, rules)
	return rules, nil
}
