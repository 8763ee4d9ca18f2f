package alertcheck

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/logward/logward/internal/detection/model"
	"github.com/logward/logward/internal/detection/service/metrics"
)

// AlertRuleStore reads threshold rules.
type AlertRuleStore interface {
	ListEnabledAlertRules(ctx context.Context) ([]model.AlertRule, error)
}

// HistoryStore reads the per-rule watermark and records triggers.
type HistoryStore interface {
	LatestFor(ctx context.Context, ruleID string) (*model.AlertHistoryEntry, error)
	Insert(ctx context.Context, e model.AlertHistoryEntry) error
}

// LogCounter answers the windowed counting query. The lower bound is
// exclusive: records at exactly `from` are already accounted for.
type LogCounter interface {
	CountInWindow(ctx context.Context, organizationID string, projectID, service *string, levels []string, from, to time.Time) (int, error)
}

// Evaluator scans enabled alert rules and emits triggers. It is stateless
// between calls; the durable watermark lives in the history store.
type Evaluator struct {
	rules   AlertRuleStore
	history HistoryStore
	logs    LogCounter
	lock    TriggerLock

	// now is overridable in tests
	now func() time.Time
}

func NewEvaluator(rules AlertRuleStore, history HistoryStore, logs LogCounter, lock TriggerLock) *Evaluator {
	if lock == nil {
		lock = NoopLock{}
	}
	return &Evaluator{rules: rules, history: history, logs: logs, lock: lock, now: time.Now}
}

// CheckAlertRules runs one scan over every enabled rule. Rules are evaluated
// independently: a persistence failure on one rule is logged, counted, and
// folded into the returned aggregate error while the scan continues. The
// returned triggers are complete even when the error is non-nil.
func (e *Evaluator) CheckAlertRules(ctx context.Context) ([]model.AlertTrigger, error) {
	rules, err := e.rules.ListEnabledAlertRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("list alert rules: %w", err)
	}

	var triggers []model.AlertTrigger
	var failures []error
	for _, rule := range rules {
		trigger, err := e.checkRule(ctx, rule)
		if err != nil {
			metrics.AlertCheckErrors.Inc()
			log.Error().Err(err).Str("rule", rule.ID).Msg("alert rule check failed")
			failures = append(failures, fmt.Errorf("rule %s: %w", rule.ID, err))
			continue
		}
		if trigger != nil {
			triggers = append(triggers, *trigger)
		}
	}
	return triggers, errors.Join(failures...)
}

// checkRule performs the count/compare/insert step for one rule under the
// per-rule lock. When another evaluator instance holds the lock the rule is
// skipped for this tick; the next tick re-examines it.
func (e *Evaluator) checkRule(ctx context.Context, rule model.AlertRule) (*model.AlertTrigger, error) {
	acquired, release, err := e.lock.Acquire(ctx, rule.ID)
	if err != nil {
		return nil, fmt.Errorf("acquire trigger lock: %w", err)
	}
	if !acquired {
		log.Debug().Str("rule", rule.ID).Msg("trigger lock held elsewhere, skipping rule this tick")
		return nil, nil
	}
	defer release()

	now := e.now().UTC()
	windowStart := now.Add(-time.Duration(rule.TimeWindowMinutes) * time.Minute)

	// the watermark floors the window so an already-alerted-on log set can
	// never satisfy the threshold a second time
	floor := windowStart
	if last, err := e.history.LatestFor(ctx, rule.ID); err != nil {
		return nil, fmt.Errorf("read watermark: %w", err)
	} else if last != nil && last.TriggeredAt.After(floor) {
		floor = last.TriggeredAt
	}

	count, err := e.logs.CountInWindow(ctx, rule.OrganizationID, rule.ProjectID, rule.Service, rule.Levels, floor, now)
	if err != nil {
		return nil, fmt.Errorf("count logs: %w", err)
	}
	if count < rule.Threshold {
		return nil, nil
	}

	entry := model.AlertHistoryEntry{
		ID:          uuid.NewString(),
		RuleID:      rule.ID,
		TriggeredAt: now,
		LogCount:    count,
		Notified:    false,
	}
	if err := e.history.Insert(ctx, entry); err != nil {
		return nil, fmt.Errorf("insert history: %w", err)
	}
	metrics.AlertTriggers.Inc()
	log.Info().Str("rule", rule.ID).Str("name", rule.Name).Int("count", count).Int("threshold", rule.Threshold).Msg("alert rule triggered")

	return &model.AlertTrigger{
		HistoryID:         entry.ID,
		RuleID:            rule.ID,
		RuleName:          rule.Name,
		OrganizationID:    rule.OrganizationID,
		ProjectID:         rule.ProjectID,
		LogCount:          count,
		Threshold:         rule.Threshold,
		TimeWindowMinutes: rule.TimeWindowMinutes,
		EmailRecipients:   rule.EmailRecipients,
		WebhookURL:        rule.WebhookURL,
	}, nil
}

// Jobs converts triggers into the uniform notification payload.
func Jobs(triggers []model.AlertTrigger) []model.NotificationJob {
	jobs := make([]model.NotificationJob, 0, len(triggers))
	for _, t := range triggers {
		historyID := t.HistoryID
		jobs = append(jobs, model.NotificationJob{
			HistoryID:       &historyID,
			RuleID:          t.RuleID,
			RuleName:        t.RuleName,
			LogCount:        t.LogCount,
			Threshold:       t.Threshold,
			TimeWindow:      t.TimeWindowMinutes,
			EmailRecipients: t.EmailRecipients,
			WebhookURL:      t.WebhookURL,
		})
	}
	return jobs
}
