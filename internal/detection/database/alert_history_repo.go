package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/logward/logward/internal/detection/model"
)

// AlertHistoryRepo persists trigger history. The newest entry per rule serves
// as the durable watermark that bounds the next counting window, so it must
// survive restarts and be shared by all evaluator instances.
type AlertHistoryRepo struct {
	db *Database
}

func NewAlertHistoryRepo(db *Database) *AlertHistoryRepo { return &AlertHistoryRepo{db: db} }

// LatestFor returns the most recent history entry for a rule, or nil when the
// rule has never triggered.
func (r *AlertHistoryRepo) LatestFor(ctx context.Context, ruleID string) (*model.AlertHistoryEntry, error) {
	const q = `SELECT id, rule_id, triggered_at, log_count, notified, error
	FROM alert_history WHERE rule_id = $1
	ORDER BY triggered_at DESC LIMIT 1`
	var e model.AlertHistoryEntry
	err := r.db.QueryRowContext(ctx, q, ruleID).Scan(
		&e.ID, &e.RuleID, &e.TriggeredAt, &e.LogCount, &e.Notified, &e.Error)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest history for rule %s: %w", ruleID, err)
	}
	return &e, nil
}

func (r *AlertHistoryRepo) Insert(ctx context.Context, e model.AlertHistoryEntry) error {
	const q = `INSERT INTO alert_history (id, rule_id, triggered_at, log_count, notified, error)
	VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.ExecContext(ctx, q, e.ID, e.RuleID, e.TriggeredAt, e.LogCount, e.Notified, e.Error)
	if err != nil {
		return fmt.Errorf("insert alert history: %w", err)
	}
	return nil
}

// MarkAsNotified records the notification outcome. Notified is set true even
// when delivery failed; errMsg carries the joined per-channel failures or nil
// on full success. The update is idempotent and a missing id is not an error
// (the Sigma path has no history row).
func (r *AlertHistoryRepo) MarkAsNotified(ctx context.Context, historyID string, errMsg *string) error {
	const q = `UPDATE alert_history SET notified = TRUE, error = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, q, historyID, errMsg); err != nil {
		return fmt.Errorf("mark history %s notified: %w", historyID, err)
	}
	return nil
}

// ListByRule returns history entries, newest first, for operator inspection.
func (r *AlertHistoryRepo) ListByRule(ctx context.Context, ruleID string, limit int) ([]model.AlertHistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `SELECT id, rule_id, triggered_at, log_count, notified, error
	FROM alert_history WHERE rule_id = $1
	ORDER BY triggered_at DESC LIMIT $2`
	rows, err := r.db.QueryContext(ctx, q, ruleID, limit)
	if err != nil {
		return nil, fmt.Errorf("list alert history: %w", err)
	}
	defer rows.Close()
	var out []model.AlertHistoryEntry
	for rows.Next() {
		var e model.AlertHistoryEntry
		if err := rows.Scan(&e.ID, &e.RuleID, &e.TriggeredAt, &e.LogCount, &e.Notified, &e.Error); err != nil {
			return nil, fmt.Errorf("scan alert history: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
