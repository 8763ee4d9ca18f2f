package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/lib/pq"

	"github.com/logward/logward/internal/detection/model"
)

// AlertRuleRepo is the persistence layer for threshold alert rules. The time
// window is stored as a PostgreSQL interval and exposed in minutes.
type AlertRuleRepo struct {
	db *Database
}

func NewAlertRuleRepo(db *Database) *AlertRuleRepo { return &AlertRuleRepo{db: db} }

const alertRuleColumns = `id, organization_id, project_id, name, service, levels,
	time_window, threshold, enabled, email_recipients, webhook_url`

// ListEnabledAlertRules returns every enabled alert rule across all tenants,
// for one evaluator scan.
func (r *AlertRuleRepo) ListEnabledAlertRules(ctx context.Context) ([]model.AlertRule, error) {
	const q = `SELECT ` + alertRuleColumns + ` FROM alert_rules WHERE enabled ORDER BY id ASC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list enabled alert rules: %w", err)
	}
	defer rows.Close()

	var out []model.AlertRule
	for rows.Next() {
		var rule model.AlertRule
		var levels, recipients pq.StringArray
		var window pgtype.Interval
		if err := rows.Scan(
			&rule.ID, &rule.OrganizationID, &rule.ProjectID, &rule.Name, &rule.Service,
			&levels, &window, &rule.Threshold, &rule.Enabled, &recipients, &rule.WebhookURL,
		); err != nil {
			return nil, fmt.Errorf("scan alert rule: %w", err)
		}
		d, err := pgIntervalToDuration(window)
		if err != nil {
			return nil, fmt.Errorf("alert rule %s time window: %w", rule.ID, err)
		}
		rule.TimeWindowMinutes = int(d / time.Minute)
		rule.Levels = levels
		rule.EmailRecipients = recipients
		out = append(out, rule)
	}
	return out, rows.Err()
}

// ListByOrganization returns the organization's alert rules, enabled or not,
// for the management API.
func (r *AlertRuleRepo) ListByOrganization(ctx context.Context, organizationID string) ([]model.AlertRule, error) {
	const q = `SELECT ` + alertRuleColumns + ` FROM alert_rules WHERE organization_id = $1 ORDER BY name ASC`
	rows, err := r.db.QueryContext(ctx, q, organizationID)
	if err != nil {
		return nil, fmt.Errorf("list alert rules: %w", err)
	}
	defer rows.Close()

	var out []model.AlertRule
	for rows.Next() {
		var rule model.AlertRule
		var levels, recipients pq.StringArray
		var window pgtype.Interval
		if err := rows.Scan(
			&rule.ID, &rule.OrganizationID, &rule.ProjectID, &rule.Name, &rule.Service,
			&levels, &window, &rule.Threshold, &rule.Enabled, &recipients, &rule.WebhookURL,
		); err != nil {
			return nil, fmt.Errorf("scan alert rule: %w", err)
		}
		d, err := pgIntervalToDuration(window)
		if err != nil {
			return nil, fmt.Errorf("alert rule %s time window: %w", rule.ID, err)
		}
		rule.TimeWindowMinutes = int(d / time.Minute)
		rule.Levels = levels
		rule.EmailRecipients = recipients
		out = append(out, rule)
	}
	return out, rows.Err()
}

func (r *AlertRuleRepo) Insert(ctx context.Context, rule model.AlertRule) error {
	const q = `INSERT INTO alert_rules (` + alertRuleColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	window := durationToPgInterval(time.Duration(rule.TimeWindowMinutes) * time.Minute)
	_, err := r.db.ExecContext(ctx, q,
		rule.ID, rule.OrganizationID, rule.ProjectID, rule.Name, rule.Service,
		pq.Array(rule.Levels), window, rule.Threshold, rule.Enabled,
		pq.Array(rule.EmailRecipients), rule.WebhookURL)
	if err != nil {
		return fmt.Errorf("insert alert rule: %w", err)
	}
	return nil
}

// SetEnabled toggles a rule; evaluation never mutates rules, this is the only
// write path besides field edits.
func (r *AlertRuleRepo) SetEnabled(ctx context.Context, organizationID, id string, enabled bool) error {
	const q = `UPDATE alert_rules SET enabled = $3 WHERE organization_id = $1 AND id = $2`
	res, err := r.db.ExecContext(ctx, q, organizationID, id, enabled)
	if err != nil {
		return fmt.Errorf("set alert rule enabled: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("alert rule not found: %s", id)
	}
	return nil
}
