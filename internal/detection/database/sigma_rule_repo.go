package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"github.com/logward/logward/internal/detection/model"
)

// SigmaRuleRepo is the persistence layer for imported Sigma rules.
type SigmaRuleRepo struct {
	db *Database
}

func NewSigmaRuleRepo(db *Database) *SigmaRuleRepo { return &SigmaRuleRepo{db: db} }

const sigmaRuleColumns = `id, title, level, status, logsource, detection, condition, tags,
	organization_id, project_id, email_recipients, webhook_url, conversion_status, enabled, created_at`

// ListEnabledRules returns the enabled rules in scope for an evaluation:
// rules of the organization, restricted to the given project plus org-wide
// rules (NULL project) when a project is supplied.
func (r *SigmaRuleRepo) ListEnabledRules(ctx context.Context, organizationID string, projectID *string) ([]model.SigmaRule, error) {
	query := `SELECT ` + sigmaRuleColumns + `
	FROM sigma_rules
	WHERE organization_id = $1 AND enabled`
	args := []any{organizationID}
	if projectID != nil {
		query += ` AND (project_id IS NULL OR project_id = $2)`
		args = append(args, *projectID)
	}
	query += ` ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list enabled sigma rules: %w", err)
	}
	defer rows.Close()

	var out []model.SigmaRule
	for rows.Next() {
		rule, err := scanSigmaRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

// ListByOrganization returns every rule of the organization, enabled or not,
// for the management API.
func (r *SigmaRuleRepo) ListByOrganization(ctx context.Context, organizationID string) ([]model.SigmaRule, error) {
	query := `SELECT ` + sigmaRuleColumns + `
	FROM sigma_rules
	WHERE organization_id = $1
	ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("list sigma rules: %w", err)
	}
	defer rows.Close()

	var out []model.SigmaRule
	for rows.Next() {
		rule, err := scanSigmaRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

func (r *SigmaRuleRepo) Insert(ctx context.Context, rule model.SigmaRule) error {
	logsourceJSON, _ := json.Marshal(rule.LogSource)
	detectionJSON, err := json.Marshal(rule.Detection)
	if err != nil {
		return fmt.Errorf("marshal detection block: %w", err)
	}
	const q = `INSERT INTO sigma_rules (` + sigmaRuleColumns + `)
	VALUES ($1, $2, $3, $4, $5::jsonb, $6::jsonb, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err = r.db.ExecContext(ctx, q,
		rule.ID, rule.Title, rule.Level, rule.Status,
		string(logsourceJSON), string(detectionJSON),
		pq.Array(rule.Condition), pq.Array(rule.Tags),
		rule.OrganizationID, rule.ProjectID,
		pq.Array(rule.EmailRecipients), rule.WebhookURL,
		rule.ConversionStatus, rule.Enabled, rule.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert sigma rule: %w", err)
	}
	return nil
}

func (r *SigmaRuleRepo) Delete(ctx context.Context, organizationID, id string) error {
	const q = `DELETE FROM sigma_rules WHERE organization_id = $1 AND id = $2`
	res, err := r.db.ExecContext(ctx, q, organizationID, id)
	if err != nil {
		return fmt.Errorf("delete sigma rule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("sigma rule not found: %s", id)
	}
	return nil
}

// SetEnabled toggles a rule without touching its definition.
func (r *SigmaRuleRepo) SetEnabled(ctx context.Context, organizationID, id string, enabled bool) error {
	const q = `UPDATE sigma_rules SET enabled = $3 WHERE organization_id = $1 AND id = $2`
	res, err := r.db.ExecContext(ctx, q, organizationID, id, enabled)
	if err != nil {
		return fmt.Errorf("set sigma rule enabled: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("sigma rule not found: %s", id)
	}
	return nil
}

func scanSigmaRule(rows *sql.Rows) (model.SigmaRule, error) {
	var rule model.SigmaRule
	var logsourceRaw, detectionRaw []byte
	var condition, tags, recipients pq.StringArray
	if err := rows.Scan(
		&rule.ID, &rule.Title, &rule.Level, &rule.Status,
		&logsourceRaw, &detectionRaw, &condition, &tags,
		&rule.OrganizationID, &rule.ProjectID,
		&recipients, &rule.WebhookURL,
		&rule.ConversionStatus, &rule.Enabled, &rule.CreatedAt,
	); err != nil {
		return rule, fmt.Errorf("scan sigma rule: %w", err)
	}
	if len(logsourceRaw) > 0 {
		var ls model.LogSource
		if err := json.Unmarshal(logsourceRaw, &ls); err == nil {
			rule.LogSource = &ls
		}
	}
	if len(detectionRaw) > 0 {
		if err := json.Unmarshal(detectionRaw, &rule.Detection); err != nil {
			return rule, fmt.Errorf("decode detection block for rule %s: %w", rule.ID, err)
		}
	}
	rule.Condition = condition
	rule.Tags = tags
	rule.EmailRecipients = recipients
	return rule, nil
}
