package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/logward/logward/internal/detection/model"
)

// LogRepo stores ingested log records and answers the windowed counting
// queries of the alert rule evaluator.
type LogRepo struct {
	db *Database
}

func NewLogRepo(db *Database) *LogRepo { return &LogRepo{db: db} }

// CountInWindow counts qualifying records with time in (from, to]. The lower
// bound is exclusive so records at exactly the last trigger instant are not
// counted twice across triggers.
func (r *LogRepo) CountInWindow(ctx context.Context, organizationID string, projectID, service *string, levels []string, from, to time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM logs
	WHERE organization_id = $1 AND time > $2 AND time <= $3`
	args := []any{organizationID, from, to}
	if projectID != nil {
		args = append(args, *projectID)
		query += fmt.Sprintf(` AND project_id = $%d`, len(args))
	}
	if service != nil {
		args = append(args, *service)
		query += fmt.Sprintf(` AND service = $%d`, len(args))
	}
	if len(levels) > 0 {
		args = append(args, pq.Array(levels))
		query += fmt.Sprintf(` AND level = ANY($%d)`, len(args))
	}
	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count logs in window: %w", err)
	}
	return count, nil
}

// InsertBatch persists a batch of ingested records. The well-known fields are
// lifted into columns; the full record is kept as jsonb for the detection
// engine's dot-path access.
func (r *LogRepo) InsertBatch(ctx context.Context, organizationID string, projectID *string, logs []model.LogRecord) error {
	const q = `INSERT INTO logs (id, organization_id, project_id, service, level, message, time, record)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb)`
	for _, rec := range logs {
		recordJSON, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal log record: %w", err)
		}
		_, err = r.db.ExecContext(ctx, q,
			uuid.NewString(), organizationID, projectID,
			stringField(rec, "service"), stringField(rec, "level"), stringField(rec, "message"),
			timeField(rec), string(recordJSON))
		if err != nil {
			return fmt.Errorf("insert log record: %w", err)
		}
	}
	return nil
}

func stringField(rec model.LogRecord, key string) string {
	if v, ok := rec[key]; ok && v != nil {
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprintf("%v", v)
	}
	return ""
}

func timeField(rec model.LogRecord) time.Time {
	if v, ok := rec["time"]; ok {
		switch t := v.(type) {
		case time.Time:
			return t
		case string:
			if ts, err := time.Parse(time.RFC3339Nano, t); err == nil {
				return ts
			}
			if ts, err := time.Parse(time.RFC3339, t); err == nil {
				return ts
			}
		case float64:
			return time.Unix(int64(t), 0).UTC()
		}
	}
	return time.Now().UTC()
}
