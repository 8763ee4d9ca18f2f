package model

import "time"

// LogRecord is an arbitrarily nested key/value log record as delivered by the
// ingestion layer. Nested fields are addressed with dot paths
// ("metadata.user.name"). Records are read-only to the detection core.
type LogRecord map[string]any

// Rule severity levels, as used by Sigma rules.
const (
	LevelInformational = "informational"
	LevelLow           = "low"
	LevelMedium        = "medium"
	LevelHigh          = "high"
	LevelCritical      = "critical"
)

// Rule maturity statuses, as used by Sigma rules.
const (
	StatusExperimental = "experimental"
	StatusTest         = "test"
	StatusStable       = "stable"
	StatusDeprecated   = "deprecated"
	StatusUnsupported  = "unsupported"
)

// ValidLevels and ValidStatuses enumerate the accepted values for rule
// validation. Invalid values are reported at import time with the offending
// value echoed in the message.
var (
	ValidLevels   = []string{LevelInformational, LevelLow, LevelMedium, LevelHigh, LevelCritical}
	ValidStatuses = []string{StatusExperimental, StatusTest, StatusStable, StatusDeprecated, StatusUnsupported}
)

// LogSource restricts which log records a Sigma rule is considered against.
// Empty fields are unconstrained; set fields require literal equality with the
// corresponding log field.
type LogSource struct {
	Product  string `json:"product,omitempty" yaml:"product,omitempty"`
	Service  string `json:"service,omitempty" yaml:"service,omitempty"`
	Category string `json:"category,omitempty" yaml:"category,omitempty"`
}

// Empty reports whether the logsource places no constraint at all.
func (ls *LogSource) Empty() bool {
	return ls == nil || (ls.Product == "" && ls.Service == "" && ls.Category == "")
}

// SigmaRule is the persisted form of an imported Sigma detection rule.
// Rules are immutable after import except for delete.
type SigmaRule struct {
	ID               string         `json:"id"`
	Title            string         `json:"title"`
	Level            string         `json:"level"`
	Status           string         `json:"status"`
	LogSource        *LogSource     `json:"logsource,omitempty"`
	Detection        map[string]any `json:"detection"`
	Condition        []string       `json:"condition"`
	Tags             []string       `json:"tags,omitempty"`
	OrganizationID   string         `json:"organization_id"`
	ProjectID        *string        `json:"project_id,omitempty"`
	EmailRecipients  []string       `json:"email_recipients,omitempty"`
	WebhookURL       string         `json:"webhook_url,omitempty"`
	ConversionStatus string         `json:"conversion_status,omitempty"`
	Enabled          bool           `json:"enabled"`
	CreatedAt        time.Time      `json:"created_at"`
}

// AlertRule is a windowed threshold rule: "N logs of level X from service Y
// within T minutes". A nil ProjectID means the rule is org-wide.
type AlertRule struct {
	ID                string   `json:"id"`
	OrganizationID    string   `json:"organization_id"`
	ProjectID         *string  `json:"project_id,omitempty"`
	Name              string   `json:"name"`
	Service           *string  `json:"service,omitempty"`
	Levels            []string `json:"levels"`
	TimeWindowMinutes int      `json:"time_window_minutes"`
	Threshold         int      `json:"threshold"`
	Enabled           bool     `json:"enabled"`
	EmailRecipients   []string `json:"email_recipients,omitempty"`
	WebhookURL        string   `json:"webhook_url,omitempty"`
}

// AlertHistoryEntry is created exactly once per trigger. The newest entry's
// TriggeredAt is the rule's watermark: the floor of the next counting window.
// Notified and Error are set later by the notification step.
type AlertHistoryEntry struct {
	ID          string    `json:"id"`
	RuleID      string    `json:"rule_id"`
	TriggeredAt time.Time `json:"triggered_at"`
	LogCount    int       `json:"log_count"`
	Notified    bool      `json:"notified"`
	Error       *string   `json:"error,omitempty"`
}

// RuleMatch identifies one Sigma rule that matched one log record.
type RuleMatch struct {
	SigmaRuleID string    `json:"sigma_rule_id"`
	RuleTitle   string    `json:"rule_title"`
	RuleLevel   string    `json:"rule_level"`
	MatchedAt   time.Time `json:"matched_at"`
}

// EvalResult is the per-log verdict of the detection engine.
type EvalResult struct {
	Matched      bool        `json:"matched"`
	MatchedRules []RuleMatch `json:"matched_rules,omitempty"`
}

// AlertTrigger describes one threshold-rule firing produced by a
// CheckAlertRules scan.
type AlertTrigger struct {
	HistoryID         string   `json:"history_id"`
	RuleID            string   `json:"rule_id"`
	RuleName          string   `json:"rule_name"`
	OrganizationID    string   `json:"organization_id"`
	ProjectID         *string  `json:"project_id,omitempty"`
	LogCount          int      `json:"log_count"`
	Threshold         int      `json:"threshold"`
	TimeWindowMinutes int      `json:"time_window"`
	EmailRecipients   []string `json:"email_recipients,omitempty"`
	WebhookURL        string   `json:"webhook_url,omitempty"`
}

// NotificationJob is the uniform downstream payload for both Sigma matches and
// threshold triggers. Sigma matches are modeled as threshold-1,
// immediate-window triggers with a nil HistoryID (they skip alert history).
type NotificationJob struct {
	HistoryID       *string  `json:"history_id,omitempty"`
	RuleID          string   `json:"rule_id"`
	RuleName        string   `json:"rule_name"`
	LogCount        int      `json:"log_count"`
	Threshold       int      `json:"threshold"`
	TimeWindow      int      `json:"time_window"`
	EmailRecipients []string `json:"email_recipients,omitempty"`
	WebhookURL      string   `json:"webhook_url,omitempty"`
}
