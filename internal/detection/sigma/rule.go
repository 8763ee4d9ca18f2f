package sigma

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/logward/logward/internal/detection/model"
)

// ruleDoc is the YAML shape of a Sigma rule document.
type ruleDoc struct {
	ID               string         `yaml:"id"`
	Title            string         `yaml:"title"`
	Status           string         `yaml:"status"`
	Level            string         `yaml:"level"`
	Description      string         `yaml:"description"`
	Tags             []string       `yaml:"tags"`
	LogSource        map[string]any `yaml:"logsource"`
	Detection        map[string]any `yaml:"detection"`
	EmailRecipients  []string       `yaml:"email_recipients"`
	WebhookURL       string         `yaml:"webhook_url"`
	ConversionStatus string         `yaml:"conversion_status"`
}

// ParseRuleDocument parses, validates, and normalizes one Sigma rule document.
// Structural failures (empty input, bad syntax, non-mapping root) yield a nil
// rule and a single error. Validation collects every applicable error in one
// pass instead of failing fast; the rule is nil unless validation passes.
//
// Normalization applies only to valid rules: a fresh id when absent (an
// existing id is never overwritten), level defaults to medium, status to
// stable. Everything else passes through unchanged.
func ParseRuleDocument(document string) (*Rule, []string) {
	if strings.TrimSpace(document) == "" {
		return nil, []string{"rule document is empty"}
	}
	var doc ruleDoc
	if err := yaml.Unmarshal([]byte(document), &doc); err != nil {
		return nil, []string{fmt.Sprintf("invalid rule document: %v", err)}
	}
	// a scalar document unmarshals into the zero struct without error;
	// detect it by re-parsing the root node kind
	var root yaml.Node
	_ = yaml.Unmarshal([]byte(document), &root)
	if len(root.Content) == 0 || root.Content[0].Kind != yaml.MappingNode {
		return nil, []string{"rule document root must be a mapping"}
	}

	var errs []string
	if strings.TrimSpace(doc.Title) == "" {
		errs = append(errs, "rule is missing required field 'title'")
	}
	if doc.LogSource == nil {
		errs = append(errs, "rule is missing required field 'logsource'")
	}
	if doc.Detection == nil {
		errs = append(errs, "rule is missing required field 'detection'")
	}
	if doc.Level != "" && !contains(model.ValidLevels, doc.Level) {
		errs = append(errs, fmt.Sprintf("invalid level %q, must be one of %s", doc.Level, strings.Join(model.ValidLevels, ", ")))
	}
	if doc.Status != "" && !contains(model.ValidStatuses, doc.Status) {
		errs = append(errs, fmt.Sprintf("invalid status %q, must be one of %s", doc.Status, strings.Join(model.ValidStatuses, ", ")))
	}

	var condLines []string
	var cond ConditionExpr
	var selections map[string]SelectionValue
	if doc.Detection != nil {
		raw, ok := doc.Detection["condition"]
		if !ok {
			errs = append(errs, "detection block is missing required key 'condition'")
		} else {
			var condErrs []string
			condLines, condErrs = conditionLines(raw)
			errs = append(errs, condErrs...)
		}
		var selErrs []string
		selections, selErrs = resolveSelections(doc.Detection)
		errs = append(errs, selErrs...)
		if len(condLines) > 0 {
			var condErrs []string
			cond, condErrs = compileCondition(condLines, selections)
			errs = append(errs, condErrs...)
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}

	r := &Rule{
		SigmaRule: model.SigmaRule{
			ID:               doc.ID,
			Title:            doc.Title,
			Level:            doc.Level,
			Status:           doc.Status,
			LogSource:        logsourceFromMap(doc.LogSource),
			Detection:        doc.Detection,
			Condition:        condLines,
			Tags:             doc.Tags,
			EmailRecipients:  doc.EmailRecipients,
			WebhookURL:       doc.WebhookURL,
			ConversionStatus: doc.ConversionStatus,
			Enabled:          true,
			CreatedAt:        time.Now().UTC(),
		},
		Selections: selections,
		Cond:       cond,
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Level == "" {
		r.Level = model.LevelMedium
	}
	if r.Status == "" {
		r.Status = model.StatusStable
	}
	return r, nil
}

// Compile rebuilds the evaluation-ready form of a stored rule. Stored rules
// were validated at import time, so failures here indicate corrupted storage
// and are returned as a single error.
func Compile(stored model.SigmaRule) (*Rule, error) {
	selections, selErrs := resolveSelections(stored.Detection)
	cond, condErrs := compileCondition(stored.Condition, selections)
	if errs := append(selErrs, condErrs...); len(errs) > 0 {
		return nil, fmt.Errorf("compile rule %s: %s", stored.ID, strings.Join(errs, "; "))
	}
	return &Rule{SigmaRule: stored, Selections: selections, Cond: cond}, nil
}

// conditionLines accepts the condition as a single string or a list of
// strings; a list is an implicit AND of its lines.
func conditionLines(raw any) ([]string, []string) {
	switch v := raw.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, []string{"condition must not be empty"}
		}
		return []string{v}, nil
	case []any:
		if len(v) == 0 {
			return nil, []string{"condition list must not be empty"}
		}
		lines := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok || strings.TrimSpace(s) == "" {
				return nil, []string{fmt.Sprintf("condition list entries must be non-empty strings, got %v", item)}
			}
			lines = append(lines, s)
		}
		return lines, nil
	default:
		return nil, []string{fmt.Sprintf("condition must be a string or list of strings, got %T", raw)}
	}
}

// compileCondition parses every condition line, ANDs multiple lines together,
// and validates that referenced selection names exist.
func compileCondition(lines []string, selections map[string]SelectionValue) (ConditionExpr, []string) {
	var errs []string
	var combined ConditionExpr
	for _, line := range lines {
		expr, parseErrs := ParseCondition(line)
		if len(parseErrs) > 0 {
			errs = append(errs, parseErrs...)
			continue
		}
		for _, name := range Idents(expr) {
			if _, ok := selections[name]; !ok {
				errs = append(errs, fmt.Sprintf("condition references undefined selection %q in %q", name, line))
			}
		}
		if combined == nil {
			combined = expr
		} else {
			combined = andExpr{left: combined, right: expr}
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return combined, nil
}

// resolveSelections converts every named detection entry (everything except
// "condition" and "timeframe") into its SelectionValue form once, at parse
// time, so evaluation never re-interprets the raw shapes.
func resolveSelections(detection map[string]any) (map[string]SelectionValue, []string) {
	selections := make(map[string]SelectionValue)
	var errs []string
	for name, raw := range detection {
		lower := strings.ToLower(name)
		if lower == "condition" || lower == "timeframe" {
			continue
		}
		sel, selErrs := resolveSelection(name, raw)
		selections[name] = sel
		errs = append(errs, selErrs...)
	}
	return selections, errs
}

func resolveSelection(name string, raw any) (SelectionValue, []string) {
	switch v := raw.(type) {
	case map[string]any:
		preds, errs := resolveFieldMap(name, v)
		return SelectionValue{FieldSets: [][]FieldPredicate{preds}}, errs

	case []any:
		// either a bare keyword list or a list of field maps (OR across maps)
		if len(v) == 0 {
			return SelectionValue{}, nil
		}
		if _, ok := v[0].(map[string]any); ok {
			var sets [][]FieldPredicate
			var errs []string
			for i, item := range v {
				m, ok := item.(map[string]any)
				if !ok {
					errs = append(errs, fmt.Sprintf("selection %q: entry %d mixes maps and scalars", name, i))
					continue
				}
				preds, predErrs := resolveFieldMap(name, m)
				sets = append(sets, preds)
				errs = append(errs, predErrs...)
			}
			return SelectionValue{FieldSets: sets}, errs
		}
		keywords := make([]string, 0, len(v))
		for _, item := range v {
			if item == nil {
				continue
			}
			keywords = append(keywords, stringify(item))
		}
		return SelectionValue{Keywords: keywords}, nil

	default:
		return SelectionValue{}, []string{fmt.Sprintf("selection %q has unsupported shape %T", name, raw)}
	}
}

func resolveFieldMap(name string, m map[string]any) ([]FieldPredicate, []string) {
	var preds []FieldPredicate
	var errs []string
	for key, rawValue := range m {
		field, mods := splitFieldKey(key)
		if field == "" {
			errs = append(errs, fmt.Sprintf("selection %q has an entry with an empty field name", name))
			continue
		}
		pred := FieldPredicate{Field: field, Modifiers: mods, Patterns: patternStrings(rawValue)}
		for _, mod := range mods {
			if strings.EqualFold(mod, "cased") {
				pred.CaseSensitive = true
			}
		}
		preds = append(preds, pred)
	}
	return preds, errs
}

func logsourceFromMap(m map[string]any) *model.LogSource {
	if m == nil {
		return nil
	}
	str := func(key string) string {
		if v, ok := m[key]; ok && v != nil {
			return stringify(v)
		}
		return ""
	}
	return &model.LogSource{Product: str("product"), Service: str("service"), Category: str("category")}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
