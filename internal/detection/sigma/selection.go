package sigma

import (
	"strings"

	"github.com/logward/logward/internal/detection/model"
)

// MatchSelection evaluates one named selection against a log record.
// Field-map selections AND their fields; a list of field maps is OR across
// the maps. Keyword-list selections are true when any field of the record,
// stringified, contains any keyword. An empty selection is always false.
func MatchSelection(log model.LogRecord, sel SelectionValue) bool {
	if sel.Empty() {
		return false
	}
	if len(sel.Keywords) > 0 {
		return matchKeywords(log, sel.Keywords)
	}
	for _, set := range sel.FieldSets {
		if matchFieldSet(log, set) {
			return true
		}
	}
	return false
}

func matchFieldSet(log model.LogRecord, preds []FieldPredicate) bool {
	if len(preds) == 0 {
		return false
	}
	for _, p := range preds {
		value := LookupField(log, p.Field)
		patterns := make([]any, len(p.Patterns))
		for i, s := range p.Patterns {
			patterns[i] = s
		}
		if !Match(value, patterns, MatchOpts{Modifiers: p.Modifiers, CaseSensitive: p.CaseSensitive}) {
			return false
		}
	}
	return true
}

// matchKeywords scans every leaf value of the record for any keyword using
// contains semantics. Nested maps are traversed, not serialized.
func matchKeywords(log model.LogRecord, keywords []string) bool {
	return anyLeafContains(map[string]any(log), keywords)
}

func anyLeafContains(v any, keywords []string) bool {
	switch t := v.(type) {
	case map[string]any:
		for _, child := range t {
			if anyLeafContains(child, keywords) {
				return true
			}
		}
	case []any:
		for _, child := range t {
			if anyLeafContains(child, keywords) {
				return true
			}
		}
	case nil:
		return false
	default:
		s := strings.ToLower(stringify(t))
		for _, kw := range keywords {
			if strings.Contains(s, strings.ToLower(kw)) {
				return true
			}
		}
	}
	return false
}

// LookupField resolves a dot-path ("metadata.user.name") into a nested
// record. A missing path yields nil, which the matcher treats as "no match".
func LookupField(log model.LogRecord, path string) any {
	if path == "" {
		return nil
	}
	// fast path: top-level key, including keys that contain dots literally
	if v, ok := log[path]; ok {
		return v
	}
	parts := strings.Split(path, ".")
	var cur any = map[string]any(log)
	for _, part := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur, ok = m[part]
		if !ok {
			return nil
		}
	}
	return cur
}

// splitFieldKey splits a selection key of the form "field|mod1|mod2" into the
// field name and its modifier chain. A bare key has no modifiers.
func splitFieldKey(key string) (field string, mods []string) {
	parts := strings.Split(key, "|")
	return parts[0], parts[1:]
}
