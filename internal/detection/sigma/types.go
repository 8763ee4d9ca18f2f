package sigma

import (
	"time"

	"github.com/logward/logward/internal/detection/model"
)

// FieldPredicate is one resolved "field|mod|mod: pattern" entry of a
// selection. Patterns is the flattened pattern list (an array pattern is OR
// across its elements).
type FieldPredicate struct {
	Field         string
	Modifiers     []string
	Patterns      []string
	CaseSensitive bool
}

// SelectionValue is the parse-time resolution of one named detection entry.
// Exactly one shape applies: a keyword list (bare list of strings, matched
// against every field of the record) or one or more field maps (a list of
// maps is OR across the maps, fields within a map are AND).
type SelectionValue struct {
	Keywords  []string
	FieldSets [][]FieldPredicate
}

// Empty reports whether the selection has no predicates at all. An empty
// selection evaluates to false unconditionally.
func (s SelectionValue) Empty() bool {
	if len(s.Keywords) > 0 {
		return false
	}
	for _, set := range s.FieldSets {
		if len(set) > 0 {
			return false
		}
	}
	return true
}

// ConditionExpr is a compiled condition expression tree. Trees are built once
// at parse time, carry no mutable state, and are safe for concurrent reuse.
type ConditionExpr interface {
	Eval(truth map[string]bool) bool
}

type identExpr struct{ name string }

func (e identExpr) Eval(truth map[string]bool) bool { return truth[e.name] }

type andExpr struct{ left, right ConditionExpr }

func (e andExpr) Eval(truth map[string]bool) bool {
	return e.left.Eval(truth) && e.right.Eval(truth)
}

type orExpr struct{ left, right ConditionExpr }

func (e orExpr) Eval(truth map[string]bool) bool {
	return e.left.Eval(truth) || e.right.Eval(truth)
}

type notExpr struct{ child ConditionExpr }

func (e notExpr) Eval(truth map[string]bool) bool { return !e.child.Eval(truth) }

// quantExpr implements "N of <glob>" and "all of <glob>". The glob is matched
// against the rule's selection-name set at evaluation time; the name set is
// static per rule so repeated evaluations see the same candidates.
//
// A glob matching zero selections is false, for "all of" as well as "N of":
// matched-count < N is false uniformly, with no special case for N=0.
type quantExpr struct {
	n       int // ignored when all is set
	all     bool
	pattern string
}

func (e quantExpr) Eval(truth map[string]bool) bool {
	matched, hit := 0, 0
	for name, v := range truth {
		if !globMatch(e.pattern, name, true) {
			continue
		}
		matched++
		if v {
			hit++
		}
	}
	if matched == 0 {
		return false
	}
	if e.all {
		return hit == matched
	}
	return hit >= e.n
}

// Rule is the compiled, evaluation-ready form of a Sigma rule: the persisted
// rule plus resolved selections and the compiled condition tree.
type Rule struct {
	model.SigmaRule

	Selections map[string]SelectionValue
	Cond       ConditionExpr
}

// Eval evaluates the compiled rule against one log record. The logsource
// pre-filter is applied first; a rule with an empty logsource matches any log.
func (r *Rule) Eval(log model.LogRecord) bool {
	if !logsourceAllows(r.LogSource, log) {
		return false
	}
	truth := make(map[string]bool, len(r.Selections))
	for name, sel := range r.Selections {
		truth[name] = MatchSelection(log, sel)
	}
	return r.Cond.Eval(truth)
}

// logsourceAllows checks the rule-level product/service/category filter with
// case-sensitive literal equality against the corresponding log fields.
func logsourceAllows(ls *model.LogSource, log model.LogRecord) bool {
	if ls.Empty() {
		return true
	}
	check := func(filter, field string) bool {
		if filter == "" {
			return true
		}
		v := LookupField(log, field)
		return v != nil && stringify(v) == filter
	}
	return check(ls.Product, "product") && check(ls.Service, "service") && check(ls.Category, "category")
}

// matchedAt is overridable in tests.
var matchedAt = time.Now
