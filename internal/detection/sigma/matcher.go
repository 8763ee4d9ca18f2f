package sigma

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// MatchOpts controls how a single field value is compared against a pattern.
type MatchOpts struct {
	Modifiers     []string // modifier chain from the selection key, in order
	CaseSensitive bool     // force exact-case comparison (default is case-insensitive)
}

// Match compares one log value against one pattern. A nil/missing value never
// matches. Array values match if any element matches; array patterns match if
// any pattern matches. Pattern errors (bad regex, malformed base64 in the
// value) degrade to "no match" and never propagate.
func Match(value any, pattern any, opts MatchOpts) bool {
	if value == nil {
		return false
	}
	if arr, ok := value.([]any); ok {
		for _, v := range arr {
			if Match(v, pattern, opts) {
				return true
			}
		}
		return false
	}
	patterns := patternStrings(pattern)
	if len(patterns) == 0 {
		return false
	}
	val := stringify(value)

	plan := compileModifiers(opts.Modifiers)
	if plan.base64 {
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(val))
		if err != nil {
			return false
		}
		val = string(decoded)
	}
	for _, p := range patterns {
		if matchOne(val, p, plan, opts.CaseSensitive) {
			return true
		}
	}
	return false
}

// modifierPlan is the resolved meaning of a modifier chain: an optional value
// transform (base64 decode) followed by one comparison operator.
type modifierPlan struct {
	op     string // "", "contains", "startswith", "endswith", "re"
	all    bool   // pattern is a whitespace-separated token list, all required
	base64 bool   // decode the value before testing
}

func compileModifiers(mods []string) modifierPlan {
	var plan modifierPlan
	for _, m := range mods {
		switch strings.ToLower(strings.TrimSpace(m)) {
		case "contains":
			plan.op = "contains"
		case "startswith":
			plan.op = "startswith"
		case "endswith":
			plan.op = "endswith"
		case "re":
			plan.op = "re"
		case "all":
			plan.all = true
		case "base64":
			plan.base64 = true
			if plan.op == "" {
				plan.op = "contains"
			}
		case "cased":
			// handled by the caller via MatchOpts; kept here so an unknown
			// modifier warning is not raised for it
		}
	}
	return plan
}

func matchOne(val, pattern string, plan modifierPlan, caseSensitive bool) bool {
	if plan.all {
		op := plan.op
		if op == "" || op == "re" {
			op = "contains"
		}
		for _, tok := range strings.Fields(pattern) {
			if !compare(val, tok, op, caseSensitive) {
				return false
			}
		}
		return true
	}
	if plan.op == "" {
		return globMatch(pattern, val, caseSensitive)
	}
	return compare(val, pattern, plan.op, caseSensitive)
}

func compare(val, pattern, op string, caseSensitive bool) bool {
	if op == "re" {
		expr := pattern
		if !caseSensitive {
			expr = "(?i)" + expr
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			// invalid regex is a non-match, never an error
			return false
		}
		return re.MatchString(val)
	}
	if !caseSensitive {
		val = strings.ToLower(val)
		pattern = strings.ToLower(pattern)
	}
	switch op {
	case "contains":
		return strings.Contains(val, pattern)
	case "startswith":
		return strings.HasPrefix(val, pattern)
	case "endswith":
		return strings.HasSuffix(val, pattern)
	default:
		return val == pattern
	}
}

// globMatch matches s against a pattern with '*' (zero or more characters)
// and '?' (exactly one character).
func globMatch(pattern, s string, caseSensitive bool) bool {
	if !caseSensitive {
		pattern = strings.ToLower(pattern)
		s = strings.ToLower(s)
	}
	return globMatchRunes([]rune(pattern), []rune(s))
}

func globMatchRunes(pattern, s []rune) bool {
	// iterative wildcard matching with backtracking over the last '*'
	var pi, si int
	starPi, starSi := -1, 0
	for si < len(s) {
		switch {
		case pi < len(pattern) && (pattern[pi] == '?' || pattern[pi] == s[si]):
			pi++
			si++
		case pi < len(pattern) && pattern[pi] == '*':
			starPi = pi
			starSi = si
			pi++
		case starPi >= 0:
			starSi++
			pi = starPi + 1
			si = starSi
		default:
			return false
		}
	}
	for pi < len(pattern) && pattern[pi] == '*' {
		pi++
	}
	return pi == len(pattern)
}

// patternStrings flattens a scalar or array pattern to strings. Numbers and
// booleans are stringified the same way log values are.
func patternStrings(pattern any) []string {
	switch p := pattern.(type) {
	case nil:
		return nil
	case []any:
		out := make([]string, 0, len(p))
		for _, item := range p {
			if item == nil {
				continue
			}
			out = append(out, stringify(item))
		}
		return out
	case []string:
		return p
	default:
		return []string{stringify(p)}
	}
}

// stringify renders a scalar log value for comparison.
func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float64:
		// YAML/JSON numbers arrive as float64; keep integral values clean
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}
