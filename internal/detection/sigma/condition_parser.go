package sigma

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseCondition compiles one condition expression line into a ConditionExpr
// tree. Syntax problems are returned as error strings carrying the byte
// offset of the offending token; an expression with any error must be
// rejected at rule import time, never evaluated.
//
// Grammar, loosest to tightest: "or" < "and" < "not"; parentheses override.
// Atoms are selection names, "N of <glob>", "all of <glob>", "all of them".
func ParseCondition(text string) (ConditionExpr, []string) {
	p := &condParser{tokens: lexCondition(text), src: text}
	expr := p.parseOr()
	if tok := p.peek(); tok.typ != tokEOF {
		p.errorf(tok, "unexpected %q after end of expression", tok.val)
	}
	if len(p.errors) > 0 {
		return nil, p.errors
	}
	return expr, nil
}

// Idents returns the selection names referenced directly by the tree, for
// validation against the rule's detection block. Quantifier globs are not
// included; they resolve against the name set at evaluation time.
func Idents(expr ConditionExpr) []string {
	var names []string
	walkIdents(expr, &names)
	return names
}

func walkIdents(expr ConditionExpr, out *[]string) {
	switch e := expr.(type) {
	case identExpr:
		*out = append(*out, e.name)
	case andExpr:
		walkIdents(e.left, out)
		walkIdents(e.right, out)
	case orExpr:
		walkIdents(e.left, out)
		walkIdents(e.right, out)
	case notExpr:
		walkIdents(e.child, out)
	}
}

type condParser struct {
	tokens []token
	src    string
	pos    int
	errors []string
}

func (p *condParser) peek() token {
	if p.pos >= len(p.tokens) {
		return token{typ: tokEOF, pos: len(p.src)}
	}
	return p.tokens[p.pos]
}

func (p *condParser) advance() token {
	t := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return t
}

func (p *condParser) errorf(tok token, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	p.errors = append(p.errors, fmt.Sprintf("condition: %s at offset %d in %q", msg, tok.pos, p.src))
}

func (p *condParser) parseOr() ConditionExpr {
	left := p.parseAnd()
	for p.peek().typ == tokOr {
		p.advance()
		left = orExpr{left: left, right: p.parseAnd()}
	}
	return left
}

func (p *condParser) parseAnd() ConditionExpr {
	left := p.parseNot()
	for p.peek().typ == tokAnd {
		p.advance()
		left = andExpr{left: left, right: p.parseNot()}
	}
	return left
}

func (p *condParser) parseNot() ConditionExpr {
	if p.peek().typ == tokNot {
		p.advance()
		return notExpr{child: p.parseNot()}
	}
	return p.parseAtom()
}

func (p *condParser) parseAtom() ConditionExpr {
	t := p.peek()
	switch t.typ {
	case tokLParen:
		p.advance()
		expr := p.parseOr()
		if p.peek().typ == tokRParen {
			p.advance()
		} else {
			p.errorf(p.peek(), "expected closing parenthesis")
		}
		return expr

	case tokAll:
		p.advance()
		if p.peek().typ != tokOf {
			p.errorf(p.peek(), "expected 'of' after 'all'")
			return identExpr{name: t.val}
		}
		p.advance()
		return quantExpr{all: true, pattern: p.parseNamePattern()}

	case tokNumber:
		p.advance()
		n, err := strconv.Atoi(t.val)
		if err != nil || n < 1 {
			p.errorf(t, "quantifier count %q must be a positive integer", t.val)
			n = 1
		}
		if p.peek().typ != tokOf {
			p.errorf(p.peek(), "expected 'of' after quantifier count %q", t.val)
			return identExpr{name: t.val}
		}
		p.advance()
		return quantExpr{n: n, pattern: p.parseNamePattern()}

	case tokIdent:
		p.advance()
		if strings.Contains(t.val, "*") {
			p.errorf(t, "wildcard name %q is only valid after 'of'", t.val)
		}
		return identExpr{name: t.val}

	case tokEOF:
		p.errorf(t, "unexpected end of expression")
		return identExpr{}

	default:
		p.advance()
		p.errorf(t, "unexpected %q", t.val)
		return identExpr{}
	}
}

// parseNamePattern reads the selection-name glob after "of": a bare name,
// a name with '*' wildcards, "them" (every selection), or a lone '*'.
func (p *condParser) parseNamePattern() string {
	t := p.peek()
	switch t.typ {
	case tokThem, tokStar:
		p.advance()
		return "*"
	case tokIdent:
		p.advance()
		return t.val
	default:
		p.errorf(t, "expected selection name pattern after 'of', got %q", t.val)
		return ""
	}
}
