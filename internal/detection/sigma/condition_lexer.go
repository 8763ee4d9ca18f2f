package sigma

import (
	"strings"
	"unicode"
)

type tokenType int

const (
	tokIdent  tokenType = iota // selection name
	tokAnd                     // "and"
	tokOr                      // "or"
	tokNot                     // "not"
	tokOf                      // "of"
	tokAll                     // "all"
	tokThem                    // "them"
	tokNumber                  // integer literal
	tokLParen                  // "("
	tokRParen                  // ")"
	tokStar                    // "*"
	tokEOF
)

type token struct {
	typ tokenType
	val string
	pos int
}

// lexCondition tokenizes a condition expression. Unknown characters are
// surfaced to the parser as identifier-like tokens so the error message can
// echo them.
func lexCondition(input string) []token {
	var tokens []token
	pos := 0
	for pos < len(input) {
		ch := input[pos]
		if unicode.IsSpace(rune(ch)) {
			pos++
			continue
		}
		start := pos
		switch ch {
		case '(':
			tokens = append(tokens, token{tokLParen, "(", start})
			pos++
		case ')':
			tokens = append(tokens, token{tokRParen, ")", start})
			pos++
		case '*':
			tokens = append(tokens, token{tokStar, "*", start})
			pos++
		default:
			if unicode.IsDigit(rune(ch)) {
				for pos < len(input) && unicode.IsDigit(rune(input[pos])) {
					pos++
				}
				tokens = append(tokens, token{tokNumber, input[start:pos], start})
				continue
			}
			if isIdentChar(rune(ch)) {
				for pos < len(input) && isIdentChar(rune(input[pos])) {
					pos++
				}
				word := input[start:pos]
				tokens = append(tokens, token{keywordType(word), word, start})
				continue
			}
			// unknown character: emit as a one-byte ident so the parser
			// reports it instead of silently dropping it
			tokens = append(tokens, token{tokIdent, string(ch), start})
			pos++
		}
	}
	tokens = append(tokens, token{tokEOF, "", pos})
	return tokens
}

func keywordType(word string) tokenType {
	switch strings.ToLower(word) {
	case "and":
		return tokAnd
	case "or":
		return tokOr
	case "not":
		return tokNot
	case "of":
		return tokOf
	case "all":
		return tokAll
	case "them":
		return tokThem
	default:
		return tokIdent
	}
}

func isIdentChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || r == '*'
}
