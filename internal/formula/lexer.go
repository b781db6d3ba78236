package formula

import (
	"fmt"
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokString
	tokIdent
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokPercent
	tokPow
	tokLParen
	tokRParen
	tokComma
	tokDot
)

var tokenNames = map[tokenKind]string{
	tokEOF:     "end of formula",
	tokNumber:  "number",
	tokString:  "string",
	tokIdent:   "identifier",
	tokPlus:    "'+'",
	tokMinus:   "'-'",
	tokStar:    "'*'",
	tokSlash:   "'/'",
	tokPercent: "'%'",
	tokPow:     "'**'",
	tokLParen:  "'('",
	tokRParen:  "')'",
	tokComma:   "','",
	tokDot:     "'.'",
}

func (k tokenKind) String() string {
	return tokenNames[k]
}

type token struct {
	kind tokenKind
	text string
	num  float64
	pos  int
}

// lex splits src into tokens. Positions are byte offsets used in errors.
func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r':
			i++
		case isDigit(c) || (c == '.' && i+1 < len(src) && isDigit(src[i+1])):
			end := scanNumber(src, i)
			v, err := strconv.ParseFloat(src[i:end], 64)
			if err != nil {
				return nil, fmt.Errorf("%w: bad number %q at %d", ErrSyntax, src[i:end], i)
			}
			toks = append(toks, token{kind: tokNumber, text: src[i:end], num: v, pos: i})
			i = end
		case isIdentStart(c):
			end := i + 1
			for end < len(src) && (isIdentStart(src[end]) || isDigit(src[end])) {
				end++
			}
			toks = append(toks, token{kind: tokIdent, text: src[i:end], pos: i})
			i = end
		case c == '"':
			end, err := scanString(src, i)
			if err != nil {
				return nil, err
			}
			s, err := strconv.Unquote(src[i:end])
			if err != nil {
				return nil, fmt.Errorf("%w: bad string literal at %d", ErrSyntax, i)
			}
			toks = append(toks, token{kind: tokString, text: s, pos: i})
			i = end
		case c == '*' && i+1 < len(src) && src[i+1] == '*':
			toks = append(toks, token{kind: tokPow, text: "**", pos: i})
			i += 2
		default:
			kind, ok := punctuation[c]
			if !ok {
				return nil, fmt.Errorf("%w: unexpected character %q at %d", ErrSyntax, c, i)
			}
			toks = append(toks, token{kind: kind, text: string(c), pos: i})
			i++
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: len(src)})
	return toks, nil
}

var punctuation = map[byte]tokenKind{
	'+': tokPlus,
	'-': tokMinus,
	'*': tokStar,
	'/': tokSlash,
	'%': tokPercent,
	'(': tokLParen,
	')': tokRParen,
	',': tokComma,
	'.': tokDot,
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// isIdentStart accepts ASCII letters and underscore only.
func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// scanNumber returns the end of a decimal literal such as 1, 1.5, .5 or 2e-3.
func scanNumber(src string, i int) int {
	for i < len(src) && isDigit(src[i]) {
		i++
	}
	if i < len(src) && src[i] == '.' {
		i++
		for i < len(src) && isDigit(src[i]) {
			i++
		}
	}
	if i < len(src) && (src[i] == 'e' || src[i] == 'E') {
		j := i + 1
		if j < len(src) && (src[j] == '+' || src[j] == '-') {
			j++
		}
		if j < len(src) && isDigit(src[j]) {
			i = j
			for i < len(src) && isDigit(src[i]) {
				i++
			}
		}
	}
	return i
}

func scanString(src string, start int) (int, error) {
	i := start + 1
	for i < len(src) {
		switch src[i] {
		case '\\':
			i += 2
			continue
		case '"':
			return i + 1, nil
		}
		i++
	}
	return 0, fmt.Errorf("%w: unterminated string starting at %d: %s", ErrSyntax, start, strings.TrimSpace(src[start:]))
}
