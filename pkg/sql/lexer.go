package sql

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// TokenKind discriminates lexical token categories.
type TokenKind int

const (
	TokenIdentifier TokenKind = iota // unquoted or double-quoted identifier
	TokenKeyword                     // reserved SQL word
	TokenString                      // single-quoted literal, value unescaped
	TokenNumber
	TokenSymbol // operator or punctuation, one token per rune sequence
	TokenStar   // bare or qualified *
)

// Token is one lexical unit of a statement.
type Token struct {
	Kind  TokenKind
	Value string // identifiers and keywords are lower-cased
	Pos   int    // byte offset in the input
}

var (
	ErrCommentDelimiter   = errors.New("comment delimiters are not allowed")
	ErrUnterminatedString = errors.New("unterminated string literal")
	ErrUnterminatedIdent  = errors.New("unterminated quoted identifier")
	ErrDollarQuoting      = errors.New("dollar-quoted strings are not allowed")
	ErrIllegalCharacter   = errors.New("illegal character in statement")
)

// Tokenize splits a single SQL statement into tokens under PostgreSQL's
// lexical grammar. It fails closed: comment delimiters, dollar quoting,
// unterminated literals, and bytes outside the expected alphabet are all
// errors rather than best-effort tokens.
func Tokenize(input string) ([]Token, error) {
	var tokens []Token
	i := 0
	n := len(input)

	for i < n {
		c := input[i]

		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++

		case c == '-' && i+1 < n && input[i+1] == '-':
			return nil, ErrCommentDelimiter

		case c == '/' && i+1 < n && input[i+1] == '*':
			return nil, ErrCommentDelimiter

		case c == '$':
			// Covers both $$..$$ and $tag$..$tag$ openings, and also the
			// positional-parameter syntax ($1), which has no place in a
			// fully rendered statement.
			return nil, ErrDollarQuoting

		case c == '\'':
			value, next, err := scanString(input, i, false)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, Token{Kind: TokenString, Value: value, Pos: i})
			i = next

		case (c == 'e' || c == 'E') && i+1 < n && input[i+1] == '\'':
			value, next, err := scanString(input, i+1, true)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, Token{Kind: TokenString, Value: value, Pos: i})
			i = next

		case c == '"':
			value, next, err := scanQuotedIdentifier(input, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, Token{Kind: TokenIdentifier, Value: strings.ToLower(value), Pos: i})
			i = next

		case isIdentStart(rune(c)):
			start := i
			for i < n && isIdentPart(rune(input[i])) {
				i++
			}
			word := strings.ToLower(input[start:i])
			kind := TokenIdentifier
			if keywords[word] {
				kind = TokenKeyword
			}
			tokens = append(tokens, Token{Kind: kind, Value: word, Pos: start})

		case c >= '0' && c <= '9':
			start := i
			for i < n && (input[i] >= '0' && input[i] <= '9' || input[i] == '.') {
				i++
			}
			tokens = append(tokens, Token{Kind: TokenNumber, Value: input[start:i], Pos: start})

		case c == '*':
			tokens = append(tokens, Token{Kind: TokenStar, Value: "*", Pos: i})
			i++

		case strings.ContainsRune("(),.;=<>+-/%|!:[]", rune(c)):
			tokens = append(tokens, Token{Kind: TokenSymbol, Value: string(c), Pos: i})
			i++

		default:
			return nil, fmt.Errorf("%w: %q at offset %d", ErrIllegalCharacter, c, i)
		}
	}

	return tokens, nil
}

// scanString reads a single-quoted literal starting at the opening quote.
// Handles SQL standard '' doubling; backslash escapes only in E'' strings.
// Returns the literal's contents and the offset past the closing quote.
func scanString(input string, start int, backslashEscapes bool) (string, int, error) {
	var b strings.Builder
	i := start + 1
	n := len(input)

	for i < n {
		c := input[i]

		if backslashEscapes && c == '\\' && i+1 < n {
			b.WriteByte(input[i+1])
			i += 2
			continue
		}

		if c == '\'' {
			if i+1 < n && input[i+1] == '\'' {
				b.WriteByte('\'')
				i += 2
				continue
			}
			return b.String(), i + 1, nil
		}

		b.WriteByte(c)
		i++
	}

	return "", 0, ErrUnterminatedString
}

// scanQuotedIdentifier reads a double-quoted identifier, handling "" doubling.
func scanQuotedIdentifier(input string, start int) (string, int, error) {
	var b strings.Builder
	i := start + 1
	n := len(input)

	for i < n {
		c := input[i]

		if c == '"' {
			if i+1 < n && input[i+1] == '"' {
				b.WriteByte('"')
				i += 2
				continue
			}
			return b.String(), i + 1, nil
		}

		b.WriteByte(c)
		i++
	}

	return "", 0, ErrUnterminatedIdent
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
