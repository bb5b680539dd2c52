// Package sql provides SQL safety validation for model-generated statements.
//
// This package is the system's security boundary: only a ValidatedQuery may
// reach the executor. Validation is structural - the statement is tokenized
// under PostgreSQL's lexical grammar and the token stream is inspected -
// because textual blocklists alone are bypassable. On any ambiguity or lexer
// error the statement is rejected.
package sql

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopquery-inc/shopquery-engine/pkg/schema"
)

var (
	// ErrMultipleStatements indicates the query contains multiple SQL statements.
	ErrMultipleStatements = errors.New("multiple SQL statements not allowed; only single statements are permitted")
	// ErrEmptyStatement indicates there was nothing to validate.
	ErrEmptyStatement = errors.New("empty SQL statement")
	// ErrNotReadOnly indicates a statement whose verb is not a read.
	ErrNotReadOnly = errors.New("only read-only SELECT statements are allowed")
	// ErrUnknownIdentifier indicates a reference that does not resolve
	// against the schema descriptor.
	ErrUnknownIdentifier = errors.New("statement references an unknown table or column")
	// ErrForbiddenConstruct indicates an administrative or otherwise
	// disallowed construct.
	ErrForbiddenConstruct = errors.New("statement uses a forbidden construct")
	// ErrUnbalancedParens indicates the statement does not parse as one
	// well-formed query.
	ErrUnbalancedParens = errors.New("unbalanced parentheses")
	// ErrSuspiciousLiteral indicates a string literal carrying an injection
	// pattern.
	ErrSuspiciousLiteral = errors.New("string literal contains a SQL injection pattern")
)

// ValidatedQuery is SQL text that has passed every safety rule. It is only
// produced by Validate; the executor accepts nothing else.
type ValidatedQuery struct {
	sql string
}

// SQL returns the validated statement text.
func (v ValidatedQuery) SQL() string {
	return v.sql
}

// allowedBareWords are identifiers with positional meaning inside accepted
// functions and casts (date parts, type names). They resolve without a
// schema lookup.
var allowedBareWords = map[string]bool{
	// EXTRACT/date_trunc field names
	"century": true, "day": true, "decade": true, "dow": true, "doy": true,
	"epoch": true, "hour": true, "isodow": true, "isoyear": true,
	"microseconds": true, "millennium": true, "milliseconds": true,
	"minute": true, "month": true, "quarter": true, "second": true,
	"timezone": true, "week": true, "year": true,

	// cast target type names
	"bigint": true, "boolean": true, "char": true, "date": true,
	"decimal": true, "double": true, "float": true, "int": true,
	"integer": true, "numeric": true, "precision": true, "real": true,
	"smallint": true, "text": true, "time": true, "timestamp": true,
	"timestamptz": true, "varchar": true,

	// parenless date functions
	"current_date": true, "current_timestamp": true, "current_time": true,
	"localtimestamp": true,
}

// Validate checks a candidate statement against the schema descriptor and
// returns a ValidatedQuery only if every safety rule holds:
//
//  1. exactly one statement;
//  2. read-only verb (SELECT, or WITH composed solely of SELECTs);
//  3. every table/column reference resolves against the descriptor;
//  4. no comment delimiters, the text tokenizes cleanly, parentheses balance;
//  5. no administrative or file-system-affecting constructs;
//  6. no injection patterns inside string literals.
//
// Validate is a pure function of (text, schema): re-validating accepted text
// yields the same decision.
func Validate(candidate string, d *schema.Descriptor) (ValidatedQuery, error) {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ValidatedQuery{}, ErrEmptyStatement
	}

	normalized := stripTrailingSemicolon(trimmed)
	if normalized == "" {
		return ValidatedQuery{}, ErrEmptyStatement
	}
	if hasSemicolonOutsideStrings(normalized) {
		return ValidatedQuery{}, ErrMultipleStatements
	}

	tokens, err := Tokenize(normalized)
	if err != nil {
		return ValidatedQuery{}, err
	}
	if len(tokens) == 0 {
		return ValidatedQuery{}, ErrEmptyStatement
	}

	// The textual pre-filter above is only a cheap first pass; the token
	// stream is authoritative. After the trailing terminator is stripped, a
	// remaining ';' token is a statement separator however the surrounding
	// quotes were arranged.
	for _, tok := range tokens {
		if tok.Kind == TokenSymbol && tok.Value == ";" {
			return ValidatedQuery{}, ErrMultipleStatements
		}
	}

	if tokens[0].Kind != TokenKeyword || (tokens[0].Value != "select" && tokens[0].Value != "with") {
		return ValidatedQuery{}, ErrNotReadOnly
	}

	if err := checkBalance(tokens); err != nil {
		return ValidatedQuery{}, err
	}

	// Blocked verbs anywhere in the stream: covers data-modifying CTEs,
	// SELECT ... INTO, FOR UPDATE locking and administrative commands.
	for _, tok := range tokens {
		if tok.Kind == TokenKeyword && blockedKeywords[tok.Value] {
			return ValidatedQuery{}, fmt.Errorf("%w: %s", ErrForbiddenConstruct, strings.ToUpper(tok.Value))
		}
	}

	scope := collectScope(tokens, d)
	if scope.err != nil {
		return ValidatedQuery{}, scope.err
	}

	if err := resolveIdentifiers(tokens, d, scope); err != nil {
		return ValidatedQuery{}, err
	}

	if err := checkLiterals(tokens); err != nil {
		return ValidatedQuery{}, err
	}

	return ValidatedQuery{sql: normalized}, nil
}

// queryScope holds names defined by the query itself: CTEs, table aliases,
// and output aliases. These resolve in addition to the schema descriptor.
type queryScope struct {
	ctes    map[string]bool   // WITH names and derived-table aliases; columns unverifiable
	aliases map[string]string // table alias -> real table name
	outputs map[string]bool   // SELECT-list aliases, usable in GROUP/ORDER BY
	err     error
}

// collectScope walks the token stream once to pick up CTE names, FROM/JOIN
// table references with their aliases, and SELECT-list aliases. Unknown
// table names are rejected here, before column resolution.
func collectScope(tokens []Token, d *schema.Descriptor) *queryScope {
	s := &queryScope{
		ctes:    make(map[string]bool),
		aliases: make(map[string]string),
		outputs: make(map[string]bool),
	}

	// CTE names: WITH name AS ( ... ) [, name AS ( ... )]
	for i := 0; i+2 < len(tokens); i++ {
		if tokens[i].Kind == TokenIdentifier &&
			tokens[i+1].Kind == TokenKeyword && tokens[i+1].Value == "as" &&
			tokens[i+2].Kind == TokenSymbol && tokens[i+2].Value == "(" {
			s.ctes[tokens[i].Value] = true
		}
	}

	// FROM/JOIN table references and their aliases. A paren-context stack
	// tells query parens (subqueries, CTE bodies) apart from expression
	// parens, so FROM inside EXTRACT(year FROM col) or SUBSTRING(x FROM 1)
	// never binds a table.
	const (
		stateIdle = iota
		stateExpectTable
		stateAfterTable
	)
	state := stateIdle
	inQuery := true
	var contextStack []bool
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]

		if tok.Kind == TokenSymbol && tok.Value == "(" {
			contextStack = append(contextStack, inQuery)
			next := tokenAt(tokens, i+1)
			inQuery = next != nil && next.Kind == TokenKeyword &&
				(next.Value == "select" || next.Value == "with")
			if state == stateExpectTable {
				state = stateIdle
			}
			continue
		}
		if tok.Kind == TokenSymbol && tok.Value == ")" {
			if len(contextStack) > 0 {
				inQuery = contextStack[len(contextStack)-1]
				contextStack = contextStack[:len(contextStack)-1]
			}
			state = stateIdle
			continue
		}

		if inQuery && tok.Kind == TokenKeyword && (tok.Value == "from" || tok.Value == "join") {
			state = stateExpectTable
			continue
		}

		switch state {
		case stateExpectTable:
			switch {
			case tok.Kind == TokenSymbol && tok.Value == ",":
				// next table in a comma-separated FROM list
			case tok.Kind == TokenIdentifier:
				if !s.ctes[tok.Value] && !d.HasTable(tok.Value) {
					s.err = fmt.Errorf("%w: table %q", ErrUnknownIdentifier, tok.Value)
					return s
				}
				// optional [AS] alias
				j := i + 1
				if j < len(tokens) && tokens[j].Kind == TokenKeyword && tokens[j].Value == "as" {
					j++
				}
				if j < len(tokens) && tokens[j].Kind == TokenIdentifier {
					if s.ctes[tok.Value] {
						s.ctes[tokens[j].Value] = true
					} else {
						s.aliases[tokens[j].Value] = tok.Value
					}
					i = j
				}
				state = stateAfterTable
			default:
				state = stateIdle
			}
		case stateAfterTable:
			if tok.Kind == TokenSymbol && tok.Value == "," {
				state = stateExpectTable
			} else if !(tok.Kind == TokenKeyword && tok.Value == "as") {
				state = stateIdle
			}
		}
	}

	// Derived-table and output aliases: ") [AS] ident" marks the name of a
	// subquery or expression; "expr AS ident" in the SELECT list marks an
	// output column. Both resolve as query-defined names.
	for i := 0; i+1 < len(tokens); i++ {
		if tokens[i].Kind == TokenKeyword && tokens[i].Value == "as" &&
			tokens[i+1].Kind == TokenIdentifier {
			if i > 0 && tokens[i-1].Kind == TokenSymbol && tokens[i-1].Value == ")" {
				s.ctes[tokens[i+1].Value] = true
			} else {
				s.outputs[tokens[i+1].Value] = true
			}
		}
		if tokens[i].Kind == TokenSymbol && tokens[i].Value == ")" &&
			tokens[i+1].Kind == TokenIdentifier {
			s.ctes[tokens[i+1].Value] = true
		}
	}

	return s
}

// resolveIdentifiers checks every identifier token against the schema
// descriptor and the query scope. Function calls must be whitelisted;
// qualified references must resolve through a known table, alias, or CTE;
// bare identifiers must name a known table, column, alias, or date/type word.
func resolveIdentifiers(tokens []Token, d *schema.Descriptor, scope *queryScope) error {
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if tok.Kind != TokenIdentifier {
			continue
		}

		next := tokenAt(tokens, i+1)
		prev := tokenAt(tokens, i-1)

		// function call
		if next != nil && next.Kind == TokenSymbol && next.Value == "(" {
			if !allowedFunctions[tok.Value] {
				return fmt.Errorf("%w: function %q", ErrForbiddenConstruct, tok.Value)
			}
			continue
		}

		// qualifier position: ident '.' ...
		if next != nil && next.Kind == TokenSymbol && next.Value == "." {
			if err := resolveQualified(tokens, i, d, scope); err != nil {
				return err
			}
			i += 2 // skip '.' and the member token
			continue
		}

		// member position already consumed by resolveQualified
		if prev != nil && prev.Kind == TokenSymbol && prev.Value == "." {
			continue
		}

		if resolvesBare(tok.Value, d, scope) {
			continue
		}
		return fmt.Errorf("%w: %q", ErrUnknownIdentifier, tok.Value)
	}
	return nil
}

// resolveQualified validates a two-part reference starting at tokens[i]
// (qualifier '.' member). The qualifier must be a table alias, a schema
// table, or a CTE/derived name; qualification through anything else - such
// as pg_catalog or another database - is rejected.
func resolveQualified(tokens []Token, i int, d *schema.Descriptor, scope *queryScope) error {
	qualifier := tokens[i].Value
	member := tokenAt(tokens, i+2)
	if member == nil {
		return fmt.Errorf("%w: dangling qualifier %q", ErrUnknownIdentifier, qualifier)
	}

	table := ""
	switch {
	case scope.aliases[qualifier] != "":
		table = scope.aliases[qualifier]
	case d.HasTable(qualifier):
		table = qualifier
	case scope.ctes[qualifier]:
		// CTE columns are query-defined; require the member to at least be
		// a known column name or query-defined alias.
		if member.Kind == TokenStar {
			return nil
		}
		if member.Kind == TokenIdentifier &&
			(d.HasColumn(member.Value) || scope.outputs[member.Value]) {
			return nil
		}
		return fmt.Errorf("%w: %q.%q", ErrUnknownIdentifier, qualifier, member.Value)
	default:
		return fmt.Errorf("%w: qualifier %q", ErrUnknownIdentifier, qualifier)
	}

	if member.Kind == TokenStar {
		return nil
	}
	if member.Kind == TokenIdentifier && d.Contains(table, member.Value) {
		return nil
	}
	return fmt.Errorf("%w: %q.%q", ErrUnknownIdentifier, qualifier, member.Value)
}

func resolvesBare(name string, d *schema.Descriptor, scope *queryScope) bool {
	return d.HasTable(name) ||
		d.HasColumn(name) ||
		scope.aliases[name] != "" ||
		scope.ctes[name] ||
		scope.outputs[name] ||
		allowedBareWords[name]
}

func tokenAt(tokens []Token, i int) *Token {
	if i < 0 || i >= len(tokens) {
		return nil
	}
	return &tokens[i]
}

func checkBalance(tokens []Token) error {
	depth := 0
	for _, tok := range tokens {
		if tok.Kind != TokenSymbol {
			continue
		}
		switch tok.Value {
		case "(":
			depth++
		case ")":
			depth--
			if depth < 0 {
				return ErrUnbalancedParens
			}
		}
	}
	if depth != 0 {
		return ErrUnbalancedParens
	}
	return nil
}

// hasSemicolonOutsideStrings returns true if the SQL contains any semicolon
// outside of string literals. Quotes close on the next quote character, the
// same rule the lexer applies: a backslash is literal text in standard SQL
// strings, and the '' doubling form flips the state twice. The token stream
// check in Validate remains authoritative.
func hasSemicolonOutsideStrings(sqlQuery string) bool {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
	)

	state := stateNormal

	for _, char := range sqlQuery {
		switch state {
		case stateNormal:
			switch char {
			case ';':
				return true
			case '\'':
				state = stateSingleQuote
			case '"':
				state = stateDoubleQuote
			}
		case stateSingleQuote:
			if char == '\'' {
				state = stateNormal
			}
		case stateDoubleQuote:
			if char == '"' {
				state = stateNormal
			}
		}
	}

	return false
}

// stripTrailingSemicolon removes one trailing statement terminator and any
// surrounding whitespace.
func stripTrailingSemicolon(sqlQuery string) string {
	sqlQuery = strings.TrimRight(sqlQuery, " \t\n\r")
	if strings.HasSuffix(sqlQuery, ";") {
		sqlQuery = strings.TrimSuffix(sqlQuery, ";")
		sqlQuery = strings.TrimRight(sqlQuery, " \t\n\r")
	}
	return sqlQuery
}
