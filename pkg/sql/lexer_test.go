package sql

import (
	"errors"
	"testing"
)

func TestTokenize_Classification(t *testing.T) {
	tokens, err := Tokenize("SELECT name, COUNT(*) AS n FROM customers WHERE id = 42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []Token{
		{Kind: TokenKeyword, Value: "select"},
		{Kind: TokenIdentifier, Value: "name"},
		{Kind: TokenSymbol, Value: ","},
		{Kind: TokenIdentifier, Value: "count"},
		{Kind: TokenSymbol, Value: "("},
		{Kind: TokenStar, Value: "*"},
		{Kind: TokenSymbol, Value: ")"},
		{Kind: TokenKeyword, Value: "as"},
		{Kind: TokenIdentifier, Value: "n"},
		{Kind: TokenKeyword, Value: "from"},
		{Kind: TokenIdentifier, Value: "customers"},
		{Kind: TokenKeyword, Value: "where"},
		{Kind: TokenIdentifier, Value: "id"},
		{Kind: TokenSymbol, Value: "="},
		{Kind: TokenNumber, Value: "42"},
	}
	if len(tokens) != len(want) {
		t.Fatalf("token count = %d, want %d", len(tokens), len(want))
	}
	for i, w := range want {
		if tokens[i].Kind != w.Kind || tokens[i].Value != w.Value {
			t.Errorf("token %d = {%d %q}, want {%d %q}",
				i, tokens[i].Kind, tokens[i].Value, w.Kind, w.Value)
		}
	}
}

func TestTokenize_StringLiterals(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "'hello'", "hello"},
		{"doubled quote", "'O''Brien'", "O'Brien"},
		{"semicolon inside", "'a;b'", "a;b"},
		{"escape string backslash", `E'a\'b'`, "a'b"},
		{"comment chars inside", "'not -- a comment'", "not -- a comment"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := Tokenize(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(tokens) != 1 || tokens[0].Kind != TokenString {
				t.Fatalf("expected single string token, got %+v", tokens)
			}
			if tokens[0].Value != tt.want {
				t.Fatalf("value = %q, want %q", tokens[0].Value, tt.want)
			}
		})
	}
}

func TestTokenize_QuotedIdentifiers(t *testing.T) {
	tokens, err := Tokenize(`SELECT "Name" FROM "Customers"`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tokens[1].Kind != TokenIdentifier || tokens[1].Value != "name" {
		t.Fatalf("quoted identifier not folded: %+v", tokens[1])
	}
	if tokens[3].Value != "customers" {
		t.Fatalf("quoted table not folded: %+v", tokens[3])
	}
}

func TestTokenize_FailsClosed(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"line comment", "SELECT 1 -- x", ErrCommentDelimiter},
		{"block comment open", "SELECT /* x */ 1", ErrCommentDelimiter},
		{"dollar quoting", "SELECT $$x$$", ErrDollarQuoting},
		{"dollar tag", "SELECT $tag$x$tag$", ErrDollarQuoting},
		{"positional parameter", "SELECT $1", ErrDollarQuoting},
		{"unterminated string", "SELECT 'x", ErrUnterminatedString},
		{"unterminated escape string", `SELECT E'x`, ErrUnterminatedString},
		{"unterminated identifier", `SELECT "x`, ErrUnterminatedIdent},
		{"illegal byte", "SELECT \x01", ErrIllegalCharacter},
		{"backtick", "SELECT `x`", ErrIllegalCharacter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Tokenize(tt.input)
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestTokenize_CastOperator(t *testing.T) {
	tokens, err := Tokenize("SELECT price::numeric FROM products")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tokens[2].Value != ":" || tokens[3].Value != ":" {
		t.Fatalf("cast operator not tokenized: %+v", tokens[2:4])
	}
}
