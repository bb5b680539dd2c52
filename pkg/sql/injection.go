package sql

import (
	"fmt"

	libinjection "github.com/corazawaf/libinjection-go"
)

// checkLiterals runs libinjection over the contents of every string literal
// in the token stream. A literal whose content fingerprints as SQL injection
// means the model concatenated an untrusted fragment into the statement
// outside the literal grammar; the statement is rejected.
func checkLiterals(tokens []Token) error {
	for _, tok := range tokens {
		if tok.Kind != TokenString {
			continue
		}
		if isSQLi, fingerprint := libinjection.IsSQLi(tok.Value); isSQLi {
			return fmt.Errorf("%w (fingerprint %s)", ErrSuspiciousLiteral, fingerprint)
		}
	}
	return nil
}

// ScreenQuestion checks a raw user question for SQL injection patterns
// before it is ever sent to the model. A natural-language question carrying
// an injection fingerprint is refused up front - a cheap first layer ahead
// of the structural validator.
//
// Returns the fingerprint and true when an injection pattern is detected.
func ScreenQuestion(question string) (string, bool) {
	isSQLi, fingerprint := libinjection.IsSQLi(question)
	if isSQLi {
		return string(fingerprint), true
	}
	return "", false
}
