// Package prompt composes the instruction template sent to the language model.
package prompt

import (
	"fmt"
	"strings"

	"github.com/shopquery-inc/shopquery-engine/pkg/apperrors"
	"github.com/shopquery-inc/shopquery-engine/pkg/schema"
)

// RefusalMarker is the exact prefix the model is instructed to emit when a
// question cannot be answered from the schema. The translator treats any
// response carrying it as a refusal rather than a candidate statement.
const RefusalMarker = "CANNOT_ANSWER:"

// SystemPrompt returns the system message establishing the model's role and
// output contract. Deterministic: same schema always yields the same text.
func SystemPrompt(d *schema.Descriptor) (string, error) {
	if d.IsEmpty() {
		return "", apperrors.ErrEmptySchema
	}

	return fmt.Sprintf(`You are a SQL query generator for a PostgreSQL e-commerce database. You convert natural language questions into SQL queries.

RULES:
1. Output ONLY the SQL query - no explanations, no markdown code blocks, no comments
2. Output exactly ONE statement, terminated with a semicolon
3. Use only SELECT statements (a WITH clause whose parts are all SELECT is fine) - never INSERT, UPDATE, DELETE, DROP, or any other modifying statement
4. Use ONLY the tables and columns listed in the schema below - never invent names
5. Use table aliases for readability when joining multiple tables
6. Rows are capped by the service, but still prefer a LIMIT clause for potentially large results

DATABASE SCHEMA:
%s
If the question cannot be answered with the available tables and columns, respond with exactly:
%s <one sentence explaining what is missing>`, DescribeSchema(d), RefusalMarker), nil
}

// Build composes the per-question user prompt. Deterministic - no randomness,
// no timestamps.
func Build(question string, d *schema.Descriptor) (string, error) {
	if d.IsEmpty() {
		return "", apperrors.ErrEmptySchema
	}
	return fmt.Sprintf("Convert the following question into a single PostgreSQL SELECT statement:\n%q", strings.TrimSpace(question)), nil
}

// DescribeSchema renders every table and column of the descriptor as a
// stable, human-readable block for prompt embedding.
func DescribeSchema(d *schema.Descriptor) string {
	var b strings.Builder
	for _, t := range d.Tables() {
		fmt.Fprintf(&b, "TABLE %s (\n", t.Name)
		for i, c := range t.Columns {
			sep := ","
			if i == len(t.Columns)-1 {
				sep = ""
			}
			fmt.Fprintf(&b, "  %s %s%s\n", c.Name, c.DataType, sep)
		}
		b.WriteString(")\n")
	}
	return b.String()
}
