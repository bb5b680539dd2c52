// Package schema holds the immutable descriptor of the e-commerce database.
package schema

import (
	"sort"
	"strings"
)

// Column describes one column of a table.
type Column struct {
	Name     string
	DataType string
}

// Table describes one table with its columns in ordinal order.
type Table struct {
	Name    string
	Columns []Column
}

// Descriptor is the in-memory representation of the database schema.
// It is built once at startup and never mutated afterwards, so it may be
// read concurrently without synchronization.
type Descriptor struct {
	tables []Table
	// lookup maps lower-cased table name to its lower-cased column set.
	lookup map[string]map[string]struct{}
}

// NewDescriptor builds a Descriptor from the given tables. Table order is
// normalized to name order so prompt construction stays deterministic.
func NewDescriptor(tables []Table) *Descriptor {
	sorted := make([]Table, len(tables))
	copy(sorted, tables)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	lookup := make(map[string]map[string]struct{}, len(sorted))
	for _, t := range sorted {
		cols := make(map[string]struct{}, len(t.Columns))
		for _, c := range t.Columns {
			cols[strings.ToLower(c.Name)] = struct{}{}
		}
		lookup[strings.ToLower(t.Name)] = cols
	}

	return &Descriptor{tables: sorted, lookup: lookup}
}

// Tables returns the table definitions in name order. Callers must not
// mutate the returned slice.
func (d *Descriptor) Tables() []Table {
	return d.tables
}

// IsEmpty reports whether the descriptor contains no tables.
func (d *Descriptor) IsEmpty() bool {
	return len(d.tables) == 0
}

// HasTable reports whether the named table exists. Matching is
// case-insensitive, following PostgreSQL's folding of unquoted identifiers.
func (d *Descriptor) HasTable(table string) bool {
	_, ok := d.lookup[strings.ToLower(table)]
	return ok
}

// Contains reports whether the named column exists on the named table.
func (d *Descriptor) Contains(table, column string) bool {
	cols, ok := d.lookup[strings.ToLower(table)]
	if !ok {
		return false
	}
	_, ok = cols[strings.ToLower(column)]
	return ok
}

// HasColumn reports whether any table has a column with the given name.
// Used to resolve unqualified column references.
func (d *Descriptor) HasColumn(column string) bool {
	lower := strings.ToLower(column)
	for _, cols := range d.lookup {
		if _, ok := cols[lower]; ok {
			return true
		}
	}
	return false
}
