// Package schema prepares the target relation for ingestion: a uniquely keyed
// time-partitioned table of (timestamp, frequency) pairs.
//
// This file generates the Postgres DDL. Identifiers are double-quoted and
// embedded quotes escaped; schema-qualified names like "public.t" are quoted
// per segment.
package schema

import (
	"fmt"
	"strings"
)

// Columns enumerates the target relation's columns in COPY/INSERT order.
var Columns = []string{"timestamp", "frequency"}

// CreateTableSQL builds the CREATE TABLE statement for the target relation:
// timestamp is the primary key, frequency a double-precision float, both
// NOT NULL.
func CreateTableSQL(table string) string {
	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n  %s TIMESTAMPTZ NOT NULL,\n  %s DOUBLE PRECISION NOT NULL,\n  PRIMARY KEY (%s)\n);",
		quoteFQN(table), quoteIdent("timestamp"), quoteIdent("frequency"), quoteIdent("timestamp"),
	)
}

// DropTableSQL builds the destructive rebuild statement.
func DropTableSQL(table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE;", quoteFQN(table))
}

// TruncateSQL builds the clean-load statement.
func TruncateSQL(table string) string {
	return fmt.Sprintf("TRUNCATE TABLE %s;", quoteFQN(table))
}

// quoteIdent quotes a single identifier segment for Postgres, e.g.
//
//	quoteIdent(`pcv`)        => `"pcv"`
//	quoteIdent(`weird"name`) => `"weird""name"`
func quoteIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

// quoteFQN quotes a possibly schema-qualified name like "public.users" to
// `"public"."users"`. Empty segments are ignored.
func quoteFQN(f string) string {
	parts := strings.Split(f, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		out = append(out, quoteIdent(p))
	}
	return strings.Join(out, ".")
}

// bareName strips an optional schema qualifier; catalog lookups key on the
// unqualified relation name.
func bareName(table string) string {
	if i := strings.LastIndexByte(table, '.'); i >= 0 {
		return table[i+1:]
	}
	return table
}
