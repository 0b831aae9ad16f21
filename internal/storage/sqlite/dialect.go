package sqlite

import (
	"fmt"

	"carprep/internal/ddl"
)

// Dialect renders SQLite DDL. Timestamps are stored as ISO-8601 TEXT.
type Dialect struct{}

func (Dialect) QuoteIdent(id string) string { return ddl.DoubleQuote(id) }

func (Dialect) MapType(k ddl.Kind) string {
	switch k {
	case ddl.Integer:
		return "INTEGER"
	case ddl.Timestamp:
		return "TEXT"
	default:
		return "REAL"
	}
}

func (Dialect) CreateIfNotExists(table, body string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s %s;", table, body)
}
