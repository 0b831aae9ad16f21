package postgres

import (
	"fmt"

	"carprep/internal/ddl"
)

// Dialect renders Postgres DDL.
type Dialect struct{}

func (Dialect) QuoteIdent(id string) string { return ddl.DoubleQuote(id) }

func (Dialect) MapType(k ddl.Kind) string {
	switch k {
	case ddl.Integer:
		return "INTEGER"
	case ddl.Timestamp:
		return "TIMESTAMPTZ"
	default:
		return "DOUBLE PRECISION"
	}
}

func (Dialect) CreateIfNotExists(table, body string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s %s;", table, body)
}
