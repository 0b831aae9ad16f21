package mysql

import (
	"fmt"

	"carprep/internal/ddl"
)

// Dialect renders MySQL DDL.
type Dialect struct{}

func (Dialect) QuoteIdent(id string) string { return quoteIdent(id) }

func (Dialect) MapType(k ddl.Kind) string {
	switch k {
	case ddl.Integer:
		return "INT"
	case ddl.Timestamp:
		return "DATETIME(6)"
	default:
		return "DOUBLE"
	}
}

func (Dialect) CreateIfNotExists(table, body string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s %s;", table, body)
}
