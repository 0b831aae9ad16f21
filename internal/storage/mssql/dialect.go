package mssql

import (
	"fmt"
	"strings"

	"carprep/internal/ddl"
)

// Dialect renders T-SQL DDL. SQL Server has no CREATE TABLE IF NOT EXISTS, so
// creation is guarded by OBJECT_ID.
type Dialect struct{}

// QuoteIdent brackets an identifier: [weird]]name].
func (Dialect) QuoteIdent(id string) string {
	return "[" + strings.ReplaceAll(id, "]", "]]") + "]"
}

func (Dialect) MapType(k ddl.Kind) string {
	switch k {
	case ddl.Integer:
		return "INT"
	case ddl.Timestamp:
		return "DATETIME2"
	default:
		return "FLOAT"
	}
}

func (Dialect) CreateIfNotExists(table, body string) string {
	return fmt.Sprintf(
		"IF OBJECT_ID(N'%s', N'U') IS NULL\nCREATE TABLE %s %s;",
		strings.ReplaceAll(table, "'", "''"), table, body,
	)
}
