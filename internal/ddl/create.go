package ddl

import (
	"fmt"
	"strings"
)

// Dialect adapts rendering to one SQL flavour.
type Dialect interface {
	// QuoteIdent quotes a single identifier segment.
	QuoteIdent(id string) string
	// MapType returns the SQL type for a logical kind.
	MapType(k Kind) string
	// CreateIfNotExists wraps a quoted table name and a rendered column list
	// into an idempotent CREATE TABLE statement.
	CreateIfNotExists(table, body string) string
}

// BuildCreateTableSQL renders t for dialect d. Columns are emitted in
// declaration order as
//
//	<quoted name> <type> [NOT NULL]
func BuildCreateTableSQL(t TableDef, d Dialect) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("ddl: table FQN must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("ddl: at least one column is required")
	}

	seen := make(map[string]struct{}, len(t.Columns))
	cols := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("ddl: column with empty name in table %s", fqn)
		}
		if _, dup := seen[name]; dup {
			return "", fmt.Errorf("ddl: duplicate column %s in table %s", name, fqn)
		}
		seen[name] = struct{}{}

		var sb strings.Builder
		sb.WriteString(d.QuoteIdent(name))
		sb.WriteByte(' ')
		sb.WriteString(d.MapType(c.Kind))
		if !c.Nullable {
			sb.WriteString(" NOT NULL")
		}
		cols = append(cols, sb.String())
	}

	return d.CreateIfNotExists(
		QuoteFQN(fqn, d.QuoteIdent),
		"(\n  "+strings.Join(cols, ",\n  ")+"\n)",
	), nil
}

// QuoteFQN quotes each dotted segment of name with quote. Empty segments are
// dropped.
func QuoteFQN(name string, quote func(string) string) string {
	parts := strings.Split(name, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, quote(p))
	}
	return strings.Join(out, ".")
}

// DoubleQuote quotes an identifier ANSI style: "weird""name".
func DoubleQuote(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}
