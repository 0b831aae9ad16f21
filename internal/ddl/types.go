// Package ddl defines a small, backend-agnostic model for the tables carprep
// writes to, and a renderer that turns it into CREATE TABLE statements for a
// given SQL dialect.
package ddl

// Kind is the logical type of a column. Dialects map it to a concrete SQL type.
type Kind int

const (
	Float Kind = iota
	Integer
	Timestamp
)

func (k Kind) String() string {
	switch k {
	case Float:
		return "float"
	case Integer:
		return "integer"
	case Timestamp:
		return "timestamp"
	}
	return "unknown"
}

// ColumnDef describes a single column. Name is unquoted; quoting happens at
// render time.
type ColumnDef struct {
	Name     string
	Kind     Kind
	Nullable bool
}

// TableDef holds the table name in dotted form (e.g. "schema.table") and an
// ordered list of columns.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}

// ColumnNames returns the column names in declaration order.
func (t TableDef) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// ListingTable describes the table a final dataset is loaded into. Every
// final column is numeric and never missing.
func ListingTable(fqn string, columns []string) TableDef {
	defs := make([]ColumnDef, len(columns))
	for i, c := range columns {
		defs[i] = ColumnDef{Name: c, Kind: Float}
	}
	return TableDef{FQN: fqn, Columns: defs}
}

// Metrics table column names.
const (
	MetricTimestamp       = "timestamp"
	MetricPredictionDrift = "prediction_drift"
	MetricDriftedColumns  = "num_drifted_columns"
	MetricShareMissing    = "share_missing_values"
)

// MetricsTable describes the drift-summary table, one row per monitoring run.
func MetricsTable(fqn string) TableDef {
	return TableDef{
		FQN: fqn,
		Columns: []ColumnDef{
			{Name: MetricTimestamp, Kind: Timestamp},
			{Name: MetricPredictionDrift, Kind: Float, Nullable: true},
			{Name: MetricDriftedColumns, Kind: Integer, Nullable: true},
			{Name: MetricShareMissing, Kind: Float, Nullable: true},
		},
	}
}
