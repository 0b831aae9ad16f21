package ddl

import (
	"strings"
	"testing"
)

type ansi struct{}

func (ansi) QuoteIdent(id string) string { return DoubleQuote(id) }
func (ansi) MapType(k Kind) string {
	switch k {
	case Integer:
		return "INTEGER"
	case Timestamp:
		return "TIMESTAMP"
	}
	return "DOUBLE PRECISION"
}
func (ansi) CreateIfNotExists(table, body string) string {
	return "CREATE TABLE IF NOT EXISTS " + table + " " + body + ";"
}

func TestBuildCreateTableSQL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		def         TableDef
		wantSQL     string
		errContains string
	}{
		{
			name:        "empty FQN",
			def:         TableDef{Columns: []ColumnDef{{Name: "price"}}},
			errContains: "table FQN must not be empty",
		},
		{
			name:        "no columns",
			def:         TableDef{FQN: "t"},
			errContains: "at least one column is required",
		},
		{
			name:        "empty column name",
			def:         TableDef{FQN: "t", Columns: []ColumnDef{{Name: " "}}},
			errContains: "column with empty name",
		},
		{
			name:        "duplicate column",
			def:         TableDef{FQN: "t", Columns: []ColumnDef{{Name: "a"}, {Name: "a"}}},
			errContains: "duplicate column a",
		},
		{
			name:    "listing table",
			def:     ListingTable("public.cars", []string{"price", "make_BMW"}),
			wantSQL: "CREATE TABLE IF NOT EXISTS \"public\".\"cars\" (\n  \"price\" DOUBLE PRECISION NOT NULL,\n  \"make_BMW\" DOUBLE PRECISION NOT NULL\n);",
		},
		{
			name: "metrics table",
			def:  MetricsTable("car_metrics"),
			wantSQL: "CREATE TABLE IF NOT EXISTS \"car_metrics\" (\n" +
				"  \"timestamp\" TIMESTAMP NOT NULL,\n" +
				"  \"prediction_drift\" DOUBLE PRECISION,\n" +
				"  \"num_drifted_columns\" INTEGER,\n" +
				"  \"share_missing_values\" DOUBLE PRECISION\n);",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := BuildCreateTableSQL(tc.def, ansi{})
			if tc.errContains != "" {
				if err == nil || !strings.Contains(err.Error(), tc.errContains) {
					t.Fatalf("err = %v, want containing %q", err, tc.errContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.wantSQL {
				t.Fatalf("SQL mismatch\n got: %q\nwant: %q", got, tc.wantSQL)
			}
		})
	}
}

func TestQuoteFQN(t *testing.T) {
	t.Parallel()
	if got := QuoteFQN("a..b", DoubleQuote); got != `"a"."b"` {
		t.Fatalf("QuoteFQN = %s", got)
	}
	if got := DoubleQuote(`we"ird`); got != `"we""ird"` {
		t.Fatalf("DoubleQuote = %s", got)
	}
}

func TestTableDef_ColumnNames(t *testing.T) {
	t.Parallel()
	got := MetricsTable("m").ColumnNames()
	want := []string{MetricTimestamp, MetricPredictionDrift, MetricDriftedColumns, MetricShareMissing}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("ColumnNames = %v", got)
	}
	if Timestamp.String() != "timestamp" || Kind(9).String() != "unknown" {
		t.Fatalf("Kind.String")
	}
}
