package mysql

import (
	"context"
	"strings"
	"testing"

	"carprep/internal/ddl"
	"carprep/internal/storage"
)

func TestInsertSQL(t *testing.T) {
	t.Parallel()
	got := insertSQL("cars.final", []string{"price", "make_BMW"}, 2)
	want := "INSERT INTO `cars`.`final` (`price`, `make_BMW`) VALUES (?, ?), (?, ?)"
	if got != want {
		t.Fatalf("insertSQL = %q", got)
	}
}

func TestChunkSize(t *testing.T) {
	t.Parallel()
	tests := []struct {
		columns, configured, want int
	}{
		{10, 0, 1000},
		{10, 50, 50},
		{100, 0, 655},
		{70000, 0, 1},
	}
	for _, tc := range tests {
		if got := chunkSize(tc.columns, tc.configured); got != tc.want {
			t.Errorf("chunkSize(%d, %d) = %d, want %d", tc.columns, tc.configured, got, tc.want)
		}
	}
}

func TestQuoteIdent(t *testing.T) {
	t.Parallel()
	if got := quoteIdent("we`ird"); got != "`we``ird`" {
		t.Fatalf("quoteIdent = %s", got)
	}
}

func TestCreateTableSQL(t *testing.T) {
	t.Parallel()
	got, err := storage.CreateTableSQL("mysql", ddl.ListingTable("final", []string{"price", "year"}))
	if err != nil {
		t.Fatalf("CreateTableSQL: %v", err)
	}
	want := "CREATE TABLE IF NOT EXISTS `final` (\n  `price` DOUBLE NOT NULL,\n  `year` DOUBLE NOT NULL\n);"
	if got != want {
		t.Fatalf("got %q", got)
	}
}

func TestNewRepository_BadDSN(t *testing.T) {
	t.Parallel()
	_, _, err := NewRepository(context.Background(), Config{DSN: "not a dsn", Table: "t"})
	if err == nil || !strings.Contains(err.Error(), "mysql dsn") {
		t.Fatalf("err = %v", err)
	}
}
