package mssql

import (
	"context"
	"errors"
	"testing"

	"carprep/internal/ddl"
	"carprep/internal/storage"
)

func TestCreateTableSQL(t *testing.T) {
	t.Parallel()
	got, err := storage.CreateTableSQL("mssql", ddl.MetricsTable("dbo.car_metrics"))
	if err != nil {
		t.Fatalf("CreateTableSQL: %v", err)
	}
	want := "IF OBJECT_ID(N'[dbo].[car_metrics]', N'U') IS NULL\n" +
		"CREATE TABLE [dbo].[car_metrics] (\n" +
		"  [timestamp] DATETIME2 NOT NULL,\n" +
		"  [prediction_drift] FLOAT,\n" +
		"  [num_drifted_columns] INT,\n" +
		"  [share_missing_values] FLOAT\n);"
	if got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestQuoteIdent(t *testing.T) {
	t.Parallel()
	if got := (Dialect{}).QuoteIdent("a]b"); got != "[a]]b]" {
		t.Fatalf("QuoteIdent = %s", got)
	}
}

func TestFactoryPropagatesErrors(t *testing.T) {
	orig := newRepository
	t.Cleanup(func() { newRepository = orig })

	want := errors.New("no server")
	newRepository = func(context.Context, Config) (*Repository, func(), error) { return nil, nil, want }

	if _, err := storage.New(context.Background(), storage.Config{Kind: "mssql", DSN: "sqlserver://x", Table: "t"}); !errors.Is(err, want) {
		t.Fatalf("err = %v", err)
	}
}
