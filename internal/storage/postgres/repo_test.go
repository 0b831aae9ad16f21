package postgres

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"carprep/internal/ddl"
	"carprep/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestSplitFQN(t *testing.T) {
	t.Parallel()
	tests := map[string]pgx.Identifier{
		"cars":           {"cars"},
		"public.cars":    {"public", "cars"},
		" public . cars": {"public", "cars"},
	}
	for in, want := range tests {
		if got := splitFQN(in); !reflect.DeepEqual(got, want) {
			t.Errorf("splitFQN(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestDescribe(t *testing.T) {
	t.Parallel()
	pgErr := &pgconn.PgError{Code: "22P02", Detail: "bad float"}
	err := describe("copy", pgErr)
	if !strings.Contains(err.Error(), "bad float (22P02)") || !errors.Is(err, pgErr) {
		t.Fatalf("describe = %v", err)
	}
	if got := describe("exec", errors.New("x")).Error(); got != "postgres: exec: x" {
		t.Fatalf("describe plain = %q", got)
	}
}

func TestCreateTableSQL(t *testing.T) {
	t.Parallel()
	got, err := storage.CreateTableSQL("postgres", ddl.MetricsTable("public.car_metrics"))
	if err != nil {
		t.Fatalf("CreateTableSQL: %v", err)
	}
	want := "CREATE TABLE IF NOT EXISTS \"public\".\"car_metrics\" (\n" +
		"  \"timestamp\" TIMESTAMPTZ NOT NULL,\n" +
		"  \"prediction_drift\" DOUBLE PRECISION,\n" +
		"  \"num_drifted_columns\" INTEGER,\n" +
		"  \"share_missing_values\" DOUBLE PRECISION\n);"
	if got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestFactoryUsesHook(t *testing.T) {
	orig := newRepository
	t.Cleanup(func() { newRepository = orig })

	var seen Config
	closed := false
	newRepository = func(_ context.Context, cfg Config) (*Repository, func(), error) {
		seen = cfg
		return &Repository{cfg: cfg}, func() { closed = true }, nil
	}

	repo, err := storage.New(context.Background(), storage.Config{Kind: "postgres", DSN: "postgres://x", Table: "cars"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if seen.DSN != "postgres://x" || seen.Table != "cars" {
		t.Fatalf("config = %+v", seen)
	}
	repo.Close()
	if !closed {
		t.Fatal("Close did not call cleanup")
	}
}
