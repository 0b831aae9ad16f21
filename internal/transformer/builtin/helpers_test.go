package builtin

import (
	"context"
	"testing"

	"carprep/internal/table"
	"carprep/pkg/records"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

// tbl builds a table from positional rows; a nil cell is left unset.
func tbl(cols []string, rows ...[]any) *table.Table {
	recs := make([]records.Record, len(rows))
	for i, row := range rows {
		r := records.Record{}
		for j, v := range row {
			if v != nil {
				r[cols[j]] = v
			}
		}
		recs[i] = r
	}
	return table.New(cols, recs)
}

func testEnv(t *testing.T) (Env, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return Env{Job: "test", Log: logger}, hook
}

type applier interface {
	Apply(context.Context, *table.Table) (*table.Table, error)
}

func mustApply(t *testing.T, s applier, in *table.Table) *table.Table {
	t.Helper()
	out, err := s.Apply(context.Background(), in)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	return out
}
