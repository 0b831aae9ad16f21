package transformer

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"carprep/internal/table"
	"carprep/pkg/records"
)

// addColumn returns a stage that sets key on every row of a clone.
func addColumn(key string, val any) Stage {
	return Func{StageName: "add_" + key, Fn: func(_ context.Context, in *table.Table) (*table.Table, error) {
		out := in.Clone()
		out.AddColumn(key)
		for _, r := range out.Rows() {
			r[key] = val
		}
		return out, nil
	}}
}

func makeTable(n int) *table.Table {
	rows := make([]records.Record, n)
	for i := range rows {
		rows[i] = records.Record{"id": float64(i)}
	}
	return table.New([]string{"id"}, rows)
}

func TestChainRun_OrderAndPurity(t *testing.T) {
	in := makeTable(2)
	c := Chain{addColumn("a", "first"), addColumn("b", "second")}

	out, err := c.Run(context.Background(), "test", nil, in)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got, want := out.Columns(), []string{"id", "a", "b"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("columns = %v, want %v", got, want)
	}
	want := records.Record{"id": float64(1), "a": "first", "b": "second"}
	if !reflect.DeepEqual(out.Row(1), want) {
		t.Fatalf("row = %#v, want %#v", out.Row(1), want)
	}
	if in.Has("a") || len(in.Row(0)) != 1 {
		t.Fatalf("input mutated: %v %#v", in.Columns(), in.Row(0))
	}
}

func TestChainRun_EmptyChainReturnsInput(t *testing.T) {
	in := makeTable(3)
	var c Chain
	out, err := c.Run(context.Background(), "test", nil, in)
	if err != nil || out != in {
		t.Fatalf("empty chain: out=%p in=%p err=%v", out, in, err)
	}
}

func TestChainRun_StopsAtFirstError(t *testing.T) {
	boom := errors.New("boom")
	called := false
	c := Chain{
		Func{StageName: "impute", Fn: func(context.Context, *table.Table) (*table.Table, error) { return nil, boom }},
		Func{StageName: "never", Fn: func(_ context.Context, in *table.Table) (*table.Table, error) {
			called = true
			return in, nil
		}},
	}
	_, err := c.Run(context.Background(), "test", nil, makeTable(1))
	if !errors.Is(err, boom) || !strings.Contains(err.Error(), "stage impute") {
		t.Fatalf("err = %v", err)
	}
	if called {
		t.Fatalf("stage after failure ran")
	}
}

func TestChainRun_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Chain{addColumn("a", 1.0)}.Run(ctx, "test", nil, makeTable(1))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
