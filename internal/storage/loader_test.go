package storage

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"carprep/internal/table"
	"carprep/pkg/records"

	"github.com/sirupsen/logrus/hooks/test"
)

func TestLoadBatches_Basic(t *testing.T) {
	t.Parallel()

	in := make(chan []any, 8)
	for i := 0; i < 7; i++ {
		in <- []any{i, "x"}
	}
	close(in)

	var calls int32
	copyFn := func(_ context.Context, _ []string, rows [][]any) (int64, error) {
		atomic.AddInt32(&calls, 1)
		return int64(len(rows)), nil
	}

	log, _ := test.NewNullLogger()
	total, err := LoadBatches(context.Background(), []string{"c1", "c2"}, in, LoadOptions{BatchSize: 3, Log: log}, copyFn)
	if err != nil {
		t.Fatalf("LoadBatches error: %v", err)
	}
	if total != 7 {
		t.Fatalf("total rows %d, want 7", total)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("copyFn calls %d, want 3 (3+3+1)", got)
	}
}

func TestLoadBatches_ErrorPropagation(t *testing.T) {
	t.Parallel()

	in := make(chan []any, 5)
	for i := 0; i < 5; i++ {
		in <- []any{i}
	}
	close(in)

	wantErr := errors.New("copy failed")
	var batches int
	copyFn := func(_ context.Context, _ []string, rows [][]any) (int64, error) {
		batches++
		if batches == 2 {
			return 0, wantErr
		}
		return int64(len(rows)), nil
	}

	log, _ := test.NewNullLogger()
	total, err := LoadBatches(context.Background(), []string{"c"}, in, LoadOptions{BatchSize: 2, Log: log}, copyFn)
	if !errors.Is(err, wantErr) {
		t.Fatalf("want error %v, got %v", wantErr, err)
	}
	if total != 2 || batches != 2 {
		t.Fatalf("total=%d batches=%d, want 2/2", total, batches)
	}
}

func TestLoadBatches_ContextCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	in := make(chan []any)

	errCh := make(chan error, 1)
	go func() {
		_, err := LoadBatches(ctx, []string{"c"}, in, LoadOptions{BatchSize: 2}, func(context.Context, []string, [][]any) (int64, error) {
			return 0, nil
		})
		errCh <- err
	}()
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("LoadBatches did not return after context cancel")
	}
}

func TestLoadBatches_NilCopyFn(t *testing.T) {
	t.Parallel()
	if _, err := LoadBatches(context.Background(), nil, nil, LoadOptions{}, nil); err == nil {
		t.Fatal("expected error for nil copyFn")
	}
}

func TestLoadTable(t *testing.T) {
	t.Parallel()

	tbl := table.New([]string{"price", "year", "extra"}, []records.Record{
		{"price": 100.0, "year": 2017.0, "extra": "x"},
		{"price": 200.0, "year": nil, "extra": "y"},
		{"price": 300.0, "year": 2019.0, "extra": "z"},
	})
	repo := &fakeRepo{}
	log, hook := test.NewNullLogger()

	n, err := LoadTable(context.Background(), repo, tbl, []string{"year", "price"}, LoadOptions{Job: "t", BatchSize: 2, Log: log})
	if err != nil {
		t.Fatalf("LoadTable: %v", err)
	}
	if n != 3 || len(repo.rows) != 3 {
		t.Fatalf("n=%d rows=%d", n, len(repo.rows))
	}
	if repo.rows[0][0] != 2017.0 || repo.rows[0][1] != 100.0 {
		t.Fatalf("projection = %v", repo.rows[0])
	}
	if repo.rows[1][0] != nil {
		t.Fatalf("missing must load as NULL, got %#v", repo.rows[1][0])
	}
	if hook.LastEntry() == nil || hook.LastEntry().Message != "dataset loaded" {
		t.Fatalf("expected completion log")
	}
}

func TestLoadTable_Errors(t *testing.T) {
	t.Parallel()

	tbl := table.New([]string{"price"}, []records.Record{{"price": 1.0}, {"price": 2.0}, {"price": 3.0}})
	log, _ := test.NewNullLogger()

	if _, err := LoadTable(context.Background(), &fakeRepo{}, tbl, []string{"year"}, LoadOptions{Log: log}); err == nil {
		t.Fatal("expected unknown column error")
	}
	if _, err := LoadTable(context.Background(), &fakeRepo{failAt: 2}, tbl, []string{"price"}, LoadOptions{BatchSize: 1, Log: log}); err == nil {
		t.Fatal("expected copy error")
	}
}
