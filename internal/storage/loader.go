package storage

import (
	"context"
	"fmt"
	"time"

	"carprep/internal/metrics"
	"carprep/internal/table"
	"carprep/pkg/records"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DefaultBatchSize is used when LoadOptions.BatchSize is not positive.
const DefaultBatchSize = 5000

// CopyFn abstracts a backend's bulk insert capability. Implementations insert
// rows aligned to columns and return the number of rows written.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// LoadOptions tunes batching and labels progress output.
type LoadOptions struct {
	Job       string
	BatchSize int
	Log       logrus.FieldLogger
}

func (o LoadOptions) batchSize() int {
	if o.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return o.BatchSize
}

func (o LoadOptions) logger() logrus.FieldLogger {
	if o.Log == nil {
		return logrus.StandardLogger()
	}
	return o.Log
}

// LoadBatches drains rows from in, groups them into batches and calls copyFn
// for each non-empty batch. It returns the total reported by copyFn and the
// first error encountered, or ctx.Err() when canceled.
func LoadBatches(ctx context.Context, columns []string, in <-chan []any, opts LoadOptions, copyFn CopyFn) (int64, error) {
	if copyFn == nil {
		return 0, fmt.Errorf("copyFn must not be nil")
	}
	size := opts.batchSize()
	log := opts.logger()

	var (
		total   int64
		batches int64
		batch   = make([][]any, 0, size)
		start   = time.Now()
		last    = start
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := copyFn(ctx, columns, batch)
		total += n
		batch = make([][]any, 0, size)
		if err != nil {
			log.WithFields(logrus.Fields{"inserted": n, "total": total}).
				WithError(err).Error("batch copy failed")
			return err
		}

		batches++
		metrics.RecordBatches(opts.Job, 1)
		now := time.Now()
		rps := 0.0
		if d := now.Sub(last); d > 0 {
			rps = float64(n) / d.Seconds()
		}
		log.WithFields(logrus.Fields{
			"batch":    batches,
			"inserted": n,
			"total":    total,
			"rps":      int64(rps),
			"elapsed":  now.Sub(start).Truncate(time.Millisecond),
		}).Debug("batch loaded")
		last = now
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return total, ctx.Err()
		case row, ok := <-in:
			if !ok {
				return total, flush()
			}
			batch = append(batch, row)
			if len(batch) >= size {
				if err := flush(); err != nil {
					return total, err
				}
			}
		}
	}
}

// LoadTable streams the rows of t, projected onto columns, into repo.
// Missing cells are written as NULL.
func LoadTable(ctx context.Context, repo Repository, t *table.Table, columns []string, opts LoadOptions) (int64, error) {
	for _, c := range columns {
		if !t.Has(c) {
			return 0, fmt.Errorf("load: column %q not in table", c)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	rows := make(chan []any, opts.batchSize())

	g.Go(func() error {
		defer close(rows)
		for _, rec := range t.Rows() {
			select {
			case rows <- project(rec, columns):
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	var total int64
	g.Go(func() error {
		n, err := LoadBatches(gctx, columns, rows, opts, repo.CopyFrom)
		total = n
		return err
	})

	if err := g.Wait(); err != nil {
		return total, err
	}
	metrics.RecordRow(opts.Job, "loaded", total)
	opts.logger().WithFields(logrus.Fields{"rows": total}).Info("dataset loaded")
	return total, nil
}

func project(rec records.Record, columns []string) []any {
	out := make([]any, len(columns))
	for i, c := range columns {
		v := rec[c]
		if records.IsMissing(v) {
			continue
		}
		out[i] = v
	}
	return out
}
