// Package transformer defines the table-to-table stage contract and the
// Chain that runs stages in order with per-stage timing and error context.
package transformer

import (
	"context"
	"fmt"
	"time"

	"carprep/internal/metrics"
	"carprep/internal/table"

	"github.com/sirupsen/logrus"
)

// Stage is one pure transformation. Apply must not mutate in; a stage that
// changes data works on in.Clone() (or a filtered view) and returns it.
type Stage interface {
	Name() string
	Apply(ctx context.Context, in *table.Table) (*table.Table, error)
}

// Func adapts a function to a Stage.
type Func struct {
	StageName string
	Fn        func(ctx context.Context, in *table.Table) (*table.Table, error)
}

func (f Func) Name() string { return f.StageName }

func (f Func) Apply(ctx context.Context, in *table.Table) (*table.Table, error) {
	return f.Fn(ctx, in)
}

// Chain is an ordered list of stages.
type Chain []Stage

// Run applies every stage in order. It stops at the first error, which is
// wrapped with the stage name, and checks ctx between stages. Each stage is
// timed into metrics under job.
func (c Chain) Run(ctx context.Context, job string, log logrus.FieldLogger, in *table.Table) (*table.Table, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	cur := in
	for _, s := range c {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		out, err := s.Apply(ctx, cur)
		d := time.Since(start)
		metrics.RecordStep(job, s.Name(), err, d)
		if err != nil {
			return nil, fmt.Errorf("stage %s: %w", s.Name(), err)
		}
		log.WithFields(logrus.Fields{
			"stage":    s.Name(),
			"rows":     out.Len(),
			"columns":  len(out.Columns()),
			"duration": d.Round(time.Microsecond),
		}).Debug("stage done")
		cur = out
	}
	return cur, nil
}
