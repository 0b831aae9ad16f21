// Package monitor summarizes distribution drift between a reference final
// dataset and a current one, and persists the summary for dashboards.
package monitor

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"carprep/internal/config"
	"carprep/internal/dataerr"
	"carprep/internal/ddl"
	"carprep/internal/metrics"
	"carprep/internal/schema"
	"carprep/internal/serving"
	"carprep/internal/storage"
	"carprep/internal/table"
	"carprep/pkg/records"

	"github.com/sirupsen/logrus"
)

// Defaults applied by Compare.
const (
	// DefaultThreshold is the p-value below which a column counts as drifted.
	DefaultThreshold = 0.05
	// DefaultDistanceThreshold is the distance at or above which a column
	// counts as drifted.
	DefaultDistanceThreshold = 0.1
	// DefaultLargeSample is the reference size above which distance tests
	// are used.
	DefaultLargeSample = 1000
	// ScoredColumn holds model predictions when Options.Predictor is set and
	// no prediction column is named.
	ScoredColumn = "prediction"
)

// ColumnDrift is the outcome of one column's test. Score is a p-value for
// KS and chi-square and a distance for Wasserstein and Jensen-Shannon.
type ColumnDrift struct {
	Column    string
	Test      string
	Statistic float64
	Score     float64
	Drifted   bool
}

// Report is one drift summary, stored as a row of the metrics table.
type Report struct {
	Timestamp time.Time
	// PredictionDrift is the score of the prediction column's test.
	PredictionDrift float64
	// NumDriftedColumns counts drifted columns, the prediction column included.
	NumDriftedColumns int
	// ShareMissing is the share of missing cells in the current table.
	ShareMissing float64

	Columns []ColumnDrift
	// Skipped lists columns without observations in either sample.
	Skipped []string
}

// Options configures Compare.
type Options struct {
	Vocab schema.Vocabulary
	// PredictionColumn defaults to the training target, or to ScoredColumn
	// when Predictor is set.
	PredictionColumn string
	// Predictor, when set, scores both tables into PredictionColumn before
	// the comparison.
	Predictor         serving.Predictor
	Threshold         float64
	DistanceThreshold float64
	// LargeSample switches numeric columns to Wasserstein and indicators to
	// Jensen-Shannon once the reference has more rows.
	LargeSample int
	Now         func() time.Time
}

// Compare tests the prediction column, every numeric feature and every kept
// indicator column of cur against ref. Small references use KS and
// chi-square; larger ones use normed Wasserstein and Jensen-Shannon
// distances.
func Compare(ctx context.Context, ref, cur *table.Table, opts Options) (Report, error) {
	if opts.PredictionColumn == "" {
		opts.PredictionColumn = schema.Target
		if opts.Predictor != nil {
			opts.PredictionColumn = ScoredColumn
		}
	}
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.DistanceThreshold <= 0 {
		opts.DistanceThreshold = DefaultDistanceThreshold
	}
	if opts.LargeSample <= 0 {
		opts.LargeSample = DefaultLargeSample
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if ref.Len() == 0 {
		return Report{}, &dataerr.DataQualityError{Column: opts.PredictionColumn, Reason: "reference dataset has no rows"}
	}
	if cur.Len() == 0 {
		return Report{}, &dataerr.DataQualityError{Column: opts.PredictionColumn, Reason: "current dataset has no rows"}
	}

	features := opts.Vocab.FeatureColumns()
	required := features
	if opts.Predictor == nil {
		required = append([]string{opts.PredictionColumn}, features...)
	}
	for _, c := range required {
		if !ref.Has(c) {
			return Report{}, &dataerr.SchemaDriftError{Field: c, Reason: "absent from reference dataset"}
		}
		if !cur.Has(c) {
			return Report{}, &dataerr.SchemaDriftError{Field: c, Reason: "absent from current dataset"}
		}
	}

	r := Report{Timestamp: opts.Now().UTC(), ShareMissing: shareMissing(cur)}
	if opts.Predictor != nil {
		var err error
		if ref, err = score(ctx, ref, features, opts.PredictionColumn, opts.Predictor); err != nil {
			return Report{}, fmt.Errorf("score reference: %w", err)
		}
		if cur, err = score(ctx, cur, features, opts.PredictionColumn, opts.Predictor); err != nil {
			return Report{}, fmt.Errorf("score current: %w", err)
		}
	}

	numericTest, indicatorTest := TestKS, TestChiSquare
	if ref.Len() > opts.LargeSample {
		numericTest, indicatorTest = TestWasserstein, TestJensenShannon
	}
	test := func(col, name string) {
		a, b := values(ref, col), values(cur, col)
		if len(a) == 0 || len(b) == 0 {
			r.Skipped = append(r.Skipped, col)
			return
		}
		cd := ColumnDrift{Column: col, Test: name}
		cd.Statistic, cd.Score = testFuncs[name](a, b)
		if isDistance(name) {
			cd.Drifted = cd.Score >= opts.DistanceThreshold
		} else {
			cd.Drifted = cd.Score < opts.Threshold
		}
		if cd.Drifted {
			r.NumDriftedColumns++
		}
		r.Columns = append(r.Columns, cd)
	}
	test(opts.PredictionColumn, numericTest)
	for _, c := range schema.NumericFeatures {
		test(c, numericTest)
	}
	for _, c := range opts.Vocab.Indicators() {
		test(c, indicatorTest)
	}

	if len(r.Columns) == 0 || r.Columns[0].Column != opts.PredictionColumn {
		return Report{}, &dataerr.DataQualityError{Column: opts.PredictionColumn, Reason: "prediction column has no observations"}
	}
	r.PredictionDrift = r.Columns[0].Score
	return r, nil
}

var testFuncs = map[string]func(ref, cur []float64) (statistic, score float64){
	TestKS:            ksTest,
	TestChiSquare:     chiSquareTest,
	TestWasserstein:   wassersteinTest,
	TestJensenShannon: jensenShannonTest,
}

// score returns a copy of t with column set to the model's prediction for
// every row. Rows with a missing or non-numeric feature are left unscored.
func score(ctx context.Context, t *table.Table, features []string, column string, p serving.Predictor) (*table.Table, error) {
	out := t.Clone()
	if !out.Has(column) {
		out.AddColumn(column)
	}
	x := make([]float64, len(features))
	for i, row := range out.Rows() {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		delete(row, column)
		ok := true
		for j, c := range features {
			if x[j], ok = number(row[c]); !ok {
				break
			}
		}
		if !ok {
			continue
		}
		y, err := p.Predict(ctx, x)
		if err != nil {
			return nil, fmt.Errorf("predict row %d: %w", i, err)
		}
		row[column] = y
	}
	return out, nil
}

// values returns the numeric observations of col. Text cells that parse as
// numbers count; anything else is skipped.
func values(t *table.Table, col string) []float64 {
	out := make([]float64, 0, t.Len())
	for _, v := range t.Column(col) {
		if f, ok := number(v); ok {
			out = append(out, f)
		}
	}
	return out
}

func number(v any) (float64, bool) {
	if records.IsMissing(v) {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		switch strings.TrimSpace(t) {
		case "True", "true":
			return 1, true
		case "False", "false":
			return 0, true
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

func shareMissing(t *table.Table) float64 {
	cells := t.Len() * len(t.Columns())
	if cells == 0 {
		return 0
	}
	missing := 0
	for _, row := range t.Rows() {
		for _, c := range t.Columns() {
			if row.Missing(c) {
				missing++
			}
		}
	}
	return float64(missing) / float64(cells)
}

var newRepository = storage.New

// Publish records r as gauges and, when storage is configured, appends it to
// the metrics table.
func Publish(ctx context.Context, cfg config.Pipeline, r Report, log logrus.FieldLogger) error {
	metrics.RecordDrift(cfg.Job, r.PredictionDrift, r.NumDriftedColumns, r.ShareMissing)
	log.WithFields(logrus.Fields{
		"prediction_drift":     r.PredictionDrift,
		"num_drifted_columns":  r.NumDriftedColumns,
		"share_missing_values": r.ShareMissing,
	}).Info("drift summary")
	for _, c := range r.Columns {
		if c.Drifted {
			log.WithFields(logrus.Fields{"column": c.Column, "test": c.Test, "score": c.Score}).Warn("column drifted")
		}
	}

	if cfg.Storage.Kind == "" {
		return nil
	}
	repo, err := newRepository(ctx, storage.Config{
		Kind:  cfg.Storage.Kind,
		DSN:   cfg.Storage.DSN,
		Table: cfg.Storage.MetricsTable,
	})
	if err != nil {
		return fmt.Errorf("init repo: %w", err)
	}
	defer repo.Close()

	td := ddl.MetricsTable(cfg.Storage.MetricsTable)
	if cfg.Storage.AutoCreateTable {
		if err := storage.EnsureTable(ctx, cfg.Storage.Kind, repo, td); err != nil {
			return err
		}
	}
	row := []any{r.Timestamp, r.PredictionDrift, int64(r.NumDriftedColumns), r.ShareMissing}
	if _, err := repo.CopyFrom(ctx, td.ColumnNames(), [][]any{row}); err != nil {
		return fmt.Errorf("store drift summary: %w", err)
	}
	return nil
}
