package monitor

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"carprep/internal/config"
	"carprep/internal/dataerr"
	"carprep/internal/schema"
	"carprep/internal/serving"
	"carprep/internal/table"
	"carprep/pkg/records"

	_ "carprep/internal/storage/sqlite"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixed = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

func vocab() schema.Vocabulary {
	return schema.Vocabulary{Fields: []schema.FieldVocabulary{
		schema.NewFieldVocabulary("make", []string{"ford", "vw"}),
	}}
}

// listings builds n rows; shift moves every numeric column and flip sets
// make_vw on every row.
func listings(n int, shift float64, flip bool) *table.Table {
	cols := vocab().FinalColumns()
	rows := make([]records.Record, 0, n)
	for i := 0; i < n; i++ {
		f := float64(i)
		vw := float64(i % 2)
		if flip {
			vw = 1
		}
		rows = append(rows, records.Record{
			"price":      10000 + 100*f + shift*1000,
			"year":       2010 + float64(i%10) + shift,
			"mileage":    20000 + 500*f + shift*50000,
			"enginesize": 1 + float64(i%3)/2,
			"tax":        145,
			"mpg":        50 + float64(i%7),
			"make_vw":    vw,
		})
	}
	return table.New(cols, rows)
}

func TestCompare_NoDrift(t *testing.T) {
	t.Parallel()

	ref := listings(200, 0, false)
	r, err := Compare(context.Background(), ref, ref.Clone(), Options{Vocab: vocab(), Now: func() time.Time { return fixed }})
	require.NoError(t, err)

	assert.Equal(t, fixed, r.Timestamp)
	assert.Equal(t, 0, r.NumDriftedColumns)
	assert.InDelta(t, 1.0, r.PredictionDrift, 1e-9)
	assert.Zero(t, r.ShareMissing)
	require.Len(t, r.Columns, 7)
	assert.Equal(t, "price", r.Columns[0].Column)
	assert.Equal(t, TestChiSquare, r.Columns[6].Test)
}

func TestCompare_DetectsDrift(t *testing.T) {
	t.Parallel()

	r, err := Compare(context.Background(), listings(200, 0, false), listings(200, 5, true), Options{Vocab: vocab()})
	require.NoError(t, err)

	assert.Less(t, r.PredictionDrift, DefaultThreshold)
	// price, year, mileage and make_vw move; enginesize, tax and mpg do not.
	assert.Equal(t, 4, r.NumDriftedColumns)
	drifted := map[string]bool{}
	for _, c := range r.Columns {
		drifted[c.Column] = c.Drifted
	}
	assert.True(t, drifted["make_vw"])
	assert.False(t, drifted["tax"])
}

func TestCompare_LargeSampleUsesDistances(t *testing.T) {
	t.Parallel()

	opts := Options{Vocab: vocab(), LargeSample: 100}
	ref := listings(200, 0, false)

	r, err := Compare(context.Background(), ref, ref.Clone(), opts)
	require.NoError(t, err)
	assert.Zero(t, r.NumDriftedColumns)
	assert.Zero(t, r.PredictionDrift)
	assert.Equal(t, TestWasserstein, r.Columns[0].Test)
	assert.Equal(t, TestJensenShannon, r.Columns[6].Test)

	r, err = Compare(context.Background(), ref, listings(200, 5, true), opts)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, r.PredictionDrift, DefaultDistanceThreshold)
	assert.Equal(t, 4, r.NumDriftedColumns)
}

func TestCompare_ScoresWithPredictor(t *testing.T) {
	t.Parallel()

	byYear := serving.PredictorFunc(func(_ context.Context, x []float64) (float64, error) {
		return 1000 * x[0], nil
	})
	ref, cur := listings(200, 0, false), listings(200, 5, false)

	r, err := Compare(context.Background(), ref, cur, Options{Vocab: vocab(), Predictor: byYear})
	require.NoError(t, err)
	assert.Equal(t, ScoredColumn, r.Columns[0].Column)
	assert.True(t, r.Columns[0].Drifted)
	assert.False(t, ref.Has(ScoredColumn), "input table modified")

	constant := serving.PredictorFunc(func(context.Context, []float64) (float64, error) { return 9000, nil })
	r, err = Compare(context.Background(), ref, cur, Options{Vocab: vocab(), Predictor: constant})
	require.NoError(t, err)
	assert.Equal(t, 1.0, r.PredictionDrift)

	failing := serving.PredictorFunc(func(context.Context, []float64) (float64, error) {
		return 0, errors.New("model unavailable")
	})
	_, err = Compare(context.Background(), ref, cur, Options{Vocab: vocab(), Predictor: failing})
	assert.ErrorContains(t, err, "model unavailable")
}

func TestCompare_ShareMissingAndSkipped(t *testing.T) {
	t.Parallel()

	cur := listings(10, 0, false)
	for _, row := range cur.Rows() {
		row["tax"] = nil
	}
	r, err := Compare(context.Background(), listings(10, 0, false), cur, Options{Vocab: vocab()})
	require.NoError(t, err)

	assert.Equal(t, []string{"tax"}, r.Skipped)
	assert.InDelta(t, 1.0/7, r.ShareMissing, 1e-12)
}

func TestCompare_TextCells(t *testing.T) {
	t.Parallel()

	ref := table.New([]string{"price", "year", "mileage", "enginesize", "tax", "mpg", "make_vw"}, []records.Record{
		{"price": "9000", "year": "2019", "mileage": "100", "enginesize": "1", "tax": "145", "mpg": "50", "make_vw": "True"},
		{"price": "9500", "year": "2018", "mileage": "200", "enginesize": "1", "tax": "145", "mpg": "51", "make_vw": "0"},
	})
	r, err := Compare(context.Background(), ref, ref.Clone(), Options{Vocab: vocab()})
	require.NoError(t, err)
	assert.Empty(t, r.Skipped)
	assert.Zero(t, r.NumDriftedColumns)
}

func TestCompare_Errors(t *testing.T) {
	t.Parallel()

	_, err := Compare(context.Background(), table.Empty(), listings(3, 0, false), Options{Vocab: vocab()})
	var dq *dataerr.DataQualityError
	assert.ErrorAs(t, err, &dq)

	missing := listings(3, 0, false)
	missing.DropColumns("make_vw")
	_, err = Compare(context.Background(), listings(3, 0, false), missing, Options{Vocab: vocab()})
	var drift *dataerr.SchemaDriftError
	require.ErrorAs(t, err, &drift)
	assert.Equal(t, "make_vw", drift.Field)

	noPrice := listings(3, 0, false)
	for _, row := range noPrice.Rows() {
		row["price"] = nil
	}
	_, err = Compare(context.Background(), listings(3, 0, false), noPrice, Options{Vocab: vocab()})
	assert.True(t, errors.As(err, &dq))
}

func TestKolmogorovQ(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1.0, kolmogorovQ(0))
	// Q(1.36) ≈ 0.05 is the textbook 5% critical value.
	assert.InDelta(t, 0.05, kolmogorovQ(1.36), 0.002)
	assert.Less(t, kolmogorovQ(5), 1e-20)
}

func TestChiSquareTest(t *testing.T) {
	t.Parallel()

	s, p := chiSquareTest([]float64{0, 0, 0}, []float64{0, 0})
	assert.Zero(t, s)
	assert.Equal(t, 1.0, p)

	ref := make([]float64, 100)
	cur := make([]float64, 100)
	for i := range cur {
		cur[i] = 1
	}
	s, p = chiSquareTest(ref, cur)
	assert.InDelta(t, 200, s, 1e-9)
	assert.Less(t, p, 1e-10)
	assert.False(t, math.IsNaN(p))
}

func TestWassersteinTest(t *testing.T) {
	t.Parallel()

	d, normed := wassersteinTest([]float64{0, 1}, []float64{2, 3})
	assert.InDelta(t, 2.0, d, 1e-12)
	assert.InDelta(t, 4.0, normed, 1e-12)

	d, normed = wassersteinTest([]float64{3, 1, 2}, []float64{1, 2, 3})
	assert.Zero(t, d)
	assert.Zero(t, normed)

	// A constant reference floors the spread instead of dividing by zero.
	_, normed = wassersteinTest([]float64{145, 145}, []float64{145, 146})
	assert.InDelta(t, 500, normed, 1e-9)
}

func TestJensenShannonTest(t *testing.T) {
	t.Parallel()

	_, d := jensenShannonTest([]float64{0, 1, 0, 1}, []float64{1, 0})
	assert.InDelta(t, 0, d, 1e-9)

	_, d = jensenShannonTest([]float64{0, 0, 0}, []float64{1, 1, 1})
	assert.InDelta(t, math.Sqrt(math.Ln2), d, 0.01)
}

func TestPublish_StoresSummary(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Storage.Kind = "sqlite"
	cfg.Storage.DSN = filepath.Join(t.TempDir(), "metrics.db")
	cfg.Storage.AutoCreateTable = true

	logger, hook := test.NewNullLogger()
	r := Report{
		Timestamp:         fixed,
		PredictionDrift:   0.01,
		NumDriftedColumns: 2,
		ShareMissing:      0.25,
		Columns:           []ColumnDrift{{Column: "price", Test: TestKS, Score: 0.01, Drifted: true}},
	}
	ctx := context.Background()
	require.NoError(t, Publish(ctx, cfg, r, logger))
	require.NoError(t, Publish(ctx, cfg, r, logger))

	db, err := sql.Open("sqlite", cfg.Storage.DSN)
	require.NoError(t, err)
	defer db.Close()

	var (
		n       int
		drifted int
		share   float64
	)
	require.NoError(t, db.QueryRow(`SELECT COUNT(*), MAX(num_drifted_columns), MAX(share_missing_values) FROM car_metrics`).
		Scan(&n, &drifted, &share))
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, drifted)
	assert.Equal(t, 0.25, share)

	var warned int
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Data["column"] == "price" {
			warned++
		}
	}
	assert.Equal(t, 2, warned)
}

func TestPublish_WithoutStorage(t *testing.T) {
	t.Parallel()

	logger, hook := test.NewNullLogger()
	require.NoError(t, Publish(context.Background(), config.Default(), Report{}, logger))
	assert.Equal(t, "drift summary", hook.LastEntry().Message)
}

func TestLoadDataset(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := filepath.Join(dir, "final.csv")
	body := "price,year,mileage,enginesize,tax,mpg,make_vw\n" +
		"9000,2019,100,1,145,50,1\n" +
		"9500,2018,200,1,145,51,0\n"
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))

	logger, _ := test.NewNullLogger()
	ref, err := LoadDataset(context.Background(), p, logger)
	require.NoError(t, err)
	assert.Equal(t, 2, ref.Len())

	r, err := Compare(context.Background(), ref, ref, Options{Vocab: vocab()})
	require.NoError(t, err)
	assert.Zero(t, r.NumDriftedColumns)

	_, err = LoadDataset(context.Background(), filepath.Join(dir, "nope.csv"), logger)
	var malformed *dataerr.MalformedInputError
	assert.ErrorAs(t, err, &malformed)
}
