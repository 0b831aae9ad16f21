package builtin

import (
	"context"
	"fmt"
	"sort"

	"carprep/internal/dataerr"
	"carprep/internal/table"
	"carprep/pkg/records"

	"github.com/sirupsen/logrus"
)

// Impute fills missing cells of designated columns with a statistic computed
// once over the whole table: the median for Median columns, the most
// frequent value for Mode columns.
//
// A designated column that is absent or has no observed value fails with a
// DataQualityError unless Fallback holds a value for it (a number for
// median columns, a string for mode columns).
type Impute struct {
	Env
	Median   []string
	Mode     []string
	Fallback map[string]any
}

func (Impute) Name() string { return "impute" }

// Statistics computes the fill value of every designated column.
func (im Impute) Statistics(in *table.Table) (map[string]any, error) {
	stats := make(map[string]any, len(im.Median)+len(im.Mode))
	for _, col := range im.Median {
		var vals []float64
		if in.Has(col) {
			for _, r := range in.Rows() {
				if f, ok := r.Float(col); ok {
					vals = append(vals, f)
				}
			}
		}
		if len(vals) == 0 {
			fb, ok := numericFallback(im.Fallback[col])
			if !ok {
				return nil, undefinedStatistic(in, col, "median")
			}
			stats[col] = fb
			continue
		}
		stats[col] = Median(vals)
	}
	for _, col := range im.Mode {
		var vals []string
		if in.Has(col) {
			for _, r := range in.Rows() {
				if s, ok := r[col].(string); ok {
					vals = append(vals, s)
				}
			}
		}
		if len(vals) == 0 {
			fb, ok := im.Fallback[col].(string)
			if !ok {
				return nil, undefinedStatistic(in, col, "mode")
			}
			stats[col] = fb
			continue
		}
		stats[col] = Mode(vals)
	}
	return stats, nil
}

func (im Impute) Apply(_ context.Context, in *table.Table) (*table.Table, error) {
	stats, err := im.Statistics(in)
	if err != nil {
		return nil, err
	}
	out := in.Clone()
	cols := make([]string, 0, len(stats))
	for col := range stats {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	fields := logrus.Fields{"stage": im.Name()}
	for _, col := range cols {
		out.AddColumn(col)
		filled := 0
		for _, r := range out.Rows() {
			if r.Missing(col) {
				r[col] = stats[col]
				filled++
			}
		}
		fields[col] = fmt.Sprintf("%v (filled %d)", records.Format(stats[col]), filled)
	}
	im.logger().WithFields(fields).Info("imputation statistics")
	return out, nil
}

func undefinedStatistic(in *table.Table, col, stat string) error {
	reason := "entirely missing; " + stat + " is undefined"
	if !in.Has(col) {
		reason = "absent from every source; " + stat + " is undefined"
	}
	return &dataerr.DataQualityError{Column: col, Reason: reason}
}

func numericFallback(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

// Median returns the median of vals, averaging the two central order
// statistics for an even count. vals is not modified. It panics on an
// empty slice.
func Median(vals []float64) float64 {
	s := append([]float64(nil), vals...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// Mode returns the most frequent value; ties go to the lexicographically
// smallest value. An empty slice yields "".
func Mode(vals []string) string {
	counts := make(map[string]int, len(vals))
	for _, v := range vals {
		counts[v]++
	}
	best, bestN := "", 0
	for v, n := range counts {
		if n > bestN || (n == bestN && v < best) {
			best, bestN = v, n
		}
	}
	return best
}
