package builtin

import (
	"context"
	"math"

	"carprep/internal/schema"
	"carprep/internal/table"
	"carprep/pkg/records"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
)

// RangeFilter keeps rows inside the plausible domain: YearMin ≤ year ≤
// YearMax, a present price, mileage ≤ MileageMax and mpg ≤ MPGMax. A
// missing value fails its bound. Rows are dropped, never clipped.
//
// When PriceZScoreMax > 0, rows whose absolute price z-score (population
// standard deviation over the rows that passed the year and price checks) is
// not below it are dropped as well.
type RangeFilter struct {
	Env
	YearMin, YearMax float64
	MileageMax       float64
	MPGMax           float64
	PriceZScoreMax   float64
}

func (RangeFilter) Name() string { return "filter" }

func (f RangeFilter) Apply(_ context.Context, in *table.Table) (*table.Table, error) {
	out := in.Filter(func(r records.Record) bool {
		y, ok := r.Float(schema.ColYear)
		if !ok || y < f.YearMin || y > f.YearMax {
			return false
		}
		_, ok = r.Float(schema.ColPrice)
		return ok
	})

	if f.PriceZScoreMax > 0 && out.Len() > 0 {
		prices := make([]float64, out.Len())
		for i, r := range out.Rows() {
			prices[i], _ = r.Float(schema.ColPrice)
		}
		mean, std := stat.PopMeanStdDev(prices, nil)
		if std > 0 {
			out = out.Filter(func(r records.Record) bool {
				p, _ := r.Float(schema.ColPrice)
				return math.Abs(stat.StdScore(p, mean, std)) < f.PriceZScoreMax
			})
		}
	}

	out = out.Filter(func(r records.Record) bool {
		m, ok := r.Float(schema.ColMileage)
		if !ok || m > f.MileageMax {
			return false
		}
		mpg, ok := r.Float(schema.ColMPG)
		return ok && mpg <= f.MPGMax
	})

	f.dropped(f.Name(), "dropped_out_of_range", in.Len()-out.Len(), logrus.Fields{})
	return out.Clone(), nil
}
