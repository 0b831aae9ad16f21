package builtin

import (
	"context"
	"math"
	"strconv"

	"carprep/internal/table"
	"carprep/pkg/records"

	"github.com/sirupsen/logrus"
	"github.com/zeebo/xxh3"
)

// DeDup removes rows identical to an earlier row across every column,
// keeping the first occurrence. Rows are bucketed by a 128-bit xxh3 hash of
// their canonical encoding and confirmed by value comparison, so a hash
// collision never drops a distinct row.
type DeDup struct {
	Env
}

func (DeDup) Name() string { return "dedup" }

func (d DeDup) Apply(_ context.Context, in *table.Table) (*table.Table, error) {
	cols := in.Columns()
	buckets := make(map[xxh3.Uint128][]records.Record, in.Len())
	buf := make([]byte, 0, 256)

	out := in.Filter(func(r records.Record) bool {
		buf = appendRowKey(buf[:0], cols, r)
		h := xxh3.Hash128(buf)
		for _, prev := range buckets[h] {
			if sameRow(cols, prev, r) {
				return false
			}
		}
		buckets[h] = append(buckets[h], r)
		return true
	})
	d.dropped(d.Name(), "dropped_duplicate", in.Len()-out.Len(), logrus.Fields{})
	return out.Clone(), nil
}

// appendRowKey writes a type-tagged, separator-delimited encoding of r.
func appendRowKey(b []byte, cols []string, r records.Record) []byte {
	for _, c := range cols {
		switch v := r[c].(type) {
		case string:
			b = append(b, 's')
			b = append(b, v...)
		case float64:
			if math.IsNaN(v) {
				b = append(b, 'n')
				break
			}
			b = append(b, 'f')
			b = strconv.AppendFloat(b, v, 'g', -1, 64)
		default:
			b = append(b, 'n')
		}
		b = append(b, 0x1f)
	}
	return b
}

func sameRow(cols []string, a, b records.Record) bool {
	for _, c := range cols {
		av, bv := a[c], b[c]
		if records.IsMissing(av) && records.IsMissing(bv) {
			continue
		}
		if av != bv {
			return false
		}
	}
	return true
}
