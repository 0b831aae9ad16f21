package builtin

import (
	"context"
	"fmt"
	"sort"

	"carprep/internal/dataerr"
	"carprep/internal/schema"
	"carprep/internal/table"
	"carprep/pkg/records"

	"github.com/zeebo/xxh3"
)

// Prune removes the low-frequency columns in Columns and then enforces the
// final schema of Vocab exactly: target, numeric features and kept
// indicators, in that order. Indicator columns the data never produced are
// added as all-zero; any other missing or extra column is an error.
type Prune struct {
	Env
	Columns []string
	Vocab   schema.Vocabulary
}

func (Prune) Name() string { return "prune" }

func (p Prune) Apply(_ context.Context, in *table.Table) (*table.Table, error) {
	out := in.Clone()
	out.DropColumns(p.Columns...)

	vocab := p.Vocab
	vocab.Pruned = p.Columns
	final := vocab.FinalColumns()
	indicators := make(map[string]struct{})
	for _, c := range vocab.Indicators() {
		indicators[c] = struct{}{}
	}

	want := make(map[string]struct{}, len(final))
	for _, c := range final {
		want[c] = struct{}{}
		if out.Has(c) {
			continue
		}
		if _, ok := indicators[c]; !ok {
			return nil, &dataerr.DataQualityError{Column: c, Reason: "final schema column missing"}
		}
		out.AddColumn(c)
		for _, r := range out.Rows() {
			r[c] = 0.0
		}
	}

	var extra []string
	for _, c := range out.Columns() {
		if _, ok := want[c]; !ok {
			extra = append(extra, c)
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		return nil, &dataerr.DataQualityError{
			Column: extra[0],
			Reason: fmt.Sprintf("column outside the final schema (extra: %v)", extra),
		}
	}
	return out.Reorder(final), nil
}

// ValidateFinal checks the FinalDataset invariants of t against vocab: exact
// columns, no missing cell, at most one active indicator per field and no
// two identical rows.
func ValidateFinal(t *table.Table, vocab schema.Vocabulary) error {
	final := vocab.FinalColumns()
	cols := t.Columns()
	if len(cols) != len(final) {
		return fmt.Errorf("final dataset has %d columns, want %d", len(cols), len(final))
	}
	for i := range cols {
		if cols[i] != final[i] {
			return fmt.Errorf("final dataset column %d is %q, want %q", i, cols[i], final[i])
		}
	}
	groups := vocab.IndicatorGroups()
	seen := make(map[xxh3.Uint128][]int, t.Len())
	rows := t.Rows()
	buf := make([]byte, 0, 256)
	for i, r := range rows {
		for _, c := range final {
			if records.IsMissing(r[c]) {
				return &dataerr.DataQualityError{Column: c, Reason: fmt.Sprintf("missing value in final row %d", i)}
			}
		}
		for field, g := range groups {
			active := 0
			for _, c := range g {
				if v, _ := r.Float(c); v == 1 {
					active++
				}
			}
			if active > 1 {
				return fmt.Errorf("row %d has %d active %s indicators", i, active, field)
			}
		}
		buf = appendRowKey(buf[:0], final, r)
		h := xxh3.Hash128(buf)
		for _, j := range seen[h] {
			if sameRow(final, rows[j], r) {
				return fmt.Errorf("final row %d duplicates row %d", i, j)
			}
		}
		seen[h] = append(seen[h], i)
	}
	return nil
}
