package builtin

import (
	"sort"

	"carprep/internal/table"
	"carprep/pkg/records"
)

// Merge concatenates cleaned source tables row-wise. Sources are visited in
// identity order, so the result does not depend on map iteration. Columns
// are the union of all source columns in first-seen order; a column absent
// from a source reads as missing in that source's rows. An empty map yields
// an empty table.
func Merge(sources map[string]*table.Table) *table.Table {
	if len(sources) == 0 {
		return table.Empty()
	}
	ids := make([]string, 0, len(sources))
	total := 0
	for id, t := range sources {
		ids = append(ids, id)
		total += t.Len()
	}
	sort.Strings(ids)

	var cols []string
	rows := make([]records.Record, 0, total)
	for _, id := range ids {
		t := sources[id]
		cols = append(cols, t.Columns()...)
		for _, r := range t.Rows() {
			rows = append(rows, r.Clone())
		}
	}
	return table.New(cols, rows)
}
