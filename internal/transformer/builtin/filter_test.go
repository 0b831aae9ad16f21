package builtin

import (
	"testing"
)

func rangeFilter(env Env) RangeFilter {
	return RangeFilter{Env: env, YearMin: 1980, YearMax: 2024, MileageMax: 200000, MPGMax: 100}
}

func TestRangeFilter_Bounds(t *testing.T) {
	t.Parallel()

	env, _ := testEnv(t)
	cols := []string{"price", "year", "mileage", "mpg"}
	tests := []struct {
		name string
		row  []any
		keep bool
	}{
		{"inside", []any{1.0, 2017.0, 1000.0, 50.0}, true},
		{"year lower bound", []any{1.0, 1980.0, 0.0, 100.0}, true},
		{"year upper bound", []any{1.0, 2024.0, 200000.0, 1.0}, true},
		{"year too old", []any{1.0, 1979.0, 1000.0, 50.0}, false},
		{"year in future", []any{1.0, 2060.0, 1000.0, 50.0}, false},
		{"year missing (N/A)", []any{1.0, nil, 1000.0, 50.0}, false},
		{"mileage too high", []any{1.0, 2017.0, 200001.0, 50.0}, false},
		{"mpg too high", []any{1.0, 2017.0, 1000.0, 470.8}, false},
		{"price missing", []any{nil, 2017.0, 1000.0, 50.0}, false},
	}
	for _, tc := range tests {
		out := mustApply(t, rangeFilter(env), tbl(cols, tc.row))
		if got := out.Len() == 1; got != tc.keep {
			t.Errorf("%s: kept=%v, want %v", tc.name, got, tc.keep)
		}
	}
}

func TestRangeFilter_PriceZScore(t *testing.T) {
	t.Parallel()

	env, _ := testEnv(t)
	cols := []string{"price", "year", "mileage", "mpg"}
	var rows [][]any
	for i := 0; i < 20; i++ {
		rows = append(rows, []any{10000.0 + float64(i), 2017.0, 1000.0, 50.0})
	}
	rows = append(rows, []any{1_000_000.0, 2017.0, 1000.0, 50.0})

	f := rangeFilter(env)
	if out := mustApply(t, f, tbl(cols, rows...)); out.Len() != 21 {
		t.Fatalf("z-score disabled by default: rows=%d", out.Len())
	}
	f.PriceZScoreMax = 3
	out := mustApply(t, f, tbl(cols, rows...))
	if out.Len() != 20 {
		t.Fatalf("rows = %d, want outlier removed", out.Len())
	}

	same := tbl(cols, []any{5.0, 2017.0, 1.0, 1.0}, []any{5.0, 2018.0, 1.0, 1.0})
	if out := mustApply(t, f, same); out.Len() != 2 {
		t.Fatalf("zero std must keep all rows, got %d", out.Len())
	}
}

func TestDeDup_KeepsFirst(t *testing.T) {
	t.Parallel()

	env, hook := testEnv(t)
	cols := []string{"price", "year", "make_ford"}
	in := tbl(cols,
		[]any{100.0, 2017.0, 1.0},
		[]any{100.0, 2017.0, 0.0},
		[]any{100.0, 2017.0, 1.0},
		[]any{100.0, nil, 1.0},
		[]any{100.0, nil, 1.0},
	)
	out := mustApply(t, DeDup{Env: env}, in)
	if out.Len() != 3 {
		t.Fatalf("rows = %d, want 3", out.Len())
	}
	if out.Row(0)["make_ford"] != 1.0 || out.Row(1)["make_ford"] != 0.0 {
		t.Fatalf("order not preserved: %#v", out.Rows())
	}
	if e := hook.LastEntry(); e == nil || e.Data["rows"] != 2 {
		t.Fatalf("duplicate count not logged: %+v", e)
	}
	if in.Len() != 5 {
		t.Fatalf("input mutated")
	}
}

func TestAppendRowKey_TypeTagged(t *testing.T) {
	t.Parallel()

	cols := []string{"a"}
	s := appendRowKey(nil, cols, map[string]any{"a": "1"})
	f := appendRowKey(nil, cols, map[string]any{"a": 1.0})
	if string(s) == string(f) {
		t.Fatalf("string and float keys collide: %q", s)
	}
}
