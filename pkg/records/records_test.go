package records

import (
	"math"
	"testing"
)

func TestIsMissing(t *testing.T) {
	cases := []struct {
		name string
		v    any
		want bool
	}{
		{"nil", nil, true},
		{"nan", math.NaN(), true},
		{"zero", 0.0, false},
		{"empty_string_is_a_value", "", false},
		{"text", "N/A", false},
	}
	for _, c := range cases {
		if got := IsMissing(c.v); got != c.want {
			t.Errorf("%s: IsMissing(%v)=%v want %v", c.name, c.v, got, c.want)
		}
	}
}

func TestRecordAccessors(t *testing.T) {
	r := Record{"price": 14000.0, "make": "ford", "tax": math.NaN()}

	if f, ok := r.Float("price"); !ok || f != 14000 {
		t.Fatalf("Float(price) = %v,%v", f, ok)
	}
	if _, ok := r.Float("tax"); ok {
		t.Fatalf("Float(tax) should report missing for NaN")
	}
	if _, ok := r.Float("make"); ok {
		t.Fatalf("Float(make) should not coerce strings")
	}
	if s, ok := r.String("price"); !ok || s != "14000" {
		t.Fatalf("String(price) = %q,%v", s, ok)
	}
	if !r.Missing("absent") || !r.Missing("tax") || r.Missing("make") {
		t.Fatalf("Missing() mismatch")
	}
}

func TestFormat(t *testing.T) {
	if got := Format(57.7); got != "57.7" {
		t.Fatalf("Format(57.7) = %q", got)
	}
	if got := Format(1.0); got != "1" {
		t.Fatalf("Format(1.0) = %q", got)
	}
	if got := Format(nil); got != "" {
		t.Fatalf("Format(nil) = %q", got)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	r := Record{"a": "x"}
	c := r.Clone()
	c["a"] = "y"
	if r["a"] != "x" {
		t.Fatalf("clone shares storage with original")
	}
}
