// Package records defines the row type shared by the parser, the transformer
// stages and the sinks.
//
// A Record maps a column name to a value. Values are one of:
//
//   - nil      the missing sentinel (empty CSV cell, failed coercion, absent column)
//   - string   raw or categorical text
//   - float64  a coerced numeric value; NaN is treated as missing
package records

import (
	"math"
	"strconv"
)

// Record is a single row keyed by canonical column name.
type Record map[string]any

// Clone returns a shallow copy of r. Values are immutable scalars, so a
// shallow copy is a full copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// IsMissing reports whether v is the missing sentinel.
func IsMissing(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(t)
	}
	return false
}

// Missing reports whether column k is absent or missing in r.
func (r Record) Missing(k string) bool {
	v, ok := r[k]
	return !ok || IsMissing(v)
}

// Float returns the numeric value of column k. It reports false when the
// value is missing or not a float64.
func (r Record) Float(k string) (float64, bool) {
	f, ok := r[k].(float64)
	if !ok || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// String returns the string value of column k. Numeric values are formatted
// canonically; missing values report false.
func (r Record) String(k string) (string, bool) {
	switch t := r[k].(type) {
	case string:
		return t, true
	case float64:
		if math.IsNaN(t) {
			return "", false
		}
		return FormatFloat(t), true
	}
	return "", false
}

// FormatFloat renders f in the shortest representation that round-trips.
// Output files rely on it for byte-stable formatting.
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Format renders v as it is written to CSV output. Missing values become the
// empty string.
func Format(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if math.IsNaN(t) {
			return ""
		}
		return FormatFloat(t)
	}
	return ""
}
