// Package serving turns a prediction request payload into the feature vector
// a model trained on the final dataset expects, and wraps a model behind the
// response contract of the prediction service.
package serving

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"carprep/internal/dataerr"
	"carprep/internal/schema"
)

// Decoder validates payloads against a published vocabulary.
//
// Numeric features must be JSON numbers and present. Indicator fields accept
// booleans or 0/1; absent indicators read as 0. A key naming a category the
// vocabulary does not know is ignored when false and rejected when true, as
// is more than one active category in a field. The target column is ignored
// and any other key is rejected.
type Decoder struct {
	Vocab schema.Vocabulary
}

// Decode returns the feature vector of payload in FeatureColumns order.
func (d Decoder) Decode(payload []byte) ([]float64, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var in map[string]any
	if err := dec.Decode(&in); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if in == nil {
		return nil, fmt.Errorf("decode payload: expected a JSON object")
	}

	cols := d.Vocab.FeatureColumns()
	pos := make(map[string]int, len(cols))
	for i, c := range cols {
		pos[c] = i
	}
	numeric := make(map[string]struct{}, len(schema.NumericFeatures))
	for _, c := range schema.NumericFeatures {
		numeric[c] = struct{}{}
	}

	out := make([]float64, len(cols))
	seen := make(map[string]bool, len(in))
	active := make(map[string][]string)

	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := in[k]
		if k == schema.Target {
			continue
		}
		if _, ok := numeric[k]; ok {
			n, ok := v.(json.Number)
			if !ok {
				return nil, &dataerr.SchemaDriftError{Field: k, Reason: fmt.Sprintf("numeric feature must be a JSON number, got %T", v)}
			}
			f, err := n.Float64()
			if err != nil {
				return nil, &dataerr.SchemaDriftError{Field: k, Reason: err.Error()}
			}
			out[pos[k]] = f
			seen[k] = true
			continue
		}

		field, category, ok := d.splitIndicator(k)
		if !ok {
			return nil, &dataerr.SchemaDriftError{Field: k, Reason: "unknown field"}
		}
		on, err := flag(v)
		if err != nil {
			return nil, &dataerr.SchemaDriftError{Field: k, Reason: err.Error()}
		}
		fv, _ := d.Vocab.Field(field)
		if !fv.Contains(category) {
			if on {
				return nil, &dataerr.SchemaDriftError{Field: field, Reason: fmt.Sprintf("category %q not in vocabulary", category)}
			}
			continue
		}
		if !on {
			continue
		}
		active[field] = append(active[field], category)
		if i, ok := pos[k]; ok {
			out[i] = 1
		}
	}

	for _, c := range schema.NumericFeatures {
		if !seen[c] {
			return nil, &dataerr.SchemaDriftError{Field: c, Reason: "numeric feature absent from payload"}
		}
	}
	for field, cats := range active {
		if len(cats) > 1 {
			return nil, &dataerr.SchemaDriftError{
				Field:  field,
				Reason: "more than one active category: " + strings.Join(cats, ", "),
			}
		}
	}
	return out, nil
}

// splitIndicator maps "<field>_<category>" onto an encoded field. The longest
// matching field name wins.
func (d Decoder) splitIndicator(key string) (field, category string, ok bool) {
	for _, fv := range d.Vocab.Fields {
		prefix := fv.Field + "_"
		if strings.HasPrefix(key, prefix) && len(fv.Field) > len(field) {
			field, category, ok = fv.Field, strings.TrimPrefix(key, prefix), true
		}
	}
	return field, category, ok
}

func flag(v any) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case json.Number:
		switch t.String() {
		case "0", "0.0":
			return false, nil
		case "1", "1.0":
			return true, nil
		}
	}
	return false, fmt.Errorf("indicator must be a boolean or 0/1, got %v", v)
}
