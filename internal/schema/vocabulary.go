package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// FieldVocabulary is the ordered category list of one nominal field. The
// first category is the baseline and has no indicator column.
type FieldVocabulary struct {
	Field      string   `json:"field"`
	Categories []string `json:"categories"`
}

// Baseline returns the reference category, or "" for an empty vocabulary.
func (f FieldVocabulary) Baseline() string {
	if len(f.Categories) == 0 {
		return ""
	}
	return f.Categories[0]
}

// Contains reports whether category is part of the vocabulary.
func (f FieldVocabulary) Contains(category string) bool {
	for _, c := range f.Categories {
		if c == category {
			return true
		}
	}
	return false
}

// Vocabulary fixes the indicator columns of the encoded dataset. It is
// derived from data at training time and published next to the dataset so
// that serving and monitoring use exactly the same columns.
type Vocabulary struct {
	Fields []FieldVocabulary `json:"fields"`

	// Pruned lists indicator or free-text columns removed from the final
	// dataset as low-frequency noise.
	Pruned []string `json:"pruned,omitempty"`
}

// IndicatorName returns the column name of category within field.
func IndicatorName(field, category string) string {
	return field + "_" + category
}

// NewFieldVocabulary builds a sorted, de-duplicated vocabulary from observed
// values.
func NewFieldVocabulary(field string, observed []string) FieldVocabulary {
	seen := make(map[string]struct{}, len(observed))
	cats := make([]string, 0, len(observed))
	for _, v := range observed {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		cats = append(cats, v)
	}
	sort.Strings(cats)
	return FieldVocabulary{Field: field, Categories: cats}
}

// Field returns the vocabulary for name.
func (v Vocabulary) Field(name string) (FieldVocabulary, bool) {
	for _, f := range v.Fields {
		if f.Field == name {
			return f, true
		}
	}
	return FieldVocabulary{}, false
}

// Encoded returns every indicator column produced by the encoder (all
// non-baseline categories), field by field in vocabulary order.
func (v Vocabulary) Encoded() []string {
	var out []string
	for _, f := range v.Fields {
		for i, c := range f.Categories {
			if i == 0 {
				continue
			}
			out = append(out, IndicatorName(f.Field, c))
		}
	}
	return out
}

// Indicators returns the indicator columns kept in the final dataset: the
// encoded columns minus the pruned ones.
func (v Vocabulary) Indicators() []string {
	pruned := make(map[string]struct{}, len(v.Pruned))
	for _, p := range v.Pruned {
		pruned[p] = struct{}{}
	}
	var out []string
	for _, c := range v.Encoded() {
		if _, ok := pruned[c]; !ok {
			out = append(out, c)
		}
	}
	return out
}

// IndicatorGroups returns the kept indicator columns grouped by field.
func (v Vocabulary) IndicatorGroups() map[string][]string {
	kept := make(map[string]struct{})
	for _, c := range v.Indicators() {
		kept[c] = struct{}{}
	}
	out := make(map[string][]string, len(v.Fields))
	for _, f := range v.Fields {
		for i, c := range f.Categories {
			name := IndicatorName(f.Field, c)
			if _, ok := kept[name]; ok && i > 0 {
				out[f.Field] = append(out[f.Field], name)
			}
		}
	}
	return out
}

// FeatureColumns returns the model input columns in output order.
func (v Vocabulary) FeatureColumns() []string {
	out := append([]string(nil), NumericFeatures...)
	return append(out, v.Indicators()...)
}

// FinalColumns returns the complete FinalDataset column list: the target
// followed by the feature columns.
func (v Vocabulary) FinalColumns() []string {
	return append([]string{Target}, v.FeatureColumns()...)
}

// LoadVocabulary reads a vocabulary artifact written by the pipeline.
func LoadVocabulary(path string) (Vocabulary, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Vocabulary{}, fmt.Errorf("read vocabulary: %w", err)
	}
	var v Vocabulary
	if err := json.Unmarshal(b, &v); err != nil {
		return Vocabulary{}, fmt.Errorf("decode vocabulary %s: %w", path, err)
	}
	if err := v.Validate(); err != nil {
		return Vocabulary{}, fmt.Errorf("vocabulary %s: %w", path, err)
	}
	return v, nil
}

// Validate checks that every field has at least one category and that the
// categories are sorted and unique, so the baseline is unambiguous.
func (v Vocabulary) Validate() error {
	if len(v.Fields) == 0 {
		return fmt.Errorf("no fields")
	}
	for _, f := range v.Fields {
		if f.Field == "" {
			return fmt.Errorf("field with empty name")
		}
		if len(f.Categories) == 0 {
			return fmt.Errorf("field %q has no categories", f.Field)
		}
		for i := 1; i < len(f.Categories); i++ {
			if f.Categories[i-1] >= f.Categories[i] {
				return fmt.Errorf("field %q categories not sorted/unique at %q", f.Field, f.Categories[i])
			}
		}
	}
	return nil
}
