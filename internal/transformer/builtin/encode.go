package builtin

import (
	"context"

	"carprep/internal/schema"
	"carprep/internal/table"
	"carprep/pkg/records"

	"github.com/sirupsen/logrus"
)

// FitVocabulary derives the encoding vocabulary from the observed values of
// fields. Categories are sorted by byte order; the first is the baseline.
func FitVocabulary(in *table.Table, fields []string) schema.Vocabulary {
	v := schema.Vocabulary{Fields: make([]schema.FieldVocabulary, 0, len(fields))}
	for _, f := range fields {
		var observed []string
		for _, r := range in.Rows() {
			if s, ok := r[f].(string); ok {
				observed = append(observed, s)
			}
		}
		v.Fields = append(v.Fields, schema.NewFieldVocabulary(f, observed))
	}
	return v
}

// Encode replaces each nominal field by one 1/0 indicator column per
// non-baseline category of Vocab, named "<field>_<category>". The original
// nominal columns are removed.
//
// Rows whose category is missing or not part of Vocab are dropped and
// counted; they are never folded into the baseline. With a vocabulary fitted
// on the same table this cannot happen for present values.
type Encode struct {
	Env
	Vocab schema.Vocabulary
}

func (Encode) Name() string { return "encode" }

func (e Encode) Apply(_ context.Context, in *table.Table) (*table.Table, error) {
	unseen := map[string]int{}
	kept := in.Filter(func(r records.Record) bool {
		for _, f := range e.Vocab.Fields {
			s, ok := r[f.Field].(string)
			if !ok {
				unseen[f.Field+"=<missing>"]++
				return false
			}
			if !f.Contains(s) {
				unseen[f.Field+"="+s]++
				return false
			}
		}
		return true
	})
	if n := in.Len() - kept.Len(); n > 0 {
		fields := logrus.Fields{}
		for k, c := range unseen {
			fields[k] = c
		}
		e.dropped(e.Name(), "dropped_unseen_category", n, fields)
	}

	out := kept.Clone()
	for _, f := range e.Vocab.Fields {
		base := f.Baseline()
		for _, c := range f.Categories {
			if c != base {
				out.AddColumn(schema.IndicatorName(f.Field, c))
			}
		}
		for _, r := range out.Rows() {
			cat, _ := r[f.Field].(string)
			for _, c := range f.Categories {
				if c == base {
					continue
				}
				v := 0.0
				if c == cat {
					v = 1
				}
				r[schema.IndicatorName(f.Field, c)] = v
			}
		}
		out.DropColumns(f.Field)
	}
	return out, nil
}
