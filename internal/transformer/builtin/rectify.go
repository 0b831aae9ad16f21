package builtin

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"carprep/internal/dataerr"
	"carprep/internal/schema"
	"carprep/internal/table"
)

// Rectify reconciles the merged table with the declared schema:
//
//  1. alias columns are coalesced into their canonical column and dropped;
//  2. the legacy/redundant columns in Drop are removed when present;
//  3. make typos are corrected through MakeMapping;
//  4. mileage is reduced to its digits and parsed as float;
//  5. required columns must exist (DataQualityError otherwise) and columns
//     the declaration does not know are dropped with a warning.
type Rectify struct {
	Env
	Aliases     map[string]string
	Drop        []string
	MakeMapping map[string]string
	Declared    schema.Declared
}

func (Rectify) Name() string { return "rectify" }

func (s Rectify) Apply(_ context.Context, in *table.Table) (*table.Table, error) {
	out := in.Clone()

	aliases := make([]string, 0, len(s.Aliases))
	for a := range s.Aliases {
		aliases = append(aliases, a)
	}
	sort.Strings(aliases)
	for _, alias := range aliases {
		if !out.Has(alias) {
			continue
		}
		canon := s.Aliases[alias]
		out.AddColumn(canon)
		for _, r := range out.Rows() {
			if r.Missing(canon) && !r.Missing(alias) {
				r[canon] = r[alias]
			}
		}
		out.DropColumns(alias)
	}

	out.DropColumns(s.Drop...)

	if len(s.MakeMapping) > 0 && out.Has(schema.ColMake) {
		for _, r := range out.Rows() {
			if m, ok := r[schema.ColMake].(string); ok {
				if fixed, ok := s.MakeMapping[m]; ok {
					r[schema.ColMake] = fixed
				}
			}
		}
	}

	if out.Has(schema.ColMileage) {
		for _, r := range out.Rows() {
			if m, ok := r[schema.ColMileage].(string); ok {
				r[schema.ColMileage] = parseDigits(m)
			}
		}
	}

	declared := s.Declared
	if declared == nil {
		declared = schema.DefaultDeclared()
	}
	missing, undeclared := declared.Check(out.Columns())
	if len(missing) > 0 {
		return nil, &dataerr.DataQualityError{
			Column: missing[0],
			Reason: "required column absent from every source (missing: " + strings.Join(missing, ", ") + ")",
		}
	}
	if len(undeclared) > 0 {
		s.logger().WithField("stage", s.Name()).
			Warnf("dropping undeclared columns %v", undeclared)
		out.DropColumns(undeclared...)
	}
	return out, nil
}

// parseDigits keeps only ASCII digits of s and parses them. "15,944 miles"
// → 15944. No digits yields the missing sentinel.
func parseDigits(s string) any {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	if b.Len() == 0 {
		return nil
	}
	f, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return nil
	}
	return f
}

