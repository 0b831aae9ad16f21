package builtin

import (
	"context"
	"strconv"
	"strings"

	"carprep/internal/schema"
	"carprep/internal/table"
	"carprep/pkg/records"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Clean prepares the table of one source file:
//
//  1. rows with any missing cell are dropped;
//  2. year is coerced to float;
//  3. money columns lose currency symbols and thousands separators and are
//     parsed as float;
//  4. plain numeric columns are coerced to float;
//  5. make is set from the source identity when the file has no make column.
//
// Unparseable cells in steps 2-4 become missing; they are not dropped here.
type Clean struct {
	Env
	Source          string
	CurrencySymbol  string
	CurrencyColumns []string
	Numeric         []string
}

func (Clean) Name() string { return "clean" }

func (c Clean) Apply(_ context.Context, in *table.Table) (*table.Table, error) {
	cols := in.Columns()
	out := in.Filter(func(r records.Record) bool {
		for _, col := range cols {
			if r.Missing(col) {
				return false
			}
		}
		return true
	}).Clone()
	c.dropped(c.Name(), "dropped_incomplete", in.Len()-out.Len(), logrus.Fields{"source": c.Source})

	coerce := func(col string, parse func(string) (float64, bool)) {
		if !out.Has(col) {
			return
		}
		for _, r := range out.Rows() {
			s, ok := r[col].(string)
			if !ok {
				continue
			}
			if f, ok := parse(s); ok {
				r[col] = f
			} else {
				r[col] = nil
			}
		}
	}

	coerce(schema.ColYear, ParseNumber)
	for _, col := range c.CurrencyColumns {
		coerce(col, func(s string) (float64, bool) { return ParseMoney(s, c.CurrencySymbol) })
	}
	for _, col := range c.Numeric {
		coerce(col, ParseNumber)
	}

	if !out.Has(schema.ColMake) {
		out.AddColumn(schema.ColMake)
		for _, r := range out.Rows() {
			r[schema.ColMake] = c.Source
		}
	}
	return out, nil
}

// ParseNumber parses a plain decimal number, ignoring surrounding spaces.
func ParseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ParseMoney parses a currency amount such as "£12,500" or "£ 9,995.50".
func ParseMoney(s, currency string) (float64, bool) {
	if currency != "" {
		s = strings.ReplaceAll(s, currency, "")
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	f, _ := d.Float64()
	return f, true
}
