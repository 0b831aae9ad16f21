package builtin

import (
	"context"
	"strings"

	"carprep/internal/table"
	"carprep/pkg/records"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var lower = cases.Lower(language.Und)

// NormalizeLabel canonicalizes one column label: NFC, trim, lowercase,
// spaces to underscores, currency symbol removed. "Tax(£)" → "tax()".
func NormalizeLabel(label, currency string) string {
	s := norm.NFC.String(label)
	s = lower.String(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "_")
	if currency != "" {
		s = strings.ReplaceAll(s, norm.NFC.String(currency), "")
	}
	return s
}

// NormalizeColumns renames every column to its canonical label. Row content
// is unchanged. When two labels collide the later column's values win and a
// warning is logged.
type NormalizeColumns struct {
	Env
	Source         string
	CurrencySymbol string
}

func (NormalizeColumns) Name() string { return "normalize" }

func (n NormalizeColumns) Apply(_ context.Context, in *table.Table) (*table.Table, error) {
	cols := in.Columns()
	renamed := make([]string, len(cols))
	owner := make(map[string]string, len(cols))
	for i, c := range cols {
		nc := NormalizeLabel(c, n.CurrencySymbol)
		if prev, ok := owner[nc]; ok {
			n.logger().WithFields(logrus.Fields{
				"stage":  n.Name(),
				"source": n.Source,
				"column": nc,
			}).Warnf("labels %q and %q collide; keeping values of %q", prev, c, c)
		}
		owner[nc] = c
		renamed[i] = nc
	}

	rows := make([]records.Record, in.Len())
	for i, r := range in.Rows() {
		out := make(records.Record, len(r))
		for j, c := range cols {
			if v, ok := r[c]; ok {
				out[renamed[j]] = v
			} else if owner[renamed[j]] == c {
				delete(out, renamed[j])
			}
		}
		rows[i] = out
	}
	return table.New(renamed, rows), nil
}
