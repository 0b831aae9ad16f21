// Package csv parses one listing file into a table. Header labels are kept
// as written (apart from a leading BOM and surrounding spaces); canonical
// naming is the job of the column normalizer stage.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"carprep/internal/parser"
	"carprep/internal/table"
	"carprep/pkg/records"

	"github.com/sirupsen/logrus"
)

// ErrNoHeader is returned when the input has no usable header row.
var ErrNoHeader = errors.New("no header row")

// Options configures the parser. All fields are optional.
type Options struct {
	// Comma specifies the field delimiter. When zero, ',' is used.
	Comma rune

	// TrimSpace trims leading/trailing spaces from each cell.
	TrimSpace bool

	// Log receives per-row skip notices. Defaults to the logrus standard logger.
	Log logrus.FieldLogger
}

// Parser parses CSV input according to Options. It is safe to reuse across
// inputs but not concurrently.
type Parser struct{ opt Options }

var _ parser.Parser = (*Parser)(nil)

// NewParser constructs a Parser with the provided Options.
func NewParser(opt Options) *Parser {
	if opt.Log == nil {
		opt.Log = logrus.StandardLogger()
	}
	return &Parser{opt: opt}
}

// skipLogLimit caps per-row skip notices for one input.
const skipLogLimit = 50

// Parse reads a header row followed by data rows from r. Empty cells become
// the missing sentinel; every other cell is kept as text. Rows that fail to
// parse or whose width differs from the header are skipped and counted.
//
// A missing, empty, or binary header is reported as an error wrapping
// ErrNoHeader; the caller attaches the source identity.
func (p *Parser) Parse(r io.Reader) (*table.Table, int, error) {
	cr := csv.NewReader(r)
	if p.opt.Comma != 0 {
		cr.Comma = p.opt.Comma
	}
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	h, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, 0, ErrNoHeader
		}
		return nil, 0, fmt.Errorf("%w: %v", ErrNoHeader, err)
	}
	headers, err := headerLabels(h)
	if err != nil {
		return nil, 0, err
	}

	var rows []records.Record
	var skipped int
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if skipped < skipLogLimit {
				p.opt.Log.WithField("line", line).Warnf("skipping row: %v", err)
			}
			skipped++
			continue
		}
		if len(row) != len(headers) {
			if len(row) == 1 && row[0] == "" {
				continue
			}
			if skipped < skipLogLimit {
				p.opt.Log.WithField("line", line).
					Warnf("skipping row: expected %d fields, got %d", len(headers), len(row))
			}
			skipped++
			continue
		}

		rec := make(records.Record, len(row))
		for i, val := range row {
			if p.opt.TrimSpace {
				val = strings.TrimSpace(val)
			}
			rec[headers[i]] = emptyToNil(val)
		}
		rows = append(rows, rec)
	}
	return table.New(headers, rows), skipped, nil
}

// headerLabels validates and cleans the raw header row. Blank labels are
// replaced by positional names so that every cell has a key.
func headerLabels(h []string) ([]string, error) {
	h = StripHeaderBOM(append([]string(nil), h...))
	nonEmpty := 0
	for i, col := range h {
		if strings.ContainsRune(col, 0) {
			return nil, fmt.Errorf("%w: binary content in header", ErrNoHeader)
		}
		c := strings.TrimSpace(col)
		if c == "" {
			c = fmt.Sprintf("col_%d", i)
		} else {
			nonEmpty++
		}
		h[i] = c
	}
	if nonEmpty == 0 {
		return nil, fmt.Errorf("%w: all header cells are empty", ErrNoHeader)
	}
	return h, nil
}

// emptyToNil converts an empty string to nil; all other values are returned as-is.
func emptyToNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}
