// Package parser defines the tabular parser contract.
package parser

import (
	"io"

	"carprep/internal/table"
)

// Parser turns one source stream into a table and reports how many rows
// were skipped as unparseable.
type Parser interface {
	Parse(r io.Reader) (*table.Table, int, error)
}
