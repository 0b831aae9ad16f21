// Package datasource defines where listing files come from.
package datasource

import (
	"context"
	"io"
)

// Source is one named input. Identity is the source identity used for make
// inference and error reporting (a file stem such as "ford").
type Source interface {
	Identity() string
	Open(ctx context.Context) (io.ReadCloser, error)
}
