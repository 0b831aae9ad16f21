package monitor

import (
	"context"

	"carprep/internal/dataerr"
	"carprep/internal/datasource/file"
	pcsv "carprep/internal/parser/csv"
	"carprep/internal/table"

	"github.com/sirupsen/logrus"
)

// LoadDataset reads a published final dataset. Cells stay text; Compare
// parses them.
func LoadDataset(ctx context.Context, path string, log logrus.FieldLogger) (*table.Table, error) {
	src := file.NewLocal(path)
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, &dataerr.MalformedInputError{Source: src.Identity(), Err: err}
	}
	defer rc.Close()

	t, _, err := pcsv.NewParser(pcsv.Options{Log: log}).Parse(rc)
	if err != nil {
		return nil, &dataerr.MalformedInputError{Source: src.Identity(), Err: err}
	}
	return t, nil
}
