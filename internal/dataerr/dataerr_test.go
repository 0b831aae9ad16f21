package dataerr

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
)

func TestErrorsAsThroughWrapping(t *testing.T) {
	err := fmt.Errorf("stage impute: %w", &DataQualityError{Column: "mpg", Reason: "all values missing"})

	var dq *DataQualityError
	if !errors.As(err, &dq) {
		t.Fatalf("errors.As failed for %v", err)
	}
	if dq.Column != "mpg" {
		t.Fatalf("column = %q", dq.Column)
	}
}

func TestMalformedInputUnwraps(t *testing.T) {
	err := &MalformedInputError{Source: "ford", Err: io.ErrUnexpectedEOF}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("Unwrap did not expose cause")
	}
	if !strings.Contains(err.Error(), `"ford"`) {
		t.Fatalf("message lacks source identity: %s", err)
	}
}

func TestSchemaDriftMessage(t *testing.T) {
	err := &SchemaDriftError{Field: "year", Reason: "required numeric feature is absent"}
	if got := err.Error(); !strings.Contains(got, "year") || !strings.Contains(got, "absent") {
		t.Fatalf("unexpected message: %s", got)
	}
}
