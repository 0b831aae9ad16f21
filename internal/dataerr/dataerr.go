// Package dataerr defines the error taxonomy of the preparation pipeline and
// the serving-time payload decoder.
//
//   - MalformedInputError: a source file cannot be read as tabular data.
//   - DataQualityError:    the merged data cannot satisfy the declared schema
//     (a required column is absent, a designated column is entirely missing).
//   - SchemaDriftError:    a serving payload cannot be reconciled with the
//     frozen encoding vocabulary.
//
// All three are fatal at their scope; recoverable cell-level problems never
// produce them and degrade to the missing sentinel instead.
package dataerr

import "fmt"

// MalformedInputError reports a source that could not be parsed.
type MalformedInputError struct {
	Source string
	Err    error
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("malformed input %q: %v", e.Source, e.Err)
}

func (e *MalformedInputError) Unwrap() error { return e.Err }

// DataQualityError reports a column-level problem in the merged data.
type DataQualityError struct {
	Column string
	Reason string
}

func (e *DataQualityError) Error() string {
	return fmt.Sprintf("data quality: column %q: %s", e.Column, e.Reason)
}

// SchemaDriftError reports a payload field that does not fit the vocabulary.
type SchemaDriftError struct {
	Field  string
	Reason string
}

func (e *SchemaDriftError) Error() string {
	return fmt.Sprintf("schema drift: field %q: %s", e.Field, e.Reason)
}
