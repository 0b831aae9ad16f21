// Package builtin contains the table stages of the preparation pipeline:
// column normalization, per-source cleaning, merging, schema rectification,
// imputation, categorical encoding, range filtering, de-duplication and
// low-frequency pruning.
//
// Every stage is pure: it never mutates the table it receives.
package builtin

import (
	"carprep/internal/metrics"

	"github.com/sirupsen/logrus"
)

// Env carries the run-scoped job name (metrics label) and logger shared by
// the stages. The zero value logs to the logrus standard logger.
type Env struct {
	Job string
	Log logrus.FieldLogger
}

func (e Env) logger() logrus.FieldLogger {
	if e.Log == nil {
		return logrus.StandardLogger()
	}
	return e.Log
}

// dropped records a row-drop count under kind and logs it when non-zero.
func (e Env) dropped(stage, kind string, n int, fields logrus.Fields) {
	if n == 0 {
		return
	}
	metrics.RecordRow(e.Job, kind, int64(n))
	e.logger().WithFields(fields).WithFields(logrus.Fields{
		"stage": stage,
		"kind":  kind,
		"rows":  n,
	}).Info("rows dropped")
}
