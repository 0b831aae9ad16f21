// Package logging builds the process logger and the per-run entry every
// stage logs through.
package logging

import (
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Options configures New.
type Options struct {
	Verbose bool      // debug level instead of info
	JSON    bool      // JSON formatter instead of text
	Out     io.Writer // defaults to os.Stderr
}

// New returns a logger writing to stderr with a full-timestamp text formatter.
func New(opts Options) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	if opts.Out != nil {
		l.SetOutput(opts.Out)
	}
	if opts.JSON {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	}
	l.SetLevel(logrus.InfoLevel)
	if opts.Verbose {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

// ForRun tags log with a fresh run_id and the job name. It returns the entry
// and the id so callers can surface it in results.
func ForRun(log logrus.FieldLogger, job string) (*logrus.Entry, string) {
	id := uuid.NewString()
	return log.WithFields(logrus.Fields{"run_id": id, "job": job}), id
}
