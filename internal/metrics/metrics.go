// Package metrics records operational metrics of carprep runs behind a
// narrow, backend-agnostic interface.
//
// A global backend defaults to a no-op, so instrumentation is always safe to
// call. Concrete systems live in subpackages (prompush, datadog) and are
// installed once at startup with SetBackend.
package metrics

import (
	"sync"
	"time"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Metric names emitted by this package.
const (
	StageTotal       = "carprep_stage_total"
	StageDuration    = "carprep_stage_duration_seconds"
	RowsTotal        = "carprep_rows_total"
	BatchesTotal     = "carprep_batches_total"
	PredictionDrift  = "carprep_prediction_drift"
	DriftedColumns   = "carprep_drifted_columns"
	ShareMissing     = "carprep_share_missing_values"
	LastSuccessEpoch = "carprep_last_success_timestamp_seconds"
)

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a latency/duration style value.
	ObserveHistogram(name string, value float64, labels Labels)
	// SetGauge records the latest value of a level metric.
	SetGauge(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) SetGauge(string, float64, Labels)         {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	mu.Lock()
	backend = b
	mu.Unlock()
}

// Flush delegates to the current backend.
func Flush() error {
	return current().Flush()
}

// RecordStep measures latency and success/failure of one pipeline stage.
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status,
	}
	b := current()
	b.IncCounter(StageTotal, 1, lbls)
	b.ObserveHistogram(StageDuration, d.Seconds(), lbls)
}

// RecordRow increments a row-level counter for the given job and kind.
//
// Kinds used by the pipeline:
//   - "parsed", "parse_skipped"
//   - "dropped_incomplete", "dropped_unseen_category"
//   - "dropped_out_of_range", "dropped_duplicate"
//   - "written", "loaded"
func RecordRow(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(RowsTotal, float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}

// RecordBatches increments a batch-level counter for the given job.
func RecordBatches(job string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(BatchesTotal, float64(delta), Labels{
		"job": job,
	})
}

// RecordDrift publishes the latest drift summary as gauges.
func RecordDrift(job string, predictionDrift float64, driftedColumns int, shareMissing float64) {
	lbls := Labels{"job": job}
	b := current()
	b.SetGauge(PredictionDrift, predictionDrift, lbls)
	b.SetGauge(DriftedColumns, float64(driftedColumns), lbls)
	b.SetGauge(ShareMissing, shareMissing, lbls)
}

// RecordSuccess stamps the completion time of a successful run.
func RecordSuccess(job string, at time.Time) {
	current().SetGauge(LastSuccessEpoch, float64(at.Unix()), Labels{"job": job})
}
