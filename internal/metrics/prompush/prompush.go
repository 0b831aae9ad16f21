// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// Batch runs are short-lived, so instead of exposing a scrape endpoint the
// backend collects into a private registry and pushes it to a Pushgateway on
// Flush. The pipeline job name is the Pushgateway grouping key.
package prompush

import (
	"fmt"

	"carprep/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091
	jobName    string // Pushgateway "job" group
	reg        *prometheus.Registry

	stageCounter  *prometheus.CounterVec // carprep_stage_total
	stageDuration *prometheus.SummaryVec // carprep_stage_duration_seconds
	rowCounter    *prometheus.CounterVec // carprep_rows_total
	batchCounter  prometheus.Counter     // carprep_batches_total

	// gauges keyed by metric name; all unlabeled within the job group.
	gauges map[string]prometheus.Gauge
}

// NewBackend constructs a Pushgateway backend. An empty jobName becomes
// "carprep".
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "carprep"
	}

	b := &Backend{
		gatewayURL: gatewayURL,
		jobName:    jobName,
		reg:        prometheus.NewRegistry(),
		stageCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metrics.StageTotal,
				Help: "Pipeline stage executions, partitioned by stage and status.",
			},
			[]string{"step", "status"},
		),
		stageDuration: prometheus.NewSummaryVec(
			prometheus.SummaryOpts{
				Name:       metrics.StageDuration,
				Help:       "Duration of pipeline stages in seconds.",
				Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
			},
			[]string{"step", "status"},
		),
		rowCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metrics.RowsTotal,
				Help: "Row counts per kind (parsed, dropped_incomplete, written, ...).",
			},
			[]string{"kind"},
		),
		batchCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metrics.BatchesTotal,
			Help: "Database load batches flushed.",
		}),
		gauges: map[string]prometheus.Gauge{},
	}

	gaugeHelp := map[string]string{
		metrics.PredictionDrift:  "Drift score of the prediction column: a p-value, or a distance on large samples.",
		metrics.DriftedColumns:   "Number of feature columns flagged as drifted.",
		metrics.ShareMissing:     "Share of missing cells in the current dataset.",
		metrics.LastSuccessEpoch: "Unix time of the last successful run.",
	}
	for name, help := range gaugeHelp {
		b.gauges[name] = prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help})
	}

	collectors := []prometheus.Collector{b.stageCounter, b.stageDuration, b.rowCounter, b.batchCounter}
	for _, g := range b.gauges {
		collectors = append(collectors, g)
	}
	for _, c := range collectors {
		if err := b.reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register collector: %w", err)
		}
	}
	return b, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.StageTotal:
		if b.stageCounter == nil {
			return
		}
		b.stageCounter.WithLabelValues(labels["step"], labels["status"]).Add(delta)
	case metrics.RowsTotal:
		if b.rowCounter == nil {
			return
		}
		b.rowCounter.WithLabelValues(labels["kind"]).Add(delta)
	case metrics.BatchesTotal:
		if b.batchCounter == nil {
			return
		}
		b.batchCounter.Add(delta)
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.StageDuration || b.stageDuration == nil {
		return
	}
	b.stageDuration.WithLabelValues(labels["step"], labels["status"]).Observe(value)
}

func (b *Backend) SetGauge(name string, value float64, _ metrics.Labels) {
	if g, ok := b.gauges[name]; ok {
		g.Set(value)
	}
}

// Flush pushes the current registry to the Pushgateway, replacing the
// previous push of this job.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
