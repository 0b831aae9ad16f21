package main

import (
	"carprep/internal/config"
	"carprep/internal/metrics"
	"carprep/internal/metrics/datadog"
	"carprep/internal/metrics/prompush"

	"github.com/sirupsen/logrus"
)

const defaultDatadogAddr = "127.0.0.1:8125"

// setupMetrics installs the configured backend. Failing to build one leaves
// the nop backend in place.
func setupMetrics(m config.Metrics, job string, log logrus.FieldLogger) {
	switch m.Backend {
	case "pushgateway":
		b, err := prompush.NewBackend(job, m.PushgatewayURL)
		if err != nil {
			log.WithError(err).Warn("metrics: prom push backend unavailable; using nop")
			return
		}
		metrics.SetBackend(b)
	case "datadog":
		addr := m.DatadogAddr
		if addr == "" {
			addr = defaultDatadogAddr
		}
		b, err := datadog.NewBackend(datadog.Config{Addr: addr, Namespace: "carprep."})
		if err != nil {
			log.WithError(err).Warn("metrics: datadog backend unavailable; using nop")
			return
		}
		metrics.SetBackend(b)
	case "", "none":
		log.Debug("metrics: disabled")
		return
	default:
		log.Warnf("metrics: unknown backend %q; metrics disabled", m.Backend)
		return
	}
	log.WithField("backend", m.Backend).Info("metrics enabled")
}

func flushMetrics(log logrus.FieldLogger) {
	if err := metrics.Flush(); err != nil {
		log.WithError(err).Warn("metrics: flush error")
	}
}
