// Package metrics holds the Prometheus collectors of the mixer. They register
// with the default registry and are served by the health server.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "datamixer"

// Result and status label values.
const (
	ResultEvaluated = "evaluated"
	ResultSkipped   = "skipped"

	StatusOK     = "ok"
	StatusFailed = "failed"
)

var (
	// FormulaLines counts formula lines by outcome.
	// Labels: result (evaluated, skipped)
	FormulaLines = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "formula_lines_total",
		Help:      "Formula lines evaluated or skipped by the equation model",
	}, []string{"result"})

	// ProcessTotal counts Process calls.
	// Labels: model, status (ok, failed)
	ProcessTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "process_total",
		Help:      "Bundles processed by the active model",
	}, []string{"model", "status"})

	// ProcessDuration measures Process latency.
	// Labels: model
	ProcessDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "process_duration_seconds",
		Help:      "Time spent in a model's Process call",
		Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"model"})

	// SettingsChanges counts applied option changes.
	// Labels: model
	SettingsChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "settings_changes_total",
		Help:      "Option values changed on the active model",
	}, []string{"model"})
)

// RecordFormulaLine counts one formula line.
func RecordFormulaLine(ok bool) {
	if ok {
		FormulaLines.WithLabelValues(ResultEvaluated).Inc()
		return
	}
	FormulaLines.WithLabelValues(ResultSkipped).Inc()
}

// RecordProcess counts one Process call and observes its duration.
func RecordProcess(model string, err error, elapsed time.Duration) {
	status := StatusOK
	if err != nil {
		status = StatusFailed
	}
	ProcessTotal.WithLabelValues(model, status).Inc()
	ProcessDuration.WithLabelValues(model).Observe(elapsed.Seconds())
}
