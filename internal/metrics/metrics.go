// Package metrics exposes Prometheus instrumentation for the agent's
// capture, export, and transcription paths.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the Clipdesk Agent.
type Metrics struct {
	registry *prometheus.Registry

	recordingsStartedTotal   prometheus.Counter
	recordingsCompletedTotal prometheus.Counter
	recordingsFailedTotal    prometheus.Counter
	recordingActive          prometheus.Gauge

	exportsTotal       prometheus.Counter
	exportsFailedTotal prometheus.Counter
	exportDuration     prometheus.Histogram

	transcriptionsTotal       prometheus.Counter
	transcriptionsFailedTotal prometheus.Counter
}

// New creates and registers Prometheus metrics for the agent.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		recordingsStartedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clipdesk_recordings_started_total",
			Help: "Total number of capture sessions started",
		}),
		recordingsCompletedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clipdesk_recordings_completed_total",
			Help: "Total number of capture sessions stopped with a valid output file",
		}),
		recordingsFailedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clipdesk_recordings_failed_total",
			Help: "Total number of capture sessions that failed to start or produced no output",
		}),
		recordingActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "clipdesk_recording_active",
			Help: "1 while a capture session is active, 0 otherwise",
		}),
		exportsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clipdesk_exports_total",
			Help: "Total number of timeline exports attempted",
		}),
		exportsFailedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clipdesk_exports_failed_total",
			Help: "Total number of timeline exports that failed",
		}),
		exportDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "clipdesk_export_duration_seconds",
			Help:    "Wall-clock duration of timeline exports",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		transcriptionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clipdesk_transcriptions_total",
			Help: "Total number of transcription runs attempted",
		}),
		transcriptionsFailedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clipdesk_transcriptions_failed_total",
			Help: "Total number of transcription runs that failed",
		}),
	}

	registry.MustRegister(
		m.recordingsStartedTotal,
		m.recordingsCompletedTotal,
		m.recordingsFailedTotal,
		m.recordingActive,
		m.exportsTotal,
		m.exportsFailedTotal,
		m.exportDuration,
		m.transcriptionsTotal,
		m.transcriptionsFailedTotal,
	)

	return m
}

// RecordingStarted increments the started counter and marks the session active.
func (m *Metrics) RecordingStarted() {
	m.recordingsStartedTotal.Inc()
	m.recordingActive.Set(1)
}

// RecordingCompleted increments the completed counter and clears the active gauge.
func (m *Metrics) RecordingCompleted() {
	m.recordingsCompletedTotal.Inc()
	m.recordingActive.Set(0)
}

// RecordingFailed increments the failed counter and clears the active gauge.
func (m *Metrics) RecordingFailed() {
	m.recordingsFailedTotal.Inc()
	m.recordingActive.Set(0)
}

// ExportCompleted records one successful export and its duration in seconds.
func (m *Metrics) ExportCompleted(seconds float64) {
	m.exportsTotal.Inc()
	m.exportDuration.Observe(seconds)
}

// ExportFailed records one failed export.
func (m *Metrics) ExportFailed() {
	m.exportsTotal.Inc()
	m.exportsFailedTotal.Inc()
}

// TranscriptionCompleted records one successful transcription run.
func (m *Metrics) TranscriptionCompleted() {
	m.transcriptionsTotal.Inc()
}

// TranscriptionFailed records one failed transcription run.
func (m *Metrics) TranscriptionFailed() {
	m.transcriptionsTotal.Inc()
	m.transcriptionsFailedTotal.Inc()
}

// Handler returns an http.Handler that serves the agent's metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
