package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the service.
type Metrics struct {
	// Live session metrics
	ActiveSessions  prometheus.Gauge
	SessionsStarted prometheus.Counter
	ChunksReceived  prometheus.Counter
	SegmentsFlushed prometheus.Counter
	SegmentsDropped prometheus.Counter

	// Transcription metrics
	TranscriptionRequests prometheus.Counter
	TranscriptionFailures prometheus.Counter
	TranscriptionDuration prometheus.Histogram

	// Analysis metrics
	AnalysisCalls prometheus.Counter

	// One-shot job metrics
	JobsQueued    prometheus.Counter
	JobsCompleted prometheus.Counter
	JobsFailed    prometheus.Counter
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "truthguard_active_sessions",
			Help: "Current number of active live sessions",
		}),
		SessionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "truthguard_sessions_started_total",
			Help: "Total number of live sessions started",
		}),
		ChunksReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "truthguard_chunks_received_total",
			Help: "Total number of audio chunks received from producers",
		}),
		SegmentsFlushed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "truthguard_segments_flushed_total",
			Help: "Total number of buffer windows flushed to the segment queue",
		}),
		SegmentsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "truthguard_segments_dropped_total",
			Help: "Total number of pending segments dropped due to queue overflow",
		}),
		TranscriptionRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "truthguard_transcription_requests_total",
			Help: "Total number of transcription API calls",
		}),
		TranscriptionFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "truthguard_transcription_failures_total",
			Help: "Total number of failed transcription API calls",
		}),
		TranscriptionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "truthguard_transcription_duration_seconds",
			Help:    "Duration of transcription API calls",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		AnalysisCalls: promauto.NewCounter(prometheus.CounterOpts{
			Name: "truthguard_analysis_calls_total",
			Help: "Total number of credibility analysis calls",
		}),
		JobsQueued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "truthguard_jobs_queued_total",
			Help: "Total number of one-shot transcription jobs enqueued",
		}),
		JobsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "truthguard_jobs_completed_total",
			Help: "Total number of one-shot transcription jobs completed",
		}),
		JobsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "truthguard_jobs_failed_total",
			Help: "Total number of one-shot transcription jobs failed",
		}),
	}
}
