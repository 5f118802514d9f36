// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "clinicopilot"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Relay session metrics
	SessionsOpened prometheus.Counter
	SessionsActive prometheus.Gauge
	SessionsFailed prometheus.Counter

	// Audio metrics
	FragmentsReceived prometheus.Counter
	FragmentsDropped  *prometheus.CounterVec
	AudioBytesIn      prometheus.Counter

	// Transcript metrics
	SegmentsPersisted prometheus.Counter
	SegmentsBroadcast prometheus.Counter

	// Viewer metrics
	ViewersActive  prometheus.Gauge
	ViewerFailures prometheus.Counter

	// Note drafting metrics
	DraftsStarted prometheus.Counter
	DraftsFailed  prometheus.Counter
}

// Default is the global metrics instance.
var Default = New()

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		SessionsOpened: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_sessions_opened_total",
			Help:      "Total number of upstream recognizer sessions opened",
		}),
		SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "relay_sessions_active",
			Help:      "Number of currently active upstream recognizer sessions",
		}),
		SessionsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_sessions_failed_total",
			Help:      "Total number of upstream recognizer sessions that failed to connect",
		}),
		FragmentsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_fragments_received_total",
			Help:      "Total number of audio fragments accepted for relay",
		}),
		FragmentsDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_fragments_dropped_total",
			Help:      "Total number of audio fragments dropped, by reason",
		}, []string{"reason"}),
		AudioBytesIn: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_audio_bytes_in_total",
			Help:      "Total audio bytes accepted for relay",
		}),
		SegmentsPersisted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_segments_persisted_total",
			Help:      "Total number of finalized transcript segments persisted",
		}),
		SegmentsBroadcast: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_segments_broadcast_total",
			Help:      "Total number of transcript segments broadcast to viewers",
		}),
		ViewersActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "relay_viewers_active",
			Help:      "Number of currently connected transcript viewers",
		}),
		ViewerFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_viewer_failures_total",
			Help:      "Total number of viewer connections dropped after a failed push",
		}),
		DraftsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "drafts_started_total",
			Help:      "Total number of note drafting requests started",
		}),
		DraftsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "drafts_failed_total",
			Help:      "Total number of note drafting requests that failed",
		}),
	}
}
