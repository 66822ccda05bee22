// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Connection metrics
	ConnectionState   prometheus.Gauge
	ConnectsTotal     prometheus.Counter
	ConnectFailures   prometheus.Counter
	ReconnectAttempts prometheus.Counter
	RetriesExhausted  prometheus.Counter
	KeepalivesSent    prometheus.Counter
	KeepaliveFailures prometheus.Counter

	// Frame metrics
	FramesReceived prometheus.Counter
	FramesIgnored  prometheus.Counter
	DecodeErrors   *prometheus.CounterVec
	TokensDecoded  prometheus.Counter
	TokensSkipped  *prometheus.CounterVec

	// Filter metrics
	TokensRejected *prometheus.CounterVec
	MatchesTotal   prometheus.Counter

	// Sink metrics
	SinkErrors *prometheus.CounterVec

	// Latency metrics
	FrameProcessingLatency prometheus.Histogram

	// Health metrics
	LastFrameTimestamp prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "discover_scanner"
	}

	return &Metrics{
		ConnectionState: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "connection_state",
			Help:      "Current connection lifecycle state (0=idle 1=connecting 2=open 3=reconnecting 4=closing 5=closed)",
		}),
		ConnectsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "connects_total",
			Help:      "Total number of successful feed handshakes",
		}),
		ConnectFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "connect_failures_total",
			Help:      "Total number of failed connect attempts",
		}),
		ReconnectAttempts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "reconnect_attempts_total",
			Help:      "Total number of scheduled reconnect attempts",
		}),
		RetriesExhausted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "retries_exhausted_total",
			Help:      "Number of times a connection gave up after max reconnect attempts",
		}),
		KeepalivesSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "keepalive",
			Name:      "pings_sent_total",
			Help:      "Total number of keep-alive pings written",
		}),
		KeepaliveFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "keepalive",
			Name:      "ping_failures_total",
			Help:      "Total number of keep-alive pings that failed to write",
		}),

		FramesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decoder",
			Name:      "frames_received_total",
			Help:      "Total number of frames read from the feed",
		}),
		FramesIgnored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decoder",
			Name:      "frames_ignored_total",
			Help:      "Total number of frames without a discover batch",
		}),
		DecodeErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decoder",
			Name:      "decode_errors_total",
			Help:      "Total number of dropped frames by reason",
		}, []string{"reason"}),
		TokensDecoded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decoder",
			Name:      "tokens_decoded_total",
			Help:      "Total number of token events decoded",
		}),
		TokensSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decoder",
			Name:      "tokens_skipped_total",
			Help:      "Total number of token records skipped by reason",
		}, []string{"reason"}),

		TokensRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "filter",
			Name:      "tokens_rejected_total",
			Help:      "Total number of token events rejected by first failing condition",
		}, []string{"reason"}),
		MatchesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "filter",
			Name:      "matches_total",
			Help:      "Total number of admitted token events",
		}),

		SinkErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reporting",
			Name:      "sink_errors_total",
			Help:      "Total number of sink failures by sink",
		}, []string{"sink"}),

		FrameProcessingLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "frame_processing_seconds",
			Help:      "Time spent decoding, filtering and reporting one frame",
			Buckets:   prometheus.DefBuckets,
		}),

		LastFrameTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_frame_timestamp",
			Help:      "Unix timestamp of the last frame received",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// SetConnectionState records the numeric lifecycle state.
func SetConnectionState(state int) {
	DefaultMetrics.ConnectionState.Set(float64(state))
}

// RecordConnect increments the successful handshake counter.
func RecordConnect() {
	DefaultMetrics.ConnectsTotal.Inc()
}

// RecordConnectFailure increments the failed connect counter.
func RecordConnectFailure() {
	DefaultMetrics.ConnectFailures.Inc()
}

// RecordReconnectAttempt increments the reconnect attempt counter.
func RecordReconnectAttempt() {
	DefaultMetrics.ReconnectAttempts.Inc()
}

// RecordRetriesExhausted increments the terminal failure counter.
func RecordRetriesExhausted() {
	DefaultMetrics.RetriesExhausted.Inc()
}

// RecordKeepalive records a keep-alive write outcome.
func RecordKeepalive(err error) {
	if err != nil {
		DefaultMetrics.KeepaliveFailures.Inc()
		return
	}
	DefaultMetrics.KeepalivesSent.Inc()
}

// RecordFrameReceived increments the frame counter and refreshes the health gauge.
func RecordFrameReceived(unixSeconds int64) {
	DefaultMetrics.FramesReceived.Inc()
	DefaultMetrics.LastFrameTimestamp.Set(float64(unixSeconds))
}

// RecordFrameIgnored increments the ignored frame counter.
func RecordFrameIgnored() {
	DefaultMetrics.FramesIgnored.Inc()
}

// RecordDecodeError records a dropped frame.
func RecordDecodeError(reason string) {
	DefaultMetrics.DecodeErrors.WithLabelValues(reason).Inc()
}

// RecordTokensDecoded adds decoded token events.
func RecordTokensDecoded(n int) {
	DefaultMetrics.TokensDecoded.Add(float64(n))
}

// RecordTokenSkipped records a token record dropped by the decoder.
func RecordTokenSkipped(reason string) {
	DefaultMetrics.TokensSkipped.WithLabelValues(reason).Inc()
}

// RecordRejection records a filter rejection.
func RecordRejection(reason string) {
	DefaultMetrics.TokensRejected.WithLabelValues(reason).Inc()
}

// RecordMatch increments the admitted counter.
func RecordMatch() {
	DefaultMetrics.MatchesTotal.Inc()
}

// RecordSinkError records a sink failure.
func RecordSinkError(sink string) {
	DefaultMetrics.SinkErrors.WithLabelValues(sink).Inc()
}

// ObserveFrameLatency records frame processing time.
func ObserveFrameLatency(seconds float64) {
	DefaultMetrics.FrameProcessingLatency.Observe(seconds)
}
