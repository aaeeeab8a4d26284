package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the listener
type Metrics struct {
	// Capture metrics
	FramesCaptured  prometheus.Counter
	SamplesCaptured prometheus.Counter
	CaptureErrors   prometheus.Counter

	// Activity monitor metrics
	TicksProcessed prometheus.Counter
	VoiceDetected  prometheus.Counter
	MonitorState   prometheus.Gauge
	Loudness       prometheus.Histogram

	// Segment metrics
	SegmentsEmitted   prometheus.Counter
	SegmentsDiscarded prometheus.Counter
	SegmentsTruncated prometheus.Counter
	SegmentDuration   prometheus.Histogram
	SegmentSize       prometheus.Histogram
	EncoderErrors     prometheus.Counter

	// Transcription metrics
	TranscriptionRequests  prometheus.Counter
	TranscriptionSuccesses prometheus.Counter
	TranscriptionFailures  prometheus.Counter
	TranscriptionDuration  prometheus.Histogram
	TranscriptionRetries   prometheus.Counter

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		// Capture metrics
		FramesCaptured: promauto.NewCounter(prometheus.CounterOpts{
			Name: "listener_frames_captured_total",
			Help: "Total number of audio frames read from the input device",
		}),
		SamplesCaptured: promauto.NewCounter(prometheus.CounterOpts{
			Name: "listener_samples_captured_total",
			Help: "Total number of PCM samples read from the input device",
		}),
		CaptureErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "listener_capture_errors_total",
			Help: "Total number of audio capture errors",
		}),

		// Activity monitor metrics
		TicksProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "listener_ticks_processed_total",
			Help: "Total number of loudness polls processed",
		}),
		VoiceDetected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "listener_voice_detected_total",
			Help: "Total number of polls classified as speech",
		}),
		MonitorState: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "listener_monitor_state",
			Help: "Current monitor state (0=silent, 1=speaking, 2=trailing_silence)",
		}),
		Loudness: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "listener_loudness",
			Help:    "Normalized RMS loudness per poll",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10), // 0.001 to ~1.0
		}),

		// Segment metrics
		SegmentsEmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "listener_segments_emitted_total",
			Help: "Total number of audio segments emitted",
		}),
		SegmentsDiscarded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "listener_segments_discarded_total",
			Help: "Total number of recordings discarded as too short",
		}),
		SegmentsTruncated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "listener_segments_truncated_total",
			Help: "Total number of segments cut by the duration cap",
		}),
		SegmentDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "listener_segment_duration_seconds",
			Help:    "Duration of emitted audio segments",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s to ~2 minutes
		}),
		SegmentSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "listener_segment_size_bytes",
			Help:    "Size of emitted audio segments in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 2, 12), // 1KB to ~4MB
		}),
		EncoderErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "listener_encoder_errors_total",
			Help: "Total number of encoder failures",
		}),

		// Transcription metrics
		TranscriptionRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "listener_transcription_requests_total",
			Help: "Total number of transcription requests sent",
		}),
		TranscriptionSuccesses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "listener_transcription_successes_total",
			Help: "Total number of successful transcription requests",
		}),
		TranscriptionFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "listener_transcription_failures_total",
			Help: "Total number of failed transcription requests",
		}),
		TranscriptionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "listener_transcription_duration_seconds",
			Help:    "Duration of transcription requests",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~2 minutes
		}),
		TranscriptionRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "listener_transcription_retries_total",
			Help: "Total number of transcription request retries",
		}),

		// HTTP API metrics
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "listener_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "listener_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "listener_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordFrameCaptured records one frame read from the input device
func (m *Metrics) RecordFrameCaptured(samples int) {
	m.FramesCaptured.Inc()
	m.SamplesCaptured.Add(float64(samples))
}

// RecordCaptureError increments the capture errors counter
func (m *Metrics) RecordCaptureError() {
	m.CaptureErrors.Inc()
}

// RecordTick records one loudness poll
func (m *Metrics) RecordTick(hasVoice bool, loudness float64) {
	m.TicksProcessed.Inc()
	if hasVoice {
		m.VoiceDetected.Inc()
	}
	m.Loudness.Observe(loudness)
}

// SetMonitorState sets the current monitor state gauge
func (m *Metrics) SetMonitorState(state int) {
	m.MonitorState.Set(float64(state))
}

// RecordSegmentEmitted records an emitted audio segment
func (m *Metrics) RecordSegmentEmitted(durationSeconds float64, sizeBytes int, truncated bool) {
	m.SegmentsEmitted.Inc()
	m.SegmentDuration.Observe(durationSeconds)
	m.SegmentSize.Observe(float64(sizeBytes))
	if truncated {
		m.SegmentsTruncated.Inc()
	}
}

// RecordSegmentDiscarded increments the discarded segments counter
func (m *Metrics) RecordSegmentDiscarded() {
	m.SegmentsDiscarded.Inc()
}

// RecordEncoderError increments the encoder errors counter
func (m *Metrics) RecordEncoderError() {
	m.EncoderErrors.Inc()
}

// RecordTranscriptionRequest increments transcription requests counter
func (m *Metrics) RecordTranscriptionRequest() {
	m.TranscriptionRequests.Inc()
}

// RecordTranscriptionSuccess records a successful transcription
func (m *Metrics) RecordTranscriptionSuccess(durationSeconds float64) {
	m.TranscriptionSuccesses.Inc()
	m.TranscriptionDuration.Observe(durationSeconds)
}

// RecordTranscriptionFailure records a failed transcription
func (m *Metrics) RecordTranscriptionFailure(durationSeconds float64) {
	m.TranscriptionFailures.Inc()
	m.TranscriptionDuration.Observe(durationSeconds)
}

// RecordTranscriptionRetry increments the retry counter
func (m *Metrics) RecordTranscriptionRetry() {
	m.TranscriptionRetries.Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
