// Package metrics defines the Prometheus metrics exported by the
// anti-spoofing service.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/haivivi/antispoof/pkg/antispoof"
)

// Metrics holds every collector the service updates.
type Metrics struct {
	registry *prometheus.Registry

	// Pipeline
	Predictions        *prometheus.CounterVec
	PredictionFailures *prometheus.CounterVec
	DecodeDuration     prometheus.Histogram
	InferenceDuration  prometheus.Histogram
	AudioDuration      prometheus.Histogram
	Confidence         prometheus.Histogram
	ModelLoaded        prometheus.Gauge

	// Staging
	UploadBytes  prometheus.Histogram
	FilesSwept   prometheus.Counter
	ArchiveFails prometheus.Counter

	// HTTP
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry that also carries the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		Predictions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "antispoof_channel_predictions_total",
			Help: "Channel predictions by label",
		}, []string{"label"}),
		PredictionFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "antispoof_prediction_failures_total",
			Help: "Failed predictions by error kind",
		}, []string{"kind"}),
		DecodeDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "antispoof_decode_duration_seconds",
			Help:    "Time spent decoding and resampling uploads",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~5s
		}),
		InferenceDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "antispoof_inference_duration_seconds",
			Help:    "Time spent classifying all channels of one input",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~2.5s
		}),
		AudioDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "antispoof_audio_duration_seconds",
			Help:    "Duration of decoded inputs",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to ~4min
		}),
		Confidence: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "antispoof_confidence",
			Help:    "Confidence of channel decisions",
			Buckets: prometheus.LinearBuckets(0.5, 0.05, 11), // 0.5 to 1.0
		}),
		ModelLoaded: f.NewGauge(prometheus.GaugeOpts{
			Name: "antispoof_model_loaded",
			Help: "1 when a classifier is loaded",
		}),

		UploadBytes: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "antispoof_upload_size_bytes",
			Help:    "Size of uploaded files",
			Buckets: prometheus.ExponentialBuckets(16*1024, 2, 12), // 16KB to ~32MB
		}),
		FilesSwept: f.NewCounter(prometheus.CounterOpts{
			Name: "antispoof_staging_files_swept_total",
			Help: "Stale staging files removed",
		}),
		ArchiveFails: f.NewCounter(prometheus.CounterOpts{
			Name: "antispoof_archive_failures_total",
			Help: "Uploads that could not be archived",
		}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "antispoof_http_requests_total",
			Help: "HTTP requests by method, endpoint and status",
		}, []string{"method", "endpoint", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "antispoof_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
	}
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveResults records the per-channel outcome of one prediction.
func (m *Metrics) ObserveResults(results []antispoof.ChannelResult) {
	for _, r := range results {
		m.Predictions.WithLabelValues(string(r.Label)).Inc()
		m.Confidence.Observe(r.Confidence)
	}
}

// ObserveHTTP records one finished request.
func (m *Metrics) ObserveHTTP(method, endpoint string, status int, seconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(seconds)
}

// SetModelLoaded updates the model gauge.
func (m *Metrics) SetModelLoaded(loaded bool) {
	if loaded {
		m.ModelLoaded.Set(1)
		return
	}
	m.ModelLoaded.Set(0)
}
