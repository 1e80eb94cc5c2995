package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/menta2k/nutrivision/pkg/detection"
)

// Request outcomes
const (
	OutcomeSuccess     = "success"
	OutcomeDecodeError = "decode_error"
	OutcomeUnavailable = "unavailable"
	OutcomeError       = "error"
)

// Metrics exports detection pipeline events to Prometheus. It implements
// detection.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	requests     *prometheus.CounterVec
	modelCalls   *prometheus.HistogramVec
	accepted     *prometheus.CounterVec
	rejected     *prometheus.CounterVec
	strategies   *prometheus.CounterVec
	alternatives prometheus.Counter
	detections   prometheus.Histogram
}

var _ detection.Recorder = (*Metrics)(nil)

// New creates a new Metrics instance with its own registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nutrivision_requests_total",
			Help: "Detection requests by outcome",
		}, []string{"outcome"}),
		modelCalls: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nutrivision_model_call_duration_seconds",
			Help:    "Vision model call latency by prompt and result",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160, 300},
		}, []string{"prompt", "result"}),
		accepted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nutrivision_detections_accepted_total",
			Help: "Detections accepted by pass",
		}, []string{"pass"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nutrivision_detections_rejected_total",
			Help: "Detections skipped by pass and reason",
		}, []string{"pass", "reason"}),
		strategies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nutrivision_parse_strategy_total",
			Help: "Parser strategy that matched a model response",
		}, []string{"strategy"}),
		alternatives: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nutrivision_alternative_passes_total",
			Help: "Requests that needed the alternative prompt",
		}),
		detections: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "nutrivision_detections_per_request",
			Help:    "Ingredients returned per successful request",
			Buckets: prometheus.LinearBuckets(0, 2, 8),
		}),
	}

	m.registry.MustRegister(
		m.requests,
		m.modelCalls,
		m.accepted,
		m.rejected,
		m.strategies,
		m.alternatives,
		m.detections,
	)
	return m
}

// ModelCall records one vision model round trip
func (m *Metrics) ModelCall(prompt string, elapsed time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.modelCalls.WithLabelValues(prompt, result).Observe(elapsed.Seconds())
}

// PassCompleted records what a pass accepted and skipped
func (m *Metrics) PassCompleted(stats detection.PassStats) {
	pass := stats.Pass.String()
	m.accepted.WithLabelValues(pass).Add(float64(stats.Accepted))
	for reason, n := range stats.Rejected {
		m.rejected.WithLabelValues(pass, reason).Add(float64(n))
	}
	m.strategies.WithLabelValues(stats.Strategy).Inc()
}

// AlternativeTriggered counts a fallback to the alternative prompt
func (m *Metrics) AlternativeTriggered() {
	m.alternatives.Inc()
}

// RequestCompleted records the outcome of a detection request
func (m *Metrics) RequestCompleted(detections int, err error) {
	m.requests.WithLabelValues(Outcome(err)).Inc()
	if err == nil {
		m.detections.Observe(float64(detections))
	}
}

// Outcome classifies a request error
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, detection.ErrDecodeFailure):
		return OutcomeDecodeError
	case errors.Is(err, detection.ErrServiceUnavailable):
		return OutcomeUnavailable
	default:
		return OutcomeError
	}
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler for Prometheus metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
