package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels shared by the domain counters.
const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeRejected  = "rejected"
	OutcomeDuplicate = "duplicate"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	grantsTotal     *prometheus.CounterVec
	submissions     *prometheus.CounterVec
	emailsTotal     *prometheus.CounterVec
	emailDuration   *prometheus.HistogramVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	grantsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "upload_grants_total",
		Help: "Presigned upload grants by outcome",
	}, []string{"outcome"})

	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "submissions_total",
		Help: "Competition submissions by delivery path and outcome",
	}, []string{"path", "outcome"})

	emailsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "emails_sent_total",
		Help: "Outbound emails by kind and outcome",
	}, []string{"kind", "outcome"})

	emailDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "email_send_duration_seconds",
		Help:    "Latency of email provider calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, grantsTotal, submissions, emailsTotal, emailDuration, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		grantsTotal:     grantsTotal,
		submissions:     submissions,
		emailsTotal:     emailsTotal,
		emailDuration:   emailDuration,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordGrant counts an upload grant attempt.
func (m *MetricsService) RecordGrant(outcome string) {
	if m == nil {
		return
	}
	m.grantsTotal.WithLabelValues(outcome).Inc()
}

// RecordSubmission counts a submission attempt for the given path.
func (m *MetricsService) RecordSubmission(path, outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(path, outcome).Inc()
}

// RecordEmail counts an email provider call and its latency.
func (m *MetricsService) RecordEmail(kind, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.emailsTotal.WithLabelValues(kind, outcome).Inc()
	m.emailDuration.WithLabelValues(kind).Observe(duration.Seconds())
}
