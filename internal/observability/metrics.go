// Package observability exposes the Prometheus metrics of the submission
// pipeline, its stores and the ledger client.
package observability

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups every collector registered by the service.
type Metrics struct {
	// Submission metrics
	SubmissionsTotal    *prometheus.CounterVec
	SubmissionsInFlight prometheus.Gauge
	StageDuration       *prometheus.HistogramVec
	StageFailures       *prometheus.CounterVec
	EventLogErrors      prometheus.Counter

	// External call metrics
	LedgerCallLatency *prometheus.HistogramVec
	LedgerCallErrors  *prometheus.CounterVec
	UploadLatency     *prometheus.HistogramVec
	UploadBytes       *prometheus.CounterVec
	UploadErrors      *prometheus.CounterVec

	// Stores
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// HTTP metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Liveness
	LastSuccessfulSubmission prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered with reg.
// A nil reg registers with the default Prometheus registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "realestate_tokenizer"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		// Submission metrics
		SubmissionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "submission",
			Name:      "total",
			Help:      "Total number of submissions by terminal status",
		}, []string{"status"}),
		SubmissionsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "submission",
			Name:      "in_flight",
			Help:      "Number of submissions currently running",
		}),
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "submission",
			Name:      "stage_duration_seconds",
			Help:      "Stage execution duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage"}),
		StageFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "submission",
			Name:      "stage_failures_total",
			Help:      "Total number of stage failures by stage and error kind",
		}, []string{"stage", "kind"}),
		EventLogErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "submission",
			Name:      "event_log_errors_total",
			Help:      "Total number of failed submission event writes",
		}),

		// External call metrics
		LedgerCallLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "rpc_call_latency_seconds",
			Help:      "Ledger RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		LedgerCallErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "rpc_call_errors_total",
			Help:      "Total number of failed ledger RPC calls",
		}, []string{"method"}),
		UploadLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "content",
			Name:      "upload_latency_seconds",
			Help:      "Content store upload latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend", "kind"}),
		UploadBytes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "content",
			Name:      "upload_bytes_total",
			Help:      "Total bytes uploaded to the content store",
		}, []string{"backend"}),
		UploadErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "content",
			Name:      "upload_errors_total",
			Help:      "Total number of failed content store uploads",
		}, []string{"backend", "kind"}),

		// Database metrics
		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// HTTP metrics
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status code",
		}, []string{"method", "route", "code"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),

		// Health metrics
		LastSuccessfulSubmission: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_submission_timestamp",
			Help:      "Unix timestamp of last submission that completed every stage",
		}),
	}
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics backs the package-level Record helpers.
var DefaultMetrics = NewMetrics("", nil)

// RecordSubmission records a terminal submission status.
func RecordSubmission(status string, unixTime int64) {
	DefaultMetrics.SubmissionsTotal.WithLabelValues(status).Inc()
	if status == "done" {
		DefaultMetrics.LastSuccessfulSubmission.Set(float64(unixTime))
	}
}

// SubmissionStarted increments the in-flight gauge.
func SubmissionStarted() {
	DefaultMetrics.SubmissionsInFlight.Inc()
}

// SubmissionFinished decrements the in-flight gauge.
func SubmissionFinished() {
	DefaultMetrics.SubmissionsInFlight.Dec()
}

// RecordStage records a stage duration. A non-empty kind counts as a failure.
func RecordStage(stage, kind string, seconds float64) {
	DefaultMetrics.StageDuration.WithLabelValues(stage).Observe(seconds)
	if kind != "" {
		DefaultMetrics.StageFailures.WithLabelValues(stage, kind).Inc()
	}
}

// RecordEventLogError counts a failed audit log write.
func RecordEventLogError() {
	DefaultMetrics.EventLogErrors.Inc()
}

// RecordLedgerCall records ledger RPC call metrics.
func RecordLedgerCall(method string, seconds float64, err error) {
	DefaultMetrics.LedgerCallLatency.WithLabelValues(method).Observe(seconds)
	if err != nil {
		DefaultMetrics.LedgerCallErrors.WithLabelValues(method).Inc()
	}
}

// RecordUpload records content store upload metrics.
func RecordUpload(backend, kind string, bytes int, seconds float64, err error) {
	DefaultMetrics.UploadLatency.WithLabelValues(backend, kind).Observe(seconds)
	if err != nil {
		DefaultMetrics.UploadErrors.WithLabelValues(backend, kind).Inc()
		return
	}
	DefaultMetrics.UploadBytes.WithLabelValues(backend).Add(float64(bytes))
}

// RecordDBQuery observes one store call; a non-nil err also counts an error.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordHTTPRequest records a served HTTP request.
func RecordHTTPRequest(method, route string, code int, seconds float64) {
	DefaultMetrics.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	DefaultMetrics.HTTPRequestDuration.WithLabelValues(method, route).Observe(seconds)
}
