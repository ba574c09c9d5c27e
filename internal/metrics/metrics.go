// Package metrics exposes Prometheus instrumentation for the analyzer.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds the analyzer's collectors and implements core.AnalysisObserver
type Recorder struct {
	analysesTotal     *prometheus.CounterVec
	analysisDuration  *prometheus.HistogramVec
	cacheErrorsTotal  *prometheus.CounterVec
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	smtpMessagesTotal *prometheus.CounterVec
}

// NewRecorder creates the collectors and registers them with reg
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		analysesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "invoice_analyzer_analyses_total",
				Help: "Total number of email analyses served (count)",
			},
			[]string{"method", "contains_invoice", "cached"},
		),
		analysisDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "invoice_analyzer_analysis_duration_ms",
				Help:    "Analysis duration in milliseconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
			},
			[]string{"method", "cached"},
		),
		cacheErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "invoice_analyzer_cache_errors_total",
				Help: "Total number of failed cache operations (count)",
			},
			[]string{"operation"},
		),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "invoice_analyzer_http_requests_total",
				Help: "Total number of HTTP requests (count)",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "invoice_analyzer_http_request_duration_ms",
				Help:    "HTTP request duration in milliseconds",
				Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
			},
			[]string{"method", "route"},
		),
		smtpMessagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "invoice_analyzer_smtp_messages_total",
				Help: "Total number of messages handled by the SMTP filter (count)",
			},
			[]string{"status"},
		),
	}

	for _, c := range []prometheus.Collector{
		r.analysesTotal,
		r.analysisDuration,
		r.cacheErrorsTotal,
		r.httpRequestsTotal,
		r.httpDuration,
		r.smtpMessagesTotal,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// ObserveAnalysis records the outcome of one analysis
func (r *Recorder) ObserveAnalysis(method string, containsInvoice bool, cached bool, seconds float64) {
	cachedLabel := strconv.FormatBool(cached)
	r.analysesTotal.WithLabelValues(method, strconv.FormatBool(containsInvoice), cachedLabel).Inc()
	r.analysisDuration.WithLabelValues(method, cachedLabel).Observe(seconds * 1000)
}

// ObserveCacheError records a failed cache operation
func (r *Recorder) ObserveCacheError(operation string) {
	r.cacheErrorsTotal.WithLabelValues(operation).Inc()
}

// ObserveHTTPRequest records one served HTTP request
func (r *Recorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	r.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(method, route).Observe(float64(duration.Microseconds()) / 1000)
}

// ObserveSMTPMessage records one message handled by the SMTP filter
func (r *Recorder) ObserveSMTPMessage(status string) {
	r.smtpMessagesTotal.WithLabelValues(status).Inc()
}
