package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsSnapshot is a lightweight aggregate for the status endpoint.
type MetricsSnapshot struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	JobsTotal                uint64    `json:"jobs_total"`
	JobsFailed               uint64    `json:"jobs_failed"`
	AverageJobDurationMs     float64   `json:"average_job_duration_ms"`
	PagesProcessed           uint64    `json:"pages_processed"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}

// MetricsService encapsulates Prometheus instrumentation and provides
// lightweight snapshots for API consumption.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	jobsTotal       *prometheus.CounterVec
	jobDuration     *prometheus.HistogramVec
	pagesProcessed  *prometheus.CounterVec
	uploadBytes     prometheus.Counter

	requestCount         uint64
	requestDurationTotal uint64
	jobCount             uint64
	jobFailedCount       uint64
	jobDurationTotal     uint64
	pageCount            uint64
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

	jobsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pdf_jobs_total",
		Help: "Total number of processing jobs by outcome",
	}, []string{"tool", "platform", "status"})

	jobDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pdf_job_duration_seconds",
		Help:    "Duration of processing jobs in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"tool"})

	pagesProcessed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pdf_pages_processed_total",
		Help: "Total number of PDF pages processed",
	}, []string{"tool"})

	uploadBytes := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pdf_upload_bytes_total",
		Help: "Total bytes received as input files",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, jobsTotal, jobDuration, pagesProcessed, uploadBytes, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		jobsTotal:       jobsTotal,
		jobDuration:     jobDuration,
		pagesProcessed:  pagesProcessed,
		uploadBytes:     uploadBytes,
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

// ObserveHTTPRequest records request metrics and aggregates simple stats.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// ObserveJob records one finished processing job.
func (m *MetricsService) ObserveJob(tool, platform, status string, duration time.Duration, pages int) {
	if m == nil {
		return
	}
	m.jobsTotal.WithLabelValues(tool, platform, status).Inc()
	m.jobDuration.WithLabelValues(tool).Observe(duration.Seconds())
	if pages > 0 {
		m.pagesProcessed.WithLabelValues(tool).Add(float64(pages))
		atomic.AddUint64(&m.pageCount, uint64(pages))
	}
	atomic.AddUint64(&m.jobCount, 1)
	if status == "failed" {
		atomic.AddUint64(&m.jobFailedCount, 1)
	}
	atomic.AddUint64(&m.jobDurationTotal, uint64(duration.Nanoseconds()))
}

// ObserveUploadBytes tracks total input payload size.
func (m *MetricsService) ObserveUploadBytes(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.uploadBytes.Add(float64(n))
}

// Snapshot returns aggregated metrics suitable for the status endpoint.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)
	jobs := atomic.LoadUint64(&m.jobCount)
	jobsFailed := atomic.LoadUint64(&m.jobFailedCount)
	jobDuration := atomic.LoadUint64(&m.jobDurationTotal)

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}
	var avgJobMs float64
	if jobs > 0 {
		avgJobMs = float64(jobDuration) / float64(jobs) / float64(time.Millisecond)
	}

	return MetricsSnapshot{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		JobsTotal:                jobs,
		JobsFailed:               jobsFailed,
		AverageJobDurationMs:     avgJobMs,
		PagesProcessed:           atomic.LoadUint64(&m.pageCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
