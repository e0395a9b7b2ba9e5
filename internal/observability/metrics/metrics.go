package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricPrefix = "spain_energy_"

	ResultSuccess = "success"
	ResultError   = "error"
)

var (
	registerOnce sync.Once

	analysisTotal   *prometheus.CounterVec
	analysisLatency *prometheus.HistogramVec

	rowsDropped  *prometheus.CounterVec
	rowsImported *prometheus.CounterVec

	exportTotal *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
)

// Init registers the collectors with the default registry. Safe to call
// more than once.
func Init() {
	registerOnce.Do(func() {
		analysisTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "analysis_total",
				Help: "Total analysis runs by operation and result",
			},
			[]string{"operation", "result"},
		)
		analysisLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "analysis_latency_seconds",
				Help:    "Analysis latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "result"},
		)

		rowsDropped = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "rows_dropped_total",
				Help: "Input rows dropped during normalization by source",
			},
			[]string{"source"},
		)
		rowsImported = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "rows_imported_total",
				Help: "Rows written to the store by kind",
			},
			[]string{"kind"},
		)

		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "export_total",
				Help: "Total report exports by format and result",
			},
			[]string{"format", "result"},
		)

		httpRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "Total HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		)
		httpLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		)

		prometheus.MustRegister(
			analysisTotal,
			analysisLatency,
			rowsDropped,
			rowsImported,
			exportTotal,
			httpRequests,
			httpLatency,
		)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveAnalysis records one analysis run.
func ObserveAnalysis(operation string, err error, duration time.Duration) {
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	if analysisTotal != nil {
		analysisTotal.WithLabelValues(operation, result).Inc()
	}
	if analysisLatency != nil {
		analysisLatency.WithLabelValues(operation, result).Observe(duration.Seconds())
	}
}

// AddDroppedRows counts malformed or null rows skipped for a source.
func AddDroppedRows(source string, count int) {
	if count <= 0 {
		return
	}
	if source == "" {
		source = "unknown"
	}
	if rowsDropped != nil {
		rowsDropped.WithLabelValues(source).Add(float64(count))
	}
}

func AddImportedRows(kind string, count int) {
	if count <= 0 {
		return
	}
	if rowsImported != nil {
		rowsImported.WithLabelValues(kind).Add(float64(count))
	}
}

// IncExport counts one report export.
func IncExport(format string, err error) {
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
}

// ObserveHTTP records one served request. route is the matched pattern, not
// the raw path.
func ObserveHTTP(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	if httpRequests != nil {
		httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	}
	if httpLatency != nil {
		httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
	}
}
