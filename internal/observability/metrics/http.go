package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	service  string
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	mappingRequestsTotal *prometheus.CounterVec
	repairOutcomeTotal   *prometheus.CounterVec
	normalizeLayoutTotal *prometheus.CounterVec

	*inferenceInstruments
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "adms",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "adms",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "adms",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	mappingRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "adms",
			Subsystem: "mapping",
			Name:      "requests_total",
			Help:      "Total completed mapping runs by strategy and status.",
		},
		[]string{"service", "strategy", "status"},
	)
	repairOutcomeTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "adms",
			Subsystem: "mapping",
			Name:      "repair_outcome_total",
			Help:      "Parsed inference responses by the repair stage that settled them.",
		},
		[]string{"service", "stage"},
	)
	normalizeLayoutTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "adms",
			Subsystem: "mapping",
			Name:      "normalize_layout_total",
			Help:      "Normalized sheets by detected layout.",
		},
		[]string{"service", "layout"},
	)
	inference := newInferenceInstruments(service)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		mappingRequestsTotal,
		repairOutcomeTotal,
		normalizeLayoutTotal,
	)
	inference.register(registry)

	return &HTTPServerMetrics{
		service:              service,
		registry:             registry,
		requestTotal:         requestTotal,
		requestDuration:      requestDuration,
		requestInFlight:      requestInFlight,
		mappingRequestsTotal: mappingRequestsTotal,
		repairOutcomeTotal:   repairOutcomeTotal,
		normalizeLayoutTotal: normalizeLayoutTotal,
		inferenceInstruments: inference,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			m.service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(m.service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath collapses project IDs so the path label stays bounded.
func normalizePath(path string) string {
	if !strings.HasPrefix(path, "/v1/projects/") {
		return path
	}
	rest := strings.TrimPrefix(path, "/v1/projects/")
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return "/v1/projects/{project_id}" + rest[i:]
	}
	return "/v1/projects/{project_id}"
}

// RecordMappingRequest counts one completed mapping run. Strategy is
// empty when the request failed before a strategy was settled.
func (m *HTTPServerMetrics) RecordMappingRequest(strategy, status string) {
	if strategy == "" {
		strategy = "unknown"
	}
	if status == "" {
		status = "unknown"
	}
	m.mappingRequestsTotal.WithLabelValues(m.service, strategy, status).Inc()
}

// RecordRepairOutcome counts one parsed inference response. An empty
// stage means inference never answered, so nothing is recorded.
func (m *HTTPServerMetrics) RecordRepairOutcome(stage string) {
	if stage == "" {
		return
	}
	m.repairOutcomeTotal.WithLabelValues(m.service, stage).Inc()
}

func (m *HTTPServerMetrics) RecordNormalizeLayout(layout string) {
	if layout == "" {
		layout = "unknown"
	}
	m.normalizeLayoutTotal.WithLabelValues(m.service, layout).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
