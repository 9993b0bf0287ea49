package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	service  string
	registry *prometheus.Registry

	processTotal    *prometheus.CounterVec
	processDuration *prometheus.HistogramVec
	processInFlight prometheus.Gauge
	queueLag        *prometheus.HistogramVec

	*inferenceInstruments
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "adms",
			Subsystem: "worker",
			Name:      "project_process_total",
			Help:      "Total processed projects by status.",
		},
		[]string{"service", "status"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "adms",
			Subsystem: "worker",
			Name:      "project_process_duration_seconds",
			Help:      "Project processing duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "adms",
			Subsystem: "worker",
			Name:      "project_process_in_flight",
			Help:      "Number of in-flight project processing tasks.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "adms",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between project upload and processing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)
	inference := newInferenceInstruments(service)

	registry.MustRegister(processTotal, processDuration, processInFlight, queueLag)
	inference.register(registry)

	return &WorkerMetrics{
		service:              service,
		registry:             registry,
		processTotal:         processTotal,
		processDuration:      processDuration,
		processInFlight:      processInFlight,
		queueLag:             queueLag,
		inferenceInstruments: inference,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartProject() {
	m.processInFlight.Inc()
}

func (m *WorkerMetrics) FinishProject(duration time.Duration, err error) {
	m.processInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.processTotal.WithLabelValues(m.service, status).Inc()
	m.processDuration.WithLabelValues(m.service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveQueueLag(lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(m.service).Observe(lag.Seconds())
}
