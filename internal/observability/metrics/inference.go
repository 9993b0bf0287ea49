package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// inferenceInstruments is shared by the api and worker metric sets; both
// services drive the completion client and record its usage the same way.
type inferenceInstruments struct {
	service  string
	duration *prometheus.HistogramVec
	tokens   *prometheus.CounterVec
}

func newInferenceInstruments(service string) *inferenceInstruments {
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "adms",
			Subsystem: "inference",
			Name:      "duration_seconds",
			Help:      "Inference round trip duration in seconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 60, 90, 120},
		},
		[]string{"service"},
	)
	tokens := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "adms",
			Subsystem: "inference",
			Name:      "tokens_total",
			Help:      "Token usage reported by the inference service, by direction.",
		},
		[]string{"service", "direction"},
	)
	return &inferenceInstruments{service: service, duration: duration, tokens: tokens}
}

func (i *inferenceInstruments) register(registry *prometheus.Registry) {
	registry.MustRegister(i.duration, i.tokens)
}

// ObserveInference records one inference round trip. This is the
// completion client's usage recorder.
func (i *inferenceInstruments) ObserveInference(duration time.Duration, promptTokens, responseTokens int) {
	i.duration.WithLabelValues(i.service).Observe(duration.Seconds())
	if promptTokens > 0 {
		i.tokens.WithLabelValues(i.service, "in").Add(float64(promptTokens))
	}
	if responseTokens > 0 {
		i.tokens.WithLabelValues(i.service, "out").Add(float64(responseTokens))
	}
}
