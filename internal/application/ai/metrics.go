package ai

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	llmCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "accommodation",
			Subsystem: "llm",
			Name:      "call_duration_seconds",
			Help:      "Duration of LLM calls in seconds.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"op", "tier", "status"},
	)

	llmCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "accommodation",
			Subsystem: "llm",
			Name:      "calls_total",
			Help:      "Total LLM calls by operation, model and outcome.",
		},
		[]string{"op", "model", "status"},
	)

	fallbackActivations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "accommodation",
			Subsystem: "llm",
			Name:      "fallback_activations_total",
			Help:      "Number of times the fallback model was used after a primary failure.",
		},
		[]string{"op"},
	)
)

func observeCall(op, model, tier string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	llmCallDuration.WithLabelValues(op, tier, status).Observe(time.Since(start).Seconds())
	llmCallsTotal.WithLabelValues(op, model, status).Inc()
}
