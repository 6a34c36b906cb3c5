package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		aiInvocationsTotal,
		aiCallsLatencyMs,
	)
}

var (
	aiInvocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_invocations_total",
			Help: "Total AI backend invocations per provider/model and outcome.",
		},
		[]string{"provider", "model", "success"},
	)

	aiCallsLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_calls_latency_ms",
			Help:    "AI call latency distribution in milliseconds.",
			Buckets: []float64{100, 250, 500, 1000, 2500, 5000, 10000, 20000, 40000, 60000},
		},
		[]string{"provider", "model"},
	)
)

func ObserveAICall(provider, model string, latencyMs int, success bool) {
	aiInvocationsTotal.WithLabelValues(norm(provider), norm(model), strconv.FormatBool(success)).Inc()
	aiCallsLatencyMs.WithLabelValues(norm(provider), norm(model)).Observe(float64(latencyMs))
}
