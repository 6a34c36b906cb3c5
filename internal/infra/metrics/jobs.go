package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(chatJobsProcessedTotal) }

var chatJobsProcessedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "chat_jobs_processed_total",
		Help: "Total number of chat jobs processed, labeled by terminal status.",
	},
	[]string{"status"}, // 'success', 'failed'
)

func IncChatJob(status string) {
	chatJobsProcessedTotal.WithLabelValues(norm(status)).Inc()
}
