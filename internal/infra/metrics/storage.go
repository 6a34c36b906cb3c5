package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(storageUploadsTotal, credentialRefreshTotal) }

var (
	storageUploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storage_uploads_total",
			Help: "Object store upload attempts per protocol step and outcome.",
		},
		[]string{"step", "outcome"}, // step: 'slot', 'upload', 'resolve'
	)

	credentialRefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credential_refresh_total",
			Help: "Bearer token cache activity: hits and refresh outcomes.",
		},
		[]string{"result"}, // 'hit', 'refreshed', 'failed'
	)
)

func IncStorageStep(step, outcome string) {
	storageUploadsTotal.WithLabelValues(norm(step), norm(outcome)).Inc()
}

func IncCredential(result string) {
	credentialRefreshTotal.WithLabelValues(norm(result)).Inc()
}
