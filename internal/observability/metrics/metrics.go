package metrics

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricPrefix = "collectorkit_"

	ResultSuccess = "success"
	ResultError   = "error"

	SourceCatalog     = "catalog"
	SourceCache       = "cache"
	SourceBackend     = "backend"
	SourcePassthrough = "passthrough"
)

var (
	registerOnce sync.Once
	registerErr  error

	storageOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metricPrefix + "storage_operations_total",
			Help: "Storage operations by operation and result code",
		},
		[]string{"op", "result"},
	)
	storageLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    metricPrefix + "storage_operation_seconds",
			Help:    "Storage operation latency in seconds, retries included",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
	storageRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metricPrefix + "storage_retries_total",
			Help: "Storage attempts retried after a transient failure",
		},
		[]string{"op"},
	)
	translations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metricPrefix + "translations_total",
			Help: "Translations by the source that answered",
		},
		[]string{"source"},
	)
	validations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metricPrefix + "validations_total",
			Help: "Data collector validations by resulting status",
		},
		[]string{"status"},
	)
	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metricPrefix + "notifications_total",
			Help: "Notifications by channel and result",
		},
		[]string{"channel", "result"},
	)
)

// Register adds every collector to reg. Only the first call registers;
// later calls return the first outcome.
func Register(reg prometheus.Registerer) error {
	registerOnce.Do(func() {
		for _, c := range []prometheus.Collector{storageOps, storageLatency, storageRetries, translations, validations, notifications} {
			if err := reg.Register(c); err != nil {
				var already prometheus.AlreadyRegisteredError
				if errors.As(err, &already) {
					continue
				}
				registerErr = err
				return
			}
		}
	})
	return registerErr
}

// Handler serves the default gatherer.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveStorage records one storage operation outcome.
func ObserveStorage(op, result string, elapsed time.Duration) {
	storageOps.WithLabelValues(op, result).Inc()
	storageLatency.WithLabelValues(op).Observe(elapsed.Seconds())
}

// StorageRetry counts one retried storage attempt.
func StorageRetry(op string) {
	storageRetries.WithLabelValues(op).Inc()
}

// Translation counts one translation answered by source.
func Translation(source string) {
	translations.WithLabelValues(source).Inc()
}

// Validation counts one validation run.
func Validation(status string) {
	validations.WithLabelValues(status).Inc()
}

// Notification counts one delivery attempt on channel.
func Notification(channel, result string) {
	notifications.WithLabelValues(channel, result).Inc()
}
