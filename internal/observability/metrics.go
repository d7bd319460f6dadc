package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// UploadMetrics collects Prometheus metrics for the upload driver.
type UploadMetrics struct {
	BatchesTotal  *prometheus.CounterVec // outcome: ok|failed|rejected
	ItemsTotal    *prometheus.CounterVec // outcome: uploaded|failed
	BytesTotal    prometheus.Counter
	BatchDuration prometheus.Histogram
}

// InitMetrics registers the upload collectors on the given registerer.
// Pass nil to use the default registry.
func InitMetrics(reg prometheus.Registerer) (*UploadMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &UploadMetrics{
		BatchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attachkit_upload_batches_total",
			Help: "Batch upload calls by outcome.",
		}, []string{"outcome"}),
		ItemsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attachkit_upload_items_total",
			Help: "Individual item uploads by outcome.",
		}, []string{"outcome"}),
		BytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "attachkit_upload_bytes_total",
			Help: "Bytes successfully streamed to the upload endpoint.",
		}),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "attachkit_upload_batch_duration_seconds",
			Help:    "Wall time of batch upload calls.",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
	}

	collectors := []prometheus.Collector{m.BatchesTotal, m.ItemsTotal, m.BytesTotal, m.BatchDuration}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			// If already registered, that's okay (useful for testing)
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return nil, err
			}
		}
	}

	return m, nil
}

// StartMetricsServer starts an HTTP server for /metrics and /health.
func StartMetricsServer(port string, logger *zap.Logger) {
	go func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		})
		mux.Handle("/metrics", promhttp.Handler())

		logger.Info("starting metrics server", zap.String("port", port))
		if err := http.ListenAndServe(":"+port, mux); err != nil {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
}
