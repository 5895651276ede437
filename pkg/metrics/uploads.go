package metrics

import (
	"sync"
	"time"

	"github.com/marmos91/dittouploads/pkg/uploads"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// uploadsMetrics is the Prometheus implementation of uploads.Metrics.
//
// This implementation collects:
//   - Operation counts by operation and status
//   - Operation latency
//   - Bytes moved to and from disks
type uploadsMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	bytesTotal        *prometheus.CounterVec
}

var (
	globalUploadsMetrics     uploads.Metrics
	globalUploadsMetricsOnce sync.Once
)

// NewUploadsMetrics returns the Prometheus-backed uploads.Metrics registered
// on the global registry. Every call returns the same instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called), which
// makes the engine use its built-in no-op implementation.
func NewUploadsMetrics() uploads.Metrics {
	if !IsEnabled() {
		return nil
	}
	globalUploadsMetricsOnce.Do(func() {
		globalUploadsMetrics = NewUploadsMetricsWith(GetRegistry())
	})
	return globalUploadsMetrics
}

// NewUploadsMetricsWith registers the uploads metrics on reg.
func NewUploadsMetricsWith(reg prometheus.Registerer) uploads.Metrics {
	return &uploadsMetrics{
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittouploads_operations_total",
				Help: "Total number of upload operations by operation type and status",
			},
			[]string{"operation", "status"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "dittouploads_operation_duration_seconds",
				Help: "Duration of upload operations in seconds",
				Buckets: []float64{
					0.001, // 1ms
					0.01,  // 10ms
					0.05,  // 50ms
					0.1,   // 100ms
					0.5,   // 500ms
					1.0,   // 1s
					5.0,   // 5s
					30.0,  // 30s
					120.0, // 2m
				},
			},
			[]string{"operation"},
		),
		bytesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittouploads_bytes_total",
				Help: "Total bytes moved to or from disks by operation type",
			},
			[]string{"operation"},
		),
	}
}

func (m *uploadsMetrics) ObserveOperation(op string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	m.operationsTotal.WithLabelValues(op, status).Inc()
	m.operationDuration.WithLabelValues(op).Observe(duration.Seconds())
}

func (m *uploadsMetrics) RecordBytes(op string, n int64) {
	if n <= 0 {
		return
	}
	m.bytesTotal.WithLabelValues(op).Add(float64(n))
}
