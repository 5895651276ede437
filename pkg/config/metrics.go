package config

import (
	"github.com/marmos91/dittouploads/internal/logger"
	"github.com/marmos91/dittouploads/pkg/metrics"
	"github.com/marmos91/dittouploads/pkg/uploads"
)

// InitializeMetrics sets up the metrics registry if enabled and returns the
// engine's metrics sink.
//
// Returns nil when metrics are disabled, which the engine treats as a no-op.
func InitializeMetrics(cfg *Config) uploads.Metrics {
	if !cfg.Metrics.Enabled {
		logger.Debug("Metrics collection disabled")
		return nil
	}

	metrics.InitRegistry()
	logger.Debug("Metrics collection enabled (output: %s)", cfg.Metrics.Output)

	return metrics.NewUploadsMetrics()
}
