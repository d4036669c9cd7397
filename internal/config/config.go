// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults come from New; Load layers an optional YAML file and env vars on top.
// - All future functions must accept context.Context as the first parameter.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"runtime"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`
	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`
	// WorkerCount sets the number of batch prediction workers.
	WorkerCount int `koanf:"worker_count"`
	// QueueSize bounds the in-memory batch job queue.
	QueueSize int `koanf:"queue_size"`
	// MaxBatchSize caps the number of inputs accepted by one batch request.
	MaxBatchSize int `koanf:"max_batch_size"`
	// BatchTimeoutMS bounds how long a batch waits for its results.
	BatchTimeoutMS int `koanf:"batch_timeout_ms"`
	// DefaultMileage is used when a request omits mileage.
	DefaultMileage float64 `koanf:"default_mileage"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:       "info",
		LogFormat:      "text",
		Addr:           ":9080",
		WorkerCount:    runtime.NumCPU() * 2,
		QueueSize:      1024,
		MaxBatchSize:   500,
		BatchTimeoutMS: 5000,
		DefaultMileage: 0,
	}
}
