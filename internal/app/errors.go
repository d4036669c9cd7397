package service

import "github.com/polandar/mara-calc/internal/domain/model"

var (
	// ErrInvalidInput is returned when a request cannot be evaluated at all,
	// such as negative mileage or an oversized batch.
	ErrInvalidInput = model.ErrInvalidInput
	// ErrBackpressure is returned when the batch job queue is full.
	ErrBackpressure = model.ErrBackpressure
	// ErrNotStarted is returned by operations that need the worker pool.
	ErrNotStarted = model.ErrNotStarted
)
