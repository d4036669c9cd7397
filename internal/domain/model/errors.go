package model

import "errors"

// Errors shared by the service and its adapters.
var (
	// ErrInvalidInput means a request cannot be evaluated at all.
	ErrInvalidInput = errors.New("invalid input")
	// ErrBackpressure means the batch job queue is full.
	ErrBackpressure = errors.New("job queue is full")
	// ErrNotStarted means batch work was requested before the workers run.
	ErrNotStarted = errors.New("service not started")
)
