// Package service provides the prediction service that backs the HTTP API
// and the command line tool.
package service

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	jobqueue "github.com/polandar/mara-calc/internal/adapters/mq/queue"
	workerpool "github.com/polandar/mara-calc/internal/adapters/mq/worker"
	"github.com/polandar/mara-calc/internal/domain/model"
	"github.com/polandar/mara-calc/internal/domain/prediction"
	"github.com/polandar/mara-calc/internal/domain/race"
	"github.com/polandar/mara-calc/internal/domain/racetime"
	"github.com/polandar/mara-calc/pkg/logger"
	"github.com/polandar/mara-calc/pkg/metrics"
)

const (
	defaultQueueSize    = 1024
	defaultMaxBatchSize = 500
	defaultBatchTimeout = 5 * time.Second
	stopTimeout         = 10 * time.Second
)

// Service turns raw form input into marathon predictions.
type Service struct {
	mu sync.RWMutex

	// Core components
	predictor  *prediction.Predictor
	jobQueue   *jobqueue.InMemoryQueue
	workerPool *workerpool.Pool

	// Configuration
	workerCount    int
	queueSize      int
	maxBatchSize   int
	batchTimeout   time.Duration
	defaultMileage float64

	// State
	started bool

	// Counters reported by GetStats
	predicted    atomic.Int64
	incomplete   atomic.Int64
	noPrediction atomic.Int64
	degenerate   atomic.Int64
	batches      atomic.Int64

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of batch worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the batch job queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithMaxBatchSize sets the largest batch PredictBatch accepts.
func WithMaxBatchSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.maxBatchSize = size
		}
	}
}

// WithBatchTimeout bounds how long PredictBatch waits for its results.
func WithBatchTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.batchTimeout = d
		}
	}
}

// WithDefaultMileage sets the mileage adapters use when none is supplied.
func WithDefaultMileage(mileage float64) Option {
	return func(s *Service) {
		if mileage >= 0 && !math.IsInf(mileage, 0) && !math.IsNaN(mileage) {
			s.defaultMileage = mileage
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:  runtime.NumCPU() * 2,
		queueSize:    defaultQueueSize,
		maxBatchSize: defaultMaxBatchSize,
		batchTimeout: defaultBatchTimeout,
		logger:       logger.NewNop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.predictor = prediction.New(
		prediction.WithLogger(s.logger.Named("predictor")),
		prediction.WithDegenerateHook(func() {
			s.degenerate.Add(1)
			metrics.RecordDegenerateInput()
		}),
	)
	return s
}

// DefaultMileage returns the mileage to use when a request omits it.
func (s *Service) DefaultMileage() float64 {
	return s.defaultMileage
}

// MaxBatchSize returns the largest accepted batch.
func (s *Service) MaxBatchSize() int {
	return s.maxBatchSize
}

// Start creates the job queue and starts the batch worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting prediction service...")

	s.jobQueue = jobqueue.NewInMemoryQueue(jobqueue.WithCapacity(s.queueSize))
	s.workerPool = workerpool.NewPool(s.workerCount, s.jobQueue, s,
		workerpool.WithLogger(s.logger),
	)
	s.workerPool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "prediction service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("maxBatchSize", s.maxBatchSize),
	)
	return nil
}

// Stop closes the job queue and waits for the workers to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping prediction service...")
	if s.workerPool != nil {
		if err := s.workerPool.Shutdown(ctx); err != nil {
			s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
		}
	}

	s.started = false
	s.logger.Info(ctx, "prediction service stopped")
}

// Predict evaluates one form submission. Only unusable mileage or enum values
// produce an error; every other outcome is expressed through the status.
func (s *Service) Predict(ctx context.Context, in model.Input) (model.Prediction, error) {
	start := time.Now()
	if err := validate(in); err != nil {
		s.logger.Debug(ctx, "rejected input", logger.Error(err))
		return model.Prediction{}, err
	}

	mode := prediction.ModeFor(in.Secondary.HasTime())
	out := s.evaluate(ctx, in, mode)
	s.logger.Debug(ctx, "prediction evaluated",
		logger.String("mode", string(mode)),
		logger.String("status", string(out.Status)),
		logger.Bool("usable", out.Status == model.StatusPredicted),
	)

	switch out.Status {
	case model.StatusPredicted:
		s.predicted.Add(1)
	case model.StatusIncomplete:
		s.incomplete.Add(1)
	case model.StatusNoPrediction:
		s.noPrediction.Add(1)
	}
	metrics.RecordPrediction(string(mode), string(out.Status), out.Minutes, time.Since(start))
	return out, nil
}

func validate(in model.Input) error {
	if in.Mileage < 0 || math.IsNaN(in.Mileage) || math.IsInf(in.Mileage, 0) {
		metrics.RecordInvalidInput("mileage")
		return fmt.Errorf("%w: mileage must be a finite non-negative number, got %v", ErrInvalidInput, in.Mileage)
	}
	for _, r := range []model.RaceInput{in.Primary, in.Secondary} {
		if r.Distance != race.DistanceUnset && !r.Distance.Valid() {
			metrics.RecordInvalidInput("distance")
			return fmt.Errorf("%w: %w: %d", ErrInvalidInput, race.ErrUnknownDistance, int(r.Distance))
		}
		if r.Condition != race.ConditionUnset && !r.Condition.Valid() {
			metrics.RecordInvalidInput("condition")
			return fmt.Errorf("%w: %w: %d", ErrInvalidInput, race.ErrUnknownCondition, int(r.Condition))
		}
	}
	return nil
}

func (s *Service) evaluate(ctx context.Context, in model.Input, mode prediction.Mode) model.Prediction {
	seconds1, err := racetime.ParseSeconds(in.Primary.Time)
	if err != nil {
		return noPrediction(mode, "race 1 time: "+err.Error())
	}
	if in.Primary.Distance == race.DistanceUnset || in.Primary.Condition == race.ConditionUnset {
		return incomplete(mode, "race 1 distance and condition are required")
	}
	first := race.Result{Seconds: seconds1, Distance: in.Primary.Distance, Condition: in.Primary.Condition}

	var minutes float64
	if mode == prediction.ModeMulti {
		seconds2, err := racetime.ParseSeconds(in.Secondary.Time)
		if err != nil {
			return noPrediction(mode, "race 2 time: "+err.Error())
		}
		if in.Secondary.Distance == race.DistanceUnset {
			return incomplete(mode, "race 2 distance is required when a race 2 time is given")
		}
		cond2 := in.Secondary.Condition
		if cond2 == race.ConditionUnset {
			cond2 = race.Average
		}
		second := race.Result{Seconds: seconds2, Distance: in.Secondary.Distance, Condition: cond2}
		minutes = s.predictor.Multi(ctx, first, second, in.Mileage)
	} else {
		minutes = s.predictor.Single(ctx, first, in.Mileage)
	}

	if !prediction.IsPrediction(minutes) {
		return noPrediction(mode, "inputs do not yield a usable prediction")
	}
	return model.Prediction{
		Status:  model.StatusPredicted,
		Mode:    mode,
		Minutes: minutes,
		Display: racetime.FormatMinutes(minutes),
	}
}

func noPrediction(mode prediction.Mode, reason string) model.Prediction {
	return model.Prediction{
		Status:  model.StatusNoPrediction,
		Mode:    mode,
		Display: racetime.Zero,
		Reason:  reason,
	}
}

func incomplete(mode prediction.Mode, reason string) model.Prediction {
	return model.Prediction{Status: model.StatusIncomplete, Mode: mode, Reason: reason}
}

// PredictBatch evaluates inputs on the worker pool. Results are returned in
// input order; per-item failures are reported in BatchItem.Error.
func (s *Service) PredictBatch(ctx context.Context, inputs []model.Input) ([]model.BatchItem, error) {
	s.mu.RLock()
	started, q := s.started, s.jobQueue
	s.mu.RUnlock()

	if !started {
		return nil, ErrNotStarted
	}
	if len(inputs) > s.maxBatchSize {
		metrics.RecordBatchRejected("too_large")
		return nil, fmt.Errorf("%w: batch of %d exceeds limit of %d", ErrInvalidInput, len(inputs), s.maxBatchSize)
	}
	items := make([]model.BatchItem, len(inputs))
	if len(inputs) == 0 {
		return items, nil
	}
	metrics.RecordBatchSize(len(inputs))
	s.batches.Add(1)

	ctx, cancel := context.WithTimeout(ctx, s.batchTimeout)
	defer cancel()

	batchID := uuid.NewString()
	// Buffered so workers never block on a caller that gave up.
	reply := make(chan model.BatchItem, len(inputs))
	for i, in := range inputs {
		job := model.Job{ID: fmt.Sprintf("%s-%d", batchID, i), Index: i, Input: in, Reply: reply}
		if q.Enqueue(ctx, job) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("batch %s: %w", batchID, err)
		}
		if q.IsClosed() {
			return nil, ErrNotStarted
		}
		metrics.RecordBatchRejected("backpressure")
		s.logger.Warn(ctx, "batch rejected, queue full",
			logger.String("batch_id", batchID),
			logger.Int("size", len(inputs)),
			logger.Int("enqueued", i),
		)
		return nil, ErrBackpressure
	}

	for received := 0; received < len(inputs); received++ {
		select {
		case item := <-reply:
			items[item.Index] = item
		case <-ctx.Done():
			return nil, fmt.Errorf("batch %s: %w", batchID, ctx.Err())
		}
	}
	return items, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":        s.started,
		"workerCount":    s.workerCount,
		"queueSize":      s.queueSize,
		"maxBatchSize":   s.maxBatchSize,
		"defaultMileage": s.defaultMileage,
		"predicted":      s.predicted.Load(),
		"incomplete":     s.incomplete.Load(),
		"noPrediction":   s.noPrediction.Load(),
		"degenerate":     s.degenerate.Load(),
		"batches":        s.batches.Load(),
	}

	if s.started {
		stats["queueLength"] = s.jobQueue.Len(context.Background())
		stats["queueCapacity"] = s.jobQueue.Capacity()
		stats["activeWorkers"] = s.workerPool.Size()
		metrics.UpdateWorkerCount(s.workerPool.Size())
	}
	return stats
}
