// Package prediction projects normalized race results onto the marathon distance.
//
// Two models are provided: a single-race model combining a fixed-exponent
// race-equivalence velocity with a training-volume regression, and a two-race
// model that fits a personal fade exponent from both results.
package prediction

import (
	"context"
	"math"

	"github.com/polandar/mara-calc/internal/domain/race"
	"github.com/polandar/mara-calc/pkg/logger"
)

// Empirical model coefficients.
const (
	secondsPerMinute = 60.0
	mileageScale     = 10.0

	// single-race model
	riegelExponent    = 1.07
	velocityIntercept = 0.16018617
	velocitySlope     = 0.83076202
	velocityMileage   = 0.06423826

	// two-race model
	exponentIntercept = 1.4510756
	exponentSlope     = 0.23797948
	exponentMileage   = 0.01410023
)

// Mode names the model used for a prediction.
type Mode string

// Prediction modes.
const (
	ModeSingle Mode = "single"
	ModeMulti  Mode = "multi"
)

// ModeFor returns the mode used when a second race is or is not supplied.
func ModeFor(hasSecond bool) Mode {
	if hasSecond {
		return ModeMulti
	}
	return ModeSingle
}

// Option applies a configuration option to the Predictor.
type Option func(*Predictor)

// WithLogger sets the logger receiving diagnostic notices.
func WithLogger(l logger.Logger) Option {
	return func(p *Predictor) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithDegenerateHook registers a callback invoked whenever the two-race
// guard rejects a non-positive normalized time.
func WithDegenerateHook(fn func()) Option {
	return func(p *Predictor) {
		p.onDegenerate = fn
	}
}

// Predictor computes marathon predictions in minutes. A zero result means no
// prediction is available. It holds no mutable state and is safe for
// concurrent use.
type Predictor struct {
	logger       logger.Logger
	onDegenerate func()
}

// New creates a Predictor.
func New(opts ...Option) *Predictor {
	p := &Predictor{logger: logger.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Single predicts from one race result and weekly mileage.
func (p *Predictor) Single(_ context.Context, r race.Result, mileage float64) float64 {
	if r.Seconds == 0 {
		return 0
	}
	adjusted := r.Normalized()
	vRef := race.MarathonMeters / (adjusted * math.Pow(race.MarathonMeters/r.Meters(), riegelExponent))
	vModel := velocityIntercept + velocitySlope*vRef + velocityMileage*(mileage/mileageScale)
	return (race.MarathonMeters / secondsPerMinute) / vModel
}

// Multi predicts from two race results and weekly mileage. The order of the
// two results does not affect the outcome; first is only checked for a zero
// time before the pair is ordered longest first.
func (p *Predictor) Multi(ctx context.Context, first, second race.Result, mileage float64) float64 {
	if first.Seconds == 0 {
		return 0
	}
	long, short := first, second
	if long.Meters() < short.Meters() {
		long, short = short, long
	}
	adjLong := long.Normalized()
	adjShort := short.Normalized()
	if adjLong <= 0 || adjShort <= 0 {
		p.logger.Warn(ctx, "non-positive adjusted time, no prediction",
			logger.Float64("adjusted_long", adjLong),
			logger.Float64("adjusted_short", adjShort),
			logger.String("long_distance", long.Distance.String()),
			logger.String("short_distance", short.Distance.String()),
		)
		if p.onDegenerate != nil {
			p.onDegenerate()
		}
		return 0
	}

	k := math.Log(adjShort/adjLong) / math.Log(short.Meters()/long.Meters())
	kMara := exponentIntercept - exponentSlope*k - exponentMileage*mileage/mileageScale
	projected := adjLong * math.Pow(race.MarathonMeters/long.Meters(), kMara)
	return projected / secondsPerMinute
}

// IsPrediction reports whether minutes is a usable prediction rather than the
// zero sentinel or a non-finite value.
func IsPrediction(minutes float64) bool {
	return minutes > 0 && !math.IsInf(minutes, 0) && !math.IsNaN(minutes)
}
