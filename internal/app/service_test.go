package service_test

import (
	"context"
	"errors"
	"math"
	"testing"

	service "github.com/polandar/mara-calc/internal/app"
	"github.com/polandar/mara-calc/internal/domain/model"
	"github.com/polandar/mara-calc/internal/domain/prediction"
	"github.com/polandar/mara-calc/internal/domain/race"
	"github.com/polandar/mara-calc/internal/domain/racetime"
	"github.com/polandar/mara-calc/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const tolerance = 1e-9

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

func raceInput(t string, d race.Distance, c race.Condition) model.RaceInput {
	return model.RaceInput{Time: t, Distance: d, Condition: c}
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should have sensible defaults", func() {
			So(svc, ShouldNotBeNil)
			So(svc.DefaultMileage(), ShouldEqual, 0)
			So(svc.MaxBatchSize(), ShouldEqual, 500)
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, false)
			So(stats["workerCount"], ShouldBeGreaterThan, 0)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithWorkerCount(3),
			service.WithQueueSize(10),
			service.WithMaxBatchSize(7),
			service.WithDefaultMileage(40),
			service.WithLogger(logger.NewNop()),
		)

		Convey("Then the options are applied", func() {
			stats := svc.GetStats()
			So(stats["workerCount"], ShouldEqual, 3)
			So(stats["queueSize"], ShouldEqual, 10)
			So(svc.MaxBatchSize(), ShouldEqual, 7)
			So(svc.DefaultMileage(), ShouldEqual, 40)
		})
	})

	Convey("Given invalid option values", t, func() {
		svc := service.New(
			service.WithWorkerCount(-1),
			service.WithMaxBatchSize(0),
			service.WithDefaultMileage(-5),
			service.WithDefaultMileage(math.NaN()),
		)

		Convey("Then the defaults are kept", func() {
			So(svc.GetStats()["workerCount"], ShouldBeGreaterThan, 0)
			So(svc.MaxBatchSize(), ShouldEqual, 500)
			So(svc.DefaultMileage(), ShouldEqual, 0)
		})
	})
}

func TestService_Predict(t *testing.T) {
	ctx := context.Background()
	svc := service.New()

	Convey("Given a single complete race", t, func() {
		out, err := svc.Predict(ctx, model.Input{
			Mileage: 50,
			Primary: raceInput("1:00:00", race.TenK, race.Average),
		})

		Convey("Then the single-race model is used", func() {
			So(err, ShouldBeNil)
			So(out.Status, ShouldEqual, model.StatusPredicted)
			So(out.Mode, ShouldEqual, prediction.ModeSingle)
			So(out.Minutes, ShouldAlmostEqual, 273.87073126086585, tolerance)
			So(out.Display, ShouldEqual, "4:33:52")
			So(out.Reason, ShouldBeEmpty)
		})
	})

	Convey("Given two complete races", t, func() {
		out, err := svc.Predict(ctx, model.Input{
			Mileage:   30,
			Primary:   raceInput("0:40:00", race.TenK, race.Average),
			Secondary: raceInput("1:30:00", race.HalfMarathon, race.Average),
		})

		Convey("Then the two-race model is used", func() {
			So(err, ShouldBeNil)
			So(out.Status, ShouldEqual, model.StatusPredicted)
			So(out.Mode, ShouldEqual, prediction.ModeMulti)
			So(out.Minutes, ShouldAlmostEqual, 199.7568973774073, tolerance)
			So(out.Display, ShouldEqual, "3:19:45")
		})
	})

	Convey("Given a second race without a condition", t, func() {
		defaulted, err := svc.Predict(ctx, model.Input{
			Primary:   raceInput("0:19:00", race.FiveK, race.Average),
			Secondary: raceInput("1:30:00", race.HalfMarathon, race.ConditionUnset),
		})
		So(err, ShouldBeNil)

		Convey("Then the condition defaults to average", func() {
			So(defaulted.Status, ShouldEqual, model.StatusPredicted)
			So(defaulted.Minutes, ShouldAlmostEqual, 205.89935015494999, tolerance)
		})
	})

	Convey("Given an unparseable primary time", t, func() {
		out, err := svc.Predict(ctx, model.Input{Primary: raceInput("forty", race.TenK, race.Average)})

		Convey("Then no prediction is displayed as zero", func() {
			So(err, ShouldBeNil)
			So(out.Status, ShouldEqual, model.StatusNoPrediction)
			So(out.Display, ShouldEqual, racetime.Zero)
			So(out.Minutes, ShouldEqual, 0)
			So(out.Reason, ShouldNotBeEmpty)
		})
	})

	Convey("Given an empty primary time", t, func() {
		out, err := svc.Predict(ctx, model.Input{})

		Convey("Then it is treated as unparseable", func() {
			So(err, ShouldBeNil)
			So(out.Status, ShouldEqual, model.StatusNoPrediction)
			So(out.Display, ShouldEqual, racetime.Zero)
		})
	})

	Convey("Given a missing primary selection", t, func() {
		noDistance, err := svc.Predict(ctx, model.Input{Primary: raceInput("0:40:00", race.DistanceUnset, race.Average)})
		So(err, ShouldBeNil)
		noCondition, err := svc.Predict(ctx, model.Input{Primary: raceInput("0:40:00", race.TenK, race.ConditionUnset)})
		So(err, ShouldBeNil)

		Convey("Then the request is incomplete and nothing is displayed", func() {
			So(noDistance.Status, ShouldEqual, model.StatusIncomplete)
			So(noDistance.Display, ShouldBeEmpty)
			So(noCondition.Status, ShouldEqual, model.StatusIncomplete)
		})
	})

	Convey("Given a second race with a bad time", t, func() {
		out, err := svc.Predict(ctx, model.Input{
			Primary:   raceInput("0:40:00", race.TenK, race.Average),
			Secondary: raceInput("1:75:00", race.HalfMarathon, race.Average),
		})

		Convey("Then no prediction is made", func() {
			So(err, ShouldBeNil)
			So(out.Status, ShouldEqual, model.StatusNoPrediction)
			So(out.Mode, ShouldEqual, prediction.ModeMulti)
			So(out.Display, ShouldEqual, racetime.Zero)
		})
	})

	Convey("Given a second race time without a distance", t, func() {
		out, err := svc.Predict(ctx, model.Input{
			Primary:   raceInput("0:40:00", race.TenK, race.Average),
			Secondary: raceInput("1:30:00", race.DistanceUnset, race.Average),
		})

		Convey("Then the request is incomplete", func() {
			So(err, ShouldBeNil)
			So(out.Status, ShouldEqual, model.StatusIncomplete)
		})
	})

	Convey("Given a blank second race time", t, func() {
		out, err := svc.Predict(ctx, model.Input{
			Mileage:   50,
			Primary:   raceInput("1:00:00", race.TenK, race.Average),
			Secondary: raceInput("   ", race.HalfMarathon, race.Fast),
		})

		Convey("Then the single-race model is used", func() {
			So(err, ShouldBeNil)
			So(out.Mode, ShouldEqual, prediction.ModeSingle)
			So(out.Minutes, ShouldAlmostEqual, 273.87073126086585, tolerance)
		})
	})

	Convey("Given a zero primary time", t, func() {
		out, err := svc.Predict(ctx, model.Input{Primary: raceInput("0:00:00", race.TenK, race.Average)})

		Convey("Then no prediction is made", func() {
			So(err, ShouldBeNil)
			So(out.Status, ShouldEqual, model.StatusNoPrediction)
			So(out.Display, ShouldEqual, racetime.Zero)
		})
	})

	Convey("Given two races at the same distance", t, func() {
		out, err := svc.Predict(ctx, model.Input{
			Primary:   raceInput("0:40:00", race.TenK, race.Average),
			Secondary: raceInput("0:41:00", race.TenK, race.Average),
		})

		Convey("Then the non-finite result becomes no prediction", func() {
			So(err, ShouldBeNil)
			So(out.Status, ShouldEqual, model.StatusNoPrediction)
		})
	})

	Convey("Given an absurdly slow race that normalizes below zero", t, func() {
		before := svc.GetStats()["degenerate"].(int64)
		out, err := svc.Predict(ctx, model.Input{
			Primary:   raceInput("83:20:00", race.FiveK, race.Fast),
			Secondary: raceInput("0:50:00", race.TenK, race.Average),
		})

		Convey("Then the guard yields no prediction and is counted", func() {
			So(err, ShouldBeNil)
			So(out.Status, ShouldEqual, model.StatusNoPrediction)
			So(out.Display, ShouldEqual, racetime.Zero)
			So(svc.GetStats()["degenerate"].(int64)-before, ShouldEqual, 1)
		})
	})

	Convey("Given unusable mileage", t, func() {
		for _, m := range []float64{-1, math.NaN(), math.Inf(1)} {
			_, err := svc.Predict(ctx, model.Input{
				Mileage: m,
				Primary: raceInput("0:40:00", race.TenK, race.Average),
			})
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
		}
	})

	Convey("Given out-of-range enum values", t, func() {
		_, errDistance := svc.Predict(ctx, model.Input{Primary: raceInput("0:40:00", race.Distance(42), race.Average)})
		_, errCondition := svc.Predict(ctx, model.Input{Primary: raceInput("0:40:00", race.TenK, race.Condition(-3))})

		Convey("Then the service rejects them before the core sees them", func() {
			So(errors.Is(errDistance, service.ErrInvalidInput), ShouldBeTrue)
			So(errors.Is(errDistance, race.ErrUnknownDistance), ShouldBeTrue)
			So(errors.Is(errCondition, race.ErrUnknownCondition), ShouldBeTrue)
		})
	})
}
