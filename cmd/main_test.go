package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/polandar/mara-calc/internal/config"
	"github.com/polandar/mara-calc/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When configuration comes from the environment", func() {
			_ = os.Setenv("MARACALC_ADDR", ":8080")
			_ = os.Setenv("MARACALC_QUEUE_SIZE", "1000")
			_ = os.Setenv("MARACALC_WORKER_COUNT", "4")
			_ = os.Setenv("MARACALC_DEFAULT_MILEAGE", "35")
			defer func() {
				_ = os.Unsetenv("MARACALC_ADDR")
				_ = os.Unsetenv("MARACALC_QUEUE_SIZE")
				_ = os.Unsetenv("MARACALC_WORKER_COUNT")
				_ = os.Unsetenv("MARACALC_DEFAULT_MILEAGE")
			}()

			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the service is built from it", func() {
				svc := newService(cfg, logger.NewNop())
				stats := svc.GetStats()
				convey.So(stats["workerCount"], convey.ShouldEqual, 4)
				convey.So(stats["queueSize"], convey.ShouldEqual, 1000)
				convey.So(svc.DefaultMileage(), convey.ShouldEqual, 35)
			})
		})
	})
}

func TestNewHandler(t *testing.T) {
	convey.Convey("Given the assembled HTTP handler", t, func() {
		ctx := context.Background()
		svc := newService(config.New(), logger.NewNop())
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()
		h := newHandler(ctx, svc, logger.NewNop())

		get := func(target string) *httptest.ResponseRecorder {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
			return w
		}

		convey.Convey("Then every surface is routed", func() {
			for _, target := range []string{"/", "/healthz", "/metrics", "/stats", "/openapi.yaml", "/api-docs", "/predict?time1=0:40:00&dist1=10k&cond1=average"} {
				w := get(target)
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(w.Header().Get("X-Request-ID"), convey.ShouldNotBeEmpty)
			}
		})

		convey.Convey("Then predictions are served end to end", func() {
			w := get("/predict?time1=1:00:00&dist1=10k&cond1=average&mileage=50")
			convey.So(w.Body.String(), convey.ShouldContainSubstring, `"display":"4:33:52"`)
		})
	})
}

func TestMetricsUpdaters(t *testing.T) {
	convey.Convey("Given the metrics updaters", t, func() {
		svc := newService(config.New(), logger.NewNop())

		convey.Convey("Then they run without panicking", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
			convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)
		})

		convey.Convey("Then the tickers stop with their context", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			done := make(chan struct{})
			go func() {
				startSystemMetricsUpdater(ctx)
				startServiceMetricsUpdater(ctx, svc)
				close(done)
			}()
			<-done
		})
	})
}
