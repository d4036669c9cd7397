package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/polandar/mara-calc/internal/adapters/http/api"
	service "github.com/polandar/mara-calc/internal/app"
	"github.com/polandar/mara-calc/internal/domain/model"
	"github.com/polandar/mara-calc/internal/domain/prediction"
	"github.com/polandar/mara-calc/internal/domain/race"
	"github.com/polandar/mara-calc/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing
type mockDeps struct {
	lastInput  model.Input
	lastBatch  []model.Input
	predictErr error
	batchErr   error
	mileage    float64
}

func (m *mockDeps) Predict(ctx context.Context, in model.Input) (model.Prediction, error) {
	m.lastInput = in
	if m.predictErr != nil {
		return model.Prediction{}, m.predictErr
	}
	return model.Prediction{Status: model.StatusPredicted, Minutes: 200, Display: "3:20:00"}, nil
}

func (m *mockDeps) PredictBatch(ctx context.Context, inputs []model.Input) ([]model.BatchItem, error) {
	m.lastBatch = inputs
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	items := make([]model.BatchItem, len(inputs))
	for i := range inputs {
		items[i] = model.BatchItem{Index: i, Prediction: model.Prediction{Status: model.StatusPredicted}}
	}
	return items, nil
}

func (m *mockDeps) DefaultMileage() float64 { return m.mileage }

func (m *mockDeps) GetStats() map[string]interface{} {
	return map[string]interface{}{"started": true, "predicted": 3}
}

func newMux(deps api.Dependencies) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, api.WithLogger(logger.NewNop())).Register(mux)
	return mux
}

func do(mux http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestServerRoutes(t *testing.T) {
	Convey("Given a new API server", t, func() {
		mux := newMux(&mockDeps{})

		Convey("Then health returns ok as JSON", func() {
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldContainSubstring, "application/json")
			So(w.Body.String(), ShouldContainSubstring, `"status":"ok"`)
		})

		Convey("And health rejects writes", func() {
			So(do(mux, http.MethodPost, "/healthz", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("And metrics are exposed in Prometheus format", func() {
			do(mux, http.MethodGet, "/healthz", "")
			w := do(mux, http.MethodGet, "/metrics", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "maracalc_predictor_http_requests_total")
		})

		Convey("And stats are returned as JSON", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var stats map[string]interface{}
			So(json.Unmarshal(w.Body.Bytes(), &stats), ShouldBeNil)
			So(stats["started"], ShouldEqual, true)
		})

		Convey("And stats reject writes", func() {
			So(do(mux, http.MethodDelete, "/stats", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestPredictHandler(t *testing.T) {
	Convey("Given a predict handler", t, func() {
		deps := &mockDeps{mileage: 25}
		mux := newMux(deps)

		Convey("When handling a GET with query parameters", func() {
			w := do(mux, http.MethodGet, "/predict?time1=0:40:00&dist1=10k&cond1=fast&time2=1:30:00&dist2=half&mileage=40", "")

			Convey("Then the form values reach the service", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastInput.Mileage, ShouldEqual, 40)
				So(deps.lastInput.Primary, ShouldResemble, model.RaceInput{Time: "0:40:00", Distance: race.TenK, Condition: race.Fast})
				So(deps.lastInput.Secondary.Distance, ShouldEqual, race.HalfMarathon)
				So(deps.lastInput.Secondary.Condition, ShouldEqual, race.ConditionUnset)

				var out model.Prediction
				So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
				So(out.Status, ShouldEqual, model.StatusPredicted)
				So(out.Display, ShouldEqual, "3:20:00")
			})
		})

		Convey("When handling a POST with a JSON body", func() {
			w := do(mux, http.MethodPost, "/predict", `{"time1":"0:19:00","dist1":"5k","cond1":"difficult"}`)

			Convey("Then omitted mileage uses the default", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastInput.Mileage, ShouldEqual, 25)
				So(deps.lastInput.Primary.Condition, ShouldEqual, race.Difficult)
			})
		})

		Convey("When the form ordinals are used", func() {
			w := do(mux, http.MethodGet, "/predict?time1=0:40:00&dist1=2&cond1=0", "")

			Convey("Then they map onto the enums", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastInput.Primary.Distance, ShouldEqual, race.TenK)
				So(deps.lastInput.Primary.Condition, ShouldEqual, race.Average)
			})
		})

		Convey("When a distance is unknown", func() {
			w := do(mux, http.MethodGet, "/predict?time1=0:40:00&dist1=15k&cond1=fast", "")

			Convey("Then it should return bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldContainSubstring, "bad_request")
				So(w.Body.String(), ShouldContainSubstring, "dist1")
			})
		})

		Convey("When mileage is negative or malformed", func() {
			So(do(mux, http.MethodGet, "/predict?time1=0:40:00&mileage=-5", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodGet, "/predict?time1=0:40:00&mileage=lots", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodPost, "/predict", `{"mileage":-1}`).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When mileage is large but non-negative", func() {
			w := do(mux, http.MethodPost, "/predict", `{"time1":"0:40:00","dist1":"10k","cond1":"average","mileage":1500}`)

			Convey("Then it is passed through unchanged", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastInput.Mileage, ShouldEqual, 1500)
			})
		})

		Convey("When the body exceeds the size limit", func() {
			body := strings.Repeat(" ", 8<<10) + `{"time1":"0:40:00","dist1":"10k","cond1":"average"}`
			w := do(mux, http.MethodPost, "/predict", body)

			Convey("Then it should return bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the body is not JSON", func() {
			w := do(mux, http.MethodPost, "/predict", `{oops`)

			Convey("Then it should return bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the service rejects the input", func() {
			deps.predictErr = fmt.Errorf("%w: mileage", model.ErrInvalidInput)
			w := do(mux, http.MethodGet, "/predict?time1=0:40:00", "")

			Convey("Then it should return bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the service fails unexpectedly", func() {
			deps.predictErr = errors.New("boom")
			w := do(mux, http.MethodGet, "/predict?time1=0:40:00", "")

			Convey("Then it should return internal error", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				So(w.Body.String(), ShouldContainSubstring, "internal_error")
			})
		})

		Convey("When using an unsupported method", func() {
			So(do(mux, http.MethodPut, "/predict", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestBatchHandler(t *testing.T) {
	Convey("Given a batch handler", t, func() {
		deps := &mockDeps{}
		mux := newMux(deps)

		Convey("When handling a valid batch", func() {
			w := do(mux, http.MethodPost, "/predict/batch",
				`{"items":[{"time1":"0:40:00","dist1":"10k","cond1":"average"},{"time1":"1:30:00","dist1":"half","cond1":"fast","mileage":30}]}`)

			Convey("Then every item is answered", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(len(deps.lastBatch), ShouldEqual, 2)
				So(deps.lastBatch[1].Mileage, ShouldEqual, 30)

				var resp struct {
					Items []model.BatchItem `json:"items"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
				So(len(resp.Items), ShouldEqual, 2)
			})
		})

		Convey("When an item is invalid", func() {
			w := do(mux, http.MethodPost, "/predict/batch", `{"items":[{"time1":"0:40:00","cond1":"windy"}]}`)

			Convey("Then the whole batch is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When items are missing", func() {
			So(do(mux, http.MethodPost, "/predict/batch", `{}`).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the queue is full", func() {
			deps.batchErr = model.ErrBackpressure
			w := do(mux, http.MethodPost, "/predict/batch", `{"items":[{"time1":"0:40:00"}]}`)

			Convey("Then it should return too many requests", func() {
				So(w.Code, ShouldEqual, http.StatusTooManyRequests)
				So(w.Body.String(), ShouldContainSubstring, "backpressure")
			})
		})

		Convey("When the batch is too large", func() {
			deps.batchErr = fmt.Errorf("%w: batch too large", model.ErrInvalidInput)
			w := do(mux, http.MethodPost, "/predict/batch", `{"items":[{"time1":"0:40:00"}]}`)

			Convey("Then it should return bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the workers are not running", func() {
			deps.batchErr = model.ErrNotStarted
			w := do(mux, http.MethodPost, "/predict/batch", `{"items":[{"time1":"0:40:00"}]}`)

			Convey("Then it should return service unavailable", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			})
		})

		Convey("When using GET", func() {
			So(do(mux, http.MethodGet, "/predict/batch", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestPredictEndToEnd(t *testing.T) {
	Convey("Given the API backed by a real service", t, func() {
		svc := service.New(service.WithWorkerCount(2))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()
		mux := newMux(svc)

		Convey("When predicting from two races", func() {
			w := do(mux, http.MethodGet, "/predict?time1=1:30:00&dist1=half&cond1=average&time2=0:40:00&dist2=10k&cond2=average&mileage=30", "")

			Convey("Then the two-race prediction is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var out model.Prediction
				So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
				So(out.Mode, ShouldEqual, prediction.ModeMulti)
				So(out.Minutes, ShouldAlmostEqual, 199.7568973774073, 1e-9)
				So(out.Display, ShouldEqual, "3:19:45")
			})
		})

		Convey("When a selection is missing", func() {
			w := do(mux, http.MethodGet, "/predict?time1=0:40:00&dist1=10k", "")

			Convey("Then the status is incomplete", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"status":"incomplete"`)
			})
		})

		Convey("When a batch is submitted", func() {
			w := do(mux, http.MethodPost, "/predict/batch",
				`{"items":[{"time1":"1:00:00","dist1":"10k","cond1":"average","mileage":50},{"time1":"nope","dist1":"10k","cond1":"average"}]}`)

			Convey("Then results come back in order", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var resp struct {
					Items []model.BatchItem `json:"items"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
				So(resp.Items[0].Prediction.Minutes, ShouldAlmostEqual, 273.87073126086585, 1e-9)
				So(resp.Items[1].Prediction.Status, ShouldEqual, model.StatusNoPrediction)
				So(resp.Items[1].Prediction.Display, ShouldEqual, "0:00:00")
			})
		})
	})
}

func TestRequestIDMiddleware(t *testing.T) {
	Convey("Given the request id middleware", t, func() {
		var seen string
		h := api.RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = logger.RequestID(r.Context())
		}))

		Convey("When the client supplies an id", func() {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(api.RequestIDHeader, "abc-123")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			Convey("Then it is propagated", func() {
				So(seen, ShouldEqual, "abc-123")
				So(w.Header().Get(api.RequestIDHeader), ShouldEqual, "abc-123")
			})
		})

		Convey("When no id is supplied", func() {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

			Convey("Then one is generated", func() {
				So(seen, ShouldNotBeEmpty)
				So(len(seen), ShouldEqual, 36)
				So(w.Header().Get(api.RequestIDHeader), ShouldEqual, seen)
			})
		})
	})
}

func TestMetricsMiddleware(t *testing.T) {
	Convey("Given a handler wrapped with metrics", t, func() {
		h := api.MetricsMiddleware(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}, "test")

		Convey("Then the status code passes through", func() {
			w := httptest.NewRecorder()
			h(w, httptest.NewRequest(http.MethodGet, "/", nil))
			So(w.Code, ShouldEqual, http.StatusTooManyRequests)
		})
	})
}
