package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/polandar/mara-calc/internal/adapters/validation"
	"github.com/polandar/mara-calc/internal/domain/model"
	"github.com/polandar/mara-calc/pkg/logger"
)

// maxPredictBody caps the request body of a single prediction.
const maxPredictBody = 4 << 10

// PredictDependencies is what the predict handler needs from the service.
type PredictDependencies interface {
	Predict(ctx context.Context, in model.Input) (model.Prediction, error)
	DefaultMileage() float64
}

// PredictHandler handles single prediction requests.
type PredictHandler struct {
	deps     PredictDependencies
	validate *validator.Validate
	logger   logger.Logger
}

// NewPredictHandler creates a new predict handler.
func NewPredictHandler(deps PredictDependencies, v *validator.Validate, l logger.Logger) *PredictHandler {
	return &PredictHandler{deps: deps, validate: v, logger: l}
}

// HandlePredict handles GET /predict (query parameters) and POST /predict
// (JSON body). Incomplete or unusable input is a 200 with a status, not an error.
func (h *PredictHandler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	const op = "api.predict"

	var req predictRequest
	switch r.Method {
	case http.MethodGet:
		q, err := fromQuery(r.URL.Query())
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
			return
		}
		req = q
	case http.MethodPost:
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPredictBody)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
			return
		}
	default:
		http.NotFound(w, r)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, validation.Message(err)))
		return
	}
	in, err := req.toInput(h.deps.DefaultMileage())
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
		return
	}

	out, err := h.deps.Predict(r.Context(), in)
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// writeServiceError maps service errors onto HTTP statuses.
func writeServiceError(ctx context.Context, w http.ResponseWriter, l logger.Logger, op string, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
	case errors.Is(err, model.ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", wrapKind(op, ErrBackpressure, err))
	case errors.Is(err, model.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", wrapKind(op, ErrInternal, err))
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timeout", wrapKind(op, ErrInternal, err))
	default:
		l.Error(ctx, "request failed", logger.String("op", op), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", wrapKind(op, ErrInternal, err))
	}
}
