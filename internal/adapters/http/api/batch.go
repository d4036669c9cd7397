package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/polandar/mara-calc/internal/adapters/validation"
	"github.com/polandar/mara-calc/internal/domain/model"
	"github.com/polandar/mara-calc/pkg/logger"
)

// maxBatchBody caps the request body of a batch submission.
const maxBatchBody = 1 << 20

// BatchDependencies is what the batch handler needs from the service.
type BatchDependencies interface {
	PredictBatch(ctx context.Context, inputs []model.Input) ([]model.BatchItem, error)
	DefaultMileage() float64
}

// BatchHandler handles batch prediction requests.
type BatchHandler struct {
	deps     BatchDependencies
	validate *validator.Validate
	logger   logger.Logger
}

// NewBatchHandler creates a new batch handler.
func NewBatchHandler(deps BatchDependencies, v *validator.Validate, l logger.Logger) *BatchHandler {
	return &BatchHandler{deps: deps, validate: v, logger: l}
}

// HandleBatch handles POST /predict/batch requests.
func (h *BatchHandler) HandleBatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.predict_batch"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req batchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBatchBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, validation.Message(err)))
		return
	}

	inputs := make([]model.Input, len(req.Items))
	for i, item := range req.Items {
		in, err := item.toInput(h.deps.DefaultMileage())
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, fmt.Errorf("item %d: %w", i, err)))
			return
		}
		inputs[i] = in
	}

	items, err := h.deps.PredictBatch(r.Context(), inputs)
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, batchResponse{Items: items})
}
