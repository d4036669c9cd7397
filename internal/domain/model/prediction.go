// Package model contains domain models passed between layers.
package model

import (
	"strings"

	"github.com/polandar/mara-calc/internal/domain/prediction"
	"github.com/polandar/mara-calc/internal/domain/race"
)

// Status describes the outcome of a prediction request.
type Status string

// Prediction statuses.
const (
	// StatusPredicted carries a usable marathon time.
	StatusPredicted Status = "predicted"
	// StatusIncomplete means a required selection is missing; nothing was computed.
	StatusIncomplete Status = "incomplete"
	// StatusNoPrediction means inputs were present but yield no usable time.
	StatusNoPrediction Status = "no_prediction"
)

// RaceInput is one race as supplied by a presentation layer: a raw clock
// string and the selected distance and condition (Unset when not chosen).
type RaceInput struct {
	Time      string
	Distance  race.Distance
	Condition race.Condition
}

// HasTime reports whether a non-blank time was entered.
func (r RaceInput) HasTime() bool {
	return strings.TrimSpace(r.Time) != ""
}

// Input is everything needed for one prediction. Secondary is optional.
type Input struct {
	Mileage   float64
	Primary   RaceInput
	Secondary RaceInput
}

// Prediction is the result of one request.
type Prediction struct {
	Status  Status          `json:"status"`
	Mode    prediction.Mode `json:"mode,omitempty"`
	Minutes float64         `json:"minutes"`
	Display string          `json:"display,omitempty"`
	// Reason explains a non-predicted status.
	Reason string `json:"reason,omitempty"`
}

// Job is a unit of batch work flowing through the queue.
type Job struct {
	ID    string
	Index int
	Input Input
	Reply chan<- BatchItem
}

// BatchItem is the outcome of one job, in the position of its input.
type BatchItem struct {
	Index      int        `json:"index"`
	Prediction Prediction `json:"prediction"`
	Error      string     `json:"error,omitempty"`
}
