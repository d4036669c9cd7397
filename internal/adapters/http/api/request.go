package api

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/polandar/mara-calc/internal/domain/model"
	"github.com/polandar/mara-calc/internal/domain/race"
)

const maxTimeLength = 32

// predictRequest mirrors the predictor form. Distance and condition fields
// accept any spelling race.ParseDistance and race.ParseCondition accept.
type predictRequest struct {
	Time1   string   `json:"time1" validate:"max=32"`
	Dist1   string   `json:"dist1" validate:"omitempty,distance"`
	Cond1   string   `json:"cond1" validate:"omitempty,condition"`
	Time2   string   `json:"time2" validate:"max=32"`
	Dist2   string   `json:"dist2" validate:"omitempty,distance"`
	Cond2   string   `json:"cond2" validate:"omitempty,condition"`
	Mileage *float64 `json:"mileage" validate:"omitempty,gte=0"`
}

type batchRequest struct {
	Items []predictRequest `json:"items" validate:"required,dive"`
}

type batchResponse struct {
	Items []model.BatchItem `json:"items"`
}

// fromQuery reads a predictRequest from URL query parameters.
func fromQuery(q url.Values) (predictRequest, error) {
	req := predictRequest{
		Time1: q.Get("time1"),
		Dist1: q.Get("dist1"),
		Cond1: q.Get("cond1"),
		Time2: q.Get("time2"),
		Dist2: q.Get("dist2"),
		Cond2: q.Get("cond2"),
	}
	if raw := strings.TrimSpace(q.Get("mileage")); raw != "" {
		m, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return req, fmt.Errorf("mileage: %w", err)
		}
		req.Mileage = &m
	}
	return req, nil
}

// toInput converts a validated request into a service input.
func (r predictRequest) toInput(defaultMileage float64) (model.Input, error) {
	in := model.Input{Mileage: defaultMileage}
	if r.Mileage != nil {
		in.Mileage = *r.Mileage
	}
	var err error
	if in.Primary, err = raceInput(r.Time1, r.Dist1, r.Cond1); err != nil {
		return model.Input{}, err
	}
	if in.Secondary, err = raceInput(r.Time2, r.Dist2, r.Cond2); err != nil {
		return model.Input{}, err
	}
	return in, nil
}

func raceInput(t, dist, cond string) (model.RaceInput, error) {
	if len(t) > maxTimeLength {
		return model.RaceInput{}, fmt.Errorf("time longer than %d characters", maxTimeLength)
	}
	d, err := race.ParseDistance(dist)
	if err != nil {
		return model.RaceInput{}, err
	}
	c, err := race.ParseCondition(cond)
	if err != nil {
		return model.RaceInput{}, err
	}
	return model.RaceInput{Time: t, Distance: d, Condition: c}, nil
}
