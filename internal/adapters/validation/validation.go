// Package validation builds the request validator shared by the HTTP API and
// the command line tool.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/polandar/mara-calc/internal/domain/race"
)

// New returns a validator with the race tags registered:
//
//	distance   any spelling race.ParseDistance accepts
//	condition  any spelling race.ParseCondition accepts
func New() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("distance", func(fl validator.FieldLevel) bool {
		_, err := race.ParseDistance(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("condition", func(fl validator.FieldLevel) bool {
		_, err := race.ParseCondition(fl.Field().String())
		return err == nil
	})
	return v
}

// Message flattens validator errors into one readable line.
func Message(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Namespace()), fe.Tag()))
	}
	return errors.New(strings.Join(parts, "; "))
}
