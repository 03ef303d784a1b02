package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Specs is the hardware capability a provider publishes.
type Specs struct {
	Cores      int     `validate:"gte=0"`
	ClockSpeed float64 `validate:"gte=0"`
	Memory     int     `validate:"gte=0"`
}

// Demand is the hardware a request needs. It has the same shape as Specs.
type Demand struct {
	Cores      int     `validate:"gte=0"`
	ClockSpeed float64 `validate:"gte=0"`
	Memory     int     `validate:"gte=0"`
}

type submission struct {
	ClientID uint   `validate:"gt=0"`
	Demand   Demand
	CodeText string `validate:"required"`
}

type bidOffer struct {
	Price float64 `validate:"gte=0"`
}

// validateStruct runs the struct tags and folds failures into an ErrValidation.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return validation("%v", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return validation("%s", strings.Join(msgs, "; "))
}
