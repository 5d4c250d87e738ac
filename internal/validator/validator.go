// Package validator wraps go-playground/validator with the request rules
// used across the API.
package validator

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9][0-9\s-]{6,17}$`)

type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New()
	v.RegisterValidation("phone", validatePhone)
	return &Validator{validate: v}
}

func (v *Validator) Validate(i any) error {
	return v.validate.Struct(i)
}

func validatePhone(fl validator.FieldLevel) bool {
	return phonePattern.MatchString(fl.Field().String())
}
