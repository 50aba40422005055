package suppliers

import (
	"github.com/go-playground/validator/v10"
)

var validate = newValidator().Struct

func newValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}
