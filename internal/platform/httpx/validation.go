package httpx

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldErrors flattens validator errors into a field -> message map.
// Errors that are not validation errors are reported under "general".
func FieldErrors(err error) map[string]string {
	if err == nil {
		return nil
	}
	out := make(map[string]string)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out["general"] = err.Error()
		return out
	}
	for _, fieldErr := range verrs {
		out[strings.ToLower(fieldErr.Field())] = fieldErr.Error()
	}
	return out
}

// ValidationProblem responds 400 with per-field messages.
func ValidationProblem(w http.ResponseWriter, err error) {
	JSON(w, http.StatusBadRequest, map[string]any{
		"title":  "Validation Failed",
		"status": http.StatusBadRequest,
		"errors": FieldErrors(err),
	})
}
