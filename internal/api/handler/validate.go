package handler

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/greenroute/greenroute/internal/api/models"
)

var validate = validator.New()

// validateInput runs struct validation on a decoded request body and
// converts failures to field errors for the problem response.
func validateInput(v any) []models.FieldError {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var invalid validator.ValidationErrors
	if !errors.As(err, &invalid) {
		return []models.FieldError{{Field: "body", Message: err.Error()}}
	}

	fields := make([]models.FieldError, 0, len(invalid))
	for _, fe := range invalid {
		fields = append(fields, models.FieldError{
			Field:   strings.ToLower(fe.Field()[:1]) + fe.Field()[1:],
			Message: "failed " + fe.Tag() + " validation",
			Code:    fe.Tag(),
		})
	}
	return fields
}
