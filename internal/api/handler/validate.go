package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// validationMessages flattens validator errors into a field -> message map
func validationMessages(err error) (map[string]string, bool) {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil, false
	}

	messages := make(map[string]string, len(validationErrors))
	for _, e := range validationErrors {
		field := e.Field()
		switch e.Tag() {
		case "required":
			messages[field] = "field is required"
		case "oneof":
			messages[field] = "must be one of: " + e.Param()
		case "gt":
			messages[field] = "must be greater than " + e.Param()
		case "max":
			messages[field] = "must be at most " + e.Param() + " characters"
		default:
			messages[field] = "validation failed on " + e.Tag()
		}
	}
	return messages, true
}
