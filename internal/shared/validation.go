package shared

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// FromValidator converts go-playground validator output into the per-field
// ValidationError shape surfaced to callers.
func FromValidator(err error) error {
	if err == nil {
		return nil
	}
	invalid, ok := err.(validator.ValidationErrors)
	if !ok {
		return NewValidationError("payload", err.Error())
	}
	ve := &ValidationError{}
	for _, f := range invalid {
		msg := "failed " + f.Tag() + " constraint"
		if f.Param() != "" {
			msg += " (" + f.Param() + ")"
		}
		ve.Fields = append(ve.Fields, FieldError{Field: strings.ToLower(f.Field()), Message: msg})
	}
	return ve
}
