package vendors

import (
	"net/mail"
	"strings"

	"github.com/agriflight/backoffice/internal/shared"
)

func validateInput(input CreateInput) error {
	ve := &shared.ValidationError{}
	if strings.TrimSpace(input.Name) == "" {
		ve.Fields = append(ve.Fields, shared.FieldError{Field: "name", Message: "vendor name is required"})
	}
	if strings.TrimSpace(input.Email) == "" {
		ve.Fields = append(ve.Fields, shared.FieldError{Field: "email", Message: "email is required"})
	} else if _, err := mail.ParseAddress(input.Email); err != nil {
		ve.Fields = append(ve.Fields, shared.FieldError{Field: "email", Message: "malformed email address"})
	}
	if len(input.Name) > 200 {
		ve.Fields = append(ve.Fields, shared.FieldError{Field: "name", Message: "must be at most 200 characters"})
	}
	if len(ve.Fields) > 0 {
		return ve
	}
	return nil
}
