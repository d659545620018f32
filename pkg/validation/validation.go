package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	dErrors "schoolbridge/pkg/domain-errors"
	s "schoolbridge/pkg/string"
)

var (
	defaultValidator = newValidator()
	hexToken         = regexp.MustCompile(`^[0-9a-f]{64}$`)
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("token64", func(fl validator.FieldLevel) bool {
		return hexToken.MatchString(fl.Field().String())
	})
	return v
}

// Validate validates a struct using the default validator and returns a domain error.
// The error message describes the first failing field; Details holds every failing field.
func Validate(req any) error {
	if err := defaultValidator.Struct(req); err != nil {
		return dErrors.WithDetails(dErrors.CodeValidation, ErrorMessage(err), FieldErrors(err))
	}
	return nil
}

// FieldErrors maps each failing field (snake_case) to its message.
func FieldErrors(err error) map[string]string {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return nil
	}
	out := make(map[string]string, len(validationErrs))
	for _, fe := range validationErrs {
		field, msg := describe(fe)
		if _, seen := out[field]; !seen {
			out[field] = msg
		}
	}
	return out
}

// ErrorMessage converts a validator error into a human-readable message
func ErrorMessage(err error) string {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return "invalid request body"
	}
	field, msg := describe(validationErrs[0])
	if field == "" {
		return "invalid request body"
	}
	return msg
}

func describe(fe validator.FieldError) (string, string) {
	fieldName := fe.Field()
	if fieldName == "" {
		fieldName = fe.StructField()
	}
	field := s.ToSnakeCase(fieldName)

	switch fe.ActualTag() {
	case "required":
		return field, fmt.Sprintf("%s is required", field)
	case "email":
		return field, fmt.Sprintf("%s must be a valid email", field)
	case "url":
		return field, fmt.Sprintf("%s must be a valid url", field)
	case "uuid":
		return field, fmt.Sprintf("%s must be a valid uuid", field)
	case "min":
		return field, fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return field, fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return field, fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "notblank":
		return field, fmt.Sprintf("%s must not be blank", field)
	case "token64":
		return field, fmt.Sprintf("%s must be a 64 character hex token", field)
	default:
		return field, fmt.Sprintf("%s is invalid", field)
	}
}
