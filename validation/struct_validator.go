package validation

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/kbukum/brokerkit/errors"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// FieldError represents a validation error for a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// getValidator returns the singleton validator instance.
func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Report config keys rather than Go field names.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
			if name == "-" || name == "" {
				return toSnakeCase(fld.Name)
			}
			return name
		})
	})
	return validate
}

// Validate validates a struct using `validate:"..."` tags.
func Validate(s any) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.InvalidInput("", err.Error())
	}

	fieldErrors := make([]FieldError, 0, len(validationErrors))
	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		field := fieldPath(e.Namespace())
		message := formatValidationError(e)
		fieldErrors = append(fieldErrors, FieldError{Field: field, Message: message})
		messages = append(messages, field+" "+message)
	}

	appErr := errors.InvalidInput("", strings.Join(messages, "; "))
	appErr.Details = map[string]any{"fields": fieldErrors}
	return appErr
}

// fieldPath drops the root struct name: "Config.auth.token_url" -> "auth.token_url".
func fieldPath(namespace string) string {
	if idx := strings.IndexByte(namespace, '.'); idx >= 0 {
		return namespace[idx+1:]
	}
	return namespace
}

// formatValidationError creates a human-readable error message.
func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "required_with":
		return "is required when " + e.Param() + " is set"
	case "required_if":
		return "is required when " + strings.Replace(e.Param(), " ", " is ", 1)
	case "url", "http_url":
		return "must be a valid URL"
	case "gte":
		return "must be >= " + e.Param()
	case "gt":
		return "must be > " + e.Param()
	case "lte":
		return "must be <= " + e.Param()
	case "min":
		return "must be at least " + e.Param()
	case "max":
		return "must be at most " + e.Param()
	case "oneof":
		return "must be one of: " + e.Param()
	default:
		return "is invalid"
	}
}

// toSnakeCase converts a field name to snake_case.
func toSnakeCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result.WriteRune('_')
		}
		if r >= 'A' && r <= 'Z' {
			result.WriteRune(r + 32)
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}
