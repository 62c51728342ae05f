package http

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// ValidationError describes one rejected request field.
type ValidationError struct {
	Code    Code                   `json:"code"`
	Field   string                 `json:"field,omitempty"`
	Message string                 `json:"message"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

type messageFunc func(fe validator.FieldError) string

var (
	validate = newValidator()

	messagesMu sync.RWMutex
	messages   = map[string]messageFunc{
		"required": fixed("%s is required"),
		"min":      bounded("at least"),
		"max":      bounded("at most"),
		"gt":       withParam("%s must be greater than %s"),
		"gte":      withParam("%s must be greater than or equal to %s"),
		"lt":       withParam("%s must be less than %s"),
		"lte":      withParam("%s must be less than or equal to %s"),
		"oneof": func(fe validator.FieldError) string {
			return fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.Join(strings.Fields(fe.Param()), ", "))
		},
	}
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		switch name {
		case "-":
			return ""
		case "":
			return fld.Name
		}
		return name
	})
	return v
}

func fixed(format string) messageFunc {
	return func(fe validator.FieldError) string { return fmt.Sprintf(format, fe.Field()) }
}

func withParam(format string) messageFunc {
	return func(fe validator.FieldError) string { return fmt.Sprintf(format, fe.Field(), fe.Param()) }
}

// bounded reads min/max as a length for strings and as a value otherwise.
func bounded(word string) messageFunc {
	return func(fe validator.FieldError) string {
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be %s %s characters", fe.Field(), word, fe.Param())
		}
		return fmt.Sprintf("%s must be %s %s", fe.Field(), word, fe.Param())
	}
}

// RegisterValidation adds a custom tag. message is a format with one %s for the field name.
func RegisterValidation(tag string, fn validator.Func, message string) error {
	if err := validate.RegisterValidation(tag, fn); err != nil {
		return fmt.Errorf("register validation %q: %w", tag, err)
	}
	messagesMu.Lock()
	messages[tag] = fixed(message)
	messagesMu.Unlock()
	return nil
}

// ReadAndValidateRequest binds the body into req, fills `default` tags and runs
// the `validate` rules. It returns nil when req is usable.
func ReadAndValidateRequest(c echo.Context, req interface{}) []ValidationError {
	if err := c.Bind(req); err != nil {
		return toValidationErrors(err)
	}
	if err := defaults.Set(req); err != nil {
		return toValidationErrors(err)
	}
	if err := validate.StructCtx(c.Request().Context(), req); err != nil {
		return toValidationErrors(err)
	}
	return nil
}

func toValidationErrors(err error) []ValidationError {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		msg := err.Error()
		var he *echo.HTTPError
		if errors.As(err, &he) {
			msg = fmt.Sprint(he.Message)
		}
		return []ValidationError{{Code: CodeUnknown, Message: msg}}
	}

	out := make([]ValidationError, len(fieldErrs))
	for i, fe := range fieldErrs {
		out[i] = ValidationError{
			Code:    Code("ERR_" + strings.ToUpper(fe.Tag())),
			Field:   fe.Field(),
			Message: message(fe),
			Params:  params(fe),
		}
	}
	return out
}

func message(fe validator.FieldError) string {
	messagesMu.RLock()
	fn, ok := messages[fe.Tag()]
	messagesMu.RUnlock()
	if !ok {
		return fmt.Sprintf("%s failed validation: %s", fe.Field(), fe.Tag())
	}
	return fn(fe)
}

func params(fe validator.FieldError) map[string]interface{} {
	var key string
	var val interface{} = fe.Param()
	switch fe.Tag() {
	case "min", "gte":
		key = "min"
	case "max", "lte":
		key = "max"
	case "gt", "lt":
		key = "value"
	case "oneof":
		key, val = "options", strings.Fields(fe.Param())
	default:
		return nil
	}
	return map[string]interface{}{key: val}
}
