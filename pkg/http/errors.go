package http

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is the machine-readable error identifier carried in responses.
type Code string

const (
	CodeBadRequest  Code = "ERR_BAD_REQUEST"
	CodeConflict    Code = "ERR_CONFLICT"
	CodeRateLimited Code = "ERR_RATE_LIMITED"
	CodeInternal    Code = "ERR_INTERNAL"
	CodeUnknown     Code = "ERR_UNKNOWN"
)

// AppError is an error a handler can answer with directly: Status picks the
// HTTP status, the rest is serialized for the client. Err stays server-side.
type AppError struct {
	Code    Code                   `json:"code"`
	Message string                 `json:"message"`
	Field   string                 `json:"field,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
	Status  int                    `json:"-"`
	Err     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }

func (e *AppError) WithParam(key string, value interface{}) *AppError {
	if e.Params == nil {
		e.Params = map[string]interface{}{}
	}
	e.Params[key] = value
	return e
}

func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

func newAppError(status int, code Code, field, message string) *AppError {
	return &AppError{Code: code, Message: message, Field: field, Status: status}
}

// BadRequestError blames one request field.
func BadRequestError(field, message string) *AppError {
	return newAppError(http.StatusBadRequest, CodeBadRequest, field, message)
}

// ConflictError reports an action the current state does not allow.
func ConflictError(message string) *AppError {
	return newAppError(http.StatusConflict, CodeConflict, "", message)
}

func TooManyRequestsError(message string) *AppError {
	return newAppError(http.StatusTooManyRequests, CodeRateLimited, "", message)
}

func InternalError(message string) *AppError {
	return newAppError(http.StatusInternalServerError, CodeInternal, "", message)
}

// AsAppError finds an AppError in err's chain, or wraps err as an internal one.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return InternalError(http.StatusText(http.StatusInternalServerError)).WithError(err)
}
