package http

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes carried in AppError.Code.
const (
	CodeValidation    = "ERR_VALIDATION"
	CodeBadRequest    = "ERR_BAD_REQUEST"
	CodeNotFound      = "ERR_NOT_FOUND"
	CodeUnprocessable = "ERR_UNPROCESSABLE"
	CodeRateLimited   = "ERR_RATE_LIMITED"
)

// AppError is an error the client can act on. Status selects the envelope status and
// Err keeps the cause for logs without exposing it in the body.
type AppError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Field   string                 `json:"field,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
	Status  int                    `json:"-"`
	Err     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(code, field, message string, status int) *AppError {
	return &AppError{Code: code, Field: field, Message: message, Status: status}
}

// WithParam adds a detail the client may use, such as a retry delay.
func (e *AppError) WithParam(key string, value interface{}) *AppError {
	if e.Params == nil {
		e.Params = make(map[string]interface{}, 1)
	}
	e.Params[key] = value
	return e
}

func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// AsAppError finds an AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func NotFoundError(message string) *AppError {
	return NewAppError(CodeNotFound, "", message, http.StatusNotFound)
}

func BadRequestError(message string) *AppError {
	return NewAppError(CodeBadRequest, "", message, http.StatusBadRequest)
}

func BadRequestErrorf(format string, a ...interface{}) *AppError {
	return BadRequestError(fmt.Sprintf(format, a...))
}

// UnprocessableError is for well-formed requests the engine cannot serve, such as a
// stress test where every scenario failed.
func UnprocessableError(message string) *AppError {
	return NewAppError(CodeUnprocessable, "", message, http.StatusUnprocessableEntity)
}

func TooManyRequestsError(message string) *AppError {
	return NewAppError(CodeRateLimited, "", message, http.StatusTooManyRequests)
}
