package domain

import (
	"errors"
	"net/http"
)

// Error codes for request-level errors.
const (
	CodeNotFound   = 1
	CodeValidation = 3
	CodeInternal   = 4
)

// AppError represents a request-level error with a code, message, and optional wrapped error.
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the wrapped error for use with errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Predefined errors. Match them with the Is* helpers rather than errors.Is,
// which compares sentinel pointers only.
var (
	ErrNotFound   = &AppError{Code: CodeNotFound, Message: "not found"}
	ErrValidation = &AppError{Code: CodeValidation, Message: "validation error"}
	ErrInternal   = &AppError{Code: CodeInternal, Message: "internal error"}
)

// NewAppError creates a new AppError with the given code, message, and wrapped error.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsNotFound reports whether err is or wraps an AppError with CodeNotFound.
func IsNotFound(err error) bool {
	return hasCode(err, CodeNotFound)
}

// IsValidation reports whether err is or wraps an AppError with CodeValidation.
func IsValidation(err error) bool {
	return hasCode(err, CodeValidation)
}

// IsInternal reports whether err is or wraps an AppError with CodeInternal.
func IsInternal(err error) bool {
	return hasCode(err, CodeInternal)
}

func hasCode(err error, code int) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// TransportError is returned by every upstream call that fails, either on the
// network or with a non-2xx status. Message is shown to users verbatim.
type TransportError struct {
	Op         string
	StatusCode int // 0 for network failures
	Message    string
	Err        error
}

// Error returns the user-facing message.
func (e *TransportError) Error() string {
	return e.Message
}

// Unwrap returns the underlying network error, if any.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is or wraps a *TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// HTTPStatusCode maps an error to an HTTP status code.
// Transport failures map to 502; unknown errors map to 500.
func HTTPStatusCode(err error) int {
	if err == nil {
		return http.StatusInternalServerError
	}
	if IsTransport(err) {
		return http.StatusBadGateway
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case CodeNotFound:
			return http.StatusNotFound
		case CodeValidation:
			return http.StatusBadRequest
		case CodeInternal:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}

// PublicMessage returns the message that may be shown to end users for err.
func PublicMessage(err error) string {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Message
	}
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != CodeInternal {
		return appErr.Message
	}
	return "internal error"
}
