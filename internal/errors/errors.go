package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrorTypeIO             ErrorType = "IO"
	ErrorTypeObjectNotFound ErrorType = "OBJECT_NOT_FOUND"
	ErrorTypeEncoding       ErrorType = "ENCODING"
	ErrorTypeTypeMismatch   ErrorType = "TYPE_MISMATCH"
	ErrorTypeRefNotFound    ErrorType = "REF_NOT_FOUND"
	ErrorTypePathNotFound   ErrorType = "PATH_NOT_FOUND"
	ErrorTypeValidation     ErrorType = "VALIDATION"
)

// Sentinels for errors.Is. They match any *Error of the same type.
var (
	ErrIO             = &Error{Type: ErrorTypeIO}
	ErrObjectNotFound = &Error{Type: ErrorTypeObjectNotFound}
	ErrEncoding       = &Error{Type: ErrorTypeEncoding}
	ErrTypeMismatch   = &Error{Type: ErrorTypeTypeMismatch}
	ErrRefNotFound    = &Error{Type: ErrorTypeRefNotFound}
	ErrPathNotFound   = &Error{Type: ErrorTypePathNotFound}
	ErrValidation     = &Error{Type: ErrorTypeValidation}
)

type Error struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Code    int       `json:"code"`
	Details any       `json:"details,omitempty"`
	Err     error     `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a sentinel of the same type.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Message != "" {
		return false
	}
	return t.Type == e.Type
}

// IO wraps a backend failure for the given operation and path.
func IO(op, path string, err error) *Error {
	return &Error{
		Type:    ErrorTypeIO,
		Message: fmt.Sprintf("%s %s", op, path),
		Code:    http.StatusInternalServerError,
		Err:     err,
	}
}

func ObjectNotFound(hash string) *Error {
	return &Error{
		Type:    ErrorTypeObjectNotFound,
		Message: fmt.Sprintf("object not found: %s", hash),
		Code:    http.StatusNotFound,
	}
}

func Encoding(subject string, format string, args ...any) *Error {
	return &Error{
		Type:    ErrorTypeEncoding,
		Message: fmt.Sprintf("malformed %s: %s", subject, fmt.Sprintf(format, args...)),
		Code:    http.StatusUnprocessableEntity,
	}
}

func TypeMismatch(hash, want, got string) *Error {
	return &Error{
		Type:    ErrorTypeTypeMismatch,
		Message: fmt.Sprintf("object %s: type mismatch: got %q, want %q", hash, got, want),
		Code:    http.StatusUnprocessableEntity,
		Details: map[string]string{"want": want, "got": got},
	}
}

func RefNotFound(name string) *Error {
	return &Error{
		Type:    ErrorTypeRefNotFound,
		Message: fmt.Sprintf("ref not found: %s", name),
		Code:    http.StatusNotFound,
	}
}

func PathNotFound(commit, path string) *Error {
	return &Error{
		Type:    ErrorTypePathNotFound,
		Message: fmt.Sprintf("path %q not found in commit %s", path, commit),
		Code:    http.StatusNotFound,
	}
}

func ValidationError(message string, details any) *Error {
	return &Error{
		Type:    ErrorTypeValidation,
		Message: message,
		Code:    http.StatusBadRequest,
		Details: details,
	}
}

// TypeOf returns the type of the first *Error in err's chain, or "" if none.
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ""
}

// StatusCode maps err to an HTTP status, defaulting to 500.
func StatusCode(err error) int {
	var e *Error
	if stderrors.As(err, &e) && e.Code != 0 {
		return e.Code
	}
	return http.StatusInternalServerError
}
