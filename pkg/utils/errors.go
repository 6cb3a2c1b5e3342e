package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// CustomError is the error body returned by the HTTP API
type CustomError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

func (e *CustomError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Detail)
	}
	return e.Message
}

func NewBadRequestError(message string) *CustomError {
	return &CustomError{Code: http.StatusBadRequest, Message: message}
}

func NewNotFoundError(message string) *CustomError {
	return &CustomError{Code: http.StatusNotFound, Message: message}
}

func NewUnauthorizedError(message string) *CustomError {
	return &CustomError{Code: http.StatusUnauthorized, Message: message}
}

func NewInternalServerError(message string) *CustomError {
	return &CustomError{Code: http.StatusInternalServerError, Message: message}
}

func NewTimeoutError(message string) *CustomError {
	return &CustomError{Code: http.StatusRequestTimeout, Message: message}
}

// ErrEmptyResult marks an extraction that succeeded structurally but produced
// zero records, usually a layout change or a blocked page.
var ErrEmptyResult = errors.New("extraction produced no records")

// FetchError is a plain HTTP retrieval failure: network error, timeout or a
// non-2xx status. StatusCode is zero when no response arrived.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// SessionError is a headless browser failure: launch, crash or navigation
type SessionError struct {
	Op  string
	Err error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("browser session %s: %v", e.Op, e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }

// ParseError means the input could not be read as markup at all
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("parse html: %v", e.Err)
	}
	return fmt.Sprintf("parse html for %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ErrorKind names the error class for logs and API responses
func ErrorKind(err error) string {
	var fetchErr *FetchError
	var sessionErr *SessionError
	var parseErr *ParseError

	switch {
	case err == nil:
		return ""
	case errors.As(err, &fetchErr):
		return "fetch"
	case errors.As(err, &sessionErr):
		return "session"
	case errors.As(err, &parseErr):
		return "parse"
	case errors.Is(err, ErrEmptyResult):
		return "empty"
	default:
		return "unknown"
	}
}
