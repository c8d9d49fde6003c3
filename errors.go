package apisharp

import (
	"errors"
	"fmt"
)

var (
	ErrTimeout    = errors.New("timeout")
	ErrNetwork    = errors.New("network error")
	ErrValidation = errors.New("response validation failed")

	ErrEmptyURL      = errors.New("api url is empty")
	ErrInvalidMethod = errors.New("invalid http method")
)

// ErrorKind classifies a failed request
type ErrorKind string

const (
	KindNetwork    ErrorKind = "network"
	KindTimeout    ErrorKind = "timeout"
	KindValidation ErrorKind = "validation"
)

func (k ErrorKind) sentinel() error {
	switch k {
	case KindTimeout:
		return ErrTimeout
	case KindValidation:
		return ErrValidation
	default:
		return ErrNetwork
	}
}

// RequestError is returned by Request once retries are exhausted.
// Response is set when the failure came from ValidateResponse.
type RequestError struct {
	Kind     ErrorKind
	API      *ProcessedAPI
	Response *Response
	Err      error
}

// Error returns the cause's message. Validation failures carry the validator's message as is.
func (e *RequestError) Error() string {
	if e.Kind == KindValidation {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

// Unwrap exposes both the kind sentinel and the underlying cause
func (e *RequestError) Unwrap() []error {
	return []error{e.Kind.sentinel(), e.Err}
}

// statusError is what DefaultValidateResponse reports for a non-2xx response
type statusError struct {
	text   string
	status int
}

func (e *statusError) Error() string {
	return e.text
}

// StatusCode returns the HTTP status that failed validation
func (e *statusError) StatusCode() int {
	return e.status
}
