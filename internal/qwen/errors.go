package qwen

import (
	"errors"
	"fmt"
)

// ErrEmptyResponse is returned when a well-formed envelope carries no choices.
var ErrEmptyResponse = errors.New("no completion choices in response")

// ConfigurationError means the endpoint, credential or model could not be
// resolved. It is returned before any network I/O.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s %s", e.Field, e.Reason)
}

// TransportError means no complete response was obtained.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPError is a response with a status other than 200. Body holds the raw
// response text for diagnostics.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Body)
}

// DecodingError means a 200 response did not match the completion envelope.
type DecodingError struct {
	Err error
}

func (e *DecodingError) Error() string {
	return fmt.Sprintf("decode response: %v", e.Err)
}

func (e *DecodingError) Unwrap() error { return e.Err }
