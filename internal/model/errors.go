package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidURL is returned when a board URL cannot be parsed or has no host.
var ErrInvalidURL = errors.New("invalid URL")

// HTTPError wraps a non-2xx status code so retry logic can inspect it.
type HTTPError struct {
	StatusCode int
	RetryAfter time.Duration // from Retry-After header, zero if absent
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// InvalidResponseError marks a response that was not usable at all:
// wrong content type, empty body where one was required, and similar.
type InvalidResponseError struct {
	Detail string
}

func (e *InvalidResponseError) Error() string {
	return "invalid response: " + e.Detail
}

// DecodeError wraps a failure to decode an upstream payload.
type DecodeError struct {
	Source Source
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s decode: %v", e.Source, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// APIError is an error payload reported by an upstream API over a
// successful HTTP exchange.
type APIError struct {
	Source  Source
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error: %s", e.Source, e.Message)
}

// NotImplementedError is returned when a board names a source the engine
// has no fetcher for.
type NotImplementedError struct {
	Source Source
}

func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("no fetcher implemented for source %q", e.Source)
}
