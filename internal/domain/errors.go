package domain

import (
	"errors"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
// Implementing this interface enables extensible error handling (OCP compliance).
type HTTPError interface {
	error
	StatusCode() int
}

// Domain error types implementing HTTPError interface
type (
	// NotFoundError indicates a resource was not found
	NotFoundError struct {
		Message string
	}

	// ValidationError indicates invalid input
	ValidationError struct {
		Message string
	}
)

func (e *NotFoundError) Error() string   { return e.Message }
func (e *ValidationError) Error() string { return e.Message }

func (e *NotFoundError) StatusCode() int   { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int { return http.StatusBadRequest }

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation failed")
	ErrSessionFinished = errors.New("session already finished")
)

func (e *NotFoundError) Is(target error) bool   { return target == ErrNotFound }
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ModelError wraps any failure surfaced by a model client invocation:
// transport errors, non-2xx statuses, and empty bodies. Transient marks
// the error as retryable (network resets, timeouts, 429/5xx).
type ModelError struct {
	Provider   string
	StatusCode int // 0 when the failure happened below HTTP
	Message    string
	Transient  bool
	Err        error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return "model call failed (" + e.Provider + "): " + e.Message + ": " + e.Err.Error()
	}
	return "model call failed (" + e.Provider + "): " + e.Message
}

func (e *ModelError) Unwrap() error { return e.Err }

// IsTransientModelError reports whether err is a model error worth retrying.
func IsTransientModelError(err error) bool {
	var me *ModelError
	return errors.As(err, &me) && me.Transient
}

// JudgeParseError indicates the judge persona's response did not satisfy
// the JSON contract. It never escapes the consensus detector: the detector
// absorbs it into a degraded-confidence fallback verdict.
type JudgeParseError struct {
	Raw string
	Err error
}

func (e *JudgeParseError) Error() string {
	if e.Err != nil {
		return "judge response violates contract: " + e.Err.Error()
	}
	return "judge response violates contract"
}

func (e *JudgeParseError) Unwrap() error { return e.Err }
