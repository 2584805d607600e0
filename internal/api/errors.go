package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/solhart/mediakit-api/internal/pool"
	"github.com/solhart/mediakit-api/internal/resilience"
	"github.com/solhart/mediakit-api/internal/service"
	"github.com/solhart/mediakit-api/internal/store"
	"github.com/solhart/mediakit-api/internal/task"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes. The
// resilience sentinels carry backpressure semantics: a full queue asks the
// client to retry later (429), while an open breaker, exhausted pool, or
// closing queue means the dependency is temporarily unavailable (503).
func MapErrorToStatusCode(err error) int {
	switch {
	case store.IsNotFoundError(err),
		errors.Is(err, task.ErrJobNotFound):
		return http.StatusNotFound

	case store.IsDuplicateError(err):
		return http.StatusConflict

	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, service.ErrKindNotDerivable),
		errors.Is(err, service.ErrNotOriginal),
		errors.Is(err, task.ErrJobNotRetryable):
		return http.StatusBadRequest

	case errors.Is(err, task.ErrQueueFull):
		return http.StatusTooManyRequests

	case errors.Is(err, resilience.ErrBreakerOpen),
		errors.Is(err, pool.ErrPoolExhausted),
		errors.Is(err, task.ErrQueueClosed):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-facing message for the
// error. Internal detail stays in the logs.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, store.ErrAssetNotFound):
		return "Asset not found"

	case errors.Is(err, task.ErrJobNotFound):
		return "Job not found"

	case store.IsNotFoundError(err):
		return "Resource not found"

	case store.IsDuplicateError(err):
		return "Storage key already registered"

	case errors.Is(err, service.ErrKindNotDerivable):
		return "Requested kind cannot be derived"

	case errors.Is(err, service.ErrNotOriginal):
		return "Derived assets can only be created from originals"

	case errors.Is(err, task.ErrJobNotRetryable):
		return "Only failed jobs can be retried"

	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid asset data"

	case errors.Is(err, task.ErrQueueFull):
		return "Processing queue is full, try again later"

	case errors.Is(err, resilience.ErrBreakerOpen):
		return "A backing service is temporarily unavailable"

	case errors.Is(err, pool.ErrPoolExhausted):
		return "Service is at capacity, try again later"

	case errors.Is(err, task.ErrQueueClosed):
		return "Service is shutting down"

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError turns a validator error into a user-friendly
// message without leaking struct internals.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	if strings.Contains(errMsg, "Field validation") {
		// Example: "Key: 'CreateAssetRequest.StorageKey' Error:Field
		// validation for 'StorageKey' failed on the 'required' tag"
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}
				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly messages.
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "gte", "min":
		return "value too small"
	case "max":
		return "value too large"
	case "oneof":
		return "invalid value"
	case "uuid":
		return "must be a valid UUID"
	default:
		return "validation failed"
	}
}
