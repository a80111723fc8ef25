// Package errors provides centralized error definitions for the application.
// Errors are organized by concern to avoid duplication and provide consistent naming.
//
// Naming conventions:
//   - Exported errors (Err*): Use for errors that callers need to check with errors.Is
//   - Unexported errors (err*): Use for internal package errors
//   - All sentinel errors should be defined as variables, not inline errors.New calls
//   - Use fmt.Errorf with %w to wrap sentinel errors with context
package errors

import "errors"

// Evaluation run errors.
var (
	// ErrDatasetUnavailable indicates there are no items to evaluate. It aborts a run.
	ErrDatasetUnavailable = errors.New("dataset unavailable")

	// ErrPredictionFailed indicates the tagging service produced no usable prediction for an item.
	ErrPredictionFailed = errors.New("prediction failed")

	// ErrThresholdNotMet indicates a metric fell below its configured quality gate.
	ErrThresholdNotMet = errors.New("threshold not met")
)

// Tag vocabulary errors.
var (
	// ErrEmptyCatalog indicates no tags are available to prompt with.
	ErrEmptyCatalog = errors.New("no available tags")

	// ErrTagNotAllowed indicates a predicted tag is outside the vocabulary.
	ErrTagNotAllowed = errors.New("tag not in available tags")
)

// Response and parsing errors.
var (
	// ErrEmptyResponse indicates an empty response was received.
	ErrEmptyResponse = errors.New("empty response")

	// ErrInvalidResponse indicates the response could not be decoded.
	ErrInvalidResponse = errors.New("invalid response")

	// ErrNoPrimaryTag indicates the response did not contain a first tag.
	ErrNoPrimaryTag = errors.New("no valid tag1 found in response")
)

// Validation errors.
var (
	// ErrInvalidInput indicates invalid input was provided.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSensitiveContent indicates the item contains sensitive content and must not be sent to a model.
	ErrSensitiveContent = errors.New("sensitive content")
)

// Client and throttling errors.
var (
	// ErrCircuitBreakerOpen indicates the circuit breaker has tripped and requests are blocked.
	ErrCircuitBreakerOpen = errors.New("circuit breaker is open")

	// ErrRateLimited indicates rate limiting was triggered.
	ErrRateLimited = errors.New("rate limited")
)

// Is is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is a convenience wrapper around errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
