package services

import (
	"errors"
	"fmt"
	"net/http"

	"photo-grouper/internal/llm"
)

var (
	ErrUpstreamTimeout            = errors.New("upstream model timed out")
	ErrUpstreamRateLimited        = errors.New("upstream model rate limited")
	ErrUpstreamError              = errors.New("upstream model error")
	ErrEmptyResponse              = errors.New("upstream model returned an empty response")
	ErrMalformedUpstreamResponse  = errors.New("malformed upstream response")
	ErrBatchTooLarge              = errors.New("batch too large")
	ErrNoValidItems               = errors.New("no valid images in batch")
	ErrInternalInvariantViolation = errors.New("internal invariant violation")
)

// MalformedResponseError keeps the model text that could not be turned into
// a JSON array so it can be surfaced for diagnostics.
type MalformedResponseError struct {
	Raw    string
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMalformedUpstreamResponse, e.Reason)
}

func (e *MalformedResponseError) Is(target error) bool {
	return target == ErrMalformedUpstreamResponse
}

// StatusCode maps the error taxonomy onto the HTTP status returned to clients.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrBatchTooLarge), errors.Is(err, ErrNoValidItems):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// RawResponse returns the upstream text attached to err, if any.
func RawResponse(err error) string {
	var malformed *MalformedResponseError
	if errors.As(err, &malformed) {
		return malformed.Raw
	}
	return ""
}

// ErrorKind is a short label for logs and metrics.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrBatchTooLarge):
		return "batch_too_large"
	case errors.Is(err, ErrNoValidItems):
		return "no_valid_items"
	case errors.Is(err, ErrUpstreamTimeout):
		return "upstream_timeout"
	case errors.Is(err, ErrUpstreamRateLimited):
		return "upstream_rate_limited"
	case errors.Is(err, ErrEmptyResponse):
		return "empty_response"
	case errors.Is(err, ErrMalformedUpstreamResponse):
		return "malformed_response"
	case errors.Is(err, ErrInternalInvariantViolation):
		return "invariant_violation"
	default:
		return "upstream_error"
	}
}

func upstreamError(err error) error {
	switch {
	case errors.Is(err, llm.ErrTimeout):
		return fmt.Errorf("%w: %w", ErrUpstreamTimeout, err)
	case errors.Is(err, llm.ErrRateLimited):
		return fmt.Errorf("%w: %w", ErrUpstreamRateLimited, err)
	case errors.Is(err, llm.ErrEmpty):
		return fmt.Errorf("%w: %w", ErrEmptyResponse, err)
	default:
		return fmt.Errorf("%w: %w", ErrUpstreamError, err)
	}
}
