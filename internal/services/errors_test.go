package services

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCodeAndKind(t *testing.T) {
	tests := []struct {
		err    error
		status int
		kind   string
	}{
		{nil, http.StatusOK, "ok"},
		{fmt.Errorf("%w: 60 files", ErrBatchTooLarge), http.StatusBadRequest, "batch_too_large"},
		{ErrNoValidItems, http.StatusBadRequest, "no_valid_items"},
		{ErrUpstreamTimeout, http.StatusInternalServerError, "upstream_timeout"},
		{ErrUpstreamRateLimited, http.StatusInternalServerError, "upstream_rate_limited"},
		{ErrEmptyResponse, http.StatusInternalServerError, "empty_response"},
		{&MalformedResponseError{Raw: "x", Reason: "bad"}, http.StatusInternalServerError, "malformed_response"},
		{ErrInternalInvariantViolation, http.StatusInternalServerError, "invariant_violation"},
		{errors.New("boom"), http.StatusInternalServerError, "upstream_error"},
	}

	for _, tt := range tests {
		t.Run(ErrorKind(tt.err), func(t *testing.T) {
			assert.Equal(t, tt.status, StatusCode(tt.err))
			assert.Equal(t, tt.kind, ErrorKind(tt.err))
		})
	}
}

func TestRawResponseOnlyForMalformed(t *testing.T) {
	wrapped := fmt.Errorf("batch failed: %w", &MalformedResponseError{Raw: "<html>", Reason: "HTML"})

	assert.Equal(t, "<html>", RawResponse(wrapped))
	assert.Empty(t, RawResponse(ErrUpstreamTimeout))
	assert.ErrorIs(t, wrapped, ErrMalformedUpstreamResponse)
	assert.Equal(t, "batch failed: malformed upstream response: HTML", wrapped.Error())
}
