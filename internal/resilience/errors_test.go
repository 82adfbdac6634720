// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestNewInvalidInputError(t *testing.T) {
	err := NewInvalidInputError("page %d is out of range", 7)

	assert.Equal(t, "page 7 is out of range", err.Error())
	assert.Equal(t, ErrorTypeInvalidInput, err.Type)
	assert.False(t, err.IsRetryable())
	assert.True(t, IsInvalidInput(err))
	assert.True(t, IsInvalidInput(fmt.Errorf("split: %w", err)))
	assert.False(t, IsInvalidInput(errors.New("plain")))
}

func TestClassifyHTTPStatus(t *testing.T) {
	tests := []struct {
		status    int
		wantType  ErrorType
		retryable bool
	}{
		{http.StatusTooManyRequests, ErrorTypeRateLimit, true},
		{http.StatusInternalServerError, ErrorTypeUnavailable, true},
		{http.StatusServiceUnavailable, ErrorTypeUnavailable, true},
		{http.StatusGatewayTimeout, ErrorTypeTimeout, true},
		{http.StatusUnauthorized, ErrorTypeAuth, false},
		{http.StatusForbidden, ErrorTypeAuth, false},
		{http.StatusNotFound, ErrorTypeUpstream, false},
		{http.StatusBadRequest, ErrorTypeUpstream, false},
		{http.StatusUnprocessableEntity, ErrorTypeUpstream, false},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := ClassifyHTTPStatus(tt.status, `{"error":"x"}`)
			assert.Equal(t, tt.wantType, err.Type)
			assert.Equal(t, tt.retryable, err.IsRetryable())
			assert.Equal(t, tt.status, err.Status)
			assert.Contains(t, err.Error(), fmt.Sprintf("HTTP %d", tt.status))
		})
	}
}

func TestClassifyHTTPStatus_ErrorBodies(t *testing.T) {
	tests := map[string]struct {
		body string
		want string
	}{
		"openai object": {`{"error":{"message":"model not found","type":"invalid_request_error"}}`, "HTTP 404: model not found"},
		"flat string":   {`{"error":"no such model"}`, "HTTP 404: no such model"},
		"message field": {`{"message":"unknown model"}`, "HTTP 404: unknown model"},
		"plain text":    {"  404 page not found\n", "HTTP 404: 404 page not found"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := ClassifyHTTPStatus(http.StatusNotFound, tt.body)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestClassifyHTTPStatus_TruncatesBody(t *testing.T) {
	err := ClassifyHTTPStatus(500, strings.Repeat("é", 1000))
	assert.Less(t, utf8.RuneCountInString(err.Error()), 400)
	assert.True(t, utf8.ValidString(err.Error()))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusOK, HTTPStatus(nil))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(NewInvalidInputError("bad")))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(fmt.Errorf("wrapped: %w", NewInvalidInputError("bad"))))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(NewPermanentError("no", nil)))
	assert.Equal(t, http.StatusBadGateway, HTTPStatus(NewUpstreamError("no choices", nil)))
	assert.Equal(t, http.StatusBadGateway, HTTPStatus(&CircuitBreakerError{Name: "chat", Message: "open"}))
}

func TestHTTPStatus_ModelAPIStatusNeverReachesClient(t *testing.T) {
	for _, status := range []int{400, 401, 403, 404, 408, 422, 429, 500, 503, 504} {
		err := fmt.Errorf("summarize: %w", ClassifyHTTPStatus(status, ""))
		assert.Equal(t, http.StatusBadGateway, HTTPStatus(err), "model API answered %d", status)
	}
}

func TestClassifyError(t *testing.T) {
	assert.Nil(t, ClassifyError(nil))

	inner := NewTransientError("temp", nil)
	assert.Same(t, inner, ClassifyError(fmt.Errorf("outer: %w", inner)))

	tests := map[string]struct {
		err       error
		want      ErrorType
		retryable bool
	}{
		"deadline":      {fmt.Errorf("post: %w", context.DeadlineExceeded), ErrorTypeTimeout, true},
		"canceled":      {fmt.Errorf("post: %w", context.Canceled), ErrorTypeCanceled, false},
		"refused":       {&url.Error{Op: "Post", URL: "http://127.0.0.1:1", Err: &net.OpError{Op: "dial", Err: errors.New("connection refused")}}, ErrorTypeTransient, true},
		"dns":           {&net.DNSError{Err: "no such host", Name: "api.invalid"}, ErrorTypeTransient, true},
		"breaker":       {&CircuitBreakerError{Message: "open"}, ErrorTypeUnavailable, false},
		"wording alone": {errors.New("Too Many Requests: rate limit"), ErrorTypeUnknown, false},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got := ClassifyError(tt.err)
			assert.Equal(t, tt.want, got.Type)
			assert.Equal(t, tt.retryable, got.IsRetryable())
		})
	}
}

func TestErrorType_String(t *testing.T) {
	assert.Equal(t, "rate_limit", ErrorTypeRateLimit.String())
	assert.Equal(t, "invalid_input", ErrorTypeInvalidInput.String())
	assert.Equal(t, "ErrorType(99)", ErrorType(99).String())
}
