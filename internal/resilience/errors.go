// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"unicode/utf8"
)

// ErrorType represents different types of errors for handling strategies
type ErrorType int

const (
	ErrorTypeUnknown      ErrorType = iota
	ErrorTypeInvalidInput           // Bad user input, shown as-is
	ErrorTypePermanent              // Local failure that will not go away on retry
	ErrorTypeCanceled               // Caller gave up
	ErrorTypeTransient              // Connection dropped or refused
	ErrorTypeTimeout                // No answer in time
	ErrorTypeRateLimit              // Model API answered 429
	ErrorTypeUnavailable            // Model API answered 5xx or its breaker is open
	ErrorTypeAuth                   // Model API refused the key
	ErrorTypeUpstream               // Model API rejected the request or sent an unusable reply
)

func (et ErrorType) String() string {
	switch et {
	case ErrorTypeUnknown:
		return "unknown"
	case ErrorTypeInvalidInput:
		return "invalid_input"
	case ErrorTypePermanent:
		return "permanent"
	case ErrorTypeCanceled:
		return "canceled"
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypeTimeout:
		return "timeout"
	case ErrorTypeRateLimit:
		return "rate_limit"
	case ErrorTypeUnavailable:
		return "unavailable"
	case ErrorTypeAuth:
		return "auth"
	case ErrorTypeUpstream:
		return "upstream"
	default:
		return fmt.Sprintf("ErrorType(%d)", int(et))
	}
}

// Remote reports whether the error originated at the model API rather than
// with the caller or this process.
func (et ErrorType) Remote() bool {
	switch et {
	case ErrorTypeTransient, ErrorTypeTimeout, ErrorTypeRateLimit,
		ErrorTypeUnavailable, ErrorTypeAuth, ErrorTypeUpstream:
		return true
	}
	return false
}

// ClassifiedError wraps an error with type information. Status is the HTTP
// status the model API answered with, or 0 when there was no response.
type ClassifiedError struct {
	Original  error
	Type      ErrorType
	Message   string
	Status    int
	Retryable bool
}

func (e *ClassifiedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Original == nil {
		return e.Type.String()
	}
	return e.Original.Error()
}

func (e *ClassifiedError) Unwrap() error {
	return e.Original
}

// IsRetryable returns whether this error should be retried
func (e *ClassifiedError) IsRetryable() bool {
	return e.Retryable
}

// ClassifyError categorizes an error for appropriate handling. Errors that are
// already classified keep their classification; otherwise the error chain is
// inspected for context, network and breaker errors.
func ClassifyError(err error) *ClassifiedError {
	if err == nil {
		return nil
	}

	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified
	}

	var cbErr *CircuitBreakerError
	switch {
	case errors.As(err, &cbErr):
		return &ClassifiedError{Original: err, Type: ErrorTypeUnavailable, Message: err.Error()}
	case errors.Is(err, context.Canceled):
		return &ClassifiedError{Original: err, Type: ErrorTypeCanceled, Message: fmt.Sprintf("Request canceled: %v", err)}
	case isTimeout(err):
		return &ClassifiedError{Original: err, Type: ErrorTypeTimeout, Message: fmt.Sprintf("Timeout error: %v", err), Retryable: true}
	case isNetworkError(err):
		return &ClassifiedError{Original: err, Type: ErrorTypeTransient, Message: fmt.Sprintf("Network error: %v", err), Retryable: true}
	}

	return &ClassifiedError{
		Original: err,
		Type:     ErrorTypeUnknown,
		Message:  err.Error(),
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// isNetworkError matches transport failures. http.Client reports every one
// of them as a *url.Error.
func isNetworkError(err error) bool {
	var urlErr *url.Error
	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &urlErr) || errors.As(err, &opErr) || errors.As(err, &dnsErr) {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH)
}

// NewTransientError creates a new transient error
func NewTransientError(message string, cause error) *ClassifiedError {
	return &ClassifiedError{
		Original:  cause,
		Type:      ErrorTypeTransient,
		Message:   message,
		Retryable: true,
	}
}

// NewPermanentError creates a new permanent error
func NewPermanentError(message string, cause error) *ClassifiedError {
	return &ClassifiedError{
		Original:  cause,
		Type:      ErrorTypePermanent,
		Message:   message,
		Retryable: false,
	}
}

// NewUpstreamError is for model API replies that arrived but cannot be used
func NewUpstreamError(message string, cause error) *ClassifiedError {
	return &ClassifiedError{
		Original: cause,
		Type:     ErrorTypeUpstream,
		Message:  message,
	}
}

// NewInvalidInputError creates an error for bad user input. The message is
// shown to the user as-is.
func NewInvalidInputError(format string, args ...interface{}) *ClassifiedError {
	msg := fmt.Sprintf(format, args...)
	return &ClassifiedError{
		Original:  errors.New(msg),
		Type:      ErrorTypeInvalidInput,
		Message:   msg,
		Retryable: false,
	}
}

// IsInvalidInput reports whether err (or anything it wraps) is an input error
func IsInvalidInput(err error) bool {
	var classified *ClassifiedError
	return errors.As(err, &classified) && classified.Type == ErrorTypeInvalidInput
}

const maxDetail = 300

// ClassifyHTTPStatus turns a non-2xx response from the model API into a
// classified error. The detail comes from an OpenAI-style error body when
// there is one, otherwise from the raw body.
func ClassifyHTTPStatus(status int, body string) *ClassifiedError {
	detail := truncate(errorDetail(body), maxDetail)
	cause := fmt.Errorf("HTTP %d: %s", status, detail)

	e := &ClassifiedError{Original: cause, Status: status}
	switch {
	case status == http.StatusTooManyRequests:
		e.Type, e.Retryable = ErrorTypeRateLimit, true
		e.Message = fmt.Sprintf("Model API rate limit exceeded: %v", cause)
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		e.Type, e.Retryable = ErrorTypeTimeout, true
		e.Message = fmt.Sprintf("Model API timed out: %v", cause)
	case status >= 500:
		e.Type, e.Retryable = ErrorTypeUnavailable, true
		e.Message = fmt.Sprintf("Model API unavailable: %v", cause)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Type = ErrorTypeAuth
		e.Message = fmt.Sprintf("Model API refused the API key: %v", cause)
	default:
		e.Type = ErrorTypeUpstream
		e.Message = fmt.Sprintf("Model API rejected the request: %v", cause)
	}
	return e
}

// errorDetail pulls the message out of {"error":{"message":...}},
// {"error":"..."} or {"message":"..."} bodies.
func errorDetail(body string) string {
	body = strings.TrimSpace(body)
	var parsed struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if json.Unmarshal([]byte(body), &parsed) != nil {
		return body
	}
	var nested struct {
		Message string `json:"message"`
	}
	var flat string
	switch {
	case json.Unmarshal(parsed.Error, &nested) == nil && nested.Message != "":
		return nested.Message
	case json.Unmarshal(parsed.Error, &flat) == nil && flat != "":
		return flat
	case parsed.Message != "":
		return parsed.Message
	}
	return body
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

// HTTPStatus maps an error onto the status code the web layer should answer
// with. Failures of the model API become 502 whatever status it answered.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	classified := ClassifyError(err)
	switch {
	case classified.Type == ErrorTypeInvalidInput:
		return http.StatusBadRequest
	case classified.Type.Remote():
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
