package moltbook

import (
	"errors"
	"fmt"
)

// AuthError means the token exchange was rejected or could not be attempted
type AuthError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("moltbook auth failed: %v", e.Err)
	}
	return fmt.Sprintf("moltbook auth rejected (HTTP %d): %s", e.StatusCode, truncate(e.Body, 200))
}

func (e *AuthError) Unwrap() error { return e.Err }

// APIError is a non-2xx response from an authenticated endpoint
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("moltbook %s %s returned HTTP %d: %s", e.Method, e.Path, e.StatusCode, truncate(e.Body, 200))
}

// TransportError wraps failures below HTTP: DNS, connection, timeout, decoding
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("moltbook %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusCode extracts the HTTP status from an API or auth error, or 0
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.StatusCode
	}
	return 0
}

// ResponseBody extracts the response body from an API or auth error
func ResponseBody(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Body
	}
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Body
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
