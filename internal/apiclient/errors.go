package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

var (
	ErrNoRefreshToken = errors.New("no refresh token")
	ErrDecode         = errors.New("failed to decode response")
)

// Error is a non-2xx answer from the API.
type Error struct {
	Status  int
	Message string
	Method  string
	Path    string
	Body    []byte
}

func (e *Error) Error() string {
	return fmt.Sprintf("API error: status=%d, message=%s", e.Status, e.Message)
}

func newError(method, path string, status int, body []byte) *Error {
	return &Error{
		Status:  status,
		Message: messageFromBody(status, body),
		Method:  method,
		Path:    path,
		Body:    body,
	}
}

// messageFromBody prefers the body's "message", then "error", then the raw
// text, then the status text.
func messageFromBody(status int, body []byte) string {
	trimmed := bytes.TrimSpace(body)
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if len(trimmed) > 0 && trimmed[0] == '{' && json.Unmarshal(trimmed, &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	if len(trimmed) > 0 && trimmed[0] != '{' && trimmed[0] != '[' {
		return strings.TrimSpace(string(trimmed))
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return fmt.Sprintf("request failed with status %d", status)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// MessageOf returns the server message for API errors and err.Error() otherwise.
func MessageOf(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

func IsUnauthorized(err error) bool { return StatusOf(err) == http.StatusUnauthorized }
func IsForbidden(err error) bool    { return StatusOf(err) == http.StatusForbidden }
func IsNotFound(err error) bool     { return StatusOf(err) == http.StatusNotFound }
func IsConflict(err error) bool     { return StatusOf(err) == http.StatusConflict }

// IsValidation reports a 4xx other than 401.
func IsValidation(err error) bool {
	s := StatusOf(err)
	return s >= 400 && s < 500 && s != http.StatusUnauthorized
}

func IsServer(err error) bool { return StatusOf(err) >= 500 }

// IsTransport reports a request that never got an HTTP answer.
func IsTransport(err error) bool {
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// IsRetryable reports errors worth retrying for reads: server errors,
// throttling and transport failures. Cancellation never is.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if s := StatusOf(err); s != 0 {
		return s >= 500 || s == http.StatusTooManyRequests
	}
	return IsTransport(err)
}
