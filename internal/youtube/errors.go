// Package youtube provides an HTTP client for the YouTube Data API v3
// with automatic retry, resumable uploads, and error classification.
package youtube

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for API error classification.
// Use errors.Is(err, youtube.ErrQuotaExceeded) to check.
var (
	ErrBadRequest          = errors.New("youtube: bad request")
	ErrUnauthorized        = errors.New("youtube: unauthorized")
	ErrForbidden           = errors.New("youtube: forbidden")
	ErrNotFound            = errors.New("youtube: not found")
	ErrQuotaExceeded       = errors.New("youtube: quota exceeded")
	ErrUploadLimitExceeded = errors.New("youtube: upload limit exceeded")
	ErrRateLimited         = errors.New("youtube: rate limited")
	ErrInvalidMetadata     = errors.New("youtube: invalid metadata")
	ErrServerError         = errors.New("youtube: server error")
)

// Quota exhaustion reason codes returned by the API. The reason string is the
// machine-readable signature — the HTTP status alone is ambiguous (403 covers
// both quota exhaustion and plain permission errors).
const (
	reasonQuotaExceeded       = "quotaExceeded"
	reasonDailyLimitExceeded  = "dailyLimitExceeded"
	reasonUploadLimitExceeded = "uploadLimitExceeded"
	reasonRateLimitExceeded   = "rateLimitExceeded"
)

// Metadata validation reason codes from videos.insert/videos.update.
var metadataReasons = map[string]bool{
	"invalidTitle":         true,
	"invalidDescription":   true,
	"invalidTags":          true,
	"invalidVideoMetadata": true,
	"invalidPrivacyStatus": true,
	"madeForKidsRequired":  true,
}

// APIError wraps a sentinel error with the HTTP status code, the
// machine-readable reason code, and the API error message for debugging.
type APIError struct {
	StatusCode int
	Reason     string
	Message    string
	Err        error // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("youtube: HTTP %d (%s): %s", e.StatusCode, e.Reason, e.Message)
	}

	return fmt.Sprintf("youtube: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// errorResponse is the JSON error envelope returned by Google APIs.
type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason  string `json:"reason"`
			Domain  string `json:"domain"`
			Message string `json:"message"`
		} `json:"errors"`
	} `json:"error"`
}

// newAPIError parses an error response body into an APIError. The body may be
// the Google JSON error envelope or arbitrary text (proxies, HTML error pages).
func newAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: statusCode,
		Message:    string(body),
	}

	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Error.Code != 0 {
		apiErr.Message = er.Error.Message
		if len(er.Error.Errors) > 0 {
			apiErr.Reason = er.Error.Errors[0].Reason
		}
	}

	apiErr.Err = classify(statusCode, apiErr.Reason)

	return apiErr
}

// classify maps a status code and reason code to a sentinel error.
// Reason codes take precedence: a 403 with reason quotaExceeded is a quota
// failure, not a permission failure.
func classify(code int, reason string) error {
	switch reason {
	case reasonQuotaExceeded, reasonDailyLimitExceeded:
		return ErrQuotaExceeded
	case reasonUploadLimitExceeded:
		return ErrUploadLimitExceeded
	case reasonRateLimitExceeded:
		return ErrRateLimited
	}

	if metadataReasons[reason] {
		return ErrInvalidMetadata
	}

	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}

// isRetryable reports whether the given HTTP status code should be retried.
// 403 is never retried: quota exhaustion does not clear within a run.
func isRetryable(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
