// Package graph provides an HTTP client for the Microsoft Graph API with
// automatic retry, error classification, and a decoder that exposes every
// response as an immutable Response value.
package graph

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for HTTP status code classification.
// Use errors.Is(err, graph.ErrNotFound) to check.
var (
	ErrBadRequest   = errors.New("graph: bad request")
	ErrUnauthorized = errors.New("graph: unauthorized")
	ErrForbidden    = errors.New("graph: forbidden")
	ErrNotFound     = errors.New("graph: not found")
	ErrGone         = errors.New("graph: resource gone")
	ErrThrottled    = errors.New("graph: throttled")
	ErrServerError  = errors.New("graph: server error")

	// ErrNoAccessToken is returned by StaticToken when the account has never
	// been granted a token.
	ErrNoAccessToken = errors.New("graph: no access token")
)

// GraphError is a non-2xx Graph response. Code and Message come from the
// body's error object when it has one; otherwise Message is the raw body.
type GraphError struct {
	StatusCode int
	RequestID  string
	Code       string
	Message    string
	Response   *Response // decoded error body; never nil when built by Client
	Err        error     // sentinel, for errors.Is()
}

func (e *GraphError) Error() string {
	status := fmt.Sprintf("HTTP %d", e.StatusCode)
	if e.Code != "" {
		status += " " + e.Code
	}

	if e.RequestID != "" {
		return fmt.Sprintf("graph: %s (request-id: %s): %s", status, e.RequestID, e.Message)
	}

	return fmt.Sprintf("graph: %s: %s", status, e.Message)
}

// newGraphError builds the error for a failed response from its body.
func newGraphError(resp *Response) *GraphError {
	ge := &GraphError{
		StatusCode: resp.Status(),
		RequestID:  resp.Headers().Get("request-id"),
		Message:    resp.RawBody(),
		Response:   resp,
		Err:        classifyStatus(resp.Status()),
	}

	if eo := resp.ErrorObject(); eo != nil {
		ge.Code = eo.Code

		if eo.Message != "" {
			ge.Message = eo.Message
		}
	}

	return ge
}

func (e *GraphError) Unwrap() error {
	return e.Err
}

// ErrorBody is the error object embedded in a failed Graph or OAuth response.
// Graph nests {"code","message"} under "error"; the OAuth endpoints use a
// bare string plus "error_description".
type ErrorBody struct {
	Code    string
	Message string
	Raw     map[string]any // the embedded object; nil for the OAuth string form
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for 2xx success codes.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusGone:
		return ErrGone
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}

// isRetryable reports whether the given HTTP status code should be retried.
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
		// 509 Bandwidth Limit Exceeded (SharePoint).
		const statusBandwidthExceeded = 509
		return code == statusBandwidthExceeded
	}
}
