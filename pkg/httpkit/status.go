package httpkit

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrDecode marks a response body that could not be decoded
var ErrDecode = errors.New("decode response")

// maxErrorBody caps how much of a failed response is kept for diagnostics
const maxErrorBody = 512

// StatusError is returned by clients when the server answers with a non-2xx status
type StatusError struct {
	Code int
	URL  string
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d from %s", e.Code, e.URL)
	}
	return fmt.Sprintf("unexpected status %d from %s: %s", e.Code, e.URL, e.Body)
}

// NewStatusError builds a StatusError from resp, reading a bounded part of its body
func NewStatusError(resp *http.Response) *StatusError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	statusErr := &StatusError{
		Code: resp.StatusCode,
		Body: string(body),
	}
	if resp.Request != nil && resp.Request.URL != nil {
		// query strings may carry api keys
		u := *resp.Request.URL
		u.RawQuery = ""
		statusErr.URL = u.Redacted()
	}
	return statusErr
}

// StatusCode returns the HTTP status carried by err, or 0 when there is none
func StatusCode(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code
	}
	return 0
}

// HasStatus reports whether err carries the given HTTP status
func HasStatus(err error, code int) bool {
	return StatusCode(err) == code
}

// IsSuccess reports whether code is in the 2xx range
func IsSuccess(code int) bool {
	return code >= http.StatusOK && code < http.StatusMultipleChoices
}
