package tracker

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrEmptyResponse is returned when a single-resource response carries no data member.
var ErrEmptyResponse = errors.New("empty response document")

// unparsableDetail is reported when a structured error response cannot be decoded.
const unparsableDetail = "an error occurred, but the response is not a valid JSON object"

// APIError describes a non-success response from the Bugcrowd API.
type APIError struct {
	Op         string
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Detail)
}

// IsNotFound reports whether err is an APIError carrying 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsClientError reports whether err is one of the structured client errors
// the comments endpoint returns (400, 404, 409).
func IsClientError(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.StatusCode {
	case http.StatusBadRequest, http.StatusNotFound, http.StatusConflict:
		return true
	}
	return false
}
