package commerce

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

var (
	ErrMissingTransactionID = errors.New("response carries no transaction id")
	ErrMissingImageURL      = errors.New("response carries no image url")
	ErrMissingToken         = errors.New("response carries no token")
)

// APIError is a non-2xx answer from the remote API. Message is taken from the
// response body when the API provided one.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("commerce api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("commerce api: status %d: %s", e.StatusCode, e.Message)
}

func newAPIError(statusCode int, body []byte) *APIError {
	e := &APIError{StatusCode: statusCode}
	if !gjson.ValidBytes(body) {
		return e
	}

	e.Status = gjson.GetBytes(body, "status").String()
	for _, path := range []string{"message", "errors.0.message", "error.message", "error"} {
		if v := gjson.GetBytes(body, path); v.Type == gjson.String && v.Str != "" {
			e.Message = v.Str
			break
		}
	}
	return e
}

// Message returns the API-provided message carried by err, or "".
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}

// IsClientError reports a 4xx answer that retrying unchanged would not fix.
func IsClientError(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.StatusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return false
	}
	return apiErr.StatusCode >= 400 && apiErr.StatusCode < 500
}

// IsUnauthorized reports an expired or rejected bearer token.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// IsNotFound reports a 404 answer.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
