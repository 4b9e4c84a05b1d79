package gemini

import (
	"errors"
	"fmt"
)

// ErrEmptyResponse means the API returned 200 but no usable candidate text.
// Not retried: the request was accepted, the model just produced nothing.
var ErrEmptyResponse = errors.New("gemini: no valid content in response")

// ErrInvalidResponse means the candidate text was not valid JSON after
// stripping code fences. Never retried; the shape mismatch is permanent for
// that prompt.
var ErrInvalidResponse = errors.New("gemini: invalid JSON in response")

// APIError is a non-success HTTP status that is neither retryable nor
// eligible for fallback.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gemini: request failed with status %d", e.Status)
}

// IsAPIError reports whether err carries an APIError and returns it.
func IsAPIError(err error) (*APIError, bool) {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
