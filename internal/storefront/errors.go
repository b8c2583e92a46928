package storefront

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnexpectedPayload = errors.New("unexpected storefront payload")
	ErrNotFound          = errors.New("storefront resource not found")
)

// APIError carries a non-2xx answer from the storefront API.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("storefront %s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// clientFault reports errors caused by the request rather than by the
// storefront being unhealthy; they must not trip the breaker.
func clientFault(err error) bool {
	apiErr, ok := asAPIError(err)
	return ok && apiErr.StatusCode < http.StatusInternalServerError
}

func asAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
