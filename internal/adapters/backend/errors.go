package backend

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrMalformed marks a response that is not the expected JSON, including
	// a chart figure whose embedded JSON does not parse.
	ErrMalformed = errors.New("malformed backend response")
	// ErrMissingCSRFToken is returned when a POST cannot be sent because no
	// CSRF cookie could be obtained.
	ErrMissingCSRFToken = errors.New("missing csrf token")
	// ErrCircuitOpen is returned while the breaker rejects calls.
	ErrCircuitOpen = errors.New("backend circuit open")
)

// HTTPError is a non-2xx response without a well-formed error payload.
type HTTPError struct {
	Endpoint string
	Status   int
	Body     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s: HTTP %d %s", e.Endpoint, e.Status, http.StatusText(e.Status))
}

// PayloadError is a well-formed {"error": message} reply.
type PayloadError struct {
	Endpoint string
	Status   int
	Message  string
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Endpoint, e.Message)
}

// NoData reports whether the backend answered that nothing matches the
// request. Such replies are shown as an empty result, not as a failure.
func (e *PayloadError) NoData() bool {
	return e.Status == http.StatusNotFound
}

// IsNoData reports whether err carries a no-data payload.
func IsNoData(err error) bool {
	var pe *PayloadError
	return errors.As(err, &pe) && pe.NoData()
}
