package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrMalformedPayload is returned when a 2xx body does not carry the fields the widget needs.
var ErrMalformedPayload = errors.New("malformed weather payload")

// StatusError is a non-2xx response from the weather API.
type StatusError struct {
	StatusCode int
	Endpoint   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("weather API %s returned status %d", e.Endpoint, e.StatusCode)
}

func (e *StatusError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsNotFound reports whether err carries a 404 from the weather API.
func IsNotFound(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.IsNotFound()
}
