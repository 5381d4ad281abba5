package leads

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrMissingIdentity means the session lacks the org or user id.
	ErrMissingIdentity = errors.New("leads: not logged in")
	// ErrNoView is returned when a session has no lead browser yet.
	ErrNoView = errors.New("leads: view not found")
)

// TransportError reports a failed call to the listing endpoint.
type TransportError struct {
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("leads: listing endpoint returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("leads: listing request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
