// Package providers contains the HTTP clients for the external transit
// data endpoints: the point-radius stop lookup used by the grid harvester
// and the live arrivals schedule used by the reconciliation engine.
package providers

import (
	"errors"
	"fmt"
	"net/http"
)

// ProviderError is a non-2xx response from an external endpoint. Whether
// it is worth retrying depends on the status code: throttling and server
// errors are transient, everything else is permanent for this attempt.
type ProviderError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s returned HTTP %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Transient reports whether the error indicates throttling (429) or a
// server-side failure (5xx) that a cooldown-and-retry can recover from.
func (e *ProviderError) Transient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsTransient reports whether err is a transient provider error.
func IsTransient(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Transient()
}
