package agent

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNoChoices is returned when the provider answers without any choice.
var ErrNoChoices = errors.New("no completion choices returned")

// TransportError wraps a failure talking to the model provider. It aborts the
// turn; the caller decides whether to retry.
type TransportError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: http_%d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Retryable reports whether the failure is worth another attempt: network
// errors, rate limiting and server errors.
func (e *TransportError) Retryable() bool {
	switch {
	case e.StatusCode == 0:
		return true
	case e.StatusCode == http.StatusTooManyRequests, e.StatusCode == http.StatusRequestTimeout:
		return true
	default:
		return e.StatusCode >= http.StatusInternalServerError
	}
}

// IsRetryable reports whether err is a retryable TransportError.
func IsRetryable(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Retryable()
}
