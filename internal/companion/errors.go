package companion

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrTimeout matches (via errors.Is) any *Error produced by a request deadline.
var ErrTimeout = errors.New("request timed out")

const timeoutMessage = "Request timed out. Is Summoning Stone open?"

// Error is the single failure shape every client call returns.
// Status is 0 for transport, timeout, and decode failures.
type Error struct {
	Status  int
	Message string

	timeout bool
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
}

// Is lets errors.Is(err, ErrTimeout) distinguish deadlines from other failures.
func (e *Error) Is(target error) bool {
	return target == ErrTimeout && e.timeout
}

// SignInRequired reports a 401 from the companion app.
func (e *Error) SignInRequired() bool {
	return e.Status == http.StatusUnauthorized
}

// Describe renders err as a one-line message for the configuration panel.
// what names the list being loaded ("SFX", "scenes").
func Describe(err error, what string) string {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		if err == nil {
			return ""
		}
		return err.Error()
	}

	switch {
	case apiErr.SignInRequired():
		return fmt.Sprintf("Please sign in to Summoning Stone to load %s.", what)
	case apiErr.Status != 0:
		return fmt.Sprintf("Unexpected response (%d).", apiErr.Status)
	default:
		return apiErr.Message
	}
}
