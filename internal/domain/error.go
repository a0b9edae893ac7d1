package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid query execution context")

	// Job orchestration errors
	ErrMissingCredential  = errors.New("no usable credential for provider")
	ErrInvalidRequest     = errors.New("invalid generation request")
	ErrTransientPoll      = errors.New("transient poll failure")
	ErrAuth               = errors.New("provider rejected credential")
	ErrInsufficientTokens = errors.New("insufficient token balance")
	ErrUnknownProvider    = errors.New("unknown provider")
)

// ProviderRejectedError is returned when a provider answers a submission with
// a non-2xx response. It carries the raw body so the caller can surface the
// provider's own message.
type ProviderRejectedError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *ProviderRejectedError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s rejected request with status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s rejected request with status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// AsProviderRejected unwraps err into a *ProviderRejectedError when possible.
func AsProviderRejected(err error) (*ProviderRejectedError, bool) {
	var pr *ProviderRejectedError
	ok := errors.As(err, &pr)
	return pr, ok
}
