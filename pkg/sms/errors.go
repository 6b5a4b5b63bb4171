package sms

import "errors"

var (
	// ErrUnavailable is returned on network failures, timeouts and 5xx responses
	ErrUnavailable = errors.New("sms provider unavailable")

	// ErrRejected is returned when the provider refuses the request
	ErrRejected = errors.New("sms provider rejected request")

	// ErrInvalidCode is returned when the verification check is not approved
	ErrInvalidCode = errors.New("invalid verification code")
)

// ProviderError carries the provider's own message alongside a sentinel.
type ProviderError struct {
	Kind       error
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Kind
}
