package gstportal

import "errors"

var (
	// ErrUnavailable is returned on network failures, timeouts and 5xx responses
	ErrUnavailable = errors.New("gst portal unavailable")

	// ErrRejected is returned when the portal refuses the input, usually a wrong captcha
	ErrRejected = errors.New("gst portal rejected request")
)

// PortalError wraps one of the sentinels with the portal's own detail.
type PortalError struct {
	Kind       error
	Operation  string
	StatusCode int
	ErrorCode  string
	Message    string
}

func (e *PortalError) Error() string {
	msg := e.Operation + ": " + e.Kind.Error()
	if e.ErrorCode != "" {
		msg += " (" + e.ErrorCode + ")"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *PortalError) Unwrap() error {
	return e.Kind
}
