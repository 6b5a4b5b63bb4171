package service

import (
	"errors"
	"fmt"

	"github.com/nidaro/nidaro-backend/pkg/gstportal"
	"github.com/nidaro/nidaro-backend/pkg/sms"
)

// Validation
var (
	ErrInvalidMobile           = errors.New("invalid mobile number format")
	ErrInvalidPAN              = errors.New("invalid PAN format")
	ErrInvalidGSTIN            = errors.New("invalid GSTIN format")
	ErrInvalidDOB              = errors.New("invalid date of birth, expected YYYY-MM-DD")
	ErrInvalidInput            = errors.New("invalid input")
	ErrWeakPassword            = errors.New("password does not meet security requirements")
	ErrInvalidVerificationCode = errors.New("verification code must be 6 digits")
	ErrInvalidFileType         = errors.New("file type not allowed")
)

// Not found
var (
	ErrAccountNotFound  = errors.New("account not found")
	ErrSessionNotFound  = errors.New("session not found")
	ErrBusinessNotFound = errors.New("business not found")
	ErrReportNotFound   = errors.New("report not found")
	ErrGSTINNotFound    = errors.New("no GSTIN found for this PAN")
)

// Conflict
var (
	ErrPhaseAlreadyAdvanced = errors.New("account has already completed this step")
	ErrPhaseOrder           = errors.New("previous signup step not completed")
	ErrAlreadyVerified      = errors.New("account is already verified")
	ErrPANAlreadyUsed       = errors.New("PAN is already registered to another account")
	ErrSelfReport           = errors.New("cannot report your own business")
	ErrSelfAttestation      = errors.New("cannot attest your own report")
	ErrAlreadyAttested      = errors.New("report already attested by this account")
	ErrReportNotVerified    = errors.New("only verified reports can be disputed")
	ErrBusinessRegistered   = errors.New("GSTIN is already registered to another account")
)

var (
	ErrNotBusinessOwner = errors.New("caller does not own the reported business")
	ErrSessionExpired   = errors.New("session expired")
	ErrSessionMismatch  = errors.New("session does not belong to this step")
	ErrInvalidOTP       = errors.New("invalid or expired OTP")
	ErrUploadsDisabled  = errors.New("evidence uploads are not configured")
)

// UpstreamError is a failure of an external dependency (SMS provider, GST portal).
// Unavailable distinguishes outages and timeouts from the upstream refusing the input.
type UpstreamError struct {
	Service     string
	Message     string
	Unavailable bool
	Err         error
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %v", e.Service, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Service, e.Message)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// wrapSMSError classifies an SMS provider failure. A rejected code becomes ErrInvalidOTP.
func wrapSMSError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sms.ErrInvalidCode) {
		return ErrInvalidOTP
	}

	upstream := &UpstreamError{Service: "sms", Err: err, Unavailable: errors.Is(err, sms.ErrUnavailable)}
	var perr *sms.ProviderError
	if errors.As(err, &perr) && perr.Message != "" {
		upstream.Message = perr.Message
	}
	return upstream
}

func wrapPortalError(err error) error {
	if err == nil {
		return nil
	}

	upstream := &UpstreamError{Service: "gst portal", Err: err, Unavailable: !errors.Is(err, gstportal.ErrRejected)}
	var perr *gstportal.PortalError
	if errors.As(err, &perr) {
		switch {
		case perr.Message != "":
			upstream.Message = perr.Message
		case errors.Is(err, gstportal.ErrRejected):
			upstream.Message = "GST portal rejected the request, check the captcha and try again"
		default:
			upstream.Message = "GST portal is unavailable, please try again later"
		}
	}
	return upstream
}
