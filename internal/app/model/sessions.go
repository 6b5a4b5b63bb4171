package model

import "time"

const (
	PendingSignupTTL   = 10 * time.Minute
	PANVerificationTTL = 15 * time.Minute
	CaptchaSessionTTL  = 10 * time.Minute

	PANVerificationPurpose = "tax-id-verify"
)

// CaptchaPurpose binds a captcha session to the step allowed to consume it.
type CaptchaPurpose string

const (
	PurposeResolveRegistration CaptchaPurpose = "resolve-registration-from-tax-id"
	PurposeFetchRegistration   CaptchaPurpose = "fetch-full-registration"
	PurposeRefreshRegistration CaptchaPurpose = "refresh-registration"
)

// PendingSignup holds the phase 1 data until the OTP is confirmed.
type PendingSignup struct {
	BusinessName string    `json:"businessName"`
	MobileNo     string    `json:"mobileNo"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

func (p *PendingSignup) IsExpired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

type PANVerificationSession struct {
	ID          string    `json:"id"`
	Purpose     string    `json:"purpose"`
	PAN         string    `json:"userPan"`
	HolderName  string    `json:"userPanName"`
	DateOfBirth string    `json:"userDOB"`
	PANMobile   string    `json:"userPanMob"`
	MobileNo    string    `json:"mobileNo"` // account phone
	ExpiresAt   time.Time `json:"expiresAt"`
}

func (s *PANVerificationSession) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// CaptchaContext is what the consuming step needs besides the captcha answer.
type CaptchaContext struct {
	PAN       string `json:"userPan,omitempty"`
	GSTIN     string `json:"gstin,omitempty"`
	AccountID string `json:"accountId,omitempty"`
}

type CaptchaSession struct {
	ID           string         `json:"id"`
	CaptchaImage string         `json:"captchaImage"`
	Purpose      CaptchaPurpose `json:"purpose"`
	Context      CaptchaContext `json:"context"`
	Cookies      string         `json:"cookies"`
	ExpiresAt    time.Time      `json:"expiresAt"`
}

func (s *CaptchaSession) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
