package sms

import "time"

// Config represents the configuration for the Twilio Verify client
type Config struct {
	AccountSID       string
	AuthToken        string
	VerifyServiceSID string

	// BaseURL is the Verify API root, e.g. https://verify.twilio.com/v2
	BaseURL string

	Timeout time.Duration
}

// DevMode reports whether credentials are missing. In dev mode no SMS is sent
// and any six digit code is accepted.
func (c Config) DevMode() bool {
	return c.AccountSID == "" || c.AuthToken == "" || c.VerifyServiceSID == ""
}
