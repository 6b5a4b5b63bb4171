package util

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nidaro/nidaro-backend/config"
)

var (
	mobileRegex = regexp.MustCompile(`^(\+91|91)?[6-9]\d{9}$`)
	panRegex    = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)
	gstinRegex  = regexp.MustCompile(`^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z][1-9A-Z]Z[0-9A-Z]$`)
	codeRegex   = regexp.MustCompile(`^\d{6}$`)
	dobRegex    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	nonDigit    = regexp.MustCompile(`\D`)

	specialChars   = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>]`)
	angleBrackets  = regexp.MustCompile(`[<>]`)
	javascriptURI  = regexp.MustCompile(`(?i)javascript:`)
	inlineHandlers = regexp.MustCompile(`(?i)on\w+=`)
)

// ErrInputTooLong is returned by SanitizeInput when the cleaned value exceeds the limit.
var ErrInputTooLong = errors.New("input too long")

// IsValidMobileNumber accepts Indian mobile numbers with an optional +91 or 91 prefix.
func IsValidMobileNumber(mobile string) bool {
	return mobileRegex.MatchString(mobile)
}

// FormatMobileNumber normalizes a mobile number to +91XXXXXXXXXX. Inputs that do
// not reduce to 10 or 91-prefixed 12 digits are returned unchanged.
func FormatMobileNumber(mobile string) string {
	cleaned := nonDigit.ReplaceAllString(mobile, "")
	switch {
	case len(cleaned) == 12 && strings.HasPrefix(cleaned, "91"):
		return "+" + cleaned
	case len(cleaned) == 10:
		return "+91" + cleaned
	}
	return mobile
}

func IsValidPAN(pan string) bool {
	return panRegex.MatchString(pan)
}

func IsValidGSTIN(gstin string) bool {
	return gstinRegex.MatchString(gstin)
}

// IsValidDOB checks the YYYY-MM-DD shape and that the date exists in the calendar.
func IsValidDOB(dob string) bool {
	if !dobRegex.MatchString(dob) {
		return false
	}
	_, err := time.Parse("2006-01-02", dob)
	return err == nil
}

func IsSixDigitCode(code string) bool {
	return codeRegex.MatchString(code)
}

// IsSecurePassword applies the configured password policy.
func IsSecurePassword(password string, policy config.PasswordPolicy) bool {
	if utf8.RuneCountInString(password) < policy.MinLength {
		return false
	}
	if policy.RequireUppercase && !strings.ContainsAny(password, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		return false
	}
	if policy.RequireLowercase && !strings.ContainsAny(password, "abcdefghijklmnopqrstuvwxyz") {
		return false
	}
	if policy.RequireNumbers && !strings.ContainsAny(password, "0123456789") {
		return false
	}
	if policy.RequireSpecial && !specialChars.MatchString(password) {
		return false
	}
	return true
}

// SanitizeInput trims the value and strips markup and inline script fragments.
func SanitizeInput(input string, maxLength int) (string, error) {
	sanitized := strings.TrimSpace(input)
	sanitized = angleBrackets.ReplaceAllString(sanitized, "")
	sanitized = javascriptURI.ReplaceAllString(sanitized, "")
	sanitized = inlineHandlers.ReplaceAllString(sanitized, "")

	if maxLength > 0 && utf8.RuneCountInString(sanitized) > maxLength {
		return "", fmt.Errorf("%w: maximum %d characters allowed", ErrInputTooLong, maxLength)
	}
	return sanitized, nil
}
