package sms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/nidaro/nidaro-backend/pkg/logger"
)

var devCodeRegex = regexp.MustCompile(`^\d{6}$`)

// Client sends and checks one-time codes through Twilio Verify.
type Client struct {
	config     Config
	httpClient *http.Client
}

func NewClient(config Config) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://verify.twilio.com/v2"
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	if config.DevMode() {
		logger.Warn("Twilio credentials not configured, SMS verification running in development mode", nil)
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SendOTP starts an SMS verification for the given E.164 number and returns the verification sid.
func (c *Client) SendOTP(ctx context.Context, mobileNo string) (string, error) {
	if c.config.DevMode() {
		logger.Info("[dev] OTP not sent, any 6 digit code will be accepted", map[string]interface{}{
			"mobile_no": mobileNo,
		})
		return "dev", nil
	}

	form := url.Values{}
	form.Set("To", mobileNo)
	form.Set("Channel", "sms")

	resp, err := c.doRequest(ctx, "Verifications", form)
	if err != nil {
		return "", err
	}
	return resp.SID, nil
}

// VerifyOTP checks the code. Only an "approved" status counts as success.
func (c *Client) VerifyOTP(ctx context.Context, mobileNo, code string) error {
	if c.config.DevMode() {
		if !devCodeRegex.MatchString(code) {
			return ErrInvalidCode
		}
		return nil
	}

	form := url.Values{}
	form.Set("To", mobileNo)
	form.Set("Code", code)

	resp, err := c.doRequest(ctx, "VerificationCheck", form)
	if err != nil {
		// Verify answers 404 once a verification is consumed or expired.
		var perr *ProviderError
		if errors.As(err, &perr) && perr.StatusCode == http.StatusNotFound {
			return &ProviderError{Kind: ErrInvalidCode, StatusCode: perr.StatusCode, Message: perr.Message}
		}
		return err
	}
	if resp.Status != statusApproved {
		return ErrInvalidCode
	}
	return nil
}

func (c *Client) doRequest(ctx context.Context, endpoint string, form url.Values) (*verificationResponse, error) {
	endpointURL := fmt.Sprintf("%s/Services/%s/%s", c.config.BaseURL, c.config.VerifyServiceSID, endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpointURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.config.AccountSID, c.config.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Error("Twilio request failed", err, map[string]interface{}{
			"endpoint": endpoint,
		})
		return nil, &ProviderError{Kind: ErrUnavailable, Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Kind: ErrUnavailable, StatusCode: resp.StatusCode, Message: "failed to read response body"}
	}

	var result verificationResponse
	_ = json.Unmarshal(body, &result)

	if resp.StatusCode >= 500 {
		return nil, &ProviderError{Kind: ErrUnavailable, StatusCode: resp.StatusCode, Message: result.Message}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Warn("Twilio rejected request", map[string]interface{}{
			"endpoint":    endpoint,
			"status_code": resp.StatusCode,
			"code":        result.Code,
		})
		return nil, &ProviderError{Kind: ErrRejected, StatusCode: resp.StatusCode, Message: result.Message}
	}

	return &result, nil
}
