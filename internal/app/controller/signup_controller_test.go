package controller

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignupFlow_EndToEnd(t *testing.T) {
	s := setupControllerTest(t)
	mobile := "9876543210"

	res := s.do(t, "POST", "/auth/signup/step/1", map[string]string{
		"businessName": "Sharma Traders",
		"mobileNo":     mobile,
		"password":     "Str0ng!Pass",
	}, "")
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	assert.Equal(t, "+919876543210", res.body["mobileNo"])

	res = s.do(t, "POST", "/auth/signup/step/1/verify", map[string]string{"mobileNo": mobile, "otp": testOTP}, "")
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	assert.NotEmpty(t, res.body["userId"])

	res = s.do(t, "POST", "/auth/signup/step/2", map[string]string{
		"userPan":     "abcde1234f",
		"userPanName": "Ravi Sharma",
		"userDOB":     "1985-04-12",
		"userPanMob":  mobile,
	}, "")
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	panSession := res.body["sessionId"].(string)

	res = s.do(t, "POST", "/auth/signup/step/2/verify", map[string]string{"sessionId": panSession, "verificationCode": "482913"}, "")
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())

	res = s.do(t, "POST", "/auth/signup/step/3", map[string]string{"userPan": "ABCDE1234F"}, "")
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	assert.True(t, strings.HasPrefix(res.body["captchaImage"].(string), "data:image/png;base64,"))

	res = s.do(t, "POST", "/auth/signup/step/4", map[string]string{"sessionId": res.body["sessionId"].(string), "captchaInput": testCaptcha}, "")
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	assert.Equal(t, testGSTIN, res.body["gstin"])

	res = s.do(t, "POST", "/auth/signup/step/5", map[string]string{"sessionId": res.body["sessionId"].(string), "captchaInput": testCaptcha}, "")
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	business := res.body["businessDetails"].(map[string]interface{})
	assert.Equal(t, testGSTIN, business["gstin"])
	assert.Equal(t, "SHARMA TRADERS PRIVATE LIMITED", business["legalName"])

	token := s.login(t, mobile)
	res = s.do(t, "GET", "/auth/me", nil, token)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	user := res.body["user"].(map[string]interface{})
	assert.Equal(t, true, user["isVerified"])
	assert.EqualValues(t, 6, user["verificationPhase"])
	assert.NotContains(t, res.Body.String(), "passwordHash")
}

func TestSignupController_ValidationFields(t *testing.T) {
	s := setupControllerTest(t)

	res := s.do(t, "POST", "/auth/signup/step/1", map[string]string{"mobileNo": "9876543210"}, "")
	require.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "VALIDATION_INVALID_INPUT", res.body["code"])
	fields, ok := res.body["fields"].(map[string]interface{})
	require.True(t, ok, res.Body.String())
	assert.Equal(t, "required", fields["BusinessName"])
	assert.Equal(t, "required", fields["Password"])
	assert.NotContains(t, fields, "MobileNo")
}

func TestSignupController_ErrorMapping(t *testing.T) {
	s := setupControllerTest(t)

	tests := []struct {
		name       string
		path       string
		payload    map[string]string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "Invalid mobile",
			path:       "/auth/signup/step/1",
			payload:    map[string]string{"businessName": "Shop", "mobileNo": "12345", "password": "Str0ng!Pass"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_INVALID_MOBILE",
		},
		{
			name:       "Weak password",
			path:       "/auth/signup/step/1",
			payload:    map[string]string{"businessName": "Shop", "mobileNo": "9876543210", "password": "password"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "AUTH_WEAK_PASSWORD",
		},
		{
			name:       "Missing body fields",
			path:       "/auth/signup/step/1",
			payload:    map[string]string{"mobileNo": "9876543210"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_INVALID_INPUT",
		},
		{
			name:       "No pending signup",
			path:       "/auth/signup/step/1/verify",
			payload:    map[string]string{"mobileNo": "9876543210", "otp": testOTP},
			wantStatus: http.StatusBadRequest,
			wantCode:   "AUTH_SESSION_EXPIRED",
		},
		{
			name:       "PAN before mobile",
			path:       "/auth/signup/step/2",
			payload:    map[string]string{"userPan": "ABCDE1234F", "userPanName": "Ravi", "userDOB": "1985-04-12", "userPanMob": "9876543210"},
			wantStatus: http.StatusNotFound,
			wantCode:   "AUTH_ACCOUNT_NOT_FOUND",
		},
		{
			name:       "Unknown PAN session",
			path:       "/auth/signup/step/2/verify",
			payload:    map[string]string{"sessionId": "missing", "verificationCode": "123456"},
			wantStatus: http.StatusNotFound,
			wantCode:   "AUTH_SESSION_NOT_FOUND",
		},
		{
			name:       "Bad PAN",
			path:       "/auth/signup/step/3",
			payload:    map[string]string{"userPan": "12345"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_INVALID_PAN",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := s.do(t, "POST", tt.path, tt.payload, "")
			assert.Equal(t, tt.wantStatus, res.Code, res.Body.String())
			assert.Equal(t, tt.wantCode, res.body["code"])
			assert.Equal(t, false, res.body["success"])
		})
	}
}

func TestSignupController_PortalFailures(t *testing.T) {
	s := setupControllerTest(t)
	s.verifiedAccount(t, 1)

	// Phase 6 accounts are past the lookup step.
	res := s.do(t, "POST", "/auth/signup/step/3", map[string]string{"userPan": "ABCDE0001F"}, "")
	assert.Equal(t, http.StatusConflict, res.Code)
	assert.Equal(t, "AUTH_ALREADY_VERIFIED", res.body["code"])

	mobile := "9876543299"
	require.Equal(t, http.StatusOK, s.do(t, "POST", "/auth/signup/step/1", map[string]string{
		"businessName": "Patel Agencies", "mobileNo": mobile, "password": "Str0ng!Pass",
	}, "").Code)
	require.Equal(t, http.StatusOK, s.do(t, "POST", "/auth/signup/step/1/verify", map[string]string{"mobileNo": mobile, "otp": testOTP}, "").Code)
	res = s.do(t, "POST", "/auth/signup/step/2", map[string]string{
		"userPan": "PQRST6789K", "userPanName": "Amit Patel", "userDOB": "1990-01-01", "userPanMob": mobile,
	}, "")
	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, http.StatusOK, s.do(t, "POST", "/auth/signup/step/2/verify", map[string]string{"sessionId": res.body["sessionId"].(string), "verificationCode": "111111"}, "").Code)

	s.portal.unavailable = true
	res = s.do(t, "POST", "/auth/signup/step/3", map[string]string{"userPan": "PQRST6789K"}, "")
	assert.Equal(t, http.StatusBadGateway, res.Code)
	assert.Equal(t, "UPSTREAM_UNAVAILABLE", res.body["code"])

	s.portal.unavailable = false
	res = s.do(t, "POST", "/auth/signup/step/3", map[string]string{"userPan": "PQRST6789K"}, "")
	require.Equal(t, http.StatusOK, res.Code)
	res = s.do(t, "POST", "/auth/signup/step/4", map[string]string{"sessionId": res.body["sessionId"].(string), "captchaInput": "WRONG1"}, "")
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "UPSTREAM_REJECTED", res.body["code"])
	assert.Equal(t, "Invalid captcha", res.body["error"])
}
