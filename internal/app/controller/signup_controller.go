package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nidaro/nidaro-backend/internal/app/service"
	"github.com/nidaro/nidaro-backend/internal/middleware"
)

type SignupController struct {
	signupService service.SignupService
}

func NewSignupController(signupService service.SignupService) *SignupController {
	return &SignupController{signupService: signupService}
}

type SignupStartRequest struct {
	BusinessName string `json:"businessName" binding:"required"`
	MobileNo     string `json:"mobileNo" binding:"required"`
	Password     string `json:"password" binding:"required"`
}

type OTPVerifyRequest struct {
	MobileNo string `json:"mobileNo" binding:"required"`
	OTP      string `json:"otp" binding:"required"`
}

type PANSubmitRequest struct {
	UserPAN     string `json:"userPan" binding:"required"`
	UserPANName string `json:"userPanName" binding:"required"`
	UserDOB     string `json:"userDOB" binding:"required"`
	UserPANMob  string `json:"userPanMob" binding:"required"`
	MobileNo    string `json:"mobileNo"`
}

type PANVerifyRequest struct {
	SessionID        string `json:"sessionId" binding:"required"`
	VerificationCode string `json:"verificationCode" binding:"required"`
}

type GSTINLookupRequest struct {
	UserPAN string `json:"userPan" binding:"required"`
}

type CaptchaAnswerRequest struct {
	SessionID    string `json:"sessionId" binding:"required"`
	CaptchaInput string `json:"captchaInput" binding:"required"`
}

// StartSignup sends the mobile OTP
// POST /auth/signup/step/1
func (ctrl *SignupController) StartSignup(c *gin.Context) {
	var req SignupStartRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := ctrl.signupService.StartSignup(c.Request.Context(), service.SignupInput{
		BusinessName: req.BusinessName,
		MobileNo:     req.MobileNo,
		Password:     req.Password,
	})
	if err != nil {
		respondServiceError(c, err, "start signup")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "OTP sent successfully",
		"mobileNo":  result.MobileNo,
		"expiresAt": result.ExpiresAt,
		"nextStep":  "/auth/signup/step/1/verify",
	})
}

// VerifySignupOTP creates the account once the mobile number is verified
// POST /auth/signup/step/1/verify
func (ctrl *SignupController) VerifySignupOTP(c *gin.Context) {
	var req OTPVerifyRequest
	if !bindJSON(c, &req) {
		return
	}

	account, err := ctrl.signupService.VerifySignupOTP(c.Request.Context(), req.MobileNo, req.OTP)
	if err != nil {
		respondServiceError(c, err, "verify signup otp")
		return
	}

	middleware.GetLoggerFromContext(c).Info("Mobile number verified", map[string]interface{}{
		"account_id": account.ID,
	})

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Mobile number verified successfully. Please proceed to step 2.",
		"userId":   account.ID,
		"nextStep": "/auth/signup/step/2",
	})
}

// SubmitPAN
// POST /auth/signup/step/2
func (ctrl *SignupController) SubmitPAN(c *gin.Context) {
	var req PANSubmitRequest
	if !bindJSON(c, &req) {
		return
	}

	challenge, err := ctrl.signupService.SubmitPAN(c.Request.Context(), service.PANSubmission{
		PAN:         req.UserPAN,
		HolderName:  req.UserPANName,
		DateOfBirth: req.UserDOB,
		PANMobile:   req.UserPANMob,
		MobileNo:    req.MobileNo,
	})
	if err != nil {
		respondServiceError(c, err, "submit pan")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "PAN details received. Please verify with OTP.",
		"sessionId": challenge.SessionID,
		"expiresAt": challenge.ExpiresAt,
		"nextStep":  "/auth/signup/step/2/verify",
	})
}

// VerifyPAN
// POST /auth/signup/step/2/verify
func (ctrl *SignupController) VerifyPAN(c *gin.Context) {
	var req PANVerifyRequest
	if !bindJSON(c, &req) {
		return
	}

	if _, err := ctrl.signupService.VerifyPAN(c.Request.Context(), req.SessionID, req.VerificationCode); err != nil {
		respondServiceError(c, err, "verify pan")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "PAN verification completed. Please proceed to step 3.",
		"nextStep": "/auth/signup/step/3",
	})
}

// StartGSTINLookup issues the captcha for the PAN to GSTIN search
// POST /auth/signup/step/3
func (ctrl *SignupController) StartGSTINLookup(c *gin.Context) {
	var req GSTINLookupRequest
	if !bindJSON(c, &req) {
		return
	}

	challenge, err := ctrl.signupService.StartGSTINLookup(c.Request.Context(), req.UserPAN)
	if err != nil {
		respondServiceError(c, err, "start gstin lookup")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"message":      "Please solve the captcha to get GSTIN details",
		"sessionId":    challenge.SessionID,
		"captchaImage": challenge.CaptchaImage,
		"expiresAt":    challenge.ExpiresAt,
		"nextStep":     "/auth/signup/step/4",
	})
}

// ResolveGSTIN
// POST /auth/signup/step/4
func (ctrl *SignupController) ResolveGSTIN(c *gin.Context) {
	var req CaptchaAnswerRequest
	if !bindJSON(c, &req) {
		return
	}

	resolution, err := ctrl.signupService.ResolveGSTIN(c.Request.Context(), req.SessionID, req.CaptchaInput)
	if err != nil {
		respondServiceError(c, err, "resolve gstin")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"message":      "GSTIN found! Please solve the captcha to get complete business details.",
		"gstin":        resolution.GSTIN,
		"candidates":   resolution.Candidates,
		"sessionId":    resolution.SessionID,
		"captchaImage": resolution.CaptchaImage,
		"expiresAt":    resolution.ExpiresAt,
		"nextStep":     "/auth/signup/step/5",
	})
}

// CompleteRegistration
// POST /auth/signup/step/5
func (ctrl *SignupController) CompleteRegistration(c *gin.Context) {
	var req CaptchaAnswerRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := ctrl.signupService.CompleteRegistration(c.Request.Context(), req.SessionID, req.CaptchaInput)
	if err != nil {
		respondServiceError(c, err, "complete registration")
		return
	}

	business := result.Business
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Registration completed successfully! You can now login.",
		"businessDetails": gin.H{
			"gstin":            business.GSTIN,
			"legalName":        business.LegalName,
			"tradeName":        business.TradeName,
			"status":           business.Status,
			"registrationDate": business.RegistrationDate,
		},
	})
}
