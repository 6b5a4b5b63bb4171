package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nidaro/nidaro-backend/internal/app/service"
	apperrors "github.com/nidaro/nidaro-backend/internal/errors"
	"github.com/nidaro/nidaro-backend/internal/middleware"
)

type AuthController struct {
	authService service.AuthService
	cookieName  string
	tokenExpiry time.Duration
}

func NewAuthController(authService service.AuthService, cookieName string, tokenExpiry time.Duration) *AuthController {
	if cookieName == "" {
		cookieName = "auth_token"
	}
	return &AuthController{
		authService: authService,
		cookieName:  cookieName,
		tokenExpiry: tokenExpiry,
	}
}

type LoginOTPRequest struct {
	MobileNo string `json:"mobileNo" binding:"required"`
}

// RequestLoginOTP
// POST /auth/login/mobile/otp
func (ctrl *AuthController) RequestLoginOTP(c *gin.Context) {
	var req LoginOTPRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := ctrl.authService.RequestLoginOTP(c.Request.Context(), req.MobileNo); err != nil {
		respondServiceError(c, err, "request login otp")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "OTP sent successfully",
	})
}

// VerifyLoginOTP issues the session token as a cookie and in the body
// POST /auth/login/mobile/verify
func (ctrl *AuthController) VerifyLoginOTP(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req OTPVerifyRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := ctrl.authService.VerifyLoginOTP(c.Request.Context(), req.MobileNo, req.OTP)
	if err != nil {
		respondServiceError(c, err, "verify login otp")
		return
	}

	ctrl.setSessionCookie(c, result.Token.Token, int(ctrl.tokenExpiry.Seconds()))

	account := result.Account
	log.Info("Login successful", map[string]interface{}{
		"account_id": account.ID,
	})

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "Login successful",
		"token":     result.Token.Token,
		"expiresAt": result.Token.ExpiresAt,
		"user": gin.H{
			"id":                account.ID,
			"businessName":      account.BusinessName,
			"mobileNo":          account.MobileNo,
			"verificationPhase": account.VerificationPhase,
			"isVerified":        account.IsVerified,
		},
	})
}

// GetMe returns the signed-in account with its business
// GET /auth/me
func (ctrl *AuthController) GetMe(c *gin.Context) {
	accountID, ok := requireAccountID(c)
	if !ok {
		return
	}

	profile, err := ctrl.authService.GetProfile(c.Request.Context(), accountID)
	if err != nil {
		respondServiceError(c, err, "get account")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"user":         profile.Account,
		"business":     profile.Business,
		"reportsFiled": profile.ReportsFiled,
	})
}

// Logout revokes the current token and clears the cookie
// POST /auth/logout
func (ctrl *AuthController) Logout(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	if err := ctrl.authService.Logout(c.Request.Context(), claims.ID, expiresAt); err != nil {
		respondServiceError(c, err, "logout")
		return
	}

	ctrl.setSessionCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Logged out",
	})
}

func (ctrl *AuthController) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(ctrl.cookieName, value, maxAge, "/", "", middleware.IsSecureRequest(c), true)
}
