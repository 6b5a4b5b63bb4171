package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/nidaro/nidaro-backend/internal/app/service"
	apperrors "github.com/nidaro/nidaro-backend/internal/errors"
	"github.com/nidaro/nidaro-backend/internal/middleware"
)

type errorMapping struct {
	target error
	status int
	code   string
}

// serviceErrors is checked in order with errors.Is. Wrapped sentinels keep the
// wrapping message as the response text.
var serviceErrors = []errorMapping{
	{service.ErrInvalidMobile, http.StatusBadRequest, apperrors.ValidationInvalidMobile},
	{service.ErrInvalidPAN, http.StatusBadRequest, apperrors.ValidationInvalidPAN},
	{service.ErrInvalidGSTIN, http.StatusBadRequest, apperrors.ValidationInvalidGSTIN},
	{service.ErrInvalidDOB, http.StatusBadRequest, apperrors.ValidationInvalidFormat},
	{service.ErrWeakPassword, http.StatusBadRequest, apperrors.AuthWeakPassword},
	{service.ErrInvalidVerificationCode, http.StatusBadRequest, apperrors.ValidationInvalidFormat},
	{service.ErrInvalidFileType, http.StatusBadRequest, apperrors.UploadInvalidFileType},
	{service.ErrInvalidInput, http.StatusBadRequest, apperrors.ValidationInvalidInput},
	{service.ErrInvalidOTP, http.StatusBadRequest, apperrors.AuthCodeInvalid},
	{service.ErrSessionExpired, http.StatusBadRequest, apperrors.AuthSessionExpired},
	{service.ErrSessionMismatch, http.StatusBadRequest, apperrors.AuthSessionMismatch},

	{service.ErrAccountNotFound, http.StatusNotFound, apperrors.AuthAccountNotFound},
	{service.ErrSessionNotFound, http.StatusNotFound, apperrors.AuthSessionNotFound},
	{service.ErrBusinessNotFound, http.StatusNotFound, apperrors.GSTBusinessNotFound},
	{service.ErrReportNotFound, http.StatusNotFound, apperrors.ReportNotFound},
	{service.ErrGSTINNotFound, http.StatusNotFound, apperrors.GSTNotFound},

	{service.ErrPhaseAlreadyAdvanced, http.StatusConflict, apperrors.AuthPhaseAdvanced},
	{service.ErrPhaseOrder, http.StatusConflict, apperrors.AuthPhaseOrder},
	{service.ErrAlreadyVerified, http.StatusConflict, apperrors.AuthAlreadyVerified},
	{service.ErrPANAlreadyUsed, http.StatusConflict, apperrors.AuthPANAlreadyUsed},
	{service.ErrBusinessRegistered, http.StatusConflict, apperrors.ResourceAlreadyExists},
	{service.ErrSelfReport, http.StatusConflict, apperrors.ReportSelfReport},
	{service.ErrSelfAttestation, http.StatusConflict, apperrors.ReportSelfAttestation},
	{service.ErrAlreadyAttested, http.StatusConflict, apperrors.ReportAlreadyAttested},
	{service.ErrReportNotVerified, http.StatusConflict, apperrors.ReportNotVerified},

	{service.ErrNotBusinessOwner, http.StatusForbidden, apperrors.AuthzOwnerOnly},
	{service.ErrUploadsDisabled, http.StatusServiceUnavailable, apperrors.UploadFailed},
}

// respondServiceError writes the error body for a failed service call. context
// names the operation for logs and for the storage error fallback.
func respondServiceError(c *gin.Context, err error, context string) {
	log := middleware.GetLoggerFromContext(c)

	var upstream *service.UpstreamError
	if errors.As(err, &upstream) {
		log.Warn("Upstream service failed", map[string]interface{}{
			"operation":   context,
			"service":     upstream.Service,
			"unavailable": upstream.Unavailable,
			"error":       err.Error(),
		})
		message := upstream.Message
		if message == "" {
			message = upstream.Service + " request failed"
		}
		if upstream.Unavailable {
			apperrors.BadGateway(c, apperrors.UpstreamUnavailable, message)
		} else {
			apperrors.BadRequest(c, apperrors.UpstreamRejected, message)
		}
		return
	}

	for _, m := range serviceErrors {
		if errors.Is(err, m.target) {
			log.Warn("Request rejected", map[string]interface{}{
				"operation": context,
				"code":      m.code,
				"error":     err.Error(),
			})
			apperrors.RespondWithError(c, m.status, m.code, err.Error())
			return
		}
	}

	log.Error("Request failed", err, map[string]interface{}{
		"operation": context,
	})
	apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, context)
}

// bindJSON binds the body and answers 400 on failure. Tag violations are
// listed per field.
func bindJSON(c *gin.Context, req interface{}) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}
	middleware.GetLoggerFromContext(c).Warn("Invalid request body", map[string]interface{}{
		"path":  c.Request.URL.Path,
		"error": err.Error(),
	})

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		apperrors.RespondWithValidationError(c, fields)
		return false
	}
	apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request body")
	return false
}

func requireAccountID(c *gin.Context) (string, bool) {
	accountID, ok := middleware.GetAccountID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return "", false
	}
	return accountID, true
}
