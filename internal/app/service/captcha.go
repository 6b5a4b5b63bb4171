package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nidaro/nidaro-backend/internal/app/model"
	"github.com/nidaro/nidaro-backend/internal/app/repository"
	"github.com/nidaro/nidaro-backend/internal/metrics"
	"github.com/nidaro/nidaro-backend/pkg/gstportal"
	"github.com/nidaro/nidaro-backend/pkg/logger"
)

// CaptchaChallenge is a portal captcha waiting for the user's answer.
type CaptchaChallenge struct {
	SessionID    string    `json:"sessionId"`
	CaptchaImage string    `json:"captchaImage"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// registration is what the portal returned for a GSTIN once a captcha was solved.
type registration struct {
	details *gstportal.TaxpayerDetails
	goods   *gstportal.GoodsServices
}

// captchaFlow issues and consumes captcha sessions for the signup and refetch steps.
type captchaFlow struct {
	sessions repository.SessionRepository
	portal   TaxPortal
	metrics  *metrics.Metrics
	now      func() time.Time
}

func (f *captchaFlow) issue(ctx context.Context, purpose model.CaptchaPurpose, cctx model.CaptchaContext) (*CaptchaChallenge, error) {
	captcha, err := f.portal.GetCaptcha(ctx)
	if err != nil {
		f.metrics.UpstreamFailure("gst_portal")
		return nil, wrapPortalError(err)
	}

	session := &model.CaptchaSession{
		ID:           uuid.NewString(),
		CaptchaImage: captcha.Image,
		Purpose:      purpose,
		Context:      cctx,
		Cookies:      captcha.Cookies,
		ExpiresAt:    f.now().Add(model.CaptchaSessionTTL),
	}
	if err := f.sessions.SaveCaptchaSession(ctx, session, model.CaptchaSessionTTL); err != nil {
		return nil, err
	}

	return &CaptchaChallenge{
		SessionID:    session.ID,
		CaptchaImage: session.CaptchaImage,
		ExpiresAt:    session.ExpiresAt,
	}, nil
}

// claim consumes a captcha session issued for purpose. The portal accepts one
// answer per captcha, so the session is gone after this call whatever happens next.
func (f *captchaFlow) claim(ctx context.Context, sessionID string, purpose model.CaptchaPurpose) (*model.CaptchaSession, error) {
	session, err := f.sessions.GetCaptchaSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if session.Purpose != purpose {
		logger.Warn("Captcha session used for the wrong step", map[string]interface{}{
			"session_id": sessionID,
			"purpose":    session.Purpose,
			"expected":   purpose,
		})
		return nil, ErrSessionMismatch
	}
	if session.IsExpired(f.now()) {
		_ = f.sessions.DeleteCaptchaSession(ctx, sessionID)
		return nil, ErrSessionExpired
	}

	taken, err := f.sessions.TakeCaptchaSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return taken, nil
}

// fetchRegistration submits the captcha answer for the GSTIN record. The goods
// and services listing reuses the now solved portal session and is optional.
func (f *captchaFlow) fetchRegistration(ctx context.Context, session *model.CaptchaSession, gstin, answer string) (*registration, error) {
	details, err := f.portal.GetTaxpayerDetails(ctx, gstin, answer, session.Cookies)
	if err != nil {
		f.metrics.UpstreamFailure("gst_portal")
		return nil, wrapPortalError(err)
	}

	goods, err := f.portal.GetGoodsServices(ctx, gstin, session.Cookies)
	if err != nil {
		logger.Warn("Goods and services lookup failed, continuing without it", map[string]interface{}{
			"gstin": gstin,
			"error": err.Error(),
		})
		goods = nil
	}

	return &registration{details: details, goods: goods}, nil
}

// apply copies the portal record onto the stored business fields. A missing
// goods listing keeps whatever was stored before.
func (r *registration) apply(details *model.BusinessDetails) {
	details.LegalName = r.details.LegalName
	details.TradeName = r.details.TradeName
	details.Status = r.details.Status
	details.Constitution = r.details.Constitution
	details.RegistrationDate = r.details.RegistrationDate
	details.Address = r.details.PrincipalAddress.Adr
	details.NatureOfBusiness = strings.Join(r.details.NatureOfBusiness, ", ")
	if r.goods != nil && len(r.goods.Raw) > 0 && json.Valid(r.goods.Raw) {
		details.GoodsServicesJSON = string(r.goods.Raw)
	}
}

func normalizeCaptchaAnswer(answer string) (string, error) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", ErrInvalidInput
	}
	return answer, nil
}
