package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/nidaro/nidaro-backend/config"
	"github.com/nidaro/nidaro-backend/internal/app/model"
	"github.com/nidaro/nidaro-backend/internal/app/repository"
	"github.com/nidaro/nidaro-backend/internal/metrics"
	"github.com/nidaro/nidaro-backend/pkg/logger"
	"github.com/nidaro/nidaro-backend/pkg/util"
	"gorm.io/gorm"
)

const businessSearchLimit = 50

type BusinessSearchResult struct {
	repository.BusinessSearchRow
	ReportsCount int64 `json:"reportsCount"`
}

type RefreshChallenge struct {
	GSTIN string `json:"gstin"`
	CaptchaChallenge
}

type BusinessService interface {
	Search(searchType, value string) ([]BusinessSearchResult, error)
	GetByOwner(accountID string) (*model.BusinessDetails, error)
	StartRefresh(ctx context.Context, accountID string) (*RefreshChallenge, error)
	CompleteRefresh(ctx context.Context, accountID, sessionID, captchaInput string) (*model.BusinessDetails, error)
}

type businessService struct {
	businesses repository.BusinessRepository
	captchas   *captchaFlow
	security   config.SecurityConfig
}

func NewBusinessService(
	businesses repository.BusinessRepository,
	sessions repository.SessionRepository,
	portal TaxPortal,
	security config.SecurityConfig,
	m *metrics.Metrics,
) BusinessService {
	return newBusinessService(businesses, sessions, portal, security, m, time.Now)
}

func newBusinessService(
	businesses repository.BusinessRepository,
	sessions repository.SessionRepository,
	portal TaxPortal,
	security config.SecurityConfig,
	m *metrics.Metrics,
	now func() time.Time,
) *businessService {
	return &businessService{
		businesses: businesses,
		captchas:   &captchaFlow{sessions: sessions, portal: portal, metrics: m, now: now},
		security:   security,
	}
}

func (s *businessService) Search(searchType, value string) ([]BusinessSearchResult, error) {
	value, err := util.SanitizeInput(value, s.security.MaxInputLength)
	if err != nil || value == "" {
		return nil, ErrInvalidInput
	}

	kind := repository.BusinessSearchType(searchType)
	switch kind {
	case repository.SearchByGSTIN:
		value = strings.ToUpper(value)
		if !util.IsValidGSTIN(value) {
			return nil, ErrInvalidGSTIN
		}
	case repository.SearchByPAN:
		value = strings.ToUpper(value)
		if !util.IsValidPAN(value) {
			return nil, ErrInvalidPAN
		}
	case repository.SearchByMobile:
		if !util.IsValidMobileNumber(value) {
			return nil, ErrInvalidMobile
		}
		value = util.FormatMobileNumber(value)
	case repository.SearchByName:
	default:
		return nil, ErrInvalidInput
	}

	rows, err := s.businesses.Search(kind, value, businessSearchLimit)
	if err != nil {
		return nil, err
	}

	gstins := make([]string, 0, len(rows))
	for _, row := range rows {
		gstins = append(gstins, row.GSTIN)
	}
	counts, err := s.businesses.CountReportsByGSTIN(gstins)
	if err != nil {
		return nil, err
	}

	results := make([]BusinessSearchResult, 0, len(rows))
	for _, row := range rows {
		results = append(results, BusinessSearchResult{
			BusinessSearchRow: row,
			ReportsCount:      counts[row.GSTIN],
		})
	}
	return results, nil
}

func (s *businessService) GetByOwner(accountID string) (*model.BusinessDetails, error) {
	details, err := s.businesses.FindByUserID(accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBusinessNotFound
		}
		return nil, err
	}
	return details, nil
}

// StartRefresh issues a captcha for re-fetching the caller's registration record.
func (s *businessService) StartRefresh(ctx context.Context, accountID string) (*RefreshChallenge, error) {
	details, err := s.GetByOwner(accountID)
	if err != nil {
		return nil, err
	}

	challenge, err := s.captchas.issue(ctx, model.PurposeRefreshRegistration, model.CaptchaContext{
		GSTIN:     details.GSTIN,
		AccountID: accountID,
	})
	if err != nil {
		return nil, err
	}
	return &RefreshChallenge{GSTIN: details.GSTIN, CaptchaChallenge: *challenge}, nil
}

// CompleteRefresh rewrites the portal-sourced fields. The account phase is untouched.
func (s *businessService) CompleteRefresh(ctx context.Context, accountID, sessionID, captchaInput string) (*model.BusinessDetails, error) {
	answer, err := normalizeCaptchaAnswer(captchaInput)
	if err != nil {
		return nil, err
	}
	session, err := s.captchas.claim(ctx, sessionID, model.PurposeRefreshRegistration)
	if err != nil {
		return nil, err
	}
	if session.Context.AccountID != accountID {
		return nil, ErrSessionMismatch
	}

	details, err := s.GetByOwner(accountID)
	if err != nil {
		return nil, err
	}
	if details.GSTIN != session.Context.GSTIN {
		return nil, ErrSessionMismatch
	}

	reg, err := s.captchas.fetchRegistration(ctx, session, details.GSTIN, answer)
	if err != nil {
		return nil, err
	}
	reg.apply(details)

	if err := s.businesses.UpdateRegistration(details); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBusinessNotFound
		}
		return nil, err
	}

	logger.Info("Business registration refreshed", map[string]interface{}{
		"account_id": accountID,
		"gstin":      details.GSTIN,
	})
	return details, nil
}
