package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nidaro/nidaro-backend/config"
	"github.com/nidaro/nidaro-backend/internal/app/model"
	"github.com/nidaro/nidaro-backend/internal/app/repository"
	apperrors "github.com/nidaro/nidaro-backend/internal/errors"
	"github.com/nidaro/nidaro-backend/internal/metrics"
	"github.com/nidaro/nidaro-backend/pkg/logger"
	"github.com/nidaro/nidaro-backend/pkg/util"
	"gorm.io/gorm"
)

type SignupInput struct {
	BusinessName string
	MobileNo     string
	Password     string
}

type PANSubmission struct {
	PAN         string
	HolderName  string
	DateOfBirth string
	PANMobile   string
	MobileNo    string // account phone, defaults to PANMobile
}

type PendingSignupResult struct {
	MobileNo  string    `json:"mobileNo"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type PANChallenge struct {
	SessionID string    `json:"sessionId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type GSTINResolution struct {
	GSTIN      string   `json:"gstin"`
	Candidates []string `json:"candidates"`
	CaptchaChallenge
}

type RegistrationResult struct {
	Account  *model.Account
	Business *model.BusinessDetails
}

// SignupService drives an account from phone verification to a verified GSTIN.
type SignupService interface {
	StartSignup(ctx context.Context, input SignupInput) (*PendingSignupResult, error)
	VerifySignupOTP(ctx context.Context, mobileNo, otp string) (*model.Account, error)
	SubmitPAN(ctx context.Context, input PANSubmission) (*PANChallenge, error)
	VerifyPAN(ctx context.Context, sessionID, code string) (*model.Account, error)
	StartGSTINLookup(ctx context.Context, pan string) (*CaptchaChallenge, error)
	ResolveGSTIN(ctx context.Context, sessionID, captchaInput string) (*GSTINResolution, error)
	CompleteRegistration(ctx context.Context, sessionID, captchaInput string) (*RegistrationResult, error)
}

type signupService struct {
	accounts   repository.AccountRepository
	businesses repository.BusinessRepository
	sessions   repository.SessionRepository
	otp        OTPSender
	captchas   *captchaFlow
	security   config.SecurityConfig
	metrics    *metrics.Metrics
	now        func() time.Time
}

func NewSignupService(
	accounts repository.AccountRepository,
	businesses repository.BusinessRepository,
	sessions repository.SessionRepository,
	otp OTPSender,
	portal TaxPortal,
	security config.SecurityConfig,
	m *metrics.Metrics,
) SignupService {
	return newSignupService(accounts, businesses, sessions, otp, portal, security, m, time.Now)
}

func newSignupService(
	accounts repository.AccountRepository,
	businesses repository.BusinessRepository,
	sessions repository.SessionRepository,
	otp OTPSender,
	portal TaxPortal,
	security config.SecurityConfig,
	m *metrics.Metrics,
	now func() time.Time,
) *signupService {
	return &signupService{
		accounts:   accounts,
		businesses: businesses,
		sessions:   sessions,
		otp:        otp,
		captchas:   &captchaFlow{sessions: sessions, portal: portal, metrics: m, now: now},
		security:   security,
		metrics:    m,
		now:        now,
	}
}

func (s *signupService) StartSignup(ctx context.Context, input SignupInput) (result *PendingSignupResult, err error) {
	defer func() { s.metrics.SignupStep("1", err) }()

	name, err := util.SanitizeInput(input.BusinessName, s.security.MaxInputLength)
	if err != nil || name == "" {
		return nil, ErrInvalidInput
	}
	if !util.IsValidMobileNumber(input.MobileNo) {
		return nil, ErrInvalidMobile
	}
	if !util.IsSecurePassword(input.Password, s.security.Password) {
		return nil, ErrWeakPassword
	}
	mobileNo := util.FormatMobileNumber(input.MobileNo)

	logger.Info("Starting signup", map[string]interface{}{
		"mobile_no": mobileNo,
	})

	existing, err := s.accounts.FindByMobile(mobileNo)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if existing != nil && existing.VerificationPhase > model.PhaseMobilePending {
		logger.Warn("Signup rejected: mobile already verified", map[string]interface{}{
			"mobile_no": mobileNo,
			"phase":     existing.VerificationPhase,
		})
		return nil, ErrPhaseAlreadyAdvanced
	}

	hash, err := util.HashPassword(input.Password)
	if err != nil {
		logger.Error("Failed to hash password", err, nil)
		return nil, err
	}

	if _, err := s.otp.SendOTP(ctx, mobileNo); err != nil {
		logger.Error("Failed to send signup OTP", err, map[string]interface{}{
			"mobile_no": mobileNo,
		})
		return nil, s.smsFailure(err)
	}

	now := s.now()
	pending := &model.PendingSignup{
		BusinessName: name,
		MobileNo:     mobileNo,
		PasswordHash: hash,
		CreatedAt:    now,
		ExpiresAt:    now.Add(model.PendingSignupTTL),
	}
	if err := s.sessions.SavePendingSignup(ctx, pending, model.PendingSignupTTL); err != nil {
		return nil, err
	}

	return &PendingSignupResult{MobileNo: mobileNo, ExpiresAt: pending.ExpiresAt}, nil
}

func (s *signupService) VerifySignupOTP(ctx context.Context, mobileNo, otp string) (account *model.Account, err error) {
	defer func() { s.metrics.SignupStep("1_verify", err) }()

	if !util.IsValidMobileNumber(mobileNo) {
		return nil, ErrInvalidMobile
	}
	mobileNo = util.FormatMobileNumber(mobileNo)

	pending, err := s.sessions.GetPendingSignup(ctx, mobileNo)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrSessionExpired
		}
		return nil, err
	}
	if pending.IsExpired(s.now()) {
		_ = s.sessions.DeletePendingSignup(ctx, mobileNo)
		return nil, ErrSessionExpired
	}

	// A wrong code leaves the pending signup in place for another try.
	if err := s.otp.VerifyOTP(ctx, mobileNo, strings.TrimSpace(otp)); err != nil {
		return nil, s.smsFailure(err)
	}

	pending, err = s.sessions.TakePendingSignup(ctx, mobileNo)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrSessionExpired
		}
		return nil, err
	}

	account, err = s.accounts.FindByMobile(mobileNo)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if account == nil {
		account = &model.Account{
			BusinessName:      pending.BusinessName,
			MobileNo:          mobileNo,
			PasswordHash:      pending.PasswordHash,
			VerificationPhase: model.PhaseMobileVerified,
		}
		if err := s.accounts.Create(account); err != nil {
			if apperrors.IsDuplicateKey(err) {
				return nil, ErrPhaseAlreadyAdvanced
			}
			return nil, err
		}
	} else {
		if !account.ResetForSignup(pending.BusinessName, pending.PasswordHash) {
			return nil, ErrPhaseAlreadyAdvanced
		}
		if err := s.accounts.Update(account); err != nil {
			return nil, err
		}
	}

	logger.Info("Mobile verified", map[string]interface{}{
		"account_id": account.ID,
	})
	return account, nil
}

func (s *signupService) SubmitPAN(ctx context.Context, input PANSubmission) (challenge *PANChallenge, err error) {
	defer func() { s.metrics.SignupStep("2", err) }()

	pan := strings.ToUpper(strings.TrimSpace(input.PAN))
	if !util.IsValidPAN(pan) {
		return nil, ErrInvalidPAN
	}
	holder, err := util.SanitizeInput(input.HolderName, s.security.MaxInputLength)
	if err != nil || holder == "" {
		return nil, ErrInvalidInput
	}
	dob := strings.TrimSpace(input.DateOfBirth)
	if !util.IsValidDOB(dob) {
		return nil, ErrInvalidDOB
	}
	if !util.IsValidMobileNumber(input.PANMobile) {
		return nil, ErrInvalidMobile
	}
	accountMobile := input.MobileNo
	if accountMobile == "" {
		accountMobile = input.PANMobile
	}
	if !util.IsValidMobileNumber(accountMobile) {
		return nil, ErrInvalidMobile
	}
	accountMobile = util.FormatMobileNumber(accountMobile)

	account, err := s.findAccountByMobile(accountMobile)
	if err != nil {
		return nil, err
	}
	if err := checkPhase(account, model.PhaseMobileVerified); err != nil {
		return nil, err
	}

	owner, err := s.accounts.FindByPAN(pan)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if owner != nil && owner.ID != account.ID {
		return nil, ErrPANAlreadyUsed
	}

	session := &model.PANVerificationSession{
		ID:          uuid.NewString(),
		Purpose:     model.PANVerificationPurpose,
		PAN:         pan,
		HolderName:  holder,
		DateOfBirth: dob,
		PANMobile:   util.FormatMobileNumber(input.PANMobile),
		MobileNo:    accountMobile,
		ExpiresAt:   s.now().Add(model.PANVerificationTTL),
	}
	if err := s.sessions.SavePANVerification(ctx, session, model.PANVerificationTTL); err != nil {
		return nil, err
	}

	logger.Info("PAN submitted for verification", map[string]interface{}{
		"account_id": account.ID,
		"session_id": session.ID,
	})
	return &PANChallenge{SessionID: session.ID, ExpiresAt: session.ExpiresAt}, nil
}

// VerifyPAN accepts any 6 digit code. There is no second factor behind it yet.
func (s *signupService) VerifyPAN(ctx context.Context, sessionID, code string) (account *model.Account, err error) {
	defer func() { s.metrics.SignupStep("2_verify", err) }()

	session, err := s.sessions.GetPANVerification(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if session.Purpose != model.PANVerificationPurpose {
		return nil, ErrSessionMismatch
	}
	if session.IsExpired(s.now()) {
		_ = s.sessions.DeletePANVerification(ctx, sessionID)
		return nil, ErrSessionExpired
	}
	if !util.IsSixDigitCode(strings.TrimSpace(code)) {
		return nil, ErrInvalidVerificationCode
	}

	session, err = s.sessions.TakePANVerification(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	account, err = s.findAccountByMobile(session.MobileNo)
	if err != nil {
		return nil, err
	}
	if err := checkPhase(account, model.PhaseMobileVerified); err != nil {
		return nil, err
	}

	account.RecordPAN(model.PANInfo{
		PAN:         session.PAN,
		HolderName:  session.HolderName,
		DateOfBirth: session.DateOfBirth,
		PANMobile:   session.PANMobile,
	})
	if err := s.accounts.Update(account); err != nil {
		if apperrors.IsDuplicateKey(err) {
			return nil, ErrPANAlreadyUsed
		}
		return nil, err
	}

	logger.Info("PAN verified", map[string]interface{}{
		"account_id": account.ID,
	})
	return account, nil
}

func (s *signupService) StartGSTINLookup(ctx context.Context, pan string) (challenge *CaptchaChallenge, err error) {
	defer func() { s.metrics.SignupStep("3", err) }()

	account, err := s.findUnverifiedByPAN(pan)
	if err != nil {
		return nil, err
	}

	return s.captchas.issue(ctx, model.PurposeResolveRegistration, model.CaptchaContext{
		PAN:       *account.UserPAN,
		AccountID: account.ID,
	})
}

func (s *signupService) ResolveGSTIN(ctx context.Context, sessionID, captchaInput string) (resolution *GSTINResolution, err error) {
	defer func() { s.metrics.SignupStep("4", err) }()

	answer, err := normalizeCaptchaAnswer(captchaInput)
	if err != nil {
		return nil, err
	}
	session, err := s.captchas.claim(ctx, sessionID, model.PurposeResolveRegistration)
	if err != nil {
		return nil, err
	}
	account, err := s.findUnverifiedByPAN(session.Context.PAN)
	if err != nil {
		return nil, err
	}

	gstins, err := s.captchas.portal.SearchByPAN(ctx, session.Context.PAN, answer, session.Cookies)
	if err != nil {
		s.metrics.UpstreamFailure("gst_portal")
		return nil, wrapPortalError(err)
	}
	if len(gstins) == 0 {
		return nil, ErrGSTINNotFound
	}
	gstin := gstins[0]

	next, err := s.captchas.issue(ctx, model.PurposeFetchRegistration, model.CaptchaContext{
		PAN:       session.Context.PAN,
		GSTIN:     gstin,
		AccountID: account.ID,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("GSTIN resolved from PAN", map[string]interface{}{
		"account_id": account.ID,
		"gstin":      gstin,
		"candidates": len(gstins),
	})
	return &GSTINResolution{GSTIN: gstin, Candidates: gstins, CaptchaChallenge: *next}, nil
}

func (s *signupService) CompleteRegistration(ctx context.Context, sessionID, captchaInput string) (result *RegistrationResult, err error) {
	defer func() { s.metrics.SignupStep("5", err) }()

	answer, err := normalizeCaptchaAnswer(captchaInput)
	if err != nil {
		return nil, err
	}
	session, err := s.captchas.claim(ctx, sessionID, model.PurposeFetchRegistration)
	if err != nil {
		return nil, err
	}
	gstin := session.Context.GSTIN
	if !util.IsValidGSTIN(gstin) {
		return nil, ErrInvalidGSTIN
	}
	account, err := s.findUnverifiedByPAN(session.Context.PAN)
	if err != nil {
		return nil, err
	}

	reg, err := s.captchas.fetchRegistration(ctx, session, gstin, answer)
	if err != nil {
		return nil, err
	}

	details, err := s.businesses.FindByGSTIN(gstin)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if details != nil && details.UserID != account.ID {
		return nil, ErrBusinessRegistered
	}
	if details == nil {
		details = &model.BusinessDetails{GSTIN: gstin}
	}
	reg.apply(details)

	account.MarkVerified(gstin)
	if err := s.accounts.CompleteVerification(account, details); err != nil {
		if apperrors.IsDuplicateKey(err) {
			return nil, ErrBusinessRegistered
		}
		return nil, err
	}

	logger.Info("Account verified", map[string]interface{}{
		"account_id": account.ID,
		"gstin":      gstin,
	})
	return &RegistrationResult{Account: account, Business: details}, nil
}

func (s *signupService) findAccountByMobile(mobileNo string) (*model.Account, error) {
	account, err := s.accounts.FindByMobile(mobileNo)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return account, nil
}

// findUnverifiedByPAN loads the account that owns a verified PAN and has not
// finished signup yet.
func (s *signupService) findUnverifiedByPAN(pan string) (*model.Account, error) {
	pan = strings.ToUpper(strings.TrimSpace(pan))
	if !util.IsValidPAN(pan) {
		return nil, ErrInvalidPAN
	}
	account, err := s.accounts.FindByPAN(pan)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	if account.VerificationPhase == model.PhaseVerified {
		return nil, ErrAlreadyVerified
	}
	if account.VerificationPhase < model.PhasePANVerified {
		return nil, ErrPhaseOrder
	}
	return account, nil
}

func (s *signupService) smsFailure(err error) error {
	err = wrapSMSError(err)
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		s.metrics.UpstreamFailure("sms")
	}
	return err
}

func checkPhase(account *model.Account, want model.VerificationPhase) error {
	switch {
	case account.VerificationPhase < want:
		return ErrPhaseOrder
	case account.VerificationPhase > want:
		return ErrPhaseAlreadyAdvanced
	}
	return nil
}
