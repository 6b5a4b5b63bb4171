package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/nidaro/nidaro-backend/internal/app/model"
	"github.com/nidaro/nidaro-backend/internal/app/repository"
	"github.com/nidaro/nidaro-backend/pkg/logger"
	"github.com/nidaro/nidaro-backend/pkg/redis"
	"github.com/nidaro/nidaro-backend/pkg/util"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type LoginResult struct {
	Account *model.Account
	Token   *util.SessionToken
}

// Profile is the signed-in account with its business and activity summary.
type Profile struct {
	Account      *model.Account         `json:"account"`
	Business     *model.BusinessDetails `json:"business,omitempty"`
	ReportsFiled int64                  `json:"reportsFiled"`
}

type AuthService interface {
	RequestLoginOTP(ctx context.Context, mobileNo string) error
	VerifyLoginOTP(ctx context.Context, mobileNo, otp string) (*LoginResult, error)
	GetProfile(ctx context.Context, accountID string) (*Profile, error)
	Logout(ctx context.Context, tokenID string, expiresAt time.Time) error
}

type authService struct {
	accounts    repository.AccountRepository
	businesses  repository.BusinessRepository
	reports     repository.ReportRepository
	otp         OTPSender
	jwtSecret   string
	tokenExpiry time.Duration
	now         func() time.Time
}

func NewAuthService(
	accounts repository.AccountRepository,
	businesses repository.BusinessRepository,
	reports repository.ReportRepository,
	otp OTPSender,
	jwtSecret string,
	tokenExpiry time.Duration,
) AuthService {
	return &authService{
		accounts:    accounts,
		businesses:  businesses,
		reports:     reports,
		otp:         otp,
		jwtSecret:   jwtSecret,
		tokenExpiry: tokenExpiry,
		now:         time.Now,
	}
}

// RequestLoginOTP texts a login code. The SMS provider keeps the challenge state.
func (s *authService) RequestLoginOTP(ctx context.Context, mobileNo string) error {
	account, err := s.loginAccount(mobileNo)
	if err != nil {
		return err
	}

	logger.Info("Login OTP requested", map[string]interface{}{
		"account_id": account.ID,
	})

	if _, err := s.otp.SendOTP(ctx, account.MobileNo); err != nil {
		logger.Error("Failed to send login OTP", err, map[string]interface{}{
			"account_id": account.ID,
		})
		return wrapSMSError(err)
	}
	return nil
}

func (s *authService) VerifyLoginOTP(ctx context.Context, mobileNo, otp string) (*LoginResult, error) {
	account, err := s.loginAccount(mobileNo)
	if err != nil {
		return nil, err
	}

	if err := s.otp.VerifyOTP(ctx, account.MobileNo, strings.TrimSpace(otp)); err != nil {
		logger.Warn("Login failed: OTP rejected", map[string]interface{}{
			"account_id": account.ID,
		})
		return nil, wrapSMSError(err)
	}

	token, err := util.GenerateSessionToken(
		account.ID,
		account.MobileNo,
		account.BusinessName,
		account.IsVerified,
		s.jwtSecret,
		s.tokenExpiry,
	)
	if err != nil {
		logger.Error("Failed to generate session token", err, map[string]interface{}{
			"account_id": account.ID,
		})
		return nil, err
	}

	logger.Info("User logged in", map[string]interface{}{
		"account_id":  account.ID,
		"is_verified": account.IsVerified,
	})
	return &LoginResult{Account: account, Token: token}, nil
}

// GetProfile loads the account, its business and its report count in parallel.
func (s *authService) GetProfile(ctx context.Context, accountID string) (*Profile, error) {
	profile := &Profile{}
	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		account, err := s.accounts.FindByID(accountID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAccountNotFound
			}
			return err
		}
		profile.Account = account
		return nil
	})
	g.Go(func() error {
		business, err := s.businesses.FindByUserID(accountID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		profile.Business = business
		return nil
	})
	g.Go(func() error {
		count, err := s.reports.CountByReporter(accountID)
		if err != nil {
			return err
		}
		profile.ReportsFiled = count
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return profile, nil
}

// Logout revokes the token id for the rest of its lifetime.
func (s *authService) Logout(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if tokenID == "" {
		return nil
	}
	if err := redis.BlacklistToken(ctx, tokenID, expiresAt.Sub(s.now())); err != nil {
		return err
	}

	logger.Info("User logged out", map[string]interface{}{
		"token_id": tokenID,
	})
	return nil
}

// loginAccount finds the account behind a login attempt. Only accounts that
// verified their mobile exist, so existence is the phase check.
func (s *authService) loginAccount(mobileNo string) (*model.Account, error) {
	if !util.IsValidMobileNumber(mobileNo) {
		return nil, ErrInvalidMobile
	}
	account, err := s.accounts.FindByMobile(util.FormatMobileNumber(mobileNo))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Login failed: account not found", nil)
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return account, nil
}
