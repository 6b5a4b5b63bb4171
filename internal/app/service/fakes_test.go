package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nidaro/nidaro-backend/config"
	"github.com/nidaro/nidaro-backend/internal/app/model"
	"github.com/nidaro/nidaro-backend/internal/app/repository"
	"github.com/nidaro/nidaro-backend/internal/db"
	"github.com/nidaro/nidaro-backend/pkg/gstportal"
	"github.com/nidaro/nidaro-backend/pkg/redis"
	"github.com/nidaro/nidaro-backend/pkg/sms"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

const (
	testPassword = "Str0ng!Pass"
	testOTP      = "123456"
	testCaptcha  = "A1B2C3"
	testGSTIN    = "27ABCDE1234F1Z5"
	testPAN      = "ABCDE1234F"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeOTP struct {
	mu        sync.Mutex
	sent      []string
	sendErr   error
	verifyErr error
}

func (f *fakeOTP) SendOTP(ctx context.Context, mobileNo string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.sent = append(f.sent, mobileNo)
	return "VE" + mobileNo, nil
}

func (f *fakeOTP) VerifyOTP(ctx context.Context, mobileNo, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.verifyErr != nil {
		return f.verifyErr
	}
	if code != testOTP {
		return sms.ErrInvalidCode
	}
	return nil
}

func (f *fakeOTP) sentTo() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

// fakePortal accepts testCaptcha as the answer to every captcha it issues.
type fakePortal struct {
	mu         sync.Mutex
	issued     int
	gstins     []string
	details    *gstportal.TaxpayerDetails
	goods      *gstportal.GoodsServices
	captchaErr error
	detailsErr error
	goodsErr   error
}

func newFakePortal() *fakePortal {
	raw := json.RawMessage(`{"bzgddtls":[{"hsncd":"5208","gdes":"Woven fabrics of cotton"}],"bzsdtls":[]}`)
	return &fakePortal{
		gstins: []string{testGSTIN},
		details: &gstportal.TaxpayerDetails{
			GSTIN:            testGSTIN,
			LegalName:        "SHARMA TRADERS PRIVATE LIMITED",
			TradeName:        "Sharma Traders",
			Status:           "Active",
			Constitution:     "Private Limited Company",
			RegistrationDate: "01/07/2017",
			PrincipalAddress: gstportal.PrincipalAddress{Adr: "12, MG Road, Pune, Maharashtra, 411001"},
			NatureOfBusiness: []string{"Wholesale Business", "Retail Business"},
		},
		goods: &gstportal.GoodsServices{Raw: raw},
	}
}

func (p *fakePortal) GetCaptcha(ctx context.Context) (*gstportal.Captcha, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.captchaErr != nil {
		return nil, p.captchaErr
	}
	p.issued++
	return &gstportal.Captcha{
		Image:   "data:image/png;base64,iVBORw0KGgo=",
		Cookies: fmt.Sprintf("JSESSIONID=%d", p.issued),
	}, nil
}

func (p *fakePortal) SearchByPAN(ctx context.Context, pan, captcha, cookies string) ([]string, error) {
	if captcha != testCaptcha {
		return nil, rejectedCaptcha("search by pan")
	}
	return p.gstins, nil
}

func (p *fakePortal) GetTaxpayerDetails(ctx context.Context, gstin, captcha, cookies string) (*gstportal.TaxpayerDetails, error) {
	if p.detailsErr != nil {
		return nil, p.detailsErr
	}
	if captcha != testCaptcha {
		return nil, rejectedCaptcha("taxpayer details")
	}
	return p.details, nil
}

func (p *fakePortal) GetGoodsServices(ctx context.Context, gstin, cookies string) (*gstportal.GoodsServices, error) {
	if p.goodsErr != nil {
		return nil, p.goodsErr
	}
	return p.goods, nil
}

func rejectedCaptcha(op string) error {
	return &gstportal.PortalError{Kind: gstportal.ErrRejected, Operation: op, ErrorCode: "SWEB_9000", Message: "Invalid captcha"}
}

type serviceFixture struct {
	mr         *miniredis.Miniredis
	accounts   repository.AccountRepository
	businesses repository.BusinessRepository
	reports    repository.ReportRepository
	sessions   repository.SessionRepository
	otp        *fakeOTP
	portal     *fakePortal
	clock      *fakeClock
	security   config.SecurityConfig
}

func setupServiceTest(t *testing.T) *serviceFixture {
	t.Helper()
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	redis.SetClient(client)
	t.Cleanup(func() { _ = client.Close() })

	return &serviceFixture{
		mr:         mr,
		accounts:   repository.NewAccountRepository(testDB),
		businesses: repository.NewBusinessRepository(testDB),
		reports:    repository.NewReportRepository(testDB),
		sessions:   repository.NewSessionRepository(client),
		otp:        &fakeOTP{},
		portal:     newFakePortal(),
		clock:      &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)},
		security:   config.DefaultSecurityConfig(),
	}
}

func (f *serviceFixture) signupService() *signupService {
	return newSignupService(f.accounts, f.businesses, f.sessions, f.otp, f.portal, f.security, nil, f.clock.Now)
}

func (f *serviceFixture) businessService() *businessService {
	return newBusinessService(f.businesses, f.sessions, f.portal, f.security, nil, f.clock.Now)
}

func (f *serviceFixture) reportService(evidence EvidenceStorage) ReportService {
	return NewReportService(f.reports, f.businesses, f.accounts, evidence, config.ReportsConfig{MinAttestations: 3}, f.security, nil)
}

// panVerifiedAccount stores an account that completed the PAN step.
func (f *serviceFixture) panVerifiedAccount(t *testing.T, mobileNo, pan string) *model.Account {
	t.Helper()
	account := &model.Account{
		BusinessName:      "Sharma Traders",
		MobileNo:          mobileNo,
		PasswordHash:      "hash",
		VerificationPhase: model.PhaseMobileVerified,
	}
	require.NoError(t, f.accounts.Create(account))
	require.True(t, account.RecordPAN(model.PANInfo{
		PAN:         pan,
		HolderName:  "RAVI SHARMA",
		DateOfBirth: "1985-04-12",
		PANMobile:   mobileNo,
	}))
	require.NoError(t, f.accounts.Update(account))
	return account
}

// verifiedBusiness stores a phase 6 account numbered n together with its business.
func (f *serviceFixture) verifiedBusiness(t *testing.T, n int) (*model.Account, *model.BusinessDetails) {
	t.Helper()
	account := f.panVerifiedAccount(t, fmt.Sprintf("+9198765432%02d", n), fmt.Sprintf("ABCDE%04dF", n))
	account.BusinessName = fmt.Sprintf("Business %d", n)
	gstin := fmt.Sprintf("27ABCDE%04dF1Z5", n)
	require.True(t, account.MarkVerified(gstin))

	details := &model.BusinessDetails{
		GSTIN:     gstin,
		LegalName: fmt.Sprintf("LEGAL NAME %d PVT LTD", n),
		TradeName: fmt.Sprintf("Trade %d", n),
		Status:    "Active",
	}
	require.NoError(t, f.accounts.CompleteVerification(account, details))
	return account, details
}
