package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/nidaro/nidaro-backend/config"
	"github.com/nidaro/nidaro-backend/internal/app/model"
	"github.com/nidaro/nidaro-backend/internal/app/repository"
	"github.com/nidaro/nidaro-backend/internal/app/service"
	"github.com/nidaro/nidaro-backend/internal/db"
	"github.com/nidaro/nidaro-backend/internal/middleware"
	"github.com/nidaro/nidaro-backend/internal/storage"
	"github.com/nidaro/nidaro-backend/pkg/gstportal"
	"github.com/nidaro/nidaro-backend/pkg/redis"
	"github.com/nidaro/nidaro-backend/pkg/sms"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

const (
	testJWTSecret = "test-secret"
	testOTP       = "123456"
	testCaptcha   = "A1B2C3"
	testGSTIN     = "27ABCDE1234F1Z5"
)

type stubOTP struct{}

func (stubOTP) SendOTP(ctx context.Context, mobileNo string) (string, error) {
	return "VE-test", nil
}

func (stubOTP) VerifyOTP(ctx context.Context, mobileNo, code string) error {
	if code != testOTP {
		return sms.ErrInvalidCode
	}
	return nil
}

// stubPortal answers testCaptcha with a single registration. unavailable
// simulates a portal outage.
type stubPortal struct {
	unavailable bool
}

func (p *stubPortal) GetCaptcha(ctx context.Context) (*gstportal.Captcha, error) {
	if p.unavailable {
		return nil, &gstportal.PortalError{Kind: gstportal.ErrUnavailable, Operation: "captcha", StatusCode: http.StatusServiceUnavailable}
	}
	return &gstportal.Captcha{Image: "data:image/png;base64,iVBORw0KGgo=", Cookies: "JSESSIONID=1"}, nil
}

func (p *stubPortal) SearchByPAN(ctx context.Context, pan, captcha, cookies string) ([]string, error) {
	if captcha != testCaptcha {
		return nil, &gstportal.PortalError{Kind: gstportal.ErrRejected, Operation: "search by pan", Message: "Invalid captcha"}
	}
	return []string{testGSTIN}, nil
}

func (p *stubPortal) GetTaxpayerDetails(ctx context.Context, gstin, captcha, cookies string) (*gstportal.TaxpayerDetails, error) {
	if captcha != testCaptcha {
		return nil, &gstportal.PortalError{Kind: gstportal.ErrRejected, Operation: "taxpayer details", Message: "Invalid captcha"}
	}
	return &gstportal.TaxpayerDetails{
		GSTIN:            gstin,
		LegalName:        "SHARMA TRADERS PRIVATE LIMITED",
		TradeName:        "Sharma Traders",
		Status:           "Active",
		RegistrationDate: "01/07/2017",
	}, nil
}

func (p *stubPortal) GetGoodsServices(ctx context.Context, gstin, cookies string) (*gstportal.GoodsServices, error) {
	return nil, &gstportal.PortalError{Kind: gstportal.ErrUnavailable, Operation: "goods services"}
}

type stubEvidence struct{}

func (stubEvidence) PresignUpload(ctx context.Context, folder, filename, contentType string) (*storage.PresignedUpload, error) {
	return &storage.PresignedUpload{
		UploadURL: "https://bucket.s3.amazonaws.com/" + folder + "/key.pdf?X-Amz-Signature=abc",
		FileURL:   "https://bucket.s3.amazonaws.com/" + folder + "/key.pdf",
		Key:       folder + "/key.pdf",
		ExpiresAt: time.Now().Add(15 * time.Minute),
	}, nil
}

type testServer struct {
	router   *gin.Engine
	accounts repository.AccountRepository
	portal   *stubPortal
}

func setupControllerTest(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	redis.SetClient(client)
	t.Cleanup(func() { _ = client.Close() })

	security := config.DefaultSecurityConfig()
	accounts := repository.NewAccountRepository(testDB)
	businesses := repository.NewBusinessRepository(testDB)
	reports := repository.NewReportRepository(testDB)
	sessions := repository.NewSessionRepository(client)
	portal := &stubPortal{}

	authCtrl := NewAuthController(
		service.NewAuthService(accounts, businesses, reports, stubOTP{}, testJWTSecret, 7*24*time.Hour),
		"auth_token",
		7*24*time.Hour,
	)
	signupCtrl := NewSignupController(service.NewSignupService(accounts, businesses, sessions, stubOTP{}, portal, security, nil))
	businessCtrl := NewBusinessController(service.NewBusinessService(businesses, sessions, portal, security, nil))
	reportCtrl := NewReportController(service.NewReportService(reports, businesses, accounts, stubEvidence{}, config.ReportsConfig{MinAttestations: 3}, security, nil))
	auth := middleware.NewAuthMiddleware(testJWTSecret, "auth_token").Authenticate()

	router := gin.New()
	router.Use(middleware.RecoveryMiddleware())

	signup := router.Group("/auth/signup/step")
	signup.POST("/1", signupCtrl.StartSignup)
	signup.POST("/1/verify", signupCtrl.VerifySignupOTP)
	signup.POST("/2", signupCtrl.SubmitPAN)
	signup.POST("/2/verify", signupCtrl.VerifyPAN)
	signup.POST("/3", signupCtrl.StartGSTINLookup)
	signup.POST("/4", signupCtrl.ResolveGSTIN)
	signup.POST("/5", signupCtrl.CompleteRegistration)

	router.POST("/auth/login/mobile/otp", authCtrl.RequestLoginOTP)
	router.POST("/auth/login/mobile/verify", authCtrl.VerifyLoginOTP)
	router.GET("/auth/me", auth, authCtrl.GetMe)
	router.POST("/auth/logout", auth, authCtrl.Logout)

	router.GET("/business", auth, businessCtrl.Search)
	router.PATCH("/business/refetch", auth, businessCtrl.StartRefetch)
	router.POST("/business/refetch/verify", auth, businessCtrl.CompleteRefetch)

	r := router.Group("/reports", auth)
	r.POST("", reportCtrl.CreateReport)
	r.GET("/my-reports", reportCtrl.GetMyReports)
	r.GET("/my-reports/export", reportCtrl.ExportMyReports)
	r.GET("/on-my-business", reportCtrl.GetReportsOnMyBusiness)
	r.POST("/evidence/upload-url", reportCtrl.CreateEvidenceUpload)
	r.GET("/business/:gstin", reportCtrl.GetBusinessReports)
	r.GET("/:id", reportCtrl.GetReport)
	r.POST("/:id/attest", reportCtrl.Attest)
	r.PATCH("/:id/dispute", reportCtrl.Dispute)

	return &testServer{router: router, accounts: accounts, portal: portal}
}

type response struct {
	*httptest.ResponseRecorder
	body map[string]interface{}
}

func (s *testServer) do(t *testing.T, method, path string, payload interface{}, token string) *response {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	res := &response{ResponseRecorder: w}
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res.body))
	}
	return res
}

// verifiedAccount stores a phase 6 account numbered n with its business and
// returns a session token for it.
func (s *testServer) verifiedAccount(t *testing.T, n int) (string, *model.BusinessDetails) {
	t.Helper()
	mobile := fmt.Sprintf("+9198765432%02d", n)
	account := &model.Account{
		BusinessName:      fmt.Sprintf("Business %d", n),
		MobileNo:          mobile,
		PasswordHash:      "hash",
		VerificationPhase: model.PhaseMobileVerified,
	}
	require.NoError(t, s.accounts.Create(account))
	require.True(t, account.RecordPAN(model.PANInfo{
		PAN:         fmt.Sprintf("ABCDE%04dF", n),
		HolderName:  "OWNER",
		DateOfBirth: "1985-04-12",
		PANMobile:   mobile,
	}))
	gstin := fmt.Sprintf("27ABCDE%04dF1Z5", n)
	require.True(t, account.MarkVerified(gstin))
	details := &model.BusinessDetails{GSTIN: gstin, LegalName: fmt.Sprintf("LEGAL NAME %d", n), Status: "Active"}
	require.NoError(t, s.accounts.CompleteVerification(account, details))

	return s.login(t, mobile), details
}

func (s *testServer) login(t *testing.T, mobile string) string {
	t.Helper()
	res := s.do(t, "POST", "/auth/login/mobile/verify", map[string]string{"mobileNo": mobile, "otp": testOTP}, "")
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	return res.body["token"].(string)
}
