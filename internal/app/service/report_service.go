package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/nidaro/nidaro-backend/config"
	"github.com/nidaro/nidaro-backend/internal/app/model"
	"github.com/nidaro/nidaro-backend/internal/app/repository"
	apperrors "github.com/nidaro/nidaro-backend/internal/errors"
	"github.com/nidaro/nidaro-backend/internal/metrics"
	"github.com/nidaro/nidaro-backend/internal/storage"
	"github.com/nidaro/nidaro-backend/pkg/logger"
	"github.com/nidaro/nidaro-backend/pkg/util"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

const (
	minDescriptionLength = 10
	minDisputeLength     = 10
	maxTitleLength       = 255
	maxEvidenceItems     = 20
)

// EvidenceStorage presigns evidence uploads. *storage.S3Storage implements it.
type EvidenceStorage interface {
	PresignUpload(ctx context.Context, folder, filename, contentType string) (*storage.PresignedUpload, error)
}

type CreateReportInput struct {
	ReportedBusinessGSTIN string
	ReportType            string
	Title                 string
	Description           string
	Evidence              []model.EvidenceItem
}

// ReportView is a report with its decoded evidence and the names around it.
type ReportView struct {
	*model.Report
	Evidence             []model.EvidenceItem `json:"evidence"`
	BusinessLegalName    string               `json:"businessLegalName,omitempty"`
	BusinessTradeName    string               `json:"businessTradeName,omitempty"`
	ReporterBusinessName string               `json:"reporterBusinessName,omitempty"`
}

type AttestationView struct {
	model.Attestation
	AttesterBusinessName string `json:"attesterBusinessName,omitempty"`
}

type ReportDetail struct {
	ReportView
	Attestations []AttestationView `json:"attestations"`
}

type ReportService interface {
	CreateReport(reporterID string, input CreateReportInput) (*ReportView, error)
	GetMyReports(reporterID string) ([]ReportView, error)
	GetReportsOnMyBusiness(accountID string) ([]ReportView, error)
	GetBusinessReports(gstin string) ([]ReportView, error)
	GetReport(id string) (*ReportDetail, error)
	Attest(reportID, attesterID string, isSupporting bool, comments string) (*model.Report, error)
	Dispute(reportID, accountID, reason string) (*model.Report, error)
	ExportMyReports(reporterID string) ([]byte, error)
	CreateEvidenceUpload(ctx context.Context, accountID, filename, contentType string) (*storage.PresignedUpload, error)
}

type reportService struct {
	reports         repository.ReportRepository
	businesses      repository.BusinessRepository
	accounts        repository.AccountRepository
	storage         EvidenceStorage
	minAttestations int
	security        config.SecurityConfig
	metrics         *metrics.Metrics
}

func NewReportService(
	reports repository.ReportRepository,
	businesses repository.BusinessRepository,
	accounts repository.AccountRepository,
	evidence EvidenceStorage,
	reportsCfg config.ReportsConfig,
	security config.SecurityConfig,
	m *metrics.Metrics,
) ReportService {
	minAttestations := reportsCfg.MinAttestations
	if minAttestations <= 0 {
		minAttestations = 3
	}
	return &reportService{
		reports:         reports,
		businesses:      businesses,
		accounts:        accounts,
		storage:         evidence,
		minAttestations: minAttestations,
		security:        security,
		metrics:         m,
	}
}

func (s *reportService) CreateReport(reporterID string, input CreateReportInput) (*ReportView, error) {
	gstin := strings.ToUpper(strings.TrimSpace(input.ReportedBusinessGSTIN))
	if !util.IsValidGSTIN(gstin) {
		return nil, ErrInvalidGSTIN
	}
	reportType := model.ReportType(input.ReportType)
	if !reportType.Valid() {
		return nil, fmt.Errorf("%w: report type must be money or non_money", ErrInvalidInput)
	}
	title, err := util.SanitizeInput(input.Title, maxTitleLength)
	if err != nil || title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	description, err := util.SanitizeInput(input.Description, s.security.MaxInputLength)
	if err != nil {
		return nil, fmt.Errorf("%w: description too long", ErrInvalidInput)
	}
	if utf8.RuneCountInString(description) < minDescriptionLength {
		return nil, fmt.Errorf("%w: description must be at least %d characters", ErrInvalidInput, minDescriptionLength)
	}
	evidence, err := s.cleanEvidence(input.Evidence)
	if err != nil {
		return nil, err
	}

	business, err := s.businesses.FindByGSTIN(gstin)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBusinessNotFound
		}
		return nil, err
	}
	if business.UserID == reporterID {
		logger.Warn("Self report rejected", map[string]interface{}{
			"reporter_id": reporterID,
			"gstin":       gstin,
		})
		return nil, ErrSelfReport
	}

	report := &model.Report{
		ReporterID:              reporterID,
		ReportedBusinessGSTIN:   gstin,
		ReportType:              reportType,
		Title:                   title,
		Description:             description,
		Status:                  model.ReportStatusPending,
		MinAttestationsRequired: s.minAttestations,
	}
	if err := report.SetEvidence(evidence); err != nil {
		return nil, err
	}
	if err := s.reports.Create(report); err != nil {
		return nil, err
	}
	s.metrics.ReportCreated()

	logger.Info("Report created", map[string]interface{}{
		"report_id":   report.ID,
		"reporter_id": reporterID,
		"gstin":       gstin,
	})
	return &ReportView{
		Report:            report,
		Evidence:          evidence,
		BusinessLegalName: business.LegalName,
		BusinessTradeName: business.TradeName,
	}, nil
}

func (s *reportService) GetMyReports(reporterID string) ([]ReportView, error) {
	reports, err := s.reports.FindByReporter(reporterID)
	if err != nil {
		return nil, err
	}
	return s.views(reports), nil
}

// GetReportsOnMyBusiness lists every report filed against the caller's business,
// whatever its status. Callers without a business get an empty list.
func (s *reportService) GetReportsOnMyBusiness(accountID string) ([]ReportView, error) {
	business, err := s.businesses.FindByUserID(accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []ReportView{}, nil
		}
		return nil, err
	}

	reports, err := s.reports.FindByBusinessGSTIN(business.GSTIN)
	if err != nil {
		return nil, err
	}
	return s.views(reports), nil
}

// GetBusinessReports is the public listing, it only shows reports peers have verified.
func (s *reportService) GetBusinessReports(gstin string) ([]ReportView, error) {
	gstin = strings.ToUpper(strings.TrimSpace(gstin))
	if !util.IsValidGSTIN(gstin) {
		return nil, ErrInvalidGSTIN
	}

	reports, err := s.reports.FindByBusinessGSTIN(gstin, model.ReportStatusVerified, model.ReportStatusDisputed)
	if err != nil {
		return nil, err
	}
	return s.views(reports), nil
}

func (s *reportService) GetReport(id string) (*ReportDetail, error) {
	report, err := s.reports.FindByIDWithDetails(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}

	names := s.newNameCache()
	detail := &ReportDetail{
		ReportView:   names.view(report),
		Attestations: make([]AttestationView, 0, len(report.Attestations)),
	}
	for _, attestation := range report.Attestations {
		detail.Attestations = append(detail.Attestations, AttestationView{
			Attestation:          attestation,
			AttesterBusinessName: names.accountName(attestation.AttesterID),
		})
	}
	return detail, nil
}

// Attest records one stance per account and report. Both stances count towards
// the threshold.
func (s *reportService) Attest(reportID, attesterID string, isSupporting bool, comments string) (*model.Report, error) {
	report, err := s.reports.FindByID(reportID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}
	if report.ReporterID == attesterID {
		return nil, ErrSelfAttestation
	}

	existing, err := s.reports.FindAttestation(reportID, attesterID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyAttested
	}

	comments, err = util.SanitizeInput(comments, s.security.MaxInputLength)
	if err != nil {
		return nil, fmt.Errorf("%w: comments too long", ErrInvalidInput)
	}

	// The unique index on (report, attester) settles concurrent first attempts.
	updated, err := s.reports.CreateAttestation(&model.Attestation{
		ReportID:     reportID,
		AttesterID:   attesterID,
		IsSupporting: isSupporting,
		Comments:     comments,
	})
	if err != nil {
		if apperrors.IsDuplicateKey(err) {
			return nil, ErrAlreadyAttested
		}
		return nil, err
	}
	s.metrics.AttestationRecorded(isSupporting)

	logger.Info("Report attested", map[string]interface{}{
		"report_id":     reportID,
		"attester_id":   attesterID,
		"count":         updated.AttestationsCount,
		"status":        updated.Status,
		"is_supporting": isSupporting,
	})
	return updated, nil
}

// Dispute lets the owner of the reported business contest a verified report.
func (s *reportService) Dispute(reportID, accountID, reason string) (*model.Report, error) {
	reason, err := util.SanitizeInput(reason, s.security.MaxInputLength)
	if err != nil {
		return nil, fmt.Errorf("%w: reason too long", ErrInvalidInput)
	}
	if utf8.RuneCountInString(reason) < minDisputeLength {
		return nil, fmt.Errorf("%w: reason must be at least %d characters", ErrInvalidInput, minDisputeLength)
	}

	report, err := s.reports.FindByID(reportID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}
	if report.Status != model.ReportStatusVerified {
		return nil, ErrReportNotVerified
	}

	business, err := s.businesses.FindByGSTIN(report.ReportedBusinessGSTIN)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if business == nil || business.UserID != accountID {
		logger.Warn("Dispute rejected: caller does not own the business", map[string]interface{}{
			"report_id":  reportID,
			"account_id": accountID,
		})
		return nil, ErrNotBusinessOwner
	}

	updated, err := s.reports.Dispute(&model.ReportDispute{
		ReportID:   reportID,
		DisputedBy: accountID,
		Reason:     reason,
	})
	if err != nil {
		if errors.Is(err, repository.ErrReportStateChanged) {
			return nil, ErrReportNotVerified
		}
		return nil, err
	}

	logger.Info("Report disputed", map[string]interface{}{
		"report_id":  reportID,
		"account_id": accountID,
	})
	return updated, nil
}

// ExportMyReports renders the caller's reports as an xlsx workbook.
func (s *reportService) ExportMyReports(reporterID string) ([]byte, error) {
	reports, err := s.GetMyReports(reporterID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Reports"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	headers := []interface{}{
		"Report ID", "GSTIN", "Legal Name", "Trade Name", "Type", "Title",
		"Status", "Attestations", "Required", "Disputed", "Filed At",
	}
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return nil, err
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetRowStyle(sheet, 1, 1, style)
	}

	for i, r := range reports {
		row := []interface{}{
			r.ID,
			r.ReportedBusinessGSTIN,
			r.BusinessLegalName,
			r.BusinessTradeName,
			string(r.ReportType),
			r.Title,
			string(r.Status),
			r.AttestationsCount,
			r.MinAttestationsRequired,
			r.HasGovDispute,
			r.CreatedAt.Format("2006-01-02 15:04"),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}
	_ = f.SetColWidth(sheet, "A", "A", 38)
	_ = f.SetColWidth(sheet, "B", "D", 24)
	_ = f.SetColWidth(sheet, "F", "F", 40)

	buf, err := f.WriteToBuffer()
	if err != nil {
		logger.Error("Failed to render report export", err, map[string]interface{}{
			"reporter_id": reporterID,
		})
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *reportService) CreateEvidenceUpload(ctx context.Context, accountID, filename, contentType string) (*storage.PresignedUpload, error) {
	if s.storage == nil {
		return nil, ErrUploadsDisabled
	}
	if err := storage.ValidateUpload(filename, contentType, s.security.AllowedFileTypes); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFileType, err)
	}

	upload, err := s.storage.PresignUpload(ctx, "evidence/"+accountID, filename, contentType)
	if err != nil {
		logger.Error("Failed to presign evidence upload", err, map[string]interface{}{
			"account_id":   accountID,
			"content_type": contentType,
		})
		return nil, err
	}
	return upload, nil
}

func (s *reportService) cleanEvidence(items []model.EvidenceItem) ([]model.EvidenceItem, error) {
	if len(items) > maxEvidenceItems {
		return nil, fmt.Errorf("%w: at most %d evidence items", ErrInvalidInput, maxEvidenceItems)
	}

	cleaned := make([]model.EvidenceItem, 0, len(items))
	for _, item := range items {
		if !item.Type.Valid() {
			return nil, fmt.Errorf("%w: evidence type must be document, image or url", ErrInvalidInput)
		}
		u, err := url.ParseRequestURI(strings.TrimSpace(item.URL))
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("%w: evidence url must be an http(s) URL", ErrInvalidInput)
		}
		description, err := util.SanitizeInput(item.Description, s.security.MaxInputLength)
		if err != nil {
			return nil, fmt.Errorf("%w: evidence description too long", ErrInvalidInput)
		}
		cleaned = append(cleaned, model.EvidenceItem{
			Type:        item.Type,
			URL:         u.String(),
			Description: description,
		})
	}
	return cleaned, nil
}

func (s *reportService) views(reports []model.Report) []ReportView {
	names := s.newNameCache()
	views := make([]ReportView, 0, len(reports))
	for i := range reports {
		views = append(views, names.view(&reports[i]))
	}
	return views
}

// nameCache resolves business and account names once per listing.
type nameCache struct {
	businesses repository.BusinessRepository
	accounts   repository.AccountRepository
	byGSTIN    map[string]*model.BusinessDetails
	byAccount  map[string]string
}

func (s *reportService) newNameCache() *nameCache {
	return &nameCache{
		businesses: s.businesses,
		accounts:   s.accounts,
		byGSTIN:    map[string]*model.BusinessDetails{},
		byAccount:  map[string]string{},
	}
}

func (c *nameCache) view(report *model.Report) ReportView {
	view := ReportView{
		Report:               report,
		Evidence:             report.Evidence(),
		ReporterBusinessName: c.accountName(report.ReporterID),
	}
	if business := c.business(report.ReportedBusinessGSTIN); business != nil {
		view.BusinessLegalName = business.LegalName
		view.BusinessTradeName = business.TradeName
	}
	return view
}

func (c *nameCache) business(gstin string) *model.BusinessDetails {
	if business, ok := c.byGSTIN[gstin]; ok {
		return business
	}
	business, err := c.businesses.FindByGSTIN(gstin)
	if err != nil {
		business = nil
	}
	c.byGSTIN[gstin] = business
	return business
}

func (c *nameCache) accountName(id string) string {
	if name, ok := c.byAccount[id]; ok {
		return name
	}
	name := ""
	if account, err := c.accounts.FindByID(id); err == nil {
		name = account.BusinessName
	}
	c.byAccount[id] = name
	return name
}
