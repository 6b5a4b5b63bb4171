package service

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/nidaro/nidaro-backend/internal/app/model"
	"github.com/nidaro/nidaro-backend/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type fakeEvidenceStorage struct {
	folder string
	err    error
}

func (s *fakeEvidenceStorage) PresignUpload(ctx context.Context, folder, filename, contentType string) (*storage.PresignedUpload, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.folder = folder
	return &storage.PresignedUpload{
		UploadURL: "https://bucket.s3.amazonaws.com/" + folder + "/key?X-Amz-Signature=abc",
		FileURL:   "https://bucket.s3.amazonaws.com/" + folder + "/key",
		Key:       folder + "/key",
	}, nil
}

type reportFixture struct {
	*serviceFixture
	svc       ReportService
	reporter  *model.Account
	owner     *model.Account
	target    *model.BusinessDetails
	attesters []*model.Account
}

func setupReportServiceTest(t *testing.T) *reportFixture {
	f := setupServiceTest(t)
	reporter, _ := f.verifiedBusiness(t, 1)
	owner, target := f.verifiedBusiness(t, 2)
	var attesters []*model.Account
	for n := 3; n <= 6; n++ {
		attester, _ := f.verifiedBusiness(t, n)
		attesters = append(attesters, attester)
	}
	return &reportFixture{
		serviceFixture: f,
		svc:            f.reportService(&fakeEvidenceStorage{}),
		reporter:       reporter,
		owner:          owner,
		target:         target,
		attesters:      attesters,
	}
}

func (f *reportFixture) fileReport(t *testing.T) *ReportView {
	t.Helper()
	view, err := f.svc.CreateReport(f.reporter.ID, CreateReportInput{
		ReportedBusinessGSTIN: f.target.GSTIN,
		ReportType:            "money",
		Title:                 "Unpaid invoice",
		Description:           "Goods delivered in March, payment never made",
		Evidence: []model.EvidenceItem{
			{Type: model.EvidenceDocument, URL: "https://cdn.nidaro.in/evidence/invoice.pdf", Description: "Invoice 42"},
		},
	})
	require.NoError(t, err)
	return view
}

func TestReportService_CreateReport(t *testing.T) {
	f := setupReportServiceTest(t)

	view := f.fileReport(t)
	assert.Equal(t, model.ReportStatusPending, view.Status)
	assert.Equal(t, 3, view.MinAttestationsRequired)
	assert.Equal(t, 0, view.AttestationsCount)
	assert.Equal(t, "LEGAL NAME 2 PVT LTD", view.BusinessLegalName)
	require.Len(t, view.Evidence, 1)
	assert.Equal(t, model.EvidenceDocument, view.Evidence[0].Type)

	stored, err := f.reports.FindByID(view.ID)
	require.NoError(t, err)
	assert.Equal(t, "Invoice 42", stored.Evidence()[0].Description)
}

func TestReportService_CannotReportOwnBusiness(t *testing.T) {
	f := setupServiceTest(t)
	svc := f.reportService(nil)
	owner, business := f.verifiedBusiness(t, 1234)
	require.Equal(t, "27ABCDE1234F1Z5", business.GSTIN)

	_, err := svc.CreateReport(owner.ID, CreateReportInput{
		ReportedBusinessGSTIN: "27ABCDE1234F1Z5",
		ReportType:            "non_money",
		Title:                 "Testing",
		Description:           "Reporting my own business",
	})
	assert.ErrorIs(t, err, ErrSelfReport)

	reports, err := f.reports.FindByReporter(owner.ID)
	require.NoError(t, err)
	assert.Empty(t, reports)
}

func TestReportService_CreateReportValidation(t *testing.T) {
	f := setupReportServiceTest(t)
	valid := CreateReportInput{
		ReportedBusinessGSTIN: f.target.GSTIN,
		ReportType:            "money",
		Title:                 "Unpaid invoice",
		Description:           "Goods delivered, payment never made",
	}

	tests := []struct {
		name    string
		mutate  func(*CreateReportInput)
		wantErr error
	}{
		{"Invalid GSTIN", func(in *CreateReportInput) { in.ReportedBusinessGSTIN = "27ABCDE" }, ErrInvalidGSTIN},
		{"Unknown business", func(in *CreateReportInput) { in.ReportedBusinessGSTIN = "29ZZZZZ9999Z1Z5" }, ErrBusinessNotFound},
		{"Bad type", func(in *CreateReportInput) { in.ReportType = "other" }, ErrInvalidInput},
		{"Missing title", func(in *CreateReportInput) { in.Title = " " }, ErrInvalidInput},
		{"Short description", func(in *CreateReportInput) { in.Description = "too short" }, ErrInvalidInput},
		{"Bad evidence type", func(in *CreateReportInput) {
			in.Evidence = []model.EvidenceItem{{Type: "video", URL: "https://example.com/v.mp4"}}
		}, ErrInvalidInput},
		{"Bad evidence url", func(in *CreateReportInput) {
			in.Evidence = []model.EvidenceItem{{Type: model.EvidenceURL, URL: "javascript:alert(1)"}}
		}, ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := valid
			tt.mutate(&input)
			_, err := f.svc.CreateReport(f.reporter.ID, input)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestReportService_AttestationThreshold(t *testing.T) {
	f := setupReportServiceTest(t)
	report := f.fileReport(t)

	updated, err := f.svc.Attest(report.ID, f.attesters[0].ID, true, "Same happened to us")
	require.NoError(t, err)
	assert.Equal(t, 1, updated.AttestationsCount)
	assert.Equal(t, model.ReportStatusPending, updated.Status)

	updated, err = f.svc.Attest(report.ID, f.attesters[1].ID, false, "")
	require.NoError(t, err)
	assert.Equal(t, model.ReportStatusPending, updated.Status)

	updated, err = f.svc.Attest(report.ID, f.attesters[2].ID, true, "")
	require.NoError(t, err)
	assert.Equal(t, 3, updated.AttestationsCount)
	assert.Equal(t, model.ReportStatusVerified, updated.Status)

	updated, err = f.svc.Attest(report.ID, f.attesters[3].ID, true, "")
	require.NoError(t, err)
	assert.Equal(t, 4, updated.AttestationsCount)
	assert.Equal(t, model.ReportStatusVerified, updated.Status)
}

func TestReportService_AttestationRules(t *testing.T) {
	f := setupReportServiceTest(t)
	report := f.fileReport(t)

	_, err := f.svc.Attest("missing", f.attesters[0].ID, true, "")
	assert.ErrorIs(t, err, ErrReportNotFound)

	_, err = f.svc.Attest(report.ID, f.reporter.ID, true, "")
	assert.ErrorIs(t, err, ErrSelfAttestation)

	_, err = f.svc.Attest(report.ID, f.attesters[0].ID, true, "")
	require.NoError(t, err)
	_, err = f.svc.Attest(report.ID, f.attesters[0].ID, false, "changed my mind")
	assert.ErrorIs(t, err, ErrAlreadyAttested)

	stored, err := f.reports.FindByID(report.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.AttestationsCount)
}

func (f *reportFixture) verifyReport(t *testing.T, reportID string) {
	t.Helper()
	for i := 0; i < 3; i++ {
		_, err := f.svc.Attest(reportID, f.attesters[i].ID, true, "")
		require.NoError(t, err)
	}
}

func TestReportService_Dispute(t *testing.T) {
	f := setupReportServiceTest(t)
	report := f.fileReport(t)

	_, err := f.svc.Dispute(report.ID, f.owner.ID, "We delivered the refund already")
	assert.ErrorIs(t, err, ErrReportNotVerified)

	f.verifyReport(t, report.ID)

	_, err = f.svc.Dispute(report.ID, f.owner.ID, "short")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.Dispute(report.ID, f.attesters[0].ID, "Not my business but I object")
	assert.ErrorIs(t, err, ErrNotBusinessOwner)

	stored, err := f.reports.FindByID(report.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReportStatusVerified, stored.Status, "failed disputes leave the status")

	disputed, err := f.svc.Dispute(report.ID, f.owner.ID, "We delivered the refund already")
	require.NoError(t, err)
	assert.Equal(t, model.ReportStatusDisputed, disputed.Status)
	assert.True(t, disputed.HasGovDispute)

	_, err = f.svc.Dispute(report.ID, f.owner.ID, "We delivered the refund already")
	assert.ErrorIs(t, err, ErrReportNotVerified)

	// Disputed reports never go back to verified or pending.
	updated, err := f.svc.Attest(report.ID, f.attesters[3].ID, true, "")
	require.NoError(t, err)
	assert.Equal(t, model.ReportStatusDisputed, updated.Status)
}

func TestReportService_Listings(t *testing.T) {
	f := setupReportServiceTest(t)
	pending := f.fileReport(t)
	verified := f.fileReport(t)
	f.verifyReport(t, verified.ID)

	mine, err := f.svc.GetMyReports(f.reporter.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
	assert.Equal(t, "Trade 2", mine[0].BusinessTradeName)

	onMine, err := f.svc.GetReportsOnMyBusiness(f.owner.ID)
	require.NoError(t, err)
	assert.Len(t, onMine, 2)
	assert.Equal(t, "Business 1", onMine[0].ReporterBusinessName)

	none, err := f.svc.GetReportsOnMyBusiness("no-business")
	require.NoError(t, err)
	assert.Empty(t, none)

	public, err := f.svc.GetBusinessReports(f.target.GSTIN)
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, verified.ID, public[0].ID)
	assert.NotEqual(t, pending.ID, public[0].ID)

	_, err = f.svc.GetBusinessReports("bad")
	assert.ErrorIs(t, err, ErrInvalidGSTIN)
}

func TestReportService_GetReport(t *testing.T) {
	f := setupReportServiceTest(t)
	report := f.fileReport(t)
	_, err := f.svc.Attest(report.ID, f.attesters[0].ID, true, "Same here")
	require.NoError(t, err)

	detail, err := f.svc.GetReport(report.ID)
	require.NoError(t, err)
	assert.Equal(t, "Business 1", detail.ReporterBusinessName)
	require.Len(t, detail.Attestations, 1)
	assert.Equal(t, "Business 3", detail.Attestations[0].AttesterBusinessName)
	assert.Equal(t, "Same here", detail.Attestations[0].Comments)

	_, err = f.svc.GetReport("missing")
	assert.ErrorIs(t, err, ErrReportNotFound)
}

func TestReportService_ExportMyReports(t *testing.T) {
	f := setupReportServiceTest(t)
	report := f.fileReport(t)

	data, err := f.svc.ExportMyReports(f.reporter.ID)
	require.NoError(t, err)

	book, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer book.Close()

	rows, err := book.GetRows("Reports")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Report ID", rows[0][0])
	assert.Equal(t, report.ID, rows[1][0])
	assert.Equal(t, f.target.GSTIN, rows[1][1])
	assert.Equal(t, "pending", rows[1][6])
}

func TestReportService_CreateEvidenceUpload(t *testing.T) {
	f := setupServiceTest(t)
	evidence := &fakeEvidenceStorage{}
	svc := f.reportService(evidence)
	ctx := context.Background()

	upload, err := svc.CreateEvidenceUpload(ctx, "acc-1", "invoice.pdf", "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "evidence/acc-1", evidence.folder)
	assert.Contains(t, upload.UploadURL, "X-Amz-Signature")

	_, err = svc.CreateEvidenceUpload(ctx, "acc-1", "payload.exe", "application/x-msdownload")
	assert.ErrorIs(t, err, ErrInvalidFileType)

	evidence.err = errors.New("presign failed")
	_, err = svc.CreateEvidenceUpload(ctx, "acc-1", "photo.png", "image/png")
	assert.Error(t, err)

	_, err = f.reportService(nil).CreateEvidenceUpload(ctx, "acc-1", "photo.png", "image/png")
	assert.ErrorIs(t, err, ErrUploadsDisabled)
}
