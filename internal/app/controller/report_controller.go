package controller

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nidaro/nidaro-backend/internal/app/model"
	"github.com/nidaro/nidaro-backend/internal/app/service"
	"github.com/nidaro/nidaro-backend/internal/middleware"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ReportController struct {
	reportService service.ReportService
}

func NewReportController(reportService service.ReportService) *ReportController {
	return &ReportController{reportService: reportService}
}

type CreateReportRequest struct {
	ReportedBusinessGSTIN string               `json:"reportedBusinessGstin" binding:"required"`
	ReportType            string               `json:"reportType" binding:"required"`
	Title                 string               `json:"title" binding:"required"`
	Description           string               `json:"description" binding:"required"`
	Evidence              []model.EvidenceItem `json:"evidence"`
}

type AttestRequest struct {
	IsSupporting *bool  `json:"isSupporting" binding:"required"`
	Comments     string `json:"comments"`
}

type DisputeRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type EvidenceUploadRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"contentType" binding:"required"`
}

// CreateReport
// POST /reports
func (ctrl *ReportController) CreateReport(c *gin.Context) {
	accountID, ok := requireAccountID(c)
	if !ok {
		return
	}

	var req CreateReportRequest
	if !bindJSON(c, &req) {
		return
	}

	report, err := ctrl.reportService.CreateReport(accountID, service.CreateReportInput{
		ReportedBusinessGSTIN: req.ReportedBusinessGSTIN,
		ReportType:            req.ReportType,
		Title:                 req.Title,
		Description:           req.Description,
		Evidence:              req.Evidence,
	})
	if err != nil {
		respondServiceError(c, err, "create report")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Report submitted. It becomes public once other businesses attest it.",
		"report":  report,
	})
}

// GetMyReports
// GET /reports/my-reports
func (ctrl *ReportController) GetMyReports(c *gin.Context) {
	accountID, ok := requireAccountID(c)
	if !ok {
		return
	}

	reports, err := ctrl.reportService.GetMyReports(accountID)
	if err != nil {
		respondServiceError(c, err, "list my reports")
		return
	}
	respondReports(c, reports)
}

// ExportMyReports downloads the caller's reports as a spreadsheet
// GET /reports/my-reports/export
func (ctrl *ReportController) ExportMyReports(c *gin.Context) {
	accountID, ok := requireAccountID(c)
	if !ok {
		return
	}

	data, err := ctrl.reportService.ExportMyReports(accountID)
	if err != nil {
		respondServiceError(c, err, "export reports")
		return
	}

	filename := fmt.Sprintf("nidaro-reports-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// GetReportsOnMyBusiness
// GET /reports/on-my-business
func (ctrl *ReportController) GetReportsOnMyBusiness(c *gin.Context) {
	accountID, ok := requireAccountID(c)
	if !ok {
		return
	}

	reports, err := ctrl.reportService.GetReportsOnMyBusiness(accountID)
	if err != nil {
		respondServiceError(c, err, "list reports on my business")
		return
	}
	respondReports(c, reports)
}

// GetBusinessReports lists verified and disputed reports for a GSTIN
// GET /reports/business/:gstin
func (ctrl *ReportController) GetBusinessReports(c *gin.Context) {
	reports, err := ctrl.reportService.GetBusinessReports(c.Param("gstin"))
	if err != nil {
		respondServiceError(c, err, "list business reports")
		return
	}
	respondReports(c, reports)
}

// GetReport
// GET /reports/:id
func (ctrl *ReportController) GetReport(c *gin.Context) {
	report, err := ctrl.reportService.GetReport(c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "get report")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"report":  report,
	})
}

// Attest
// POST /reports/:id/attest
func (ctrl *ReportController) Attest(c *gin.Context) {
	accountID, ok := requireAccountID(c)
	if !ok {
		return
	}

	var req AttestRequest
	if !bindJSON(c, &req) {
		return
	}

	report, err := ctrl.reportService.Attest(c.Param("id"), accountID, *req.IsSupporting, req.Comments)
	if err != nil {
		respondServiceError(c, err, "attest report")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Attestation recorded",
		"report":  report,
	})
}

// Dispute
// PATCH /reports/:id/dispute
func (ctrl *ReportController) Dispute(c *gin.Context) {
	accountID, ok := requireAccountID(c)
	if !ok {
		return
	}

	var req DisputeRequest
	if !bindJSON(c, &req) {
		return
	}

	report, err := ctrl.reportService.Dispute(c.Param("id"), accountID, req.Reason)
	if err != nil {
		respondServiceError(c, err, "dispute report")
		return
	}

	middleware.GetLoggerFromContext(c).Info("Report disputed by business owner", map[string]interface{}{
		"report_id":  report.ID,
		"account_id": accountID,
	})

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Dispute recorded",
		"report":  report,
	})
}

// CreateEvidenceUpload returns a presigned PUT URL for an evidence file
// POST /reports/evidence/upload-url
func (ctrl *ReportController) CreateEvidenceUpload(c *gin.Context) {
	accountID, ok := requireAccountID(c)
	if !ok {
		return
	}

	var req EvidenceUploadRequest
	if !bindJSON(c, &req) {
		return
	}

	upload, err := ctrl.reportService.CreateEvidenceUpload(c.Request.Context(), accountID, req.Filename, req.ContentType)
	if err != nil {
		respondServiceError(c, err, "create evidence upload")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"upload":  upload,
	})
}

func respondReports(c *gin.Context, reports []service.ReportView) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"reports": reports,
		"count":   len(reports),
	})
}
