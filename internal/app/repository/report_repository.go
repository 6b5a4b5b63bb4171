package repository

import (
	"errors"

	"github.com/nidaro/nidaro-backend/internal/app/model"
	"github.com/nidaro/nidaro-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrReportStateChanged is returned when a conditional update matched no row.
	ErrReportStateChanged = errors.New("report state changed")
)

type ReportStatusCount struct {
	Status model.ReportStatus
	Count  int64
}

type ReportRepository interface {
	Create(report *model.Report) error
	FindByID(id string) (*model.Report, error)
	FindByIDWithDetails(id string) (*model.Report, error)
	FindByReporter(reporterID string) ([]model.Report, error)
	CountByReporter(reporterID string) (int64, error)
	FindByBusinessGSTIN(gstin string, statuses ...model.ReportStatus) ([]model.Report, error)
	FindAttestation(reportID, attesterID string) (*model.Attestation, error)
	// CreateAttestation inserts the attestation and bumps the counter in one
	// transaction. A pending report becomes verified when the count reaches the
	// threshold stored on the report.
	CreateAttestation(attestation *model.Attestation) (*model.Report, error)
	// Dispute flips a verified report to disputed and records the dispute.
	Dispute(dispute *model.ReportDispute) (*model.Report, error)
	CountByStatus() ([]ReportStatusCount, error)
}

type reportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) Create(report *model.Report) error {
	logger.Debug("Creating report in database", map[string]interface{}{
		"reporter_id": report.ReporterID,
		"gstin":       report.ReportedBusinessGSTIN,
	})

	if err := r.db.Create(report).Error; err != nil {
		logger.Error("Failed to create report in database", err, map[string]interface{}{
			"reporter_id": report.ReporterID,
		})
		return err
	}

	logger.Debug("Report created in database", map[string]interface{}{
		"report_id": report.ID,
	})
	return nil
}

func (r *reportRepository) FindByID(id string) (*model.Report, error) {
	var report model.Report
	if err := r.db.Where("id = ?", id).First(&report).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find report by ID", err, map[string]interface{}{
				"report_id": id,
			})
		}
		return nil, err
	}
	return &report, nil
}

func (r *reportRepository) FindByIDWithDetails(id string) (*model.Report, error) {
	var report model.Report
	err := r.db.
		Preload("Attestations", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Dispute").
		Where("id = ?", id).
		First(&report).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find report with details", err, map[string]interface{}{
				"report_id": id,
			})
		}
		return nil, err
	}
	return &report, nil
}

func (r *reportRepository) FindByReporter(reporterID string) ([]model.Report, error) {
	var reports []model.Report
	if err := r.db.Where("reporter_id = ?", reporterID).Order("created_at DESC").Find(&reports).Error; err != nil {
		logger.Error("Failed to find reports by reporter", err, map[string]interface{}{
			"reporter_id": reporterID,
		})
		return nil, err
	}
	return reports, nil
}

func (r *reportRepository) CountByReporter(reporterID string) (int64, error) {
	var count int64
	if err := r.db.Model(&model.Report{}).Where("reporter_id = ?", reporterID).Count(&count).Error; err != nil {
		logger.Error("Failed to count reports by reporter", err, map[string]interface{}{
			"reporter_id": reporterID,
		})
		return 0, err
	}
	return count, nil
}

func (r *reportRepository) FindByBusinessGSTIN(gstin string, statuses ...model.ReportStatus) ([]model.Report, error) {
	query := r.db.Where("reported_business_gstin = ?", gstin)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}

	var reports []model.Report
	if err := query.Order("created_at DESC").Find(&reports).Error; err != nil {
		logger.Error("Failed to find reports by business", err, map[string]interface{}{
			"gstin": gstin,
		})
		return nil, err
	}
	return reports, nil
}

func (r *reportRepository) FindAttestation(reportID, attesterID string) (*model.Attestation, error) {
	var attestation model.Attestation
	err := r.db.Where("report_id = ? AND attester_id = ?", reportID, attesterID).First(&attestation).Error
	if err != nil {
		return nil, err
	}
	return &attestation, nil
}

func (r *reportRepository) CreateAttestation(attestation *model.Attestation) (*model.Report, error) {
	logger.Debug("Creating attestation", map[string]interface{}{
		"report_id":   attestation.ReportID,
		"attester_id": attestation.AttesterID,
	})

	var updated model.Report
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(attestation).Error; err != nil {
			return err
		}

		result := tx.Model(&model.Report{}).
			Where("id = ?", attestation.ReportID).
			Updates(map[string]interface{}{
				"attestations_count": gorm.Expr("attestations_count + 1"),
				"status": gorm.Expr(
					"CASE WHEN status = ? AND attestations_count + 1 >= min_attestations_required THEN ? ELSE status END",
					model.ReportStatusPending, model.ReportStatusVerified,
				),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		return tx.Where("id = ?", attestation.ReportID).First(&updated).Error
	})
	if err != nil {
		logger.Error("Failed to create attestation", err, map[string]interface{}{
			"report_id":   attestation.ReportID,
			"attester_id": attestation.AttesterID,
		})
		return nil, err
	}

	logger.Debug("Attestation recorded", map[string]interface{}{
		"report_id":          updated.ID,
		"attestations_count": updated.AttestationsCount,
		"status":             updated.Status,
	})
	return &updated, nil
}

func (r *reportRepository) Dispute(dispute *model.ReportDispute) (*model.Report, error) {
	var updated model.Report
	err := r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.Report{}).
			Where("id = ? AND status = ?", dispute.ReportID, model.ReportStatusVerified).
			Updates(map[string]interface{}{
				"status":          model.ReportStatusDisputed,
				"has_gov_dispute": true,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrReportStateChanged
		}

		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(dispute).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", dispute.ReportID).First(&updated).Error
	})
	if err != nil {
		if !errors.Is(err, ErrReportStateChanged) {
			logger.Error("Failed to dispute report", err, map[string]interface{}{
				"report_id": dispute.ReportID,
			})
		}
		return nil, err
	}
	return &updated, nil
}

func (r *reportRepository) CountByStatus() ([]ReportStatusCount, error) {
	var counts []ReportStatusCount
	err := r.db.Model(&model.Report{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&counts).Error
	if err != nil {
		logger.Error("Failed to count reports by status", err, nil)
		return nil, err
	}
	return counts, nil
}
