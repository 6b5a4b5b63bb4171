package repository

import (
	"errors"
	"strings"

	"github.com/nidaro/nidaro-backend/internal/app/model"
	"github.com/nidaro/nidaro-backend/pkg/logger"
	"gorm.io/gorm"
)

// businessRefreshColumns are the portal-sourced fields rewritten on refetch.
var businessRefreshColumns = []string{
	"legal_name",
	"trade_name",
	"status",
	"constitution",
	"registration_date",
	"address",
	"nature_of_business",
	"goods_services_json",
	"updated_at",
}

type BusinessSearchType string

const (
	SearchByName   BusinessSearchType = "name"
	SearchByGSTIN  BusinessSearchType = "gstin"
	SearchByPAN    BusinessSearchType = "pan"
	SearchByMobile BusinessSearchType = "mobile"
)

// BusinessSearchRow is a business joined with its owner account.
type BusinessSearchRow struct {
	GSTIN             string `json:"gstin"`
	LegalName         string `json:"legalName"`
	TradeName         string `json:"tradeName"`
	Status            string `json:"status"`
	Constitution      string `json:"constitution"`
	RegistrationDate  string `json:"registrationDate"`
	Address           string `json:"address"`
	NatureOfBusiness  string `json:"natureOfBusiness"`
	OwnerBusinessName string `json:"businessName"`
	OwnerMobileNo     string `json:"mobileNo"`
}

type BusinessRepository interface {
	FindByGSTIN(gstin string) (*model.BusinessDetails, error)
	FindByUserID(userID string) (*model.BusinessDetails, error)
	Search(searchType BusinessSearchType, value string, limit int) ([]BusinessSearchRow, error)
	CountReportsByGSTIN(gstins []string) (map[string]int64, error)
	UpdateRegistration(details *model.BusinessDetails) error
}

type businessRepository struct {
	db *gorm.DB
}

func NewBusinessRepository(db *gorm.DB) BusinessRepository {
	return &businessRepository{db: db}
}

func (r *businessRepository) FindByGSTIN(gstin string) (*model.BusinessDetails, error) {
	var details model.BusinessDetails
	if err := r.db.Where("gstin = ?", gstin).First(&details).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find business by GSTIN", err, map[string]interface{}{
				"gstin": gstin,
			})
		}
		return nil, err
	}
	return &details, nil
}

func (r *businessRepository) FindByUserID(userID string) (*model.BusinessDetails, error) {
	var details model.BusinessDetails
	if err := r.db.Where("user_id = ?", userID).First(&details).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find business by owner", err, map[string]interface{}{
				"user_id": userID,
			})
		}
		return nil, err
	}
	return &details, nil
}

func (r *businessRepository) Search(searchType BusinessSearchType, value string, limit int) ([]BusinessSearchRow, error) {
	logger.Debug("Searching businesses", map[string]interface{}{
		"type": searchType,
	})

	query := r.db.Table("business_details AS bd").
		Select(`bd.gstin, bd.legal_name, bd.trade_name, bd.status, bd.constitution,
			bd.registration_date, bd.address, bd.nature_of_business,
			a.business_name AS owner_business_name, a.mobile_no AS owner_mobile_no`).
		Joins("JOIN accounts AS a ON a.id = bd.user_id")

	switch searchType {
	case SearchByGSTIN:
		query = query.Where("bd.gstin = ?", value)
	case SearchByPAN:
		query = query.Where("a.user_pan = ?", value)
	case SearchByMobile:
		query = query.Where("a.mobile_no = ? OR a.user_pan_mobile = ?", value, value)
	case SearchByName:
		pattern := "%" + escapeLike(strings.ToLower(value)) + "%"
		query = query.Where(
			`LOWER(bd.legal_name) LIKE ? ESCAPE '\' OR LOWER(bd.trade_name) LIKE ? ESCAPE '\' OR LOWER(a.business_name) LIKE ? ESCAPE '\'`,
			pattern, pattern, pattern,
		)
	default:
		return nil, errors.New("unsupported search type")
	}

	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []BusinessSearchRow
	if err := query.Order("bd.legal_name").Scan(&rows).Error; err != nil {
		logger.Error("Failed to search businesses", err, map[string]interface{}{
			"type": searchType,
		})
		return nil, err
	}
	return rows, nil
}

func (r *businessRepository) CountReportsByGSTIN(gstins []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(gstins))
	if len(gstins) == 0 {
		return counts, nil
	}

	var rows []struct {
		ReportedBusinessGSTIN string
		Count                 int64
	}
	err := r.db.Model(&model.Report{}).
		Select("reported_business_gstin, COUNT(*) AS count").
		Where("reported_business_gstin IN ?", gstins).
		Group("reported_business_gstin").
		Scan(&rows).Error
	if err != nil {
		logger.Error("Failed to count reports by GSTIN", err, nil)
		return nil, err
	}

	for _, row := range rows {
		counts[row.ReportedBusinessGSTIN] = row.Count
	}
	return counts, nil
}

// UpdateRegistration rewrites the portal-sourced fields. Ownership and GSTIN are not touched.
func (r *businessRepository) UpdateRegistration(details *model.BusinessDetails) error {
	logger.Debug("Updating business registration", map[string]interface{}{
		"gstin": details.GSTIN,
	})

	result := r.db.Model(&model.BusinessDetails{}).
		Where("id = ?", details.ID).
		Select(businessRefreshColumns).
		Updates(details)
	if result.Error != nil {
		logger.Error("Failed to update business registration", result.Error, map[string]interface{}{
			"gstin": details.GSTIN,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
