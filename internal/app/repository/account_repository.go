package repository

import (
	"errors"

	"github.com/nidaro/nidaro-backend/internal/app/model"
	"github.com/nidaro/nidaro-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AccountRepository interface {
	Create(account *model.Account) error
	FindByID(id string) (*model.Account, error)
	FindByMobile(mobileNo string) (*model.Account, error)
	FindByPAN(pan string) (*model.Account, error)
	Update(account *model.Account) error
	// CompleteVerification saves the verified account and its business record atomically.
	CompleteVerification(account *model.Account, details *model.BusinessDetails) error
}

type accountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Create(account *model.Account) error {
	logger.Debug("Creating account in database", map[string]interface{}{
		"mobile_no": account.MobileNo,
	})

	if err := r.db.Create(account).Error; err != nil {
		logger.Error("Failed to create account in database", err, map[string]interface{}{
			"mobile_no": account.MobileNo,
		})
		return err
	}

	logger.Debug("Account created in database", map[string]interface{}{
		"account_id": account.ID,
	})
	return nil
}

func (r *accountRepository) FindByID(id string) (*model.Account, error) {
	var account model.Account
	if err := r.db.Where("id = ?", id).First(&account).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find account by ID", err, map[string]interface{}{
				"account_id": id,
			})
		}
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) FindByMobile(mobileNo string) (*model.Account, error) {
	logger.Debug("Finding account by mobile in database", map[string]interface{}{
		"mobile_no": mobileNo,
	})

	var account model.Account
	if err := r.db.Where("mobile_no = ?", mobileNo).First(&account).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find account by mobile", err, map[string]interface{}{
				"mobile_no": mobileNo,
			})
		}
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) FindByPAN(pan string) (*model.Account, error) {
	var account model.Account
	if err := r.db.Where("user_pan = ?", pan).First(&account).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find account by PAN", err, nil)
		}
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) Update(account *model.Account) error {
	logger.Debug("Updating account in database", map[string]interface{}{
		"account_id": account.ID,
		"phase":      account.VerificationPhase,
	})

	if err := r.db.Save(account).Error; err != nil {
		logger.Error("Failed to update account in database", err, map[string]interface{}{
			"account_id": account.ID,
		})
		return err
	}
	return nil
}

func (r *accountRepository) CompleteVerification(account *model.Account, details *model.BusinessDetails) error {
	logger.Debug("Completing account verification", map[string]interface{}{
		"account_id": account.ID,
		"gstin":      details.GSTIN,
	})

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(account).Error; err != nil {
			return err
		}
		details.UserID = account.ID
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "gstin"}},
			DoUpdates: clause.AssignmentColumns(businessRefreshColumns),
		}).Create(details).Error
	})
	if err != nil {
		logger.Error("Failed to complete account verification", err, map[string]interface{}{
			"account_id": account.ID,
		})
		return err
	}
	return nil
}
