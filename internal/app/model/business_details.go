package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BusinessDetails is the registration record pulled from the GST portal for a verified account.
type BusinessDetails struct {
	ID                string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID            string    `gorm:"type:varchar(36);uniqueIndex;not null" json:"userId"`
	GSTIN             string    `gorm:"column:gstin;type:varchar(15);uniqueIndex;not null" json:"gstin"`
	LegalName         string    `json:"legalName"`
	TradeName         string    `json:"tradeName"`
	Status            string    `json:"status"`
	Constitution      string    `json:"constitution"`
	RegistrationDate  string    `json:"registrationDate"`
	Address           string    `gorm:"type:text" json:"address"`
	NatureOfBusiness  string    `gorm:"type:text" json:"natureOfBusiness"`
	GoodsServicesJSON string    `gorm:"column:goods_services_json;type:text" json:"-"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

func (BusinessDetails) TableName() string {
	return "business_details"
}

func (b *BusinessDetails) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}
