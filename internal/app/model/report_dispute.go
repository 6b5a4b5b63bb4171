package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReportDispute struct {
	ID         string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	ReportID   string    `gorm:"type:varchar(36);uniqueIndex;not null" json:"reportId"`
	DisputedBy string    `gorm:"type:varchar(36);not null" json:"disputedBy"`
	Reason     string    `gorm:"type:text;not null" json:"reason"`
	CreatedAt  time.Time `json:"disputedAt"`
}

func (ReportDispute) TableName() string {
	return "report_disputes"
}

func (d *ReportDispute) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}
