package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Attestation is one business vouching for or against a report. An attester
// gets one attestation per report.
type Attestation struct {
	ID           string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	ReportID     string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_attestation_report_attester" json:"reportId"`
	AttesterID   string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_attestation_report_attester" json:"attesterId"`
	IsSupporting bool      `gorm:"not null" json:"isSupporting"`
	Comments     string    `gorm:"type:text" json:"comments,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`

	Attester *Account `gorm:"foreignKey:AttesterID;references:ID" json:"-"`
}

func (Attestation) TableName() string {
	return "attestations"
}

func (a *Attestation) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
