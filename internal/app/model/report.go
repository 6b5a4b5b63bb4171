package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReportType string

const (
	ReportTypeMoney    ReportType = "money"
	ReportTypeNonMoney ReportType = "non_money"
)

func (t ReportType) Valid() bool {
	return t == ReportTypeMoney || t == ReportTypeNonMoney
}

type ReportStatus string

const (
	ReportStatusPending  ReportStatus = "pending"
	ReportStatusVerified ReportStatus = "verified"
	ReportStatusDisputed ReportStatus = "disputed"
)

type EvidenceType string

const (
	EvidenceDocument EvidenceType = "document"
	EvidenceImage    EvidenceType = "image"
	EvidenceURL      EvidenceType = "url"
)

func (t EvidenceType) Valid() bool {
	switch t {
	case EvidenceDocument, EvidenceImage, EvidenceURL:
		return true
	}
	return false
}

type EvidenceItem struct {
	Type        EvidenceType `json:"type"`
	URL         string       `json:"url"`
	Description string       `json:"description,omitempty"`
}

// Report is a fraud report filed by one verified business against another.
type Report struct {
	ID                      string       `gorm:"type:varchar(36);primaryKey" json:"id"`
	ReporterID              string       `gorm:"type:varchar(36);index;not null" json:"reporterId"`
	ReportedBusinessGSTIN   string       `gorm:"column:reported_business_gstin;type:varchar(15);index;not null" json:"reportedBusinessGstin"`
	ReportType              ReportType   `gorm:"type:varchar(20);not null" json:"reportType"`
	Title                   string       `gorm:"type:varchar(255);not null" json:"title"`
	Description             string       `gorm:"type:text;not null" json:"description"`
	EvidenceJSON            string       `gorm:"column:evidence_json;type:text" json:"-"`
	Status                  ReportStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	AttestationsCount       int          `gorm:"not null;default:0" json:"attestationsCount"`
	MinAttestationsRequired int          `gorm:"not null;default:3" json:"minAttestationsRequired"`
	HasGovDispute           bool         `gorm:"not null;default:false" json:"hasGovDispute"`
	CreatedAt               time.Time    `json:"createdAt"`
	UpdatedAt               time.Time    `json:"updatedAt"`

	Reporter     *Account       `gorm:"foreignKey:ReporterID;references:ID" json:"-"`
	Attestations []Attestation  `gorm:"foreignKey:ReportID" json:"attestations,omitempty"`
	Dispute      *ReportDispute `gorm:"foreignKey:ReportID" json:"dispute,omitempty"`
}

func (Report) TableName() string {
	return "reports"
}

func (r *Report) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = ReportStatusPending
	}
	return nil
}

// Evidence decodes the stored evidence list. Malformed rows yield an empty list.
func (r *Report) Evidence() []EvidenceItem {
	if r.EvidenceJSON == "" {
		return []EvidenceItem{}
	}
	var items []EvidenceItem
	if err := json.Unmarshal([]byte(r.EvidenceJSON), &items); err != nil {
		return []EvidenceItem{}
	}
	return items
}

func (r *Report) SetEvidence(items []EvidenceItem) error {
	if items == nil {
		items = []EvidenceItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	r.EvidenceJSON = string(data)
	return nil
}

// PubliclyVisible reports whether the report may be listed against the business.
func (r *Report) PubliclyVisible() bool {
	return r.Status == ReportStatusVerified || r.Status == ReportStatusDisputed
}
