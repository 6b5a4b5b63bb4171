package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VerificationPhase tracks how far an account has progressed through signup.
type VerificationPhase int

const (
	PhaseNone           VerificationPhase = 0 // no account
	PhaseMobilePending  VerificationPhase = 1 // OTP issued, pending signup held in redis
	PhaseMobileVerified VerificationPhase = 2 // mobile verified, account row exists
	PhasePANVerified    VerificationPhase = 3 // PAN fields recorded
	PhaseGSTINResolved  VerificationPhase = 4 // registration candidates found
	PhaseDetailsPending VerificationPhase = 5 // detail challenge issued
	PhaseVerified       VerificationPhase = 6 // terminal
)

func (p VerificationPhase) Valid() bool {
	return p >= PhaseNone && p <= PhaseVerified
}

type Account struct {
	ID                string            `gorm:"type:varchar(36);primaryKey" json:"id"`
	BusinessName      string            `gorm:"type:varchar(255);not null" json:"businessName"`
	MobileNo          string            `gorm:"type:varchar(20);uniqueIndex;not null" json:"mobileNo"` // normalized +91XXXXXXXXXX
	PasswordHash      string            `gorm:"not null" json:"-"`
	VerificationPhase VerificationPhase `gorm:"not null;default:0" json:"verificationPhase"`
	IsVerified        bool              `gorm:"not null;default:false" json:"isVerified"`
	UserPAN           *string           `gorm:"column:user_pan;type:varchar(10);uniqueIndex" json:"-"`
	UserPANName       string            `gorm:"column:user_pan_name" json:"-"`
	UserDOB           string            `gorm:"column:user_dob;type:varchar(10)" json:"-"` // YYYY-MM-DD
	UserPANMobile     string            `gorm:"column:user_pan_mobile;type:varchar(20);index" json:"-"`
	GSTIN             *string           `gorm:"column:gstin;type:varchar(15);uniqueIndex" json:"-"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`

	Business *BusinessDetails `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"business,omitempty"`
}

func (Account) TableName() string {
	return "accounts"
}

func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// PANInfo is the PAN holder data recorded at phase 3.
type PANInfo struct {
	PAN         string `json:"userPan"`
	HolderName  string `json:"userPanName"`
	DateOfBirth string `json:"userDOB"`
	PANMobile   string `json:"userPanMob"`
}

// PANInfo returns the recorded PAN fields, only once the PAN step has completed.
func (a *Account) PANInfo() (PANInfo, bool) {
	if a.VerificationPhase < PhasePANVerified || a.UserPAN == nil {
		return PANInfo{}, false
	}
	return PANInfo{
		PAN:         *a.UserPAN,
		HolderName:  a.UserPANName,
		DateOfBirth: a.UserDOB,
		PANMobile:   a.UserPANMobile,
	}, true
}

// VerifiedGSTIN returns the registration number, only on verified accounts.
func (a *Account) VerifiedGSTIN() (string, bool) {
	if a.VerificationPhase != PhaseVerified || a.GSTIN == nil {
		return "", false
	}
	return *a.GSTIN, true
}

// ResetForSignup reapplies a fresh mobile verification to an account that never
// got past it. Anything beyond phase 1 is left untouched.
func (a *Account) ResetForSignup(businessName, passwordHash string) bool {
	if a.VerificationPhase > PhaseMobilePending {
		return false
	}
	a.BusinessName = businessName
	a.PasswordHash = passwordHash
	a.VerificationPhase = PhaseMobileVerified
	a.IsVerified = false
	return true
}

// RecordPAN moves a mobile-verified account to phase 3.
func (a *Account) RecordPAN(info PANInfo) bool {
	if a.VerificationPhase != PhaseMobileVerified {
		return false
	}
	pan := info.PAN
	a.UserPAN = &pan
	a.UserPANName = info.HolderName
	a.UserDOB = info.DateOfBirth
	a.UserPANMobile = info.PANMobile
	a.VerificationPhase = PhasePANVerified
	return true
}

// MarkVerified completes signup with the resolved GSTIN.
func (a *Account) MarkVerified(gstin string) bool {
	if a.VerificationPhase < PhasePANVerified || a.VerificationPhase == PhaseVerified {
		return false
	}
	a.GSTIN = &gstin
	a.VerificationPhase = PhaseVerified
	a.IsVerified = true
	return true
}
