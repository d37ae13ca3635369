package models

import (
	"time"

	"gorm.io/gorm"
)

// Partner is a payout recipient. Rows are provisioned through the admin API
// (the referral portal is the usual caller); authentication happens upstream
// and arrives here as JWT claims.
type Partner struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	Name   string `gorm:"size:128;not null" json:"name"`
	Email  string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Status string `gorm:"size:20;not null;default:'ACTIVE'" json:"status"` // ACTIVE | SUSPENDED
	// PayoutAccount is the destination handle passed to the gateway
	// (mobile wallet, IBAN or provider account token).
	PayoutAccount string         `gorm:"size:128" json:"payout_account"`
	FCMToken      string         `gorm:"size:512" json:"-"` // For push notifications
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Partner) TableName() string {
	return "partners"
}
