package models

import (
	"time"

	"gorm.io/gorm"
)

type Payout struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	PartnerID uint   `gorm:"not null;index" json:"partner_id"`
	Reference string `gorm:"size:64;uniqueIndex;not null" json:"reference"` // public id, po-<uuid>

	AmountCents int64 `gorm:"not null" json:"amount_cents"`
	FeeCents    int64 `gorm:"not null" json:"fee_cents"`
	NetCents    int64 `gorm:"not null" json:"net_cents"`

	Status string `gorm:"size:20;not null;index" json:"status"` // PENDING, PROCESSING, COMPLETED, FAILED, CANCELLED
	Method string `gorm:"size:20;not null" json:"method"`       // GATEWAY | MANUAL

	// ExternalRef is the transfer id assigned by the gateway. Empty until the
	// transfer is initiated, and always empty for MANUAL payouts.
	ExternalRef   string `gorm:"size:128;index" json:"external_ref"`
	FailureReason string `gorm:"size:512" json:"failure_reason"`

	// Version guards concurrent transitions; every successful status update
	// increments it.
	Version int64 `gorm:"not null;default:1" json:"version"`

	RequestedAt time.Time      `gorm:"not null" json:"requested_at"`
	ProcessedAt *time.Time     `json:"processed_at"` // set once, on first entry into a terminal state
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	Partner Partner `gorm:"foreignKey:PartnerID" json:"-"`
}

func (Payout) TableName() string {
	return "payouts"
}
