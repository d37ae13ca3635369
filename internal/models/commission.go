package models

import (
	"time"

	"gorm.io/gorm"
)

// Commission is an earning credited to a partner. Confirmed commissions minus
// payout holds make up the partner's available balance; the rows are
// append-only and status changes are the only mutation.
type Commission struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	PartnerID   uint   `gorm:"not null;index" json:"partner_id"`
	SourceRef   string `gorm:"size:128;uniqueIndex;not null" json:"source_ref"` // upstream order/transaction id, makes recording idempotent
	AmountCents int64  `gorm:"not null" json:"amount_cents"`
	Status      string `gorm:"size:20;not null;index" json:"status"` // PENDING, CONFIRMED, REVERSED
	Description string `gorm:"size:255" json:"description"`

	ConfirmedAt *time.Time     `json:"confirmed_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	Partner Partner `gorm:"foreignKey:PartnerID" json:"-"`
}

func (Commission) TableName() string {
	return "commissions"
}
