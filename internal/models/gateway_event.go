package models

import (
	"time"
)

// GatewayEvent is the durable receipt for a webhook delivery from the payout
// gateway. The unique EventID makes redeliveries detectable; Applied flips to
// true only after the event's effect has been applied (or decided to be a
// no-op), so a crash between receipt and apply leaves a row a redelivery can
// finish.
type GatewayEvent struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	EventID     string `gorm:"size:128;uniqueIndex;not null" json:"event_id"`
	Kind        string `gorm:"size:40;not null" json:"kind"`
	ExternalRef string `gorm:"size:128;index" json:"external_ref"`
	PayoutRef   string `gorm:"size:64;index" json:"payout_ref"` // empty when the external ref matched no payout

	Applied bool   `gorm:"not null;default:false" json:"applied"`
	Result  string `gorm:"size:64" json:"result"` // APPLIED, DUPLICATE, IGNORED: <reason>
	Payload string `gorm:"type:text" json:"-"`    // raw body as delivered, for audit

	OccurredAt  time.Time  `json:"occurred_at"` // gateway's event timestamp
	ProcessedAt *time.Time `json:"processed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (GatewayEvent) TableName() string {
	return "gateway_events"
}
