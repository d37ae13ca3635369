package repository

import (
	"context"
	"time"

	"refpay/internal/models"
)

// PayoutFilter narrows admin payout listings.
type PayoutFilter struct {
	PartnerID uint   // 0 = all partners
	Status    string // empty = all statuses
	Page      int
	Limit     int
}

type PartnerRepository interface {
	Create(ctx context.Context, p *models.Partner) error
	GetByID(ctx context.Context, id uint) (*models.Partner, error)
	List(ctx context.Context, page, limit int) ([]models.Partner, int64, error)
	UpdateFCMToken(ctx context.Context, id uint, token string) error
}

type PayoutRepository interface {
	// Create inserts a PENDING payout. It locks the partner row for the
	// duration of the transaction and re-checks the single-open-payout rule
	// and the available balance before inserting, so concurrent requests for
	// one partner serialize here.
	Create(ctx context.Context, p *models.Payout) error
	GetByID(ctx context.Context, id uint) (*models.Payout, error)
	GetByReference(ctx context.Context, reference string) (*models.Payout, error)
	GetByExternalRef(ctx context.Context, externalRef string) (*models.Payout, error)
	ListByPartner(ctx context.Context, partnerID uint, status string, page, limit int) ([]models.Payout, int64, error)
	List(ctx context.Context, f PayoutFilter) ([]models.Payout, int64, error)
	ListProcessingOlderThan(ctx context.Context, cutoff time.Time) ([]models.Payout, error)

	// HasOpenPayout reports whether the partner has a payout in PENDING or
	// PROCESSING.
	HasOpenPayout(ctx context.Context, partnerID uint) (bool, error)
	// SumCommittedCents totals payouts that consumed or are holding funds
	// (PENDING, PROCESSING, COMPLETED).
	SumCommittedCents(ctx context.Context, partnerID uint) (int64, error)

	// UpdateStatusCAS applies updates plus a version bump guarded by
	// WHERE id = ? AND version = ?. Returns false when the guard missed.
	UpdateStatusCAS(ctx context.Context, id uint, fromVersion int64, updates map[string]interface{}) (bool, error)
}

type CommissionRepository interface {
	Create(ctx context.Context, c *models.Commission) error
	GetBySourceRef(ctx context.Context, sourceRef string) (*models.Commission, error)
	UpdateStatus(ctx context.Context, id uint, status string) error
	ListByPartner(ctx context.Context, partnerID uint, page, limit int) ([]models.Commission, int64, error)
	SumConfirmedCents(ctx context.Context, partnerID uint) (int64, error)
}

type GatewayEventRepository interface {
	Create(ctx context.Context, e *models.GatewayEvent) error
	GetByEventID(ctx context.Context, eventID string) (*models.GatewayEvent, error)
	MarkProcessed(ctx context.Context, id uint, applied bool, result, payoutRef string) error
}

type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByPartnerID(ctx context.Context, partnerID uint, limit, offset int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, partnerID uint) error
}
