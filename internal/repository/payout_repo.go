package repository

import (
	"context"
	"errors"
	"time"

	"refpay/internal/domain"
	"refpay/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var openStatuses = []string{domain.PayoutStatusPending, domain.PayoutStatusProcessing}

type payoutRepository struct {
	db *gorm.DB
}

func NewPayoutRepository(db *gorm.DB) PayoutRepository {
	return &payoutRepository{db: db}
}

// Create inserts a PENDING payout inside a transaction that holds the partner
// row FOR UPDATE. The lock serializes concurrent requests for the same
// partner, so the in-flight and balance re-checks here are authoritative.
func (r *payoutRepository) Create(ctx context.Context, p *models.Payout) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var partner models.Partner
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&partner, p.PartnerID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrPartnerNotFound
		}
		if err != nil {
			return err
		}

		var open int64
		if err := tx.Model(&models.Payout{}).
			Where("partner_id = ? AND status IN ?", p.PartnerID, openStatuses).
			Count(&open).Error; err != nil {
			return err
		}
		if open > 0 {
			return domain.NewRejection(domain.CodePayoutInFlight, "partner already has a payout in flight")
		}

		available, err := availableBalanceTx(tx, p.PartnerID)
		if err != nil {
			return err
		}
		if p.AmountCents > available {
			return domain.NewRejection(domain.CodeInsufficientBalance,
				"requested %d exceeds available balance %d", p.AmountCents, available)
		}

		return tx.Create(p).Error
	})
}

// availableBalanceTx computes confirmed commissions minus every payout that
// has consumed or is holding funds (PENDING, PROCESSING, COMPLETED).
func availableBalanceTx(tx *gorm.DB, partnerID uint) (int64, error) {
	var earned int64
	if err := tx.Model(&models.Commission{}).
		Where("partner_id = ? AND status = ?", partnerID, domain.CommissionStatusConfirmed).
		Select("COALESCE(SUM(amount_cents), 0)").Scan(&earned).Error; err != nil {
		return 0, err
	}
	var committed int64
	if err := tx.Model(&models.Payout{}).
		Where("partner_id = ? AND status IN ?", partnerID,
			[]string{domain.PayoutStatusPending, domain.PayoutStatusProcessing, domain.PayoutStatusCompleted}).
		Select("COALESCE(SUM(amount_cents), 0)").Scan(&committed).Error; err != nil {
		return 0, err
	}
	return earned - committed, nil
}

func (r *payoutRepository) GetByID(ctx context.Context, id uint) (*models.Payout, error) {
	var p models.Payout
	err := r.db.WithContext(ctx).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrPayoutNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *payoutRepository) GetByReference(ctx context.Context, reference string) (*models.Payout, error) {
	var p models.Payout
	err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrPayoutNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *payoutRepository) GetByExternalRef(ctx context.Context, externalRef string) (*models.Payout, error) {
	var p models.Payout
	err := r.db.WithContext(ctx).Where("external_ref = ?", externalRef).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrPayoutNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *payoutRepository) ListByPartner(ctx context.Context, partnerID uint, status string, page, limit int) ([]models.Payout, int64, error) {
	return r.List(ctx, PayoutFilter{PartnerID: partnerID, Status: status, Page: page, Limit: limit})
}

func (r *payoutRepository) List(ctx context.Context, f PayoutFilter) ([]models.Payout, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Payout{})
	if f.PartnerID != 0 {
		q = q.Where("partner_id = ?", f.PartnerID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}

	var list []models.Payout
	err := q.Order("created_at DESC").
		Offset((f.Page - 1) * f.Limit).
		Limit(f.Limit).
		Find(&list).Error
	return list, total, err
}

func (r *payoutRepository) ListProcessingOlderThan(ctx context.Context, cutoff time.Time) ([]models.Payout, error) {
	var list []models.Payout
	err := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", domain.PayoutStatusProcessing, cutoff).
		Order("updated_at ASC").
		Find(&list).Error
	return list, err
}

func (r *payoutRepository) HasOpenPayout(ctx context.Context, partnerID uint) (bool, error) {
	var open int64
	err := r.db.WithContext(ctx).Model(&models.Payout{}).
		Where("partner_id = ? AND status IN ?", partnerID, openStatuses).
		Count(&open).Error
	return open > 0, err
}

func (r *payoutRepository) SumCommittedCents(ctx context.Context, partnerID uint) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).Model(&models.Payout{}).
		Where("partner_id = ? AND status IN ?", partnerID,
			[]string{domain.PayoutStatusPending, domain.PayoutStatusProcessing, domain.PayoutStatusCompleted}).
		Select("COALESCE(SUM(amount_cents), 0)").Scan(&sum).Error
	return sum, err
}

// UpdateStatusCAS is the only write path for payout state. The WHERE clause
// carries the version the caller read; zero rows affected means another
// writer got there first.
func (r *payoutRepository) UpdateStatusCAS(ctx context.Context, id uint, fromVersion int64, updates map[string]interface{}) (bool, error) {
	updates["version"] = fromVersion + 1
	res := r.db.WithContext(ctx).Model(&models.Payout{}).
		Where("id = ? AND version = ?", id, fromVersion).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
