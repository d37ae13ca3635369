package repository

import (
	"context"
	"errors"
	"time"

	"refpay/internal/domain"
	"refpay/internal/models"

	"gorm.io/gorm"
)

var ErrDuplicateSourceRef = errors.New("commission source ref already recorded")

type commissionRepository struct {
	db *gorm.DB
}

func NewCommissionRepository(db *gorm.DB) CommissionRepository {
	return &commissionRepository{db: db}
}

func (r *commissionRepository) Create(ctx context.Context, c *models.Commission) error {
	err := r.db.WithContext(ctx).Create(c).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateSourceRef
	}
	return err
}

func (r *commissionRepository) GetBySourceRef(ctx context.Context, sourceRef string) (*models.Commission, error) {
	var c models.Commission
	err := r.db.WithContext(ctx).Where("source_ref = ?", sourceRef).First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *commissionRepository) UpdateStatus(ctx context.Context, id uint, status string) error {
	updates := map[string]interface{}{"status": status}
	if status == domain.CommissionStatusConfirmed {
		now := time.Now()
		updates["confirmed_at"] = &now
	}
	return r.db.WithContext(ctx).Model(&models.Commission{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *commissionRepository) ListByPartner(ctx context.Context, partnerID uint, page, limit int) ([]models.Commission, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Commission{}).Where("partner_id = ?", partnerID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	var list []models.Commission
	err := q.Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&list).Error
	return list, total, err
}

func (r *commissionRepository) SumConfirmedCents(ctx context.Context, partnerID uint) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).Model(&models.Commission{}).
		Where("partner_id = ? AND status = ?", partnerID, domain.CommissionStatusConfirmed).
		Select("COALESCE(SUM(amount_cents), 0)").Scan(&sum).Error
	return sum, err
}
