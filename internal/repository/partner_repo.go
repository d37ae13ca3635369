package repository

import (
	"context"
	"errors"

	"refpay/internal/domain"
	"refpay/internal/models"

	"gorm.io/gorm"
)

type partnerRepository struct {
	db *gorm.DB
}

func NewPartnerRepository(db *gorm.DB) PartnerRepository {
	return &partnerRepository{db: db}
}

func (r *partnerRepository) Create(ctx context.Context, p *models.Partner) error {
	err := r.db.WithContext(ctx).Create(p).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrEmailTaken
	}
	return err
}

func (r *partnerRepository) GetByID(ctx context.Context, id uint) (*models.Partner, error) {
	var p models.Partner
	err := r.db.WithContext(ctx).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrPartnerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *partnerRepository) List(ctx context.Context, page, limit int) ([]models.Partner, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Partner{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	var list []models.Partner
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&list).Error
	return list, total, err
}

func (r *partnerRepository) UpdateFCMToken(ctx context.Context, id uint, token string) error {
	return r.db.WithContext(ctx).Model(&models.Partner{}).
		Where("id = ?", id).
		Update("fcm_token", token).Error
}
