package repository

import (
	"context"
	"errors"
	"time"

	"refpay/internal/models"

	"gorm.io/gorm"
)

// ErrDuplicateEvent signals that a webhook delivery with the same event id has
// already been recorded.
var ErrDuplicateEvent = errors.New("gateway event already recorded")

type gatewayEventRepository struct {
	db *gorm.DB
}

func NewGatewayEventRepository(db *gorm.DB) GatewayEventRepository {
	return &gatewayEventRepository{db: db}
}

func (r *gatewayEventRepository) Create(ctx context.Context, e *models.GatewayEvent) error {
	err := r.db.WithContext(ctx).Create(e).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateEvent
	}
	return err
}

func (r *gatewayEventRepository) GetByEventID(ctx context.Context, eventID string) (*models.GatewayEvent, error) {
	var e models.GatewayEvent
	err := r.db.WithContext(ctx).Where("event_id = ?", eventID).First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// MarkProcessed records the outcome of handling an event. applied=false keeps
// the record eligible for a later redelivery (unknown external ref).
func (r *gatewayEventRepository) MarkProcessed(ctx context.Context, id uint, applied bool, result, payoutRef string) error {
	updates := map[string]interface{}{
		"applied": applied,
		"result":  result,
	}
	if payoutRef != "" {
		updates["payout_ref"] = payoutRef
	}
	if applied {
		now := time.Now()
		updates["processed_at"] = &now
	}
	return r.db.WithContext(ctx).Model(&models.GatewayEvent{}).
		Where("id = ?", id).
		Updates(updates).Error
}
