package database

import (
	"time"

	"refpay/config"
	"refpay/internal/domain"
	"refpay/internal/models"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error), // Only log errors, not every SQL query
		// The repositories match on gorm.ErrDuplicatedKey to detect replayed
		// webhook events and commission refs; the mysql driver only surfaces
		// that with error translation on.
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return db, nil
}

// AutoMigrate runs Gorm auto-migration for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Partner{},
		&models.Payout{},
		&models.Commission{},
		&models.GatewayEvent{},
		&models.Notification{},
	)
}

// SeedDemo gives a fresh development database one partner with a confirmed
// balance so payouts can be exercised immediately. It does nothing in
// production or once any partner exists.
func SeedDemo(db *gorm.DB, env string) {
	if env == "production" {
		return
	}
	var count int64
	if err := db.Model(&models.Partner{}).Count(&count).Error; err != nil || count > 0 {
		return
	}
	p := &models.Partner{
		Name:          "Demo Partner",
		Email:         "demo@refpay.local",
		Status:        domain.PartnerStatusActive,
		PayoutAccount: "acct_demo",
	}
	if err := db.Create(p).Error; err != nil {
		return
	}
	now := time.Now()
	db.Create(&models.Commission{
		PartnerID:   p.ID,
		SourceRef:   "seed-commission-1",
		AmountCents: 250000,
		Status:      domain.CommissionStatusConfirmed,
		Description: "Seed balance",
		ConfirmedAt: &now,
	})
}
