package router

import (
	"net/http"

	"refpay/config"
	"refpay/internal/domain"
	"refpay/internal/handler"
	"refpay/internal/middleware"
	"refpay/internal/ratelimit"
	"refpay/internal/repository"
	"refpay/internal/service"
	"refpay/internal/ws"
	"refpay/pkg/gateway"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Setup wires repositories, services, handlers and routes. The monitor is
// returned unstarted; main runs it with its own cancelable context.
func Setup(cfg *config.Config, db *gorm.DB, gw gateway.Gateway, limiter ratelimit.Limiter, log *zap.SugaredLogger) (*gin.Engine, *service.MonitorService) {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))

	// Repositories
	partnerRepo := repository.NewPartnerRepository(db)
	payoutRepo := repository.NewPayoutRepository(db)
	commissionRepo := repository.NewCommissionRepository(db)
	eventRepo := repository.NewGatewayEventRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	feed := ws.NewHub()

	// Services
	fcmSvc := service.NewFCMService(cfg.Firebase.ServiceAccountPath, log)
	if fcmSvc != nil {
		log.Infof("[FCM] push notifications enabled")
	} else if cfg.Firebase.ServiceAccountPath != "" {
		log.Warnf("[FCM] push notifications disabled: failed to init (check service account file)")
	} else {
		log.Infof("[FCM] push notifications disabled: set FIREBASE_SERVICE_ACCOUNT_PATH to enable")
	}
	notifSvc := service.NewNotificationService(notificationRepo, partnerRepo, fcmSvc, feed, log)
	lifecycle := service.NewLifecycleService(payoutRepo, notifSvc, cfg.Payout.MaxTransitionAttempts, log)
	ledger := service.NewLedgerService(partnerRepo, payoutRepo, commissionRepo)
	payoutSvc := service.NewPayoutService(payoutRepo, partnerRepo, ledger, lifecycle, gw, &cfg.Payout, &cfg.Gateway, log)
	reconciler := service.NewReconcilerService(eventRepo, payoutRepo, lifecycle, log)
	bulkSvc := service.NewBulkService(payoutRepo, lifecycle, log)
	monitor := service.NewMonitorService(payoutRepo, lifecycle, gw, notifSvc, cfg.Payout.ProcessingSLA, cfg.Payout.MonitorInterval, log)

	// Handlers
	payoutHandler := handler.NewPayoutHandler(payoutSvc, ledger, log)
	webhookHandler := handler.NewTransferWebhookHandler(gw, reconciler, log)
	adminHandler := handler.NewAdminHandler(payoutSvc, bulkSvc, ledger, partnerRepo, commissionRepo, log)
	notificationHandler := handler.NewNotificationHandler(notificationRepo, partnerRepo)

	authMw := middleware.AuthRequired(&cfg.JWT)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	{
		api.POST("/payouts", authMw, middleware.RequireRole(domain.RolePartner), middleware.RateLimit(limiter, log), payoutHandler.Create)
		api.GET("/payouts/:reference", authMw, payoutHandler.Get)

		me := api.Group("/me")
		me.Use(authMw)
		{
			me.GET("/payouts", payoutHandler.ListMine)
			me.GET("/balance", payoutHandler.Balance)
			me.GET("/commissions", payoutHandler.ListMyCommissions)
			me.GET("/notifications", notificationHandler.List)
			me.PUT("/notifications/:id/read", notificationHandler.MarkRead)
			me.POST("/fcm-token", notificationHandler.RegisterFCMToken)
		}

		admin := api.Group("/admin")
		admin.Use(authMw, middleware.AdminRequired())
		{
			admin.GET("/payouts", adminHandler.ListPayouts)
			admin.POST("/payouts/bulk", adminHandler.BulkAction)
			admin.POST("/commissions", adminHandler.CreateCommission)
			admin.POST("/commissions/:source_ref/confirm", adminHandler.ConfirmCommission)
			admin.POST("/partners", adminHandler.CreatePartner)
			admin.GET("/partners", adminHandler.ListPartners)
			admin.GET("/partners/:id", adminHandler.GetPartner)
			admin.GET("/partners/:id/balance", adminHandler.PartnerBalance)
		}

		// Gateway callbacks authenticate with the webhook signature, not JWT.
		api.POST("/webhooks/transfers", webhookHandler.Handle)
	}

	r.GET("/ws/payouts", ws.UpgradePayoutFeed(&cfg.JWT, feed))

	return r, monitor
}
