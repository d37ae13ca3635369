package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"refpay/config"
	"refpay/internal/database"
	"refpay/internal/ratelimit"
	"refpay/internal/router"
	"refpay/pkg/gateway"
	"refpay/pkg/logger"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Server.Env)
	defer log.Sync()

	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	database.SeedDemo(db, cfg.Server.Env)

	var gw gateway.Gateway
	if cfg.Gateway.UseStub {
		log.Warnf("using stub gateway; every transfer is accepted and reported paid")
		gw = &gateway.Stub{}
	} else {
		gw = gateway.NewPaylio(gateway.PaylioConfig{
			BaseURL:        cfg.Gateway.BaseURL,
			ClientID:       cfg.Gateway.ClientID,
			ClientSecret:   cfg.Gateway.ClientSecret,
			WebhookSecret:  cfg.Gateway.WebhookSecret,
			RequestTimeout: cfg.Gateway.RequestTimeout,
		}, log)
	}

	var limiter ratelimit.Limiter
	if cfg.Redis.Addr != "" {
		client, err := ratelimit.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		limiter = ratelimit.NewRedis(client, cfg.RateLimit.Requests, cfg.RateLimit.Window)
	} else {
		log.Infof("REDIS_ADDR not set, using in-memory rate limiter")
		limiter = ratelimit.NewInMemory(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	}

	engine, monitor := router.Setup(cfg, db, gw, limiter, log)

	monitorCtx, stopMonitor := context.WithCancel(context.Background())
	defer stopMonitor()
	go monitor.Run(monitorCtx)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		log.Infof("server listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Infof("shutting down...")
	stopMonitor()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server shutdown: %v", err)
	}
	log.Infof("server stopped")
}
