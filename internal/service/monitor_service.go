package service

import (
	"context"
	"time"

	"refpay/internal/repository"
	"refpay/pkg/gateway"

	"go.uber.org/zap"
)

// MonitorService sweeps payouts stuck in PROCESSING past the SLA and asks the
// gateway what actually happened. Terminal answers are applied through the
// lifecycle; undetermined ones are flagged for manual reconciliation, never
// transitioned automatically.
type MonitorService struct {
	payouts   repository.PayoutRepository
	lifecycle *LifecycleService
	gw        gateway.Gateway
	notifier  Notifier
	sla       time.Duration
	interval  time.Duration
	log       *zap.SugaredLogger
}

func NewMonitorService(
	payouts repository.PayoutRepository,
	lifecycle *LifecycleService,
	gw gateway.Gateway,
	notifier Notifier,
	sla, interval time.Duration,
	log *zap.SugaredLogger,
) *MonitorService {
	return &MonitorService{
		payouts:   payouts,
		lifecycle: lifecycle,
		gw:        gw,
		notifier:  notifier,
		sla:       sla,
		interval:  interval,
		log:       log,
	}
}

// Run loops until ctx is cancelled.
func (s *MonitorService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.log.Infow("stale payout monitor started", "interval", s.interval, "sla", s.sla)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("stale payout monitor stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass and returns how many stale payouts it saw and how many
// it settled.
func (s *MonitorService) Sweep(ctx context.Context) (checked, settled int) {
	cutoff := time.Now().Add(-s.sla)
	stale, err := s.payouts.ListProcessingOlderThan(ctx, cutoff)
	if err != nil {
		s.log.Errorw("stale payout listing failed", "error", err)
		return 0, 0
	}
	for i := range stale {
		p := &stale[i]
		checked++

		status, err := s.gw.GetTransfer(ctx, p.ExternalRef)
		if err != nil {
			s.log.Errorw("transfer status poll failed", "reference", p.Reference, "external_ref", p.ExternalRef, "error", err)
			continue
		}

		switch status.State {
		case gateway.StatePaid:
			if _, err := s.lifecycle.Complete(ctx, p.Reference); err != nil {
				s.log.Errorw("stale payout completion failed", "reference", p.Reference, "error", err)
				continue
			}
			settled++
		case gateway.StateFailed, gateway.StateCanceled:
			reason := status.FailureReason
			if reason == "" {
				reason = "transfer " + status.State
			}
			if _, err := s.lifecycle.Fail(ctx, p.Reference, reason); err != nil {
				s.log.Errorw("stale payout failure apply failed", "reference", p.Reference, "error", err)
				continue
			}
			settled++
		default:
			s.log.Warnw("payout past processing SLA, still undetermined",
				"reference", p.Reference, "external_ref", p.ExternalRef, "state", status.State)
			if s.notifier != nil {
				s.notifier.PayoutStale(p)
			}
		}
	}
	return checked, settled
}
