package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"refpay/internal/domain"
	"refpay/internal/models"
	"refpay/internal/repository"
	"refpay/pkg/gateway"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ReconcileResult tells the webhook handler what happened to a delivery.
type ReconcileResult struct {
	Status    string // APPLIED, DUPLICATE, IGNORED
	NoOp      bool   // the payout was already terminal; nothing changed
	Reference string // resolved payout reference, empty when ignored
}

// ReconcilerService folds gateway webhook events into payout state. Deliveries
// are at-least-once and unordered; the event record keyed by the gateway's
// event id guarantees each event changes a payout at most once.
type ReconcilerService struct {
	events    repository.GatewayEventRepository
	payouts   repository.PayoutRepository
	lifecycle *LifecycleService
	log       *zap.SugaredLogger
}

func NewReconcilerService(events repository.GatewayEventRepository, payouts repository.PayoutRepository, lifecycle *LifecycleService, log *zap.SugaredLogger) *ReconcilerService {
	return &ReconcilerService{events: events, payouts: payouts, lifecycle: lifecycle, log: log}
}

func (s *ReconcilerService) Reconcile(ctx context.Context, e *gateway.Event) (*ReconcileResult, error) {
	rec, err := s.receipt(ctx, e)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		// Already applied by an earlier delivery.
		s.log.Infow("duplicate webhook delivery", "event_id", e.ID)
		return &ReconcileResult{Status: domain.EventResultDuplicate}, nil
	}

	if e.Kind == gateway.KindUnknown {
		// Nothing to apply now or ever; mark it so redeliveries short-circuit.
		if err := s.events.MarkProcessed(ctx, rec.ID, true, domain.EventResultIgnored+": unhandled event type", ""); err != nil {
			return nil, err
		}
		return &ReconcileResult{Status: domain.EventResultIgnored}, nil
	}

	p, err := s.resolvePayout(ctx, e)
	if errors.Is(err, domain.ErrPayoutNotFound) {
		// Keep the record unapplied: once the payout row catches up (the
		// PROCESSING write can land after the webhook), a redelivery applies.
		s.log.Warnw("webhook for unknown transfer", "event_id", e.ID, "external_ref", e.ExternalRef, "reference", e.Reference)
		if err := s.events.MarkProcessed(ctx, rec.ID, false, domain.EventResultIgnored+": unknown external ref", ""); err != nil {
			return nil, err
		}
		return &ReconcileResult{Status: domain.EventResultIgnored}, nil
	}
	if err != nil {
		return nil, err
	}

	outcome, err := s.applyKind(ctx, p, e)
	if err != nil {
		// The record stays unapplied; the gateway's redelivery retries us.
		return nil, err
	}

	if err := s.events.MarkProcessed(ctx, rec.ID, true, domain.EventResultApplied, p.Reference); err != nil {
		return nil, err
	}
	return &ReconcileResult{
		Status:    domain.EventResultApplied,
		NoOp:      !outcome.Changed,
		Reference: p.Reference,
	}, nil
}

// receipt returns the unapplied event record for e, writing it first when this
// is the first delivery. A nil record means the event was already applied.
func (s *ReconcilerService) receipt(ctx context.Context, e *gateway.Event) (*models.GatewayEvent, error) {
	existing, err := s.events.GetByEventID(ctx, e.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if existing != nil {
		if existing.Applied {
			return nil, nil
		}
		return existing, nil
	}

	occurredAt := e.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}
	rec := &models.GatewayEvent{
		EventID:     e.ID,
		Kind:        string(e.Kind),
		ExternalRef: e.ExternalRef,
		Payload:     string(e.Raw),
		OccurredAt:  occurredAt,
	}
	err = s.events.Create(ctx, rec)
	if errors.Is(err, repository.ErrDuplicateEvent) {
		// Lost the insert race against a concurrent delivery of this event.
		existing, gerr := s.events.GetByEventID(ctx, e.ID)
		if gerr != nil {
			return nil, gerr
		}
		if existing.Applied {
			return nil, nil
		}
		return existing, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *ReconcilerService) resolvePayout(ctx context.Context, e *gateway.Event) (*models.Payout, error) {
	if e.ExternalRef != "" {
		p, err := s.payouts.GetByExternalRef(ctx, e.ExternalRef)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, domain.ErrPayoutNotFound) {
			return nil, err
		}
	}
	// Fall back to our reference when the gateway echoes it. This is what
	// resolves a webhook that outruns the PROCESSING write.
	if e.Reference != "" {
		return s.payouts.GetByReference(ctx, e.Reference)
	}
	return nil, domain.ErrPayoutNotFound
}

func (s *ReconcilerService) applyKind(ctx context.Context, p *models.Payout, e *gateway.Event) (*TransitionOutcome, error) {
	switch e.Kind {
	case gateway.KindPaid:
		return s.lifecycle.Apply(ctx, TransitionRequest{
			Reference:   p.Reference,
			To:          domain.PayoutStatusCompleted,
			ExternalRef: e.ExternalRef,
		})
	case gateway.KindFailed, gateway.KindCanceled:
		reason := e.FailureReason
		if reason == "" {
			reason = string(e.Kind)
		}
		return s.lifecycle.Apply(ctx, TransitionRequest{
			Reference:     p.Reference,
			To:            domain.PayoutStatusFailed,
			ExternalRef:   e.ExternalRef,
			FailureReason: reason,
		})
	default:
		return nil, fmt.Errorf("unhandled event kind %q", e.Kind)
	}
}
