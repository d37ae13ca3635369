package service

import (
	"context"
	"math/rand"
	"time"

	"refpay/internal/domain"
	"refpay/internal/models"
	"refpay/internal/repository"

	"go.uber.org/zap"
)

// Notifier receives lifecycle events. Implementations must not block; errors
// stay on their side.
type Notifier interface {
	PayoutStatusChanged(p *models.Payout)
	PayoutStale(p *models.Payout)
}

var allowedTransitions = map[string]map[string]bool{
	domain.PayoutStatusPending: {
		domain.PayoutStatusProcessing: true,
		domain.PayoutStatusCompleted:  true,
		domain.PayoutStatusFailed:     true,
		domain.PayoutStatusCancelled:  true,
	},
	domain.PayoutStatusProcessing: {
		domain.PayoutStatusCompleted: true,
		domain.PayoutStatusFailed:    true,
		domain.PayoutStatusCancelled: true,
	},
}

// TransitionOutcome reports what a transition did. Changed=false means the
// payout was already terminal and nothing was written.
type TransitionOutcome struct {
	Payout  *models.Payout
	Changed bool
}

// LifecycleService is the sole writer of payout status. Every transition is a
// compare-and-swap on the row version; lost races are retried a bounded number
// of times with jittered backoff.
type LifecycleService struct {
	payouts     repository.PayoutRepository
	notifier    Notifier
	maxAttempts int
	log         *zap.SugaredLogger
}

func NewLifecycleService(payouts repository.PayoutRepository, notifier Notifier, maxAttempts int, log *zap.SugaredLogger) *LifecycleService {
	if maxAttempts < 1 {
		maxAttempts = 3
	}
	return &LifecycleService{payouts: payouts, notifier: notifier, maxAttempts: maxAttempts, log: log}
}

// TransitionRequest names the edge to take. ExternalRef and FailureReason are
// stored alongside the status when set. From, when set, restricts the edge to
// that source state; re-reads inside the retry loop keep the guard honest
// against concurrent writers.
type TransitionRequest struct {
	Reference     string
	To            string
	From          string
	ExternalRef   string
	FailureReason string
}

func (s *LifecycleService) MarkProcessing(ctx context.Context, reference, externalRef string) (*TransitionOutcome, error) {
	return s.Apply(ctx, TransitionRequest{Reference: reference, To: domain.PayoutStatusProcessing, ExternalRef: externalRef})
}

func (s *LifecycleService) Complete(ctx context.Context, reference string) (*TransitionOutcome, error) {
	return s.Apply(ctx, TransitionRequest{Reference: reference, To: domain.PayoutStatusCompleted})
}

func (s *LifecycleService) Fail(ctx context.Context, reference, reason string) (*TransitionOutcome, error) {
	return s.Apply(ctx, TransitionRequest{Reference: reference, To: domain.PayoutStatusFailed, FailureReason: reason})
}

func (s *LifecycleService) Cancel(ctx context.Context, reference string) (*TransitionOutcome, error) {
	return s.Apply(ctx, TransitionRequest{Reference: reference, To: domain.PayoutStatusCancelled})
}

func (s *LifecycleService) Apply(ctx context.Context, req TransitionRequest) (*TransitionOutcome, error) {
	to, externalRef, reason := req.To, req.ExternalRef, req.FailureReason
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		p, err := s.payouts.GetByReference(ctx, req.Reference)
		if err != nil {
			return nil, err
		}

		// Terminal states are frozen. Re-asking for any transition is an
		// idempotent no-op, not an error.
		if domain.IsTerminalStatus(p.Status) {
			return &TransitionOutcome{Payout: p, Changed: false}, nil
		}

		if !allowedTransitions[p.Status][to] || (req.From != "" && p.Status != req.From) {
			return nil, &domain.InvalidTransitionError{Reference: p.Reference, From: p.Status, To: to}
		}

		updates := map[string]interface{}{"status": to}
		if externalRef != "" {
			updates["external_ref"] = externalRef
		}
		if to == domain.PayoutStatusFailed && reason != "" {
			updates["failure_reason"] = reason
		}
		var processedAt *time.Time
		if domain.IsTerminalStatus(to) && p.ProcessedAt == nil {
			now := time.Now()
			processedAt = &now
			updates["processed_at"] = processedAt
		}

		ok, err := s.payouts.UpdateStatusCAS(ctx, p.ID, p.Version, updates)
		if err != nil {
			return nil, err
		}
		if ok {
			p.Status = to
			p.Version++
			if externalRef != "" {
				p.ExternalRef = externalRef
			}
			if to == domain.PayoutStatusFailed && reason != "" {
				p.FailureReason = reason
			}
			if processedAt != nil {
				p.ProcessedAt = processedAt
			}
			s.log.Infow("payout transition", "reference", p.Reference, "to", to, "version", p.Version)
			if s.notifier != nil {
				s.notifier.PayoutStatusChanged(p)
			}
			return &TransitionOutcome{Payout: p, Changed: true}, nil
		}

		s.log.Warnw("payout version conflict, retrying", "reference", req.Reference, "to", to, "attempt", attempt+1)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff(attempt)):
		}
	}
	return nil, domain.ErrConcurrentModification
}

// backoff doubles per attempt and carries jitter so competing writers don't
// collide again in lockstep.
func backoff(attempt int) time.Duration {
	base := (20 * time.Millisecond) << attempt
	return base + time.Duration(rand.Intn(20))*time.Millisecond
}
