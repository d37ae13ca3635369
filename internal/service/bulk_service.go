package service

import (
	"context"
	"errors"
	"fmt"

	"refpay/internal/domain"
	"refpay/internal/models"
	"refpay/internal/repository"

	"go.uber.org/zap"
)

type BulkError struct {
	Reference string `json:"reference"`
	Error     string `json:"error"`
}

type BulkResult struct {
	Total      int         `json:"total"`
	Successful int         `json:"successful"`
	Failed     int         `json:"failed"`
	Errors     []BulkError `json:"errors"`
}

// BulkService runs an admin action over many payouts, one at a time. A bad
// item is recorded and the batch moves on; there is no all-or-nothing mode.
type BulkService struct {
	payouts   repository.PayoutRepository
	lifecycle *LifecycleService
	log       *zap.SugaredLogger
}

func NewBulkService(payouts repository.PayoutRepository, lifecycle *LifecycleService, log *zap.SugaredLogger) *BulkService {
	return &BulkService{payouts: payouts, lifecycle: lifecycle, log: log}
}

func (s *BulkService) Apply(ctx context.Context, action string, references []string) BulkResult {
	result := BulkResult{Total: len(references), Errors: []BulkError{}}
	for _, ref := range references {
		if err := s.applyOne(ctx, action, ref); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, BulkError{Reference: ref, Error: err.Error()})
			continue
		}
		result.Successful++
	}
	s.log.Infow("bulk action finished", "action", action, "total", result.Total, "successful", result.Successful, "failed", result.Failed)
	return result
}

func (s *BulkService) applyOne(ctx context.Context, action, reference string) error {
	p, err := s.payouts.GetByReference(ctx, reference)
	if err != nil {
		return err
	}

	var outcome *TransitionOutcome
	switch action {
	case domain.BulkActionApprove:
		if p.Method != domain.PayoutMethodManual {
			return errors.New("only MANUAL payouts can be approved")
		}
		outcome, err = s.lifecycle.Apply(ctx, TransitionRequest{
			Reference: reference,
			To:        domain.PayoutStatusCompleted,
			From:      domain.PayoutStatusPending,
		})
	case domain.BulkActionReject:
		// Rejecting a PROCESSING payout would contradict a transfer already
		// in flight at the gateway; only PENDING can be rejected.
		outcome, err = s.lifecycle.Apply(ctx, TransitionRequest{
			Reference:     reference,
			To:            domain.PayoutStatusFailed,
			From:          domain.PayoutStatusPending,
			FailureReason: "rejected by admin",
		})
	case domain.BulkActionCancel:
		outcome, err = s.lifecycle.Cancel(ctx, reference)
	default:
		return fmt.Errorf("unknown action %q", action)
	}
	if err != nil {
		return err
	}
	if !outcome.Changed {
		return alreadyTerminalError(outcome.Payout)
	}
	return nil
}

func alreadyTerminalError(p *models.Payout) error {
	return fmt.Errorf("payout already %s", p.Status)
}
