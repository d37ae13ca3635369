package service

import (
	"context"

	"refpay/internal/models"
	"refpay/internal/repository"
)

// BalanceSummary is the partner's ledger position. Available is what a new
// payout may draw on: confirmed earnings minus every payout that consumed or
// is holding funds.
type BalanceSummary struct {
	PartnerID      uint  `json:"partner_id"`
	EarnedCents    int64 `json:"earned_cents"`
	CommittedCents int64 `json:"committed_cents"`
	AvailableCents int64 `json:"available_cents"`
}

// LedgerService reads balances. It never writes; commissions and payouts are
// the source of truth.
type LedgerService struct {
	partners    repository.PartnerRepository
	payouts     repository.PayoutRepository
	commissions repository.CommissionRepository
}

func NewLedgerService(partners repository.PartnerRepository, payouts repository.PayoutRepository, commissions repository.CommissionRepository) *LedgerService {
	return &LedgerService{partners: partners, payouts: payouts, commissions: commissions}
}

// AvailableBalance returns what the partner can request right now.
// A missing partner is ErrPartnerNotFound, never a zero balance.
func (s *LedgerService) AvailableBalance(ctx context.Context, partnerID uint) (int64, error) {
	summary, err := s.Summary(ctx, partnerID)
	if err != nil {
		return 0, err
	}
	return summary.AvailableCents, nil
}

func (s *LedgerService) Summary(ctx context.Context, partnerID uint) (*BalanceSummary, error) {
	if _, err := s.partners.GetByID(ctx, partnerID); err != nil {
		return nil, err
	}
	earned, err := s.commissions.SumConfirmedCents(ctx, partnerID)
	if err != nil {
		return nil, err
	}
	committed, err := s.payouts.SumCommittedCents(ctx, partnerID)
	if err != nil {
		return nil, err
	}
	return &BalanceSummary{
		PartnerID:      partnerID,
		EarnedCents:    earned,
		CommittedCents: committed,
		AvailableCents: earned - committed,
	}, nil
}

// ListCommissions returns the partner's earning history, newest first.
func (s *LedgerService) ListCommissions(ctx context.Context, partnerID uint, page, limit int) ([]models.Commission, int64, error) {
	return s.commissions.ListByPartner(ctx, partnerID, page, limit)
}
