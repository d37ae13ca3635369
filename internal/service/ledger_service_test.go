package service

import (
	"context"
	"testing"

	"refpay/internal/domain"
	"refpay/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSummary_BalanceMath: available is confirmed earnings minus payouts in
// PENDING, PROCESSING or COMPLETED. FAILED and CANCELLED release their hold.
func TestSummary_BalanceMath(t *testing.T) {
	store := newFakePayoutStore()
	partners := newFakePartnerStore()
	commissions := newFakeCommissionStore()
	partner := partners.add(&models.Partner{Name: "Acme", Email: "acme@x.test"})

	commissions.addConfirmed(partner.ID, "ord-1", 30000)
	commissions.addConfirmed(partner.ID, "ord-2", 20000)
	// Pending commissions do not count as earned.
	commissions.Create(context.Background(), &models.Commission{
		PartnerID: partner.ID, SourceRef: "ord-3", AmountCents: 99999,
		Status: domain.CommissionStatusPending,
	})

	for _, p := range []models.Payout{
		{Reference: "po-1", Status: domain.PayoutStatusPending, AmountCents: 10000},
		{Reference: "po-2", Status: domain.PayoutStatusCompleted, AmountCents: 5000},
		{Reference: "po-3", Status: domain.PayoutStatusFailed, AmountCents: 7000},
		{Reference: "po-4", Status: domain.PayoutStatusCancelled, AmountCents: 8000},
	} {
		p.PartnerID = partner.ID
		p.Method = domain.PayoutMethodGateway
		store.add(&p)
	}

	svc := NewLedgerService(partners, store, commissions)
	summary, err := svc.Summary(context.Background(), partner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(50000), summary.EarnedCents)
	assert.Equal(t, int64(15000), summary.CommittedCents)
	assert.Equal(t, int64(35000), summary.AvailableCents)

	available, err := svc.AvailableBalance(context.Background(), partner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(35000), available)
}

// TestSummary_UnknownPartnerIsNotAZeroBalance.
func TestSummary_UnknownPartnerIsNotAZeroBalance(t *testing.T) {
	svc := NewLedgerService(newFakePartnerStore(), newFakePayoutStore(), newFakeCommissionStore())

	_, err := svc.Summary(context.Background(), 42)
	require.ErrorIs(t, err, domain.ErrPartnerNotFound)
}

// TestSummary_FreshPartnerIsZeroEverywhere.
func TestSummary_FreshPartnerIsZeroEverywhere(t *testing.T) {
	partners := newFakePartnerStore()
	partner := partners.add(&models.Partner{Name: "New", Email: "new@x.test"})
	svc := NewLedgerService(partners, newFakePayoutStore(), newFakeCommissionStore())

	summary, err := svc.Summary(context.Background(), partner.ID)
	require.NoError(t, err)
	assert.Zero(t, summary.EarnedCents)
	assert.Zero(t, summary.CommittedCents)
	assert.Zero(t, summary.AvailableCents)
}
