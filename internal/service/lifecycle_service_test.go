package service

import (
	"context"
	"testing"
	"time"

	"refpay/internal/domain"
	"refpay/internal/models"
	"refpay/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPayout(store *fakePayoutStore, status string) *models.Payout {
	return store.add(&models.Payout{
		PartnerID:   1,
		Reference:   "po-" + status + "-1",
		AmountCents: 10000,
		FeeCents:    150,
		NetCents:    9850,
		Status:      status,
		Method:      domain.PayoutMethodGateway,
	})
}

func newLifecycle(store *fakePayoutStore, notifier Notifier) *LifecycleService {
	return NewLifecycleService(store, notifier, 3, logger.NewNop())
}

// TestApply_PendingToProcessing walks the happy path edge and checks the
// external ref is stored with the status.
func TestApply_PendingToProcessing(t *testing.T) {
	store := newFakePayoutStore()
	notifier := &fakeNotifier{}
	svc := newLifecycle(store, notifier)
	p := seedPayout(store, domain.PayoutStatusPending)

	out, err := svc.MarkProcessing(context.Background(), p.Reference, "tr_abc")
	require.NoError(t, err)
	require.True(t, out.Changed)
	assert.Equal(t, domain.PayoutStatusProcessing, out.Payout.Status)
	assert.Equal(t, "tr_abc", out.Payout.ExternalRef)
	assert.Nil(t, out.Payout.ProcessedAt, "processing is not terminal")

	stored := store.get(p.Reference)
	assert.Equal(t, domain.PayoutStatusProcessing, stored.Status)
	assert.Equal(t, int64(2), stored.Version)
	assert.Equal(t, 1, notifier.changedCount())
}

// TestApply_TerminalStatesAreFrozen asks every terminal payout for further
// transitions and expects idempotent no-ops, never errors or writes.
func TestApply_TerminalStatesAreFrozen(t *testing.T) {
	for _, status := range []string{
		domain.PayoutStatusCompleted,
		domain.PayoutStatusFailed,
		domain.PayoutStatusCancelled,
	} {
		t.Run(status, func(t *testing.T) {
			store := newFakePayoutStore()
			notifier := &fakeNotifier{}
			svc := newLifecycle(store, notifier)
			p := seedPayout(store, status)

			out, err := svc.Fail(context.Background(), p.Reference, "late failure")
			require.NoError(t, err)
			assert.False(t, out.Changed)
			assert.Equal(t, status, out.Payout.Status)

			stored := store.get(p.Reference)
			assert.Equal(t, status, stored.Status)
			assert.Equal(t, int64(1), stored.Version, "no write may happen")
			assert.Empty(t, stored.FailureReason)
			assert.Equal(t, 0, notifier.changedCount())
		})
	}
}

// TestApply_DisallowedEdgeIsAnError covers edges outside the transition table.
func TestApply_DisallowedEdgeIsAnError(t *testing.T) {
	store := newFakePayoutStore()
	svc := newLifecycle(store, nil)
	p := seedPayout(store, domain.PayoutStatusProcessing)

	_, err := svc.Apply(context.Background(), TransitionRequest{
		Reference: p.Reference,
		To:        domain.PayoutStatusPending,
	})
	var invalid *domain.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, domain.PayoutStatusProcessing, invalid.From)
	assert.Equal(t, domain.PayoutStatusPending, invalid.To)

	stored := store.get(p.Reference)
	assert.Equal(t, domain.PayoutStatusProcessing, stored.Status)
	assert.Equal(t, int64(1), stored.Version)
}

// TestApply_FromGuardPinsSourceState: a request pinned to PENDING must not
// fire against a payout that has since moved to PROCESSING, even though
// PROCESSING->FAILED is a legal edge.
func TestApply_FromGuardPinsSourceState(t *testing.T) {
	store := newFakePayoutStore()
	svc := newLifecycle(store, nil)
	p := seedPayout(store, domain.PayoutStatusProcessing)

	_, err := svc.Apply(context.Background(), TransitionRequest{
		Reference:     p.Reference,
		To:            domain.PayoutStatusFailed,
		From:          domain.PayoutStatusPending,
		FailureReason: "rejected by admin",
	})
	var invalid *domain.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, domain.PayoutStatusProcessing, store.get(p.Reference).Status)
}

// TestApply_ProcessedAtStampedOnFirstTerminal checks the timestamp appears
// exactly when a payout first goes terminal, and only then.
func TestApply_ProcessedAtStampedOnFirstTerminal(t *testing.T) {
	store := newFakePayoutStore()
	svc := newLifecycle(store, nil)
	p := seedPayout(store, domain.PayoutStatusPending)

	out, err := svc.MarkProcessing(context.Background(), p.Reference, "tr_1")
	require.NoError(t, err)
	require.Nil(t, out.Payout.ProcessedAt)

	out, err = svc.Complete(context.Background(), p.Reference)
	require.NoError(t, err)
	require.True(t, out.Changed)
	require.NotNil(t, out.Payout.ProcessedAt)
	first := *out.Payout.ProcessedAt

	// Replay cannot move or clear the stamp.
	out, err = svc.Fail(context.Background(), p.Reference, "too late")
	require.NoError(t, err)
	assert.False(t, out.Changed)
	require.NotNil(t, store.get(p.Reference).ProcessedAt)
	assert.Equal(t, first, *store.get(p.Reference).ProcessedAt)
}

// TestApply_FailureReasonStoredVerbatim: the reason lands in the row exactly
// as given, no rewriting.
func TestApply_FailureReasonStoredVerbatim(t *testing.T) {
	store := newFakePayoutStore()
	svc := newLifecycle(store, nil)
	p := seedPayout(store, domain.PayoutStatusProcessing)

	reason := "beneficiary account closed (code 4021)"
	out, err := svc.Fail(context.Background(), p.Reference, reason)
	require.NoError(t, err)
	require.True(t, out.Changed)
	assert.Equal(t, reason, store.get(p.Reference).FailureReason)
}

// TestApply_RetriesAfterLostRace forces one CAS miss and expects the retry to
// land the transition.
func TestApply_RetriesAfterLostRace(t *testing.T) {
	store := newFakePayoutStore()
	store.casMisses = 1
	svc := newLifecycle(store, nil)
	p := seedPayout(store, domain.PayoutStatusPending)

	out, err := svc.MarkProcessing(context.Background(), p.Reference, "tr_retry")
	require.NoError(t, err)
	assert.True(t, out.Changed)
	assert.Equal(t, int64(2), store.get(p.Reference).Version)
}

// TestApply_ShortCircuitsWhenConcurrentWinnerSettled: losing the race to a
// writer that made the payout terminal turns the retry into a no-op.
func TestApply_ShortCircuitsWhenConcurrentWinnerSettled(t *testing.T) {
	store := newFakePayoutStore()
	notifier := &fakeNotifier{}
	svc := newLifecycle(store, notifier)
	p := seedPayout(store, domain.PayoutStatusProcessing)

	store.casMisses = 1
	store.afterMiss = func(s *fakePayoutStore) {
		winner := s.get(p.Reference)
		winner.Status = domain.PayoutStatusCompleted
		winner.Version++
		now := time.Now()
		winner.ProcessedAt = &now
	}

	out, err := svc.Fail(context.Background(), p.Reference, "gateway said failed")
	require.NoError(t, err)
	assert.False(t, out.Changed)
	assert.Equal(t, domain.PayoutStatusCompleted, out.Payout.Status)
	assert.Equal(t, domain.PayoutStatusCompleted, store.get(p.Reference).Status)
	assert.Empty(t, store.get(p.Reference).FailureReason)
	assert.Equal(t, 0, notifier.changedCount())
}

// TestApply_ExhaustedRetriesSurfaceConflict: every attempt loses, the caller
// gets ErrConcurrentModification.
func TestApply_ExhaustedRetriesSurfaceConflict(t *testing.T) {
	store := newFakePayoutStore()
	store.casMisses = 3
	svc := newLifecycle(store, nil)
	p := seedPayout(store, domain.PayoutStatusPending)

	_, err := svc.MarkProcessing(context.Background(), p.Reference, "tr_x")
	require.ErrorIs(t, err, domain.ErrConcurrentModification)
	assert.Equal(t, domain.PayoutStatusPending, store.get(p.Reference).Status)
}

// TestApply_UnknownReference propagates the repository's not-found.
func TestApply_UnknownReference(t *testing.T) {
	store := newFakePayoutStore()
	svc := newLifecycle(store, nil)

	_, err := svc.Complete(context.Background(), "po-missing")
	require.ErrorIs(t, err, domain.ErrPayoutNotFound)
}
