package service

import (
	"context"
	"fmt"
	"time"

	"refpay/config"
	"refpay/internal/domain"
	"refpay/internal/models"
	"refpay/internal/repository"
	"refpay/pkg/gateway"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PayoutService owns payout creation: validation, fee math, the PENDING
// insert and the hand-off to the gateway.
type PayoutService struct {
	payouts   repository.PayoutRepository
	partners  repository.PartnerRepository
	ledger    *LedgerService
	lifecycle *LifecycleService
	gw        gateway.Gateway
	cfg       *config.PayoutConfig
	gwCfg     *config.GatewayConfig
	log       *zap.SugaredLogger
}

func NewPayoutService(
	payouts repository.PayoutRepository,
	partners repository.PartnerRepository,
	ledger *LedgerService,
	lifecycle *LifecycleService,
	gw gateway.Gateway,
	cfg *config.PayoutConfig,
	gwCfg *config.GatewayConfig,
	log *zap.SugaredLogger,
) *PayoutService {
	return &PayoutService{
		payouts:   payouts,
		partners:  partners,
		ledger:    ledger,
		lifecycle: lifecycle,
		gw:        gw,
		cfg:       cfg,
		gwCfg:     gwCfg,
		log:       log,
	}
}

// validate applies the request checks in a fixed order and stops at the first
// failure. The create transaction re-checks the in-flight and balance rules
// under the partner lock; this pass exists to give callers the right reason.
func (s *PayoutService) validate(ctx context.Context, partnerID uint, amountCents int64) error {
	if amountCents <= 0 {
		return domain.NewRejection(domain.CodeInvalidAmount, "amount must be positive")
	}
	open, err := s.payouts.HasOpenPayout(ctx, partnerID)
	if err != nil {
		return err
	}
	if open {
		return domain.NewRejection(domain.CodePayoutInFlight, "partner already has a payout in flight")
	}
	available, err := s.ledger.AvailableBalance(ctx, partnerID)
	if err != nil {
		return err
	}
	if amountCents > available {
		return domain.NewRejection(domain.CodeInsufficientBalance,
			"requested %d exceeds available balance %d", amountCents, available)
	}
	if amountCents < s.cfg.MinAmountCents {
		return domain.NewRejection(domain.CodeBelowMinimum,
			"minimum payout is %d cents", s.cfg.MinAmountCents)
	}
	return nil
}

// Fee returns the flat fee plus the basis-point share of the amount.
func (s *PayoutService) Fee(amountCents int64) int64 {
	return s.cfg.FlatFeeCents + amountCents*s.cfg.FeeBps/10000
}

// RequestPayout validates, persists a PENDING payout, and for GATEWAY payouts
// initiates the transfer. The returned payout carries whatever state the
// request reached: PROCESSING on gateway accept, FAILED on reject, PENDING
// for MANUAL.
func (s *PayoutService) RequestPayout(ctx context.Context, partnerID uint, amountCents int64, method string) (*models.Payout, error) {
	if method == "" {
		method = domain.PayoutMethodGateway
	}
	if method != domain.PayoutMethodGateway && method != domain.PayoutMethodManual {
		return nil, fmt.Errorf("unknown payout method %q", method)
	}

	if err := s.validate(ctx, partnerID, amountCents); err != nil {
		return nil, err
	}

	partner, err := s.partners.GetByID(ctx, partnerID)
	if err != nil {
		return nil, err
	}

	fee := s.Fee(amountCents)
	p := &models.Payout{
		PartnerID:   partnerID,
		Reference:   "po-" + uuid.New().String(),
		AmountCents: amountCents,
		FeeCents:    fee,
		NetCents:    amountCents - fee,
		Status:      domain.PayoutStatusPending,
		Method:      method,
		RequestedAt: time.Now(),
		Version:     1,
	}
	if err := s.payouts.Create(ctx, p); err != nil {
		return nil, err
	}
	s.log.Infow("payout created", "reference", p.Reference, "partner_id", partnerID, "amount_cents", amountCents, "method", method)

	if method == domain.PayoutMethodManual {
		// Stays PENDING until an admin approves or rejects it.
		return p, nil
	}
	return s.initiateTransfer(ctx, partner, p)
}

// initiateTransfer asks the gateway to move the net amount. A refusal or a
// transport failure both settle the payout as FAILED so nothing dangles in
// PENDING with no one coming back for it.
func (s *PayoutService) initiateTransfer(ctx context.Context, partner *models.Partner, p *models.Payout) (*models.Payout, error) {
	callbackURL := ""
	if s.gwCfg.WebhookBaseURL != "" {
		callbackURL = s.gwCfg.WebhookBaseURL + "/api/v1/webhooks/transfers"
	}
	res, err := s.gw.InitiateTransfer(ctx, gateway.TransferRequest{
		Reference:    p.Reference,
		AccountToken: partner.PayoutAccount,
		AmountCents:  p.NetCents,
		Currency:     "USD",
		Narration:    fmt.Sprintf("Payout %s", p.Reference),
		CallbackURL:  callbackURL,
	})
	if err != nil {
		s.log.Errorw("transfer initiation failed", "reference", p.Reference, "error", err)
		out, ferr := s.lifecycle.Fail(ctx, p.Reference, "gateway unavailable: "+err.Error())
		if ferr != nil {
			return nil, ferr
		}
		return out.Payout, nil
	}
	if !res.Accepted {
		out, ferr := s.lifecycle.Fail(ctx, p.Reference, res.Message)
		if ferr != nil {
			return nil, ferr
		}
		return out.Payout, nil
	}

	out, err := s.lifecycle.MarkProcessing(ctx, p.Reference, res.ExternalRef)
	if err != nil {
		return nil, err
	}
	// Changed=false here means the transfer's webhook beat us to the row and
	// the reconciler already settled it. The settled payout is the answer.
	return out.Payout, nil
}

func (s *PayoutService) GetByReference(ctx context.Context, reference string) (*models.Payout, error) {
	return s.payouts.GetByReference(ctx, reference)
}

func (s *PayoutService) ListByPartner(ctx context.Context, partnerID uint, status string, page, limit int) ([]models.Payout, int64, error) {
	return s.payouts.ListByPartner(ctx, partnerID, status, page, limit)
}

func (s *PayoutService) List(ctx context.Context, f repository.PayoutFilter) ([]models.Payout, int64, error) {
	return s.payouts.List(ctx, f)
}
