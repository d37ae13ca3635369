package service

import (
	"context"
	"sync"
	"time"

	"refpay/internal/domain"
	"refpay/internal/models"
	"refpay/internal/repository"
	"refpay/pkg/gateway"

	"gorm.io/gorm"
)

// fakePayoutStore is an in-memory PayoutRepository. Getters return copies, the
// way a real row scan would; only UpdateStatusCAS mutates stored state. CAS
// misses can be forced to exercise the retry loop.
type fakePayoutStore struct {
	mu   sync.Mutex
	seq  uint
	rows map[uint]*models.Payout

	// casMisses makes the next N CAS calls report a lost race without
	// applying anything. afterMiss, when set, runs after each forced miss so
	// a test can play the concurrent winner.
	casMisses int
	afterMiss func(s *fakePayoutStore)
}

func newFakePayoutStore() *fakePayoutStore {
	return &fakePayoutStore{rows: map[uint]*models.Payout{}}
}

func (s *fakePayoutStore) add(p *models.Payout) *models.Payout {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	p.ID = s.seq
	if p.Version == 0 {
		p.Version = 1
	}
	if p.RequestedAt.IsZero() {
		p.RequestedAt = time.Now()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}
	cp := *p
	s.rows[p.ID] = &cp
	return p
}

// get returns the stored row itself, for test assertions and for afterMiss
// hooks that mutate state between CAS attempts.
func (s *fakePayoutStore) get(reference string) *models.Payout {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.rows {
		if p.Reference == reference {
			return p
		}
	}
	return nil
}

func (s *fakePayoutStore) Create(ctx context.Context, p *models.Payout) error {
	s.add(p)
	return nil
}

func (s *fakePayoutStore) GetByID(ctx context.Context, id uint) (*models.Payout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.rows[id]
	if !ok {
		return nil, domain.ErrPayoutNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *fakePayoutStore) GetByReference(ctx context.Context, reference string) (*models.Payout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.rows {
		if p.Reference == reference {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrPayoutNotFound
}

func (s *fakePayoutStore) GetByExternalRef(ctx context.Context, externalRef string) (*models.Payout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.rows {
		if p.ExternalRef != "" && p.ExternalRef == externalRef {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrPayoutNotFound
}

func (s *fakePayoutStore) ListByPartner(ctx context.Context, partnerID uint, status string, page, limit int) ([]models.Payout, int64, error) {
	return s.List(ctx, repository.PayoutFilter{PartnerID: partnerID, Status: status, Page: page, Limit: limit})
}

func (s *fakePayoutStore) List(ctx context.Context, f repository.PayoutFilter) ([]models.Payout, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []models.Payout
	for _, p := range s.rows {
		if f.PartnerID != 0 && p.PartnerID != f.PartnerID {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		list = append(list, *p)
	}
	return list, int64(len(list)), nil
}

func (s *fakePayoutStore) ListProcessingOlderThan(ctx context.Context, cutoff time.Time) ([]models.Payout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []models.Payout
	for _, p := range s.rows {
		if p.Status == domain.PayoutStatusProcessing && p.UpdatedAt.Before(cutoff) {
			list = append(list, *p)
		}
	}
	return list, nil
}

func (s *fakePayoutStore) HasOpenPayout(ctx context.Context, partnerID uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.rows {
		if p.PartnerID != partnerID {
			continue
		}
		if p.Status == domain.PayoutStatusPending || p.Status == domain.PayoutStatusProcessing {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakePayoutStore) SumCommittedCents(ctx context.Context, partnerID uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum int64
	for _, p := range s.rows {
		if p.PartnerID != partnerID {
			continue
		}
		switch p.Status {
		case domain.PayoutStatusPending, domain.PayoutStatusProcessing, domain.PayoutStatusCompleted:
			sum += p.AmountCents
		}
	}
	return sum, nil
}

func (s *fakePayoutStore) UpdateStatusCAS(ctx context.Context, id uint, fromVersion int64, updates map[string]interface{}) (bool, error) {
	s.mu.Lock()
	if s.casMisses > 0 {
		s.casMisses--
		hook := s.afterMiss
		s.mu.Unlock()
		if hook != nil {
			hook(s)
		}
		return false, nil
	}
	defer s.mu.Unlock()

	p, ok := s.rows[id]
	if !ok || p.Version != fromVersion {
		return false, nil
	}
	if v, ok := updates["status"]; ok {
		p.Status = v.(string)
	}
	if v, ok := updates["external_ref"]; ok {
		p.ExternalRef = v.(string)
	}
	if v, ok := updates["failure_reason"]; ok {
		p.FailureReason = v.(string)
	}
	if v, ok := updates["processed_at"]; ok {
		p.ProcessedAt = v.(*time.Time)
	}
	p.Version = fromVersion + 1
	p.UpdatedAt = time.Now()
	return true, nil
}

type fakePartnerStore struct {
	mu   sync.Mutex
	seq  uint
	rows map[uint]*models.Partner
}

func newFakePartnerStore() *fakePartnerStore {
	return &fakePartnerStore{rows: map[uint]*models.Partner{}}
}

func (s *fakePartnerStore) add(p *models.Partner) *models.Partner {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	p.ID = s.seq
	if p.Status == "" {
		p.Status = domain.PartnerStatusActive
	}
	cp := *p
	s.rows[p.ID] = &cp
	return p
}

func (s *fakePartnerStore) Create(ctx context.Context, p *models.Partner) error {
	s.mu.Lock()
	for _, existing := range s.rows {
		if existing.Email == p.Email {
			s.mu.Unlock()
			return domain.ErrEmailTaken
		}
	}
	s.mu.Unlock()
	s.add(p)
	return nil
}

func (s *fakePartnerStore) GetByID(ctx context.Context, id uint) (*models.Partner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.rows[id]
	if !ok {
		return nil, domain.ErrPartnerNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *fakePartnerStore) List(ctx context.Context, page, limit int) ([]models.Partner, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []models.Partner
	for _, p := range s.rows {
		list = append(list, *p)
	}
	return list, int64(len(list)), nil
}

func (s *fakePartnerStore) UpdateFCMToken(ctx context.Context, id uint, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.rows[id]; ok {
		p.FCMToken = token
	}
	return nil
}

type fakeCommissionStore struct {
	mu   sync.Mutex
	seq  uint
	rows map[uint]*models.Commission
}

func newFakeCommissionStore() *fakeCommissionStore {
	return &fakeCommissionStore{rows: map[uint]*models.Commission{}}
}

func (s *fakeCommissionStore) addConfirmed(partnerID uint, sourceRef string, amountCents int64) {
	now := time.Now()
	s.Create(context.Background(), &models.Commission{
		PartnerID:   partnerID,
		SourceRef:   sourceRef,
		AmountCents: amountCents,
		Status:      domain.CommissionStatusConfirmed,
		ConfirmedAt: &now,
	})
}

func (s *fakeCommissionStore) Create(ctx context.Context, c *models.Commission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.rows {
		if existing.SourceRef == c.SourceRef {
			return repository.ErrDuplicateSourceRef
		}
	}
	s.seq++
	c.ID = s.seq
	cp := *c
	s.rows[c.ID] = &cp
	return nil
}

func (s *fakeCommissionStore) GetBySourceRef(ctx context.Context, sourceRef string) (*models.Commission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.rows {
		if c.SourceRef == sourceRef {
			cp := *c
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *fakeCommissionStore) UpdateStatus(ctx context.Context, id uint, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.rows[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	c.Status = status
	if status == domain.CommissionStatusConfirmed && c.ConfirmedAt == nil {
		now := time.Now()
		c.ConfirmedAt = &now
	}
	return nil
}

func (s *fakeCommissionStore) ListByPartner(ctx context.Context, partnerID uint, page, limit int) ([]models.Commission, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []models.Commission
	for _, c := range s.rows {
		if c.PartnerID == partnerID {
			list = append(list, *c)
		}
	}
	return list, int64(len(list)), nil
}

func (s *fakeCommissionStore) SumConfirmedCents(ctx context.Context, partnerID uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum int64
	for _, c := range s.rows {
		if c.PartnerID == partnerID && c.Status == domain.CommissionStatusConfirmed {
			sum += c.AmountCents
		}
	}
	return sum, nil
}

type fakeEventStore struct {
	mu   sync.Mutex
	seq  uint
	rows map[string]*models.GatewayEvent // by event id
}

func newFakeEventStore() *fakeEventStore {
	return &fakeEventStore{rows: map[string]*models.GatewayEvent{}}
}

func (s *fakeEventStore) Create(ctx context.Context, e *models.GatewayEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[e.EventID]; ok {
		return repository.ErrDuplicateEvent
	}
	s.seq++
	e.ID = s.seq
	cp := *e
	s.rows[e.EventID] = &cp
	return nil
}

func (s *fakeEventStore) GetByEventID(ctx context.Context, eventID string) (*models.GatewayEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.rows[eventID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *fakeEventStore) MarkProcessed(ctx context.Context, id uint, applied bool, result, payoutRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.rows {
		if e.ID != id {
			continue
		}
		e.Applied = applied
		e.Result = result
		if payoutRef != "" {
			e.PayoutRef = payoutRef
		}
		if applied {
			now := time.Now()
			e.ProcessedAt = &now
		}
		return nil
	}
	return gorm.ErrRecordNotFound
}

// fakeNotifier records lifecycle callbacks.
type fakeNotifier struct {
	mu      sync.Mutex
	changed []*models.Payout
	stale   []*models.Payout
}

func (n *fakeNotifier) PayoutStatusChanged(p *models.Payout) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changed = append(n.changed, p)
}

func (n *fakeNotifier) PayoutStale(p *models.Payout) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stale = append(n.stale, p)
}

func (n *fakeNotifier) changedCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.changed)
}

func (n *fakeNotifier) staleCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.stale)
}

// fakeGateway scripts initiation answers and transfer states.
type fakeGateway struct {
	mu        sync.Mutex
	initCalls []gateway.TransferRequest
	initErr   error
	accept    bool
	message   string
	extRef    string

	transfers map[string]*gateway.TransferStatus
	statusErr error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		accept:    true,
		extRef:    "tr_fake_1",
		transfers: map[string]*gateway.TransferStatus{},
	}
}

func (g *fakeGateway) Name() string { return "fake" }

func (g *fakeGateway) InitiateTransfer(ctx context.Context, req gateway.TransferRequest) (*gateway.TransferResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.initCalls = append(g.initCalls, req)
	if g.initErr != nil {
		return nil, g.initErr
	}
	return &gateway.TransferResult{ExternalRef: g.extRef, Accepted: g.accept, Message: g.message}, nil
}

func (g *fakeGateway) GetTransfer(ctx context.Context, externalRef string) (*gateway.TransferStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.statusErr != nil {
		return nil, g.statusErr
	}
	if st, ok := g.transfers[externalRef]; ok {
		return st, nil
	}
	return &gateway.TransferStatus{ExternalRef: externalRef, State: gateway.StateProcessing}, nil
}

func (g *fakeGateway) VerifySignature(payload []byte, signature string) bool { return true }

func (g *fakeGateway) ParseEvent(payload []byte) (*gateway.Event, error) {
	return &gateway.Event{ID: "evt_fake", Kind: gateway.KindPaid, Raw: payload}, nil
}

func (g *fakeGateway) initCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.initCalls)
}
