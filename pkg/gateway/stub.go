package gateway

import (
	"context"
	"fmt"
	"time"
)

// Stub is a no-op gateway for development; every transfer is accepted and
// reported paid.
type Stub struct{}

func (s *Stub) Name() string { return "stub" }

func (s *Stub) InitiateTransfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	return &TransferResult{
		ExternalRef: fmt.Sprintf("stub_%d", time.Now().UnixNano()),
		Accepted:    true,
	}, nil
}

func (s *Stub) GetTransfer(ctx context.Context, externalRef string) (*TransferStatus, error) {
	return &TransferStatus{ExternalRef: externalRef, State: StatePaid}, nil
}

func (s *Stub) VerifySignature(payload []byte, signature string) bool { return true }

func (s *Stub) ParseEvent(payload []byte) (*Event, error) {
	return &Event{ID: fmt.Sprintf("stub_evt_%d", time.Now().UnixNano()), Kind: KindPaid, Raw: payload}, nil
}
