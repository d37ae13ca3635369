package gateway

import (
	"context"
	"time"
)

// TransferRequest asks the gateway to move funds to a partner's account.
type TransferRequest struct {
	Reference    string // our payout reference, echoed back in webhooks
	AccountToken string // partner's account token at the gateway
	AmountCents  int64
	Currency     string
	Narration    string
	CallbackURL  string
}

// TransferResult is the gateway's synchronous answer to an initiation.
type TransferResult struct {
	ExternalRef string // gateway transfer id
	Accepted    bool
	Message     string // human-readable reason when not accepted
}

// Transfer states reported by GetTransfer.
const (
	StatePending    = "pending"
	StateProcessing = "processing"
	StatePaid       = "paid"
	StateFailed     = "failed"
	StateCanceled   = "canceled"
)

type TransferStatus struct {
	ExternalRef   string
	State         string
	FailureReason string
}

func (s *TransferStatus) Terminal() bool {
	switch s.State {
	case StatePaid, StateFailed, StateCanceled:
		return true
	}
	return false
}

// Kind classifies a webhook event. Unrecognized event types parse to
// KindUnknown rather than an error so new gateway features don't break
// deliveries of the ones we care about.
type Kind string

const (
	KindPaid     Kind = "transfer.paid"
	KindFailed   Kind = "transfer.failed"
	KindCanceled Kind = "transfer.canceled"
	KindUnknown  Kind = "unknown"
)

// Event is a normalized webhook delivery.
type Event struct {
	ID            string // gateway event id, unique per event (not per delivery)
	Kind          Kind
	ExternalRef   string // gateway transfer id
	Reference     string // our reference, when the gateway echoes it
	FailureReason string
	OccurredAt    time.Time
	Raw           []byte
}

type Gateway interface {
	Name() string
	InitiateTransfer(ctx context.Context, req TransferRequest) (*TransferResult, error)
	GetTransfer(ctx context.Context, externalRef string) (*TransferStatus, error)
	// VerifySignature checks the webhook HMAC over the raw body.
	VerifySignature(payload []byte, signature string) bool
	ParseEvent(payload []byte) (*Event, error)
}
