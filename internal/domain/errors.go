package domain

import (
	"errors"
	"fmt"
)

var (
	ErrPartnerNotFound = errors.New("partner not found")
	ErrPayoutNotFound  = errors.New("payout not found")

	// ErrConcurrentModification is returned when a state transition loses the
	// version check against a concurrent writer and retries are exhausted.
	ErrConcurrentModification = errors.New("payout was modified concurrently")

	ErrEmailTaken = errors.New("email already registered")
)

// Rejection codes surfaced to API clients on a refused payout request.
const (
	CodeInvalidAmount       = "INVALID_AMOUNT"
	CodeBelowMinimum        = "BELOW_MINIMUM"
	CodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	CodePayoutInFlight      = "PAYOUT_IN_FLIGHT"
)

// RejectionError is a business-rule refusal of a payout request. It is not a
// system failure; handlers map it to 422.
type RejectionError struct {
	Code    string
	Message string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewRejection(code, format string, args ...interface{}) *RejectionError {
	return &RejectionError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// AsRejection unwraps err into a RejectionError if it is one.
func AsRejection(err error) (*RejectionError, bool) {
	var re *RejectionError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// InvalidTransitionError reports an attempt to move a payout along an edge the
// state machine does not allow (for example COMPLETED -> PROCESSING).
type InvalidTransitionError struct {
	Reference string
	From      string
	To        string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("payout %s: invalid transition %s -> %s", e.Reference, e.From, e.To)
}
