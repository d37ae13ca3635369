package domain

// Roles carried in JWT claims, minted by the partner portal.
const (
	RolePartner = "PARTNER"
	RoleAdmin   = "ADMIN"
)

const (
	PartnerStatusActive    = "ACTIVE"
	PartnerStatusSuspended = "SUSPENDED"
)

// Payout lifecycle states.
const (
	PayoutStatusPending    = "PENDING"
	PayoutStatusProcessing = "PROCESSING"
	PayoutStatusCompleted  = "COMPLETED"
	PayoutStatusFailed     = "FAILED"
	PayoutStatusCancelled  = "CANCELLED"
)

const (
	PayoutMethodGateway = "GATEWAY"
	PayoutMethodManual  = "MANUAL"
)

const (
	CommissionStatusPending   = "PENDING"
	CommissionStatusConfirmed = "CONFIRMED"
	CommissionStatusReversed  = "REVERSED"
)

// Bulk admin actions over payouts.
const (
	BulkActionApprove = "APPROVE"
	BulkActionReject  = "REJECT"
	BulkActionCancel  = "CANCEL"
)

// Outcomes recorded against a processed webhook event.
const (
	EventResultApplied   = "APPLIED"
	EventResultIgnored   = "IGNORED"
	EventResultDuplicate = "DUPLICATE"
)

const (
	NotificationTypePayoutCompleted = "PAYOUT_COMPLETED"
	NotificationTypePayoutFailed    = "PAYOUT_FAILED"
	NotificationTypePayoutCancelled = "PAYOUT_CANCELLED"
	NotificationTypePayoutStale     = "PAYOUT_STALE"
)

// IsTerminalStatus reports whether a payout can never leave the given state.
func IsTerminalStatus(status string) bool {
	switch status {
	case PayoutStatusCompleted, PayoutStatusFailed, PayoutStatusCancelled:
		return true
	}
	return false
}
