package models

import "time"

// PaymentTransfer statuses. Transitions are monotonic:
// PENDING -> APPROVED -> COMPLETED, PENDING -> {COMPLETED, FAILED, CANCELLED}.
// COMPLETED, FAILED and CANCELLED are terminal.
const (
	TransferPending   = "PENDING"
	TransferApproved  = "APPROVED"
	TransferCompleted = "COMPLETED"
	TransferFailed    = "FAILED"
	TransferCancelled = "CANCELLED"
)

// PaymentTransfer is a directed payout from the platform to an Expert's
// payout account. Rows are never deleted; they are the payout audit trail.
type PaymentTransfer struct {
	ID                 TransferID      `bson:"id" json:"id"`
	MeetingID          MeetingID       `bson:"meeting_id" json:"meetingId"`
	ExpertID           ExpertID        `bson:"expert_id" json:"expertId"`
	ExpertAccountID    PayoutAccountID `bson:"expert_account_id" json:"expertAccountId"`
	Country            string          `bson:"country" json:"country"` // ISO-2, for the aging rule
	GrossAmountMinor   int64           `bson:"gross_amount_minor" json:"grossAmountMinor"`
	NetAmountMinor     int64           `bson:"net_amount_minor" json:"netAmountMinor"`
	Currency           string          `bson:"currency" json:"currency"`
	SessionStart       time.Time       `bson:"session_start" json:"sessionStart"`
	ScheduledAt        time.Time       `bson:"scheduled_at" json:"scheduledAt"`
	PaymentCreatedAt   time.Time       `bson:"payment_created_at" json:"paymentCreatedAt"`
	Status             string          `bson:"status" json:"status"`
	RequiresApproval   bool            `bson:"requires_approval" json:"requiresApproval"`
	RetryCount         int             `bson:"retry_count" json:"retryCount"`
	LastError          string          `bson:"last_error,omitempty" json:"lastError,omitempty"`
	ProviderTransferID string          `bson:"provider_transfer_id,omitempty" json:"providerTransferId,omitempty"`
	ClaimedAt          *time.Time      `bson:"claimed_at,omitempty" json:"claimedAt,omitempty"`
	CreatedAt          time.Time       `bson:"created_at" json:"createdAt"`
	UpdatedAt          time.Time       `bson:"updated_at" json:"updatedAt"`
}

// Terminal reports whether the transfer reached a final status.
func (t PaymentTransfer) Terminal() bool {
	switch t.Status {
	case TransferCompleted, TransferFailed, TransferCancelled:
		return true
	}
	return false
}
