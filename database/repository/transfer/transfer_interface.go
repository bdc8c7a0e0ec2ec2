package transferRepo

import (
	"context"
	"time"

	"meetwise/models"
)

// TransferRepository stores payout transfers. Status transitions are
// monotonic and enforced with conditional updates; rows are never deleted.
type TransferRepository interface {
	Insert(ctx context.Context, transfer *models.PaymentTransfer) error
	GetByID(ctx context.Context, id models.TransferID) (*models.PaymentTransfer, error)
	GetByMeeting(ctx context.Context, meetingID models.MeetingID) (*models.PaymentTransfer, error)

	// ListDue returns PENDING and APPROVED transfers whose scheduled
	// instant has passed. Aging eligibility is evaluated by the caller.
	ListDue(ctx context.Context, now time.Time) ([]models.PaymentTransfer, error)

	// Claim leases a transfer for disbursement. Only one concurrent worker
	// wins; returns false when another worker holds the claim or the row
	// is no longer disbursable.
	Claim(ctx context.Context, id models.TransferID, now time.Time) (bool, error)
	ReleaseClaim(ctx context.Context, id models.TransferID) error

	// Approve moves PENDING to APPROVED (manual review bypasses aging).
	Approve(ctx context.Context, id models.TransferID) error

	MarkCompleted(ctx context.Context, id models.TransferID, providerTransferID string) error

	// RecordFailure increments the retry count; at maxRetries the transfer
	// goes FAILED terminal. Returns the updated row.
	RecordFailure(ctx context.Context, id models.TransferID, cause string, maxRetries int) (*models.PaymentTransfer, error)

	// VoidByMeeting cancels a not-yet-disbursed transfer when its meeting
	// is cancelled. Returns false when the transfer was already terminal.
	VoidByMeeting(ctx context.Context, meetingID models.MeetingID) (bool, error)
}
