package reservationRepo

import (
	"context"
	"time"

	"meetwise/models"
)

// ReservationRepository mediates all reservation state transitions. The
// store is the sole authority for these transitions; holds and confirms run
// inside multi-document transactions.
type ReservationRepository interface {
	// HoldTransactionally inserts a HELD reservation after re-checking that
	// no non-terminal reservation or active meeting overlaps its interval.
	// Returns a Conflict error when the slot is taken. The transaction runs
	// at snapshot isolation, so the overlap check only excludes concurrent
	// holds when callers hold the expert's advisory lock across the call.
	HoldTransactionally(ctx context.Context, res *models.Reservation, now time.Time) error

	AttachPaymentSession(ctx context.Context, id models.ReservationID, sessionID models.PaymentSessionID) error
	GetByID(ctx context.Context, id models.ReservationID) (*models.Reservation, error)
	GetByPaymentSession(ctx context.Context, sessionID models.PaymentSessionID) (*models.Reservation, error)

	// ConfirmTransactionally flips HELD to CONFIRMED, inserts the meeting
	// and its pending transfer in one transaction. Fails with Gone when the
	// hold is no longer live, Conflict when the meeting slot is taken.
	ConfirmTransactionally(ctx context.Context, id models.ReservationID, capturedPaymentID string, meeting *models.Meeting, transfer *models.PaymentTransfer, now time.Time) error

	// Cancel moves HELD to CANCELLED; returns false when the reservation
	// was already terminal (no-op).
	Cancel(ctx context.Context, id models.ReservationID, reason string) (bool, error)

	// ExtendForVoucher pushes the expiry out once for async voucher flows.
	ExtendForVoucher(ctx context.Context, id models.ReservationID, newExpiry time.Time) error

	// SweepExpired flips HELD rows past their expiry to EXPIRED and returns
	// how many were swept. Safe to run concurrently with confirms.
	SweepExpired(ctx context.Context, now time.Time) (int64, error)

	// ListActiveOverlapping returns non-terminal reservations whose
	// interval intersects [start, end) for the expert. HELD rows past
	// expiry are excluded even if the sweep has not run yet.
	ListActiveOverlapping(ctx context.Context, expertID models.ExpertID, start, end, now time.Time) ([]models.Reservation, error)
}
