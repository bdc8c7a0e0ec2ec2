package meetingRepo

import (
	"context"
	"time"

	"meetwise/models"
)

// MeetingRepository persists confirmed meetings. Insertion happens inside
// the reservation confirm transaction; this repository covers reads,
// cancellation and calendar-entry bookkeeping.
type MeetingRepository interface {
	GetByID(ctx context.Context, id models.MeetingID) (*models.Meeting, error)
	FindByExpert(ctx context.Context, expertID models.ExpertID, from, to time.Time) ([]models.Meeting, error)
	FindByGuest(ctx context.Context, guest models.GuestID, from, to time.Time) ([]models.Meeting, error)
	ListActiveOverlapping(ctx context.Context, expertID models.ExpertID, start, end time.Time) ([]models.Meeting, error)
	// ListStartingBetween returns non-cancelled meetings with a start in
	// [from, to), across all experts. Used by the reminder job.
	ListStartingBetween(ctx context.Context, from, to time.Time) ([]models.Meeting, error)

	// Cancel marks the meeting cancelled; returns the updated meeting, or
	// Gone when it was already cancelled.
	Cancel(ctx context.Context, id models.MeetingID, reason, actor string, now time.Time) (*models.Meeting, error)

	// MarkRefunded flips the payment status once the capture was returned.
	MarkRefunded(ctx context.Context, id models.MeetingID) error

	SetCalendarEntryID(ctx context.Context, id models.MeetingID, entryID string) error
	ClearCalendarEntryID(ctx context.Context, id models.MeetingID) error
	SetTransferState(ctx context.Context, id models.MeetingID, state string) error
}
