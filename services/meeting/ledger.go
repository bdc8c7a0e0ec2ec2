package meeting

import (
	"context"
	"time"

	meetingRepo "meetwise/database/repository/meeting"
	transferRepo "meetwise/database/repository/transfer"
	"meetwise/models"
	"meetwise/utils"

	"go.uber.org/zap"
)

// Cancellation actors recorded on the meeting.
const (
	ActorGuest  = "guest"
	ActorExpert = "expert"
)

// Enqueuer is the slice of the job queue the ledger needs: retrying the
// external calendar entry removal.
type Enqueuer interface {
	EnqueueCalendarDelete(ctx context.Context, expertID models.ExpertID, entryID string) error
}

type refunder interface {
	Refund(ctx context.Context, ref, paymentID string) error
}

type calendarDeleter interface {
	DeleteMeetingEntry(ctx context.Context, expertID models.ExpertID, entryID string) error
}

// Ledger reads and cancels confirmed meetings. Meetings are created by the
// reservation confirm transaction, never here.
type Ledger interface {
	Get(ctx context.Context, id models.MeetingID) (*models.Meeting, error)
	ForExpert(ctx context.Context, expertID models.ExpertID, from, to time.Time) ([]models.Meeting, error)
	ForGuest(ctx context.Context, guest models.GuestID, from, to time.Time) ([]models.Meeting, error)

	// Cancel refunds the capture, voids the not-yet-disbursed payout and
	// removes the external calendar entry. Cancelling twice returns Gone.
	Cancel(ctx context.Context, id models.MeetingID, reason, actor string, now time.Time) (*models.Meeting, error)
}

// DefaultMeetingLedger implements Ledger.
type DefaultMeetingLedger struct {
	Meetings  meetingRepo.MeetingRepository
	Transfers transferRepo.TransferRepository
	Payments  refunder
	Calendar  calendarDeleter
	Enqueue   Enqueuer
	Logger    *zap.Logger
}

func (l *DefaultMeetingLedger) Get(ctx context.Context, id models.MeetingID) (*models.Meeting, error) {
	return l.Meetings.GetByID(ctx, id)
}

func (l *DefaultMeetingLedger) ForExpert(ctx context.Context, expertID models.ExpertID, from, to time.Time) ([]models.Meeting, error) {
	return l.Meetings.FindByExpert(ctx, expertID, from, to)
}

func (l *DefaultMeetingLedger) ForGuest(ctx context.Context, guest models.GuestID, from, to time.Time) ([]models.Meeting, error) {
	return l.Meetings.FindByGuest(ctx, guest, from, to)
}

func (l *DefaultMeetingLedger) Cancel(ctx context.Context, id models.MeetingID, reason, actor string, now time.Time) (*models.Meeting, error) {
	meeting, err := l.Meetings.Cancel(ctx, id, reason, actor, now)
	if err != nil {
		return nil, err
	}

	// Money first: the guest gets the capture back before anything
	// best-effort runs.
	if meeting.PaymentStatus == models.MeetingPaymentCaptured && meeting.PaymentID != "" {
		if err := l.Payments.Refund(ctx, "meeting:"+id.String(), meeting.PaymentID); err != nil {
			// The meeting is already cancelled; surface the refund failure so
			// the caller retries the money movement, not the cancellation.
			return nil, utils.WrapE(utils.KindOf(err), err, "meeting %s cancelled but refund failed", id)
		}
		if err := l.Meetings.MarkRefunded(ctx, id); err != nil {
			l.Logger.Error("failed to record refund on meeting",
				zap.String("meetingID", id.String()), zap.Error(err))
		} else {
			meeting.PaymentStatus = models.MeetingPaymentRefunded
		}
	}

	voided, err := l.Transfers.VoidByMeeting(ctx, id)
	if err != nil {
		l.Logger.Error("failed to void payout transfer",
			zap.String("meetingID", id.String()), zap.Error(err))
	}
	if voided {
		if err := l.Meetings.SetTransferState(ctx, id, models.MeetingTransferVoided); err != nil {
			l.Logger.Error("failed to mirror voided transfer state",
				zap.String("meetingID", id.String()), zap.Error(err))
		} else {
			meeting.TransferState = models.MeetingTransferVoided
		}
	} else if err == nil {
		// Already disbursed or no transfer; recovery happens out-of-band.
		l.Logger.Warn("payout transfer not voidable on cancel",
			zap.String("meetingID", id.String()))
	}

	l.removeCalendarEntry(ctx, meeting)

	l.Logger.Info("meeting cancelled",
		zap.String("meetingID", id.String()),
		zap.String("actor", actor),
		zap.String("reason", reason))
	return meeting, nil
}

// removeCalendarEntry is best effort; a provider hiccup falls back to the
// job queue.
func (l *DefaultMeetingLedger) removeCalendarEntry(ctx context.Context, meeting *models.Meeting) {
	if meeting.ExternalCalendarEntryID == "" || l.Calendar == nil {
		return
	}
	if err := l.Calendar.DeleteMeetingEntry(ctx, meeting.ExpertID, meeting.ExternalCalendarEntryID); err != nil {
		l.Logger.Warn("inline calendar delete failed, queueing retry",
			zap.String("meetingID", meeting.ID.String()), zap.Error(err))
		if l.Enqueue != nil {
			if err := l.Enqueue.EnqueueCalendarDelete(ctx, meeting.ExpertID, meeting.ExternalCalendarEntryID); err != nil {
				l.Logger.Error("failed to enqueue calendar delete",
					zap.String("meetingID", meeting.ID.String()), zap.Error(err))
			}
		}
		return
	}
	if err := l.Meetings.ClearCalendarEntryID(ctx, meeting.ID); err != nil {
		l.Logger.Error("failed to clear calendar entry id",
			zap.String("meetingID", meeting.ID.String()), zap.Error(err))
	}
}
