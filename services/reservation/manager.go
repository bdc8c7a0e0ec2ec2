package reservation

import (
	"context"
	"strings"
	"time"

	expertRepo "meetwise/database/repository/expert"
	reservationRepo "meetwise/database/repository/reservation"
	"meetwise/models"
	"meetwise/services/availability"
	"meetwise/services/payment"
	"meetwise/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HoldRequest is the guest's attempt to take a slot.
type HoldRequest struct {
	EventID         models.EventID
	Start           time.Time
	GuestIdentifier models.GuestID
	GuestEmail      string
	GuestTimezone   string
	GuestNotes      string
	PaymentMethods  []string
}

// HoldResult pairs the created hold with the checkout redirect.
type HoldResult struct {
	Reservation *models.Reservation
	CheckoutURL string
}

// Enqueuer is the slice of the job queue the manager needs: retrying the
// expert-calendar insert when the inline attempt fails.
type Enqueuer interface {
	EnqueueCalendarInsert(ctx context.Context, meetingID models.MeetingID) error
}

// SlotLocker serializes hold attempts per expert. The store's hold
// transaction runs at snapshot isolation, so two holds for overlapping but
// distinct start instants would each pass the overlap check on their own
// snapshot and both commit; holding the expert's advisory lock across the
// check-and-insert makes the second attempt see the first row.
type SlotLocker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// holdLockTTL bounds how long a crashed hold attempt can keep its expert
// locked.
const holdLockTTL = 10 * time.Second

// Manager drives the reservation lifecycle: hold, payment outcome, abort,
// expiry sweep. All state transitions go through the reservation repository's
// transactions; the manager decides, the store linearizes.
type Manager interface {
	Hold(ctx context.Context, req HoldRequest, now time.Time) (*HoldResult, error)
	Get(ctx context.Context, id models.ReservationID) (*models.Reservation, error)
	// Abort cancels a hold at the guest's request. Aborting an already
	// terminal reservation is a no-op.
	Abort(ctx context.Context, id models.ReservationID, reason string) error
	// ApplyOutcome applies a verified payment event. It only errors when the
	// outcome could not be made durable and the event should be redelivered.
	ApplyOutcome(ctx context.Context, out payment.Outcome, now time.Time) error
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
	// InsertCalendarEntry pushes a confirmed meeting into the expert's
	// external calendar, recording the entry id.
	InsertCalendarEntry(ctx context.Context, meetingID models.MeetingID) error
}

type calendarInserter interface {
	InsertMeetingEntry(ctx context.Context, expertID models.ExpertID, meeting *models.Meeting, eventTitle string) (string, error)
}

type meetingEntryStore interface {
	GetByID(ctx context.Context, id models.MeetingID) (*models.Meeting, error)
	SetCalendarEntryID(ctx context.Context, id models.MeetingID, entryID string) error
}

// DefaultReservationManager implements Manager.
type DefaultReservationManager struct {
	Experts      expertRepo.ExpertRepository
	Reservations reservationRepo.ReservationRepository
	Meetings     meetingEntryStore
	Availability availability.Service
	Payments     payment.Orchestrator
	Calendar     calendarInserter
	Enqueue      Enqueuer
	Locks        SlotLocker
	Logger       *zap.Logger

	HoldTTL      time.Duration
	VoucherGrace time.Duration
	SafetyDelay  time.Duration
	FeeRate      float64
}

func (m *DefaultReservationManager) Hold(ctx context.Context, req HoldRequest, now time.Time) (*HoldResult, error) {
	event, err := m.Experts.GetEvent(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	if !event.Active {
		return nil, utils.E(utils.KindNotFound, "event %s is not active", req.EventID)
	}
	expert, err := m.Experts.GetByID(ctx, event.ExpertID)
	if err != nil {
		return nil, err
	}
	if !expert.Active {
		return nil, utils.E(utils.KindNotFound, "expert %s is not active", expert.ID)
	}

	if err := m.Availability.ValidateStart(ctx, expert, event, req.Start, now); err != nil {
		return nil, err
	}

	res := &models.Reservation{
		ID:              models.ReservationID(uuid.New().String()),
		EventID:         event.ID,
		ExpertID:        expert.ID,
		GuestIdentifier: req.GuestIdentifier,
		GuestEmail:      req.GuestEmail,
		GuestTimezone:   req.GuestTimezone,
		GuestNotes:      req.GuestNotes,
		Start:           req.Start.UTC(),
		End:             req.Start.UTC().Add(time.Duration(event.DurationMinutes) * time.Minute),
		AmountMinor:     event.PriceMinor,
		Currency:        event.Currency,
		Status:          models.ReservationHeld,
		CreatedAt:       now,
		ExpiresAt:       now.Add(m.HoldTTL),
	}

	release, err := m.Locks.Acquire(ctx, "hold:expert:"+expert.ID.String(), holdLockTTL)
	if err != nil {
		return nil, err
	}
	holdErr := m.Reservations.HoldTransactionally(ctx, res, now)
	release()
	if holdErr != nil {
		return nil, holdErr
	}

	sess, err := m.Payments.CreateSession(ctx, res, event, req.PaymentMethods)
	if err != nil {
		// The hold is useless without a way to pay for it.
		if _, cancelErr := m.Reservations.Cancel(ctx, res.ID, "payment_session_failed"); cancelErr != nil {
			m.Logger.Error("failed to release hold after session failure",
				zap.String("reservationID", res.ID.String()), zap.Error(cancelErr))
		}
		return nil, err
	}

	if err := m.Reservations.AttachPaymentSession(ctx, res.ID, sess.ID); err != nil {
		return nil, err
	}
	res.PaymentSessionID = sess.ID

	m.Logger.Info("slot held",
		zap.String("reservationID", res.ID.String()),
		zap.String("expertID", expert.ID.String()),
		zap.Time("start", res.Start))
	return &HoldResult{Reservation: res, CheckoutURL: sess.URL}, nil
}

func (m *DefaultReservationManager) Get(ctx context.Context, id models.ReservationID) (*models.Reservation, error) {
	return m.Reservations.GetByID(ctx, id)
}

func (m *DefaultReservationManager) Abort(ctx context.Context, id models.ReservationID, reason string) error {
	res, err := m.Reservations.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if res.Status == models.ReservationConfirmed {
		return utils.E(utils.KindConflict, "reservation %s is already confirmed", id)
	}
	if res.Terminal() {
		return nil
	}
	if _, err := m.Reservations.Cancel(ctx, id, reason); err != nil {
		return err
	}
	return nil
}

func (m *DefaultReservationManager) ApplyOutcome(ctx context.Context, out payment.Outcome, now time.Time) error {
	if out.Effect == payment.EffectNone {
		return nil
	}
	res, err := m.Reservations.GetByPaymentSession(ctx, out.SessionID)
	if err != nil {
		if utils.IsKind(err, utils.KindNotFound) {
			// Not ours; acknowledge so the provider stops redelivering.
			m.Logger.Warn("payment event for unknown session",
				zap.String("sessionID", out.SessionID.String()))
			return nil
		}
		return err
	}

	switch out.Effect {
	case payment.EffectConfirm:
		if mismatchedCapture(res, out) {
			return m.abortMismatchedCapture(ctx, res, out)
		}
		return m.confirm(ctx, res, out.PaymentID, now)
	case payment.EffectPendingVoucher:
		return m.markPendingVoucher(ctx, res, now)
	default:
		return m.abortFromProvider(ctx, res, out.Reason)
	}
}

// confirm promotes a live hold into a meeting plus its pending payout
// transfer. A capture that lands after the hold died is refunded in full;
// the slot stays free for whoever holds it now.
func (m *DefaultReservationManager) confirm(ctx context.Context, res *models.Reservation, paymentID string, now time.Time) error {
	if res.Status == models.ReservationConfirmed {
		return m.confirmedRedelivery(ctx, res, paymentID)
	}
	if res.Terminal() || res.Expired(now) {
		return m.refundLateCapture(ctx, res, paymentID)
	}

	expert, err := m.Experts.GetByID(ctx, res.ExpertID)
	if err != nil {
		return err
	}

	meeting := &models.Meeting{
		ID:              models.MeetingID(uuid.New().String()),
		EventID:         res.EventID,
		ExpertID:        res.ExpertID,
		GuestIdentifier: res.GuestIdentifier,
		Start:           res.Start,
		End:             res.End,
		GuestTimezone:   res.GuestTimezone,
		GuestNotes:      res.GuestNotes,
		Active:          true,
		PaymentID:       paymentID,
		PaymentStatus:   models.MeetingPaymentCaptured,
		TransferState:   models.MeetingTransferPending,
		CreatedAt:       now,
	}
	if event, err := m.Experts.GetEvent(ctx, res.EventID); err == nil {
		meeting.LocationHandle = event.LocationHandle
	}

	transfer := &models.PaymentTransfer{
		ID:               models.TransferID(uuid.New().String()),
		MeetingID:        meeting.ID,
		ExpertID:         expert.ID,
		ExpertAccountID:  expert.PayoutAccountID,
		Country:          expert.Country,
		GrossAmountMinor: res.AmountMinor,
		NetAmountMinor:   payment.NetAmount(res.AmountMinor, m.FeeRate),
		Currency:         res.Currency,
		SessionStart:     res.Start,
		ScheduledAt:      res.Start.Add(m.SafetyDelay),
		PaymentCreatedAt: now,
		Status:           models.TransferPending,
		RequiresApproval: expert.RequiresPayoutApproval,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := m.Reservations.ConfirmTransactionally(ctx, res.ID, paymentID, meeting, transfer, now); err != nil {
		if utils.IsKind(err, utils.KindGone) {
			// Lost the race against expiry or a concurrent delivery.
			fresh, freshErr := m.Reservations.GetByID(ctx, res.ID)
			if freshErr == nil && fresh.Status == models.ReservationConfirmed {
				return m.confirmedRedelivery(ctx, fresh, paymentID)
			}
			return m.refundLateCapture(ctx, res, paymentID)
		}
		return err
	}

	m.Logger.Info("meeting confirmed",
		zap.String("reservationID", res.ID.String()),
		zap.String("meetingID", meeting.ID.String()),
		zap.Int64("netAmountMinor", transfer.NetAmountMinor))

	m.attachCalendarEntry(ctx, meeting, expert.ID)
	return nil
}

// attachCalendarEntry is best effort: a provider hiccup must not fail the
// confirm, so the insert falls back to the job queue.
func (m *DefaultReservationManager) attachCalendarEntry(ctx context.Context, meeting *models.Meeting, expertID models.ExpertID) {
	if m.Calendar == nil {
		return
	}
	title := "Meeting"
	if event, err := m.Experts.GetEvent(ctx, meeting.EventID); err == nil {
		title = event.Title
	}
	entryID, err := m.Calendar.InsertMeetingEntry(ctx, expertID, meeting, title)
	if err == nil {
		if err := m.Meetings.SetCalendarEntryID(ctx, meeting.ID, entryID); err != nil {
			m.Logger.Error("failed to record calendar entry id",
				zap.String("meetingID", meeting.ID.String()), zap.Error(err))
		}
		return
	}
	m.Logger.Warn("inline calendar insert failed, queueing retry",
		zap.String("meetingID", meeting.ID.String()), zap.Error(err))
	if m.Enqueue != nil {
		if err := m.Enqueue.EnqueueCalendarInsert(ctx, meeting.ID); err != nil {
			m.Logger.Error("failed to enqueue calendar insert",
				zap.String("meetingID", meeting.ID.String()), zap.Error(err))
		}
	}
}

// InsertCalendarEntry is the queued retry of attachCalendarEntry.
func (m *DefaultReservationManager) InsertCalendarEntry(ctx context.Context, meetingID models.MeetingID) error {
	meeting, err := m.Meetings.GetByID(ctx, meetingID)
	if err != nil {
		return err
	}
	if meeting.Cancelled() || meeting.ExternalCalendarEntryID != "" {
		return nil
	}
	title := "Meeting"
	if event, err := m.Experts.GetEvent(ctx, meeting.EventID); err == nil {
		title = event.Title
	}
	entryID, err := m.Calendar.InsertMeetingEntry(ctx, meeting.ExpertID, meeting, title)
	if err != nil {
		return err
	}
	return m.Meetings.SetCalendarEntryID(ctx, meetingID, entryID)
}

// confirmedRedelivery acknowledges a capture event for a reservation that is
// already confirmed. The same capture is a plain redelivery; a different one
// is stray money and goes straight back.
func (m *DefaultReservationManager) confirmedRedelivery(ctx context.Context, res *models.Reservation, paymentID string) error {
	if paymentID == "" || res.CapturedPaymentID == paymentID {
		return nil
	}
	m.Logger.Warn("stray capture for confirmed reservation",
		zap.String("reservationID", res.ID.String()),
		zap.String("capturedPaymentID", res.CapturedPaymentID),
		zap.String("strayPaymentID", paymentID))
	return m.Payments.Refund(ctx, "stray:"+paymentID, paymentID)
}

// mismatchedCapture reports whether the provider captured a different amount
// or currency than the hold was priced at. A zero amount means the event
// carried none.
func mismatchedCapture(res *models.Reservation, out payment.Outcome) bool {
	if out.AmountMinor == 0 {
		return false
	}
	if out.AmountMinor != res.AmountMinor {
		return true
	}
	return out.Currency != "" && !strings.EqualFold(out.Currency, res.Currency)
}

// abortMismatchedCapture releases the hold and raises an alert; the captured
// money is left to the alerted operator, not to automatic resolution.
func (m *DefaultReservationManager) abortMismatchedCapture(ctx context.Context, res *models.Reservation, out payment.Outcome) error {
	m.Logger.Error("captured amount disagrees with hold",
		zap.String("reservationID", res.ID.String()),
		zap.Int64("heldAmountMinor", res.AmountMinor),
		zap.Int64("capturedAmountMinor", out.AmountMinor),
		zap.String("heldCurrency", res.Currency),
		zap.String("capturedCurrency", out.Currency),
		zap.String("paymentID", out.PaymentID))
	if res.Terminal() {
		return nil
	}
	if _, err := m.Reservations.Cancel(ctx, res.ID, "amount_mismatch"); err != nil {
		return err
	}
	return nil
}

func (m *DefaultReservationManager) refundLateCapture(ctx context.Context, res *models.Reservation, paymentID string) error {
	if paymentID == "" {
		return nil
	}
	if err := m.Payments.Refund(ctx, res.ID.String(), paymentID); err != nil {
		// Keep the event undelivered until the money is back.
		return err
	}
	m.Logger.Info("late capture refunded",
		zap.String("reservationID", res.ID.String()),
		zap.String("paymentID", paymentID))
	return nil
}

// markPendingVoucher stretches the hold once so an offline voucher payment
// has time to clear.
func (m *DefaultReservationManager) markPendingVoucher(ctx context.Context, res *models.Reservation, now time.Time) error {
	if res.Terminal() {
		return nil
	}
	if err := m.Reservations.ExtendForVoucher(ctx, res.ID, now.Add(m.VoucherGrace)); err != nil {
		if utils.IsKind(err, utils.KindGone) || utils.IsKind(err, utils.KindNotFound) {
			// Already extended or already terminal.
			return nil
		}
		return err
	}
	m.Logger.Info("hold extended for voucher",
		zap.String("reservationID", res.ID.String()),
		zap.Time("newExpiry", now.Add(m.VoucherGrace)))
	return nil
}

func (m *DefaultReservationManager) abortFromProvider(ctx context.Context, res *models.Reservation, reason string) error {
	if res.Status == models.ReservationConfirmed {
		m.Logger.Warn("provider abort for confirmed reservation ignored",
			zap.String("reservationID", res.ID.String()), zap.String("reason", reason))
		return nil
	}
	if res.Terminal() {
		return nil
	}
	if _, err := m.Reservations.Cancel(ctx, res.ID, reason); err != nil {
		return err
	}
	return nil
}

func (m *DefaultReservationManager) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	swept, err := m.Reservations.SweepExpired(ctx, now)
	if err != nil {
		return 0, err
	}
	if swept > 0 {
		m.Logger.Info("expired holds swept", zap.Int64("count", swept))
	}
	return swept, nil
}
