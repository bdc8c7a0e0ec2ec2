package reservation

import (
	"context"
	"sync"
	"testing"
	"time"

	"meetwise/models"
	"meetwise/services/availability"
	"meetwise/services/payment"
	"meetwise/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// --- fakes ---

type fakeExperts struct {
	expert *models.Expert
	event  *models.Event
}

func (f *fakeExperts) GetByID(_ context.Context, id models.ExpertID) (*models.Expert, error) {
	if f.expert == nil || f.expert.ID != id {
		return nil, utils.E(utils.KindNotFound, "expert %s not found", id)
	}
	return f.expert, nil
}

func (f *fakeExperts) GetEvent(_ context.Context, id models.EventID) (*models.Event, error) {
	if f.event == nil || f.event.ID != id {
		return nil, utils.E(utils.KindNotFound, "event %s not found", id)
	}
	return f.event, nil
}

func (f *fakeExperts) GetEventBySlug(context.Context, models.ExpertID, string) (*models.Event, error) {
	return nil, utils.E(utils.KindNotFound, "no slug lookup in fake")
}
func (f *fakeExperts) ListEvents(context.Context, models.ExpertID) ([]models.Event, error) {
	return nil, nil
}
func (f *fakeExperts) CreateEvent(context.Context, *models.Event) error { return nil }
func (f *fakeExperts) UpdateEvent(context.Context, *models.Event) error { return nil }

type fakeReservations struct {
	rows      map[models.ReservationID]*models.Reservation
	meetings  []*models.Meeting
	transfers []*models.PaymentTransfer
}

func newFakeReservations() *fakeReservations {
	return &fakeReservations{rows: map[models.ReservationID]*models.Reservation{}}
}

func (f *fakeReservations) HoldTransactionally(_ context.Context, res *models.Reservation, now time.Time) error {
	for _, r := range f.rows {
		live := r.Status == models.ReservationConfirmed ||
			(r.Status == models.ReservationHeld && r.ExpiresAt.After(now))
		if live && r.ExpertID == res.ExpertID && res.Start.Before(r.End) && r.Start.Before(res.End) {
			return utils.E(utils.KindConflict, "slot taken")
		}
	}
	cp := *res
	f.rows[res.ID] = &cp
	return nil
}

func (f *fakeReservations) AttachPaymentSession(_ context.Context, id models.ReservationID, sessionID models.PaymentSessionID) error {
	f.rows[id].PaymentSessionID = sessionID
	return nil
}

func (f *fakeReservations) GetByID(_ context.Context, id models.ReservationID) (*models.Reservation, error) {
	r, ok := f.rows[id]
	if !ok {
		return nil, utils.E(utils.KindNotFound, "reservation %s not found", id)
	}
	cp := *r
	return &cp, nil
}

func (f *fakeReservations) GetByPaymentSession(_ context.Context, sessionID models.PaymentSessionID) (*models.Reservation, error) {
	for _, r := range f.rows {
		if r.PaymentSessionID == sessionID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, utils.E(utils.KindNotFound, "no reservation for session %s", sessionID)
}

func (f *fakeReservations) ConfirmTransactionally(_ context.Context, id models.ReservationID, capturedPaymentID string, meeting *models.Meeting, transfer *models.PaymentTransfer, now time.Time) error {
	r, ok := f.rows[id]
	if !ok || r.Status != models.ReservationHeld || !r.ExpiresAt.After(now) {
		return utils.E(utils.KindGone, "hold is no longer live")
	}
	r.Status = models.ReservationConfirmed
	r.CapturedPaymentID = capturedPaymentID
	f.meetings = append(f.meetings, meeting)
	f.transfers = append(f.transfers, transfer)
	return nil
}

func (f *fakeReservations) Cancel(_ context.Context, id models.ReservationID, reason string) (bool, error) {
	r, ok := f.rows[id]
	if !ok || r.Status != models.ReservationHeld {
		return false, nil
	}
	r.Status = models.ReservationCancelled
	r.AbortReason = reason
	return true, nil
}

func (f *fakeReservations) ExtendForVoucher(_ context.Context, id models.ReservationID, newExpiry time.Time) error {
	r, ok := f.rows[id]
	if !ok || r.Status != models.ReservationHeld || r.PendingVoucher {
		return utils.E(utils.KindGone, "no extendable hold")
	}
	r.PendingVoucher = true
	r.ExpiresAt = newExpiry
	return nil
}

func (f *fakeReservations) SweepExpired(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for _, r := range f.rows {
		if r.Status == models.ReservationHeld && !now.Before(r.ExpiresAt) {
			r.Status = models.ReservationExpired
			n++
		}
	}
	return n, nil
}

func (f *fakeReservations) ListActiveOverlapping(context.Context, models.ExpertID, time.Time, time.Time, time.Time) ([]models.Reservation, error) {
	return nil, nil
}

type fakeAvailability struct{ err error }

func (f *fakeAvailability) AvailableStarts(context.Context, models.ExpertID, models.EventID, time.Time) (*availability.Result, error) {
	return nil, nil
}
func (f *fakeAvailability) ValidateStart(context.Context, *models.Expert, *models.Event, time.Time, time.Time) error {
	return f.err
}

type fakePayments struct {
	sessionErr error
	refunded   []string
	refundErr  error
	sessions   int
}

func (f *fakePayments) CreateSession(_ context.Context, res *models.Reservation, _ *models.Event, _ []string) (*payment.CheckoutSession, error) {
	if f.sessionErr != nil {
		return nil, f.sessionErr
	}
	f.sessions++
	return &payment.CheckoutSession{
		ID:        models.PaymentSessionID("cs_" + res.ID.String()),
		URL:       "https://pay.example/" + res.ID.String(),
		ExpiresAt: res.ExpiresAt,
	}, nil
}

func (f *fakePayments) Refund(_ context.Context, _ string, paymentID string) error {
	if f.refundErr != nil {
		return f.refundErr
	}
	f.refunded = append(f.refunded, paymentID)
	return nil
}

type fakeCalendarInserter struct {
	err     error
	entries int
}

func (f *fakeCalendarInserter) InsertMeetingEntry(context.Context, models.ExpertID, *models.Meeting, string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.entries++
	return "gcal-entry-1", nil
}

type fakeMeetingStore struct {
	entryIDs map[models.MeetingID]string
}

func (f *fakeMeetingStore) GetByID(_ context.Context, id models.MeetingID) (*models.Meeting, error) {
	return nil, utils.E(utils.KindNotFound, "meeting %s not found", id)
}
func (f *fakeMeetingStore) SetCalendarEntryID(_ context.Context, id models.MeetingID, entryID string) error {
	if f.entryIDs == nil {
		f.entryIDs = map[models.MeetingID]string{}
	}
	f.entryIDs[id] = entryID
	return nil
}

type fakeEnqueuer struct{ inserts []models.MeetingID }

func (f *fakeEnqueuer) EnqueueCalendarInsert(_ context.Context, id models.MeetingID) error {
	f.inserts = append(f.inserts, id)
	return nil
}

// fakeLocker serializes per key with a plain mutex, the way the redis
// locker serializes across processes.
type fakeLocker struct {
	mu       sync.Mutex
	locks    map[string]*sync.Mutex
	acquires int
	err      error
}

func (f *fakeLocker) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	if f.locks == nil {
		f.locks = map[string]*sync.Mutex{}
	}
	l, ok := f.locks[key]
	if !ok {
		l = &sync.Mutex{}
		f.locks[key] = l
	}
	f.acquires++
	f.mu.Unlock()
	l.Lock()
	return l.Unlock, nil
}

// snapshotReservations mimics the store's snapshot isolation: the overlap
// check reads a snapshot taken before a pause, so only the expert lock keeps
// two overlapping holds from both committing.
type snapshotReservations struct {
	*fakeReservations
	mu sync.Mutex
}

func (f *snapshotReservations) HoldTransactionally(_ context.Context, res *models.Reservation, now time.Time) error {
	f.mu.Lock()
	snapshot := make([]*models.Reservation, 0, len(f.rows))
	for _, r := range f.rows {
		cp := *r
		snapshot = append(snapshot, &cp)
	}
	f.mu.Unlock()

	time.Sleep(10 * time.Millisecond)

	for _, r := range snapshot {
		live := r.Status == models.ReservationConfirmed ||
			(r.Status == models.ReservationHeld && r.ExpiresAt.After(now))
		if live && r.ExpertID == res.ExpertID && res.Start.Before(r.End) && r.Start.Before(res.End) {
			return utils.E(utils.KindConflict, "slot taken")
		}
	}

	f.mu.Lock()
	cp := *res
	f.rows[res.ID] = &cp
	f.mu.Unlock()
	return nil
}

func (f *snapshotReservations) AttachPaymentSession(_ context.Context, id models.ReservationID, sessionID models.PaymentSessionID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[id].PaymentSessionID = sessionID
	return nil
}

// --- fixtures ---

var testNow = time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC)

type managerFixture struct {
	mgr      *DefaultReservationManager
	experts  *fakeExperts
	repo     *fakeReservations
	payments *fakePayments
	calendar *fakeCalendarInserter
	meetings *fakeMeetingStore
	queue    *fakeEnqueuer
	locks    *fakeLocker
}

func newFixture() *managerFixture {
	experts := &fakeExperts{
		expert: &models.Expert{
			ID:              "exp-1",
			Timezone:        "Europe/Lisbon",
			PayoutAccountID: "acct_1",
			Country:         "PT",
			Active:          true,
		},
		event: &models.Event{
			ID:              "evt-1",
			ExpertID:        "exp-1",
			Slug:            "intro",
			Title:           "Intro call",
			DurationMinutes: 60,
			Active:          true,
			PriceMinor:      10000,
			Currency:        "eur",
		},
	}
	f := &managerFixture{
		experts:  experts,
		repo:     newFakeReservations(),
		payments: &fakePayments{},
		calendar: &fakeCalendarInserter{},
		meetings: &fakeMeetingStore{},
		queue:    &fakeEnqueuer{},
		locks:    &fakeLocker{},
	}
	f.mgr = &DefaultReservationManager{
		Experts:      experts,
		Reservations: f.repo,
		Meetings:     f.meetings,
		Availability: &fakeAvailability{},
		Payments:     f.payments,
		Calendar:     f.calendar,
		Enqueue:      f.queue,
		Locks:        f.locks,
		Logger:       zap.NewNop(),
		HoldTTL:      30 * time.Minute,
		VoucherGrace: 72 * time.Hour,
		FeeRate:      0.15,
	}
	return f
}

func holdRequest() HoldRequest {
	return HoldRequest{
		EventID:         "evt-1",
		Start:           time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC),
		GuestIdentifier: "guest-1",
		GuestEmail:      "guest@example.com",
	}
}

// --- tests ---

func TestHoldCreatesReservationAndSession(t *testing.T) {
	f := newFixture()
	got, err := f.mgr.Hold(context.Background(), holdRequest(), testNow)
	require.NoError(t, err)

	assert.Equal(t, models.ReservationHeld, got.Reservation.Status)
	assert.Equal(t, int64(10000), got.Reservation.AmountMinor)
	assert.True(t, got.Reservation.ExpiresAt.Equal(testNow.Add(30*time.Minute)))
	assert.NotEmpty(t, got.CheckoutURL)
	assert.NotEmpty(t, got.Reservation.PaymentSessionID)

	stored, err := f.repo.GetByID(context.Background(), got.Reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, got.Reservation.PaymentSessionID, stored.PaymentSessionID)
}

func TestHoldConflictsOnTakenSlot(t *testing.T) {
	f := newFixture()
	_, err := f.mgr.Hold(context.Background(), holdRequest(), testNow)
	require.NoError(t, err)

	req := holdRequest()
	req.GuestIdentifier = "guest-2"
	_, err = f.mgr.Hold(context.Background(), req, testNow)
	require.Error(t, err)
	assert.True(t, utils.IsKind(err, utils.KindConflict))
	assert.Equal(t, 1, f.payments.sessions, "no session may open for the losing hold")
}

func TestConcurrentOverlappingHoldsOnlyOneWins(t *testing.T) {
	f := newFixture()
	repo := &snapshotReservations{fakeReservations: newFakeReservations()}
	f.mgr.Reservations = repo

	// A 60-minute event: 09:00 and 09:30 overlap without sharing a start
	// instant, so neither the store snapshot nor the unique index catches
	// the collision on its own.
	reqA := holdRequest()
	reqB := holdRequest()
	reqB.Start = time.Date(2025, 3, 3, 9, 30, 0, 0, time.UTC)
	reqB.GuestIdentifier = "guest-2"

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = f.mgr.Hold(context.Background(), reqA, testNow)
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = f.mgr.Hold(context.Background(), reqB, testNow)
	}()
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.True(t, utils.IsKind(err, utils.KindConflict))
		}
	}
	assert.Equal(t, 1, winners, "exactly one overlapping hold may commit")
	assert.Equal(t, 2, f.locks.acquires)
}

func TestHoldFailsWhenExpertLockUnavailable(t *testing.T) {
	f := newFixture()
	f.locks.err = utils.E(utils.KindConflict, "lock contended")

	_, err := f.mgr.Hold(context.Background(), holdRequest(), testNow)
	require.Error(t, err)
	assert.True(t, utils.IsKind(err, utils.KindConflict))
	assert.Empty(t, f.repo.rows, "no hold may be written without the lock")
	assert.Equal(t, 0, f.payments.sessions)
}

func TestHoldReleasedWhenSessionFails(t *testing.T) {
	f := newFixture()
	f.payments.sessionErr = utils.E(utils.KindUpstreamUnavailable, "provider down")

	_, err := f.mgr.Hold(context.Background(), holdRequest(), testNow)
	require.Error(t, err)

	// The slot must be free again.
	f.payments.sessionErr = nil
	_, err = f.mgr.Hold(context.Background(), holdRequest(), testNow)
	assert.NoError(t, err)
}

func TestHoldRejectsInvalidStart(t *testing.T) {
	f := newFixture()
	f.mgr.Availability = &fakeAvailability{err: utils.E(utils.KindPreconditionFailed, "start gone")}

	_, err := f.mgr.Hold(context.Background(), holdRequest(), testNow)
	require.Error(t, err)
	assert.True(t, utils.IsKind(err, utils.KindPreconditionFailed))
}

func TestConfirmCreatesMeetingAndTransfer(t *testing.T) {
	f := newFixture()
	held, err := f.mgr.Hold(context.Background(), holdRequest(), testNow)
	require.NoError(t, err)

	out := payment.Outcome{
		Effect:    payment.EffectConfirm,
		SessionID: held.Reservation.PaymentSessionID,
		PaymentID: "pi_1",
	}
	require.NoError(t, f.mgr.ApplyOutcome(context.Background(), out, testNow.Add(5*time.Minute)))

	require.Len(t, f.repo.meetings, 1)
	meeting := f.repo.meetings[0]
	assert.Equal(t, "pi_1", meeting.PaymentID)
	assert.Equal(t, models.MeetingPaymentCaptured, meeting.PaymentStatus)

	require.Len(t, f.repo.transfers, 1)
	transfer := f.repo.transfers[0]
	assert.Equal(t, int64(10000), transfer.GrossAmountMinor)
	assert.Equal(t, int64(8500), transfer.NetAmountMinor)
	assert.Equal(t, "PT", transfer.Country)
	assert.Equal(t, models.TransferPending, transfer.Status)
	assert.Equal(t, models.PayoutAccountID("acct_1"), transfer.ExpertAccountID)

	assert.Equal(t, 1, f.calendar.entries)
	assert.Equal(t, "gcal-entry-1", f.meetings.entryIDs[meeting.ID])
}

func TestConfirmRedeliveryIsIdempotent(t *testing.T) {
	f := newFixture()
	held, err := f.mgr.Hold(context.Background(), holdRequest(), testNow)
	require.NoError(t, err)

	out := payment.Outcome{
		Effect:    payment.EffectConfirm,
		SessionID: held.Reservation.PaymentSessionID,
		PaymentID: "pi_1",
	}
	require.NoError(t, f.mgr.ApplyOutcome(context.Background(), out, testNow.Add(time.Minute)))
	require.NoError(t, f.mgr.ApplyOutcome(context.Background(), out, testNow.Add(2*time.Minute)))

	assert.Len(t, f.repo.meetings, 1)
	assert.Len(t, f.repo.transfers, 1)
	assert.Empty(t, f.payments.refunded)
}

func TestConfirmMismatchedAmountAborts(t *testing.T) {
	f := newFixture()
	held, err := f.mgr.Hold(context.Background(), holdRequest(), testNow)
	require.NoError(t, err)

	out := payment.Outcome{
		Effect:      payment.EffectConfirm,
		SessionID:   held.Reservation.PaymentSessionID,
		PaymentID:   "pi_1",
		AmountMinor: 1,
		Currency:    "eur",
	}
	require.NoError(t, f.mgr.ApplyOutcome(context.Background(), out, testNow.Add(time.Minute)))

	assert.Empty(t, f.repo.meetings, "a mismatched capture must not confirm")
	stored, err := f.repo.GetByID(context.Background(), held.Reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationCancelled, stored.Status)
	assert.Equal(t, "amount_mismatch", stored.AbortReason)
}

func TestConfirmMismatchedCurrencyAborts(t *testing.T) {
	f := newFixture()
	held, err := f.mgr.Hold(context.Background(), holdRequest(), testNow)
	require.NoError(t, err)

	out := payment.Outcome{
		Effect:      payment.EffectConfirm,
		SessionID:   held.Reservation.PaymentSessionID,
		PaymentID:   "pi_1",
		AmountMinor: 10000,
		Currency:    "usd",
	}
	require.NoError(t, f.mgr.ApplyOutcome(context.Background(), out, testNow.Add(time.Minute)))

	assert.Empty(t, f.repo.meetings)
	stored, err := f.repo.GetByID(context.Background(), held.Reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationCancelled, stored.Status)
}

func TestConfirmMatchingAmountSucceeds(t *testing.T) {
	f := newFixture()
	held, err := f.mgr.Hold(context.Background(), holdRequest(), testNow)
	require.NoError(t, err)

	out := payment.Outcome{
		Effect:      payment.EffectConfirm,
		SessionID:   held.Reservation.PaymentSessionID,
		PaymentID:   "pi_1",
		AmountMinor: 10000,
		Currency:    "EUR",
	}
	require.NoError(t, f.mgr.ApplyOutcome(context.Background(), out, testNow.Add(time.Minute)))
	assert.Len(t, f.repo.meetings, 1, "currency comparison ignores case")
}

func TestConfirmStrayCaptureRefunded(t *testing.T) {
	f := newFixture()
	held, err := f.mgr.Hold(context.Background(), holdRequest(), testNow)
	require.NoError(t, err)

	out := payment.Outcome{
		Effect:    payment.EffectConfirm,
		SessionID: held.Reservation.PaymentSessionID,
		PaymentID: "pi_1",
	}
	require.NoError(t, f.mgr.ApplyOutcome(context.Background(), out, testNow.Add(time.Minute)))

	// A second, distinct capture for the same session: the meeting stays
	// funded by the first, the stray money goes back.
	out.PaymentID = "pi_2"
	require.NoError(t, f.mgr.ApplyOutcome(context.Background(), out, testNow.Add(2*time.Minute)))

	assert.Len(t, f.repo.meetings, 1)
	assert.Equal(t, []string{"pi_2"}, f.payments.refunded)
}

func TestConfirmAfterExpiryRefunds(t *testing.T) {
	f := newFixture()
	held, err := f.mgr.Hold(context.Background(), holdRequest(), testNow)
	require.NoError(t, err)

	late := testNow.Add(31 * time.Minute)
	out := payment.Outcome{
		Effect:    payment.EffectConfirm,
		SessionID: held.Reservation.PaymentSessionID,
		PaymentID: "pi_late",
	}
	require.NoError(t, f.mgr.ApplyOutcome(context.Background(), out, late))

	assert.Empty(t, f.repo.meetings, "no meeting may exist for a dead hold")
	assert.Equal(t, []string{"pi_late"}, f.payments.refunded)
}

func TestConfirmRefundFailureKeepsEventUndelivered(t *testing.T) {
	f := newFixture()
	held, err := f.mgr.Hold(context.Background(), holdRequest(), testNow)
	require.NoError(t, err)

	f.payments.refundErr = utils.E(utils.KindUpstreamUnavailable, "provider down")
	out := payment.Outcome{
		Effect:    payment.EffectConfirm,
		SessionID: held.Reservation.PaymentSessionID,
		PaymentID: "pi_late",
	}
	err = f.mgr.ApplyOutcome(context.Background(), out, testNow.Add(31*time.Minute))
	require.Error(t, err)
	assert.True(t, utils.Retryable(err))
}

func TestConfirmQueuesCalendarInsertOnFailure(t *testing.T) {
	f := newFixture()
	f.calendar.err = utils.E(utils.KindUpstreamUnavailable, "calendar down")

	held, err := f.mgr.Hold(context.Background(), holdRequest(), testNow)
	require.NoError(t, err)

	out := payment.Outcome{
		Effect:    payment.EffectConfirm,
		SessionID: held.Reservation.PaymentSessionID,
		PaymentID: "pi_1",
	}
	require.NoError(t, f.mgr.ApplyOutcome(context.Background(), out, testNow.Add(time.Minute)))

	require.Len(t, f.repo.meetings, 1)
	assert.Equal(t, []models.MeetingID{f.repo.meetings[0].ID}, f.queue.inserts)
}

func TestVoucherExtendsHoldOnce(t *testing.T) {
	f := newFixture()
	held, err := f.mgr.Hold(context.Background(), holdRequest(), testNow)
	require.NoError(t, err)

	out := payment.Outcome{
		Effect:    payment.EffectPendingVoucher,
		SessionID: held.Reservation.PaymentSessionID,
	}
	require.NoError(t, f.mgr.ApplyOutcome(context.Background(), out, testNow))

	stored, err := f.repo.GetByID(context.Background(), held.Reservation.ID)
	require.NoError(t, err)
	assert.True(t, stored.PendingVoucher)
	assert.True(t, stored.ExpiresAt.Equal(testNow.Add(72*time.Hour)))

	// Redelivery does not stretch the hold again.
	require.NoError(t, f.mgr.ApplyOutcome(context.Background(), out, testNow.Add(time.Hour)))
	stored, err = f.repo.GetByID(context.Background(), held.Reservation.ID)
	require.NoError(t, err)
	assert.True(t, stored.ExpiresAt.Equal(testNow.Add(72*time.Hour)))
}

func TestProviderAbortReleasesHold(t *testing.T) {
	f := newFixture()
	held, err := f.mgr.Hold(context.Background(), holdRequest(), testNow)
	require.NoError(t, err)

	out := payment.Outcome{
		Effect:    payment.EffectAbort,
		SessionID: held.Reservation.PaymentSessionID,
		Reason:    "session_expired",
	}
	require.NoError(t, f.mgr.ApplyOutcome(context.Background(), out, testNow.Add(time.Minute)))

	stored, err := f.repo.GetByID(context.Background(), held.Reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationCancelled, stored.Status)
}

func TestAbortIsIdempotentAndGuardsConfirmed(t *testing.T) {
	f := newFixture()
	held, err := f.mgr.Hold(context.Background(), holdRequest(), testNow)
	require.NoError(t, err)

	require.NoError(t, f.mgr.Abort(context.Background(), held.Reservation.ID, "guest_changed_mind"))
	require.NoError(t, f.mgr.Abort(context.Background(), held.Reservation.ID, "guest_changed_mind"))

	// A confirmed reservation cannot be aborted.
	f2 := newFixture()
	held2, err := f2.mgr.Hold(context.Background(), holdRequest(), testNow)
	require.NoError(t, err)
	require.NoError(t, f2.mgr.ApplyOutcome(context.Background(), payment.Outcome{
		Effect:    payment.EffectConfirm,
		SessionID: held2.Reservation.PaymentSessionID,
		PaymentID: "pi_1",
	}, testNow))
	err = f2.mgr.Abort(context.Background(), held2.Reservation.ID, "too late")
	require.Error(t, err)
	assert.True(t, utils.IsKind(err, utils.KindConflict))
}

func TestUnknownSessionIsAcknowledged(t *testing.T) {
	f := newFixture()
	err := f.mgr.ApplyOutcome(context.Background(), payment.Outcome{
		Effect:    payment.EffectConfirm,
		SessionID: "cs_unknown",
		PaymentID: "pi_x",
	}, testNow)
	assert.NoError(t, err)
}

func TestSweepExpired(t *testing.T) {
	f := newFixture()
	held, err := f.mgr.Hold(context.Background(), holdRequest(), testNow)
	require.NoError(t, err)

	swept, err := f.mgr.SweepExpired(context.Background(), testNow.Add(31*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), swept)

	stored, err := f.repo.GetByID(context.Background(), held.Reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationExpired, stored.Status)
}
