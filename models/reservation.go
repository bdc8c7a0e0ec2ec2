package models

import "time"

// Reservation statuses. HELD is the only non-terminal state; a HELD row past
// its expiry is treated as expired even before the sweep flips it.
const (
	ReservationHeld      = "HELD"
	ReservationConfirmed = "CONFIRMED"
	ReservationExpired   = "EXPIRED"
	ReservationCancelled = "CANCELLED"
)

// Reservation is a short-lived exclusive hold on a slot while a guest pays.
type Reservation struct {
	ID                ReservationID    `bson:"id" json:"id"`
	EventID           EventID          `bson:"event_id" json:"eventId"`
	ExpertID          ExpertID         `bson:"expert_id" json:"expertId"`
	GuestIdentifier   GuestID          `bson:"guest_identifier" json:"guestIdentifier"`
	GuestEmail        string           `bson:"guest_email,omitempty" json:"guestEmail,omitempty"`
	GuestTimezone     string           `bson:"guest_timezone,omitempty" json:"guestTimezone,omitempty"`
	GuestNotes        string           `bson:"guest_notes,omitempty" json:"guestNotes,omitempty"`
	Start             time.Time        `bson:"start" json:"start"`
	End               time.Time        `bson:"end" json:"end"`
	AmountMinor       int64            `bson:"amount_minor" json:"amountMinor"`
	Currency          string           `bson:"currency" json:"currency"`
	PaymentSessionID  PaymentSessionID `bson:"payment_session_id,omitempty" json:"paymentSessionId,omitempty"`
	CapturedPaymentID string           `bson:"captured_payment_id,omitempty" json:"capturedPaymentId,omitempty"`
	PendingVoucher    bool             `bson:"pending_voucher" json:"pendingVoucher"`
	Status            string           `bson:"status" json:"status"`
	AbortReason       string           `bson:"abort_reason,omitempty" json:"abortReason,omitempty"`
	CreatedAt         time.Time        `bson:"created_at" json:"createdAt"`
	ExpiresAt         time.Time        `bson:"expires_at" json:"expiresAt"`
}

// Expired reports whether a HELD reservation is logically expired at now.
func (r Reservation) Expired(now time.Time) bool {
	return r.Status == ReservationHeld && !now.Before(r.ExpiresAt)
}

// Terminal reports whether no further hold transitions are possible.
func (r Reservation) Terminal() bool {
	return r.Status != ReservationHeld
}
