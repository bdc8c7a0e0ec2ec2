package models

import "time"

// Meeting payment statuses.
const (
	MeetingPaymentCaptured = "CAPTURED"
	MeetingPaymentRefunded = "REFUNDED"
)

// Transfer states mirrored onto the meeting for display.
const (
	MeetingTransferPending   = "PENDING"
	MeetingTransferCompleted = "COMPLETED"
	MeetingTransferVoided    = "VOIDED"
)

// Meeting is a confirmed, paid booking. One-to-one with a CONFIRMED
// reservation; at most one meeting exists per (expert, start instant).
type Meeting struct {
	ID                      MeetingID  `bson:"id" json:"id"`
	EventID                 EventID    `bson:"event_id" json:"eventId"`
	ExpertID                ExpertID   `bson:"expert_id" json:"expertId"`
	GuestIdentifier         GuestID    `bson:"guest_identifier" json:"guestIdentifier"`
	Start                   time.Time  `bson:"start" json:"start"`
	End                     time.Time  `bson:"end" json:"end"`
	GuestTimezone           string     `bson:"guest_timezone,omitempty" json:"guestTimezone,omitempty"`
	LocationHandle          string     `bson:"location_handle,omitempty" json:"locationHandle,omitempty"`
	GuestNotes              string     `bson:"guest_notes,omitempty" json:"guestNotes,omitempty"`
	// Active is false once cancelled. Kept as a stored boolean so the
	// uniqueness index can be partial over live meetings only.
	Active                  bool       `bson:"active" json:"active"`
	PaymentID               string     `bson:"payment_id" json:"paymentId"`
	PaymentStatus           string     `bson:"payment_status" json:"paymentStatus"`
	TransferState           string     `bson:"transfer_state" json:"transferState"`
	ExternalCalendarEntryID string     `bson:"external_calendar_entry_id,omitempty" json:"externalCalendarEntryId,omitempty"`
	CreatedAt               time.Time  `bson:"created_at" json:"createdAt"`
	CancelledAt             *time.Time `bson:"cancelled_at,omitempty" json:"cancelledAt,omitempty"`
	CancelReason            string     `bson:"cancel_reason,omitempty" json:"cancelReason,omitempty"`
	CancelActor             string     `bson:"cancel_actor,omitempty" json:"cancelActor,omitempty"`
}

// Cancelled reports whether the meeting reached its cancelled terminal state.
func (m Meeting) Cancelled() bool { return m.CancelledAt != nil }
