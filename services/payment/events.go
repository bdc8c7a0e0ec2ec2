package payment

import (
	"encoding/json"

	"meetwise/models"
	"meetwise/utils"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

// Effect is what a verified provider event asks the reservation side to do.
// The webhook handler applies effects; this package only decides them.
type Effect int

const (
	EffectNone Effect = iota
	// EffectConfirm promotes the hold to a confirmed meeting.
	EffectConfirm
	// EffectPendingVoucher extends the hold while an offline voucher clears.
	EffectPendingVoucher
	// EffectAbort releases the hold.
	EffectAbort
)

// Outcome pairs an Effect with the identifiers needed to apply it.
// AmountMinor and Currency echo what the provider actually captured; the
// reservation side compares them against the hold before confirming.
type Outcome struct {
	Effect      Effect
	SessionID   models.PaymentSessionID
	PaymentID   string
	AmountMinor int64
	Currency    string
	Reason      string
}

// VerifyEvent checks the webhook signature against the current secret and,
// during rotation, the next one. An event that fails both is rejected for
// good; signature failures are never retried.
func VerifyEvent(payload []byte, sigHeader, secret, nextSecret string) (stripe.Event, error) {
	event, err := webhook.ConstructEvent(payload, sigHeader, secret)
	if err == nil {
		return event, nil
	}
	if nextSecret != "" {
		if event, nextErr := webhook.ConstructEvent(payload, sigHeader, nextSecret); nextErr == nil {
			return event, nil
		}
	}
	return stripe.Event{}, utils.WrapE(utils.KindSignatureInvalid, err, "webhook signature rejected")
}

// HandleEvent maps a verified provider event onto a reservation effect.
// Unknown event types are acknowledged as EffectNone so the provider stops
// redelivering them.
func HandleEvent(event stripe.Event) (Outcome, error) {
	switch string(event.Type) {
	case "checkout.session.completed",
		"checkout.session.async_payment_succeeded",
		"checkout.session.async_payment_failed",
		"checkout.session.expired":
	default:
		return Outcome{Effect: EffectNone}, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return Outcome{}, utils.WrapE(utils.KindInternal, err, "malformed checkout session payload")
	}

	out := Outcome{
		SessionID:   models.PaymentSessionID(sess.ID),
		AmountMinor: sess.AmountTotal,
		Currency:    string(sess.Currency),
	}
	if sess.PaymentIntent != nil {
		out.PaymentID = sess.PaymentIntent.ID
	}

	switch string(event.Type) {
	case "checkout.session.completed":
		if sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
			// Voucher methods complete the session before the money moves.
			out.Effect = EffectPendingVoucher
			return out, nil
		}
		out.Effect = EffectConfirm
		return out, nil

	case "checkout.session.async_payment_succeeded":
		out.Effect = EffectConfirm
		return out, nil

	case "checkout.session.async_payment_failed":
		out.Effect = EffectAbort
		out.Reason = "payment_failed"
		return out, nil

	default: // checkout.session.expired
		out.Effect = EffectAbort
		out.Reason = "session_expired"
		return out, nil
	}
}
