package payment

import (
	"context"
	"errors"
	"time"

	"meetwise/models"
	"meetwise/utils"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/refund"
	"go.uber.org/zap"
)

// allowedMethods is the closed set of guest-selectable payment methods.
// multibanco and boleto are voucher-style: the session completes unpaid and
// the capture arrives later as an async event.
var allowedMethods = map[string]bool{
	"card":       true,
	"sepa_debit": true,
	"multibanco": true,
	"boleto":     true,
}

// VoucherMethod reports whether a method settles out-of-band after checkout.
func VoucherMethod(method string) bool {
	return method == "multibanco" || method == "boleto"
}

// CheckoutSession is the guest-facing result of opening a payment session.
type CheckoutSession struct {
	ID        models.PaymentSessionID
	URL       string
	ExpiresAt time.Time
}

// Orchestrator opens payment sessions for holds and releases captures back.
type Orchestrator interface {
	CreateSession(ctx context.Context, res *models.Reservation, event *models.Event, methods []string) (*CheckoutSession, error)
	// Refund returns the full capture. ref scopes the idempotency key, so
	// retries under the same ref collapse into one provider refund.
	Refund(ctx context.Context, ref, paymentID string) error
}

// Provider SDK call seams, swapped for fakes in tests.
type sessionCreator func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
type refundCreator func(params *stripe.RefundParams) (*stripe.Refund, error)

// StripeOrchestrator implements Orchestrator on Stripe Checkout. The global
// stripe.Key is set at startup, matching how the rest of the process uses
// the SDK.
type StripeOrchestrator struct {
	successURL string
	cancelURL  string
	newSession sessionCreator
	newRefund  refundCreator
	logger     *zap.Logger
}

func NewStripeOrchestrator(successURL, cancelURL string, logger *zap.Logger) *StripeOrchestrator {
	return &StripeOrchestrator{
		successURL: successURL,
		cancelURL:  cancelURL,
		newSession: session.New,
		newRefund:  refund.New,
		logger:     logger,
	}
}

// CreateSession opens a Checkout session for the reservation. The idempotency
// key is derived from the reservation ID, so a retried hold never opens a
// second session.
func (o *StripeOrchestrator) CreateSession(ctx context.Context, res *models.Reservation, event *models.Event, methods []string) (*CheckoutSession, error) {
	if len(methods) == 0 {
		methods = []string{"card"}
	}
	for _, m := range methods {
		if !allowedMethods[m] {
			return nil, utils.E(utils.KindPreconditionFailed, "unsupported payment method %q", m)
		}
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice(methods),
		SuccessURL:         stripe.String(o.successURL),
		CancelURL:          stripe.String(o.cancelURL),
		ClientReferenceID:  stripe.String(res.ID.String()),
		ExpiresAt:          stripe.Int64(res.ExpiresAt.Unix()),
		CustomerEmail:      stripe.String(res.GuestEmail),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(res.Currency),
				UnitAmount: stripe.Int64(res.AmountMinor),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(event.Title),
				},
			},
		}},
	}
	params.Context = ctx
	params.SetIdempotencyKey("reservation:" + res.ID.String())
	params.AddMetadata("reservationId", res.ID.String())
	params.AddMetadata("eventId", res.EventID.String())
	params.AddMetadata("expertId", res.ExpertID.String())

	sess, err := o.newSession(params)
	if err != nil {
		return nil, providerError("create checkout session", err)
	}

	o.logger.Info("checkout session opened",
		zap.String("reservationID", res.ID.String()),
		zap.String("sessionID", sess.ID))
	return &CheckoutSession{
		ID:        models.PaymentSessionID(sess.ID),
		URL:       sess.URL,
		ExpiresAt: time.Unix(sess.ExpiresAt, 0).UTC(),
	}, nil
}

// Refund returns the full captured amount. Refunding an already-refunded
// payment is treated as success, so the caller can retry freely.
func (o *StripeOrchestrator) Refund(ctx context.Context, ref, paymentID string) error {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentID),
	}
	params.Context = ctx
	params.SetIdempotencyKey("refund:" + ref)
	params.AddMetadata("ref", ref)

	if _, err := o.newRefund(params); err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeChargeAlreadyRefunded {
			return nil
		}
		return providerError("refund payment", err)
	}

	o.logger.Info("payment refunded",
		zap.String("ref", ref),
		zap.String("paymentID", paymentID))
	return nil
}

// providerError maps SDK failures onto the retryable/permanent taxonomy.
func providerError(op string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		switch {
		case stripeErr.HTTPStatusCode == 429:
			return utils.WrapE(utils.KindUpstreamRateLimited, err, "%s throttled", op)
		case stripeErr.HTTPStatusCode >= 500:
			return utils.WrapE(utils.KindUpstreamUnavailable, err, "%s failed upstream", op)
		}
		return utils.WrapE(utils.KindInternal, err, "%s rejected", op)
	}
	return utils.WrapE(utils.KindUpstreamUnavailable, err, "%s unreachable", op)
}
