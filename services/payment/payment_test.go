package payment

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"meetwise/models"
	"meetwise/utils"

	"github.com/stripe/stripe-go/v76"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPlatformFee(t *testing.T) {
	tests := []struct {
		amount int64
		rate   float64
		fee    int64
		net    int64
	}{
		{10000, 0.15, 1500, 8500},
		{999, 0.1, 99, 900},
		{1, 0.15, 0, 1},
		{0, 0.15, 0, 0},
		{10000, 0, 0, 10000},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.fee, PlatformFee(tt.amount, tt.rate), "fee of %d at %v", tt.amount, tt.rate)
		assert.Equal(t, tt.net, NetAmount(tt.amount, tt.rate), "net of %d at %v", tt.amount, tt.rate)
	}
}

func testReservation() *models.Reservation {
	return &models.Reservation{
		ID:          models.ReservationID("res-1"),
		EventID:     models.EventID("evt-1"),
		ExpertID:    models.ExpertID("exp-1"),
		GuestEmail:  "guest@example.com",
		AmountMinor: 10000,
		Currency:    "eur",
		ExpiresAt:   time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC),
	}
}

func TestCreateSessionParams(t *testing.T) {
	var captured *stripe.CheckoutSessionParams
	o := NewStripeOrchestrator("https://app/ok", "https://app/no", zap.NewNop())
	o.newSession = func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
		captured = params
		return &stripe.CheckoutSession{
			ID:        "cs_123",
			URL:       "https://pay.example/cs_123",
			ExpiresAt: time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC).Unix(),
		}, nil
	}

	res := testReservation()
	got, err := o.CreateSession(context.Background(), res, &models.Event{Title: "Intro call"}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSessionID("cs_123"), got.ID)
	assert.Equal(t, "https://pay.example/cs_123", got.URL)

	require.NotNil(t, captured)
	require.NotNil(t, captured.IdempotencyKey)
	assert.Equal(t, "reservation:res-1", *captured.IdempotencyKey)
	assert.Equal(t, "res-1", captured.Metadata["reservationId"])
	var methods []string
	for _, m := range captured.PaymentMethodTypes {
		methods = append(methods, *m)
	}
	assert.Equal(t, []string{"card"}, methods)
	require.Len(t, captured.LineItems, 1)
	assert.Equal(t, int64(10000), *captured.LineItems[0].PriceData.UnitAmount)
}

func TestCreateSessionRejectsUnknownMethod(t *testing.T) {
	o := NewStripeOrchestrator("https://app/ok", "https://app/no", zap.NewNop())
	o.newSession = func(*stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
		t.Fatal("provider must not be called for invalid methods")
		return nil, nil
	}

	_, err := o.CreateSession(context.Background(), testReservation(), &models.Event{}, []string{"cheque"})
	require.Error(t, err)
	assert.True(t, utils.IsKind(err, utils.KindPreconditionFailed))
}

func TestRefundAlreadyRefundedIsSuccess(t *testing.T) {
	o := NewStripeOrchestrator("", "", zap.NewNop())
	o.newRefund = func(*stripe.RefundParams) (*stripe.Refund, error) {
		return nil, &stripe.Error{Code: stripe.ErrorCodeChargeAlreadyRefunded}
	}
	assert.NoError(t, o.Refund(context.Background(), "res-1", "pi_1"))
}

func TestRefundIdempotencyKey(t *testing.T) {
	var captured *stripe.RefundParams
	o := NewStripeOrchestrator("", "", zap.NewNop())
	o.newRefund = func(params *stripe.RefundParams) (*stripe.Refund, error) {
		captured = params
		return &stripe.Refund{ID: "re_1"}, nil
	}
	require.NoError(t, o.Refund(context.Background(), "res-1", "pi_1"))
	require.NotNil(t, captured)
	require.NotNil(t, captured.IdempotencyKey)
	assert.Equal(t, "refund:res-1", *captured.IdempotencyKey)
	assert.Equal(t, "pi_1", *captured.PaymentIntent)
}

func TestProviderErrorMapping(t *testing.T) {
	assert.True(t, utils.IsKind(providerError("op", &stripe.Error{HTTPStatusCode: 429}), utils.KindUpstreamRateLimited))
	assert.True(t, utils.IsKind(providerError("op", &stripe.Error{HTTPStatusCode: 503}), utils.KindUpstreamUnavailable))
	assert.True(t, utils.IsKind(providerError("op", &stripe.Error{HTTPStatusCode: 402}), utils.KindInternal))
	assert.True(t, utils.Retryable(providerError("op", assert.AnError)))
}

func checkoutEvent(t *testing.T, eventType string, payload map[string]any) stripe.Event {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return stripe.Event{
		Type: stripe.EventType(eventType),
		Data: &stripe.EventData{Raw: raw},
	}
}

func TestHandleEvent(t *testing.T) {
	t.Run("completed paid session confirms", func(t *testing.T) {
		out, err := HandleEvent(checkoutEvent(t, "checkout.session.completed", map[string]any{
			"id":             "cs_1",
			"payment_status": "paid",
			"payment_intent": "pi_1",
			"amount_total":   10000,
			"currency":       "eur",
		}))
		require.NoError(t, err)
		assert.Equal(t, EffectConfirm, out.Effect)
		assert.Equal(t, models.PaymentSessionID("cs_1"), out.SessionID)
		assert.Equal(t, "pi_1", out.PaymentID)
		assert.Equal(t, int64(10000), out.AmountMinor, "captured amount must reach the reservation side")
		assert.Equal(t, "eur", out.Currency)
	})

	t.Run("captured amount is surfaced even when tiny", func(t *testing.T) {
		out, err := HandleEvent(checkoutEvent(t, "checkout.session.completed", map[string]any{
			"id":             "cs_1",
			"payment_status": "paid",
			"payment_intent": "pi_1",
			"amount_total":   1,
			"currency":       "eur",
		}))
		require.NoError(t, err)
		assert.Equal(t, EffectConfirm, out.Effect)
		assert.Equal(t, int64(1), out.AmountMinor)
	})

	t.Run("completed unpaid session waits for the voucher", func(t *testing.T) {
		out, err := HandleEvent(checkoutEvent(t, "checkout.session.completed", map[string]any{
			"id":             "cs_2",
			"payment_status": "unpaid",
		}))
		require.NoError(t, err)
		assert.Equal(t, EffectPendingVoucher, out.Effect)
	})

	t.Run("async success confirms", func(t *testing.T) {
		out, err := HandleEvent(checkoutEvent(t, "checkout.session.async_payment_succeeded", map[string]any{
			"id":             "cs_2",
			"payment_intent": "pi_2",
			"amount_total":   2500,
			"currency":       "eur",
		}))
		require.NoError(t, err)
		assert.Equal(t, EffectConfirm, out.Effect)
		assert.Equal(t, int64(2500), out.AmountMinor)
	})

	t.Run("async failure aborts", func(t *testing.T) {
		out, err := HandleEvent(checkoutEvent(t, "checkout.session.async_payment_failed", map[string]any{
			"id": "cs_2",
		}))
		require.NoError(t, err)
		assert.Equal(t, EffectAbort, out.Effect)
		assert.Equal(t, "payment_failed", out.Reason)
	})

	t.Run("expiry aborts", func(t *testing.T) {
		out, err := HandleEvent(checkoutEvent(t, "checkout.session.expired", map[string]any{
			"id": "cs_3",
		}))
		require.NoError(t, err)
		assert.Equal(t, EffectAbort, out.Effect)
		assert.Equal(t, "session_expired", out.Reason)
	})

	t.Run("unrelated events are acknowledged as noops", func(t *testing.T) {
		out, err := HandleEvent(stripe.Event{Type: "invoice.paid"})
		require.NoError(t, err)
		assert.Equal(t, EffectNone, out.Effect)
	})
}
