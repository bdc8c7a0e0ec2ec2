package payout

import (
	"context"
	"time"

	transferRepo "meetwise/database/repository/transfer"
	"meetwise/models"
	"meetwise/utils"

	"github.com/stripe/stripe-go/v76"
	stripeTransfer "github.com/stripe/stripe-go/v76/transfer"
	"go.uber.org/zap"
)

const (
	disburseAttempts  = 3
	disburseBaseDelay = time.Second
)

// Report summarizes one sweep pass.
type Report struct {
	Examined  int
	Disbursed int
	Skipped   int
	Failed    int
}

// Scheduler ages and disburses payout transfers.
type Scheduler interface {
	// Sweep walks the due transfers once. Aging holds money back until the
	// per-country delay has passed since capture; APPROVED transfers bypass
	// aging but not the scheduled instant.
	Sweep(ctx context.Context, now time.Time) (Report, error)
	// Approve releases a PENDING transfer from manual review.
	Approve(ctx context.Context, id models.TransferID) error
}

// Provider SDK call seam, swapped for a fake in tests.
type transferCreator func(params *stripe.TransferParams) (*stripe.Transfer, error)

type transferStateMirror interface {
	SetTransferState(ctx context.Context, id models.MeetingID, state string) error
}

// DefaultPayoutScheduler implements Scheduler on Stripe transfers.
type DefaultPayoutScheduler struct {
	Transfers transferRepo.TransferRepository
	Meetings  transferStateMirror
	Logger    *zap.Logger

	// DelayFor maps an ISO-2 country to its aging delay in days.
	DelayFor   func(country string) int
	MaxRetries int

	newTransfer transferCreator
	sleep       func(time.Duration)
}

func NewPayoutScheduler(transfers transferRepo.TransferRepository, meetings transferStateMirror, delayFor func(string) int, logger *zap.Logger) *DefaultPayoutScheduler {
	return &DefaultPayoutScheduler{
		Transfers:   transfers,
		Meetings:    meetings,
		Logger:      logger,
		DelayFor:    delayFor,
		MaxRetries:  3,
		newTransfer: stripeTransfer.New,
		sleep:       time.Sleep,
	}
}

func (s *DefaultPayoutScheduler) Sweep(ctx context.Context, now time.Time) (Report, error) {
	due, err := s.Transfers.ListDue(ctx, now)
	if err != nil {
		return Report{}, err
	}

	var report Report
	for i := range due {
		t := &due[i]
		report.Examined++

		if t.Status == models.TransferPending {
			if t.RequiresApproval {
				report.Skipped++
				continue
			}
			if daysSince(t.PaymentCreatedAt, now) < s.DelayFor(t.Country) {
				report.Skipped++
				continue
			}
		}

		claimed, err := s.Transfers.Claim(ctx, t.ID, now)
		if err != nil {
			s.Logger.Error("failed to claim transfer",
				zap.String("transferID", t.ID.String()), zap.Error(err))
			report.Failed++
			continue
		}
		if !claimed {
			report.Skipped++
			continue
		}

		if err := s.disburse(ctx, t); err != nil {
			report.Failed++
			continue
		}
		report.Disbursed++
	}

	if report.Disbursed > 0 || report.Failed > 0 {
		s.Logger.Info("payout sweep finished",
			zap.Int("examined", report.Examined),
			zap.Int("disbursed", report.Disbursed),
			zap.Int("skipped", report.Skipped),
			zap.Int("failed", report.Failed))
	}
	return report, nil
}

// disburse moves the net amount with bounded in-attempt retries. The
// idempotency key pins the provider call to the transfer row, so a crash
// between the call and MarkCompleted cannot double-pay.
func (s *DefaultPayoutScheduler) disburse(ctx context.Context, t *models.PaymentTransfer) error {
	params := &stripe.TransferParams{
		Amount:      stripe.Int64(t.NetAmountMinor),
		Currency:    stripe.String(t.Currency),
		Destination: stripe.String(t.ExpertAccountID.String()),
	}
	params.Context = ctx
	params.SetIdempotencyKey("transfer:" + t.ID.String())
	params.AddMetadata("meetingId", t.MeetingID.String())
	params.AddMetadata("expertId", t.ExpertID.String())
	params.AddMetadata("sessionStartInstant", t.SessionStart.UTC().Format(time.RFC3339))

	var created *stripe.Transfer
	var err error
	for attempt := 0; attempt < disburseAttempts; attempt++ {
		created, err = s.newTransfer(params)
		if err == nil {
			break
		}
		if !utils.Retryable(providerError(err)) || attempt == disburseAttempts-1 {
			break
		}
		s.sleep(disburseBaseDelay << attempt)
	}
	if err != nil {
		return s.recordFailure(ctx, t, providerError(err))
	}

	if err := s.Transfers.MarkCompleted(ctx, t.ID, created.ID); err != nil {
		s.Logger.Error("transfer disbursed but completion not recorded",
			zap.String("transferID", t.ID.String()),
			zap.String("providerTransferID", created.ID),
			zap.Error(err))
		return err
	}
	if s.Meetings != nil {
		if err := s.Meetings.SetTransferState(ctx, t.MeetingID, models.MeetingTransferCompleted); err != nil {
			s.Logger.Error("failed to mirror completed transfer state",
				zap.String("meetingID", t.MeetingID.String()), zap.Error(err))
		}
	}

	s.Logger.Info("payout disbursed",
		zap.String("transferID", t.ID.String()),
		zap.String("expertID", t.ExpertID.String()),
		zap.Int64("netAmountMinor", t.NetAmountMinor))
	return nil
}

func (s *DefaultPayoutScheduler) recordFailure(ctx context.Context, t *models.PaymentTransfer, cause error) error {
	updated, err := s.Transfers.RecordFailure(ctx, t.ID, cause.Error(), s.MaxRetries)
	if err != nil {
		s.Logger.Error("failed to record transfer failure",
			zap.String("transferID", t.ID.String()), zap.Error(err))
		return err
	}
	if releaseErr := s.Transfers.ReleaseClaim(ctx, t.ID); releaseErr != nil {
		s.Logger.Error("failed to release transfer claim",
			zap.String("transferID", t.ID.String()), zap.Error(releaseErr))
	}
	if updated != nil && updated.Status == models.TransferFailed {
		s.Logger.Error("transfer failed terminally",
			zap.String("transferID", t.ID.String()),
			zap.Int("retries", updated.RetryCount),
			zap.Error(cause))
	} else {
		s.Logger.Warn("transfer attempt failed, will retry next sweep",
			zap.String("transferID", t.ID.String()), zap.Error(cause))
	}
	return cause
}

func (s *DefaultPayoutScheduler) Approve(ctx context.Context, id models.TransferID) error {
	return s.Transfers.Approve(ctx, id)
}

// daysSince counts whole days between two instants.
func daysSince(from, now time.Time) int {
	if now.Before(from) {
		return 0
	}
	return int(now.Sub(from) / (24 * time.Hour))
}

// providerError maps SDK failures onto the retryable/permanent taxonomy.
func providerError(err error) error {
	if stripeErr, ok := err.(*stripe.Error); ok {
		switch {
		case stripeErr.HTTPStatusCode == 429:
			return utils.WrapE(utils.KindUpstreamRateLimited, err, "payout throttled")
		case stripeErr.HTTPStatusCode >= 500:
			return utils.WrapE(utils.KindUpstreamUnavailable, err, "payout failed upstream")
		}
		return utils.WrapE(utils.KindInternal, err, "payout rejected")
	}
	return utils.WrapE(utils.KindUpstreamUnavailable, err, "payout provider unreachable")
}
