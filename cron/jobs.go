package cron

import (
	"context"
	"time"

	meetingRepo "meetwise/database/repository/meeting"
	"meetwise/services/payout"
	"meetwise/services/reservation"
	"meetwise/utils"

	"go.uber.org/zap"
)

// Job names accepted by the internal trigger endpoint.
const (
	JobReservations = "reservations"
	JobTransfers    = "transfers"
	JobReminders    = "reminders"
)

// reminderLead is how far ahead of the session start the reminder fires.
const reminderLead = time.Hour

// Jobs are the periodic maintenance passes. The queue scheduler and the
// authenticated trigger endpoint both dispatch through here.
type Jobs struct {
	Reservations reservation.Manager
	Payouts      payout.Scheduler
	Meetings     meetingRepo.MeetingRepository
	Logger       *zap.Logger
}

// Run dispatches a job by its trigger name.
func (j *Jobs) Run(ctx context.Context, name string) error {
	switch name {
	case JobReservations:
		return j.SweepReservations(ctx)
	case JobTransfers:
		return j.SweepTransfers(ctx)
	case JobReminders:
		return j.SendReminders(ctx)
	default:
		return utils.E(utils.KindNotFound, "unknown job %q", name)
	}
}

func (j *Jobs) SweepReservations(ctx context.Context) error {
	_, err := j.Reservations.SweepExpired(ctx, time.Now().UTC())
	return err
}

func (j *Jobs) SweepTransfers(ctx context.Context) error {
	_, err := j.Payouts.Sweep(ctx, time.Now().UTC())
	return err
}

// SendReminders surfaces meetings starting within the lead window. The
// cadence window keeps back-to-back runs from announcing a meeting twice.
func (j *Jobs) SendReminders(ctx context.Context) error {
	now := time.Now().UTC()
	from := now.Add(reminderLead - 10*time.Minute)
	to := now.Add(reminderLead)

	upcoming, err := j.Meetings.ListStartingBetween(ctx, from, to)
	if err != nil {
		return err
	}
	for _, m := range upcoming {
		j.Logger.Info("meeting reminder due",
			zap.String("meetingID", m.ID.String()),
			zap.String("expertID", m.ExpertID.String()),
			zap.String("guest", m.GuestIdentifier.String()),
			zap.Time("start", m.Start))
	}
	return nil
}
