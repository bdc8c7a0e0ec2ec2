package cron

import (
	"context"
	"encoding/json"

	"meetwise/config"
	"meetwise/models"
	"meetwise/services/calendar"
	"meetwise/utils"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// calendarEntryInserter is the slice of the reservation manager the worker
// needs for queued calendar inserts.
type calendarEntryInserter interface {
	InsertCalendarEntry(ctx context.Context, meetingID models.MeetingID) error
}

// Worker runs the async queue consumer and the periodic scheduler in one
// process alongside the HTTP server.
type Worker struct {
	srv       *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
	logger    *zap.Logger
}

// NewWorker wires the task handlers and the sweep cadences.
func NewWorker(redisOpts asynq.RedisClientOpt, jobs *Jobs, inserter calendarEntryInserter, cal calendar.Gateway, logger *zap.Logger) (*Worker, error) {
	srv := asynq.NewServer(redisOpts, asynq.Config{
		Concurrency: 10,
		Queues: map[string]int{
			"default": 1,
		},
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeSweepReservations, func(ctx context.Context, _ *asynq.Task) error {
		return jobs.SweepReservations(ctx)
	})
	mux.HandleFunc(TypeSweepTransfers, func(ctx context.Context, _ *asynq.Task) error {
		return jobs.SweepTransfers(ctx)
	})
	mux.HandleFunc(TypeMeetingReminders, func(ctx context.Context, _ *asynq.Task) error {
		return jobs.SendReminders(ctx)
	})
	mux.HandleFunc(TypeCalendarEntryInsert, func(ctx context.Context, task *asynq.Task) error {
		var p calendarInsertPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			return err
		}
		err := inserter.InsertCalendarEntry(ctx, p.MeetingID)
		return dropUnlessRetryable(err, logger, "calendar insert")
	})
	mux.HandleFunc(TypeCalendarEntryDelete, func(ctx context.Context, task *asynq.Task) error {
		var p calendarDeletePayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			return err
		}
		err := cal.DeleteMeetingEntry(ctx, p.ExpertID, p.EntryID)
		return dropUnlessRetryable(err, logger, "calendar delete")
	})

	scheduler := asynq.NewScheduler(redisOpts, &asynq.SchedulerOpts{})
	cadences := map[string]string{
		TypeSweepReservations: config.AppConfig.SweepReservationsCron,
		TypeSweepTransfers:    config.AppConfig.SweepTransfersCron,
		TypeMeetingReminders:  config.AppConfig.RemindersCron,
	}
	for taskType, spec := range cadences {
		if _, err := scheduler.Register(spec, asynq.NewTask(taskType, nil)); err != nil {
			return nil, err
		}
	}

	return &Worker{srv: srv, scheduler: scheduler, mux: mux, logger: logger}, nil
}

// dropUnlessRetryable keeps provider hiccups on the queue and drops
// everything terminal (revoked tokens, vanished meetings) with a log line.
func dropUnlessRetryable(err error, logger *zap.Logger, op string) error {
	if err == nil {
		return nil
	}
	if utils.Retryable(err) {
		return err
	}
	logger.Warn("queued task dropped",
		zap.String("op", op), zap.Error(err))
	return nil
}

// Start launches the consumer and the scheduler.
func (w *Worker) Start() error {
	if err := w.srv.Start(w.mux); err != nil {
		return err
	}
	if err := w.scheduler.Start(); err != nil {
		w.srv.Shutdown()
		return err
	}
	w.logger.Info("job worker started")
	return nil
}

// Shutdown stops the scheduler first so no new work lands mid-drain.
func (w *Worker) Shutdown() {
	w.scheduler.Shutdown()
	w.srv.Shutdown()
	w.logger.Info("job worker stopped")
}
