package cron

import (
	"context"
	"encoding/json"
	"time"

	"meetwise/models"

	"github.com/hibiken/asynq"
)

// Task types routed through the async queue.
const (
	TypeSweepReservations   = "reservations:sweep"
	TypeSweepTransfers      = "transfers:sweep"
	TypeMeetingReminders    = "meetings:reminders"
	TypeCalendarEntryInsert = "calendar:entry_insert"
	TypeCalendarEntryDelete = "calendar:entry_delete"
)

type calendarInsertPayload struct {
	MeetingID models.MeetingID `json:"meetingId"`
}

type calendarDeletePayload struct {
	ExpertID models.ExpertID `json:"expertId"`
	EntryID  string          `json:"entryId"`
}

// Enqueuer hands deferred work to the queue. It satisfies the narrow
// enqueuer interfaces the services declare.
type Enqueuer struct {
	client *asynq.Client
}

func NewEnqueuer(redisOpts asynq.RedisClientOpt) *Enqueuer {
	return &Enqueuer{client: asynq.NewClient(redisOpts)}
}

func (e *Enqueuer) EnqueueCalendarInsert(ctx context.Context, meetingID models.MeetingID) error {
	b, err := json.Marshal(calendarInsertPayload{MeetingID: meetingID})
	if err != nil {
		return err
	}
	_, err = e.client.EnqueueContext(ctx, asynq.NewTask(TypeCalendarEntryInsert, b),
		asynq.MaxRetry(5), asynq.ProcessIn(30*time.Second))
	return err
}

func (e *Enqueuer) EnqueueCalendarDelete(ctx context.Context, expertID models.ExpertID, entryID string) error {
	b, err := json.Marshal(calendarDeletePayload{ExpertID: expertID, EntryID: entryID})
	if err != nil {
		return err
	}
	_, err = e.client.EnqueueContext(ctx, asynq.NewTask(TypeCalendarEntryDelete, b),
		asynq.MaxRetry(5), asynq.ProcessIn(30*time.Second))
	return err
}

func (e *Enqueuer) Close() error {
	return e.client.Close()
}
