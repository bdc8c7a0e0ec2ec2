package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	expertRepo "meetwise/database/repository/expert"
	meetingRepo "meetwise/database/repository/meeting"
	reservationRepo "meetwise/database/repository/reservation"
	scheduleRepo "meetwise/database/repository/schedule"
	"meetwise/models"
	"meetwise/services/calendar"
	"meetwise/services/timeutil"
	"meetwise/utils"

	"go.uber.org/zap"
)

// Failure taxonomy for the booking-open path. NoSlots is a valid empty
// result; AvailabilityUnknown means the answer could not be computed and
// must never be read as an empty list.
var (
	ErrCalendarNotConnected = errors.New("CalendarNotConnected")
	ErrAvailabilityUnknown  = errors.New("AvailabilityUnknown")
	ErrNoSlots              = errors.New("NoSlots")
)

// Result is the booking-open payload: the expert's timezone plus the
// ordered valid start instants.
type Result struct {
	Timezone   string
	Candidates []time.Time
}

// Service computes bookable start instants for an event.
type Service interface {
	// AvailableStarts answers the booking-open query. expertID must match
	// the event's owner; an empty expertID skips the check.
	AvailableStarts(ctx context.Context, expertID models.ExpertID, eventID models.EventID, now time.Time) (*Result, error)
	// ValidateStart re-checks a single start inside the hold path.
	ValidateStart(ctx context.Context, expert *models.Expert, event *models.Event, start, now time.Time) error
}

// DefaultAvailabilityService implements Service over the schedule store,
// the reservation/meeting ledgers and the calendar gateway.
type DefaultAvailabilityService struct {
	Experts      expertRepo.ExpertRepository
	Schedule     scheduleRepo.ScheduleRepository
	Reservations reservationRepo.ReservationRepository
	Meetings     meetingRepo.MeetingRepository
	Calendar     calendar.Gateway
	Logger       *zap.Logger
}

func (s *DefaultAvailabilityService) AvailableStarts(ctx context.Context, expertID models.ExpertID, eventID models.EventID, now time.Time) (*Result, error) {
	event, err := s.Experts.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !event.Active {
		return nil, utils.E(utils.KindNotFound, "event %s is not active", eventID)
	}
	if expertID != "" && event.ExpertID != expertID {
		return nil, utils.E(utils.KindNotFound, "event %s does not belong to expert %s", eventID, expertID)
	}
	expert, err := s.Experts.GetByID(ctx, event.ExpertID)
	if err != nil {
		return nil, err
	}

	in, tz, err := s.loadInputs(ctx, expert, event, now)
	if err != nil {
		if errors.Is(err, ErrNoSlots) {
			return &Result{Timezone: expert.Timezone}, ErrNoSlots
		}
		return nil, err
	}

	candidates := Candidates(*in)
	if len(candidates) == 0 {
		return &Result{Timezone: tz}, ErrNoSlots
	}
	return &Result{Timezone: tz, Candidates: candidates}, nil
}

func (s *DefaultAvailabilityService) ValidateStart(ctx context.Context, expert *models.Expert, event *models.Event, start, now time.Time) error {
	in, _, err := s.loadInputs(ctx, expert, event, now)
	if err != nil {
		return err
	}
	if !StartValid(*in, start) {
		return utils.E(utils.KindPreconditionFailed, "start %s is no longer available", start.UTC().Format(time.RFC3339))
	}
	return nil
}

// loadInputs materializes everything the pure engine needs. All I/O happens
// here; the compute phase never suspends.
func (s *DefaultAvailabilityService) loadInputs(ctx context.Context, expert *models.Expert, event *models.Event, now time.Time) (*Inputs, string, error) {
	ok, err := s.Calendar.HasValidTokens(ctx, expert.ID)
	if err != nil && (utils.IsKind(err, utils.KindPreconditionFailed) || utils.IsKind(err, utils.KindUnauthorized)) {
		// Missing or expired consent: the expert has to reconnect.
		return nil, "", ErrCalendarNotConnected
	}
	if err != nil || !ok {
		return nil, "", fmt.Errorf("%w: calendar probe failed: %v", ErrAvailabilityUnknown, err)
	}

	schedule, err := s.Schedule.LoadSchedule(ctx, expert.ID)
	if err != nil {
		if utils.IsKind(err, utils.KindNotFound) {
			return nil, "", ErrNoSlots
		}
		return nil, "", err
	}
	policy, err := s.Schedule.LoadPolicy(ctx, expert.ID)
	if err != nil {
		return nil, "", err
	}

	tz := schedule.Timezone
	if tz == "" {
		tz = expert.Timezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, "", fmt.Errorf("invalid expert timezone %q: %w", tz, err)
	}

	in := Inputs{
		Now:             now,
		Location:        loc,
		Windows:         schedule.Windows,
		Policy:          policy,
		DurationMinutes: event.DurationMinutes,
	}
	earliest, latest := in.bounds()

	// Widen the fetch range by the buffers so edge candidates see their
	// neighbours.
	pad := time.Duration(policy.BeforeEventBuffer+policy.AfterEventBuffer) * time.Minute
	fetchFrom, fetchTo := earliest.Add(-pad), latest.Add(pad)

	blocked, err := s.Schedule.ListBlockedDates(ctx, expert.ID,
		timeutil.LocalDate(earliest, loc), timeutil.LocalDate(latest, loc))
	if err != nil {
		return nil, "", err
	}
	in.BlockedDates = make(map[string]struct{}, len(blocked))
	for _, b := range blocked {
		in.BlockedDates[b.LocalDate] = struct{}{}
	}

	busy, err := s.Calendar.BusyIntervals(ctx, expert.ID, fetchFrom, fetchTo)
	if err != nil {
		// A calendar failure is "cannot answer", never "no busy time".
		return nil, "", fmt.Errorf("%w: %v", ErrAvailabilityUnknown, err)
	}
	in.Busy = busy

	reservations, err := s.Reservations.ListActiveOverlapping(ctx, expert.ID, fetchFrom, fetchTo, now)
	if err != nil {
		return nil, "", err
	}
	for _, r := range reservations {
		in.Occupied = append(in.Occupied, timeutil.Interval{Start: r.Start, End: r.End})
	}
	meetings, err := s.Meetings.ListActiveOverlapping(ctx, expert.ID, fetchFrom, fetchTo)
	if err != nil {
		return nil, "", err
	}
	for _, m := range meetings {
		in.Occupied = append(in.Occupied, timeutil.Interval{Start: m.Start, End: m.End})
	}

	return &in, tz, nil
}
