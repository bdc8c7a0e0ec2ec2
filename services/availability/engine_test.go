package availability

import (
	"testing"
	"time"

	"meetwise/models"
	"meetwise/services/timeutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lisbon(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Lisbon")
	require.NoError(t, err)
	return loc
}

// weekdayWindows is Mon-Fri 09:00-17:00 local.
func weekdayWindows() []models.WeeklyWindow {
	var ws []models.WeeklyWindow
	for d := 1; d <= 5; d++ {
		ws = append(ws, models.WeeklyWindow{Weekday: d, StartMinute: 9 * 60, EndMinute: 17 * 60})
	}
	return ws
}

func baseInputs(t *testing.T, now time.Time) Inputs {
	return Inputs{
		Now:      now,
		Location: lisbon(t),
		Windows:  weekdayWindows(),
		Policy: models.BookingPolicy{
			TimeSlotInterval:  30,
			BookingWindowDays: 7,
			MinimumNotice:     60,
		},
		DurationMinutes: 60,
	}
}

func TestCandidatesOpensOnTheGrid(t *testing.T) {
	// Monday 08:00 in Lisbon (WET, UTC+0 in early March).
	now := time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC)
	in := baseInputs(t, now)

	got := Candidates(in)
	require.NotEmpty(t, got)

	assert.True(t, got[0].Equal(time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)))
	assert.True(t, got[1].Equal(time.Date(2025, 3, 3, 9, 30, 0, 0, time.UTC)))
	assert.True(t, got[2].Equal(time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)))

	loc := in.Location
	for i, c := range got {
		local := c.In(loc)
		assert.Equal(t, 0, local.Minute()%30, "candidate %d off the wall-clock grid", i)
		assert.NotEqual(t, time.Saturday, local.Weekday())
		assert.NotEqual(t, time.Sunday, local.Weekday())
		// A one-hour booking must end by 17:00 local.
		endMins := local.Hour()*60 + local.Minute() + in.DurationMinutes
		assert.LessOrEqual(t, endMins, 17*60, "candidate %d runs past the window", i)
		if i > 0 {
			assert.True(t, got[i-1].Before(c), "candidates must ascend")
		}
	}
}

func TestCandidatesSkipsBusyCalendarTime(t *testing.T) {
	now := time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC)
	in := baseInputs(t, now)
	in.Busy = []models.BusyInterval{{
		Start: time.Date(2025, 3, 3, 9, 15, 0, 0, time.UTC),
		End:   time.Date(2025, 3, 3, 10, 15, 0, 0, time.UTC),
	}}

	got := Candidates(in)
	require.NotEmpty(t, got)
	// 09:00, 09:30 and 10:00 all collide with the busy block; 10:15 is off
	// the grid, so the day opens at 10:30.
	assert.True(t, got[0].Equal(time.Date(2025, 3, 3, 10, 30, 0, 0, time.UTC)))
}

func TestCandidatesDayGranularityNotice(t *testing.T) {
	// Monday 14:00 local with a 24h notice: same-day booking is out, but the
	// whole of Tuesday is in.
	now := time.Date(2025, 3, 3, 14, 0, 0, 0, time.UTC)
	in := baseInputs(t, now)
	in.Policy.MinimumNotice = 1440

	got := Candidates(in)
	require.NotEmpty(t, got)
	assert.True(t, got[0].Equal(time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)))
}

func TestCandidatesExcludesOccupiedSlots(t *testing.T) {
	now := time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC)
	in := baseInputs(t, now)
	in.Occupied = []timeutil.Interval{{
		Start: time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC),
	}}

	got := Candidates(in)
	require.NotEmpty(t, got)
	// 09:00 is taken and 09:30 overlaps its tail.
	assert.True(t, got[0].Equal(time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)))
}

func TestCandidatesHonoursBlockedDates(t *testing.T) {
	now := time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC)
	in := baseInputs(t, now)
	in.BlockedDates = map[string]struct{}{"2025-03-04": {}}

	for _, c := range Candidates(in) {
		assert.NotEqual(t, "2025-03-04", timeutil.LocalDate(c, in.Location))
	}
}

func TestCandidatesAppliesBuffers(t *testing.T) {
	now := time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC)
	in := baseInputs(t, now)
	in.Policy.BeforeEventBuffer = 15
	in.Policy.AfterEventBuffer = 15
	in.Busy = []models.BusyInterval{{
		Start: time.Date(2025, 3, 3, 11, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 3, 3, 11, 30, 0, 0, time.UTC),
	}}

	got := Candidates(in)
	require.NotEmpty(t, got)
	assert.True(t, got[0].Equal(time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)))
	// 10:00 + 60m + 15m after-buffer brushes the 11:00 busy block.
	for _, c := range got {
		assert.False(t, c.Equal(time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)))
	}
}

func TestCandidatesMidnightStraddle(t *testing.T) {
	// Mon 22:00-24:00 plus Tue 00:00-02:00 form one contiguous stretch, so a
	// two-hour booking starting Mon 23:00 fits.
	in := Inputs{
		Now:      time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC),
		Location: lisbon(t),
		Windows: []models.WeeklyWindow{
			{Weekday: 1, StartMinute: 22 * 60, EndMinute: 24 * 60},
			{Weekday: 2, StartMinute: 0, EndMinute: 2 * 60},
		},
		Policy:          models.BookingPolicy{TimeSlotInterval: 60, BookingWindowDays: 1, MinimumNotice: 0},
		DurationMinutes: 120,
	}

	got := Candidates(in)
	want := time.Date(2025, 3, 3, 23, 0, 0, 0, time.UTC)
	found := false
	for _, c := range got {
		if c.Equal(want) {
			found = true
		}
	}
	assert.True(t, found, "Mon 23:00 should be bookable across midnight")
}

func TestCandidatesWeekWrap(t *testing.T) {
	// Sat 23:00-24:00 continues into Sun 00:00-01:00 across the week seam.
	in := Inputs{
		Now:      time.Date(2025, 3, 8, 12, 0, 0, 0, time.UTC), // Saturday noon
		Location: lisbon(t),
		Windows: []models.WeeklyWindow{
			{Weekday: 6, StartMinute: 23 * 60, EndMinute: 24 * 60},
			{Weekday: 0, StartMinute: 0, EndMinute: 60},
		},
		Policy:          models.BookingPolicy{TimeSlotInterval: 60, BookingWindowDays: 1, MinimumNotice: 0},
		DurationMinutes: 120,
	}

	got := Candidates(in)
	want := time.Date(2025, 3, 8, 23, 0, 0, 0, time.UTC)
	found := false
	for _, c := range got {
		if c.Equal(want) {
			found = true
		}
	}
	assert.True(t, found, "Sat 23:00 should be bookable across the week boundary")
}

func TestCandidatesSpringForward(t *testing.T) {
	// Lisbon skips 01:00-02:00 local on 2025-03-30. The wall clock jumps from
	// 01:00 to 02:00, so the 01:xx slots simply do not exist.
	in := Inputs{
		Now:      time.Date(2025, 3, 29, 23, 0, 0, 0, time.UTC), // Sat 23:00 local
		Location: lisbon(t),
		Windows: []models.WeeklyWindow{
			{Weekday: 0, StartMinute: 0, EndMinute: 3 * 60},
		},
		Policy:          models.BookingPolicy{TimeSlotInterval: 30, BookingWindowDays: 1, MinimumNotice: 0},
		DurationMinutes: 30,
	}

	got := Candidates(in)
	require.Len(t, got, 4)
	assert.True(t, got[0].Equal(time.Date(2025, 3, 30, 0, 0, 0, 0, time.UTC)))
	assert.True(t, got[1].Equal(time.Date(2025, 3, 30, 0, 30, 0, 0, time.UTC)))
	// 01:00 UTC is 02:00 local after the jump, still inside the window.
	assert.True(t, got[2].Equal(time.Date(2025, 3, 30, 1, 0, 0, 0, time.UTC)))
	assert.True(t, got[3].Equal(time.Date(2025, 3, 30, 1, 30, 0, 0, time.UTC)))
}

func TestCandidatesDeterministic(t *testing.T) {
	now := time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC)
	in := baseInputs(t, now)
	in.Busy = []models.BusyInterval{{
		Start: time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 3, 4, 12, 0, 0, 0, time.UTC),
	}}

	first := Candidates(in)
	second := Candidates(in)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.True(t, first[i].Equal(second[i]))
	}
}

func TestCandidatesEmptyWithoutWindows(t *testing.T) {
	now := time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC)
	in := baseInputs(t, now)
	in.Windows = nil
	assert.Empty(t, Candidates(in))
}

func TestStartValid(t *testing.T) {
	now := time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC)
	in := baseInputs(t, now)

	assert.True(t, StartValid(in, time.Date(2025, 3, 3, 9, 30, 0, 0, time.UTC)))

	// Off the grid.
	assert.False(t, StartValid(in, time.Date(2025, 3, 3, 9, 45, 0, 0, time.UTC)))

	// Before the notice boundary.
	assert.False(t, StartValid(in, time.Date(2025, 3, 3, 8, 30, 0, 0, time.UTC)))

	// Beyond the booking window.
	assert.False(t, StartValid(in, time.Date(2025, 4, 3, 9, 0, 0, 0, time.UTC)))

	// Colliding with an active hold.
	in.Occupied = []timeutil.Interval{{
		Start: time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC),
	}}
	assert.False(t, StartValid(in, time.Date(2025, 3, 3, 9, 30, 0, 0, time.UTC)))
}
