package timeutil

import "time"

// MinutesPerDay is the length of a wall-clock day.
const MinutesPerDay = 24 * 60

// MinutesPerWeek covers Sunday 00:00 through Saturday 24:00.
const MinutesPerWeek = 7 * MinutesPerDay

// AlignToGrid ceiling-rounds earliest onto the slot grid anchored at local
// midnight. A notice period of a full day or more works at day granularity:
// the earliest bookable instant is the start of the day earliest falls on,
// not a rounded-up intraday slot.
//
// The grid is wall-clock: on DST transition days time.Date normalizes
// nonexistent local minutes forward, which keeps slots aligned to what the
// expert sees on their own clock.
func AlignToGrid(earliest time.Time, intervalMinutes, noticeMinutes int, loc *time.Location) time.Time {
	if noticeMinutes >= MinutesPerDay {
		return StartOfLocalDay(earliest, loc)
	}

	local := earliest.In(loc)
	mins := local.Hour()*60 + local.Minute()
	if local.Second() > 0 || local.Nanosecond() > 0 {
		mins++
	}
	aligned := ((mins + intervalMinutes - 1) / intervalMinutes) * intervalMinutes
	return time.Date(local.Year(), local.Month(), local.Day(), 0, aligned, 0, 0, loc)
}

// StartOfLocalDay returns the local midnight of t's day.
func StartOfLocalDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// StartOfNextLocalDay returns the next local midnight strictly after t's day.
func StartOfNextLocalDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
}

// EndOfLocalDay returns the exclusive end of t's local day (next midnight).
func EndOfLocalDay(t time.Time, loc *time.Location) time.Time {
	return StartOfNextLocalDay(t, loc)
}

// MinuteOfWeek projects an instant onto the expert's local week:
// weekday*1440 + minute-of-day, Sunday = 0.
func MinuteOfWeek(t time.Time, loc *time.Location) int {
	local := t.In(loc)
	return int(local.Weekday())*MinutesPerDay + local.Hour()*60 + local.Minute()
}

// LocalDate formats t's date in the given location as "2006-01-02".
func LocalDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}
