package availability

import (
	"sort"
	"time"

	"meetwise/models"
	"meetwise/services/timeutil"
)

// Inputs is everything the candidate computation depends on. The engine is
// pure over these: same inputs, same output sequence. The clock is passed
// in, never read.
type Inputs struct {
	Now             time.Time
	Location        *time.Location
	Windows         []models.WeeklyWindow
	Policy          models.BookingPolicy
	DurationMinutes int
	BlockedDates    map[string]struct{} // local dates "2006-01-02"
	Busy            []models.BusyInterval
	Occupied        []timeutil.Interval // non-terminal reservations + active meetings
}

// Candidates produces the finite ascending sequence of valid start instants
// for the event described by Inputs.
func Candidates(in Inputs) []time.Time {
	earliest, latest := in.bounds()
	coverage := mergeWindowSegments(in.Windows)
	step := time.Duration(in.Policy.TimeSlotInterval) * time.Minute

	var out []time.Time
	for t := earliest; t.Before(latest); t = t.Add(step) {
		if in.accepts(t, latest, coverage) {
			out = append(out, t.UTC())
		}
	}
	return out
}

// StartValid re-checks one instant against the acceptance rule, including
// grid alignment. Used by the hold path to revalidate inside its own
// linearization.
func StartValid(in Inputs, t time.Time) bool {
	earliest, latest := in.bounds()
	if t.Before(earliest) {
		return false
	}
	if t.Sub(earliest)%(time.Duration(in.Policy.TimeSlotInterval)*time.Minute) != 0 {
		return false
	}
	return in.accepts(t, latest, mergeWindowSegments(in.Windows))
}

// bounds computes the half-open candidate window [earliest, latest).
func (in Inputs) bounds() (time.Time, time.Time) {
	raw := in.Now.Add(time.Duration(in.Policy.MinimumNotice) * time.Minute)
	earliest := timeutil.AlignToGrid(raw, in.Policy.TimeSlotInterval, in.Policy.MinimumNotice, in.Location)
	latest := timeutil.EndOfLocalDay(earliest.AddDate(0, 0, in.Policy.BookingWindowDays), in.Location)
	return earliest, latest
}

func (in Inputs) accepts(t, latest time.Time, coverage []segment) bool {
	duration := time.Duration(in.DurationMinutes) * time.Minute
	end := t.Add(duration)

	if end.After(latest) {
		return false
	}
	// Belt and braces for grid edges.
	if !t.After(in.Now) {
		return false
	}
	if _, blocked := in.BlockedDates[timeutil.LocalDate(t, in.Location)]; blocked {
		return false
	}
	if !covered(coverage, timeutil.MinuteOfWeek(t, in.Location), in.DurationMinutes) {
		return false
	}

	buffered := timeutil.New(t, duration).Pad(
		time.Duration(in.Policy.BeforeEventBuffer)*time.Minute,
		time.Duration(in.Policy.AfterEventBuffer)*time.Minute,
	)
	for _, b := range in.Busy {
		if buffered.Overlaps(timeutil.Interval{Start: b.Start, End: b.End}) {
			return false
		}
	}
	for _, o := range in.Occupied {
		if buffered.Overlaps(o) {
			return false
		}
	}
	return true
}

// segment is a half-open minute-of-week span.
type segment struct {
	start, end int
}

// mergeWindowSegments projects the weekly windows onto minute-of-week and
// merges overlapping or adjacent spans, so a booking that crosses local
// midnight is covered when the two adjacent windows meet.
func mergeWindowSegments(windows []models.WeeklyWindow) []segment {
	if len(windows) == 0 {
		return nil
	}
	segs := make([]segment, 0, len(windows))
	for _, w := range windows {
		segs = append(segs, segment{
			start: w.Weekday*timeutil.MinutesPerDay + w.StartMinute,
			end:   w.Weekday*timeutil.MinutesPerDay + w.EndMinute,
		})
	}
	sort.Slice(segs, func(i, j int) bool { return segs[i].start < segs[j].start })

	merged := segs[:1]
	for _, s := range segs[1:] {
		last := &merged[len(merged)-1]
		if s.start <= last.end {
			if s.end > last.end {
				last.end = s.end
			}
		} else {
			merged = append(merged, s)
		}
	}

	// A Saturday window that runs to midnight continues into Sunday's
	// coverage; unroll one extra week so wrap-around intervals test
	// against a contiguous span.
	unrolled := make([]segment, 0, 2*len(merged))
	unrolled = append(unrolled, merged...)
	for _, s := range merged {
		unrolled = append(unrolled, segment{start: s.start + timeutil.MinutesPerWeek, end: s.end + timeutil.MinutesPerWeek})
	}
	// Re-merge across the week boundary.
	sort.Slice(unrolled, func(i, j int) bool { return unrolled[i].start < unrolled[j].start })
	final := unrolled[:1]
	for _, s := range unrolled[1:] {
		last := &final[len(final)-1]
		if s.start <= last.end {
			if s.end > last.end {
				last.end = s.end
			}
		} else {
			final = append(final, s)
		}
	}
	return final
}

// covered reports whether [startMow, startMow+durationMinutes) lies inside
// one contiguous covered span. Inclusive on the window end: a booking may
// finish exactly where the window closes.
func covered(segs []segment, startMow, durationMinutes int) bool {
	endMow := startMow + durationMinutes
	for _, s := range segs {
		if startMow >= s.start && endMow <= s.end {
			return true
		}
	}
	return false
}
