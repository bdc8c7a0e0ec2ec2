package models

import (
	"fmt"
	"time"
)

// WeeklyWindow is one availability window on a weekday, expressed in minutes
// from local midnight. Windows never cross midnight; availability that does
// is represented as two windows on adjacent days.
type WeeklyWindow struct {
	Weekday     int `bson:"weekday" json:"weekday"`          // 0 = Sunday .. 6 = Saturday
	StartMinute int `bson:"start_minute" json:"startMinute"` // 0..1439
	EndMinute   int `bson:"end_minute" json:"endMinute"`     // 1..1440, > StartMinute
}

// WeeklySchedule is an Expert's recurring availability. Windows may overlap;
// the union is what counts.
type WeeklySchedule struct {
	ExpertID  ExpertID       `bson:"expert_id" json:"expertId"`
	Timezone  string         `bson:"timezone" json:"timezone"`
	Windows   []WeeklyWindow `bson:"windows" json:"windows"`
	UpdatedAt time.Time      `bson:"updated_at" json:"updatedAt"`
}

// Validate enforces the schedule input constraints: at least one window,
// weekdays in range, per-window monotonicity, no window longer than a day.
func (s WeeklySchedule) Validate() error {
	if len(s.Windows) == 0 {
		return fmt.Errorf("schedule must contain at least one window")
	}
	days := map[int]bool{}
	for i, w := range s.Windows {
		if w.Weekday < 0 || w.Weekday > 6 {
			return fmt.Errorf("window %d: weekday %d out of range", i, w.Weekday)
		}
		if w.StartMinute < 0 || w.StartMinute > 1439 {
			return fmt.Errorf("window %d: startMinute %d out of range", i, w.StartMinute)
		}
		if w.EndMinute < 1 || w.EndMinute > 1440 {
			return fmt.Errorf("window %d: endMinute %d out of range", i, w.EndMinute)
		}
		if w.StartMinute >= w.EndMinute {
			return fmt.Errorf("window %d: start %d not before end %d", i, w.StartMinute, w.EndMinute)
		}
		days[w.Weekday] = true
	}
	if len(days) > 7 {
		return fmt.Errorf("schedule spans more than 7 days")
	}
	if _, err := time.LoadLocation(s.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", s.Timezone, err)
	}
	return nil
}

// allowedSlotIntervals is the set of valid slot grid sizes in minutes.
var allowedSlotIntervals = map[int]bool{
	5: true, 10: true, 15: true, 20: true, 30: true, 45: true, 60: true, 90: true, 120: true,
}

// BookingPolicy is the per-Expert booking configuration. Zero-valued fields
// are filled from the configured defaults by ApplyDefaults.
type BookingPolicy struct {
	TimeSlotInterval  int `bson:"time_slot_interval" json:"timeSlotInterval"`   // minutes
	BookingWindowDays int `bson:"booking_window_days" json:"bookingWindowDays"` // 1..365
	MinimumNotice     int `bson:"minimum_notice" json:"minimumNotice"`          // minutes
	BeforeEventBuffer int `bson:"before_event_buffer" json:"beforeEventBuffer"` // minutes
	AfterEventBuffer  int `bson:"after_event_buffer" json:"afterEventBuffer"`   // minutes
}

// ApplyDefaults fills unset fields from def. Buffers and notice default to
// def's values only when negative is impossible, so zero means zero there.
func (p BookingPolicy) ApplyDefaults(def BookingPolicy) BookingPolicy {
	if p.TimeSlotInterval == 0 {
		p.TimeSlotInterval = def.TimeSlotInterval
	}
	if p.BookingWindowDays == 0 {
		p.BookingWindowDays = def.BookingWindowDays
	}
	return p
}

// Validate checks policy field ranges.
func (p BookingPolicy) Validate() error {
	if !allowedSlotIntervals[p.TimeSlotInterval] {
		return fmt.Errorf("timeSlotInterval %d not in allowed set", p.TimeSlotInterval)
	}
	if p.BookingWindowDays < 1 || p.BookingWindowDays > 365 {
		return fmt.Errorf("bookingWindowDays %d outside [1,365]", p.BookingWindowDays)
	}
	if p.MinimumNotice < 0 {
		return fmt.Errorf("minimumNotice must not be negative")
	}
	if p.BeforeEventBuffer < 0 || p.AfterEventBuffer < 0 {
		return fmt.Errorf("event buffers must not be negative")
	}
	return nil
}

// BlockedDate removes all slots on one local date (Expert's home timezone).
type BlockedDate struct {
	ExpertID  ExpertID  `bson:"expert_id" json:"expertId"`
	LocalDate string    `bson:"local_date" json:"localDate"` // "2006-01-02"
	Reason    string    `bson:"reason,omitempty" json:"reason,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}
