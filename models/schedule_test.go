package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSchedule() WeeklySchedule {
	return WeeklySchedule{
		ExpertID: "exp-1",
		Timezone: "Europe/Lisbon",
		Windows: []WeeklyWindow{
			{Weekday: 1, StartMinute: 540, EndMinute: 1020},
			{Weekday: 3, StartMinute: 540, EndMinute: 1020},
		},
	}
}

func TestScheduleValidate(t *testing.T) {
	require.NoError(t, validSchedule().Validate())

	t.Run("empty windows", func(t *testing.T) {
		s := validSchedule()
		s.Windows = nil
		assert.Error(t, s.Validate())
	})
	t.Run("weekday out of range", func(t *testing.T) {
		s := validSchedule()
		s.Windows[0].Weekday = 7
		assert.Error(t, s.Validate())
	})
	t.Run("start not before end", func(t *testing.T) {
		s := validSchedule()
		s.Windows[0].StartMinute = 1020
		assert.Error(t, s.Validate())
	})
	t.Run("end past midnight", func(t *testing.T) {
		s := validSchedule()
		s.Windows[0].EndMinute = 1441
		assert.Error(t, s.Validate())
	})
	t.Run("full day window is allowed", func(t *testing.T) {
		s := validSchedule()
		s.Windows[0] = WeeklyWindow{Weekday: 1, StartMinute: 0, EndMinute: 1440}
		assert.NoError(t, s.Validate())
	})
	t.Run("unknown timezone", func(t *testing.T) {
		s := validSchedule()
		s.Timezone = "Mars/Olympus"
		assert.Error(t, s.Validate())
	})
	t.Run("overlapping windows are allowed", func(t *testing.T) {
		s := validSchedule()
		s.Windows = append(s.Windows, WeeklyWindow{Weekday: 1, StartMinute: 600, EndMinute: 660})
		assert.NoError(t, s.Validate())
	})
}

func TestPolicyValidate(t *testing.T) {
	p := BookingPolicy{TimeSlotInterval: 30, BookingWindowDays: 14}
	require.NoError(t, p.Validate())

	t.Run("interval outside allowed set", func(t *testing.T) {
		bad := p
		bad.TimeSlotInterval = 25
		assert.Error(t, bad.Validate())
	})
	t.Run("window out of range", func(t *testing.T) {
		bad := p
		bad.BookingWindowDays = 366
		assert.Error(t, bad.Validate())
	})
	t.Run("negative buffer", func(t *testing.T) {
		bad := p
		bad.AfterEventBuffer = -1
		assert.Error(t, bad.Validate())
	})
}

func TestPolicyApplyDefaults(t *testing.T) {
	def := BookingPolicy{TimeSlotInterval: 30, BookingWindowDays: 14, MinimumNotice: 120}

	t.Run("zero interval and window take defaults", func(t *testing.T) {
		got := BookingPolicy{}.ApplyDefaults(def)
		assert.Equal(t, 30, got.TimeSlotInterval)
		assert.Equal(t, 14, got.BookingWindowDays)
	})
	t.Run("explicit zero notice stays zero", func(t *testing.T) {
		got := BookingPolicy{TimeSlotInterval: 60, BookingWindowDays: 7}.ApplyDefaults(def)
		assert.Equal(t, 60, got.TimeSlotInterval)
		assert.Equal(t, 7, got.BookingWindowDays)
		assert.Zero(t, got.MinimumNotice)
	})
}
