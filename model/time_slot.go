package model

import (
	"errors"
	"fmt"
	"time"
)

// Clock times are stored as zero-padded "HH:MM" strings so lexical
// comparison matches chronological comparison (both in Go and in SQL).
const ClockLayout = "15:04"

var ErrInvalidRange = errors.New("invalid time range")

// ParseClock converts an "HH:MM" wall-clock string into minutes since midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse(ClockLayout, s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// NormalizeDate truncates a timestamp to UTC midnight so date equality
// works the same way on every store backend.
func NormalizeDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// CombineDateClock builds a full timestamp from a normalized date and an
// "HH:MM" clock string. The clock string must already be validated.
func CombineDateClock(date time.Time, clock string) time.Time {
	minutes, _ := ParseClock(clock)
	return NormalizeDate(date).Add(time.Duration(minutes) * time.Minute)
}

// TimeSlot is a recurring weekly slot: a weekday plus a same-day time range.
type TimeSlot struct {
	DayOfWeek time.Weekday `json:"day_of_week" validate:"min=0,max=6"`
	StartTime string       `json:"start_time" validate:"required"`
	EndTime   string       `json:"end_time" validate:"required"`
}

// NewTimeSlot validates and constructs a TimeSlot.
func NewTimeSlot(day time.Weekday, start, end string) (TimeSlot, error) {
	slot := TimeSlot{DayOfWeek: day, StartTime: start, EndTime: end}
	if err := slot.Validate(); err != nil {
		return TimeSlot{}, err
	}
	return slot, nil
}

// Validate checks the clock strings parse and start < end within one day.
func (ts TimeSlot) Validate() error {
	if ts.DayOfWeek < time.Sunday || ts.DayOfWeek > time.Saturday {
		return fmt.Errorf("%w: day_of_week %d out of range", ErrInvalidRange, ts.DayOfWeek)
	}
	start, err := ParseClock(ts.StartTime)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}
	end, err := ParseClock(ts.EndTime)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}
	if start >= end {
		return fmt.Errorf("%w: start_time %s must be before end_time %s", ErrInvalidRange, ts.StartTime, ts.EndTime)
	}
	return nil
}

// DurationMinutes returns the slot length. The slot must be valid.
func (ts TimeSlot) DurationMinutes() int {
	start, _ := ParseClock(ts.StartTime)
	end, _ := ParseClock(ts.EndTime)
	return end - start
}

// OccurrenceOn resolves the slot to a concrete date: the first occurrence of
// DayOfWeek on or after startDate, advanced by weekOffset weeks.
func (ts TimeSlot) OccurrenceOn(startDate time.Time, weekOffset int) time.Time {
	anchor := NormalizeDate(startDate)
	daysAhead := (int(ts.DayOfWeek) - int(anchor.Weekday()) + 7) % 7
	return anchor.AddDate(0, 0, daysAhead+7*weekOffset)
}
