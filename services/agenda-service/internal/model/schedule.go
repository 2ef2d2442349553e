package model

import (
	"errors"
	"fmt"
	"time"
)

// ClockLayout is the layout for schedule clock columns ("08:00", "17:30").
const ClockLayout = "15:04"

// WeeklySchedule is one weekday row of a professional's working template.
// There is at most one row per (professional, weekday); the engine treats it
// as read-only.
type WeeklySchedule struct {
	ID             string
	ProfessionalID string
	Weekday        time.Weekday
	WorkStart      string
	WorkEnd        string
	LunchStart     string
	LunchEnd       string
	SlotMinutes    int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasLunch reports whether the schedule defines a lunch break. Both clock
// columns are empty for professionals who work straight through.
func (s WeeklySchedule) HasLunch() bool {
	return s.LunchStart != "" && s.LunchEnd != ""
}

// WorkWindow anchors the work hours onto the given calendar day, in that
// day's location.
func (s WeeklySchedule) WorkWindow(day time.Time) (time.Time, time.Time, error) {
	start, err := ClockOnDay(s.WorkStart, day)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := ClockOnDay(s.WorkEnd, day)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// LunchWindow anchors the lunch break onto the given calendar day. Callers
// must check HasLunch first.
func (s WeeklySchedule) LunchWindow(day time.Time) (time.Time, time.Time, error) {
	start, err := ClockOnDay(s.LunchStart, day)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := ClockOnDay(s.LunchEnd, day)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// Validate enforces the write-time invariants: positive slot size, well-formed
// clock values, work-start < work-end, and (when present) a lunch break that
// is internally ordered and contained in the work window.
func (s WeeklySchedule) Validate() error {
	if s.ProfessionalID == "" {
		return errors.New("professional_id is required")
	}
	if s.Weekday < time.Sunday || s.Weekday > time.Saturday {
		return fmt.Errorf("invalid weekday %d", s.Weekday)
	}
	if s.SlotMinutes <= 0 {
		return errors.New("slot_minutes must be positive")
	}

	workStart, err := parseClock(s.WorkStart)
	if err != nil {
		return fmt.Errorf("work_start: %w", err)
	}
	workEnd, err := parseClock(s.WorkEnd)
	if err != nil {
		return fmt.Errorf("work_end: %w", err)
	}
	if !workStart.Before(workEnd) {
		return errors.New("work_start must be before work_end")
	}

	if s.LunchStart == "" && s.LunchEnd == "" {
		return nil
	}
	if s.LunchStart == "" || s.LunchEnd == "" {
		return errors.New("lunch_start and lunch_end must both be set or both be empty")
	}
	lunchStart, err := parseClock(s.LunchStart)
	if err != nil {
		return fmt.Errorf("lunch_start: %w", err)
	}
	lunchEnd, err := parseClock(s.LunchEnd)
	if err != nil {
		return fmt.Errorf("lunch_end: %w", err)
	}
	if !lunchStart.Before(lunchEnd) {
		return errors.New("lunch_start must be before lunch_end")
	}
	if lunchStart.Before(workStart) || lunchEnd.After(workEnd) {
		return errors.New("lunch break must fall within work hours")
	}
	return nil
}

// ClockOnDay resolves a clock string onto a concrete calendar day, keeping the
// day's location so schedules behave correctly across timezones.
func ClockOnDay(clock string, day time.Time) (time.Time, error) {
	t, err := parseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location()), nil
}

func parseClock(clock string) (time.Time, error) {
	t, err := time.Parse(ClockLayout, clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid clock value %q", clock)
	}
	return t, nil
}
