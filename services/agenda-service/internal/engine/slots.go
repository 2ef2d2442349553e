package engine

import (
	"context"
	"time"

	"github.com/mv-carvalho/clinsched/services/agenda-service/internal/model"
)

// AvailableSlots walks the professional's work day for the given date and
// returns the start times ("HH:MM") where a booking of durationMinutes would
// pass both the lunch rule and the conflict check. The walk always advances by
// the schedule's slot size, not by the requested duration, so slots stay on
// the canonical grid even when the duration spans several grid cells.
//
// A weekday without a schedule yields an empty list, not an error. The result
// is recomputed in full on every call.
func (e *Engine) AvailableSlots(ctx context.Context, professionalID string, day time.Time, durationMinutes int) ([]string, error) {
	if durationMinutes <= 0 {
		return []string{}, nil
	}

	sched, err := e.schedules.GetForWeekday(ctx, professionalID, day.Weekday())
	if err != nil {
		return nil, err
	}
	if sched == nil {
		return []string{}, nil
	}

	workStart, workEnd, err := sched.WorkWindow(day)
	if err != nil {
		return nil, err
	}

	var lunch *Interval
	if sched.HasLunch() {
		lunchStart, lunchEnd, err := sched.LunchWindow(day)
		if err != nil {
			return nil, err
		}
		lunch = &Interval{Start: lunchStart, End: lunchEnd}
	}

	// One day-scoped fetch; no windowing heuristic needed here.
	appts, err := e.appointments.OnDateByProfessional(ctx, professionalID, day)
	if err != nil {
		return nil, err
	}
	busy := make([]Interval, 0, len(appts))
	for _, a := range appts {
		busy = append(busy, Interval{Start: a.StartTime, End: a.EndTime()})
	}

	duration := time.Duration(durationMinutes) * time.Minute
	step := time.Duration(sched.SlotMinutes) * time.Minute

	slots := []string{}
	for cur := workStart; !cur.Add(duration).After(workEnd); cur = cur.Add(step) {
		slot := Interval{Start: cur, End: cur.Add(duration)}
		if lunch != nil && slot.Overlaps(*lunch) {
			continue
		}
		if overlapsAny(slot, busy) {
			continue
		}
		slots = append(slots, cur.Format(model.ClockLayout))
	}
	return slots, nil
}

func overlapsAny(slot Interval, busy []Interval) bool {
	for _, b := range busy {
		if slot.Overlaps(b) {
			return true
		}
	}
	return false
}
