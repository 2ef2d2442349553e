package engine

import (
	"time"

	"github.com/mv-carvalho/clinsched/services/agenda-service/internal/model"
)

// validateScheduleRules checks a candidate interval against the professional's
// weekday template only; it never consults other appointments. A nil schedule
// means the professional does not work that weekday.
//
// The lunch test uses the same half-open Overlaps rule as every other check,
// so a booking ending exactly at lunch-start (or starting exactly at
// lunch-end) is allowed.
func validateScheduleRules(sched *model.WeeklySchedule, start time.Time, durationMinutes int) (*Rejection, error) {
	if sched == nil {
		return &Rejection{Reason: ReasonNoScheduleForWeekday}, nil
	}

	cand := NewInterval(start, durationMinutes)

	workStart, workEnd, err := sched.WorkWindow(start)
	if err != nil {
		return nil, err
	}
	if cand.Start.Before(workStart) || cand.End.After(workEnd) {
		return &Rejection{Reason: ReasonOutsideWorkHours}, nil
	}

	if sched.HasLunch() {
		lunchStart, lunchEnd, err := sched.LunchWindow(start)
		if err != nil {
			return nil, err
		}
		if cand.Overlaps(Interval{Start: lunchStart, End: lunchEnd}) {
			return &Rejection{Reason: ReasonInLunchBreak}, nil
		}
	}

	if durationMinutes <= 0 || durationMinutes%sched.SlotMinutes != 0 {
		return &Rejection{Reason: ReasonInvalidSlotDuration}, nil
	}

	return nil, nil
}
