package engine

import (
	"testing"
	"time"
)

func TestValidateScheduleRules(t *testing.T) {
	sched := clinicSchedule()

	tests := []struct {
		name     string
		start    time.Time
		duration int
		want     Reason // "" means accepted
	}{
		{"inside work hours", mondayAt(9, 0), 30, ""},
		{"first slot of the day", mondayAt(8, 0), 30, ""},
		{"last slot of the day", mondayAt(17, 30), 30, ""},
		{"before work start", mondayAt(7, 30), 30, ReasonOutsideWorkHours},
		{"ends after work end", mondayAt(17, 45), 30, ReasonOutsideWorkHours},
		{"starts mid lunch", mondayAt(12, 15), 30, ReasonInLunchBreak},
		{"spans into lunch", mondayAt(11, 45), 30, ReasonInLunchBreak},
		{"ends exactly at lunch start", mondayAt(11, 30), 30, ""},
		{"starts exactly at lunch end", mondayAt(13, 0), 30, ""},
		{"duration not on slot grid", mondayAt(8, 0), 45, ReasonInvalidSlotDuration},
		{"zero duration", mondayAt(8, 0), 0, ReasonInvalidSlotDuration},
		{"multi-slot duration", mondayAt(8, 0), 90, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rej, err := validateScheduleRules(sched, tt.start, tt.duration)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.want == "" {
				if rej != nil {
					t.Fatalf("expected acceptance, got %+v", rej)
				}
				return
			}
			if rej == nil || rej.Reason != tt.want {
				t.Fatalf("expected %s, got %+v", tt.want, rej)
			}
		})
	}
}

func TestValidateScheduleRules_NilSchedule(t *testing.T) {
	rej, err := validateScheduleRules(nil, mondayAt(9, 0), 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rej == nil || rej.Reason != ReasonNoScheduleForWeekday {
		t.Fatalf("expected no_schedule_for_weekday, got %+v", rej)
	}
}

func TestValidateScheduleRules_NoLunch(t *testing.T) {
	sched := clinicSchedule()
	sched.LunchStart = ""
	sched.LunchEnd = ""

	rej, err := validateScheduleRules(sched, mondayAt(12, 0), 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rej != nil {
		t.Fatalf("noon must be bookable without a lunch break, got %+v", rej)
	}
}
