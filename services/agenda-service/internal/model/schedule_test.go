package model

import (
	"testing"
	"time"
)

func validSchedule() WeeklySchedule {
	return WeeklySchedule{
		ProfessionalID: "prof-1",
		Weekday:        time.Monday,
		WorkStart:      "08:00",
		WorkEnd:        "18:00",
		LunchStart:     "12:00",
		LunchEnd:       "13:00",
		SlotMinutes:    30,
	}
}

func TestWeeklySchedule_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*WeeklySchedule)
		wantErr bool
	}{
		{"valid", func(*WeeklySchedule) {}, false},
		{"valid without lunch", func(s *WeeklySchedule) { s.LunchStart, s.LunchEnd = "", "" }, false},
		{"missing professional", func(s *WeeklySchedule) { s.ProfessionalID = "" }, true},
		{"zero slot size", func(s *WeeklySchedule) { s.SlotMinutes = 0 }, true},
		{"work start after end", func(s *WeeklySchedule) { s.WorkStart, s.WorkEnd = "18:00", "08:00" }, true},
		{"work start equals end", func(s *WeeklySchedule) { s.WorkEnd = s.WorkStart }, true},
		{"half-set lunch", func(s *WeeklySchedule) { s.LunchEnd = "" }, true},
		{"inverted lunch", func(s *WeeklySchedule) { s.LunchStart, s.LunchEnd = "13:00", "12:00" }, true},
		{"lunch before work opens", func(s *WeeklySchedule) { s.LunchStart = "07:00" }, true},
		{"lunch past work close", func(s *WeeklySchedule) { s.LunchEnd = "19:00" }, true},
		{"garbage clock value", func(s *WeeklySchedule) { s.WorkStart = "8am" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSchedule()
			tt.mutate(&s)
			err := s.Validate()
			if tt.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestClockOnDay_KeepsLocation(t *testing.T) {
	loc := time.FixedZone("BRT", -3*3600)
	day := time.Date(2026, time.January, 5, 0, 0, 0, 0, loc)

	got, err := ClockOnDay("08:30", day)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2026, time.January, 5, 8, 30, 0, 0, loc)
	if !got.Equal(want) {
		t.Fatalf("got %s, want %s", got, want)
	}
	if got.Location() != loc {
		t.Fatalf("location dropped: %s", got.Location())
	}
}

func TestAppointment_EndTime(t *testing.T) {
	start := time.Date(2026, time.January, 5, 9, 0, 0, 0, time.UTC)
	a := Appointment{StartTime: start, DurationMinutes: 45}
	if !a.EndTime().Equal(start.Add(45 * time.Minute)) {
		t.Fatalf("unexpected end %s", a.EndTime())
	}
}
