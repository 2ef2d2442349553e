package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mv-carvalho/clinsched/services/agenda-service/internal/model"
)

// monday is a fixed Monday used across the engine tests.
var monday = time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)

func mondayAt(h, m int) time.Time {
	return monday.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func clinicSchedule() *model.WeeklySchedule {
	return &model.WeeklySchedule{
		ID:             "sched-1",
		ProfessionalID: "prof-1",
		Weekday:        time.Monday,
		WorkStart:      "08:00",
		WorkEnd:        "18:00",
		LunchStart:     "12:00",
		LunchEnd:       "13:00",
		SlotMinutes:    30,
	}
}

type fakeSchedules struct {
	schedules map[time.Weekday]*model.WeeklySchedule
	err       error
}

func (f *fakeSchedules) GetForWeekday(_ context.Context, _ string, weekday time.Weekday) (*model.WeeklySchedule, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.schedules[weekday], nil
}

// fakeAppointments mimics the repository contract: window queries return only
// non-cancelled appointments intersecting [start, end).
type fakeAppointments struct {
	professional []model.Appointment
	room         []model.Appointment
	err          error
}

func filterWindow(appts []model.Appointment, start, end time.Time) []model.Appointment {
	var out []model.Appointment
	for _, a := range appts {
		if a.Status == model.StatusCancelled {
			continue
		}
		if a.StartTime.Before(end) && a.EndTime().After(start) {
			out = append(out, a)
		}
	}
	return out
}

func (f *fakeAppointments) InWindowByProfessional(_ context.Context, _ string, start, end time.Time) ([]model.Appointment, error) {
	if f.err != nil {
		return nil, f.err
	}
	return filterWindow(f.professional, start, end), nil
}

func (f *fakeAppointments) InWindowByRoom(_ context.Context, _ string, start, end time.Time) ([]model.Appointment, error) {
	if f.err != nil {
		return nil, f.err
	}
	return filterWindow(f.room, start, end), nil
}

func (f *fakeAppointments) OnDateByProfessional(_ context.Context, _ string, day time.Time) ([]model.Appointment, error) {
	if f.err != nil {
		return nil, f.err
	}
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return filterWindow(f.professional, dayStart, dayStart.AddDate(0, 0, 1)), nil
}

func newTestEngine(appts *fakeAppointments) *Engine {
	return New(&fakeSchedules{schedules: map[time.Weekday]*model.WeeklySchedule{time.Monday: clinicSchedule()}}, appts)
}

func scheduled(id string, start time.Time, minutes int) model.Appointment {
	return model.Appointment{
		ID:              id,
		ProfessionalID:  "prof-1",
		StartTime:       start,
		DurationMinutes: minutes,
		Status:          model.StatusScheduled,
	}
}

func TestCheckAvailability_NoScheduleForWeekday(t *testing.T) {
	eng := newTestEngine(&fakeAppointments{})

	// Tuesday has no template.
	ok, err := eng.CheckAvailability(context.Background(), BookingCandidate{
		ProfessionalID:  "prof-1",
		Start:           mondayAt(9, 0).AddDate(0, 0, 1),
		DurationMinutes: 30,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected unavailable when the weekday has no schedule")
	}
}

func TestCheckAvailability_FreeSlot(t *testing.T) {
	eng := newTestEngine(&fakeAppointments{})

	ok, err := eng.CheckAvailability(context.Background(), BookingCandidate{
		ProfessionalID:  "prof-1",
		Start:           mondayAt(9, 0),
		DurationMinutes: 30,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected available")
	}
}

func TestCheckAvailability_CollapsesConflictToFalse(t *testing.T) {
	eng := newTestEngine(&fakeAppointments{
		professional: []model.Appointment{scheduled("appt-1", mondayAt(9, 0), 30)},
	})

	ok, err := eng.CheckAvailability(context.Background(), BookingCandidate{
		ProfessionalID:  "prof-1",
		Start:           mondayAt(9, 15),
		DurationMinutes: 30,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected unavailable when overlapping an existing appointment")
	}
}

func TestCheckAvailability_StoreErrorPropagates(t *testing.T) {
	storeErr := errors.New("connection refused")
	eng := New(&fakeSchedules{err: storeErr}, &fakeAppointments{})

	_, err := eng.CheckAvailability(context.Background(), BookingCandidate{
		ProfessionalID:  "prof-1",
		Start:           mondayAt(9, 0),
		DurationMinutes: 30,
	})
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected the store error unchanged, got %v", err)
	}
}

func TestValidateForBooking_ProfessionalConflict(t *testing.T) {
	eng := newTestEngine(&fakeAppointments{
		professional: []model.Appointment{scheduled("appt-1", mondayAt(9, 0), 30)},
	})

	cand := BookingCandidate{
		ProfessionalID:  "prof-1",
		Start:           mondayAt(9, 15),
		DurationMinutes: 30,
	}
	rej, err := eng.ValidateForBooking(context.Background(), cand)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rej == nil || rej.Reason != ReasonProfessionalConflict {
		t.Fatalf("expected professional conflict, got %+v", rej)
	}
	if rej.ConflictID != "appt-1" {
		t.Fatalf("expected conflict id appt-1, got %q", rej.ConflictID)
	}

	// Force suppresses the conflict rejection.
	cand.Force = true
	rej, err = eng.ValidateForBooking(context.Background(), cand)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rej != nil {
		t.Fatalf("expected force to succeed, got %+v", rej)
	}
}

func TestValidateForBooking_ForceNeverBypassesScheduleRules(t *testing.T) {
	eng := newTestEngine(&fakeAppointments{})

	rej, err := eng.ValidateForBooking(context.Background(), BookingCandidate{
		ProfessionalID:  "prof-1",
		Start:           mondayAt(7, 0), // before work-start
		DurationMinutes: 30,
		Force:           true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rej == nil || rej.Reason != ReasonOutsideWorkHours {
		t.Fatalf("expected outside_work_hours despite force, got %+v", rej)
	}
}

func TestValidateForBooking_RoomConflict(t *testing.T) {
	eng := newTestEngine(&fakeAppointments{
		room: []model.Appointment{
			{
				ID:              "appt-room",
				ProfessionalID:  "prof-2",
				RoomID:          "room-1",
				StartTime:       mondayAt(9, 0),
				DurationMinutes: 30,
				Status:          model.StatusScheduled,
			},
		},
	})

	rej, err := eng.ValidateForBooking(context.Background(), BookingCandidate{
		ProfessionalID:  "prof-1",
		RoomID:          "room-1",
		Start:           mondayAt(9, 15),
		DurationMinutes: 30,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rej == nil || rej.Reason != ReasonRoomConflict {
		t.Fatalf("expected room conflict, got %+v", rej)
	}
	if rej.ConflictID != "appt-room" {
		t.Fatalf("expected conflict id appt-room, got %q", rej.ConflictID)
	}
}

func TestValidateForBooking_CancelledNeverConflicts(t *testing.T) {
	cancelled := scheduled("appt-1", mondayAt(9, 0), 30)
	cancelled.Status = model.StatusCancelled
	eng := newTestEngine(&fakeAppointments{professional: []model.Appointment{cancelled}})

	rej, err := eng.ValidateForBooking(context.Background(), BookingCandidate{
		ProfessionalID:  "prof-1",
		Start:           mondayAt(9, 15),
		DurationMinutes: 30,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rej != nil {
		t.Fatalf("cancelled appointment must not block, got %+v", rej)
	}
}

func TestValidateForBooking_ExclusionSkipsSelf(t *testing.T) {
	eng := newTestEngine(&fakeAppointments{
		professional: []model.Appointment{scheduled("appt-1", mondayAt(9, 0), 30)},
	})

	// Re-validating appt-1 at its own time must not conflict with itself.
	rej, err := eng.ValidateForBooking(context.Background(), BookingCandidate{
		ProfessionalID:       "prof-1",
		Start:                mondayAt(9, 0),
		DurationMinutes:      30,
		ExcludeAppointmentID: "appt-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rej != nil {
		t.Fatalf("expected self-exclusion to pass, got %+v", rej)
	}
}

func TestValidateForBooking_Idempotent(t *testing.T) {
	eng := newTestEngine(&fakeAppointments{
		professional: []model.Appointment{scheduled("appt-1", mondayAt(9, 0), 30)},
	})
	cand := BookingCandidate{
		ProfessionalID:  "prof-1",
		Start:           mondayAt(9, 15),
		DurationMinutes: 30,
	}

	first, err := eng.ValidateForBooking(context.Background(), cand)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := eng.ValidateForBooking(context.Background(), cand)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first == nil || second == nil || first.Reason != second.Reason || first.ConflictID != second.ConflictID {
		t.Fatalf("expected identical outcomes, got %+v then %+v", first, second)
	}
}

func TestValidateForBooking_BackToBackAllowed(t *testing.T) {
	eng := newTestEngine(&fakeAppointments{
		professional: []model.Appointment{scheduled("appt-1", mondayAt(9, 0), 30)},
	})

	// Starting exactly when the existing appointment ends is not a conflict.
	rej, err := eng.ValidateForBooking(context.Background(), BookingCandidate{
		ProfessionalID:  "prof-1",
		Start:           mondayAt(9, 30),
		DurationMinutes: 30,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rej != nil {
		t.Fatalf("back-to-back booking rejected: %+v", rej)
	}
}
