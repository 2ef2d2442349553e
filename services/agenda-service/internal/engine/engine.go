// Package engine decides whether a professional (and optionally a room) can
// be booked for a time window, and enumerates a day's free slots. It holds no
// state of its own: schedules and appointments are read from the injected
// sources on every call, and the caller is responsible for serializing
// validate-then-write sequences (the HTTP layer does this with per-resource
// advisory locks inside the booking transaction).
package engine

import (
	"context"
	"time"

	"github.com/mv-carvalho/clinsched/services/agenda-service/internal/model"
)

// BookingCandidate describes a requested booking.
type BookingCandidate struct {
	ProfessionalID  string
	RoomID          string // optional
	Start           time.Time
	DurationMinutes int
	// ExcludeAppointmentID is set when re-validating an existing appointment
	// being edited, so it does not conflict with itself.
	ExcludeAppointmentID string
	// Force suppresses conflict rejections only. Schedule-shape rejections
	// (off-hours, lunch, bad duration) always block.
	Force bool
}

// ScheduleSource reads a professional's weekday template. A nil schedule with
// a nil error means no template exists for that weekday.
type ScheduleSource interface {
	GetForWeekday(ctx context.Context, professionalID string, weekday time.Weekday) (*model.WeeklySchedule, error)
}

// AppointmentSource reads existing appointments. Implementations must exclude
// cancelled appointments from every query.
type AppointmentSource interface {
	InWindowByProfessional(ctx context.Context, professionalID string, start, end time.Time) ([]model.Appointment, error)
	InWindowByRoom(ctx context.Context, roomID string, start, end time.Time) ([]model.Appointment, error)
	OnDateByProfessional(ctx context.Context, professionalID string, day time.Time) ([]model.Appointment, error)
}

type Engine struct {
	schedules    ScheduleSource
	appointments AppointmentSource
}

func New(schedules ScheduleSource, appointments AppointmentSource) *Engine {
	return &Engine{schedules: schedules, appointments: appointments}
}

// CheckAvailability is the read-only predicate form: true only when the
// candidate passes the schedule rules and has no professional conflict. All
// rejection reasons collapse to false; the room is not checked here. Store
// failures propagate unchanged.
func (e *Engine) CheckAvailability(ctx context.Context, cand BookingCandidate) (bool, error) {
	sched, err := e.schedules.GetForWeekday(ctx, cand.ProfessionalID, cand.Start.Weekday())
	if err != nil {
		return false, err
	}
	rej, err := validateScheduleRules(sched, cand.Start, cand.DurationMinutes)
	if err != nil {
		return false, err
	}
	if rej != nil {
		return false, nil
	}

	conflict, err := findConflict(ctx, e.professionalWindow(cand.ProfessionalID),
		NewInterval(cand.Start, cand.DurationMinutes), cand.ExcludeAppointmentID)
	if err != nil {
		return false, err
	}
	return conflict == nil, nil
}

// ValidateForBooking runs the full pre-write validation. It returns a
// Rejection describing the first failed check, or nil when the candidate is
// bookable. Schedule-shape checks run first and cannot be forced past; the
// professional conflict check runs next, then the room conflict check when a
// room is requested.
func (e *Engine) ValidateForBooking(ctx context.Context, cand BookingCandidate) (*Rejection, error) {
	sched, err := e.schedules.GetForWeekday(ctx, cand.ProfessionalID, cand.Start.Weekday())
	if err != nil {
		return nil, err
	}
	rej, err := validateScheduleRules(sched, cand.Start, cand.DurationMinutes)
	if err != nil {
		return nil, err
	}
	if rej != nil {
		return rej, nil
	}

	candInterval := NewInterval(cand.Start, cand.DurationMinutes)

	conflict, err := findConflict(ctx, e.professionalWindow(cand.ProfessionalID), candInterval, cand.ExcludeAppointmentID)
	if err != nil {
		return nil, err
	}
	if conflict != nil && !cand.Force {
		return &Rejection{Reason: ReasonProfessionalConflict, ConflictID: conflict.ID}, nil
	}

	if cand.RoomID != "" {
		conflict, err = findConflict(ctx, e.roomWindow(cand.RoomID), candInterval, cand.ExcludeAppointmentID)
		if err != nil {
			return nil, err
		}
		if conflict != nil && !cand.Force {
			return &Rejection{Reason: ReasonRoomConflict, ConflictID: conflict.ID}, nil
		}
	}

	return nil, nil
}

func (e *Engine) professionalWindow(professionalID string) WindowQuery {
	return func(ctx context.Context, start, end time.Time) ([]model.Appointment, error) {
		return e.appointments.InWindowByProfessional(ctx, professionalID, start, end)
	}
}

func (e *Engine) roomWindow(roomID string) WindowQuery {
	return func(ctx context.Context, start, end time.Time) ([]model.Appointment, error) {
		return e.appointments.InWindowByRoom(ctx, roomID, start, end)
	}
}
