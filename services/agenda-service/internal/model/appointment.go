package model

import "time"

type AppointmentStatus string

const (
	StatusScheduled  AppointmentStatus = "scheduled"
	StatusInProgress AppointmentStatus = "in_progress"
	StatusFinished   AppointmentStatus = "finished"
	StatusCancelled  AppointmentStatus = "cancelled"
)

type Appointment struct {
	ID              string
	ProfessionalID  string
	RoomID          string // empty when the booking has no room attached
	PatientName     string
	PatientContact  string
	StartTime       time.Time
	DurationMinutes int
	Status          AppointmentStatus
	CancelledAt     *time.Time
	CancelReason    string
	CreatedAt       time.Time
}

// EndTime is the exclusive end of the appointment's half-open interval.
func (a Appointment) EndTime() time.Time {
	return a.StartTime.Add(time.Duration(a.DurationMinutes) * time.Minute)
}
