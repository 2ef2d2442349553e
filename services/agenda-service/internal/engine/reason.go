package engine

// Reason identifies why a booking candidate was refused.
type Reason string

const (
	ReasonNoScheduleForWeekday Reason = "no_schedule_for_weekday"
	ReasonOutsideWorkHours     Reason = "outside_work_hours"
	ReasonInLunchBreak         Reason = "in_lunch_break"
	ReasonInvalidSlotDuration  Reason = "invalid_slot_duration"
	ReasonProfessionalConflict Reason = "professional_conflict"
	ReasonRoomConflict         Reason = "room_conflict"
)

// Rejection is a typed refusal. It is a value, not a Go error: every Reason is
// an expected, recoverable outcome the caller turns into a user-facing
// message. Store failures surface as plain errors instead.
type Rejection struct {
	Reason Reason
	// ConflictID is the id of the colliding appointment, set for the two
	// conflict reasons only.
	ConflictID string
}
