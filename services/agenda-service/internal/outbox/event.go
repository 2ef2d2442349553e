package outbox

// Domain events emitted by the agenda service. Topic name equals event type.
const (
	EventAppointmentBooked      = "agenda.appointment.booked.v1"
	EventAppointmentRescheduled = "agenda.appointment.rescheduled.v1"
	EventAppointmentCancelled   = "agenda.appointment.cancelled.v1"
)

// Event is the envelope written to the outbox table in the same transaction
// as the appointment mutation it describes.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}
