package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mv-carvalho/clinsched/libs/db"
	"github.com/mv-carvalho/clinsched/services/agenda-service/internal/model"
)

// AppointmentRepository is the engine's read source for existing appointments
// and the write store for booking mutations. Every read excludes cancelled
// appointments; the SQL overlap predicate mirrors the engine's half-open
// interval rule (start < windowEnd AND end > windowStart).
type AppointmentRepository struct {
	pool *db.Pool
}

func NewAppointmentRepository(pool *db.Pool) *AppointmentRepository {
	return &AppointmentRepository{pool: pool}
}

func (r *AppointmentRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

const appointmentColumns = `id, professional_id, COALESCE(room_id, ''), patient_name,
	COALESCE(patient_contact, ''), start_time, duration_minutes, status,
	cancelled_at, COALESCE(cancel_reason, ''), created_at`

const windowPredicate = `status <> 'cancelled'
			AND start_time < $3
			AND start_time + make_interval(mins => duration_minutes) > $2`

func (r *AppointmentRepository) InWindowByProfessional(ctx context.Context, professionalID string, start, end time.Time) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE professional_id = $1
			AND `+windowPredicate+`
		ORDER BY start_time
	`, professionalID, start, end)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *AppointmentRepository) InWindowByRoom(ctx context.Context, roomID string, start, end time.Time) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE room_id = $1
			AND `+windowPredicate+`
		ORDER BY start_time
	`, roomID, start, end)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

// OnDateByProfessional fetches one calendar day in the date's own location.
func (r *AppointmentRepository) OnDateByProfessional(ctx context.Context, professionalID string, day time.Time) ([]model.Appointment, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return r.InWindowByProfessional(ctx, professionalID, dayStart, dayStart.AddDate(0, 0, 1))
}

func (r *AppointmentRepository) ListByProfessional(ctx context.Context, professionalID string, limit int) ([]model.Appointment, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE professional_id = $1
		ORDER BY start_time DESC
		LIMIT $2
	`, professionalID, limit)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *AppointmentRepository) Create(ctx context.Context, tx pgx.Tx, appt *model.Appointment) (string, error) {
	id := uuid.NewString()
	var roomID *string
	if appt.RoomID != "" {
		roomID = &appt.RoomID
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO appointments
			(id, professional_id, room_id, patient_name, patient_contact, start_time, duration_minutes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, id, appt.ProfessionalID, roomID, appt.PatientName, appt.PatientContact,
		appt.StartTime, appt.DurationMinutes, string(appt.Status))
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *AppointmentRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, appointmentID string) (model.Appointment, error) {
	row := tx.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
		FOR UPDATE
	`, appointmentID)
	return scanAppointment(row)
}

// Reschedule moves a live appointment to a new interval (and room).
func (r *AppointmentRepository) Reschedule(ctx context.Context, tx pgx.Tx, appointmentID string, start time.Time, durationMinutes int, roomID string) error {
	var room *string
	if roomID != "" {
		room = &roomID
	}
	tag, err := tx.Exec(ctx, `
		UPDATE appointments
		SET start_time = $2,
			duration_minutes = $3,
			room_id = $4
		WHERE id = $1 AND status = 'scheduled'
	`, appointmentID, start, durationMinutes, room)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *AppointmentRepository) Cancel(ctx context.Context, tx pgx.Tx, appointmentID, reason string) (time.Time, error) {
	var cancelledAt time.Time
	err := tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'cancelled',
			cancelled_at = now(),
			cancel_reason = $2
		WHERE id = $1
		RETURNING cancelled_at
	`, appointmentID, reason).Scan(&cancelledAt)
	return cancelledAt, err
}

// LockProfessional takes a transaction-scoped advisory lock serializing all
// validate-then-write sequences for one professional. The engine itself never
// serializes; without this lock two concurrent bookings can both pass the
// conflict check and both insert.
func (r *AppointmentRepository) LockProfessional(ctx context.Context, tx pgx.Tx, professionalID string) error {
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext('professional:' || $1::text))`, professionalID)
	return err
}

// LockRoom is the room-dimension counterpart of LockProfessional.
func (r *AppointmentRepository) LockRoom(ctx context.Context, tx pgx.Tx, roomID string) error {
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext('room:' || $1::text))`, roomID)
	return err
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && (pgErr.Code == "23505" || pgErr.Code == "23P01")
}

func collectAppointments(rows pgx.Rows) ([]model.Appointment, error) {
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var appt model.Appointment
	var status string
	var cancelledAt *time.Time
	err := row.Scan(
		&appt.ID,
		&appt.ProfessionalID,
		&appt.RoomID,
		&appt.PatientName,
		&appt.PatientContact,
		&appt.StartTime,
		&appt.DurationMinutes,
		&status,
		&cancelledAt,
		&appt.CancelReason,
		&appt.CreatedAt,
	)
	if err != nil {
		return model.Appointment{}, err
	}
	appt.Status = model.AppointmentStatus(status)
	appt.CancelledAt = cancelledAt
	return appt, nil
}
