package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mv-carvalho/clinsched/libs/db"
	"github.com/mv-carvalho/clinsched/services/agenda-service/internal/model"
)

// ScheduleRepository reads and writes the weekly_schedules read model. The
// unique index on (professional_id, weekday) is what guarantees at most one
// template per professional per weekday.
type ScheduleRepository struct {
	pool *db.Pool
}

func NewScheduleRepository(pool *db.Pool) *ScheduleRepository {
	return &ScheduleRepository{pool: pool}
}

const scheduleColumns = `id, professional_id, weekday, work_start, work_end,
	COALESCE(lunch_start, ''), COALESCE(lunch_end, ''), slot_minutes, created_at, updated_at`

// GetForWeekday returns nil (and no error) when the professional has no
// template for the weekday, per the engine's ScheduleSource contract.
func (r *ScheduleRepository) GetForWeekday(ctx context.Context, professionalID string, weekday time.Weekday) (*model.WeeklySchedule, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+scheduleColumns+`
		FROM weekly_schedules
		WHERE professional_id = $1 AND weekday = $2
	`, professionalID, int(weekday))

	sched, err := scanSchedule(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sched, nil
}

func (r *ScheduleRepository) ListByProfessional(ctx context.Context, professionalID string) ([]model.WeeklySchedule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+scheduleColumns+`
		FROM weekly_schedules
		WHERE professional_id = $1
		ORDER BY weekday
	`, professionalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schedules []model.WeeklySchedule
	for rows.Next() {
		sched, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, sched)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return schedules, nil
}

// Upsert creates or replaces the weekday template. Used by both the admin API
// and the directory sync consumer; both validate invariants before calling.
func (r *ScheduleRepository) Upsert(ctx context.Context, sched model.WeeklySchedule) (string, error) {
	id := sched.ID
	if id == "" {
		id = uuid.NewString()
	}
	var lunchStart, lunchEnd *string
	if sched.HasLunch() {
		lunchStart = &sched.LunchStart
		lunchEnd = &sched.LunchEnd
	}

	err := r.pool.QueryRow(ctx, `
		INSERT INTO weekly_schedules
			(id, professional_id, weekday, work_start, work_end, lunch_start, lunch_end, slot_minutes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (professional_id, weekday) DO UPDATE
		SET work_start = EXCLUDED.work_start,
			work_end = EXCLUDED.work_end,
			lunch_start = EXCLUDED.lunch_start,
			lunch_end = EXCLUDED.lunch_end,
			slot_minutes = EXCLUDED.slot_minutes,
			updated_at = now()
		RETURNING id
	`, id, sched.ProfessionalID, int(sched.Weekday), sched.WorkStart, sched.WorkEnd,
		lunchStart, lunchEnd, sched.SlotMinutes).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *ScheduleRepository) Delete(ctx context.Context, professionalID string, weekday time.Weekday) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM weekly_schedules
		WHERE professional_id = $1 AND weekday = $2
	`, professionalID, int(weekday))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanSchedule(row pgx.Row) (model.WeeklySchedule, error) {
	var sched model.WeeklySchedule
	var weekday int
	err := row.Scan(
		&sched.ID,
		&sched.ProfessionalID,
		&weekday,
		&sched.WorkStart,
		&sched.WorkEnd,
		&sched.LunchStart,
		&sched.LunchEnd,
		&sched.SlotMinutes,
		&sched.CreatedAt,
		&sched.UpdatedAt,
	)
	if err != nil {
		return model.WeeklySchedule{}, err
	}
	sched.Weekday = time.Weekday(weekday)
	return sched, nil
}
