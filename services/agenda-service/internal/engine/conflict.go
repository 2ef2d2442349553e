package engine

import (
	"context"
	"time"

	"github.com/mv-carvalho/clinsched/services/agenda-service/internal/model"
)

// WindowQuery fetches the non-cancelled appointments whose interval intersects
// [start, end). The engine is handed one query scoped to a professional and,
// when a room is requested, another scoped to the room; the conflict scan is
// identical for both.
type WindowQuery func(ctx context.Context, start, end time.Time) ([]model.Appointment, error)

// Padding applied around the candidate when fetching potential conflicts.
// This bounds the result set rather than proving correctness: an appointment
// longer than searchPadBefore that started before the window opens would be
// missed. No clinic books multi-hour blocks near that limit today; a stricter
// bound would derive the padding from the longest appointment on record.
const (
	searchPadBefore = 8 * time.Hour
	searchPadAfter  = 1 * time.Hour
)

// findConflict returns the first fetched appointment overlapping the
// candidate, skipping the exclusion id (the appointment being edited, when
// re-validating an update). Nil means no conflict.
func findConflict(ctx context.Context, query WindowQuery, cand Interval, excludeID string) (*model.Appointment, error) {
	existing, err := query(ctx, cand.Start.Add(-searchPadBefore), cand.End.Add(searchPadAfter))
	if err != nil {
		return nil, err
	}
	for _, appt := range existing {
		if excludeID != "" && appt.ID == excludeID {
			continue
		}
		if cand.Overlaps(Interval{Start: appt.StartTime, End: appt.EndTime()}) {
			found := appt
			return &found, nil
		}
	}
	return nil, nil
}
