package engine

import "time"

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// NewInterval builds the half-open interval starting at start and spanning
// the given number of minutes.
func NewInterval(start time.Time, minutes int) Interval {
	return Interval{Start: start, End: start.Add(time.Duration(minutes) * time.Minute)}
}

// Overlaps reports whether two half-open intervals intersect. Touching
// endpoints do not overlap, which is what makes back-to-back bookings legal.
// Every overlap decision in the engine goes through this method so the
// tie-break rule is applied in exactly one place.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}
