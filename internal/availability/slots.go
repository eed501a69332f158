package availability

import "time"

// TimeDifference returns the span between two instants of the same calendar
// day. When end falls before start the window is treated as crossing midnight
// (e.g. 23:30-00:30) and end is shifted a day forward before subtracting.
func TimeDifference(start, end time.Time) time.Duration {
	if end.Before(start) {
		end = end.Add(24 * time.Hour)
	}
	return end.Sub(start)
}

// CandidateStarts returns the start instants of fixed-width slots packed into
// [start, end), beginning at start and stepping by slot. A trailing remainder
// shorter than slot is dropped; no partial slots are emitted.
func CandidateStarts(start, end time.Time, slot time.Duration) []time.Time {
	if slot <= 0 {
		return nil
	}
	count := int(TimeDifference(start, end) / slot)
	if count <= 0 {
		return nil
	}
	starts := make([]time.Time, 0, count)
	for i := 0; i < count; i++ {
		starts = append(starts, start.Add(time.Duration(i)*slot))
	}
	return starts
}

// ConflictFilter decides whether a candidate slot start is free against the
// start times of already-booked events.
type ConflictFilter interface {
	Free(candidate time.Time, booked []time.Time) bool
}

// StartProximity marks a candidate free when every booked start is at least
// Slot away from it, in either direction. It assumes every event shares the
// candidate's fixed width and never inspects a booked event's own duration,
// so a longer booked event can leave nearby slots marked free. Callers that
// need true interval overlap can swap in a different ConflictFilter.
type StartProximity struct {
	Slot time.Duration
}

func (f StartProximity) Free(candidate time.Time, booked []time.Time) bool {
	for _, b := range booked {
		diff := candidate.Sub(b)
		if diff < 0 {
			diff = -diff
		}
		if diff < f.Slot {
			return false
		}
	}
	return true
}
