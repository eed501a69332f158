package schedule

import (
	"context"
	"strings"
	"time"

	"github.com/md-rashed-zaman/meetsched/internal/model"
)

// BuildOverlapSchedule builds userID's schedule in the attendee's timezone,
// then narrows each day to the slots that also fall inside the attendee's own
// availability windows. A weekday the attendee has declared no rule for is
// zeroed out entirely: nothing is offerable that day, so both slots and
// events are cleared.
func (s *Service) BuildOverlapSchedule(ctx context.Context, userID, attendeeID string, now time.Time) (model.Schedule, error) {
	attendee, err := s.loadSettings(ctx, attendeeID)
	if err != nil {
		return model.Schedule{}, err
	}

	sched, err := s.BuildSchedule(ctx, userID, attendee.Timezone, now)
	if err != nil {
		return model.Schedule{}, err
	}

	for i := range sched.Days {
		day := &sched.Days[i]
		rule := attendee.Rule(weekdayOf(day.Date))
		if rule == nil {
			day.Slots = nil
			day.Events = nil
			continue
		}
		var kept []string
		for _, slot := range day.Slots {
			if slotWithinRule(slot, rule) {
				kept = append(kept, slot)
			}
		}
		day.Slots = kept
	}
	return sched, nil
}

func weekdayOf(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return ""
	}
	return strings.ToLower(t.Weekday().String())
}

// slotWithinRule reports whether the slot start satisfies start <= slot < end
// for at least one of the rule's windows. Zero-padded "HH:MM" strings order
// lexicographically, so no clock parsing is needed. A slot matching several
// windows is kept once.
func slotWithinRule(slot string, rule *model.AvailabilityRule) bool {
	for _, hours := range rule.Hours {
		if hours[0] <= slot && slot < hours[1] {
			return true
		}
	}
	return false
}
