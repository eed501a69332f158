package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/meetsched/internal/model"
)

// BookEvent validates and persists a new meeting event. The event's declared
// start time must carry the same UTC offset the attendee's timezone has at
// that instant; otherwise the booking is rejected with ErrTimezoneMismatch
// and nothing is written. The stored start is normalized to UTC.
func (s *Service) BookEvent(ctx context.Context, event model.Event, now time.Time) error {
	attendee, err := s.loadSettings(ctx, event.AttendeeID)
	if err != nil {
		return err
	}
	loc, err := time.LoadLocation(attendee.Timezone)
	if err != nil {
		return fmt.Errorf("attendee timezone %q: %w", attendee.Timezone, err)
	}

	_, declared := event.StartTime.Zone()
	_, expected := event.StartTime.In(loc).Zone()
	if declared != expected {
		return ErrTimezoneMismatch
	}

	event.StartTime = event.StartTime.UTC()
	event.Status = model.StatusCreated
	event.CreatedAt = now.UTC()
	event.UpdatedAt = now.UTC()

	if err := s.events.SaveNew(ctx, event); err != nil {
		return fmt.Errorf("save event %s: %w", event.EventID, err)
	}
	return nil
}
