package schedule

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/md-rashed-zaman/meetsched/internal/availability"
	"github.com/md-rashed-zaman/meetsched/internal/model"
)

// ErrSettingsNotFound is returned when a referenced user has no stored
// schedule settings.
var ErrSettingsNotFound = errors.New("user settings not found")

// ErrTimezoneMismatch rejects a booking whose start time's UTC offset does
// not match the attendee's configured timezone at that instant.
var ErrTimezoneMismatch = errors.New("start time does not match the attendee timezone")

// IsDomainError reports whether err is a booking rule violation rather than
// an infrastructure failure.
func IsDomainError(err error) bool {
	return errors.Is(err, ErrTimezoneMismatch)
}

// SettingsStore loads and persists per-user schedule settings.
type SettingsStore interface {
	Get(ctx context.Context, userID string) (model.UserSettings, error)
	Upsert(ctx context.Context, settings model.UserSettings) error
	IsNotFound(err error) bool
}

// EventStore loads a user's active events and persists new bookings.
type EventStore interface {
	ListCreatedForUser(ctx context.Context, userID string) ([]model.Event, error)
	SaveNew(ctx context.Context, event model.Event) error
}

// Service is the slot-generation and overlap-computation engine. It is pure
// computation over data fetched from the injected stores: every build runs
// against an explicit now, holds no state between calls, and is safe for
// concurrent use.
type Service struct {
	settings  SettingsStore
	events    EventStore
	newFilter func(slot time.Duration) availability.ConflictFilter
}

func NewService(settings SettingsStore, events EventStore) *Service {
	return &Service{
		settings: settings,
		events:   events,
		newFilter: func(slot time.Duration) availability.ConflictFilter {
			return availability.StartProximity{Slot: slot}
		},
	}
}

// WithConflictFilter overrides the default start-proximity conflict check.
func (s *Service) WithConflictFilter(f func(slot time.Duration) availability.ConflictFilter) *Service {
	s.newFilter = f
	return s
}

func (s *Service) loadSettings(ctx context.Context, userID string) (model.UserSettings, error) {
	settings, err := s.settings.Get(ctx, userID)
	if err != nil {
		if s.settings.IsNotFound(err) {
			return model.UserSettings{}, fmt.Errorf("user %s: %w", userID, ErrSettingsNotFound)
		}
		return model.UserSettings{}, fmt.Errorf("load settings for %s: %w", userID, err)
	}
	return settings, nil
}

// Settings returns the stored schedule settings for userID.
func (s *Service) Settings(ctx context.Context, userID string) (model.UserSettings, error) {
	return s.loadSettings(ctx, userID)
}

// UpdateSettings persists the given settings with a fresh update stamp. The
// lookahead window is not writable through this path and keeps its stored or
// default value.
func (s *Service) UpdateSettings(ctx context.Context, settings model.UserSettings, now time.Time) error {
	settings.UpdatedAt = now.UTC()
	if err := s.settings.Upsert(ctx, settings); err != nil {
		return fmt.Errorf("save settings for %s: %w", settings.UserID, err)
	}
	return nil
}

// BuildSchedule computes userID's free slots and events for the lookahead
// window starting at now's date in the target timezone. An empty targetTZ
// defaults to the user's own timezone.
func (s *Service) BuildSchedule(ctx context.Context, userID, targetTZ string, now time.Time) (model.Schedule, error) {
	settings, err := s.loadSettings(ctx, userID)
	if err != nil {
		return model.Schedule{}, err
	}
	if targetTZ == "" {
		targetTZ = settings.Timezone
	}
	target, err := time.LoadLocation(targetTZ)
	if err != nil {
		return model.Schedule{}, fmt.Errorf("target timezone %q: %w", targetTZ, err)
	}

	events, err := s.events.ListCreatedForUser(ctx, userID)
	if err != nil {
		return model.Schedule{}, fmt.Errorf("load events for %s: %w", userID, err)
	}
	byDate := groupEventsByDate(events, target)

	days, err := s.buildDays(settings, target, byDate, now)
	if err != nil {
		return model.Schedule{}, err
	}
	return model.Schedule{
		UserID:          userID,
		DurationMinutes: settings.DurationMinutes,
		Timezone:        targetTZ,
		Days:            days,
	}, nil
}

// groupEventsByDate shifts each event's start into the target timezone and
// buckets the events by their target-local calendar date. The shifted starts
// live on copies; repository rows are never mutated.
func groupEventsByDate(events []model.Event, target *time.Location) map[string][]model.Event {
	byDate := make(map[string][]model.Event, len(events))
	for _, e := range events {
		e.StartTime = e.StartTime.In(target)
		date := e.StartTime.Format("2006-01-02")
		byDate[date] = append(byDate[date], e)
	}
	return byDate
}

func (s *Service) buildDays(settings model.UserSettings, target *time.Location, byDate map[string][]model.Event, now time.Time) ([]model.DaySchedule, error) {
	home, err := time.LoadLocation(settings.Timezone)
	if err != nil {
		return nil, fmt.Errorf("user timezone %q: %w", settings.Timezone, err)
	}

	slot := time.Duration(settings.DurationMinutes) * time.Minute
	filter := s.newFilter(slot)

	start := now.In(target)
	days := make([]model.DaySchedule, 0, settings.MaxLookaheadDays)
	for i := 0; i < settings.MaxLookaheadDays; i++ {
		day := start.AddDate(0, 0, i)
		date := day.Format("2006-01-02")
		built, err := buildDay(day, settings, home, target, slot, filter, byDate[date])
		if err != nil {
			return nil, err
		}
		days = append(days, built)
	}
	return days, nil
}

// buildDay resolves the weekday's availability rule and produces the day's
// free slots. A day without a rule has no slots but still reports its events;
// bookings outside declared availability are out-of-policy, not errors.
func buildDay(day time.Time, settings model.UserSettings, home, target *time.Location, slot time.Duration, filter availability.ConflictFilter, events []model.Event) (model.DaySchedule, error) {
	out := model.DaySchedule{
		Date:   day.Format("2006-01-02"),
		Events: events,
	}

	rule := settings.Rule(strings.ToLower(day.Weekday().String()))
	if rule == nil {
		return out, nil
	}

	booked := make([]time.Time, 0, len(events))
	for _, e := range events {
		booked = append(booked, e.StartTime)
	}

	for _, hours := range rule.Hours {
		winStart, winEnd, err := anchorWindow(hours, day, home)
		if err != nil {
			return model.DaySchedule{}, err
		}
		for _, c := range availability.CandidateStarts(winStart.In(target), winEnd.In(target), slot) {
			if filter.Free(c, booked) {
				out.Slots = append(out.Slots, c.In(target).Format("15:04"))
			}
		}
	}
	return out, nil
}

// anchorWindow pins an availability window's clock times to the given
// calendar day in the user's home timezone.
func anchorWindow(hours [2]string, day time.Time, home *time.Location) (time.Time, time.Time, error) {
	start, err := anchorClock(hours[0], day, home)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := anchorClock(hours[1], day, home)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func anchorClock(clock string, day time.Time, home *time.Location) (time.Time, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("availability time %q: %w", clock, err)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, home), nil
}
