package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	// Named zones must resolve even without a system zoneinfo database.
	_ "time/tzdata"

	"github.com/md-rashed-zaman/meetsched/internal/model"
)

var errFakeNotFound = errors.New("settings not found")

type fakeSettingsStore struct {
	byUser map[string]model.UserSettings
	saved  []model.UserSettings
}

func (f *fakeSettingsStore) Get(_ context.Context, userID string) (model.UserSettings, error) {
	s, ok := f.byUser[userID]
	if !ok {
		return model.UserSettings{}, errFakeNotFound
	}
	return s, nil
}

func (f *fakeSettingsStore) Upsert(_ context.Context, settings model.UserSettings) error {
	f.saved = append(f.saved, settings)
	return nil
}

func (f *fakeSettingsStore) IsNotFound(err error) bool {
	return errors.Is(err, errFakeNotFound)
}

type fakeEventStore struct {
	byUser map[string][]model.Event
	saved  []model.Event
}

func (f *fakeEventStore) ListCreatedForUser(_ context.Context, userID string) ([]model.Event, error) {
	return f.byUser[userID], nil
}

func (f *fakeEventStore) SaveNew(_ context.Context, event model.Event) error {
	f.saved = append(f.saved, event)
	return nil
}

// 2026-03-02 is a Monday.
var monday8am = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func newTestService(settings map[string]model.UserSettings, events map[string][]model.Event) (*Service, *fakeEventStore) {
	es := &fakeEventStore{byUser: events}
	return NewService(&fakeSettingsStore{byUser: settings}, es), es
}

func utcSettings(userID string, lookahead int, rules ...model.AvailabilityRule) model.UserSettings {
	return model.UserSettings{
		UserID:           userID,
		DurationMinutes:  30,
		Timezone:         "UTC",
		MaxLookaheadDays: lookahead,
		Rules:            rules,
	}
}

func TestBuildSchedule_MondayMorning(t *testing.T) {
	svc, _ := newTestService(map[string]model.UserSettings{
		"alice": utcSettings("alice", 2, model.AvailabilityRule{Day: "monday", Hours: [][2]string{{"09:00", "10:00"}}}),
	}, nil)

	sched, err := svc.BuildSchedule(context.Background(), "alice", "", monday8am)
	if err != nil {
		t.Fatalf("BuildSchedule failed: %v", err)
	}
	if sched.Timezone != "UTC" || sched.DurationMinutes != 30 {
		t.Fatalf("unexpected schedule header: %+v", sched)
	}
	if len(sched.Days) != 2 {
		t.Fatalf("expected 2 days, got %d", len(sched.Days))
	}
	if got := sched.Days[0].Slots; len(got) != 2 || got[0] != "09:00" || got[1] != "09:30" {
		t.Fatalf("expected [09:00 09:30], got %v", got)
	}
	// Tuesday has no rule.
	if len(sched.Days[1].Slots) != 0 {
		t.Fatalf("expected no slots on tuesday, got %v", sched.Days[1].Slots)
	}
}

func TestBuildSchedule_BookedEventConflicts(t *testing.T) {
	svc, _ := newTestService(map[string]model.UserSettings{
		"alice": utcSettings("alice", 1, model.AvailabilityRule{Day: "monday", Hours: [][2]string{{"09:00", "10:00"}}}),
	}, map[string][]model.Event{
		"alice": {{
			EventID:     "e1",
			OrganizerID: "alice",
			AttendeeID:  "bob",
			StartTime:   time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
			Status:      model.StatusCreated,
		}},
	})

	sched, err := svc.BuildSchedule(context.Background(), "alice", "", monday8am)
	if err != nil {
		t.Fatalf("BuildSchedule failed: %v", err)
	}
	day := sched.Days[0]
	if len(day.Slots) != 1 || day.Slots[0] != "09:30" {
		t.Fatalf("expected [09:30], got %v", day.Slots)
	}
	if len(day.Events) != 1 || day.Events[0].EventID != "e1" {
		t.Fatalf("expected the booked event on the day, got %v", day.Events)
	}
}

func TestBuildSchedule_OvernightWindow(t *testing.T) {
	svc, _ := newTestService(map[string]model.UserSettings{
		"alice": utcSettings("alice", 1, model.AvailabilityRule{Day: "monday", Hours: [][2]string{{"23:00", "00:30"}}}),
	}, nil)

	sched, err := svc.BuildSchedule(context.Background(), "alice", "", monday8am)
	if err != nil {
		t.Fatalf("BuildSchedule failed: %v", err)
	}
	want := []string{"23:00", "23:30", "00:00"}
	got := sched.Days[0].Slots
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestBuildSchedule_LookaheadWindow(t *testing.T) {
	svc, _ := newTestService(map[string]model.UserSettings{
		"alice": utcSettings("alice", 7),
	}, nil)

	sched, err := svc.BuildSchedule(context.Background(), "alice", "", monday8am)
	if err != nil {
		t.Fatalf("BuildSchedule failed: %v", err)
	}
	if len(sched.Days) != 7 {
		t.Fatalf("expected 7 days, got %d", len(sched.Days))
	}
	for i, day := range sched.Days {
		want := monday8am.AddDate(0, 0, i).Format("2006-01-02")
		if day.Date != want {
			t.Fatalf("day %d: expected %s, got %s", i, want, day.Date)
		}
	}
}

func TestBuildSchedule_EventOnDayWithoutRule(t *testing.T) {
	// Out-of-policy booking on a weekday with no availability rule: the day
	// has no slots but still reports the event.
	svc, _ := newTestService(map[string]model.UserSettings{
		"alice": utcSettings("alice", 2, model.AvailabilityRule{Day: "monday", Hours: [][2]string{{"09:00", "10:00"}}}),
	}, map[string][]model.Event{
		"alice": {{
			EventID:   "e1",
			StartTime: time.Date(2026, 3, 3, 14, 0, 0, 0, time.UTC),
			Status:    model.StatusCreated,
		}},
	})

	sched, err := svc.BuildSchedule(context.Background(), "alice", "", monday8am)
	if err != nil {
		t.Fatalf("BuildSchedule failed: %v", err)
	}
	tuesday := sched.Days[1]
	if len(tuesday.Slots) != 0 {
		t.Fatalf("expected no slots, got %v", tuesday.Slots)
	}
	if len(tuesday.Events) != 1 {
		t.Fatalf("expected the event to be reported, got %v", tuesday.Events)
	}
}

func TestBuildSchedule_TargetTimezoneConversion(t *testing.T) {
	svc, _ := newTestService(map[string]model.UserSettings{
		"alice": utcSettings("alice", 1, model.AvailabilityRule{Day: "monday", Hours: [][2]string{{"09:00", "10:00"}}}),
	}, nil)

	// 2026-03-02 is before the US DST switch: New York is UTC-5.
	sched, err := svc.BuildSchedule(context.Background(), "alice", "America/New_York", monday8am)
	if err != nil {
		t.Fatalf("BuildSchedule failed: %v", err)
	}
	if sched.Timezone != "America/New_York" {
		t.Fatalf("expected target timezone in header, got %s", sched.Timezone)
	}
	got := sched.Days[0].Slots
	if len(got) != 2 || got[0] != "04:00" || got[1] != "04:30" {
		t.Fatalf("expected [04:00 04:30], got %v", got)
	}
}

func TestBuildSchedule_UnknownUser(t *testing.T) {
	svc, _ := newTestService(nil, nil)
	_, err := svc.BuildSchedule(context.Background(), "ghost", "", monday8am)
	if !errors.Is(err, ErrSettingsNotFound) {
		t.Fatalf("expected ErrSettingsNotFound, got %v", err)
	}
}

func TestBuildOverlapSchedule(t *testing.T) {
	svc, _ := newTestService(map[string]model.UserSettings{
		"alice": utcSettings("alice", 1, model.AvailabilityRule{Day: "monday", Hours: [][2]string{{"09:00", "10:30"}}}),
		"bob":   utcSettings("bob", 1, model.AvailabilityRule{Day: "monday", Hours: [][2]string{{"09:30", "10:00"}}}),
	}, nil)

	sched, err := svc.BuildOverlapSchedule(context.Background(), "alice", "bob", monday8am)
	if err != nil {
		t.Fatalf("BuildOverlapSchedule failed: %v", err)
	}
	got := sched.Days[0].Slots
	if len(got) != 1 || got[0] != "09:30" {
		t.Fatalf("expected [09:30], got %v", got)
	}
}

func TestBuildOverlapSchedule_NoAttendeeRuleClearsDay(t *testing.T) {
	svc, _ := newTestService(map[string]model.UserSettings{
		"alice": utcSettings("alice", 1, model.AvailabilityRule{Day: "monday", Hours: [][2]string{{"09:00", "10:00"}}}),
		"bob":   utcSettings("bob", 1, model.AvailabilityRule{Day: "friday", Hours: [][2]string{{"09:00", "10:00"}}}),
	}, map[string][]model.Event{
		"alice": {{
			EventID:   "e1",
			StartTime: time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC),
			Status:    model.StatusCreated,
		}},
	})

	sched, err := svc.BuildOverlapSchedule(context.Background(), "alice", "bob", monday8am)
	if err != nil {
		t.Fatalf("BuildOverlapSchedule failed: %v", err)
	}
	day := sched.Days[0]
	if len(day.Slots) != 0 || len(day.Events) != 0 {
		t.Fatalf("expected the day to be cleared, got slots=%v events=%v", day.Slots, day.Events)
	}
}

func TestBuildOverlapSchedule_SlotInSeveralWindowsKeptOnce(t *testing.T) {
	svc, _ := newTestService(map[string]model.UserSettings{
		"alice": utcSettings("alice", 1, model.AvailabilityRule{Day: "monday", Hours: [][2]string{{"09:00", "10:00"}}}),
		"bob": utcSettings("bob", 1, model.AvailabilityRule{Day: "monday", Hours: [][2]string{
			{"08:00", "10:00"},
			{"09:00", "11:00"},
		}}),
	}, nil)

	sched, err := svc.BuildOverlapSchedule(context.Background(), "alice", "bob", monday8am)
	if err != nil {
		t.Fatalf("BuildOverlapSchedule failed: %v", err)
	}
	got := sched.Days[0].Slots
	if len(got) != 2 || got[0] != "09:00" || got[1] != "09:30" {
		t.Fatalf("expected each slot once, got %v", got)
	}
}

func TestBuildOverlapSchedule_NeverOutsideAttendeeWindows(t *testing.T) {
	svc, _ := newTestService(map[string]model.UserSettings{
		"alice": utcSettings("alice", 7, model.AvailabilityRule{Day: "monday", Hours: [][2]string{{"00:00", "23:30"}}}),
		"bob":   utcSettings("bob", 7, model.AvailabilityRule{Day: "monday", Hours: [][2]string{{"10:00", "12:00"}}}),
	}, nil)

	sched, err := svc.BuildOverlapSchedule(context.Background(), "alice", "bob", monday8am)
	if err != nil {
		t.Fatalf("BuildOverlapSchedule failed: %v", err)
	}
	for _, day := range sched.Days {
		for _, slot := range day.Slots {
			if slot < "10:00" || slot >= "12:00" {
				t.Fatalf("slot %s on %s is outside the attendee windows", slot, day.Date)
			}
		}
	}
}

func TestBookEvent(t *testing.T) {
	svc, events := newTestService(map[string]model.UserSettings{
		"bob": utcSettings("bob", 1),
	}, nil)

	ev := model.Event{
		EventID:         "11111111-2222-3333-4444-555555555555",
		OrganizerID:     "alice",
		AttendeeID:      "bob",
		StartTime:       time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		DurationMinutes: 30,
	}
	if err := svc.BookEvent(context.Background(), ev, monday8am); err != nil {
		t.Fatalf("BookEvent failed: %v", err)
	}
	if len(events.saved) != 1 {
		t.Fatalf("expected 1 saved event, got %d", len(events.saved))
	}
	saved := events.saved[0]
	if saved.Status != model.StatusCreated {
		t.Fatalf("expected status created, got %s", saved.Status)
	}
	if !saved.CreatedAt.Equal(monday8am) || !saved.UpdatedAt.Equal(monday8am) {
		t.Fatalf("expected stamps from the injected now, got %v / %v", saved.CreatedAt, saved.UpdatedAt)
	}
}

func TestBookEvent_TimezoneMismatch(t *testing.T) {
	svc, events := newTestService(map[string]model.UserSettings{
		"bob": utcSettings("bob", 1),
	}, nil)

	ev := model.Event{
		EventID:    "11111111-2222-3333-4444-555555555555",
		AttendeeID: "bob",
		StartTime:  time.Date(2026, 3, 2, 9, 0, 0, 0, time.FixedZone("", 6*3600)),
	}
	err := svc.BookEvent(context.Background(), ev, monday8am)
	if !errors.Is(err, ErrTimezoneMismatch) {
		t.Fatalf("expected ErrTimezoneMismatch, got %v", err)
	}
	if !IsDomainError(err) {
		t.Fatal("expected a domain error")
	}
	if len(events.saved) != 0 {
		t.Fatal("rejected booking must not be persisted")
	}
}

func TestBookEvent_NormalizesStartToUTC(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	svc, events := newTestService(map[string]model.UserSettings{
		"bob": {
			UserID:           "bob",
			DurationMinutes:  30,
			Timezone:         "America/New_York",
			MaxLookaheadDays: 1,
		},
	}, nil)

	start := time.Date(2026, 3, 2, 9, 0, 0, 0, ny)
	ev := model.Event{EventID: "e1", AttendeeID: "bob", StartTime: start}
	if err := svc.BookEvent(context.Background(), ev, monday8am); err != nil {
		t.Fatalf("BookEvent failed: %v", err)
	}
	saved := events.saved[0]
	if saved.StartTime.Location() != time.UTC {
		t.Fatalf("expected UTC storage, got %s", saved.StartTime.Location())
	}
	if !saved.StartTime.Equal(start) {
		t.Fatal("normalization must not change the instant")
	}
}

func TestUpdateSettings_StampsUpdatedAt(t *testing.T) {
	store := &fakeSettingsStore{byUser: map[string]model.UserSettings{}}
	svc := NewService(store, &fakeEventStore{})

	if err := svc.UpdateSettings(context.Background(), utcSettings("alice", 7), monday8am); err != nil {
		t.Fatalf("UpdateSettings failed: %v", err)
	}
	if len(store.saved) != 1 || !store.saved[0].UpdatedAt.Equal(monday8am) {
		t.Fatalf("expected settings saved with the injected now, got %+v", store.saved)
	}
}
