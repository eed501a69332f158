package model

import "time"

// Status is the lifecycle state of a booked event. Only StatusCreated
// participates in conflict checks; the other states keep history around.
type Status string

const (
	StatusCreated   Status = "created"
	StatusHappened  Status = "happened"
	StatusCancelled Status = "cancelled"
	StatusDeclined  Status = "declined"
)

// Weekdays in the canonical lowercase form used by availability rules.
var Weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

func IsWeekday(name string) bool {
	for _, d := range Weekdays {
		if d == name {
			return true
		}
	}
	return false
}

// AvailabilityRule is one weekday's open meeting windows. Hours holds ordered
// [start, end] pairs of 24-hour "HH:MM" clock strings; end < start means the
// window wraps past midnight into the next day.
type AvailabilityRule struct {
	Day   string
	Hours [][2]string
}

// UserSettings drives slot generation for one user. A user has at most one
// rule per weekday; rules are an unordered set keyed by Day.
type UserSettings struct {
	UserID           string
	DurationMinutes  int
	Timezone         string
	MaxLookaheadDays int
	Rules            []AvailabilityRule
	UpdatedAt        time.Time
}

// Rule returns the rule for the given lowercase weekday name, or nil.
func (s UserSettings) Rule(weekday string) *AvailabilityRule {
	for i := range s.Rules {
		if s.Rules[i].Day == weekday {
			return &s.Rules[i]
		}
	}
	return nil
}

// Event is a booked meeting between an organizer and an attendee. StartTime is
// stored in UTC; schedule building converts it into the target timezone on a
// copy, never on the stored record.
type Event struct {
	EventID         string
	OrganizerID     string
	AttendeeID      string
	StartTime       time.Time
	DurationMinutes int
	Notes           string
	Status          Status
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// DaySchedule is one calendar day of a schedule: free slot starts as
// target-local "HH:MM" strings in ascending order, plus that day's events.
type DaySchedule struct {
	Date   string
	Slots  []string
	Events []Event
}

// Schedule is the engine's primary output: MaxLookaheadDays consecutive days
// starting from the invocation date, in the requested timezone.
type Schedule struct {
	UserID          string
	DurationMinutes int
	Timezone        string
	Days            []DaySchedule
}
