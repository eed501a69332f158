package handlers

import (
	"io"
	"log/slog"
	"testing"

	// Named zones must resolve even without a system zoneinfo database.
	_ "time/tzdata"

	"github.com/md-rashed-zaman/meetsched/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestValidUserID(t *testing.T) {
	for _, id := range []string{"alice", "u_1-B", "0123456789"} {
		if !validUserID(id) {
			t.Fatalf("expected %q to be valid", id)
		}
	}
	for _, id := range []string{"", "way-too-long-id", "has space", "semi;colon"} {
		if validUserID(id) {
			t.Fatalf("expected %q to be invalid", id)
		}
	}
}

func TestValidateDuration(t *testing.T) {
	if err := validateDuration(30, 15, 480); err != nil {
		t.Fatalf("expected 30 to be valid: %v", err)
	}
	if err := validateDuration(480, 15, 480); err != nil {
		t.Fatalf("expected 480 to be valid: %v", err)
	}
	for _, mins := range []int{0, -30, 10, 25, 495} {
		if err := validateDuration(mins, 15, 480); err == nil {
			t.Fatalf("expected %d to be invalid", mins)
		}
	}
}

func TestValidateRules(t *testing.T) {
	ok := []model.AvailabilityRule{
		{Day: "monday", Hours: [][2]string{{"09:00", "17:00"}}},
		{Day: "tuesday", Hours: [][2]string{{"23:30", "00:30"}}}, // wraps midnight
	}
	if err := validateRules(ok); err != nil {
		t.Fatalf("expected rules to be valid: %v", err)
	}

	bad := [][]model.AvailabilityRule{
		{{Day: "Monday", Hours: nil}},
		{{Day: "someday", Hours: nil}},
		{{Day: "monday", Hours: [][2]string{{"9:00", "10:00"}}}},
		{{Day: "monday", Hours: [][2]string{{"09:00", "24:00"}}}},
		{{Day: "monday"}, {Day: "monday"}},
	}
	for i, rules := range bad {
		if err := validateRules(rules); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}

func TestValidateTimezone(t *testing.T) {
	if err := validateTimezone("UTC"); err != nil {
		t.Fatalf("expected UTC to be valid: %v", err)
	}
	if err := validateTimezone("America/New_York"); err != nil {
		t.Fatalf("expected America/New_York to be valid: %v", err)
	}
	for _, tz := range []string{"", "Mars/Olympus"} {
		if err := validateTimezone(tz); err == nil {
			t.Fatalf("expected %q to be invalid", tz)
		}
	}
}
