package handlers

import (
	"fmt"
	"regexp"
	"time"

	"github.com/md-rashed-zaman/meetsched/internal/model"
)

var userIDRx = regexp.MustCompile(`^[A-Za-z0-9_-]{1,10}$`)

func validUserID(id string) bool {
	return userIDRx.MatchString(id)
}

// validateDuration enforces the configured slot granularity: a positive
// multiple of minMinutes, no longer than maxMinutes.
func validateDuration(minutes, minMinutes, maxMinutes int) error {
	if minutes < minMinutes || minutes > maxMinutes {
		return fmt.Errorf("duration_minutes must be between %d and %d", minMinutes, maxMinutes)
	}
	if minutes%minMinutes != 0 {
		return fmt.Errorf("duration_minutes must be a multiple of %d", minMinutes)
	}
	return nil
}

func validateTimezone(name string) error {
	if name == "" {
		return fmt.Errorf("timezone is required")
	}
	if _, err := time.LoadLocation(name); err != nil {
		return fmt.Errorf("unknown timezone %q", name)
	}
	return nil
}

// validateRules checks weekday names, uniqueness, and that every window
// bound is a zero-padded 24-hour HH:MM clock string. Windows whose end
// precedes their start are valid: they wrap past midnight.
func validateRules(rules []model.AvailabilityRule) error {
	seen := make(map[string]bool, len(rules))
	for _, rule := range rules {
		if !model.IsWeekday(rule.Day) {
			return fmt.Errorf("invalid weekday %q", rule.Day)
		}
		if seen[rule.Day] {
			return fmt.Errorf("duplicate rule for %s", rule.Day)
		}
		seen[rule.Day] = true
		for _, hours := range rule.Hours {
			for _, clock := range hours {
				if err := validateClock(clock); err != nil {
					return fmt.Errorf("rule for %s: %w", rule.Day, err)
				}
			}
		}
	}
	return nil
}

func validateClock(clock string) error {
	if len(clock) != 5 {
		return fmt.Errorf("invalid time %q (expected HH:MM)", clock)
	}
	if _, err := time.Parse("15:04", clock); err != nil {
		return fmt.Errorf("invalid time %q (expected HH:MM)", clock)
	}
	return nil
}
