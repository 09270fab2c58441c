// Package timeslot models the weekly booking timeline at minute
// granularity. Days run Mon(0)..Sun(6); a slot is the half-open minute
// interval [StartMin, EndMin) on one day and never crosses midnight.
package timeslot

import (
	"errors"
	"fmt"
	"strings"
)

const (
	MinutesPerDay = 24 * 60
	DaysPerWeek   = 7
)

var (
	ErrBadSlot  = errors.New("timeslot: bad slot")
	ErrCrossDay = errors.New("timeslot: shifted slot would cross a day boundary")
	ErrBadDay   = errors.New("timeslot: bad day name")
	ErrBadHM    = errors.New("timeslot: bad HH:MM")
)

var dayNames = [DaysPerWeek]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// Slot is one contiguous booking interval within a single day.
type Slot struct {
	Day      int
	StartMin int // inclusive
	EndMin   int // exclusive
}

// New validates the slot constraints and returns the slot.
func New(day, startMin, endMin int) (Slot, error) {
	if day < 0 || day >= DaysPerWeek ||
		startMin < 0 || startMin >= MinutesPerDay ||
		endMin <= 0 || endMin > MinutesPerDay ||
		startMin >= endMin {
		return Slot{}, fmt.Errorf("%w: day=%d start=%d end=%d", ErrBadSlot, day, startMin, endMin)
	}
	return Slot{Day: day, StartMin: startMin, EndMin: endMin}, nil
}

// Shifted advances both boundaries by minutes. Crossing a day boundary
// wraps the day index modulo 7, symmetrically for under- and overflow.
// A result straddling two days fails with ErrCrossDay.
func (s Slot) Shifted(minutes int) (Slot, error) {
	start := s.StartMin + minutes
	end := s.EndMin + minutes
	day := s.Day
	for start < 0 {
		start += MinutesPerDay
		end += MinutesPerDay
		day = (day + DaysPerWeek - 1) % DaysPerWeek
	}
	for end > MinutesPerDay {
		start -= MinutesPerDay
		end -= MinutesPerDay
		day = (day + 1) % DaysPerWeek
	}
	if start < 0 || end > MinutesPerDay {
		return Slot{}, ErrCrossDay
	}
	return New(day, start, end)
}

// Duration returns the slot length in minutes.
func (s Slot) Duration() int { return s.EndMin - s.StartMin }

func (s Slot) String() string {
	return fmt.Sprintf("%s %s-%s", DayName(s.Day), HM(s.StartMin), HM(s.EndMin))
}

// DayIndex maps a day name to its index by case-insensitive 3-letter
// prefix ("monday", "Mon", "MONDAY" all resolve to 0).
func DayIndex(name string) (int, error) {
	trimmed := strings.ToLower(strings.TrimSpace(name))
	if len(trimmed) < 3 {
		return 0, fmt.Errorf("%w: %q", ErrBadDay, name)
	}
	switch trimmed[:3] {
	case "mon":
		return 0, nil
	case "tue":
		return 1, nil
	case "wed":
		return 2, nil
	case "thu":
		return 3, nil
	case "fri":
		return 4, nil
	case "sat":
		return 5, nil
	case "sun":
		return 6, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrBadDay, name)
}

// DayName returns the short day name for an index in [0,6].
func DayName(day int) string { return dayNames[day] }

// HM renders a minute-of-day as zero-padded HH:MM. Minute 1440 renders
// as 24:00, legal as an end boundary.
func HM(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

// ParseHM parses HH:MM into a minute-of-day in [0,1439].
func ParseHM(hm string) (int, error) {
	parts := strings.Split(strings.TrimSpace(hm), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrBadHM, hm)
	}
	var h, m int
	if _, err := fmt.Sscanf(parts[0]+" "+parts[1], "%d %d", &h, &m); err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadHM, hm)
	}
	if h < 0 || h >= 24 || m < 0 || m >= 60 {
		return 0, fmt.Errorf("%w: %q", ErrBadHM, hm)
	}
	return h*60 + m, nil
}
