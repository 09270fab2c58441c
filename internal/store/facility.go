package store

import (
	"fmt"
	"strings"

	"bookd/internal/timeslot"
)

// Booking is one confirmed reservation. The store owns every Booking;
// confirmation ids handed to clients are lookup keys only.
type Booking struct {
	ID       int64
	Facility string
	Slot     timeslot.Slot
}

// Facility couples a weekly minute-resolution occupancy grid with the
// bookings that produced it. For every occupied minute exactly one
// booking covers it, and bookings never overlap.
type Facility struct {
	Name     string
	week     [timeslot.DaysPerWeek][timeslot.MinutesPerDay]bool
	bookings map[int64]*Booking
}

func NewFacility(name string) *Facility {
	return &Facility{
		Name:     name,
		bookings: make(map[int64]*Booking),
	}
}

// IsFree reports whether every minute of the slot is unoccupied.
func (f *Facility) IsFree(s timeslot.Slot) bool {
	day := &f.week[s.Day]
	for m := s.StartMin; m < s.EndMin; m++ {
		if day[m] {
			return false
		}
	}
	return true
}

// Occupy marks the slot's minutes booked. Callers pair this with an
// IsFree check; Occupy itself does not reject overlaps.
func (f *Facility) Occupy(s timeslot.Slot) {
	day := &f.week[s.Day]
	for m := s.StartMin; m < s.EndMin; m++ {
		day[m] = true
	}
}

// Free clears the slot's minutes.
func (f *Facility) Free(s timeslot.Slot) {
	day := &f.week[s.Day]
	for m := s.StartMin; m < s.EndMin; m++ {
		day[m] = false
	}
}

func (f *Facility) Booking(id int64) (*Booking, bool) {
	b, ok := f.bookings[id]
	return b, ok
}

func (f *Facility) AddBooking(b *Booking) {
	f.bookings[b.ID] = b
}

// RemoveBooking deletes the booking record. The grid is untouched;
// callers Free the slot themselves.
func (f *Facility) RemoveBooking(id int64) (*Booking, bool) {
	b, ok := f.bookings[id]
	if ok {
		delete(f.bookings, id)
	}
	return b, ok
}

func (f *Facility) BookingCount() int { return len(f.bookings) }

// FreeMinutes counts unoccupied minutes in one day.
func (f *Facility) FreeMinutes(day int) int {
	n := 0
	for _, occupied := range f.week[day] {
		if !occupied {
			n++
		}
	}
	return n
}

// DetailedAvailability renders one day as chronological booked and free
// HH:MM-HH:MM ranges.
func (f *Facility) DetailedAvailability(day int) string {
	var booked, free []string
	row := &f.week[day]

	for i := 0; i < timeslot.MinutesPerDay; {
		start := i
		if row[i] {
			for i < timeslot.MinutesPerDay && row[i] {
				i++
			}
			booked = append(booked, timeslot.HM(start)+"-"+timeslot.HM(i))
		} else {
			for i < timeslot.MinutesPerDay && !row[i] {
				i++
			}
			free = append(free, timeslot.HM(start)+"-"+timeslot.HM(i))
		}
	}

	var sb strings.Builder
	sb.WriteString(timeslot.DayName(day))
	sb.WriteString(":\n")
	if len(booked) == 0 {
		sb.WriteString("  All day free (00:00-24:00)\n")
		return sb.String()
	}
	sb.WriteString("  Booked: ")
	sb.WriteString(strings.Join(booked, ", "))
	sb.WriteString("\n")
	if len(free) == 0 {
		sb.WriteString("  Free: None\n")
	} else {
		sb.WriteString("  Free: ")
		sb.WriteString(strings.Join(free, ", "))
		sb.WriteString("\n")
	}
	return sb.String()
}

// WeeklySummary lists per-day free-minute counts.
func (f *Facility) WeeklySummary() string {
	var sb strings.Builder
	for d := 0; d < timeslot.DaysPerWeek; d++ {
		fmt.Fprintf(&sb, "%s: free %d/%d minutes\n",
			timeslot.DayName(d), f.FreeMinutes(d), timeslot.MinutesPerDay)
	}
	return sb.String()
}

// StatusText is the full weekly report used by QUERY and monitor
// updates: a header line followed by all requested days.
func StatusText(f *Facility, days []int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "=== %s Status ===\n", f.Name)
	for _, d := range days {
		sb.WriteString(f.DetailedAvailability(d))
	}
	return sb.String()
}

// AllDays enumerates 0..6, the argument StatusText takes for a full week.
func AllDays() []int {
	days := make([]int, timeslot.DaysPerWeek)
	for i := range days {
		days[i] = i
	}
	return days
}
