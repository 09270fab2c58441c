package server

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"bookd/internal/monitor"
	"bookd/internal/observability"
	"bookd/internal/protocol"
	"bookd/internal/semantics"
	"bookd/internal/store"
	"bookd/internal/timeslot"
)

var (
	errUnknownOp     = errors.New("Unknown op")
	errNoFacility    = errors.New("No such facility")
	errNoBooking     = errors.New("No such confirmation ID")
	errSlotTaken     = errors.New("Unavailable in requested period")
	errNewSlotTaken  = errors.New("Unavailable for new period")
	errOutsideWeek   = errors.New("Shift would move booking outside week range")
	errPastMidnight  = errors.New("Shift would exceed end of day")
	errStartNegative = errors.New("New start time would be before 00:00")
	errEndPastDay    = errors.New("New end time would exceed 24:00")
	errStartAfterEnd = errors.New("New start time must be before end time")
)

func (s *Server) handleQuery(req *protocol.Message) (string, error) {
	r := protocol.NewReader(req.Payload)
	facility, err := r.String()
	if err != nil {
		return "", err
	}
	daysCsv, err := r.String()
	if err != nil {
		return "", err
	}

	f, ok := s.store.Get(facility)
	if !ok {
		return "", errNoFacility
	}

	var days []int
	if strings.TrimSpace(daysCsv) != "" {
		for _, token := range strings.Split(daysCsv, ",") {
			day, err := timeslot.DayIndex(token)
			if err != nil {
				return "", err
			}
			days = append(days, day)
		}
	}
	return store.StatusText(f, days), nil
}

func (s *Server) handleBook(req *protocol.Message) (string, error) {
	r := protocol.NewReader(req.Payload)
	facility, err := r.String()
	if err != nil {
		return "", err
	}
	day, err := r.I32()
	if err != nil {
		return "", err
	}
	startMin, err := r.I32()
	if err != nil {
		return "", err
	}
	endMin, err := r.I32()
	if err != nil {
		return "", err
	}

	f, ok := s.store.Get(facility)
	if !ok {
		return "", errNoFacility
	}
	slot, err := timeslot.New(int(day), int(startMin), int(endMin))
	if err != nil {
		return "", err
	}
	if !f.IsFree(slot) {
		return "", errSlotTaken
	}

	id := s.store.NextConfirmationID()
	f.Occupy(slot)
	f.AddBooking(&store.Booking{ID: id, Facility: facility, Slot: slot})
	s.fanOut(facility)
	return fmt.Sprintf("CONFIRM# %d", id), nil
}

func (s *Server) handleChange(req *protocol.Message) (string, error) {
	r := protocol.NewReader(req.Payload)
	id, err := r.I64()
	if err != nil {
		return "", err
	}
	shift, err := r.I32()
	if err != nil {
		return "", err
	}

	f, b, ok := s.store.FindBooking(id)
	if !ok {
		return "", errNoBooking
	}

	newStart := b.Slot.StartMin + int(shift)
	newEnd := b.Slot.EndMin + int(shift)
	newDay := b.Slot.Day
	for newStart < 0 {
		newStart += timeslot.MinutesPerDay
		newEnd += timeslot.MinutesPerDay
		newDay--
	}
	for newStart >= timeslot.MinutesPerDay {
		newStart -= timeslot.MinutesPerDay
		newEnd -= timeslot.MinutesPerDay
		newDay++
	}
	if newDay < 0 || newDay >= timeslot.DaysPerWeek {
		return "", errOutsideWeek
	}
	if newEnd > timeslot.MinutesPerDay {
		return "", errPastMidnight
	}
	newSlot, err := timeslot.New(newDay, newStart, newEnd)
	if err != nil {
		return "", err
	}

	f.Free(b.Slot)
	if !f.IsFree(newSlot) {
		f.Occupy(b.Slot)
		return "", errNewSlotTaken
	}
	f.Occupy(newSlot)
	b.Slot = newSlot
	s.fanOut(b.Facility)
	return fmt.Sprintf("CHANGED# %d (shifted %+d min)", id, shift), nil
}

func (s *Server) handleCancel(req *protocol.Message) (string, error) {
	id, err := protocol.NewReader(req.Payload).I64()
	if err != nil {
		return "", err
	}

	f, b, ok := s.store.FindBooking(id)
	if !ok {
		// Idempotent: a repeat cancel is a success, not an error.
		return "ALREADY_CANCELED_OR_NOT_FOUND", nil
	}
	f.RemoveBooking(id)
	f.Free(b.Slot)
	s.fanOut(b.Facility)
	return fmt.Sprintf("CANCELED# %d", id), nil
}

func (s *Server) handleExtend(req *protocol.Message) (string, error) {
	r := protocol.NewReader(req.Payload)
	id, err := r.I64()
	if err != nil {
		return "", err
	}
	startDelta, err := r.I32()
	if err != nil {
		return "", err
	}
	endDelta, err := r.I32()
	if err != nil {
		return "", err
	}

	f, b, ok := s.store.FindBooking(id)
	if !ok {
		return "", errNoBooking
	}

	newStart := b.Slot.StartMin + int(startDelta)
	newEnd := b.Slot.EndMin + int(endDelta)
	if newStart < 0 {
		return "", errStartNegative
	}
	if newEnd > timeslot.MinutesPerDay {
		return "", errEndPastDay
	}
	if newStart >= newEnd {
		return "", errStartAfterEnd
	}
	newSlot, err := timeslot.New(b.Slot.Day, newStart, newEnd)
	if err != nil {
		return "", err
	}

	f.Free(b.Slot)
	if !f.IsFree(newSlot) {
		f.Occupy(b.Slot)
		return "", errNewSlotTaken
	}
	f.Occupy(newSlot)
	b.Slot = newSlot
	s.fanOut(b.Facility)
	return fmt.Sprintf("EXTENDED# %d (start %+d min, end %+d min)", id, startDelta, endDelta), nil
}

func (s *Server) handleMonitorRegister(req *protocol.Message, from *net.UDPAddr) (string, error) {
	r := protocol.NewReader(req.Payload)
	facility, err := r.String()
	if err != nil {
		return "", err
	}
	seconds, err := r.I32()
	if err != nil {
		return "", err
	}

	if _, ok := s.store.Get(facility); !ok {
		return "", errNoFacility
	}
	sub := s.subs.Register(from, facility, time.Duration(seconds)*time.Second)
	s.log.Info().
		Str("subscription", sub.ID.String()).
		Str("facility", facility).
		Str("peer", from.String()).
		Int32("seconds", seconds).
		Msg("monitor registered")

	// Initial snapshot for the new subscriber.
	s.fanOut(facility)
	return fmt.Sprintf("MONITORING# %s for %ds", facility, seconds), nil
}

func (s *Server) handleQueryBooking(req *protocol.Message) (string, error) {
	id, err := protocol.NewReader(req.Payload).I64()
	if err != nil {
		return "", err
	}

	_, b, ok := s.store.FindBooking(id)
	if !ok {
		return "", fmt.Errorf("No booking found with ID: %d", id)
	}

	var sb strings.Builder
	sb.WriteString("=== Booking Details ===\n")
	fmt.Fprintf(&sb, "Confirmation ID: %d\n", b.ID)
	fmt.Fprintf(&sb, "Facility: %s\n", b.Facility)
	fmt.Fprintf(&sb, "Day: %s\n", timeslot.DayName(b.Slot.Day))
	fmt.Fprintf(&sb, "Time: %s - %s\n", timeslot.HM(b.Slot.StartMin), timeslot.HM(b.Slot.EndMin))
	fmt.Fprintf(&sb, "Duration: %d minutes", b.Slot.Duration())
	return sb.String(), nil
}

// fanOut sends the facility's full weekly status to every live
// subscription. Updates carry a fresh server-side request id, are never
// cached for AMO, and are best-effort only.
func (s *Server) fanOut(facility string) {
	f, ok := s.store.Get(facility)
	if !ok {
		return
	}
	text := store.StatusText(f, store.AllDays())
	payload := protocol.NewWriter().PutString(facility).PutString(text).Bytes()

	s.subs.FanOut(facility, func(sub monitor.Subscription) {
		msg := &protocol.Message{
			Version:   protocol.Version,
			Semantics: s.sem,
			Opcode:    protocol.OpMonitorUpdate,
			RequestID: semantics.NextRequestID(),
			Payload:   payload,
		}
		data, err := protocol.Pack(msg)
		if err != nil {
			s.log.Error().Err(err).Str("facility", facility).Msg("monitor update too large")
			return
		}
		observability.RecordMonitorUpdate()
		s.log.Debug().
			Str("subscription", sub.ID.String()).
			Str("facility", facility).
			Str("peer", sub.Addr.String()).
			Msg("monitor update")
		s.send(sub.Addr, data, "update")
	})
}
